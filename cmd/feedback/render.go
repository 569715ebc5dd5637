package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/feedback/pkg/toast"
)

func renderCmd() *cobra.Command {
	var (
		typ     string
		title   string
		message string
		details []string
		icon    string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the HTML of a notification card",
		Long: `Render one notification into an empty stack and print the stack HTML.

Examples:
  feedback render --type=success --title=Saved --message="Changes saved"
  feedback render --type=error --detail="Email: is required" --detail="Name: is required"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := toast.New(toast.WithScheduler(toast.SchedulerFunc(func(time.Duration, func()) {})))
			p.Notify(
				toast.WithType(toast.Type(typ)),
				toast.WithTitle(title),
				toast.WithMessage(message),
				toast.WithDetails(details...),
				toast.WithIcon(icon),
			)
			_, err := fmt.Fprintln(cmd.OutOrStdout(), p.StackHTML())
			return err
		},
	}

	cmd.Flags().StringVarP(&typ, "type", "t", string(toast.TypeInfo), "Notification type (success, error, danger, warning, info, primary)")
	cmd.Flags().StringVar(&title, "title", "", "Title (default: the type in upper case)")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Message text")
	cmd.Flags().StringArrayVar(&details, "detail", nil, "Detail line (repeatable)")
	cmd.Flags().StringVar(&icon, "icon", "", "Icon CSS classes")

	return cmd
}
