package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/feedback/pkg/apierr"
	"github.com/vango-dev/feedback/pkg/toast"
)

type probeOptions struct {
	method      string
	data        string
	contentType string
	timeout     time.Duration
	maxBody     int64
	asJSON      bool
	card        bool
}

func probeCmd() *cobra.Command {
	var opts probeOptions

	cmd := &cobra.Command{
		Use:   "probe <url>",
		Short: "Show how a URL's error response is read",
		Long: `Send a request and print the normalized error descriptor:
status, message, code, path, timestamp and field errors.

Examples:
  feedback probe http://localhost:8080/api/fail/validation
  feedback probe -X POST -d '{"email":"x"}' http://localhost:8080/api/signup
  feedback probe --card http://localhost:8080/api/fail/text`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.method, "request", "X", http.MethodGet, "HTTP method")
	cmd.Flags().StringVarP(&opts.data, "data", "d", "", "Request body")
	cmd.Flags().StringVar(&opts.contentType, "content-type", "application/json", "Content-Type of the request body")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	cmd.Flags().Int64Var(&opts.maxBody, "max-body", apierr.DefaultMaxBodyBytes, "Largest error body to read")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the descriptor as JSON")
	cmd.Flags().BoolVar(&opts.card, "card", false, "Also print the notification card HTML")

	return cmd
}

// probeResult is the JSON form of a descriptor.
type probeResult struct {
	Status      int                `json:"status"`
	Message     string             `json:"message"`
	Error       string             `json:"error,omitempty"`
	Errors      apierr.FieldErrors `json:"errors,omitempty"`
	Path        string             `json:"path,omitempty"`
	Timestamp   string             `json:"timestamp,omitempty"`
	Validations []string           `json:"validations"`
}

func runProbe(ctx context.Context, out io.Writer, url string, opts probeOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	var body io.Reader
	if opts.data != "" {
		body = strings.NewReader(opts.data)
	}
	req, err := http.NewRequestWithContext(ctx, opts.method, url, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", opts.contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	if resp.StatusCode < http.StatusBadRequest {
		resp.Body.Close()
		fmt.Fprintf(out, "%d %s: not an error response\n", resp.StatusCode, http.StatusText(resp.StatusCode))
		return nil
	}

	parser := &apierr.Parser{MaxBodyBytes: opts.maxBody}
	d := parser.Parse(ctx, resp)

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(probeResult{
			Status:      d.Status,
			Message:     d.Message,
			Error:       d.Error,
			Errors:      d.Errors,
			Path:        d.Path,
			Timestamp:   d.Timestamp,
			Validations: apierr.ValidationList(d.Errors),
		}); err != nil {
			return err
		}
	} else {
		printDescriptor(out, d)
	}

	if opts.card {
		p := toast.New(toast.WithScheduler(toast.SchedulerFunc(func(time.Duration, func()) {})))
		p.Error("", d.Message, toast.WithDetails(apierr.ValidationList(d.Errors)...))
		fmt.Fprintln(out)
		fmt.Fprintln(out, p.StackHTML())
	}
	return nil
}

func printDescriptor(out io.Writer, d *apierr.Descriptor) {
	fmt.Fprintf(out, "  Status:    %d\n", d.Status)
	fmt.Fprintf(out, "  Message:   %s\n", d.Message)
	if d.Error != "" {
		fmt.Fprintf(out, "  Error:     %s\n", d.Error)
	}
	if d.Path != "" {
		fmt.Fprintf(out, "  Path:      %s\n", d.Path)
	}
	if d.Timestamp != "" {
		fmt.Fprintf(out, "  Timestamp: %s\n", d.Timestamp)
	}
	if d.HasFieldErrors() {
		fmt.Fprintln(out, "  Fields:")
		for _, line := range apierr.ValidationList(d.Errors) {
			fmt.Fprintf(out, "    - %s\n", line)
		}
	}
}
