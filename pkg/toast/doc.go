// Package toast provides feedback notifications rendered into a
// server-owned document.
//
// A Presenter owns one notification stack: a polite, atomic live region
// appended to the document body on first use. Every notification becomes a
// card in that stack with an icon, a title, a close button, an optional
// message and an optional detail list. Cards dismiss themselves after a
// timeout unless they are sticky.
//
// # Server-Side Usage
//
// In your handlers:
//
//	func DeleteProject(p *toast.Presenter, id int) error {
//	    if err := db.Projects.Delete(id); err != nil {
//	        p.Error("Delete failed", "The project could not be deleted.")
//	        return err
//	    }
//
//	    p.Success("Deleted", "Project deleted", toast.WithTimeout(3*time.Second))
//	    return nil
//	}
//
// With details:
//
//	p.Error("Validation failed", "", toast.WithDetails(apierr.ValidationList(d.Errors)...))
//
// # Card Lifecycle
//
// Each card moves through Visible → Hiding → Removed. Dismissal (timer,
// close click or Dismiss) adds the notification-hide class so the
// stylesheet can run an exit animation, and the card is removed exactly
// once when its one-shot animationend listener fires. Depending on the
// presenter options that happens immediately, after a fixed exit delay, or
// when the browser reports the end of the animation.
//
// An auto-dismiss timer is never cancelled. When it fires for a card that
// was already dismissed it does nothing.
package toast
