package enrollment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/a-h/templ"
	"github.com/google/uuid"

	"github.com/cepalab/signguard/pkg/email"
	"github.com/cepalab/signguard/pkg/email/templates"
)

var errUnknownNotice = errors.New("enrollment: unknown notice kind")

// NoticeKind identifies a security notification.
type NoticeKind string

const (
	NoticeEnabled                NoticeKind = "enabled"
	NoticeBackupCodesRegenerated NoticeKind = "backup_codes_regenerated"
	NoticeLockedOut              NoticeKind = "locked_out"
	NoticeDisabled               NoticeKind = "disabled"
)

// Notice describes a security-relevant change on an account.
type Notice struct {
	Kind       NoticeKind
	UserID     uuid.UUID
	OccurredAt time.Time
	RetryAfter time.Duration // set for NoticeLockedOut
}

// Notifier tells users about changes to their second factor.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// NoopNotifier discards notices.
type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, Notice) error { return nil }

// EmailNotifier sends notices as HTML email.
type EmailNotifier struct {
	sender   email.EmailSender
	accounts AccountResolver
	issuer   string
	support  string
}

// NewEmailNotifier panics when sender or accounts is nil.
func NewEmailNotifier(sender email.EmailSender, accounts AccountResolver, issuer, supportEmail string) *EmailNotifier {
	if sender == nil {
		panic("enrollment: email sender is required")
	}
	if accounts == nil {
		panic("enrollment: account resolver is required")
	}
	return &EmailNotifier{sender: sender, accounts: accounts, issuer: issuer, support: supportEmail}
}

func (n *EmailNotifier) Notify(ctx context.Context, notice Notice) error {
	to, err := n.accounts.AccountName(ctx, notice.UserID)
	if err != nil {
		return err
	}

	subject, body, err := n.content(notice)
	if err != nil {
		return err
	}
	html, err := templates.Render(ctx, templates.Layout(subject, body...))
	if err != nil {
		return err
	}

	return n.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   to,
		Subject:  subject,
		BodyHTML: html,
		Tag:      "security-" + string(notice.Kind),
	})
}

func (n *EmailNotifier) content(notice Notice) (string, []templ.Component, error) {
	when := notice.OccurredAt.UTC().Format("2006-01-02 15:04 UTC")
	footer := templates.TextSecondary("If this wasn't you, contact " + n.support + " immediately.")

	switch notice.Kind {
	case NoticeEnabled:
		return "Two-factor authentication enabled", []templ.Component{
			templates.Text(fmt.Sprintf("Two-factor authentication was turned on for your %s account on %s.", n.issuer, when)),
			templates.Text("Keep your backup codes somewhere safe. Each one works once."),
			footer,
		}, nil
	case NoticeBackupCodesRegenerated:
		return "New backup codes generated", []templ.Component{
			templates.Text(fmt.Sprintf("A new set of backup codes was generated on %s.", when)),
			templates.TextWarning("Your previous backup codes no longer work."),
			footer,
		}, nil
	case NoticeLockedOut:
		return "Two-factor setup temporarily locked", []templ.Component{
			templates.TextWarning("Several incorrect codes were entered while setting up two-factor authentication."),
			templates.Text(fmt.Sprintf("You can try again in %s.", notice.RetryAfter.Round(time.Second))),
			footer,
		}, nil
	case NoticeDisabled:
		return "Two-factor authentication disabled", []templ.Component{
			templates.TextWarning(fmt.Sprintf("Two-factor authentication was turned off for your %s account on %s.", n.issuer, when)),
			footer,
		}, nil
	default:
		return "", nil, fmt.Errorf("%w: %q", errUnknownNotice, notice.Kind)
	}
}
