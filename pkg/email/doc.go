// Package email delivers transactional messages.
//
// Two EmailSender implementations are provided: a Postmark client for
// production and DevSender, which writes each message to a local directory as
// an .html body plus .json metadata. NewSender picks one from Config.
//
//	sender, err := email.NewSender(cfg)
//	err = sender.SendEmail(ctx, email.SendEmailParams{
//	    SendTo:   "user@example.com",
//	    Subject:  "Two-factor authentication enabled",
//	    BodyHTML: html,
//	    Tag:      "2fa_enabled",
//	})
//
// Message bodies are composed from the templ components in the templates
// subpackage.
//
// Errors: ErrInvalidConfig, ErrInvalidParams and ErrFailedToSendEmail, all
// comparable with errors.Is.
package email
