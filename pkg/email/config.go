package email

import "fmt"

// Config holds email delivery settings.
// Without a Postmark server token messages are written to DevDir.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL"  envDefault:"no-reply@signguard.local"`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"support@signguard.local"`
	DevDir               string `env:"EMAIL_DEV_DIR" envDefault:".emails"`
	SendRetries          uint64 `env:"EMAIL_SEND_RETRIES" envDefault:"2"`
}

// UsePostmark reports whether a Postmark server token is configured.
func (c Config) UsePostmark() bool {
	return c.PostmarkServerToken != ""
}

func (c Config) validateAddresses() error {
	for name, addr := range map[string]string{"SENDER_EMAIL": c.SenderEmail, "SUPPORT_EMAIL": c.SupportEmail} {
		if !emailRegex.MatchString(addr) {
			return fmt.Errorf("%w: %s %q is not an email address", ErrInvalidConfig, name, addr)
		}
	}
	return nil
}
