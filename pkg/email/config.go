package email

import "fmt"

// Config holds email service configuration. Exactly one backend is
// selected at startup: Postmark when its server token is present, SMTP
// when a host is present, and the file-based dev sender otherwise.
// SenderEmail and SupportEmail establish the sender identity and
// reply-to behavior for all outbound mail.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`

	SenderEmail  string `env:"SENDER_EMAIL,required"`
	SupportEmail string `env:"SUPPORT_EMAIL,required"`

	DevOutputDir string `env:"EMAIL_DEV_DIR" envDefault:"./tmp/emails"`
}

// Validate checks the fields shared by every backend.
func (c Config) Validate() error {
	if c.SenderEmail == "" {
		return fmt.Errorf("%w: SenderEmail is required", ErrInvalidConfig)
	}
	if !emailRegex.MatchString(c.SenderEmail) {
		return fmt.Errorf("%w: SenderEmail must be a valid email address", ErrInvalidConfig)
	}
	if c.SupportEmail == "" {
		return fmt.Errorf("%w: SupportEmail is required", ErrInvalidConfig)
	}
	if !emailRegex.MatchString(c.SupportEmail) {
		return fmt.Errorf("%w: SupportEmail must be a valid email address", ErrInvalidConfig)
	}
	return nil
}
