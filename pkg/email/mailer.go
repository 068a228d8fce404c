package email

import (
	"context"
	"fmt"
	"regexp"
)

// EmailSender represents an interface for sending emails.
type EmailSender interface {
	SendEmail(ctx context.Context, params SendEmailParams) error
}

// Attachment is one file attached to an outgoing email.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"content"`
}

// SendEmailParams represents the parameters for sending an email.
type SendEmailParams struct {
	To          []string     `json:"to"`
	Subject     string       `json:"subject"`
	BodyHTML    string       `json:"body_html"`
	BodyText    string       `json:"body_text,omitempty"`
	ReplyTo     string       `json:"reply_to,omitempty"`
	Tag         string       `json:"tag,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Validate checks the parameters every backend requires.
func (p SendEmailParams) Validate() error {
	if len(p.To) == 0 {
		return ErrNoRecipients
	}
	for _, addr := range p.To {
		if !emailRegex.MatchString(addr) {
			return fmt.Errorf("%w: %s", ErrInvalidRecipient, addr)
		}
	}
	if p.Subject == "" {
		return ErrEmptySubject
	}
	if p.BodyHTML == "" && p.BodyText == "" {
		return ErrEmptyBody
	}
	return nil
}

// New picks a backend from the configuration: Postmark when a server
// token is set, SMTP when a host is set, otherwise the dev sender.
func New(cfg Config) (EmailSender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case cfg.PostmarkServerToken != "":
		return NewPostmarkClient(cfg)
	case cfg.SMTPHost != "":
		return NewSMTPSender(cfg)
	default:
		return NewDevSender(cfg.DevOutputDir), nil
	}
}
