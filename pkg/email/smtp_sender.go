package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"gopkg.in/gomail.v2"
)

type smtpSender struct {
	dialer *gomail.Dialer
	config Config
}

// NewSMTPSender creates an email sender that delivers through a plain
// SMTP relay. Used by self-hosted deployments that cannot or do not
// want to depend on Postmark.
func NewSMTPSender(cfg Config) (EmailSender, error) {
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("%w: SMTPHost is required", ErrInvalidConfig)
	}
	if cfg.SMTPPort <= 0 {
		return nil, fmt.Errorf("%w: SMTPPort must be positive", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &smtpSender{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		config: cfg,
	}, nil
}

func (s *smtpSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}

	replyTo := params.ReplyTo
	if replyTo == "" {
		replyTo = s.config.SupportEmail
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.config.SenderEmail)
	msg.SetHeader("To", params.To...)
	msg.SetHeader("Reply-To", replyTo)
	msg.SetHeader("Subject", params.Subject)

	if params.BodyHTML != "" {
		msg.SetBody("text/html", params.BodyHTML)
		if params.BodyText != "" {
			msg.AddAlternative("text/plain", params.BodyText)
		}
	} else {
		msg.SetBody("text/plain", params.BodyText)
	}

	for _, a := range params.Attachments {
		content := a.Content
		msg.Attach(a.Filename,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := io.Copy(w, bytes.NewReader(content))
				return err
			}),
			gomail.SetHeader(map[string][]string{"Content-Type": {a.ContentType}}),
		)
	}

	if err := s.dialer.DialAndSend(msg); err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	return nil
}
