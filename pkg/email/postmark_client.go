package email

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/mrz1836/postmark"
)

type postmarkClient struct {
	client *postmark.Client
	config Config
}

// NewPostmarkClient creates a Postmark-backed email sender. Both tokens
// are required so a half-configured production deployment fails at
// startup instead of at first send.
func NewPostmarkClient(cfg Config) (EmailSender, error) {
	if cfg.PostmarkServerToken == "" {
		return nil, fmt.Errorf("%w: PostmarkServerToken is required", ErrInvalidConfig)
	}
	if cfg.PostmarkAccountToken == "" {
		return nil, fmt.Errorf("%w: PostmarkAccountToken is required", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &postmarkClient{
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		config: cfg,
	}, nil
}

// SendEmail implements EmailSender using Postmark's transactional API.
// Opens and HTML link clicks are tracked; Reply-To falls back to the
// support address so customer responses reach the right inbox.
func (c *postmarkClient) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	replyTo := params.ReplyTo
	if replyTo == "" {
		replyTo = c.config.SupportEmail
	}

	attachments := make([]postmark.Attachment, 0, len(params.Attachments))
	for _, a := range params.Attachments {
		attachments = append(attachments, postmark.Attachment{
			Name:        a.Filename,
			Content:     base64.StdEncoding.EncodeToString(a.Content),
			ContentType: a.ContentType,
		})
	}

	resp, err := c.client.SendEmail(ctx, postmark.Email{
		From:        c.config.SenderEmail,
		ReplyTo:     replyTo,
		To:          strings.Join(params.To, ","),
		Subject:     params.Subject,
		Tag:         params.Tag,
		HTMLBody:    params.BodyHTML,
		TextBody:    params.BodyText,
		Attachments: attachments,
		TrackOpens:  true,
		TrackLinks:  "HtmlOnly",
	})
	if err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(
			ErrFailedToSendEmail,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message),
		)
	}
	return nil
}
