package email

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DevSender implements EmailSender for local development. It saves each
// email as an HTML file plus a JSON metadata file instead of sending it
// through a mail service.
type DevSender struct {
	dir string
	now func() time.Time
}

// NewDevSender creates a development email sender that saves emails to
// disk. The directory is created on first send.
func NewDevSender(dir string) *DevSender {
	return &DevSender{dir: dir, now: time.Now}
}

type emailMetadata struct {
	Timestamp   string   `json:"timestamp"`
	To          []string `json:"to"`
	Subject     string   `json:"subject"`
	ReplyTo     string   `json:"reply_to,omitempty"`
	Tag         string   `json:"tag,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
}

// SendEmail writes the email body and metadata to the configured
// directory.
func (d *DevSender) SendEmail(_ context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create directory: %v", ErrFailedToSendEmail, err)
	}

	now := d.now()
	identifier := params.Tag
	if identifier == "" {
		identifier = params.Subject
	}
	base := fmt.Sprintf("%s_%s", now.Format("2006_01_02_150405"), sanitizeFilename(identifier))

	body := params.BodyHTML
	if body == "" {
		body = params.BodyText
	}
	if err := os.WriteFile(filepath.Join(d.dir, base+".html"), []byte(body), 0o644); err != nil {
		return fmt.Errorf("%w: write body: %v", ErrFailedToSendEmail, err)
	}

	meta := emailMetadata{
		Timestamp: now.Format(time.RFC3339),
		To:        params.To,
		Subject:   params.Subject,
		ReplyTo:   params.ReplyTo,
		Tag:       params.Tag,
	}
	for _, a := range params.Attachments {
		meta.Attachments = append(meta.Attachments, a.Filename)
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal metadata: %v", ErrFailedToSendEmail, err)
	}
	if err := os.WriteFile(filepath.Join(d.dir, base+".json"), data, 0o644); err != nil {
		return fmt.Errorf("%w: write metadata: %v", ErrFailedToSendEmail, err)
	}
	return nil
}

var sanitizeRegex = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// sanitizeFilename converts an arbitrary subject or tag into a safe
// lowercase filename fragment.
func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = sanitizeRegex.ReplaceAllString(s, "")

	const maxLength = 100
	if len(s) > maxLength {
		s = s[:maxLength]
	}
	if s == "" {
		s = "email"
	}
	return strings.ToLower(s)
}
