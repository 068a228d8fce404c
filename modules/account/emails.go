package account

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/url"

	"github.com/trestleapp/trestle/pkg/email"
	"github.com/trestleapp/trestle/pkg/queue"
)

// EmailTask is the queued payload for one outbound message. Bodies are
// fully rendered before enqueueing; the consumer only hands them to
// the sender.
type EmailTask struct {
	To       []string `json:"to"`
	Subject  string   `json:"subject"`
	BodyHTML string   `json:"body_html"`
	BodyText string   `json:"body_text,omitempty"`
	ReplyTo  string   `json:"reply_to,omitempty"`
}

// NewEmailTaskHandler returns the queue handler that delivers EmailTask
// payloads through the sender.
func NewEmailTaskHandler(sender email.EmailSender) queue.Handler {
	return queue.NewTaskHandler(func(ctx context.Context, task EmailTask) error {
		return sender.SendEmail(ctx, email.SendEmailParams{
			To:       task.To,
			Subject:  task.Subject,
			BodyHTML: task.BodyHTML,
			BodyText: task.BodyText,
			ReplyTo:  task.ReplyTo,
		})
	})
}

// deferEmail pushes the message onto the queue without waiting for
// delivery. Enqueue failures are logged and swallowed; mail is
// best-effort from the request's point of view.
func (s *Service) deferEmail(task EmailTask) {
	if err := s.queue.Enqueue(task); err != nil {
		s.log.Error("failed to enqueue email",
			slog.String("subject", task.Subject), slog.Any("error", err))
	}
}

func resetEmail(baseURL string, user *User, token string) EmailTask {
	link := fmt.Sprintf("%s/account/resetpassword?%s", baseURL, url.Values{
		"key":   {user.Slug()},
		"token": {token},
	}.Encode())

	return EmailTask{
		To:      []string{user.Email},
		Subject: "Reset Password",
		BodyHTML: fmt.Sprintf(`<p>A password reset was requested for your account.</p>
<p><a href="%s">Click here to choose a new password.</a></p>
<p>For security purposes this link will expire in one hour. If you did not request this you can ignore this email.</p>`,
			html.EscapeString(link)),
		BodyText: fmt.Sprintf("A password reset was requested for your account.\n\n"+
			"Choose a new password here: %s\n\n"+
			"For security purposes this link will expire in one hour. "+
			"If you did not request this you can ignore this email.\n", link),
	}
}

func errorAlertEmail(supportEmail, message, method, requestURL, userEmail string) EmailTask {
	if userEmail == "" {
		userEmail = "anonymous"
	}
	return EmailTask{
		To:      []string{supportEmail},
		Subject: "Error Alert",
		BodyHTML: fmt.Sprintf(`<p>An error occurred while handling a request.</p>
<p><strong>%s %s</strong></p>
<p>User: %s</p>
<pre>%s</pre>`,
			html.EscapeString(method), html.EscapeString(requestURL),
			html.EscapeString(userEmail), html.EscapeString(message)),
	}
}
