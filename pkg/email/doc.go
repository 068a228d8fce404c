// Package email sends transactional mail through one of three
// interchangeable backends: Postmark for production, plain SMTP for
// self-hosted deployments, and a file-based sender for local
// development that writes each message to disk instead of delivering
// it.
//
// All backends implement EmailSender, so the rest of the application
// depends only on the interface:
//
//	sender, err := email.New(cfg)
//	err = sender.SendEmail(ctx, email.SendEmailParams{
//		To:       []string{"user@example.com"},
//		Subject:  "Reset your password",
//		BodyHTML: body,
//	})
package email
