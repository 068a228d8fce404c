package email

import "errors"

var (
	ErrFailedToSendEmail = errors.New("email.errors.failed_to_send_email")
	ErrInvalidConfig     = errors.New("email.errors.invalid_config")
	ErrNoRecipients      = errors.New("email.errors.no_recipients")
	ErrInvalidRecipient  = errors.New("email.errors.invalid_recipient")
	ErrEmptySubject      = errors.New("email.errors.empty_subject")
	ErrEmptyBody         = errors.New("email.errors.empty_body")
)
