package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// Email template names.
const (
	TemplateRegistrationConfirmed = "registration_confirmed"
	TemplateRegistrationCancelled = "registration_cancelled"
)

// RegistrationEmailData holds data for registration confirmation and cancellation emails.
type RegistrationEmailData struct {
	Email      string
	Name       string
	EventTitle string
	EventDate  string
	Location   string
}

// NotificationService sends registration notices. Callers treat its errors as
// warnings; a failed notice never undoes the registration change.
type NotificationService interface {
	SendRegistrationConfirmed(ctx context.Context, data *RegistrationEmailData) error
	SendRegistrationCancelled(ctx context.Context, data *RegistrationEmailData) error
}
