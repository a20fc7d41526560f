package services

import (
	"context"
	"fmt"
	"log/slog"

	"eventease/internal/domain"
)

type notificationService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

// NewNotificationService returns a NotificationService that renders embedded templates and sends them with mailer.
func NewNotificationService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &notificationService{mailer: mailer, renderer: renderer, logger: logger}
}

func (s *notificationService) SendRegistrationConfirmed(ctx context.Context, data *domain.RegistrationEmailData) error {
	return s.send(ctx, domain.TemplateRegistrationConfirmed, data)
}

func (s *notificationService) SendRegistrationCancelled(ctx context.Context, data *domain.RegistrationEmailData) error {
	return s.send(ctx, domain.TemplateRegistrationCancelled, data)
}

func (s *notificationService) send(ctx context.Context, templateName string, data *domain.RegistrationEmailData) error {
	if data == nil {
		return fmt.Errorf("%s email data is nil", templateName)
	}
	subject, htmlBody, textBody, err := s.renderer.Render(templateName, data)
	if err != nil {
		return fmt.Errorf("failed to render %s template: %w", templateName, err)
	}
	if err := s.mailer.Send(ctx, data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send %s email: %w", templateName, err)
	}
	s.logger.Debug("notification sent", "template", templateName, "to", data.Email)
	return nil
}
