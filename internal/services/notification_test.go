package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventease/internal/domain"
)

type fakeMailer struct {
	err  error
	sent []string
}

func (f *fakeMailer) Send(ctx context.Context, to, subject, html, text string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to+"|"+subject)
	return nil
}

type fakeRenderer struct {
	err error
}

func (f fakeRenderer) Render(templateName string, data any) (string, string, string, error) {
	if f.err != nil {
		return "", "", "", f.err
	}
	return "subject:" + templateName, "<p>html</p>", "text", nil
}

func TestNotificationService(t *testing.T) {
	ctx := context.Background()
	data := &domain.RegistrationEmailData{Email: "ana@campus.edu", Name: "Ana", EventTitle: "Quiz"}

	mailer := &fakeMailer{}
	svc := NewNotificationService(mailer, fakeRenderer{}, nil)
	require.NoError(t, svc.SendRegistrationConfirmed(ctx, data))
	require.NoError(t, svc.SendRegistrationCancelled(ctx, data))
	assert.Equal(t, []string{
		"ana@campus.edu|subject:" + domain.TemplateRegistrationConfirmed,
		"ana@campus.edu|subject:" + domain.TemplateRegistrationCancelled,
	}, mailer.sent)

	require.Error(t, svc.SendRegistrationConfirmed(ctx, nil))

	failing := NewNotificationService(&fakeMailer{err: errors.New("quota")}, fakeRenderer{}, nil)
	require.ErrorContains(t, failing.SendRegistrationConfirmed(ctx, data), "quota")

	badTemplate := NewNotificationService(&fakeMailer{}, fakeRenderer{err: errors.New("parse")}, nil)
	require.ErrorContains(t, badTemplate.SendRegistrationCancelled(ctx, data), "render")
}
