// Package notify turns business events into a ledger row plus a scheduled email.
package notify

import (
	"context"

	"github.com/NordCoder/tifi/internal/domain/delivery"
	"github.com/NordCoder/tifi/internal/domain/notification"
	"github.com/NordCoder/tifi/internal/domain/user"
)

// Recorder is the ledger write used by the facade.
type Recorder interface {
	Record(ctx context.Context, receiverID, title, message string, typ notification.Type) (*notification.Notification, error)
}

// Scheduler accepts a send for background execution and returns at once.
type Scheduler interface {
	Schedule(ctx context.Context, send delivery.SendFunc, req delivery.Request)
}

type Service struct {
	ledger    Recorder
	scheduler Scheduler
	transport delivery.Transport
	ctaLink   string
}

const DefaultCTALink = "https://tifi.tv/about"

func New(ledger Recorder, scheduler Scheduler, transport delivery.Transport, ctaLink string) *Service {
	if ctaLink == "" {
		ctaLink = DefaultCTALink
	}
	return &Service{ledger: ledger, scheduler: scheduler, transport: transport, ctaLink: ctaLink}
}

type event struct {
	typ      notification.Type
	title    string
	message  string
	template delivery.Template
	subject  string
}

var (
	evSignup = event{
		typ:      notification.TypeSuccess,
		title:    "Welcome to TiFi",
		message:  "Your account has been created. Welcome aboard!",
		template: delivery.TemplateWelcome,
		subject:  "Welcome to TiFi",
	}
	evMagicLink = event{
		typ:      notification.TypeInfo,
		title:    "Magic link requested",
		message:  "A sign-in link was sent to your email address.",
		template: delivery.TemplateMagicLink,
		subject:  "Magic Link Authentication",
	}
	evPasswordReset = event{
		typ:      notification.TypeWarning,
		title:    "Password reset requested",
		message:  "A password reset link was sent to your email address. Ignore it if this was not you.",
		template: delivery.TemplateResetPassword,
		subject:  "Reset Password",
	}
	evPasswordResetComplete = event{
		typ:      notification.TypeSuccess,
		title:    "Password reset complete",
		message:  "Your password was changed successfully.",
		template: delivery.TemplateResetPasswordSuccess,
		subject:  "Password Reset Complete",
	}
)

func (s *Service) NotifySignup(ctx context.Context, u *user.User) error {
	return s.fire(ctx, u, evSignup, map[string]any{"cta_link": s.ctaLink})
}

func (s *Service) NotifyMagicLink(ctx context.Context, u *user.User, url string) error {
	return s.fire(ctx, u, evMagicLink, map[string]any{"url": url})
}

func (s *Service) NotifyPasswordReset(ctx context.Context, u *user.User, url string) error {
	return s.fire(ctx, u, evPasswordReset, map[string]any{"url": url})
}

func (s *Service) NotifyPasswordResetComplete(ctx context.Context, u *user.User) error {
	return s.fire(ctx, u, evPasswordResetComplete, nil)
}

// fire writes the ledger row first; the email is scheduled only if that succeeds.
// The two side effects are not atomic: a failed send leaves the row in place.
func (s *Service) fire(ctx context.Context, u *user.User, ev event, extra map[string]any) error {
	if _, err := s.ledger.Record(ctx, u.ID, ev.title, ev.message, ev.typ); err != nil {
		return err
	}

	data := make(map[string]any, len(extra)+1)
	for k, v := range extra {
		data[k] = v
	}
	data["user"] = u

	s.scheduler.Schedule(ctx, s.transport.Send, delivery.Request{
		To:       u.Email,
		Template: ev.template,
		Subject:  ev.subject,
		Context:  data,
	})
	return nil
}
