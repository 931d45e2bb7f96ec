// Package mailer renders delivery templates and hands them to an outbound transport.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	config "github.com/NordCoder/tifi/internal/config/api"
	"github.com/NordCoder/tifi/internal/domain/delivery"
	"go.uber.org/zap"
)

var ErrInvalidRecipient = errors.New("invalid recipient address")

// Sender puts one rendered message on the wire.
type Sender interface {
	Deliver(ctx context.Context, m Message) error
}

// Mailer implements delivery.Transport on top of a Renderer and a Sender.
type Mailer struct {
	renderer *Renderer
	sender   Sender
	from     mail.Address
	log      *zap.Logger
}

var _ delivery.Transport = (*Mailer)(nil)

func NewMailer(r *Renderer, s Sender, from mail.Address, log *zap.Logger) *Mailer {
	return &Mailer{
		renderer: r,
		sender:   s,
		from:     from,
		log:      log.With(zap.String("component", "mailer")),
	}
}

// New wires the Mailer selected by cfg.Transport.
func New(cfg config.Mail, log *zap.Logger) (*Mailer, error) {
	r, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	from, err := mail.ParseAddress(cfg.From)
	if err != nil {
		return nil, fmt.Errorf("mail.from: %w", err)
	}
	from.Name = cfg.FromName

	var s Sender
	switch cfg.Transport {
	case "smtp":
		s = NewSMTPSender(cfg.SMTP, log)
	case "postmark":
		s, err = NewPostmarkSender(cfg.Postmark)
		if err != nil {
			return nil, err
		}
	case "log", "":
		s = NewLogSender(log)
	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.Transport)
	}
	return NewMailer(r, s, *from, log), nil
}

func (m *Mailer) Send(ctx context.Context, req delivery.Request) error {
	to, err := mail.ParseAddress(req.To)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidRecipient, req.To, err)
	}
	html, err := m.renderer.Render(req.Template, req.Context)
	if err != nil {
		return err
	}
	msg := Message{
		From:    m.from,
		To:      *to,
		Subject: req.Subject,
		HTML:    html,
		Tag:     string(req.Template),
	}
	if err := m.sender.Deliver(ctx, msg); err != nil {
		return fmt.Errorf("deliver %s: %w", req.Template, err)
	}
	m.log.Info("email sent", zap.String("template", string(req.Template)), zap.String("to", to.Address))
	return nil
}
