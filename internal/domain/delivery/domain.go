package delivery

import (
	"context"
	"errors"
	"fmt"
)

var ErrUnknownTemplate = errors.New("unknown email template")

// Template names a transactional email. The set is closed: adding one means
// adding a constant here and a file to the mailer's embedded templates.
type Template string

const (
	TemplateWelcome              Template = "welcome-marketing"
	TemplateMagicLink            Template = "magic-link"
	TemplateResetPassword        Template = "reset-password"
	TemplateResetPasswordSuccess Template = "password-reset-complete"
)

var Templates = []Template{
	TemplateWelcome,
	TemplateMagicLink,
	TemplateResetPassword,
	TemplateResetPasswordSuccess,
}

func (t Template) Valid() bool {
	for _, known := range Templates {
		if t == known {
			return true
		}
	}
	return false
}

func (t Template) File() string { return string(t) + ".html" }

func ParseTemplate(s string) (Template, error) {
	t := Template(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTemplate, s)
	}
	return t, nil
}

// Request is one outbound email attempt. It is never persisted.
type Request struct {
	To       string
	Template Template
	Subject  string
	Context  map[string]any
}

type Transport interface {
	Send(ctx context.Context, req Request) error
}

// SendFunc is the unit of work a dispatcher runs for a Request.
type SendFunc func(ctx context.Context, req Request) error
