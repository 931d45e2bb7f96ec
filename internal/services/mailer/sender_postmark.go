package mailer

import (
	"context"
	"errors"
	"fmt"

	config "github.com/NordCoder/tifi/internal/config/api"
	"github.com/mrz1836/postmark"
)

var ErrPostmark = errors.New("postmark rejected message")

type PostmarkSender struct {
	client *postmark.Client
	stream string
}

func NewPostmarkSender(cfg config.Postmark) (*PostmarkSender, error) {
	if cfg.ServerToken == "" {
		return nil, errors.New("postmark: server token is required")
	}
	return &PostmarkSender{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		stream: cfg.Stream,
	}, nil
}

func (s *PostmarkSender) Deliver(ctx context.Context, m Message) error {
	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:          m.From.String(),
		To:            m.To.String(),
		Subject:       m.Subject,
		Tag:           m.Tag,
		HTMLBody:      m.HTML,
		TrackOpens:    true,
		TrackLinks:    "HtmlOnly",
		MessageStream: s.stream,
	})
	if err != nil {
		return err
	}
	if resp.ErrorCode > 0 {
		return fmt.Errorf("%w: %d %s", ErrPostmark, resp.ErrorCode, resp.Message)
	}
	return nil
}
