package mailer

import (
	"context"

	"go.uber.org/zap"
)

// LogSender only logs outgoing messages. Meant for local runs.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log.With(zap.String("component", "mailer.log"))}
}

func (s *LogSender) Deliver(_ context.Context, m Message) error {
	s.log.Info("email (not sent)",
		zap.String("from", m.From.String()),
		zap.String("to", m.To.Address),
		zap.String("subject", m.Subject),
		zap.String("tag", m.Tag),
		zap.Int("html_len", len(m.HTML)),
	)
	return nil
}
