package mailer

import (
	"context"
	"crypto/tls"
	"net"
	"net/smtp"
	"time"

	config "github.com/NordCoder/tifi/internal/config/api"
	"go.uber.org/zap"
)

// SMTPSender speaks SMTP either over implicit TLS or in plain text
// (STARTTLS is used when the server offers it).
type SMTPSender struct {
	addr    string
	auth    smtp.Auth
	useTLS  bool
	timeout time.Duration
	now     func() time.Time

	log *zap.Logger
}

func NewSMTPSender(cfg config.SMTP, log *zap.Logger) *SMTPSender {
	var auth smtp.Auth
	if cfg.User != "" || cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Password, host(cfg.Addr))
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SMTPSender{
		addr:    cfg.Addr,
		auth:    auth,
		useTLS:  cfg.UseTLS,
		timeout: timeout,
		now:     time.Now,
		log:     log.With(zap.String("component", "mailer.smtp"), zap.String("smtp_addr", cfg.Addr)),
	}
}

func (s *SMTPSender) Deliver(ctx context.Context, m Message) error {
	raw, err := m.Bytes(s.now())
	if err != nil {
		return err
	}

	start := time.Now()
	log := s.log.With(
		zap.Bool("tls", s.useTLS),
		zap.String("to", m.To.Address),
		zap.String("subject", m.Subject),
	)

	conn, err := s.dial(ctx)
	if err != nil {
		log.Warn("smtp dial failed", zap.Error(err))
		return err
	}
	deadline := start.Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	c, err := smtp.NewClient(conn, host(s.addr))
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer func() { _ = c.Close() }()

	if !s.useTLS {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: host(s.addr)}); err != nil {
				log.Warn("smtp STARTTLS failed", zap.Error(err))
				return err
			}
		}
	}
	if s.auth != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(s.auth); err != nil {
				log.Warn("smtp auth failed", zap.Error(err))
				return err
			}
		}
	}
	if err := c.Mail(m.From.Address); err != nil {
		return err
	}
	if err := c.Rcpt(m.To.Address); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	if err := c.Quit(); err != nil {
		log.Debug("smtp quit", zap.Error(err))
	}
	log.Debug("smtp delivered", zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (s *SMTPSender) dial(ctx context.Context) (net.Conn, error) {
	d := &net.Dialer{Timeout: s.timeout}
	if s.useTLS {
		td := &tls.Dialer{NetDialer: d, Config: &tls.Config{ServerName: host(s.addr)}}
		return td.DialContext(ctx, "tcp", s.addr)
	}
	return d.DialContext(ctx, "tcp", s.addr)
}

func host(addr string) string {
	h, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return h
}
