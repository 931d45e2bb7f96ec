package mailer

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"strings"
	"sync"
	"testing"
	"time"

	config "github.com/NordCoder/tifi/internal/config/api"
	"github.com/NordCoder/tifi/internal/domain/delivery"
	"github.com/NordCoder/tifi/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var ada = &user.User{ID: "u1", Email: "ada@x.com", FirstName: "Ada", LastName: "Lovelace"}

func TestRenderer_AllTemplates(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	cases := map[delivery.Template]map[string]any{
		delivery.TemplateWelcome:              {"user": ada, "cta_link": "https://tifi.tv/about"},
		delivery.TemplateMagicLink:            {"user": ada, "url": "https://tifi.tv/m?token=abc"},
		delivery.TemplateResetPassword:        {"user": ada, "url": "https://tifi.tv/r?token=def"},
		delivery.TemplateResetPasswordSuccess: {"user": ada},
	}
	for tpl, data := range cases {
		t.Run(string(tpl), func(t *testing.T) {
			html, err := r.Render(tpl, data)
			require.NoError(t, err)
			assert.Contains(t, html, "<!DOCTYPE html>")
			assert.Contains(t, html, "Hi Ada Lovelace,")
			if u, ok := data["url"].(string); ok {
				assert.Contains(t, html, `href="`+u+`"`)
			}
		})
	}
}

func TestRenderer_Errors(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	_, err = r.Render("newsletter", map[string]any{"user": ada})
	assert.ErrorIs(t, err, delivery.ErrUnknownTemplate)

	_, err = r.Render(delivery.TemplateMagicLink, map[string]any{"user": ada})
	assert.Error(t, err, "missing url must not render silently")
}

func TestRenderer_EscapesContext(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	html, err := r.Render(delivery.TemplateResetPasswordSuccess,
		map[string]any{"user": &user.User{FirstName: "<script>x</script>"}})
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
}

func TestMessage_Bytes(t *testing.T) {
	m := Message{
		From:    mail.Address{Name: "Tifi.tv", Address: "noreply@tifi.tv"},
		To:      mail.Address{Address: "ada@x.com"},
		Subject: "Réinitialiser",
		HTML:    "<p>" + strings.Repeat("x", 120) + "</p>",
	}
	raw, err := m.Bytes(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	parsed, err := mail.ReadMessage(strings.NewReader(string(raw)))
	require.NoError(t, err)
	assert.Equal(t, `"Tifi.tv" <noreply@tifi.tv>`, parsed.Header.Get("From"))
	assert.Equal(t, "<ada@x.com>", parsed.Header.Get("To"))
	assert.Equal(t, "=?utf-8?q?R=C3=A9initialiser?=", parsed.Header.Get("Subject"))
	assert.Contains(t, parsed.Header.Get("Message-ID"), "@tifi.tv>")
	assert.Equal(t, "quoted-printable", parsed.Header.Get("Content-Transfer-Encoding"))
}

type captureSender struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (c *captureSender) Deliver(_ context.Context, m Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
	return c.err
}

func newTestMailer(t *testing.T, s Sender) *Mailer {
	t.Helper()
	r, err := NewRenderer()
	require.NoError(t, err)
	return NewMailer(r, s, mail.Address{Name: "Tifi.tv", Address: "noreply@tifi.tv"}, zap.NewNop())
}

func TestMailer_Send(t *testing.T) {
	s := &captureSender{}
	m := newTestMailer(t, s)

	err := m.Send(context.Background(), delivery.Request{
		To:       "ada@x.com",
		Template: delivery.TemplateWelcome,
		Subject:  "Welcome to TiFi",
		Context:  map[string]any{"user": ada, "cta_link": "https://tifi.tv/about"},
	})
	require.NoError(t, err)
	require.Len(t, s.msgs, 1)
	assert.Equal(t, "ada@x.com", s.msgs[0].To.Address)
	assert.Equal(t, "Tifi.tv", s.msgs[0].From.Name)
	assert.Equal(t, "welcome-marketing", s.msgs[0].Tag)
}

func TestMailer_Send_InvalidRecipient(t *testing.T) {
	s := &captureSender{}
	m := newTestMailer(t, s)

	for _, to := range []string{"", "not-an-email"} {
		err := m.Send(context.Background(), delivery.Request{To: to, Template: delivery.TemplateResetPasswordSuccess,
			Context: map[string]any{"user": ada}})
		assert.ErrorIs(t, err, ErrInvalidRecipient)
	}
	assert.Empty(t, s.msgs)
}

func TestMailer_Send_SenderError(t *testing.T) {
	boom := errors.New("relay refused")
	m := newTestMailer(t, &captureSender{err: boom})
	err := m.Send(context.Background(), delivery.Request{To: "ada@x.com", Template: delivery.TemplateResetPasswordSuccess,
		Context: map[string]any{"user": ada}})
	assert.ErrorIs(t, err, boom)
}

func TestNew_SelectsTransport(t *testing.T) {
	_, err := New(config.Mail{Transport: "log", From: "noreply@tifi.tv", FromName: "Tifi.tv"}, zap.NewNop())
	require.NoError(t, err)

	_, err = New(config.Mail{Transport: "postmark", From: "noreply@tifi.tv"}, zap.NewNop())
	assert.Error(t, err)

	_, err = New(config.Mail{Transport: "pigeon", From: "noreply@tifi.tv"}, zap.NewNop())
	assert.Error(t, err)

	_, err = New(config.Mail{Transport: "log", From: "nope"}, zap.NewNop())
	assert.Error(t, err)
}

// fakeSMTP accepts one message and returns the DATA payload on the channel.
func fakeSMTP(t *testing.T) (string, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	out := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		rw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))
		reply := func(s string) { _, _ = rw.WriteString(s + "\r\n"); _ = rw.Flush() }

		reply("220 fake ESMTP")
		var data strings.Builder
		inData := false
		for {
			line, err := rw.ReadString('\n')
			if err != nil {
				return
			}
			if inData {
				if line == ".\r\n" {
					inData = false
					out <- data.String()
					reply("250 queued")
					continue
				}
				data.WriteString(line)
				continue
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				reply("250 fake")
			case strings.HasPrefix(cmd, "MAIL"), strings.HasPrefix(cmd, "RCPT"), strings.HasPrefix(cmd, "RSET"):
				reply("250 ok")
			case cmd == "DATA":
				inData = true
				reply("354 go ahead")
			case cmd == "QUIT":
				reply("221 bye")
				return
			default:
				reply("502 unknown")
			}
		}
	}()
	return ln.Addr().String(), out
}

func TestSMTPSender_Deliver(t *testing.T) {
	addr, got := fakeSMTP(t)
	s := NewSMTPSender(config.SMTP{Addr: addr, Timeout: 2 * time.Second}, zap.NewNop())

	err := s.Deliver(context.Background(), Message{
		From:    mail.Address{Name: "Tifi.tv", Address: "noreply@tifi.tv"},
		To:      mail.Address{Address: "ada@x.com"},
		Subject: "Reset Password",
		HTML:    "<p>hello</p>",
	})
	require.NoError(t, err)

	select {
	case data := <-got:
		assert.Contains(t, data, "Subject: Reset Password")
		assert.Contains(t, data, "<p>hello</p>")
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestSMTPSender_DialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	s := NewSMTPSender(config.SMTP{Addr: addr, Timeout: 500 * time.Millisecond}, zap.NewNop())
	err = s.Deliver(context.Background(), Message{To: mail.Address{Address: "ada@x.com"}})
	assert.Error(t, err)
}

func TestPostmarkSender_Deliver(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/email", r.URL.Path)
		assert.Equal(t, "server-token", r.Header.Get("X-Postmark-Server-Token"))
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"To":"ada@x.com","SubmittedAt":"2024-05-01T12:00:00Z","MessageID":"m1","ErrorCode":0,"Message":"OK"}`))
	}))
	defer srv.Close()

	s, err := NewPostmarkSender(config.Postmark{ServerToken: "server-token", Stream: "outbound"})
	require.NoError(t, err)
	s.client.BaseURL = srv.URL

	err = s.Deliver(context.Background(), Message{
		From:    mail.Address{Name: "Tifi.tv", Address: "noreply@tifi.tv"},
		To:      mail.Address{Address: "ada@x.com"},
		Subject: "Welcome to TiFi",
		HTML:    "<p>hi</p>",
		Tag:     "welcome-marketing",
	})
	require.NoError(t, err)
	assert.Equal(t, "Welcome to TiFi", body["Subject"])
	assert.Equal(t, "welcome-marketing", body["Tag"])
	assert.Equal(t, "<p>hi</p>", body["HtmlBody"])
}

func TestPostmarkSender_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"ErrorCode":300,"Message":"Invalid 'To' address"}`))
	}))
	defer srv.Close()

	s, err := NewPostmarkSender(config.Postmark{ServerToken: "server-token"})
	require.NoError(t, err)
	s.client.BaseURL = srv.URL

	err = s.Deliver(context.Background(), Message{To: mail.Address{Address: "bad"}})
	assert.Error(t, err)
}
