package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ================================================
// SMTP SENDER IMPLEMENTATION
// ================================================
// Grounded on smtp_service.go's buildMessage/net-smtp shape, trimmed to the
// single SendEmail-style request this core actually needs.

type smtpSender struct {
	addr     string
	host     string
	from     string
	username string
	password string
}

func NewSMTPSender(host, port, from string) Sender {
	return &smtpSender{addr: host + ":" + port, host: host, from: from}
}

// NewAuthenticatedSMTPSender adds PLAIN auth credentials for SMTP relays
// that require them (most managed mail providers do).
func NewAuthenticatedSMTPSender(host, port, from, username, password string) Sender {
	return &smtpSender{addr: host + ":" + port, host: host, from: from, username: username, password: password}
}

func (s *smtpSender) Ready() bool {
	return s.addr != ":" && s.from != ""
}

func (s *smtpSender) Send(ctx context.Context, msg Message) (Result, error) {
	if !s.Ready() {
		return Result{Success: false, Error: "not_configured"}, nil
	}
	if len(msg.To) == 0 {
		return Result{Success: false, Error: "no recipients"}, fmt.Errorf("send email: no recipients specified")
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		deadline = time.Now().Add(10 * time.Second)
	}
	_ = deadline

	raw := s.buildMessage(msg)
	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}
	if err := smtp.SendMail(s.addr, auth, s.from, msg.To, []byte(raw)); err != nil {
		log.Error().Err(err).Strs("to", msg.To).Str("subject", msg.Subject).Msg("email: send failed")
		return Result{Success: false, Error: err.Error()}, nil
	}

	id := uuid.New().String()
	log.Info().Strs("to", msg.To).Str("subject", msg.Subject).Str("email_id", id).Msg("email: sent")
	return Result{Success: true, EmailID: id}, nil
}

func (s *smtpSender) buildMessage(msg Message) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("From: %s\r\n", s.from))
	b.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(msg.To, ", ")))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	if msg.HTML != "" {
		b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		b.WriteString(msg.HTML)
	} else {
		b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		b.WriteString(msg.Text)
	}
	return b.String()
}
