// Package notify delivers membership notifications by email.
package notify

import (
	"context"
	"fmt"
	"log"
	"mime"
	"net/smtp"
	"strings"
	"sync"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.Port != ""
}

// SMTPMailer sends plain text mail through a relay.
type SMTPMailer struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	from := m.cfg.From
	if from == "" {
		from = m.cfg.Username
	}

	addr := m.cfg.Host + ":" + m.cfg.Port
	if err := m.send(addr, auth, from, []string{msg.To}, compose(from, msg)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// headerSafe drops line breaks so a value cannot start a new header.
var headerSafe = strings.NewReplacer("\r", "", "\n", "")

func compose(from string, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", headerSafe.Replace(from))
	fmt.Fprintf(&b, "To: %s\r\n", headerSafe.Replace(msg.To))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}

// LogMailer writes messages to the log. It is used when no relay is configured and
// keeps the sent messages for inspection.
type LogMailer struct {
	mu   sync.Mutex
	sent []Message
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()

	log.Printf("mail to %s: %s", msg.To, msg.Subject)
	return nil
}

func (m *LogMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}

// New picks the SMTP mailer when a relay is configured and the log mailer otherwise.
func New(cfg SMTPConfig) Mailer {
	if cfg.Configured() {
		return NewSMTPMailer(cfg)
	}
	return &LogMailer{}
}

// Deliver sends every message and logs failures. Delivery never fails the caller.
func Deliver(ctx context.Context, m Mailer, msgs ...Message) {
	for _, msg := range msgs {
		if err := m.Send(ctx, msg); err != nil {
			log.Printf("failed to notify %s: %v", msg.To, err)
		}
	}
}
