// Package mail sends outbound email over SMTP.
package mail

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"learnhub/m/internal/apperror"
	"learnhub/m/internal/config"
	"learnhub/m/internal/logging"
)

type Attachment struct {
	Filename    string
	Path        string // file on disk; used when Content is empty
	Content     []byte
	ContentType string
}

type Message struct {
	From        string
	To          []string
	Cc          []string
	Bcc         []string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

type SendResult struct {
	MessageID string   `json:"messageId"`
	Accepted  []string `json:"accepted"`
	Rejected  []string `json:"rejected"`
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) (SendResult, error)
}

// dialer is the part of *gomail.Dialer the mailer uses.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPMailer struct {
	dialer dialer
	from   string
	log    logging.Logger
}

// NewSMTPMailer builds a mailer from the SMTP settings. Missing credentials
// only produce a warning; sends will then fail at the server.
func NewSMTPMailer(cfg config.SMTPConfig, log logging.Logger) *SMTPMailer {
	log = log.With("component", "mail")
	if cfg.User == "" || cfg.Password == "" {
		log.Warn(context.Background(), "SMTP_USER/SMTP_PASS not set, emails will fail")
	}
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	d.SSL = cfg.Secure
	return &SMTPMailer{dialer: d, from: cfg.DefaultFrom(), log: log}
}

func (s *SMTPMailer) Send(ctx context.Context, msg Message) (SendResult, error) {
	if err := validate(msg); err != nil {
		return SendResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return SendResult{}, err
	}

	from := msg.From
	if from == "" {
		from = s.from
	}
	id := messageID(from)
	m := build(msg, from, id)

	if err := s.dialer.DialAndSend(m); err != nil {
		return SendResult{}, fmt.Errorf("send mail: %w", err)
	}

	accepted := make([]string, 0, len(msg.To)+len(msg.Cc)+len(msg.Bcc))
	accepted = append(accepted, msg.To...)
	accepted = append(accepted, msg.Cc...)
	accepted = append(accepted, msg.Bcc...)
	s.log.Info(ctx, "mail sent", "message_id", id, "recipients", len(accepted))
	return SendResult{MessageID: id, Accepted: accepted, Rejected: []string{}}, nil
}

func validate(msg Message) error {
	switch {
	case len(msg.To) == 0:
		return apperror.Validation("at least one recipient is required")
	case strings.TrimSpace(msg.Subject) == "":
		return apperror.Validation("subject is required")
	case msg.Text == "" && msg.HTML == "":
		return apperror.Validation("text or html body is required")
	}
	return nil
}

func build(msg Message, from, id string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", msg.To...)
	if len(msg.Cc) > 0 {
		m.SetHeader("Cc", msg.Cc...)
	}
	if len(msg.Bcc) > 0 {
		m.SetHeader("Bcc", msg.Bcc...)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", id)

	switch {
	case msg.Text != "" && msg.HTML != "":
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	case msg.HTML != "":
		m.SetBody("text/html", msg.HTML)
	default:
		m.SetBody("text/plain", msg.Text)
	}

	for _, a := range msg.Attachments {
		attach(m, a)
	}
	return m
}

func attach(m *gomail.Message, a Attachment) {
	var settings []gomail.FileSetting
	if a.ContentType != "" {
		settings = append(settings, gomail.SetHeader(map[string][]string{"Content-Type": {a.ContentType}}))
	}
	if len(a.Content) == 0 {
		if a.Filename != "" {
			settings = append(settings, gomail.Rename(a.Filename))
		}
		m.Attach(a.Path, settings...)
		return
	}
	content := a.Content
	settings = append(settings, gomail.SetCopyFunc(func(w io.Writer) error {
		_, err := w.Write(content)
		return err
	}))
	m.Attach(a.Filename, settings...)
}

// messageID returns an RFC 5322 message id on the sender's domain.
func messageID(from string) string {
	domain := "localhost"
	if at := strings.LastIndex(from, "@"); at >= 0 {
		if d := strings.TrimRight(from[at+1:], "> "); d != "" {
			domain = d
		}
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}
