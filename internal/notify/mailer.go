// Package notify delivers applicant emails recorded in the notification outbox.
package notify

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/newdaybreak/careers/config"
	"github.com/newdaybreak/careers/types"
	"github.com/sirupsen/logrus"
)

// Mailer sends a single email.
type Mailer interface {
	Send(ctx context.Context, email types.Email) error
}

// NewMailer returns the transport selected by MAIL_TRANSPORT.
func NewMailer(cfg config.MailConfig, log logrus.FieldLogger) (Mailer, error) {
	switch cfg.Transport {
	case "", "log":
		return NewLogMailer(log), nil
	case "smtp":
		return NewSMTPMailer(cfg)
	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.Transport)
	}
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	log logrus.FieldLogger
}

func NewLogMailer(log logrus.FieldLogger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(ctx context.Context, email types.Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.log.WithFields(logrus.Fields{
		"to":      email.To,
		"subject": email.Subject,
	}).Info("email sent")
	m.log.WithField("to", email.To).Debug(email.Body)
	return nil
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends plain-text messages through an SMTP relay.
type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
	send sendFunc
	now  func() time.Time
}

func NewSMTPMailer(cfg config.MailConfig) (*SMTPMailer, error) {
	host := strings.TrimSpace(cfg.SMTP.Host)
	if host == "" {
		return nil, errors.New("smtp host is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("mail from address is required")
	}

	var auth smtp.Auth
	if cfg.SMTP.Username != "" {
		auth = smtp.PlainAuth("", cfg.SMTP.Username, cfg.SMTP.Password, host)
	}

	return &SMTPMailer{
		addr: net.JoinHostPort(host, strconv.Itoa(cfg.SMTP.Port)),
		from: cfg.From,
		auth: auth,
		send: smtp.SendMail,
		now:  time.Now,
	}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, email types.Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	to := sanitizeHeader(email.To)
	if to == "" {
		return errors.New("email recipient is required")
	}
	if err := m.send(m.addr, m.auth, m.from, []string{to}, m.message(to, email)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (m *SMTPMailer) message(to string, email types.Email) []byte {
	var b strings.Builder
	b.WriteString("From: " + sanitizeHeader(m.from) + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", sanitizeHeader(email.Subject)) + "\r\n")
	b.WriteString("Date: " + m.now().UTC().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(email.Body, "\r\n", "\n"), "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}

func sanitizeHeader(value string) string {
	return strings.TrimSpace(strings.NewReplacer("\r", "", "\n", "").Replace(value))
}
