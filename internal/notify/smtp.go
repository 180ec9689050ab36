package notify

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dvloznov/tenbis-barcodes/internal/logger"
	"gopkg.in/gomail.v2"
)

// DefaultSubject is used when the config leaves the subject empty.
const DefaultSubject = "10bis barcodes"

const bodyPreamble = "Please see attached barcodes."

// Sender sends composed messages. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPConfig addresses one outgoing mail.
type SMTPConfig struct {
	From    string
	To      []string
	Subject string
}

// SMTPNotifier mails every barcode image as an attachment.
type SMTPNotifier struct {
	sender Sender
	cfg    SMTPConfig
}

// NewSMTPNotifier creates a notifier that sends through sender. An empty To
// list mails the sender address.
func NewSMTPNotifier(sender Sender, cfg SMTPConfig) *SMTPNotifier {
	if len(cfg.To) == 0 && cfg.From != "" {
		cfg.To = []string{cfg.From}
	}
	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}
	return &SMTPNotifier{sender: sender, cfg: cfg}
}

// NewDialer returns a gomail dialer using STARTTLS on the given port.
func NewDialer(host string, port int, username, password string) *gomail.Dialer {
	return gomail.NewDialer(host, port, username, password)
}

// SplitAddresses parses a comma separated recipient list.
func SplitAddresses(raw string) []string {
	var out []string
	for _, a := range strings.Split(raw, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// Notify implements Notifier.
func (n *SMTPNotifier) Notify(ctx context.Context, msg Message) error {
	log := logger.FromContext(ctx)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("SMTPNotifier.Notify: %w", err)
	}

	m := BuildMessage(n.cfg, msg)
	if err := n.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("SMTPNotifier.Notify: sending mail: %w", err)
	}

	log.Info().
		Strs("to", n.cfg.To).
		Int("attachments", len(msg.Files)).
		Msg("Sent barcodes by email")
	return nil
}

// BuildMessage composes the mail for msg. Attachments are read when the
// message is written out.
func BuildMessage(cfg SMTPConfig, msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", cfg.From)
	m.SetHeader("To", cfg.To...)
	m.SetHeader("Subject", cfg.Subject)

	body := bodyPreamble
	if msg.Summary != "" {
		body += "\n\n" + msg.Summary
	}
	m.SetBody("text/plain", body)

	for _, f := range msg.Files {
		m.Attach(f, gomail.Rename(filepath.Base(f)))
	}
	return m
}
