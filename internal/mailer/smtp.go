package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// SMTPMailer sends plain-text export mails through a single SMTP relay.
type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
}

// NewSMTPMailer builds a mailer for the relay at addr (host:port). Username
// empty disables authentication.
func NewSMTPMailer(addr, from, username, password string) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		host := addr
		if i := strings.IndexByte(addr, ':'); i >= 0 {
			host = addr[:i]
		}
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPMailer{addr: addr, from: from, auth: auth}
}

func (m *SMTPMailer) SendExportEmail(ctx context.Context, to, itemName, downloadLink string, expiresInDays int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	subject := fmt.Sprintf("Your export of %q is ready", itemName)
	body := fmt.Sprintf(
		"The action export you requested for %q is ready.\r\n\r\n"+
			"Download it here: %s\r\n\r\n"+
			"The link expires in %d days.\r\n",
		itemName, downloadLink, expiresInDays)

	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}, "\r\n")

	return smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg))
}

// LogMailer logs mails instead of sending them. Used when no SMTP relay is
// configured.
type LogMailer struct {
	log *slog.Logger
}

func NewLogMailer(log *slog.Logger) *LogMailer {
	if log == nil {
		log = slog.Default()
	}
	return &LogMailer{log: log}
}

func (m *LogMailer) SendExportEmail(_ context.Context, to, itemName, downloadLink string, _ int) error {
	m.log.Info("mailer.export_link",
		slog.String("to", to),
		slog.String("item", itemName),
		slog.String("link", downloadLink))
	return nil
}
