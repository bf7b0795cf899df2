package notification

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
)

// EmailNotifier sends alert text over SMTP with STARTTLS.
type EmailNotifier struct {
	host     string
	port     string
	username string
	password string
	log      *slog.Logger
}

// NewEmailNotifier creates an SMTP-backed email notifier.
func NewEmailNotifier(host, port, username, password string, log *slog.Logger) *EmailNotifier {
	return &EmailNotifier{host: host, port: port, username: username, password: password, log: log}
}

// SendTo delivers message as the body of a plain-text email to
// toAddress. Context cancellation is not honored mid-dial; callers
// should bound overall send time via their own retry/timeout policy.
func (e *EmailNotifier) SendTo(ctx context.Context, toAddress, message string) error {
	if toAddress == "" || e.username == "" || e.password == "" {
		return nil
	}

	addr := e.host + ":" + e.port
	auth := smtp.PlainAuth("", e.username, e.password, e.host)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: StormAlert Notification\r\n\r\n%s\r\n",
		e.username, toAddress, message)

	if err := smtp.SendMail(addr, auth, e.username, []string{toAddress}, []byte(msg)); err != nil {
		return fmt.Errorf("email: send: %w", err)
	}

	e.log.Info("email alert sent", "to", toAddress)
	return nil
}
