package notify

import (
	"context"
	"fmt"

	"github.com/wilheimcosta/adwrng2/internal/models"

	"gopkg.in/gomail.v2"
)

// mailSender is satisfied by *gomail.Dialer.
type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailNotifier struct {
	sender    mailSender
	from      string
	receivers []string
}

func NewEmailNotifier(host string, port int, from, password string, receivers []string) *EmailNotifier {
	return &EmailNotifier{
		sender:    gomail.NewDialer(host, port, from, password),
		from:      from,
		receivers: receivers,
	}
}

func (n *EmailNotifier) Name() string { return "email" }

// Notify sends one plain-text message. gomail has no context support, so a
// slow SMTP server is bounded by its own dial timeout only.
func (n *EmailNotifier) Notify(ctx context.Context, event *models.AlertEvent) error {
	if len(n.receivers) == 0 {
		return fmt.Errorf("no e-mail receivers configured")
	}

	m := n.message(event)
	if err := n.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp: %w", err)
	}
	return nil
}

func (n *EmailNotifier) message(event *models.AlertEvent) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", n.receivers...)
	m.SetHeader("Subject", Title(event))
	m.SetBody("text/plain", Summary(event)+"\nDetected: "+event.DetectedAt.UTC().Format("2006-01-02 15:04:05Z"))
	return m
}
