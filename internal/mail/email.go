package mail

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"rental-service/internal/config"
)

type EmailService struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailService(cfg config.SMTPConfig) *EmailService {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &EmailService{dialer: d, from: from}
}

// Send delivers one HTML mail built from the notification template.
func (e *EmailService) Send(to, name, title, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", title)
	m.SetBody("text/plain", body)
	m.AddAlternative("text/html", NotificationTemplate(name, title, body))

	if err := e.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
