package email

import (
	"fmt"
	"log"
	"net/smtp"
	"os"
)

// EmailService delivers operational alert emails over SMTP
type EmailService struct {
	smtpHost     string
	smtpPort     string
	smtpUsername string
	smtpPassword string
	fromEmail    string
	alertsEmail  string
}

// NewEmailService creates a new email service from environment configuration
func NewEmailService() *EmailService {
	return &EmailService{
		smtpHost:     os.Getenv("SMTP_HOST"),
		smtpPort:     os.Getenv("SMTP_PORT"),
		smtpUsername: os.Getenv("SMTP_USERNAME"),
		smtpPassword: os.Getenv("SMTP_PASSWORD"),
		fromEmail:    os.Getenv("FROM_EMAIL"),
		alertsEmail:  os.Getenv("ALERTS_EMAIL"),
	}
}

// Configured reports whether SMTP delivery is set up
func (s *EmailService) Configured() bool {
	return s.smtpHost != "" && s.alertsEmail != ""
}

// SendAlert sends an operational alert to the configured alerts address.
// When SMTP is not configured the alert is logged instead of dropped.
func (s *EmailService) SendAlert(subject, body string) error {
	if !s.Configured() {
		log.Printf("alert (SMTP not configured): %s — %s", subject, body)
		return nil
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		s.fromEmail, s.alertsEmail, subject, body)

	addr := fmt.Sprintf("%s:%s", s.smtpHost, s.smtpPort)
	auth := smtp.PlainAuth("", s.smtpUsername, s.smtpPassword, s.smtpHost)

	if err := smtp.SendMail(addr, auth, s.fromEmail, []string{s.alertsEmail}, []byte(msg)); err != nil {
		return fmt.Errorf("error sending alert email: %w", err)
	}
	return nil
}
