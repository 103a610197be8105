package accounts

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"github.com/google/uuid"
)

// EmailSender allows applications to provide their own email sending implementation
type EmailSender interface {
	SendConfirmationEmail(to string, confirmationLink string) error
	SendPasswordResetEmail(to string, resetLink string) error
}

// ConsoleEmailSender is a development implementation that logs emails to console
type ConsoleEmailSender struct{}

func (c *ConsoleEmailSender) SendConfirmationEmail(to string, confirmationLink string) error {
	log.Printf("\n=== EMAIL: Confirm email address ===")
	log.Printf("To: %s", to)
	log.Printf("Subject: Please confirm email address")
	log.Printf("Body: Please confirm your email address by clicking: %s", confirmationLink)
	log.Printf("====================================\n")
	return nil
}

func (c *ConsoleEmailSender) SendPasswordResetEmail(to string, resetLink string) error {
	log.Printf("\n=== EMAIL: Password Reset ===")
	log.Printf("To: %s", to)
	log.Printf("Subject: Reset your password")
	log.Printf("Body: Reset your password by clicking: %s", resetLink)
	log.Printf("==============================\n")
	return nil
}

// SMTPEmailSender delivers transactional mail over a plain SMTP relay.
// Fire-once: a delivery failure propagates to the caller, there is no retry.
type SMTPEmailSender struct {
	Addr     string // host:port of the relay
	From     string // envelope/From address
	FromName string // display name, optional
	Username string // SASL auth, optional
	Password string
}

func (s *SMTPEmailSender) SendConfirmationEmail(to string, confirmationLink string) error {
	subject := "Please confirm email address"
	body := fmt.Sprintf(
		"<p>Please confirm your email address by following this link:</p>\n"+
			"<p><a href=\"%s\">%s</a></p>\n"+
			"<p>The link is valid for 24 hours. If you did not sign up, ignore this message.</p>",
		confirmationLink, confirmationLink)
	return s.send(to, subject, body)
}

func (s *SMTPEmailSender) SendPasswordResetEmail(to string, resetLink string) error {
	subject := "Reset your password"
	body := fmt.Sprintf(
		"<p>To set a new password, follow this link:</p>\n"+
			"<p><a href=\"%s\">%s</a></p>\n"+
			"<p>If you did not request a password reset, ignore this message.</p>",
		resetLink, resetLink)
	return s.send(to, subject, body)
}

func (s *SMTPEmailSender) send(to, subject, body string) error {
	from := s.From
	fromHeader := from
	if s.FromName != "" {
		fromHeader = fmt.Sprintf("%s <%s>", s.FromName, from)
	}

	domain := "localhost"
	if at := strings.LastIndex(from, "@"); at >= 0 {
		domain = from[at+1:]
	}
	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", fromHeader)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "Message-ID: %s\r\n", messageID)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	msg.WriteString("\r\n")

	var auth smtp.Auth
	if s.Username != "" {
		host := s.Addr
		if idx := strings.Index(host, ":"); idx >= 0 {
			host = host[:idx]
		}
		auth = smtp.PlainAuth("", s.Username, s.Password, host)
	}

	if err := smtp.SendMail(s.Addr, auth, from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("error sending mail to %s: %w", to, err)
	}
	return nil
}
