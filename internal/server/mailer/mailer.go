// Package mailer sends transactional email.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
)

// Sender delivers one HTML message.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// smtpSendMail is a seam for testing smtp.SendMail.
var smtpSendMail = smtp.SendMail

type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	message := []byte(fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-version: 1.0;\r\n"+
		"Content-Type: text/html; charset=\"UTF-8\";\r\n\r\n"+
		"%s\r\n", s.cfg.From, to, subject, htmlBody))

	// Unauthenticated relays (local catchers) get no AUTH exchange.
	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	}

	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)
	if err := smtpSendMail(addr, auth, s.cfg.From, []string{to}, message); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

const otpSubject = "Your TUF Connect OTP Code"

var otpTemplate = template.Must(template.New("otp").Parse(`<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
  <h2 style="color: #4A90E2;">TUF Connect</h2>
  <p>Thank you for signing up! Please use the OTP code below to verify your email address:</p>
  <p style="font-size: 24px; font-weight: bold; background-color: #f0f0f0; padding: 10px; display: inline-block; border-radius: 5px;">{{.Code}}</p>
  <p>This code is valid for the next {{.Minutes}} minutes.</p>
  <p>Best regards,<br>The TUF Connect Team</p>
  <hr style="margin-top: 30px;">
  <small style="color: #888;">Please do not reply to this email.</small>
</div>`))

// OTPMessage renders the verification email for code, valid for minutes.
func OTPMessage(code string, minutes int) (subject, body string, err error) {
	var buf bytes.Buffer
	if err := otpTemplate.Execute(&buf, struct {
		Code    string
		Minutes int
	}{code, minutes}); err != nil {
		return "", "", fmt.Errorf("render otp email: %w", err)
	}
	return otpSubject, buf.String(), nil
}
