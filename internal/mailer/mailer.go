// Package mailer delivers password-reset codes.
package mailer

import (
	"context"
	"fmt"

	"art_market/internal/domain"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Sender delivers a one-time code to a destination address. Failures are
// reported to the caller and never retried here.
type Sender interface {
	Send(ctx context.Context, to, code string) error
}

// SMTPSender sends codes by email.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender creates an SMTP sender.
func NewSMTPSender(host string, port int, user, pass, from string) *SMTPSender {
	return &SMTPSender{dialer: gomail.NewDialer(host, port, user, pass), from: from}
}

func (s *SMTPSender) Send(ctx context.Context, to, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(buildMessage(s.from, to, code)); err != nil {
		return fmt.Errorf("sending code to %s: %w", to, err)
	}
	return nil
}

func buildMessage(from, to, code string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Your password reset code")
	m.SetBody("text/plain", fmt.Sprintf(
		"Your password reset code is %s.\nIt expires in %d minutes. If you did not ask for it, ignore this email.\n",
		code, int(domain.OTPTTL.Minutes())))
	return m
}

// LogSender writes codes to the log instead of sending them. Development only.
type LogSender struct {
	Logger logrus.FieldLogger
}

func (s LogSender) Send(_ context.Context, to, code string) error {
	logger := s.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger.WithFields(logrus.Fields{
		"to":   to,
		"code": code,
	}).Warn("SMTP not configured, password reset code logged")
	return nil
}
