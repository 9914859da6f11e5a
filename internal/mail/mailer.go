// Package mail implements the transactional email dispatcher over SMTP.
package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/mail"
	gosmtp "net/smtp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/FilipeAphrody/cartify/internal/config"
)

// SMTPMailer sends mail through a configured SMTP relay. It implements
// domain.Mailer. Dispatch is fire-and-await: a slow relay directly slows
// the request that triggered the mail, bounded by the caller's context.
type SMTPMailer struct {
	cfg    config.SMTPConfig
	logger *zap.Logger
}

// NewSMTPMailer creates the dispatcher.
func NewSMTPMailer(cfg config.SMTPConfig, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, logger: logger}
}

// SendVerification mails the account verification link.
func (m *SMTPMailer) SendVerification(ctx context.Context, to, name, link string) error {
	return m.send(ctx, to, "Verify your email for account creation", verificationBody(name, link))
}

// SendLoginOTP mails the second-factor login code.
func (m *SMTPMailer) SendLoginOTP(ctx context.Context, to, code string) error {
	return m.send(ctx, to, "Your 2FA Login OTP", otpBody(code))
}

// SendPasswordReset mails the password reset link.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, link string) error {
	return m.send(ctx, to, "Reset your password", resetBody(link))
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	from := mail.Address{Name: "Cartify", Address: m.cfg.Sender}

	// Build an RFC 2822 message with an HTML body.
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from.String()))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z)))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	if err := m.transmit(ctx, to, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}

	m.logger.Debug("mail dispatched", zap.String("to", to), zap.String("subject", subject))
	return nil
}

func (m *SMTPMailer) auth() gosmtp.Auth {
	if m.cfg.Username == "" {
		return nil
	}
	return gosmtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
}

// dial honors the caller's context. With "tls" encryption the socket itself
// is TLS (typically port 465); otherwise the connection starts plain and may
// be upgraded via STARTTLS inside the transaction.
func (m *SMTPMailer) dial(ctx context.Context) (net.Conn, error) {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	dialer := &net.Dialer{Timeout: 30 * time.Second}

	if m.cfg.Encryption == "tls" {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: m.cfg.Host}}
		return tlsDialer.DialContext(ctx, "tcp", addr)
	}
	return dialer.DialContext(ctx, "tcp", addr)
}

// transmit runs one SMTP transaction. The context's deadline, when present,
// bounds the whole exchange through the connection deadline; net/smtp alone
// cannot be cancelled mid-command.
func (m *SMTPMailer) transmit(ctx context.Context, to string, msg []byte) error {
	conn, err := m.dial(ctx)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := gosmtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if m.cfg.Encryption == "starttls" {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
				return err
			}
		}
	}

	if auth := m.auth(); auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(m.cfg.Sender); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
