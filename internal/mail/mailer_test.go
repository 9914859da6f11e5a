package mail

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FilipeAphrody/cartify/internal/config"
)

// smtpCapture records one SMTP transaction from the scripted server.
type smtpCapture struct {
	mu   sync.Mutex
	from string
	to   []string
	data string
	done chan struct{}
}

func (c *smtpCapture) wait(t *testing.T) {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(5 * time.Second):
		t.Fatal("smtp transaction did not complete")
	}
}

// startSMTPServer runs a minimal single-connection SMTP server and returns
// its config plus the transaction capture.
func startSMTPServer(t *testing.T) (config.SMTPConfig, *smtpCapture) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	capture := &smtpCapture{done: make(chan struct{})}
	go func() {
		defer close(capture.done)

		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		reader := bufio.NewReader(conn)
		write := func(s string) { fmt.Fprintf(conn, "%s\r\n", s) }

		write("220 cartify-test ESMTP")
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				write("250-cartify-test")
				write("250 OK")
			case strings.HasPrefix(cmd, "MAIL FROM"):
				capture.mu.Lock()
				capture.from = strings.TrimSpace(line)
				capture.mu.Unlock()
				write("250 OK")
			case strings.HasPrefix(cmd, "RCPT TO"):
				capture.mu.Lock()
				capture.to = append(capture.to, strings.TrimSpace(line))
				capture.mu.Unlock()
				write("250 OK")
			case cmd == "DATA":
				write("354 End data with <CR><LF>.<CR><LF>")
				var data strings.Builder
				for {
					dataLine, err := reader.ReadString('\n')
					if err != nil {
						return
					}
					if strings.TrimRight(dataLine, "\r\n") == "." {
						break
					}
					data.WriteString(dataLine)
				}
				capture.mu.Lock()
				capture.data = data.String()
				capture.mu.Unlock()
				write("250 OK")
			case cmd == "QUIT":
				write("221 Bye")
				return
			default:
				write("250 OK")
			}
		}
	}()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	return config.SMTPConfig{
		Host:       host,
		Port:       port,
		Sender:     "no-reply@cartify.local",
		Encryption: "none",
	}, capture
}

func TestSendVerificationDeliversMessage(t *testing.T) {
	cfg, capture := startSMTPServer(t)
	mailer := NewSMTPMailer(cfg, zap.NewNop())

	err := mailer.SendVerification(context.Background(), "alice@x.com", "Alice",
		"http://localhost:3000/verify?token=abc")
	require.NoError(t, err)
	capture.wait(t)

	capture.mu.Lock()
	defer capture.mu.Unlock()
	assert.Contains(t, capture.from, "no-reply@cartify.local")
	require.Len(t, capture.to, 1)
	assert.Contains(t, capture.to[0], "alice@x.com")
	assert.Contains(t, capture.data, "Subject: Verify your email for account creation")
	assert.Contains(t, capture.data, "http://localhost:3000/verify?token=abc")
	assert.Contains(t, capture.data, "Alice")
}

func TestSendLoginOTPCarriesCode(t *testing.T) {
	cfg, capture := startSMTPServer(t)
	mailer := NewSMTPMailer(cfg, zap.NewNop())

	require.NoError(t, mailer.SendLoginOTP(context.Background(), "alice@x.com", "123456"))
	capture.wait(t)

	capture.mu.Lock()
	defer capture.mu.Unlock()
	assert.Contains(t, capture.data, "123456")
}

func TestSendHonorsCancelledContext(t *testing.T) {
	// A listener that never answers; the dial must fail on the context, not
	// hang until a transport timeout.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	mailer := NewSMTPMailer(config.SMTPConfig{
		Host:       host,
		Port:       port,
		Sender:     "no-reply@cartify.local",
		Encryption: "none",
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = mailer.SendLoginOTP(ctx, "alice@x.com", "123456")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
