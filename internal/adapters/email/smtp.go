package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"html"
	"log/slog"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"
)

// SMTPSender delivers mail over SMTP with STARTTLS and PLAIN auth.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSMTPSender creates an SMTPSender.
// PRE: host/port point at an SMTP submission endpoint; username doubles as the From address when from is empty
// POST: Returns a ready-to-use sender
func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	if from == "" {
		from = username
	}
	return &SMTPSender{host: host, port: port, username: username, password: password, from: from}
}

// Send delivers a single email, reporting the outcome as an explicit result.
// PRE: req has at least one recipient
// POST: Result carries 200 on success; 401/503/500/520 on failure, never an error
func (s *SMTPSender) Send(ctx context.Context, req SendRequest) SendResult {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	dialer := &net.Dialer{Timeout: 30 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		slog.Error("smtp_connect_failed", "addr", addr, "error", err)
		return SendResult{StatusCode: StatusConnectFailed, Message: fmt.Sprintf("SMTP connection failed: %v", err)}
	}

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return SendResult{StatusCode: StatusConnectFailed, Message: fmt.Sprintf("SMTP connection failed: %v", err)}
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
			return failure(err, "SMTP STARTTLS failed")
		}
	}

	if s.username != "" {
		auth := smtp.PlainAuth("", s.username, s.password, s.host)
		if err := client.Auth(auth); err != nil {
			slog.Error("smtp_auth_failed", "addr", addr, "error", err)
			return SendResult{StatusCode: StatusAuthFailed, Message: fmt.Sprintf("SMTP auth failed: %v", err)}
		}
	}

	if err := client.Mail(s.from); err != nil {
		return failure(err, "SMTP MAIL FROM rejected")
	}
	for _, rcpt := range req.To {
		if err := client.Rcpt(rcpt); err != nil {
			return failure(err, "SMTP RCPT TO rejected")
		}
	}

	w, err := client.Data()
	if err != nil {
		return failure(err, "SMTP DATA rejected")
	}
	if _, err := w.Write(buildMessage(s.from, req)); err != nil {
		w.Close()
		return failure(err, "SMTP message write failed")
	}
	if err := w.Close(); err != nil {
		return failure(err, "SMTP message rejected")
	}

	if err := client.Quit(); err != nil {
		// Delivery was accepted at DATA; a failed QUIT is not a send failure.
		slog.Warn("smtp_quit_failed", "error", err)
	}

	slog.Info("smtp_sent", "to", req.To, "subject", req.Subject)
	return SendResult{OK: true, StatusCode: StatusOK, Message: "Email sent successfully"}
}

// failure classifies a post-connection SMTP error into a transport result.
// Protocol-level rejections map to 500, anything else to 520.
func failure(err error, msg string) SendResult {
	code := StatusUnknownError
	if _, ok := err.(*textproto.Error); ok {
		code = StatusTransportError
	}
	slog.Error("smtp_send_failed", "status", code, "error", err)
	return SendResult{StatusCode: code, Message: fmt.Sprintf("%s: %v", msg, err)}
}

// buildMessage renders the RFC 5322 message. The body is always delivered as
// HTML; plain text is wrapped in a <pre> block so whitespace survives.
func buildMessage(from string, req SendRequest) []byte {
	body := req.Body
	if !req.HTML {
		body = "<html><body><pre style='white-space: pre-wrap'>" + html.EscapeString(req.Body) + "</pre></body></html>"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(req.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", req.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
