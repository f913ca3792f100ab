package mailer

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

type SMTPMailer struct {
	Host   string
	Port   int
	From   string
	User   string
	Pass   string
	UseTLS bool
}

func NewSMTPMailer(host string, port int, from, user, pass string, useTLS bool) *SMTPMailer {
	return &SMTPMailer{
		Host:   strings.TrimSpace(host),
		Port:   port,
		From:   strings.TrimSpace(from),
		User:   strings.TrimSpace(user),
		Pass:   strings.TrimSpace(pass),
		UseTLS: useTLS,
	}
}

func (s *SMTPMailer) SendPassCredentials(toEmail, toName, passCode, entryOTP, exitOTP, visitingDate, visitingTime string) error {
	subject := fmt.Sprintf("Your gate pass %s", passCode)
	text := fmt.Sprintf(
		"Your visit on %s at %s is confirmed.\n\nPass Code: %s\nEntry Code: %s\nExit Code: %s",
		visitingDate, visitingTime, passCode, entryOTP, exitOTP)
	html := fmt.Sprintf(`
		<h2>Your visit is confirmed</h2>
		<p>Hi %s,</p>
		<p>Scheduled for <strong>%s</strong> at <strong>%s</strong>.</p>
		<p>Pass Code: <strong>%s</strong></p>
		<p>Entry Code: <strong style="font-size: 24px; color: #4CAF50;">%s</strong></p>
		<p>Exit Code: <strong style="font-size: 24px; color: #FF9800;">%s</strong></p>
	`, toName, visitingDate, visitingTime, passCode, entryOTP, exitOTP)

	return s.sendEmail(toEmail, toName, subject, text, html)
}

func (s *SMTPMailer) SendPassRejected(toEmail, toName, passCode, reason string) error {
	subject := fmt.Sprintf("Gate pass request %s declined", passCode)
	text := fmt.Sprintf("Your gate pass request was declined.\n\nReason: %s", reason)
	html := fmt.Sprintf(`
		<h2>Your gate pass request was declined</h2>
		<p>Pass: <strong>%s</strong></p>
		<p>Reason: %s</p>
	`, passCode, reason)

	return s.sendEmail(toEmail, toName, subject, text, html)
}

func (s *SMTPMailer) SendHostArrival(hostEmail, visitorName, passCode string, entryTime time.Time) error {
	subject := fmt.Sprintf("%s has arrived at the gate", visitorName)
	text := fmt.Sprintf("%s (pass %s) entered at %s.", visitorName, passCode, entryTime.Format(time.RFC1123))
	html := fmt.Sprintf(`
		<h2>Your visitor has arrived</h2>
		<p><strong>%s</strong> (pass %s) entered at %s.</p>
	`, visitorName, passCode, entryTime.Format(time.RFC1123))

	return s.sendEmail(hostEmail, "", subject, text, html)
}

func (s *SMTPMailer) sendEmail(toEmail, toName, subject, text, html string) error {
	toEmail = strings.TrimSpace(toEmail)
	if toEmail == "" {
		return fmt.Errorf("empty recipient email")
	}

	var buf bytes.Buffer
	boundary := "mixed-boundary"

	fmt.Fprintf(&buf, "From: %s\r\n", s.From)
	fmt.Fprintf(&buf, "To: %s\r\n", toEmail)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", boundary)

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	fmt.Fprintf(&buf, "Content-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&buf, "%s\r\n\r\n", text)

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	fmt.Fprintf(&buf, "Content-Type: text/html; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&buf, "%s\r\n\r\n", html)

	fmt.Fprintf(&buf, "--%s--\r\n", boundary)

	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)

	// Mailpit or development SMTP (no auth, no TLS)
	if !s.UseTLS && s.User == "" {
		return smtp.SendMail(addr, nil, s.From, []string{toEmail}, buf.Bytes())
	}

	var auth smtp.Auth
	if s.User != "" {
		auth = smtp.PlainAuth("", s.User, s.Pass, s.Host)
	}

	// Try plain SMTP first (with STARTTLS if supported)
	if err := smtp.SendMail(addr, auth, s.From, []string{toEmail}, buf.Bytes()); err == nil {
		return nil
	}

	// Fallback to implicit TLS (port 465)
	if s.UseTLS {
		tlsCfg := &tls.Config{ServerName: s.Host, InsecureSkipVerify: false}
		conn, err := tls.Dial("tcp", addr, tlsCfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		c, err := smtp.NewClient(conn, s.Host)
		if err != nil {
			return err
		}
		defer c.Quit()

		if s.User != "" {
			if err := c.Auth(auth); err != nil {
				return err
			}
		}

		if err := c.Mail(s.From); err != nil {
			return err
		}
		if err := c.Rcpt(toEmail); err != nil {
			return err
		}

		w, err := c.Data()
		if err != nil {
			return err
		}

		if _, err := w.Write(buf.Bytes()); err != nil {
			return err
		}

		return w.Close()
	}

	return fmt.Errorf("smtp send failed")
}
