package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
)

type MailerSendMailer struct {
	client *mailersend.Mailersend
	from   mailersend.From
}

func NewMailerSendMailer(apiKey, fromName, fromEmail string) *MailerSendMailer {
	m := &MailerSendMailer{
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}
	if apiKey != "" {
		m.client = mailersend.NewMailersend(apiKey)
	}
	return m
}

func (m *MailerSendMailer) SendPassCredentials(toEmail, toName, passCode, entryOTP, exitOTP, visitingDate, visitingTime string) error {
	subject := fmt.Sprintf("Your gate pass %s", passCode)
	text := fmt.Sprintf(
		"Your visit on %s at %s is confirmed.\n\nPass Code: %s\nEntry Code: %s\nExit Code: %s\n\nPresent the pass code and the entry code at the gate.",
		visitingDate, visitingTime, passCode, entryOTP, exitOTP)
	html := fmt.Sprintf(`
		<h2>Your visit is confirmed</h2>
		<p>Scheduled for <strong>%s</strong> at <strong>%s</strong>.</p>
		<p>Pass Code: <strong style="font-size: 20px;">%s</strong></p>
		<p>Entry Code: <strong style="font-size: 24px; color: #4CAF50;">%s</strong></p>
		<p>Exit Code: <strong style="font-size: 24px; color: #FF9800;">%s</strong></p>
		<p>Present the pass code and the entry code at the gate.</p>
	`, visitingDate, visitingTime, passCode, entryOTP, exitOTP)
	return m.send(toEmail, toName, subject, text, html)
}

func (m *MailerSendMailer) SendPassRejected(toEmail, toName, passCode, reason string) error {
	subject := fmt.Sprintf("Gate pass request %s declined", passCode)
	text := fmt.Sprintf("Your gate pass request was declined.\n\nReason: %s", reason)
	html := fmt.Sprintf(`
		<h2>Your gate pass request was declined</h2>
		<p>Pass: <strong>%s</strong></p>
		<p>Reason: %s</p>
	`, passCode, reason)
	return m.send(toEmail, toName, subject, text, html)
}

func (m *MailerSendMailer) SendHostArrival(hostEmail, visitorName, passCode string, entryTime time.Time) error {
	subject := fmt.Sprintf("%s has arrived at the gate", visitorName)
	text := fmt.Sprintf("%s (pass %s) entered at %s.", visitorName, passCode, entryTime.Format(time.RFC1123))
	html := fmt.Sprintf(`
		<h2>Your visitor has arrived</h2>
		<p><strong>%s</strong> (pass %s) entered at %s.</p>
	`, visitorName, passCode, entryTime.Format(time.RFC1123))
	return m.send(hostEmail, "", subject, text, html)
}

func (m *MailerSendMailer) send(toEmail, toName, subject, text, html string) error {
	if m.client == nil {
		return errors.New("mailer disabled (missing MAILERSEND_API_KEY)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)
	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	res, err := m.client.Email.Send(ctx, msg)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("mailersend error: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
