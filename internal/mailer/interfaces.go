package mailer

import (
	"time"

	"github.com/smartcheck/gatepass/pkg/config"
)

// Service sends the visitor-facing and host-facing notifications. The
// dispatcher picks the concrete backend from configuration.
type Service interface {
	SendPassCredentials(toEmail, toName, passCode, entryOTP, exitOTP, visitingDate, visitingTime string) error
	SendPassRejected(toEmail, toName, passCode, reason string) error
	SendHostArrival(hostEmail, visitorName, passCode string, entryTime time.Time) error
}

// FromConfig selects a backend: MailerSend when an API key is present,
// SMTP when configured, the console printer in dev mode.
func FromConfig(cfg config.EmailConfig) Service {
	if cfg.DevMode {
		return NewDevMailer()
	}
	if cfg.MailerSendKey != "" {
		return NewMailerSendMailer(cfg.MailerSendKey, cfg.FromName, cfg.SMTPFrom)
	}
	return NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPUseTLS)
}
