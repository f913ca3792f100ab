package mailer

import (
	"fmt"
	"time"

	"github.com/smartcheck/gatepass/pkg/logger"
)

type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) SendPassCredentials(toEmail, toName, passCode, entryOTP, exitOTP, visitingDate, visitingTime string) error {
	logger.Info("📧 [DEV MAIL] Gate Pass Credentials",
		"to", toEmail,
		"name", toName,
		"pass_code", passCode,
		"visiting_date", visitingDate,
	)

	fmt.Printf("\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"📧 GATE PASS CREDENTIALS (DEV MODE)\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"To: %s (%s)\n"+
		"Subject: Your gate pass %s\n"+
		"\n"+
		"Visit: %s at %s\n"+
		"Entry Code: %s\n"+
		"Exit Code: %s\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n",
		toEmail, toName, passCode, visitingDate, visitingTime, entryOTP, exitOTP)

	return nil
}

func (d *DevMailer) SendPassRejected(toEmail, toName, passCode, reason string) error {
	logger.Info("📧 [DEV MAIL] Pass Rejected",
		"to", toEmail,
		"pass_code", passCode,
		"reason", reason,
	)

	fmt.Printf("\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"📧 PASS REJECTED (DEV MODE)\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"To: %s (%s)\n"+
		"Subject: Gate pass request %s declined\n"+
		"\n"+
		"Reason: %s\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n",
		toEmail, toName, passCode, reason)

	return nil
}

func (d *DevMailer) SendHostArrival(hostEmail, visitorName, passCode string, entryTime time.Time) error {
	logger.Info("📧 [DEV MAIL] Visitor Arrived",
		"to", hostEmail,
		"visitor", visitorName,
		"pass_code", passCode,
		"entry_time", entryTime,
	)

	fmt.Printf("\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"📧 VISITOR ARRIVED (DEV MODE)\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"To: %s\n"+
		"Subject: %s has arrived at the gate\n"+
		"\n"+
		"Pass: %s\n"+
		"Entry Time: %s\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n",
		hostEmail, visitorName, passCode, entryTime.Format(time.RFC1123))

	return nil
}
