package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/smartcheck/gatepass/internal/mailer"
	"github.com/smartcheck/gatepass/pkg/config"
	"github.com/smartcheck/gatepass/pkg/events"
	"github.com/smartcheck/gatepass/pkg/logger"
)

// The notifier consumes pass lifecycle events and turns them into
// emails. It runs as a queue group so multiple instances share the
// load without duplicate sends.
const queueGroup = "notifier"

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	mail := mailer.FromConfig(cfg.Email)
	d := &dispatcher{mail: mail}

	subscriptions := map[string]func(*events.Message){
		events.PassScheduled: d.onScheduled,
		events.PassRejected:  d.onRejected,
		events.HostArrival:   d.onHostArrival,
	}
	for subject, handler := range subscriptions {
		if err := eventBus.QueueSubscribe(subject, queueGroup, handler); err != nil {
			logger.Error("Failed to subscribe", "subject", subject, "error", err)
			os.Exit(1)
		}
	}

	logger.Info("Notifier running", "dev_mode", cfg.Email.DevMode)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutting down notifier...")
}

type dispatcher struct {
	mail mailer.Service
}

func (d *dispatcher) onScheduled(msg *events.Message) {
	var ev events.PassScheduledEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		logger.Error("Malformed scheduled event", "error", err)
		return
	}
	if ev.VisitorEmail == "" {
		logger.Warn("Pass has no visitor email, credentials not sent", "pass_code", ev.PassCode)
		return
	}
	err := d.mail.SendPassCredentials(
		ev.VisitorEmail, ev.VisitorName, ev.PassCode,
		ev.EntryOTP, ev.ExitOTP, ev.VisitingDate, ev.VisitingTime)
	if err != nil {
		logger.Error("Failed to send credentials", "pass_code", ev.PassCode, "error", err)
		return
	}
	logger.Info("Credentials sent", "pass_code", ev.PassCode, "to", ev.VisitorEmail)
}

func (d *dispatcher) onRejected(msg *events.Message) {
	var ev events.PassRejectedEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		logger.Error("Malformed rejected event", "error", err)
		return
	}
	if ev.VisitorEmail == "" {
		return
	}
	if err := d.mail.SendPassRejected(ev.VisitorEmail, ev.VisitorName, ev.PassCode, ev.Reason); err != nil {
		logger.Error("Failed to send rejection notice", "pass_code", ev.PassCode, "error", err)
		return
	}
	logger.Info("Rejection notice sent", "pass_code", ev.PassCode, "to", ev.VisitorEmail)
}

func (d *dispatcher) onHostArrival(msg *events.Message) {
	var ev events.HostArrivalEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		logger.Error("Malformed arrival event", "error", err)
		return
	}
	if err := d.mail.SendHostArrival(ev.HostEmail, ev.VisitorName, ev.PassCode, ev.EntryTime); err != nil {
		logger.Error("Failed to notify host", "pass_code", ev.PassCode, "error", err)
		return
	}
	logger.Info("Host notified of arrival", "pass_code", ev.PassCode, "host", ev.HostEmail)
}
