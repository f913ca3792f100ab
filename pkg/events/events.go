package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/smartcheck/gatepass/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject)

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Event subjects
const (
	// Pass lifecycle events
	PassScheduled = "pass.scheduled"
	PassApproved  = "pass.approved"
	PassRejected  = "pass.rejected"
	PassExpired   = "pass.expired"

	// Gate events
	HostArrival = "gate.host_arrival"

	// Notification events
	NotifySend = "notify.send"
)

// PassScheduledEvent carries the plaintext OTPs exactly once, at the
// moment of generation. They are never persisted or published again.
type PassScheduledEvent struct {
	PassID       string    `json:"pass_id"`
	PassCode     string    `json:"pass_code"`
	VisitorName  string    `json:"visitor_name"`
	VisitorEmail string    `json:"visitor_email"`
	VisitingDate string    `json:"visiting_date"`
	VisitingTime string    `json:"visiting_time"`
	EntryOTP     string    `json:"entry_otp"`
	ExitOTP      string    `json:"exit_otp"`
	ValidUntil   time.Time `json:"valid_until"`
	CreatedAt    time.Time `json:"created_at"`
}

type PassApprovedEvent struct {
	PassID       string    `json:"pass_id"`
	PassCode     string    `json:"pass_code"`
	VisitorName  string    `json:"visitor_name"`
	VisitorEmail string    `json:"visitor_email"`
	VisitingDate string    `json:"visiting_date"`
	EntryOTP     string    `json:"entry_otp"`
	ExitOTP      string    `json:"exit_otp"`
	ApprovedBy   string    `json:"approved_by"`
	ApprovedAt   time.Time `json:"approved_at"`
}

type PassRejectedEvent struct {
	PassID       string    `json:"pass_id"`
	PassCode     string    `json:"pass_code"`
	VisitorName  string    `json:"visitor_name"`
	VisitorEmail string    `json:"visitor_email"`
	Reason       string    `json:"reason"`
	RejectedBy   string    `json:"rejected_by"`
	RejectedAt   time.Time `json:"rejected_at"`
}

type HostArrivalEvent struct {
	PassID      string    `json:"pass_id"`
	PassCode    string    `json:"pass_code"`
	VisitorName string    `json:"visitor_name"`
	HostEmail   string    `json:"host_email"`
	EntryTime   time.Time `json:"entry_time"`
}

type NotificationEvent struct {
	Type      string                 `json:"type"`
	Recipient string                 `json:"recipient"`
	Subject   string                 `json:"subject"`
	Template  string                 `json:"template"`
	Data      map[string]interface{} `json:"data"`
}
