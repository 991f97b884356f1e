package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/diagnosis/quickstay/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url,
		nats.Name("quickstay-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
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

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Close() error {
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
		return err
	}
	return nil
}

// NopPublisher drops every event. Used when NATS is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, subject string, data interface{}) error {
	logger.DebugContext(ctx, "Event publishing disabled", "subject", subject)
	return nil
}

func (NopPublisher) Close() error { return nil }

var (
	_ Publisher = (*NATSEventBus)(nil)
	_ Publisher = NopPublisher{}
)

const (
	// Booking events
	BookingCreated   = "booking.created"
	BookingApproved  = "booking.approved"
	BookingRejected  = "booking.rejected"
	BookingCancelled = "booking.cancelled"

	// Account events
	AccountRegistered    = "account.registered"
	AccountDeactivated   = "account.deactivated"
	PasswordResetIssued  = "account.password_reset.requested"
	PasswordResetApplied = "account.password_reset.completed"

	// Room events
	ReviewCreated = "room.review.created"
)

type BookingCreatedEvent struct {
	BookingID  int64     `json:"booking_id"`
	UserID     int64     `json:"user_id"`
	RoomID     int64     `json:"room_id"`
	CheckIn    string    `json:"check_in"`
	CheckOut   string    `json:"check_out"`
	Guests     int       `json:"guests"`
	TotalPrice float64   `json:"total_price"`
	CreatedAt  time.Time `json:"created_at"`
}

type BookingStatusEvent struct {
	BookingID int64     `json:"booking_id"`
	UserID    int64     `json:"user_id"`
	RoomID    int64     `json:"room_id"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}

type AccountEvent struct {
	UserID     int64     `json:"user_id"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurred_at"`
}

type ReviewCreatedEvent struct {
	ReviewID   int64     `json:"review_id"`
	RoomID     int64     `json:"room_id"`
	Rating     int       `json:"rating"`
	RoomRating float64   `json:"room_rating"`
	CreatedAt  time.Time `json:"created_at"`
}
