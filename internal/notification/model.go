package notification

import "time"

type EventType string

const (
	EventOrderCreated    EventType = "order.created"
	EventStatusChanged   EventType = "order.status_changed"
	EventRefundRequested EventType = "order.refund_requested"
)

func (t EventType) String() string {
	return string(t)
}

// Event is what the order engine emits after a committed change.
type Event struct {
	Type        EventType `json:"type"`
	OrderID     string    `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	Recipient   string    `json:"recipient"`
	Status      string    `json:"status,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

type LogType string

const (
	LogTypeEmail LogType = "email"
	LogTypeSMS   LogType = "sms"
)

type LogStatus string

const (
	LogStatusSent    LogStatus = "sent"
	LogStatusFailed  LogStatus = "failed"
	LogStatusPending LogStatus = "pending"
)

// LogEntry is the audit record kept for every event.
type LogEntry struct {
	ID          string    `json:"id" db:"id"`
	Type        LogType   `json:"type" db:"type"`
	Recipient   string    `json:"recipient" db:"recipient"`
	Subject     string    `json:"subject" db:"subject"`
	Timestamp   string    `json:"timestamp" db:"timestamp"`
	Status      LogStatus `json:"status" db:"status"`
	OrderNumber string    `json:"orderNumber,omitempty" db:"order_number"`
	CreatedAt   time.Time `json:"-" db:"created_at"`
}
