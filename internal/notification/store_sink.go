package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/vasiliy-maslov/shop-service/internal/randcode"
)

const timestampLayout = "2006-01-02 15:04"

// StoreSink turns events into LogEntry records.
type StoreSink struct {
	repo Repository
	now  func() time.Time
}

func NewStoreSink(repo Repository) *StoreSink {
	return &StoreSink{repo: repo, now: time.Now}
}

func (s *StoreSink) Handle(ctx context.Context, e Event) error {
	entry, err := s.entryFor(e)
	if err != nil {
		return err
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("notification: failed to store log for %s: %w", e.OrderNumber, err)
	}
	return nil
}

func (s *StoreSink) entryFor(e Event) (*LogEntry, error) {
	code, err := randcode.New(6)
	if err != nil {
		return nil, err
	}

	entry := &LogEntry{
		ID:          "notif-" + code,
		Type:        LogTypeEmail,
		Recipient:   e.Recipient,
		Timestamp:   s.now().Format(timestampLayout),
		OrderNumber: e.OrderNumber,
		CreatedAt:   s.now().UTC(),
	}

	switch e.Type {
	case EventOrderCreated:
		entry.Subject = "Order Confirmation - " + e.OrderNumber
		entry.Status = LogStatusSent
	case EventStatusChanged:
		entry.Subject = fmt.Sprintf("Order Status Update - %s (%s)", e.OrderNumber, e.Status)
		entry.Status = LogStatusSent
	case EventRefundRequested:
		entry.Subject = "Refund Requested - " + e.OrderNumber
		entry.Status = LogStatusPending
	default:
		return nil, fmt.Errorf("notification: unknown event type %q", e.Type)
	}
	return entry, nil
}
