package memory

import (
	"context"
	"sort"

	"github.com/vasiliy-maslov/shop-service/internal/notification"
)

type NotificationRepository struct {
	store *Store
}

var _ notification.Repository = (*NotificationRepository)(nil)

func (r *NotificationRepository) Create(_ context.Context, entry *notification.LogEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.seq++
	r.store.logs = append(r.store.logs, logRow{entry: *entry, seq: r.store.seq})
	return nil
}

func (r *NotificationRepository) ListByRecipients(_ context.Context, recipients []string) ([]notification.LogEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	wanted := make(map[string]struct{}, len(recipients))
	for _, rc := range recipients {
		wanted[rc] = struct{}{}
	}

	rows := make([]logRow, 0)
	for _, row := range r.store.logs {
		if _, ok := wanted[row.entry.Recipient]; ok {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].entry.Timestamp != rows[j].entry.Timestamp {
			return rows[i].entry.Timestamp > rows[j].entry.Timestamp
		}
		return rows[i].seq > rows[j].seq
	})

	out := make([]notification.LogEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.entry)
	}
	return out, nil
}
