// Package memory is an in-process backend. It has no multi-document
// transactions, so checkouts run through order.CompensatingUnitOfWork.
package memory

import (
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid"

	"github.com/vasiliy-maslov/shop-service/internal/catalog"
	"github.com/vasiliy-maslov/shop-service/internal/notification"
	"github.com/vasiliy-maslov/shop-service/internal/order"
	"github.com/vasiliy-maslov/shop-service/internal/user"
)

type Store struct {
	mu  sync.RWMutex
	seq int64
	now func() time.Time

	products map[string]productRow
	orders   map[string]orderRow
	numbers  map[string]string
	users    map[string]user.User
	emails   map[string]string
	logs     []logRow
}

type productRow struct {
	product catalog.Product
	seq     int64
}

type orderRow struct {
	order order.Order
	seq   int64
}

type logRow struct {
	entry notification.LogEntry
	seq   int64
}

func NewStore() *Store {
	return &Store{
		now:      time.Now,
		products: make(map[string]productRow),
		orders:   make(map[string]orderRow),
		numbers:  make(map[string]string),
		users:    make(map[string]user.User),
		emails:   make(map[string]string),
	}
}

func (s *Store) Products() *ProductRepository {
	return &ProductRepository{store: s}
}

func (s *Store) Orders() *OrderRepository {
	return &OrderRepository{store: s}
}

func (s *Store) Users() *UserRepository {
	return &UserRepository{store: s}
}

func (s *Store) Notifications() *NotificationRepository {
	return &NotificationRepository{store: s}
}

func (s *Store) UnitOfWork() order.UnitOfWork {
	return order.NewCompensatingUnitOfWork(s.Products(), s.Orders())
}

// Close satisfies the backend interface; there is nothing to release.
func (s *Store) Close() {}

// nextID must be called with mu held for writing.
func (s *Store) nextID() (string, int64, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", 0, err
	}
	s.seq++
	return id.String(), s.seq, nil
}

func containsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
