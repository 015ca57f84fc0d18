package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/shop-service/internal/auth"
	"github.com/vasiliy-maslov/shop-service/internal/catalog"
	"github.com/vasiliy-maslov/shop-service/internal/notification"
)

const (
	DefaultMaxAttempts = 5
	minRefundReason    = 5
	minCustomerName    = 2
)

var fieldValidator = validator.New()

// Checkout outcomes reported to a Recorder.
const (
	OutcomeSuccess           = "success"
	OutcomeInsufficientStock = "insufficient_stock"
	OutcomeProductNotFound   = "product_not_found"
	OutcomeInvalid           = "invalid"
	OutcomeError             = "error"
)

type Service interface {
	CreateOrder(ctx context.Context, in CreateOrderInput, principal *auth.Principal) (*Order, error)
	GetOrder(ctx context.Context, id string, principal *auth.Principal) (*Order, error)
	RequestRefund(ctx context.Context, id string, principal *auth.Principal, reason string) (*Order, error)
	UpdateStatus(ctx context.Context, id string, status Status) (*Order, error)
	ListForUser(ctx context.Context, principal *auth.Principal) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)
}

// Recorder observes checkout attempts, e.g. for metrics.
type Recorder interface {
	ObserveCheckout(outcome string, d time.Duration)
}

type Option func(*service)

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// WithMaxAttempts bounds how often a checkout is re-run after a duplicate
// order number or a store write conflict.
func WithMaxAttempts(n int) Option {
	return func(s *service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithNotifier(n notification.Notifier) Option {
	return func(s *service) { s.notifier = n }
}

func WithRecorder(r Recorder) Option {
	return func(s *service) { s.recorder = r }
}

type service struct {
	uow         UnitOfWork
	orders      Repository
	numbers     NumberGenerator
	notifier    notification.Notifier
	recorder    Recorder
	now         func() time.Time
	maxAttempts int
}

func NewService(uow UnitOfWork, orders Repository, numbers NumberGenerator, opts ...Option) Service {
	s := &service{
		uow:         uow,
		orders:      orders,
		numbers:     numbers,
		notifier:    notification.NopNotifier{},
		now:         time.Now,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) CreateOrder(ctx context.Context, in CreateOrderInput, principal *auth.Principal) (*Order, error) {
	started := time.Now()

	if err := validateCart(in); err != nil {
		log.Warn().Err(err).Msg("service: rejected checkout input")
		s.observe(OutcomeInvalid, started)
		return nil, err
	}

	var (
		created *Order
		err     error
	)
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		created, err = s.checkout(ctx, in, principal)
		if err == nil || !retryable(err) {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("service: checkout attempt lost, retrying")
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
			break
		}
	}

	if err != nil {
		s.observe(outcomeOf(err), started)
		switch {
		case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrProductNotFound):
			log.Warn().Err(err).Msg("service: checkout rejected")
			return nil, err
		case retryable(err):
			log.Error().Err(err).Int("attempts", s.maxAttempts).Msg("service: checkout retries exhausted")
			return nil, fmt.Errorf("service: checkout failed after %d attempts: %w", s.maxAttempts, err)
		default:
			log.Error().Err(err).Msg("service: checkout failed")
			return nil, fmt.Errorf("service: failed to create order: %w", err)
		}
	}

	s.observe(OutcomeSuccess, started)
	log.Info().
		Str("order_id", created.ID).
		Str("order_number", created.OrderNumber).
		Str("user_id", created.UserID).
		Stringer("total", created.Total).
		Msg("service: order created")

	s.notifier.Notify(ctx, notification.Event{
		Type:        notification.EventOrderCreated,
		OrderID:     created.ID,
		OrderNumber: created.OrderNumber,
		Recipient:   created.CustomerEmail,
		Status:      created.Status.String(),
		OccurredAt:  created.Date,
	})
	return created, nil
}

// checkout runs one attempt inside a single unit of work. Any error rolls
// back every decrement and the insert.
func (s *service) checkout(ctx context.Context, in CreateOrderInput, principal *auth.Principal) (created *Order, err error) {
	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to begin checkout: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic_value", p).Msg("service: panic during checkout, rolling back")
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Msg("service: failed to roll back checkout after panic")
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Msg("service: failed to roll back checkout")
			}
		} else if commitErr := tx.Commit(ctx); commitErr != nil {
			created = nil
			err = fmt.Errorf("service: failed to commit checkout: %w", commitErr)
		}
	}()

	items := make([]Item, 0, len(in.Items))
	total := decimal.Zero

	for _, line := range in.Items {
		var product *catalog.Product
		product, err = tx.Products().GetByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrProductNotFound, line.ProductID)
			}
			return nil, fmt.Errorf("service: failed to load product %s: %w", line.ProductID, err)
		}
		if !product.IsActive {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, line.ProductID)
		}
		if product.StockQuantity < line.Quantity {
			return nil, fmt.Errorf("%w: %s", ErrInsufficientStock, product.Name)
		}

		unit := UnitPrice(product.Price, product.DiscountPercentage)

		var affected int64
		affected, err = tx.Products().DecrementStock(ctx, product.ID, line.Quantity)
		if err != nil {
			return nil, fmt.Errorf("service: failed to reserve stock for %s: %w", product.ID, err)
		}
		if affected == 0 {
			return nil, fmt.Errorf("%w: %s", ErrInsufficientStock, product.Name)
		}

		items = append(items, Item{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  line.Quantity,
			Price:     unit,
		})
		total = total.Add(LineTotal(unit, line.Quantity))
	}

	now := s.now().UTC()
	var number string
	number, err = s.numbers.Next(now)
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate order number: %w", err)
	}

	o := &Order{
		OrderNumber:     number,
		CustomerName:    strings.TrimSpace(in.CustomerName),
		CustomerEmail:   strings.TrimSpace(in.CustomerEmail),
		Total:           total.Round(2),
		Status:          StatusProcessing,
		RefundStatus:    RefundNone,
		Items:           items,
		Date:            now,
		ShippingAddress: in.ShippingAddress,
		City:            in.City,
		PostalCode:      in.PostalCode,
		Country:         in.Country,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if principal != nil {
		o.UserID = principal.UserID
	}

	if err = tx.Orders().Insert(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *service) GetOrder(ctx context.Context, id string, principal *auth.Principal) (*Order, error) {
	o, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !principal.HasRole(auth.RoleAdmin) && !principal.Owns(o.UserID, o.CustomerEmail) {
		log.Warn().Str("order_id", id).Str("user_id", userIDOf(principal)).Msg("service: order access denied")
		return nil, ErrAccessDenied
	}
	return o, nil
}

func (s *service) RequestRefund(ctx context.Context, id string, principal *auth.Principal, reason string) (*Order, error) {
	reason = strings.TrimSpace(reason)
	if len([]rune(reason)) < minRefundReason {
		return nil, newValidationError("refundReason", fmt.Sprintf("must be at least %d characters", minRefundReason))
	}

	current, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if !principal.Owns(current.UserID, current.CustomerEmail) {
		log.Warn().Str("order_id", id).Str("user_id", userIDOf(principal)).Msg("service: refund access denied")
		return nil, ErrAccessDenied
	}
	if current.RefundStatus != RefundNone {
		return nil, ErrRefundAlreadyRequested
	}

	updated, err := s.orders.UpdateRefund(ctx, id, reason)
	if err != nil {
		switch {
		case errors.Is(err, ErrRefundAlreadyRequested):
			return nil, ErrRefundAlreadyRequested
		case errors.Is(err, ErrOrderNotFound):
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Str("order_id", id).Msg("service: failed to update refund in repository")
		return nil, fmt.Errorf("service: failed to request refund: %w", err)
	}

	log.Info().Str("order_id", id).Str("order_number", updated.OrderNumber).Msg("service: refund requested")
	s.notifier.Notify(ctx, notification.Event{
		Type:        notification.EventRefundRequested,
		OrderID:     updated.ID,
		OrderNumber: updated.OrderNumber,
		Recipient:   updated.CustomerEmail,
		Status:      updated.RefundStatus.String(),
		OccurredAt:  s.now().UTC(),
	})
	return updated, nil
}

// UpdateStatus sets any known status. Transitions are not ordered; admins may
// move an order backwards or skip a step.
func (s *service) UpdateStatus(ctx context.Context, id string, status Status) (*Order, error) {
	if !status.Valid() {
		return nil, newValidationError("status", fmt.Sprintf("must be one of %s, %s, %s", StatusProcessing, StatusShipped, StatusDelivered))
	}

	updated, err := s.orders.UpdateStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Str("order_id", id).Stringer("new_status", status).Msg("service: order not found, cannot update status")
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Str("order_id", id).Stringer("new_status", status).Msg("service: failed to update order status in repository")
		return nil, fmt.Errorf("service: failed to update order status: %w", err)
	}

	log.Info().Str("order_id", id).Stringer("new_status", status).Msg("service: order status updated")
	s.notifier.Notify(ctx, notification.Event{
		Type:        notification.EventStatusChanged,
		OrderID:     updated.ID,
		OrderNumber: updated.OrderNumber,
		Recipient:   updated.CustomerEmail,
		Status:      updated.Status.String(),
		OccurredAt:  s.now().UTC(),
	})
	return updated, nil
}

func (s *service) ListForUser(ctx context.Context, principal *auth.Principal) ([]Order, error) {
	if principal == nil {
		return nil, ErrAccessDenied
	}
	orders, err := s.orders.FindByOwnerOrEmail(ctx, principal.UserID, principal.Email)
	if err != nil {
		log.Error().Err(err).Str("user_id", principal.UserID).Msg("service: failed to fetch user orders in repository")
		return nil, fmt.Errorf("service: failed to fetch user orders: %w", err)
	}
	return orders, nil
}

func (s *service) ListAll(ctx context.Context) ([]Order, error) {
	orders, err := s.orders.FindAll(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to fetch orders in repository")
		return nil, fmt.Errorf("service: failed to fetch orders: %w", err)
	}
	return orders, nil
}

func (s *service) find(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Str("order_id", id).Msg("service: order not found by id")
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Str("order_id", id).Msg("service: failed to fetch order by id in repository")
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}
	return o, nil
}

func (s *service) observe(outcome string, started time.Time) {
	if s.recorder != nil {
		s.recorder.ObserveCheckout(outcome, time.Since(started))
	}
}

func validateCart(in CreateOrderInput) error {
	if len(in.Items) == 0 {
		return ErrEmptyCart
	}

	details := map[string]string{}
	if len([]rune(strings.TrimSpace(in.CustomerName))) < minCustomerName {
		details["customerName"] = fmt.Sprintf("must be at least %d characters", minCustomerName)
	}
	if err := fieldValidator.Var(strings.TrimSpace(in.CustomerEmail), "required,email"); err != nil {
		details["customerEmail"] = "must be a valid email"
	}
	for i, line := range in.Items {
		if strings.TrimSpace(line.ProductID) == "" {
			details[fmt.Sprintf("items[%d].productId", i)] = "is required"
		}
		if line.Quantity < 1 {
			details[fmt.Sprintf("items[%d].quantity", i)] = "must be at least 1"
		}
	}
	if len(details) > 0 {
		return &ValidationError{Details: details}
	}
	return nil
}

func retryable(err error) bool {
	return errors.Is(err, ErrDuplicateOrderNumber) || errors.Is(err, ErrConflict)
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientStock):
		return OutcomeInsufficientStock
	case errors.Is(err, ErrProductNotFound):
		return OutcomeProductNotFound
	default:
		return OutcomeError
	}
}

func userIDOf(p *auth.Principal) string {
	if p == nil {
		return ""
	}
	return p.UserID
}
