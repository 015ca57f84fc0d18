package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusProcessing Status = "Processing"
	StatusShipped    Status = "Shipped"
	StatusDelivered  Status = "Delivered"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) Valid() bool {
	switch s {
	case StatusProcessing, StatusShipped, StatusDelivered:
		return true
	default:
		return false
	}
}

type RefundStatus string

const (
	RefundNone      RefundStatus = "None"
	RefundRequested RefundStatus = "Requested"
	RefundApproved  RefundStatus = "Approved"
	RefundRejected  RefundStatus = "Rejected"
)

func (s RefundStatus) String() string {
	return string(s)
}

// Item is a line of a committed order. Name and Price are captured at checkout
// and never re-read from the catalog.
type Item struct {
	ProductID string          `json:"productId" db:"product_id"`
	Name      string          `json:"name" db:"name"`
	Quantity  int             `json:"quantity" db:"quantity"`
	Price     decimal.Decimal `json:"price" db:"price"`
}

type Order struct {
	ID              string          `json:"id" db:"id"`
	OrderNumber     string          `json:"orderNumber" db:"order_number"`
	UserID          string          `json:"userId,omitempty" db:"user_id"`
	CustomerName    string          `json:"customerName" db:"customer_name"`
	CustomerEmail   string          `json:"customerEmail" db:"customer_email"`
	Total           decimal.Decimal `json:"total" db:"total"`
	Status          Status          `json:"status" db:"status"`
	RefundStatus    RefundStatus    `json:"refundStatus" db:"refund_status"`
	RefundReason    string          `json:"refundReason,omitempty" db:"refund_reason"`
	Items           []Item          `json:"items" db:"-"`
	Date            time.Time       `json:"date" db:"date"`
	ShippingAddress string          `json:"shippingAddress,omitempty" db:"shipping_address"`
	City            string          `json:"city,omitempty" db:"city"`
	PostalCode      string          `json:"postalCode,omitempty" db:"postal_code"`
	Country         string          `json:"country,omitempty" db:"country"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
}

// Clone returns a copy that shares no slices with o.
func (o *Order) Clone() *Order {
	cp := *o
	cp.Items = append([]Item(nil), o.Items...)
	return &cp
}

type CartLine struct {
	ProductID string
	Quantity  int
}

type CreateOrderInput struct {
	CustomerName    string
	CustomerEmail   string
	Items           []CartLine
	ShippingAddress string
	City            string
	PostalCode      string
	Country         string
}
