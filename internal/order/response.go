package order

import "github.com/shopspring/decimal"

const dateLayout = "2006-01-02"

// Summary is the list/create response shape; Items is the number of lines.
type Summary struct {
	ID            string          `json:"id"`
	OrderNumber   string          `json:"orderNumber"`
	CustomerName  string          `json:"customerName"`
	CustomerEmail string          `json:"customerEmail"`
	Total         decimal.Decimal `json:"total"`
	Status        Status          `json:"status"`
	RefundStatus  RefundStatus    `json:"refundStatus"`
	RefundReason  string          `json:"refundReason,omitempty"`
	Date          string          `json:"date"`
	Items         int             `json:"items"`
}

func NewSummary(o *Order) Summary {
	return Summary{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		Total:         o.Total,
		Status:        o.Status,
		RefundStatus:  o.RefundStatus,
		RefundReason:  o.RefundReason,
		Date:          o.Date.UTC().Format(dateLayout),
		Items:         len(o.Items),
	}
}

func NewSummaries(orders []Order) []Summary {
	out := make([]Summary, 0, len(orders))
	for i := range orders {
		out = append(out, NewSummary(&orders[i]))
	}
	return out
}

// Detail adds line items and shipping fields to a Summary.
type Detail struct {
	Summary
	LineItems       []Item `json:"lineItems"`
	ShippingAddress string `json:"shippingAddress,omitempty"`
	City            string `json:"city,omitempty"`
	PostalCode      string `json:"postalCode,omitempty"`
	Country         string `json:"country,omitempty"`
}

func NewDetail(o *Order) Detail {
	items := o.Items
	if items == nil {
		items = []Item{}
	}
	return Detail{
		Summary:         NewSummary(o),
		LineItems:       items,
		ShippingAddress: o.ShippingAddress,
		City:            o.City,
		PostalCode:      o.PostalCode,
		Country:         o.Country,
	}
}
