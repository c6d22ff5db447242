package order

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusOnHold    Status = "on-hold"
	StatusFailed    Status = "failed"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

type Order struct {
	ID            uint
	Number        string
	OrderKey      string
	CustomerID    uint
	Status        Status
	Total         decimal.Decimal
	ShippingTotal decimal.Decimal
	TaxTotal      decimal.Decimal
	Billing       Billing
	Items         []Item
	Fees          []Fee
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Billing struct {
	FirstName string
	LastName  string
	Email     string
	City      string
	State     string
	Postcode  string
}

type Item struct {
	ID           uint
	ProductTitle string
	SKU          string
	UnitPrice    decimal.Decimal
	Quantity     int
}

type Fee struct {
	ID    uint
	Name  string
	Total decimal.Decimal
}

// Meta is a single key/value stored against an order.
type Meta struct {
	Key   string
	Value string
}

func (o *Order) HasStatus(s Status) bool {
	return o.Status == s
}

// NeedsPayment is true while the order is awaiting payment and has something
// to charge. Paid, on-hold and closed orders never need payment again.
func (o *Order) NeedsPayment() bool {
	if o.Status != StatusPending && o.Status != StatusFailed {
		return false
	}
	return o.Total.IsPositive()
}

// OrderNumber is the shopper-facing number, falling back to the id.
func (o *Order) OrderNumber() string {
	if o.Number != "" {
		return o.Number
	}
	return strconv.FormatUint(uint64(o.ID), 10)
}
