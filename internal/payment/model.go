package payment

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	ResultSuccess = "Success"
	ResultFailure = "Failure"
)

// PaymentRequest is the body posted to the processor. Test and
// AllowFundingSources are flags by presence: the processor treats any value
// as enabled, so they are omitted rather than sent as "false".
type PaymentRequest struct {
	Key                 string        `json:"key"`
	Secret              string        `json:"secret"`
	Callback            string        `json:"callback"`
	Redirect            string        `json:"redirect"`
	OrderID             uint          `json:"orderId"`
	PurchaseOrder       PurchaseOrder `json:"purchaseOrder"`
	Test                string        `json:"test,omitempty"`
	AllowFundingSources string        `json:"allowFundingSources,omitempty"`
}

type PurchaseOrder struct {
	CustomerInfo  CustomerInfo `json:"customerInfo"`
	DestinationID string       `json:"destinationId"`
	Discount      string       `json:"discount"`
	Shipping      string       `json:"shipping"`
	Tax           string       `json:"tax"`
	Total         string       `json:"total"`
	Notes         string       `json:"notes"`
	OrderItems    []LineItem   `json:"orderItems"`
}

type CustomerInfo struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
}

type LineItem struct {
	Name        string `json:"Name"`
	Description string `json:"Description"`
	Price       string `json:"Price"`
	Quantity    int    `json:"Quantity"`
}

// TransactionResult is the normalized answer to a payment request.
type TransactionResult struct {
	Result     string    `json:"Result"`
	CheckoutID string    `json:"CheckoutId,omitempty"`
	Message    string    `json:"Message,omitempty"`
	Kind       ErrorKind `json:"-"`
}

func (r *TransactionResult) Succeeded() bool {
	return r != nil && r.Result == ResultSuccess
}

func failure(kind ErrorKind, msg string) *TransactionResult {
	return &TransactionResult{Result: ResultFailure, Message: msg, Kind: kind}
}

// CallbackNotification is the processor's asynchronous payment notification.
type CallbackNotification struct {
	CheckoutID    string
	ClearingDate  string
	Signature     string
	TransactionID string
	Amount        decimal.Decimal
	OrderID       uint
	Error         string
}

// CheckoutResult tells the checkout page where to send the shopper next.
// Redirect is empty on failure; the page is shown again with its notices.
type CheckoutResult struct {
	Result   string `json:"result"`
	Redirect string `json:"redirect,omitempty"`
}

// flexString accepts JSON strings, numbers and booleans as text. The
// processor is not consistent about quoting ids.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*f = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
	case data[0] == '{' || data[0] == '[':
		return fmt.Errorf("unexpected JSON %s for text field", string(data[:1]))
	default:
		*f = flexString(data)
	}
	return nil
}
