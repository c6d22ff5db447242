package payment

import (
	"context"
	"net/http"
	"testing"

	"dwolla-gateway/internal/config"
	"dwolla-gateway/internal/order"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

const testSecret = "s3cret"

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) ClearCart(ctx context.Context, customerID uint) error {
	args := m.Called(ctx, customerID)
	return args.Error(0)
}

type MockCallbackRepository struct {
	mock.Mock
}

func (m *MockCallbackRepository) SaveCallback(ctx context.Context, rec CallbackRecord) (int64, error) {
	args := m.Called(ctx, rec)
	return args.Get(0).(int64), args.Error(1)
}

func testConfig() config.GatewayConfig {
	return config.GatewayConfig{
		AccountID:     "812-111-2222",
		AppKey:        "app-key",
		AppSecret:     testSecret,
		GuestCheckout: true,
		TestMode:      true,
		Endpoint:      "https://dwolla.test/payment/request",
		CheckoutURL:   "https://dwolla.test/payment/checkout/",
	}
}

func testSite() Site {
	return Site{URL: "https://shop.example.com", Name: "Example Shop"}
}

func pendingOrder() *order.Order {
	return &order.Order{
		ID:            7,
		Number:        "1007",
		OrderKey:      "wc_order_abc",
		CustomerID:    3,
		Status:        order.StatusPending,
		Total:         decimal.RequireFromString("25.00"),
		ShippingTotal: decimal.RequireFromString("5.00"),
		TaxTotal:      decimal.RequireFromString("1.50"),
		Billing: order.Billing{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@example.com",
			City:      "London",
			State:     "LDN",
			Postcode:  "N1",
		},
		Items: []order.Item{
			{ProductTitle: "Mug", SKU: "MUG-1", UnitPrice: decimal.RequireFromString("8.50"), Quantity: 2},
			{ProductTitle: "Sticker", UnitPrice: decimal.RequireFromString("1"), Quantity: 1},
		},
		Fees: []order.Fee{
			{Name: "Gift wrap", Total: decimal.RequireFromString("0.5")},
		},
	}
}

func newTestGateway(t *testing.T, repo order.Repository, opts ...Option) *Gateway {
	t.Helper()
	return NewGateway(testConfig(), testSite(), repo, nil, opts...)
}
