package checkout

import (
	"context"
	"crypto/subtle"
	"strings"

	"dwolla-gateway/internal/auth"
	"dwolla-gateway/internal/logger"
	"dwolla-gateway/internal/order"
	"dwolla-gateway/internal/payment"
	"dwolla-gateway/internal/utils"

	"go.uber.org/zap"
)

// Gateway is satisfied by *payment.Gateway.
type Gateway interface {
	ProcessPayment(ctx context.Context, orderID uint) (*payment.CheckoutResult, error)
	HandleReturn(ctx context.Context, p payment.ReturnParams) (*order.Order, error)
}

// Service runs the shopper-facing checkout steps shared by the GraphQL
// resolvers and the order-received page.
type Service struct {
	Gateway Gateway
	Orders  order.Repository
}

func NewService(g Gateway, orders order.Repository) *Service {
	return &Service{Gateway: g, Orders: orders}
}

// StartPayment begins a hosted checkout. Orders the caller may not access
// are reported as order.ErrOrderNotFound.
func (s *Service) StartPayment(ctx context.Context, rawID, key string) (*payment.CheckoutResult, error) {
	id, err := parseOrderID(rawID)
	if err != nil {
		return nil, err
	}

	if _, err := s.authorize(ctx, id, key); err != nil {
		return nil, err
	}

	res, err := s.Gateway.ProcessPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Receipt loads the order for the thank-you page. Returns from the hosted
// checkout are checked for cancellation before the order is shown.
func (s *Service) Receipt(ctx context.Context, p payment.ReturnParams) (*order.Order, error) {
	if p.IsGatewayReturn() {
		return s.Gateway.HandleReturn(ctx, p)
	}

	id, err := parseOrderID(p.OrderID)
	if err != nil {
		return nil, err
	}
	return s.authorize(ctx, id, p.Values.Get("key"))
}

func (s *Service) authorize(ctx context.Context, id uint, key string) (*order.Order, error) {
	o, err := s.Orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccess(ctx, o, key) {
		logger.FromCtx(ctx).Warn("order access denied", zap.Uint("order_id", id))
		return nil, order.ErrOrderNotFound
	}
	return o, nil
}

func parseOrderID(raw string) (uint, error) {
	id, err := utils.ToUint(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, payment.ErrMissingOrderID
	}
	return id, nil
}

// canAccess accepts the order key or the owning customer's token.
func canAccess(ctx context.Context, o *order.Order, key string) bool {
	if key != "" && o.OrderKey != "" &&
		subtle.ConstantTimeCompare([]byte(key), []byte(o.OrderKey)) == 1 {
		return true
	}
	if customerID, ok := auth.CustomerIDFrom(ctx); ok {
		return o.CustomerID != 0 && customerID == o.CustomerID
	}
	return false
}
