package payment

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"dwolla-gateway/internal/logger"
	"dwolla-gateway/internal/order"

	"go.uber.org/zap"
)

// ProcessPayment sends the order to the processor and decides where the
// shopper goes next.
func (g *Gateway) ProcessPayment(ctx context.Context, orderID uint) (*CheckoutResult, error) {
	if !g.cfg.Available() {
		return nil, ErrGatewayUnavailable
	}

	o, err := g.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.NeedsPayment() {
		return nil, order.ErrAlreadyPaid
	}

	req := g.BuildRequest(ctx, o)
	result := g.Submit(ctx, req)

	return g.ResolveRedirect(ctx, o, result)
}

// ResolveRedirect turns a submission result into the next checkout step. On
// success the cart is emptied and the shopper is sent to the hosted checkout
// page; otherwise the order is failed and no redirect is given. The error is
// set only when that failure could not be stored.
func (g *Gateway) ResolveRedirect(ctx context.Context, o *order.Order, result *TransactionResult) (*CheckoutResult, error) {
	log := logger.FromCtx(ctx).With(zap.Uint("order_id", o.ID))

	if !result.Succeeded() {
		if err := g.MarkFailed(ctx, o, result.Message); err != nil {
			return nil, fmt.Errorf("record checkout failure: %w", err)
		}
		return &CheckoutResult{Result: "failure"}, nil
	}

	if g.carts != nil {
		if err := g.carts.ClearCart(ctx, o.CustomerID); err != nil {
			// the processor already holds the checkout, keep going
			log.Warn("cart not cleared after checkout", zap.Error(err))
		}
	}

	return &CheckoutResult{
		Result:   "success",
		Redirect: g.checkoutPageURL(result.CheckoutID),
	}, nil
}

func (g *Gateway) checkoutPageURL(checkoutID string) string {
	base := g.cfg.CheckoutURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + url.PathEscape(checkoutID)
}
