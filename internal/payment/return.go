package payment

import (
	"context"
	"crypto/subtle"
	"net/url"
	"strings"

	"dwolla-gateway/internal/logger"
	"dwolla-gateway/internal/order"
	"dwolla-gateway/internal/utils"

	"go.uber.org/zap"
)

// ReturnParams is what the shopper's browser brings back from the hosted
// checkout: the order-received path segment and the query string.
type ReturnParams struct {
	OrderID string
	Values  url.Values
}

// IsGatewayReturn reports whether the request carries the marker added to
// the redirect URL.
func (p ReturnParams) IsGatewayReturn() bool {
	return p.Values.Has(ReturnMarker)
}

// HandleReturn checks a browser return for a cancelled or failed payment.
// A missing order is fatal for the request: the caller shows
// GenericOrderFailedMsg and stops.
func (g *Gateway) HandleReturn(ctx context.Context, p ReturnParams) (*order.Order, error) {
	g.sink.Log(ctx, "Query Vars", zap.String("query", p.Values.Encode()))

	id, err := utils.ToUint(strings.TrimSpace(p.OrderID))
	if err != nil || id == 0 {
		return nil, ErrMissingOrderID
	}

	o, err := g.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !orderKeyMatches(o, p.Values.Get("key")) {
		logger.FromCtx(ctx).Warn("order key mismatch on return", zap.Uint("order_id", id))
		return nil, order.ErrInvalidOrder
	}

	if e := p.Values.Get("error"); e != "" && !o.HasStatus(order.StatusFailed) {
		msg := p.Values.Get("error_description")
		if msg == "" {
			msg = e
		}
		if err := g.MarkFailed(ctx, o, msg); err != nil {
			return o, err
		}
	}

	if p.Values.Get("postback") == "failure" {
		if err := g.MarkFailed(ctx, o, msgPostbackFailed); err != nil {
			return o, err
		}
	}

	return o, nil
}

// orderKeyMatches requires the return to carry the order's key. Orders
// without a key accept any return.
func orderKeyMatches(o *order.Order, key string) bool {
	if o.OrderKey == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(o.OrderKey), []byte(key)) == 1
}
