package graph

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"dwolla-gateway/internal/graph/model"
	"dwolla-gateway/internal/logger"
	"dwolla-gateway/internal/order"
	"dwolla-gateway/internal/payment"
	"dwolla-gateway/internal/transport"

	"go.uber.org/zap"
)

// --- MAPPER HELPERS ---

func toGraphQLNotices(ns []transport.Notice) []*model.Notice {
	out := make([]*model.Notice, 0, len(ns))
	for _, n := range ns {
		out = append(out, &model.Notice{Kind: string(n.Kind), Message: n.Message})
	}
	return out
}

func toGraphQLReceipt(o *order.Order, ns []transport.Notice) *model.OrderReceipt {
	return &model.OrderReceipt{
		OrderID: fmt.Sprint(o.ID),
		Number:  o.OrderNumber(),
		Status:  string(o.Status),
		Total:   payment.FormatAmount(o.Total),
		Notices: toGraphQLNotices(ns),
	}
}

func returnValues(key *string, in *model.GatewayReturnInput) url.Values {
	values := url.Values{}
	if key != nil && *key != "" {
		values.Set("key", *key)
	}
	if in == nil {
		return values
	}

	values.Set(payment.ReturnMarker, "1")
	for name, v := range map[string]*string{
		"error":             in.Error,
		"error_description": in.ErrorDescription,
		"postback":          in.Postback,
	} {
		if v != nil && *v != "" {
			values.Set(name, *v)
		}
	}
	return values
}

// payError turns a checkout failure into a message that is safe to show.
func payError(ctx context.Context, orderID string, err error) error {
	switch {
	case errors.Is(err, payment.ErrMissingOrderID):
		return errors.New("invalid order id")
	case errors.Is(err, order.ErrOrderNotFound):
		return errors.New("order not found")
	case errors.Is(err, payment.ErrGatewayUnavailable):
		return errors.New("payment method unavailable")
	case errors.Is(err, order.ErrAlreadyPaid):
		return errors.New("order does not need payment")
	}

	logger.FromCtx(ctx).Error("payment processing failed", zap.String("order_id", orderID), zap.Error(err))
	return errors.New(payment.GenericErrorNotice)
}

// --- MUTATIONS ---

func (r *mutationResolver) Pay(ctx context.Context, orderID string, key *string) (*model.PaymentResult, error) {
	var k string
	if key != nil {
		k = *key
	}

	res, err := r.Checkout.StartPayment(ctx, orderID, k)
	if err != nil {
		return nil, payError(ctx, orderID, err)
	}

	out := &model.PaymentResult{
		Result:  res.Result,
		Notices: toGraphQLNotices(transport.Notices(ctx)),
	}
	if res.Redirect != "" {
		out.Redirect = &res.Redirect
	}
	return out, nil
}

// --- QUERIES ---

func (r *queryResolver) OrderReceived(ctx context.Context, orderID string, key *string, gatewayReturn *model.GatewayReturnInput) (*model.OrderReceipt, error) {
	o, err := r.Checkout.Receipt(ctx, payment.ReturnParams{
		OrderID: orderID,
		Values:  returnValues(key, gatewayReturn),
	})
	if err != nil {
		logger.FromCtx(ctx).Warn("order received lookup failed", zap.String("order_id", orderID), zap.Error(err))
		return nil, errors.New(payment.GenericOrderFailedMsg)
	}

	return toGraphQLReceipt(o, transport.Notices(ctx)), nil
}
