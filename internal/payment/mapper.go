package payment

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"dwolla-gateway/internal/order"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BuildRequest maps an order onto the processor's request schema. It has no
// side effects besides the debug sink; the optional request transform runs
// last.
func (g *Gateway) BuildRequest(ctx context.Context, o *order.Order) *PaymentRequest {
	req := &PaymentRequest{
		Key:      g.cfg.AppKey,
		Secret:   g.cfg.AppSecret,
		Callback: g.CallbackURL(),
		Redirect: g.ReturnURL(o),
		OrderID:  o.ID,
		PurchaseOrder: PurchaseOrder{
			CustomerInfo: CustomerInfo{
				FirstName: o.Billing.FirstName,
				LastName:  o.Billing.LastName,
				Email:     o.Billing.Email,
				City:      o.Billing.City,
				State:     o.Billing.State,
				Zip:       o.Billing.Postcode,
			},
			DestinationID: g.cfg.AccountID,
			// line item prices already carry cart discounts
			Discount:   FormatAmount(decimal.Zero),
			Shipping:   FormatAmount(o.ShippingTotal),
			Tax:        FormatAmount(o.TaxTotal),
			Total:      FormatAmount(o.Total),
			Notes:      fmt.Sprintf("%s - Order %s", g.site.Name, o.OrderNumber()),
			OrderItems: lineItems(o),
		},
	}

	if g.cfg.TestMode {
		req.Test = "true"
	}
	if g.cfg.GuestCheckout {
		req.AllowFundingSources = "true"
	}

	if g.transform != nil {
		g.transform(ctx, req, o)
	}

	g.sink.Log(ctx, "Dwolla data", zap.ByteString("request", redact(req)))
	return req
}

func lineItems(o *order.Order) []LineItem {
	items := make([]LineItem, 0, len(o.Items)+len(o.Fees))

	for _, it := range o.Items {
		name := it.SKU
		if name == "" {
			name = it.ProductTitle
		}
		items = append(items, LineItem{
			Name:        name,
			Description: it.ProductTitle,
			Price:       FormatAmount(it.UnitPrice),
			Quantity:    it.Quantity,
		})
	}

	for _, fee := range o.Fees {
		items = append(items, LineItem{
			Name:        fee.Name,
			Description: feeFallback,
			Price:       FormatAmount(fee.Total),
			Quantity:    1,
		})
	}

	return items
}

// CallbackURL is the webhook endpoint the processor notifies.
func (g *Gateway) CallbackURL() string {
	q := url.Values{}
	q.Set("gateway", gatewayID)
	return g.site.URL + callbackPath + "?" + q.Encode()
}

// ReturnURL is the order's thank-you page carrying the marker that tells the
// return handler the shopper came back from the processor.
func (g *Gateway) ReturnURL(o *order.Order) string {
	q := url.Values{}
	if o.OrderKey != "" {
		q.Set("key", o.OrderKey)
	}
	q.Set(ReturnMarker, "1")
	return g.site.URL + returnPath + strconv.FormatUint(uint64(o.ID), 10) + "?" + q.Encode()
}
