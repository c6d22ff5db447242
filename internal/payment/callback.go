package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"dwolla-gateway/internal/logger"
	"dwolla-gateway/internal/order"
	"dwolla-gateway/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CallbackState string

const (
	StateReceived      CallbackState = "received"
	StateParsed        CallbackState = "parsed"
	StateOrderResolved CallbackState = "order-resolved"
	StateVerified      CallbackState = "verified"
	StateApplied       CallbackState = "applied"

	// terminal early exits
	StateRejected    CallbackState = "rejected"
	StateFailedOrder CallbackState = "failed-order"
	StateDuplicate   CallbackState = "duplicate"
)

// CallbackOutcome is where a callback ended up. Only an applied callback is
// acknowledged to the processor.
type CallbackOutcome struct {
	State        CallbackState
	Kind         ErrorKind
	Reason       string
	OrderID      uint
	Notification *CallbackNotification
}

func (o CallbackOutcome) Acknowledge() bool {
	return o.State == StateApplied
}

type callbackPayload struct {
	CheckoutID    flexString          `json:"CheckoutId"`
	ClearingDate  flexString          `json:"ClearingDate"`
	Signature     flexString          `json:"Signature"`
	TransactionID flexString          `json:"TransactionId"`
	Amount        decimal.NullDecimal `json:"Amount"`
	OrderID       flexString          `json:"OrderId"`
	Error         flexString          `json:"Error"`
}

// ParseCallback decodes a notification body. A missing or non-numeric order
// id yields ErrMissingOrderID.
func ParseCallback(body []byte) (*CallbackNotification, error) {
	var p callbackPayload
	if err := json.Unmarshal(bytes.TrimSpace(body), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	n := &CallbackNotification{
		CheckoutID:    string(p.CheckoutID),
		ClearingDate:  orDefault(string(p.ClearingDate), notApplicable),
		Signature:     string(p.Signature),
		TransactionID: orDefault(string(p.TransactionID), notApplicable),
		Amount:        decimal.Zero,
		Error:         strings.TrimSpace(string(p.Error)),
	}
	if p.Amount.Valid {
		n.Amount = p.Amount.Decimal
	}

	id, err := utils.ToUint(strings.TrimSpace(string(p.OrderID)))
	if err != nil || id == 0 {
		return n, ErrMissingOrderID
	}
	n.OrderID = id

	return n, nil
}

// HandleCallback validates an inbound notification and applies it to its
// order. Every gate is final: the first failing one ends processing. It never
// returns an error; the outcome says whether to acknowledge.
func (g *Gateway) HandleCallback(ctx context.Context, body []byte) (outcome CallbackOutcome) {
	log := logger.FromCtx(ctx)
	outcome = CallbackOutcome{State: StateReceived}

	defer func() {
		g.metrics.Counter("callbacks_" + string(outcome.State)).Inc()
		g.recordCallback(ctx, body, outcome)
		if g.observer != nil {
			g.observer(ctx, outcome)
		}
	}()

	n, err := ParseCallback(body)
	if err != nil {
		if errors.Is(err, ErrMissingOrderID) {
			g.sink.Log(ctx, "Order ID Missing")
		} else {
			log.Warn("callback JSON decode failed", zap.Error(err))
		}
		return reject(outcome, KindValidation, err.Error())
	}
	outcome.State = StateParsed
	outcome.Notification = n
	outcome.OrderID = n.OrderID

	ctx = logger.With(ctx, zap.String("checkout_id", n.CheckoutID))
	log = logger.FromCtx(ctx).With(zap.Uint("order_id", n.OrderID))
	g.sink.Log(ctx, "Callback Vars", zap.ByteString("body", body))

	o, err := g.orders.Get(ctx, n.OrderID)
	if err != nil {
		log.Warn("callback order lookup failed", zap.Error(err))
		kind := KindTransport
		if errors.Is(err, order.ErrOrderNotFound) {
			kind = KindValidation
		}
		return reject(outcome, kind, err.Error())
	}
	outcome.State = StateOrderResolved

	// the processor reported an error: no signature to check
	if n.Error != "" {
		return g.failOrder(ctx, outcome, o, KindBusiness, n.Error)
	}

	if !VerifySignature(n.CheckoutID, n.Amount, g.cfg.AppSecret, n.Signature) {
		log.Warn("callback signature mismatch")
		return g.failOrder(ctx, outcome, o, KindValidation, msgSignatureMismatch)
	}

	if !AmountsEqual(o.Total, n.Amount) {
		log.Warn("callback amount mismatch",
			zap.String("order_total", FormatAmount(o.Total)),
			zap.String("amount", FormatAmount(n.Amount)),
		)
		return g.failOrder(ctx, outcome, o, KindValidation, msgAmountMismatch)
	}
	outcome.State = StateVerified

	if !o.NeedsPayment() {
		log.Info("order is already complete, aborting", zap.String("status", string(o.Status)))
		return duplicate(outcome)
	}

	note := fmt.Sprintf("Dwolla Payment completed, transaction ID: %s, expected clearing date: %s",
		n.TransactionID, n.ClearingDate)
	meta := []order.Meta{
		{Key: "Dwolla Checkout ID", Value: n.CheckoutID},
		{Key: "Dwolla Transaction ID", Value: n.TransactionID},
		{Key: "Dwolla Signature", Value: n.Signature},
	}

	// CompletePayment re-checks NeedsPayment under the order lock, so two
	// concurrent copies of one callback cannot both pay the order.
	if err := g.orders.CompletePayment(ctx, o.ID, note, meta); err != nil {
		if errors.Is(err, order.ErrAlreadyPaid) {
			log.Info("order was completed concurrently, aborting")
			return duplicate(outcome)
		}
		log.Error("failed to apply payment", zap.Error(err))
		return reject(outcome, KindTransport, err.Error())
	}

	log.Info("Dwolla payment completed", zap.String("transaction_id", n.TransactionID))
	outcome.State = StateApplied
	return outcome
}

func reject(o CallbackOutcome, kind ErrorKind, reason string) CallbackOutcome {
	o.State = StateRejected
	o.Kind = kind
	o.Reason = reason
	return o
}

// failOrder marks the order failed and ends processing. If the failure
// cannot be stored the order is unchanged and the callback is rejected.
func (g *Gateway) failOrder(ctx context.Context, out CallbackOutcome, o *order.Order, kind ErrorKind, reason string) CallbackOutcome {
	if err := g.MarkFailed(ctx, o, reason); err != nil {
		return reject(out, KindTransport, fmt.Sprintf("%s: %v", reason, err))
	}

	out.State = StateFailedOrder
	out.Kind = kind
	out.Reason = reason
	return out
}

func duplicate(o CallbackOutcome) CallbackOutcome {
	o.State = StateDuplicate
	o.Kind = KindBusiness
	o.Reason = "order does not need payment"
	return o
}

func (g *Gateway) recordCallback(ctx context.Context, body []byte, outcome CallbackOutcome) {
	if g.callbacks == nil {
		return
	}

	rec := CallbackRecord{
		Provider: "DWOLLA",
		OrderID:  outcome.OrderID,
		State:    outcome.State,
		Kind:     outcome.Kind,
		Reason:   outcome.Reason,
		Payload:  string(body),
	}
	if n := outcome.Notification; n != nil {
		rec.CheckoutID = n.CheckoutID
		rec.TransactionID = n.TransactionID
	}

	if _, err := g.callbacks.SaveCallback(ctx, rec); err != nil {
		logger.FromCtx(ctx).Error("failed to record callback", zap.Error(err))
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
