package payment

import (
	"context"
	"fmt"

	"dwolla-gateway/internal/logger"
	"dwolla-gateway/internal/order"
	"dwolla-gateway/internal/transport"

	"go.uber.org/zap"
)

// MarkFailed moves the order to failed with a note explaining why. An order
// that is already failed only gets another note, so repeated attempts stay
// visible in its history. The shopper sees a generic notice, never msg.
func (g *Gateway) MarkFailed(ctx context.Context, o *order.Order, msg string) error {
	log := logger.FromCtx(ctx).With(zap.Uint("order_id", o.ID))
	note := fmt.Sprintf("Dwolla Payment Failed (%s)", msg)

	var err error
	if !o.HasStatus(order.StatusFailed) {
		err = g.orders.UpdateStatus(ctx, o.ID, order.StatusFailed, note)
		if err == nil {
			o.Status = order.StatusFailed
		}
	} else {
		err = g.orders.AddNote(ctx, o.ID, note)
	}

	transport.AddNotice(ctx, transport.NoticeError, GenericErrorNotice)

	if err != nil {
		log.Error("failed to record payment failure", zap.String("reason", msg), zap.Error(err))
		return err
	}

	log.Info("order marked as failed", zap.String("reason", msg))
	return nil
}
