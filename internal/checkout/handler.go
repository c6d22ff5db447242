package checkout

import (
	"net/http"

	"dwolla-gateway/internal/logger"
	"dwolla-gateway/internal/order"
	"dwolla-gateway/internal/payment"
	"dwolla-gateway/internal/transport"
	"dwolla-gateway/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the order-received page the hosted checkout sends the
// shopper's browser back to.
type Handler struct {
	Checkout *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{Checkout: s}
}

type orderReceivedResponse struct {
	OrderID uint               `json:"order_id"`
	Number  string             `json:"number"`
	Status  order.Status       `json:"status"`
	Total   string             `json:"total"`
	Notices []transport.Notice `json:"notices,omitempty"`
}

func (h *Handler) OrderReceived(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := payment.ReturnParams{
		OrderID: chi.URLParam(r, "orderID"),
		Values:  r.URL.Query(),
	}

	o, err := h.Checkout.Receipt(ctx, params)
	if err != nil {
		logger.FromCtx(ctx).Warn("order received page failed", zap.String("order_id", params.OrderID), zap.Error(err))
		utils.WriteJSONError(w, payment.GenericOrderFailedMsg, http.StatusBadRequest)
		return
	}

	utils.WriteJSON(w, orderReceivedResponse{
		OrderID: o.ID,
		Number:  o.OrderNumber(),
		Status:  o.Status,
		Total:   payment.FormatAmount(o.Total),
		Notices: transport.Notices(ctx),
	}, http.StatusOK)
}
