package webhook

import (
	"context"
	"io"
	"net/http"

	"dwolla-gateway/internal/logger"
	"dwolla-gateway/internal/payment"

	"go.uber.org/zap"
)

const maxCallbackBody = 64 << 10

// CallbackProcessor is satisfied by *payment.Gateway.
type CallbackProcessor interface {
	HandleCallback(ctx context.Context, body []byte) payment.CallbackOutcome
}

type Handler struct {
	Processor CallbackProcessor
}

func NewWebhookHandler(p CallbackProcessor) *Handler {
	return &Handler{Processor: p}
}

// PaymentWebhookHandler answers an acknowledged callback with a bare 200.
// Anything else closes the connection without a response so the processor
// retries the notification.
func (h *Handler) PaymentWebhookHandler(w http.ResponseWriter, r *http.Request) {
	log := logger.FromCtx(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCallbackBody))
	if err != nil {
		log.Warn("failed to read callback body", zap.Error(err))
		abort(w)
		return
	}
	defer r.Body.Close()

	outcome := h.Processor.HandleCallback(r.Context(), body)
	if !outcome.Acknowledge() {
		log.Info("callback not acknowledged",
			zap.String("state", string(outcome.State)),
			zap.String("kind", string(outcome.Kind)),
			zap.String("reason", outcome.Reason),
		)
		abort(w)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// abort drops the connection. When the writer cannot be hijacked the
// server's own abort path is used.
func abort(w http.ResponseWriter) {
	conn, _, err := http.NewResponseController(w).Hijack()
	if err != nil {
		panic(http.ErrAbortHandler)
	}
	conn.Close()
}
