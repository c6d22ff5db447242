package payment

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"dwolla-gateway/internal/cart"
	"dwolla-gateway/internal/config"
	"dwolla-gateway/internal/logger"
	"dwolla-gateway/internal/metrics"
	"dwolla-gateway/internal/order"

	"go.uber.org/zap"
)

const (
	callbackPath  = "/webhook/payment"
	returnPath    = "/checkout/order-received/"
	gatewayID     = "dwolla"
	ReturnMarker  = "dwolla"
	feeFallback   = "Order Fee"
	notApplicable = "N/A"
)

// RequestTransform may adjust the assembled request before it is submitted.
type RequestTransform func(ctx context.Context, req *PaymentRequest, o *order.Order)

// ResultObserver is told about every processed callback.
type ResultObserver func(ctx context.Context, outcome CallbackOutcome)

// Site describes the shop the gateway is installed on.
type Site struct {
	URL  string
	Name string
}

// Gateway routes checkout through the processor's hosted checkout and
// applies its callbacks to orders. One instance serves all requests; it
// holds no per-request state.
type Gateway struct {
	cfg        config.GatewayConfig
	site       Site
	orders     order.Repository
	carts      cart.Service
	callbacks  Repository
	httpClient *http.Client
	sink       *logger.Sink
	metrics    *metrics.Registry
	transform  RequestTransform
	observer   ResultObserver
}

type Option func(*Gateway)

func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.httpClient = c }
}

// WithCallbackRepository enables the callback audit log.
func WithCallbackRepository(r Repository) Option {
	return func(g *Gateway) { g.callbacks = r }
}

func WithMetrics(m *metrics.Registry) Option {
	return func(g *Gateway) { g.metrics = m }
}

func WithRequestTransform(fn RequestTransform) Option {
	return func(g *Gateway) { g.transform = fn }
}

func WithResultObserver(fn ResultObserver) Option {
	return func(g *Gateway) { g.observer = fn }
}

func NewGateway(cfg config.GatewayConfig, site Site, orders order.Repository, carts cart.Service, opts ...Option) *Gateway {
	if !cfg.Available() {
		logger.L().Warn("Dwolla gateway credentials are incomplete, checkout is disabled")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}

	g := &Gateway{
		cfg:        cfg,
		site:       site,
		orders:     orders,
		carts:      carts,
		httpClient: newHTTPClient(timeout),
		sink:       logger.NewSink(cfg.Debug),
		metrics:    metrics.NewRegistry(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (g *Gateway) Metrics() *metrics.Registry {
	return g.metrics
}

// Submit posts the payment request to the processor. It never returns an
// error: every failure is folded into a Failure result carrying a message.
func (g *Gateway) Submit(ctx context.Context, req *PaymentRequest) *TransactionResult {
	log := logger.FromCtx(ctx).With(zap.Uint("order_id", req.OrderID))
	timer := metrics.StartTimer()
	defer func() { g.metrics.Observe("submit", timer.Duration()) }()
	g.metrics.Counter("submissions_total").Inc()

	result := g.submit(ctx, req, log)
	if !result.Succeeded() {
		g.metrics.Counter("submissions_failed").Inc()
		log.Warn("Dwolla payment request failed",
			zap.String("kind", string(result.Kind)),
			zap.String("message", result.Message),
		)
		return result
	}

	log.Info("Dwolla checkout created", zap.String("checkout_id", result.CheckoutID))
	return result
}

func (g *Gateway) submit(ctx context.Context, req *PaymentRequest, log *zap.Logger) *TransactionResult {
	body, err := json.Marshal(req)
	if err != nil {
		log.Error("Failed to marshal payment request", zap.Error(err))
		return failure(KindMalformedResponse, err.Error())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		log.Error("Failed creating request", zap.Error(err))
		return failure(KindTransport, err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	g.sink.Log(ctx, "Dwolla request", zap.ByteString("body", redact(req)))

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		log.Error("Dwolla request failed", zap.Bool("timeout", isTimeout(err)), zap.Error(err))
		return failure(KindTransport, err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("Failed to read response body", zap.Error(err))
		return failure(KindTransport, err.Error())
	}

	g.sink.Log(ctx, "Dwolla response",
		zap.Int("status", resp.StatusCode),
		zap.ByteString("body", raw),
	)

	if len(bytes.TrimSpace(raw)) == 0 {
		return failure(KindMalformedResponse, msgBodyMissing)
	}

	var parsed struct {
		Result     *string `json:"Result"`
		CheckoutID string  `json:"CheckoutId"`
		Message    string  `json:"Message"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed.Result == nil {
		return failure(KindMalformedResponse, msgResultMissing)
	}

	result := &TransactionResult{
		Result:     *parsed.Result,
		CheckoutID: parsed.CheckoutID,
		Message:    parsed.Message,
	}
	if !result.Succeeded() {
		result.Kind = KindBusiness
	}
	return result
}

// redact returns the request JSON with the application secret masked.
func redact(req *PaymentRequest) []byte {
	c := *req
	if c.Secret != "" {
		c.Secret = "********"
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil
	}
	return b
}

// isTimeout reports whether a transport error came from the client deadline.
func isTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}
