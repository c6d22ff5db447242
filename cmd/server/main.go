package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dwolla-gateway/internal/cart"
	"dwolla-gateway/internal/checkout"
	"dwolla-gateway/internal/config"
	"dwolla-gateway/internal/db"
	"dwolla-gateway/internal/graph"
	"dwolla-gateway/internal/logger"
	"dwolla-gateway/internal/metrics"
	"dwolla-gateway/internal/middleware"
	"dwolla-gateway/internal/order"
	"dwolla-gateway/internal/payment"
	"dwolla-gateway/internal/payment/webhook"
	"dwolla-gateway/internal/utils"

	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var (
	initDBFunc      = db.InitDB
	startServerFunc = func(srv *http.Server) error { return srv.ListenAndServe() }
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}

func run() error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := initDBFunc(cfg)
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           newServer(ctx, cfg, database),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("server running", zap.String("addr", srv.Addr))
		errCh <- startServerFunc(srv)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.L().Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type routes struct {
	checkout   *checkout.Handler
	graphql    http.Handler
	webhook    http.HandlerFunc
	metrics    *metrics.Registry
	limiter    *middleware.RateLimiter
	jwtSecret  []byte
	playground bool
}

func newServer(ctx context.Context, cfg *config.Config, database *sql.DB) http.Handler {
	orderRepo := order.NewRepository(database)
	cartSvc := cart.NewService(cart.NewRepository(database))

	gateway := payment.NewGateway(
		cfg.Gateway,
		payment.Site{URL: cfg.SiteURL, Name: cfg.SiteName},
		orderRepo,
		cartSvc,
		payment.WithCallbackRepository(payment.NewRepository(database)),
	)

	limiter := middleware.NewRateLimiter(cfg.InternalKey)
	go limiter.Cleanup(ctx)

	checkoutSvc := checkout.NewService(gateway, orderRepo)

	return setupRouter(routes{
		checkout:   checkout.NewHandler(checkoutSvc),
		graphql:    graph.NewHandler(&graph.Resolver{Checkout: checkoutSvc}),
		webhook:    webhook.NewWebhookHandler(gateway).PaymentWebhookHandler,
		metrics:    gateway.Metrics(),
		limiter:    limiter,
		jwtSecret:  []byte(cfg.JWTSecret),
		playground: cfg.AppEnv != "production",
	})
}

func setupRouter(rt routes) *chi.Mux {
	r := chi.NewRouter()
	r.Use(logger.RequestIDMiddleware)
	r.Use(logger.LoggingMiddleware)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// The processor delivers every notification from a handful of addresses,
	// so callbacks stay outside the per-client limiter.
	r.Post("/webhook/payment", rt.webhook)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(rt.jwtSecret))
		r.Use(rt.limiter.Middleware)
		r.Use(middleware.NoticesMiddleware)

		r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			utils.WriteJSON(w, rt.metrics.Snapshot(), http.StatusOK)
		})

		r.Handle("/query", rt.graphql)
		if rt.playground {
			r.Get("/playground", playground.Handler("GraphQL Playground", "/query"))
		}

		r.Get("/checkout/order-received/{orderID}", rt.checkout.OrderReceived)
	})

	return r
}
