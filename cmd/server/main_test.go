package main

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dwolla-gateway/internal/checkout"
	"dwolla-gateway/internal/config"
	"dwolla-gateway/internal/graph"
	"dwolla-gateway/internal/middleware"
	"dwolla-gateway/internal/order"
	"dwolla-gateway/internal/payment"
	"dwolla-gateway/internal/payment/webhook"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func testRoutes(t *testing.T, repo *order.MemoryRepository) (routes, *payment.Gateway) {
	t.Helper()

	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"Result":"Success","CheckoutId":"CHK1"}`)),
			Header:     make(http.Header),
			Request:    r,
		}, nil
	})}

	gw := payment.NewGateway(
		config.GatewayConfig{AccountID: "812", AppKey: "key", AppSecret: "s3cret", CheckoutURL: "https://dwolla.test/checkout/"},
		payment.Site{URL: "https://shop.example.com", Name: "Shop"},
		repo,
		nil,
		payment.WithHTTPClient(client),
	)

	svc := checkout.NewService(gw, repo)
	return routes{
		checkout:   checkout.NewHandler(svc),
		graphql:    graph.NewHandler(&graph.Resolver{Checkout: svc}),
		webhook:    webhook.NewWebhookHandler(gw).PaymentWebhookHandler,
		metrics:    gw.Metrics(),
		limiter:    middleware.NewRateLimiter(""),
		jwtSecret:  []byte("jwt"),
		playground: true,
	}, gw
}

func pendingOrder() *order.Order {
	return &order.Order{
		ID:       7,
		OrderKey: "wc_order_abc",
		Status:   order.StatusPending,
		Total:    decimal.RequireFromString("25.00"),
	}
}

func TestSetupRouter(t *testing.T) {
	rt, _ := testRoutes(t, order.NewMemoryRepository(pendingOrder()))
	router := setupRouter(rt)

	t.Run("Health Check", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/health", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "OK")
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	})

	t.Run("Checkout", func(t *testing.T) {
		body := `{"query":"mutation { pay(orderId: \"7\", key: \"wc_order_abc\") { result redirect } }"}`
		req, _ := http.NewRequest("POST", "/query", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"data":{"pay":{"result":"success","redirect":"https://dwolla.test/checkout/CHK1"}}}`, rr.Body.String())
	})

	t.Run("Playground", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/playground", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Metrics", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/metrics", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		var snap map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
		assert.Equal(t, float64(1), snap["submissions_total"])
	})
}

func TestPaymentFlow(t *testing.T) {
	repo := order.NewMemoryRepository(pendingOrder())
	rt, gw := testRoutes(t, repo)

	srv := httptest.NewServer(setupRouter(rt))
	defer srv.Close()

	sig := payment.Sign("CHK1", decimal.RequireFromString("25.00"), "s3cret")
	callback := func(signature string) (*http.Response, error) {
		body := fmt.Sprintf(`{"CheckoutId":"CHK1","Amount":25.00,"Signature":%q,"OrderId":7,"TransactionId":"TX1"}`, signature)
		return http.Post(srv.URL+"/webhook/payment?gateway=dwolla", "application/json", strings.NewReader(body))
	}

	t.Run("ValidCallbackIsAcknowledged", func(t *testing.T) {
		resp, err := callback(sig)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		o, _ := repo.Get(context.Background(), 7)
		assert.Equal(t, order.StatusPaid, o.Status)
	})

	t.Run("ReplayIsNotAcknowledged", func(t *testing.T) {
		resp, err := callback(sig)
		if resp != nil {
			resp.Body.Close()
		}
		assert.Error(t, err)
		assert.Equal(t, uint64(1), gw.Metrics().Counter("callbacks_duplicate").Load())
	})

	t.Run("ThankYouPage", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/checkout/order-received/7?key=wc_order_abc&dwolla=1")
		require.NoError(t, err)
		defer resp.Body.Close()

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "paid", body["status"])
	})
}

func TestCallbackBurst(t *testing.T) {
	const n = 8

	orders := make([]*order.Order, 0, n)
	for i := 1; i <= n; i++ {
		orders = append(orders, &order.Order{
			ID:     uint(i),
			Status: order.StatusPending,
			Total:  decimal.RequireFromString("25.00"),
		})
	}
	repo := order.NewMemoryRepository(orders...)
	rt, _ := testRoutes(t, repo)

	srv := httptest.NewServer(setupRouter(rt))
	defer srv.Close()

	for i := 1; i <= n; i++ {
		checkoutID := fmt.Sprintf("CHK%d", i)
		sig := payment.Sign(checkoutID, decimal.RequireFromString("25.00"), "s3cret")
		body := fmt.Sprintf(`{"CheckoutId":%q,"Amount":25.00,"Signature":%q,"OrderId":%d,"TransactionId":"TX%d"}`,
			checkoutID, sig, i, i)

		resp, err := http.Post(srv.URL+"/webhook/payment?gateway=dwolla", "application/json", strings.NewReader(body))
		require.NoError(t, err, "callback %d", i)
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode, "callback %d", i)
		assert.Empty(t, b, "callback %d", i)

		o, err := repo.Get(context.Background(), uint(i))
		require.NoError(t, err)
		assert.Equal(t, order.StatusPaid, o.Status, "order %d", i)
	}
}

func TestNewServer(t *testing.T) {
	db, err := sql.Open("mock_driver_main", "")
	assert.NoError(t, err)

	cfg := &config.Config{
		AppPort: "8080",
		AppEnv:  "test",
		SiteURL: "https://shop.example.com",
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	router := newServer(ctx, cfg, db)

	assert.NotNil(t, router)
	req, _ := http.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

// --- Mock Driver for Testing ---
type mockDriver struct{}

func (m *mockDriver) Open(name string) (driver.Conn, error)         { return &mockConn{}, nil }
func (c *mockConn) Prepare(query string) (driver.Stmt, error)       { return &mockStmt{}, nil }
func (c *mockConn) Close() error                                    { return nil }
func (c *mockConn) Begin() (driver.Tx, error)                       { return nil, nil }
func (s *mockStmt) Close() error                                    { return nil }
func (s *mockStmt) NumInput() int                                   { return 0 }
func (s *mockStmt) Exec(args []driver.Value) (driver.Result, error) { return nil, nil }
func (s *mockStmt) Query(args []driver.Value) (driver.Rows, error)  { return nil, nil }

type mockConn struct{}
type mockStmt struct{}

func init() {
	sql.Register("mock_driver_main", &mockDriver{})
}

func TestRun(t *testing.T) {
	origInitDB := initDBFunc
	defer func() { initDBFunc = origInitDB }()
	initDBFunc = func(cfg *config.Config) *sql.DB {
		db, _ := sql.Open("mock_driver_main", "")
		return db
	}

	origStartServer := startServerFunc
	defer func() { startServerFunc = origStartServer }()
	startServerFunc = func(srv *http.Server) error {
		assert.Equal(t, ":8080", srv.Addr)
		return http.ErrServerClosed
	}

	t.Setenv("APP_PORT", "8080")
	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "user")
	t.Setenv("DB_PASSWORD", "pass")
	t.Setenv("DB_NAME", "db")

	assert.NoError(t, run())
}
