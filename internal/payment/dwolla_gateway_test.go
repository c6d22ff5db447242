package payment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dwolla-gateway/internal/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubClient(status int, body string, err error) *http.Client {
	return &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if err != nil {
			return nil, err
		}
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     make(http.Header),
			Request:    r,
		}, nil
	})}
}

func TestGateway_Submit(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		err         error
		wantResult  string
		wantMessage string
		wantKind    ErrorKind
		wantID      string
	}{
		{
			name:       "Success",
			status:     http.StatusOK,
			body:       `{"Result":"Success","CheckoutId":"CHK1"}`,
			wantResult: ResultSuccess,
			wantID:     "CHK1",
		},
		{
			name:        "ProcessorFailure",
			status:      http.StatusOK,
			body:        `{"Result":"Failure","Message":"Invalid destination"}`,
			wantResult:  ResultFailure,
			wantMessage: "Invalid destination",
			wantKind:    KindBusiness,
		},
		{
			name:        "TransportError",
			err:         errors.New("connection reset by peer"),
			wantResult:  ResultFailure,
			wantMessage: "connection reset by peer",
			wantKind:    KindTransport,
		},
		{
			name:        "EmptyBody",
			status:      http.StatusOK,
			body:        "  ",
			wantResult:  ResultFailure,
			wantMessage: "response body missing",
			wantKind:    KindMalformedResponse,
		},
		{
			name:        "NotJSON",
			status:      http.StatusBadGateway,
			body:        "<html>bad gateway</html>",
			wantResult:  ResultFailure,
			wantMessage: "response JSON missing Result",
			wantKind:    KindMalformedResponse,
		},
		{
			name:        "ResultMissing",
			status:      http.StatusOK,
			body:        `{"CheckoutId":"CHK1"}`,
			wantResult:  ResultFailure,
			wantMessage: "response JSON missing Result",
			wantKind:    KindMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGateway(t, order.NewMemoryRepository(), WithHTTPClient(stubClient(tt.status, tt.body, tt.err)))
			req := g.BuildRequest(context.Background(), pendingOrder())

			res := g.Submit(context.Background(), req)

			require.NotNil(t, res)
			assert.Equal(t, tt.wantResult, res.Result)
			assert.Equal(t, tt.wantID, res.CheckoutID)
			assert.Contains(t, res.Message, tt.wantMessage)
			assert.Equal(t, tt.wantKind, res.Kind)
		})
	}
}

func TestGateway_Submit_SendsJSON(t *testing.T) {
	var got PaymentRequest
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"Result":"Success","CheckoutId":"CHK9"}`))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Endpoint = srv.URL
	g := NewGateway(cfg, testSite(), order.NewMemoryRepository(), nil, WithHTTPClient(srv.Client()))

	res := g.Submit(context.Background(), g.BuildRequest(context.Background(), pendingOrder()))

	assert.True(t, res.Succeeded())
	assert.Equal(t, "CHK9", res.CheckoutID)
	assert.Equal(t, uint(7), got.OrderID)
	assert.Equal(t, "25.00", got.PurchaseOrder.Total)
	assert.Equal(t, uint64(1), g.Metrics().Counter("submissions_total").Load())
}

func TestGateway_Submit_DoesNotFollowRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Endpoint = srv.URL
	g := NewGateway(cfg, testSite(), order.NewMemoryRepository(), nil)

	res := g.Submit(context.Background(), g.BuildRequest(context.Background(), pendingOrder()))

	assert.False(t, res.Succeeded())
	assert.Equal(t, KindMalformedResponse, res.Kind)
}

func TestGateway_Submit_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Endpoint = srv.URL
	cfg.Timeout = 20 * time.Millisecond
	g := NewGateway(cfg, testSite(), order.NewMemoryRepository(), nil)

	res := g.Submit(context.Background(), g.BuildRequest(context.Background(), pendingOrder()))

	assert.False(t, res.Succeeded())
	assert.Equal(t, KindTransport, res.Kind)
	assert.Equal(t, uint64(1), g.Metrics().Counter("submissions_failed").Load())
}
