package http_test

import (
	"encoding/json"
	"math/big"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/tollbooth/internal/billing"
	"github.com/davidbz/tollbooth/internal/config"
	"github.com/davidbz/tollbooth/internal/converter"
	"github.com/davidbz/tollbooth/internal/domain"
	"github.com/davidbz/tollbooth/internal/http"
	"github.com/davidbz/tollbooth/internal/http/middleware"
	"github.com/davidbz/tollbooth/internal/observability"
	"github.com/davidbz/tollbooth/internal/rate"
	"github.com/davidbz/tollbooth/internal/ruleset"
	"github.com/davidbz/tollbooth/internal/strategy"
)

const rgas = "0x3::gas_coin::RGas"

const llmRules = `
version: 1
serviceId: llm
rules:
  - id: chat
    when:
      path: /v1/chat/completions
    strategy:
      type: PerToken
      unitPricePicoUSD: 2000000000
    paymentRequired: true
  - id: priced
    when:
      path: /v1/price
    strategy:
      type: PerRequest
      price: 11
  - id: default
    default: true
    strategy:
      type: PerRequest
      price: 1000
`

type testEnv struct {
	routes nethttp.Handler
	loader *ruleset.Loader
	rates  *rate.CachedProvider
	source ruleset.MapSource
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	reg, err := strategy.NewBuiltinRegistry()
	require.NoError(t, err)

	metrics := observability.NewMetrics()
	source := ruleset.MapSource{"llm": []byte(llmRules)}
	loader, err := ruleset.NewLoader(source, reg, ruleset.WithMetrics(metrics))
	require.NoError(t, err)

	fetcher := rate.NewStaticFetcher()
	fetcher.SetPrice(rgas, big.NewInt(5), 8)

	rates, err := rate.NewCachedProvider(fetcher, rate.Config{TTL: time.Minute, MaxRetries: 0})
	require.NoError(t, err)

	conv, err := converter.NewConverter(rates, domain.PerMinUnit)
	require.NoError(t, err)

	svc, err := billing.NewService(loader, reg, billing.WithConverter(conv), billing.WithMetrics(metrics))
	require.NoError(t, err)

	handler := http.NewHandler(svc, loader, rates, metrics)
	server := http.NewServer(&config.ServerConfig{Port: 0}, handler,
		middleware.BuildMiddlewareChain(&config.CORSConfig{AllowedOrigins: []string{"*"}}))

	return &testEnv{routes: server.Routes(), loader: loader, rates: rates, source: source}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *nethttp.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	e.routes.ServeHTTP(rec, req)
	return rec
}

func decodeQuote(t *testing.T, rec *httptest.ResponseRecorder) http.QuoteResponse {
	t.Helper()

	var resp http.QuoteResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestHandleQuote(t *testing.T) {
	env := newTestEnv(t)

	t.Run("should quote an immediate rule", func(t *testing.T) {
		rec := env.do(t, nethttp.MethodPost, "/v1/billing/quote", `{"serviceId":"llm","path":"/other"}`)
		require.Equal(t, nethttp.StatusOK, rec.Code)
		require.NotEmpty(t, rec.Header().Get(middleware.HeaderRequestID))

		resp := decodeQuote(t, rec)
		require.Equal(t, "default", resp.RuleID)
		require.Equal(t, billing.PhaseImmediate, resp.Phase)
		require.False(t, resp.Deferred)
		require.Equal(t, "1000", resp.Cost)
		require.Equal(t, "1000", resp.USDCost)
		require.Nil(t, resp.Conversion)
	})

	t.Run("should classify a deferred rule without usage", func(t *testing.T) {
		rec := env.do(t, nethttp.MethodPost, "/v1/billing/quote", `{"serviceId":"llm","path":"/v1/chat/completions"}`)
		require.Equal(t, nethttp.StatusOK, rec.Code)

		resp := decodeQuote(t, rec)
		require.Equal(t, "chat", resp.RuleID)
		require.True(t, resp.Deferred)
		require.Equal(t, billing.PhaseDeferred, resp.Phase)
		require.True(t, resp.PaymentRequired)
		require.Empty(t, resp.Cost)
	})

	t.Run("should settle a deferred rule with usage", func(t *testing.T) {
		rec := env.do(t, nethttp.MethodPost, "/v1/billing/quote",
			`{"serviceId":"llm","path":"/v1/chat/completions","usage":{"total_tokens":150}}`)
		require.Equal(t, nethttp.StatusOK, rec.Code)

		resp := decodeQuote(t, rec)
		require.Equal(t, "300000000000", resp.Cost)
		require.Equal(t, strategy.TypePerToken, resp.Strategy)
	})

	t.Run("should settle a deferred rule with units", func(t *testing.T) {
		rec := env.do(t, nethttp.MethodPost, "/v1/billing/quote",
			`{"serviceId":"llm","path":"/v1/chat/completions","units":"150"}`)
		require.Equal(t, nethttp.StatusOK, rec.Code)
		require.Equal(t, "300000000000", decodeQuote(t, rec).Cost)
	})

	t.Run("should convert to the requested asset", func(t *testing.T) {
		rec := env.do(t, nethttp.MethodPost, "/v1/billing/quote",
			`{"serviceId":"llm","path":"/v1/price","assetId":"`+rgas+`"}`)
		require.Equal(t, nethttp.StatusOK, rec.Code)

		resp := decodeQuote(t, rec)
		require.Equal(t, "11", resp.USDCost)
		require.Equal(t, "3", resp.Cost)
		require.NotNil(t, resp.Conversion)
		require.Equal(t, "5", resp.Conversion.Price)
		require.Equal(t, "static", resp.Conversion.Provider)
		require.Equal(t, "per_min_unit", resp.Conversion.Convention)
	})
}

func TestHandleQuote_Errors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "malformed body", body: `{`, status: nethttp.StatusBadRequest},
		{name: "missing service", body: `{"path":"/x"}`, status: nethttp.StatusBadRequest},
		{name: "unknown service", body: `{"serviceId":"ghost"}`, status: nethttp.StatusUnprocessableEntity},
		{name: "invalid units", body: `{"serviceId":"llm","units":"-1"}`, status: nethttp.StatusBadRequest},
		{name: "zero units", body: `{"serviceId":"llm","path":"/other","units":"0"}`, status: nethttp.StatusBadRequest},
		{
			name:   "malformed usage",
			body:   `{"serviceId":"llm","path":"/v1/chat/completions","usage":{"total_tokens":"lots"}}`,
			status: nethttp.StatusBadRequest,
		},
		{
			name:   "unknown asset",
			body:   `{"serviceId":"llm","path":"/v1/price","assetId":"0x1::unknown::Coin"}`,
			status: nethttp.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, nethttp.MethodPost, "/v1/billing/quote", tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			var body map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			require.NotEmpty(t, body["error"])
		})
	}
}

func TestHandleInvalidate(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, nethttp.MethodPost, "/v1/billing/quote", `{"serviceId":"llm","path":"/other"}`)
	require.Equal(t, "1000", decodeQuote(t, rec).Cost)

	env.source["llm"] = []byte(strings.Replace(llmRules, "price: 1000", "price: 4000", 1))

	// Cached until invalidated.
	rec = env.do(t, nethttp.MethodPost, "/v1/billing/quote", `{"serviceId":"llm","path":"/other"}`)
	require.Equal(t, "1000", decodeQuote(t, rec).Cost)

	rec = env.do(t, nethttp.MethodPost, "/v1/billing/invalidate", `{"serviceId":"llm"}`)
	require.Equal(t, nethttp.StatusOK, rec.Code)

	rec = env.do(t, nethttp.MethodPost, "/v1/billing/quote", `{"serviceId":"llm","path":"/other"}`)
	require.Equal(t, "4000", decodeQuote(t, rec).Cost)

	rec = env.do(t, nethttp.MethodPost, "/v1/billing/invalidate", "")
	require.Equal(t, nethttp.StatusOK, rec.Code)
}

func TestHandleClearRate(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, nethttp.MethodPost, "/v1/billing/quote",
		`{"serviceId":"llm","path":"/v1/price","assetId":"`+rgas+`"}`)
	require.Equal(t, nethttp.StatusOK, rec.Code)

	_, ok := env.rates.GetLastUpdated(rgas)
	require.True(t, ok)

	rec = env.do(t, nethttp.MethodDelete, "/v1/rates/"+rgas, "")
	require.Equal(t, nethttp.StatusNoContent, rec.Code)

	_, ok = env.rates.GetLastUpdated(rgas)
	require.False(t, ok)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, nethttp.MethodGet, "/health", "")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	env.do(t, nethttp.MethodPost, "/v1/billing/quote", `{"serviceId":"llm","path":"/other"}`)

	rec = env.do(t, nethttp.MethodGet, "/metrics", "")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "billing_cost_calculations_total")

	rec = env.do(t, nethttp.MethodGet, "/v1/billing/quote", "")
	require.Equal(t, nethttp.StatusMethodNotAllowed, rec.Code)
}

func TestTrace_PreservesCallerRequestID(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(nethttp.MethodGet, "/health", nil)
	req.Header.Set(middleware.HeaderRequestID, "req-123")

	rec := httptest.NewRecorder()
	env.routes.ServeHTTP(rec, req)

	require.Equal(t, "req-123", rec.Header().Get(middleware.HeaderRequestID))
	require.NotEmpty(t, rec.Header().Get(middleware.HeaderTraceID))
}
