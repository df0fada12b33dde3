package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/davidbz/tollbooth/internal/billing"
	"github.com/davidbz/tollbooth/internal/domain"
	"github.com/davidbz/tollbooth/internal/observability"
)

const maxBodyBytes = 1 << 20

// RuleCache is the invalidation surface of the rule loader.
type RuleCache interface {
	ClearCache(serviceID string)
	ClearAll()
}

// Handler handles HTTP requests.
type Handler struct {
	billing *billing.Service
	rules   RuleCache
	rates   domain.RateProvider
	metrics *observability.Metrics
}

// NewHandler creates a new HTTP handler (DI constructor). rates and metrics
// may be nil.
func NewHandler(
	service *billing.Service,
	rules RuleCache,
	rates domain.RateProvider,
	metrics *observability.Metrics,
) *Handler {
	return &Handler{
		billing: service,
		rules:   rules,
		rates:   rates,
		metrics: metrics,
	}
}

// QuoteRequest describes one request to be costed.
type QuoteRequest struct {
	ServiceID   string         `json:"serviceId"`
	AssetID     string         `json:"assetId,omitempty"`
	Operation   string         `json:"operation,omitempty"`
	Path        string         `json:"path,omitempty"`
	Method      string         `json:"method,omitempty"`
	Model       string         `json:"model,omitempty"`
	Usage       map[string]any `json:"usage,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`
	Units       any            `json:"units,omitempty"`
	ClientTxRef string         `json:"clientTxRef,omitempty"`
}

// QuoteResponse is the costed result. Amounts are decimal strings so that
// values beyond 2^53 survive JSON clients.
type QuoteResponse struct {
	RuleID          string              `json:"ruleId"`
	Strategy        string              `json:"strategy,omitempty"`
	Deferred        bool                `json:"deferred"`
	Phase           billing.Phase       `json:"phase"`
	AuthRequired    bool                `json:"authRequired,omitempty"`
	AdminOnly       bool                `json:"adminOnly,omitempty"`
	PaymentRequired bool                `json:"paymentRequired,omitempty"`
	USDCost         string              `json:"usdCost,omitempty"`
	Cost            string              `json:"cost,omitempty"`
	Conversion      *ConversionResponse `json:"conversion,omitempty"`
}

// ConversionResponse is the provenance of an asset conversion.
type ConversionResponse struct {
	AssetID        string     `json:"assetId"`
	AssetCost      string     `json:"assetCost"`
	Price          string     `json:"price,omitempty"`
	PriceTimestamp *time.Time `json:"priceTimestamp,omitempty"`
	Provider       string     `json:"provider,omitempty"`
	Convention     string     `json:"convention"`
	Stale          bool       `json:"stale,omitempty"`
}

// InvalidateRequest selects the service whose caches are dropped. An empty
// service id clears everything.
type InvalidateRequest struct {
	ServiceID string `json:"serviceId"`
}

// HandleQuote resolves, classifies and, when possible, costs a request.
// A deferred rule without units or usage is only classified.
func (h *Handler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req QuoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	if req.ServiceID == "" {
		writeError(w, http.StatusBadRequest, "serviceId is required")
		return
	}

	ctx = observability.WithServiceID(ctx, req.ServiceID)
	logger := observability.FromContext(ctx)

	var units *big.Int
	if req.Units != nil {
		parsed, err := domain.ParseAmount(req.Units)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid units: %v", err))
			return
		}
		units = parsed
	}

	engine, err := h.billing.Engine(req.ServiceID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bc := &domain.BillingContext{
		ServiceID: req.ServiceID,
		AssetID:   req.AssetID,
		Operation: req.Operation,
		Meta: domain.Meta{
			Path:        req.Path,
			Method:      req.Method,
			Model:       req.Model,
			Usage:       req.Usage,
			Units:       units,
			ClientTxRef: req.ClientTxRef,
			Attributes:  req.Attributes,
		},
	}
	if bc.Operation == "" && req.Method != "" {
		bc.Operation = req.Method + ":" + req.Path
	}

	rule, err := engine.ResolveRule(ctx, bc)
	if err != nil {
		logger.Warn("quote rule resolution failed", observability.Error(err))
		writeError(w, statusFor(err), err.Error())
		return
	}

	phase, err := engine.Classify(rule)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	resp := QuoteResponse{
		RuleID:          rule.ID,
		Deferred:        phase == billing.PhaseDeferred,
		Phase:           phase,
		AuthRequired:    rule.AuthRequired,
		AdminOnly:       rule.AdminOnly,
		PaymentRequired: rule.PaymentRequired,
	}

	if resp.Deferred && units == nil && len(req.Usage) == 0 {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	result, err := engine.QuoteByRule(ctx, bc, rule, units)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	resp.Strategy = result.Strategy
	resp.USDCost = result.USDCost.String()
	resp.Cost = result.Cost.String()
	resp.Conversion = conversionResponse(result.Conversion)

	logger.Info("quote computed",
		observability.String("rule_id", rule.ID),
		observability.String("cost", resp.Cost))

	writeJSON(w, http.StatusOK, resp)
}

// HandleInvalidate drops cached rule documents and compiled strategies.
func (h *Handler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	var req InvalidateRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	if req.ServiceID == "" {
		h.rules.ClearAll()
	} else {
		h.rules.ClearCache(req.ServiceID)
	}
	h.billing.ClearStrategyCache(req.ServiceID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated", "serviceId": req.ServiceID})
}

// HandleClearRate drops the cached price and metadata for one asset.
func (h *Handler) HandleClearRate(w http.ResponseWriter, r *http.Request) {
	if h.rates == nil {
		writeError(w, http.StatusNotFound, "no rate provider configured")
		return
	}

	assetID := r.PathValue("assetId")
	if assetID == "" {
		writeError(w, http.StatusBadRequest, "assetId is required")
		return
	}

	h.rates.ClearCache(assetID)
	w.WriteHeader(http.StatusNoContent)
}

// HandleHealth handles health check requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// MetricsHandler serves Prometheus metrics.
func (h *Handler) MetricsHandler() http.Handler {
	if h.metrics == nil {
		return http.NotFoundHandler()
	}
	return h.metrics.Handler()
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUsageRequired), errors.Is(err, domain.ErrInvalidUsage):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConfigNotFound),
		errors.Is(err, domain.ErrInvalidConfig),
		errors.Is(err, domain.ErrServiceMismatch),
		errors.Is(err, domain.ErrNoRuleMatched),
		errors.Is(err, domain.ErrUnknownStrategy):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrRateNotFound),
		errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrRateStale),
		errors.Is(err, domain.ErrDecimalsUnknown):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func conversionResponse(c *domain.ConversionResult) *ConversionResponse {
	if c == nil {
		return nil
	}

	resp := &ConversionResponse{
		AssetID:    c.AssetID,
		AssetCost:  c.AssetCost.String(),
		Provider:   c.Provider,
		Convention: string(c.Convention),
		Stale:      c.Stale,
	}
	if c.Price != nil {
		resp.Price = c.Price.String()
	}
	if !c.PriceTimestamp.IsZero() {
		ts := c.PriceTimestamp
		resp.PriceTimestamp = &ts
	}
	return resp
}

// decodeJSON decodes numbers as json.Number so large usage values keep
// their precision.
func decodeJSON(r *http.Request, out any) error {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(http.MaxBytesReader(nil, r.Body, maxBodyBytes)); err != nil {
		return err
	}

	dec := json.NewDecoder(&buf)
	dec.UseNumber()
	return dec.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Status is already written; encoding errors can only be dropped.
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
