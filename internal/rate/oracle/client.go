// Package oracle implements rate.Fetcher against an HTTP JSON price oracle.
//
// The oracle exposes two endpoints:
//
//	GET {base}/v1/prices/{assetId}  -> {"assetId", "pricePicoUSD", "timestamp"}
//	GET {base}/v1/assets/{assetId}  -> {"assetId", "decimals", "symbol", "name"}
//
// pricePicoUSD may carry a fractional part; it is rounded down so that the
// converted charge is never smaller than the exact amount.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/shopspring/decimal"

	"github.com/davidbz/tollbooth/internal/domain"
	"github.com/davidbz/tollbooth/internal/observability"
	"github.com/davidbz/tollbooth/internal/rate"
)

const (
	providerName    = "oracle"
	maxErrorBodyLen = 512
)

// Client wraps the HTTP client for oracle calls.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new oracle client.
func NewClient(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, errors.New("oracle base URL is required")
	}

	return &Client{
		apiKey:  config.APIKey,
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: time.Duration(config.Timeout) * time.Second,
		},
	}, nil
}

type priceResponse struct {
	AssetID      string          `json:"assetId"`
	PricePicoUSD json.RawMessage `json:"pricePicoUSD"`
	Timestamp    int64           `json:"timestamp"` // unix milliseconds
}

type assetResponse struct {
	AssetID  string `json:"assetId"`
	Decimals *int   `json:"decimals"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
}

// FetchPrice retrieves the current price for an asset.
func (c *Client) FetchPrice(ctx context.Context, assetID string) (rate.Quote, error) {
	var resp priceResponse
	if err := c.get(ctx, "/v1/prices/"+url.PathEscape(assetID), &resp); err != nil {
		return rate.Quote{}, err
	}

	price, err := parsePrice(resp.PricePicoUSD)
	if err != nil {
		return rate.Quote{}, fmt.Errorf("%w: %w", domain.ErrInvalidPrice, err)
	}

	quote := rate.Quote{Price: price}
	if resp.Timestamp > 0 {
		quote.Timestamp = time.UnixMilli(resp.Timestamp).UTC()
	}

	observability.FromContext(ctx).Debug("oracle price fetched",
		observability.String("price", price.String()))

	return quote, nil
}

// FetchAssetInfo retrieves metadata for an asset.
func (c *Client) FetchAssetInfo(ctx context.Context, assetID string) (domain.AssetInfo, error) {
	var resp assetResponse
	if err := c.get(ctx, "/v1/assets/"+url.PathEscape(assetID), &resp); err != nil {
		return domain.AssetInfo{}, err
	}

	if resp.Decimals == nil {
		return domain.AssetInfo{}, fmt.Errorf("oracle returned no decimals for %s", assetID)
	}

	info := domain.AssetInfo{
		AssetID:  resp.AssetID,
		Decimals: *resp.Decimals,
		Symbol:   resp.Symbol,
		Name:     resp.Name,
	}
	if info.AssetID == "" {
		info.AssetID = assetID
	}

	return info, nil
}

// Name returns the provider identifier recorded in conversion provenance.
func (c *Client) Name() string {
	return providerName
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// Unknown assets will not appear by retrying.
		return backoff.Permanent(fmt.Errorf("%w: oracle has no entry at %s", domain.ErrRateNotFound, path))
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		return fmt.Errorf("oracle returned status %d: %s", resp.StatusCode, string(body))
	}

	if decodeErr := json.NewDecoder(resp.Body).Decode(out); decodeErr != nil {
		return fmt.Errorf("failed to decode response: %w", decodeErr)
	}

	return nil
}

// parsePrice accepts a JSON number or string and rounds it down to a whole picoUSD.
func parsePrice(raw json.RawMessage) (*big.Int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, errors.New("price missing")
	}

	text := string(raw)
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		text = s
	}

	d, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return nil, fmt.Errorf("price %q is not numeric: %w", text, err)
	}

	floored := d.Floor()
	if floored.Sign() <= 0 {
		return nil, fmt.Errorf("price %s is not positive", d.String())
	}

	return floored.BigInt(), nil
}
