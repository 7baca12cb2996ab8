// Package gateway implements the broker gateway collaborator over
// HTTP with basic auth. Non-2xx responses and transport failures
// surface as typed domain errors; callers apply the degraded-fallback
// rule.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tradedesk/internal/core"
	"tradedesk/internal/logging"
)

// pricePrecision is the decimal precision prices are serialized with.
const pricePrecision = 8

// Config configures the gateway client.
type Config struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
	Logger   *logging.Logger
}

// Client talks to the broker gateway. It implements core.Gateway.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	log      *logging.Logger
}

// New creates a gateway client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		http:     &http.Client{Timeout: cfg.Timeout},
		log:      cfg.Logger,
	}
}

var _ core.Gateway = (*Client)(nil)

// PlaceOrder submits an order. Amounts and prices are quantized to the
// gateway's decimal precision before serialization.
func (c *Client) PlaceOrder(ctx context.Context, req core.OrderRequest) (core.OrderResult, error) {
	body := map[string]any{
		"connector":  req.Connector,
		"pair":       req.Pair,
		"side":       req.Side,
		"amount":     decimal.NewFromFloat(req.Amount).String(),
		"order_type": req.OrderType,
	}
	if req.OrderType == "limit" {
		body["price"] = decimal.NewFromFloat(req.Price).Round(pricePrecision).String()
	}

	var resp struct {
		Success bool           `json:"success"`
		OrderID string         `json:"order_id"`
		Raw     map[string]any `json:"raw"`
	}
	if err := c.do(ctx, http.MethodPost, "/orders", body, &resp); err != nil {
		return core.OrderResult{}, err
	}
	if !resp.Success {
		return core.OrderResult{Raw: resp.Raw}, core.ErrGateway(core.CodeOrderRejected, "order rejected")
	}
	return core.OrderResult{Success: true, OrderID: resp.OrderID, Raw: resp.Raw}, nil
}

// GetBalance fetches the account balance for a connector.
func (c *Client) GetBalance(ctx context.Context, connector string) (core.Balance, error) {
	var resp struct {
		Balance  float64 `json:"balance"`
		Currency string  `json:"currency"`
	}
	path := "/balance?connector=" + url.QueryEscape(connector)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return core.Balance{}, err
	}
	return core.Balance{Balance: resp.Balance, Currency: resp.Currency}, nil
}

// GetPositions fetches open positions, optionally filtered by pair.
func (c *Client) GetPositions(ctx context.Context, connector, pair string) ([]core.Position, error) {
	var resp struct {
		Positions []struct {
			Pair       string  `json:"pair"`
			Side       string  `json:"side"`
			Amount     float64 `json:"amount"`
			EntryPrice float64 `json:"entry_price"`
		} `json:"positions"`
	}
	path := "/positions?connector=" + url.QueryEscape(connector)
	if pair != "" {
		path += "&pair=" + url.QueryEscape(pair)
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	positions := make([]core.Position, 0, len(resp.Positions))
	for _, p := range resp.Positions {
		positions = append(positions, core.Position{
			Pair:       p.Pair,
			Side:       p.Side,
			Amount:     p.Amount,
			EntryPrice: p.EntryPrice,
		})
	}
	return positions, nil
}

// ClosePosition closes an open position, fully when amount is zero.
func (c *Client) ClosePosition(ctx context.Context, connector, pair string, amount float64) (core.OrderResult, error) {
	body := map[string]any{
		"connector": connector,
		"pair":      pair,
	}
	if amount > 0 {
		body["amount"] = decimal.NewFromFloat(amount).String()
	}

	var resp struct {
		Success bool   `json:"success"`
		OrderID string `json:"order_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/positions/close", body, &resp); err != nil {
		return core.OrderResult{}, err
	}
	if !resp.Success {
		return core.OrderResult{}, core.ErrGateway(core.CodeGatewayRejected, "close rejected")
	}
	return core.OrderResult{Success: true, OrderID: resp.OrderID}, nil
}

// GetMarketData fetches the current price for a pair.
func (c *Client) GetMarketData(ctx context.Context, connector, pair string) (core.MarketData, error) {
	var resp struct {
		Price     float64 `json:"price"`
		Timestamp int64   `json:"timestamp"`
	}
	path := "/market/price?connector=" + url.QueryEscape(connector) + "&pair=" + url.QueryEscape(pair)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return core.MarketData{}, err
	}

	ts := time.Now()
	if resp.Timestamp > 0 {
		ts = time.UnixMilli(resp.Timestamp)
	}
	return core.MarketData{Pair: pair, Price: resp.Price, Timestamp: ts}, nil
}

// CheckGatewayStatus probes overall gateway health.
func (c *Client) CheckGatewayStatus(ctx context.Context) (core.GatewayStatus, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return core.GatewayStatus{}, err
	}
	return core.GatewayStatus{
		Healthy: resp.Status == "ok" || resp.Status == "healthy",
		Raw:     map[string]any{"status": resp.Status},
	}, nil
}

// CheckConnectorStatus probes a single connector.
func (c *Client) CheckConnectorStatus(ctx context.Context, connector string) (core.ConnectorStatus, error) {
	var resp struct {
		Available bool `json:"available"`
	}
	path := "/connectors/" + url.PathEscape(connector) + "/status"
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return core.ConnectorStatus{}, err
	}
	return core.ConnectorStatus{Available: resp.Available}, nil
}

// do performs one request/response round trip with basic auth and JSON
// bodies.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return core.ErrGateway(core.CodeGatewayRejected, "encoding request").WithCause(err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return core.ErrGateway(core.CodeGatewayRejected, "building request").WithCause(err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return core.ErrTimeout("gateway call timed out").WithCause(err)
		}
		return core.ErrGateway(core.CodeGatewayUnreachable, "gateway unreachable").WithCause(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return core.ErrGateway(core.CodeGatewayUnreachable, "reading response").WithCause(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("gateway returned error status",
			"method", method, "path", path, "status", resp.StatusCode)
		return core.ErrGateway(core.CodeGatewayRejected,
			fmt.Sprintf("unexpected status %d", resp.StatusCode)).
			WithDetail("body", string(data))
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return core.ErrGateway(core.CodeGatewayRejected, "decoding response").WithCause(err)
		}
	}
	return nil
}
