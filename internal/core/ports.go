package core

import (
	"context"
	"time"
)

// OrderRequest describes an order to place through the gateway.
type OrderRequest struct {
	Connector string
	Pair      string
	Side      string // "buy" or "sell"
	Amount    float64
	OrderType string // "market" or "limit"
	Price     float64 // required for limit orders
}

// OrderResult is the gateway's response to a placed or closed order.
type OrderResult struct {
	Success bool
	OrderID string
	Raw     map[string]any
}

// Balance is the account balance for a connector.
type Balance struct {
	Balance  float64
	Currency string
}

// MarketData is a price snapshot for a trading pair.
type MarketData struct {
	Pair      string
	Price     float64
	Timestamp time.Time
}

// GatewayStatus reports overall gateway health.
type GatewayStatus struct {
	Healthy bool
	Raw     map[string]any
}

// ConnectorStatus reports availability of a single connector.
type ConnectorStatus struct {
	Available bool
	Raw       map[string]any
}

// Gateway is the broker/exchange collaborator. Every call is bounded
// by the context deadline; a non-success response surfaces as an
// error so callers apply the same degraded-fallback rule as for
// transport failures.
type Gateway interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	GetBalance(ctx context.Context, connector string) (Balance, error)
	GetPositions(ctx context.Context, connector, pair string) ([]Position, error)
	ClosePosition(ctx context.Context, connector, pair string, amount float64) (OrderResult, error)
	GetMarketData(ctx context.Context, connector, pair string) (MarketData, error)
	CheckGatewayStatus(ctx context.Context) (GatewayStatus, error)
	CheckConnectorStatus(ctx context.Context, connector string) (ConnectorStatus, error)
}

// DecisionRecord is one step's contribution persisted to the audit log.
type DecisionRecord struct {
	SessionID    string
	StepID       StepID
	Phase        Phase
	InputSummary string
	Output       map[string]any
	Status       string
	Timestamp    time.Time
}

// SessionMeta is the metadata stored when a session record is created.
type SessionMeta struct {
	Market         string
	Instrument     string
	InitialBalance float64
	StartTime      time.Time
}

// AuditStore is the persistence collaborator. Calls are fire-and-forget
// from the workflow's perspective: a failure is logged as an alert but
// never blocks or reverses a step's state update.
type AuditStore interface {
	EnsureSession(ctx context.Context, sessionID string, meta SessionMeta) error
	AppendDecision(ctx context.Context, rec DecisionRecord) error
	Close() error
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// RealClock is the production Clock backed by time.Now.
type RealClock struct{}

// Now returns the current wall-clock time.
func (RealClock) Now() time.Time { return time.Now() }
