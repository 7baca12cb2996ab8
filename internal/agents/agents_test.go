package agents

import (
	"context"
	"time"

	"tradedesk/internal/core"
)

// fakeClock returns a fixed, manually advanced time.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// fakeGateway is a configurable in-memory core.Gateway.
type fakeGateway struct {
	placeOrderFn func(core.OrderRequest) (core.OrderResult, error)
	closeFn      func(pair string, amount float64) (core.OrderResult, error)

	balance    core.Balance
	balanceErr error

	marketData core.MarketData
	marketErr  error

	gatewayHealthy bool
	gatewayErr     error

	connectorAvailable bool
	connectorErr       error

	positions    []core.Position
	positionsErr error
}

func (g *fakeGateway) PlaceOrder(_ context.Context, req core.OrderRequest) (core.OrderResult, error) {
	if g.placeOrderFn != nil {
		return g.placeOrderFn(req)
	}
	return core.OrderResult{Success: true, OrderID: "order-1"}, nil
}

func (g *fakeGateway) GetBalance(context.Context, string) (core.Balance, error) {
	return g.balance, g.balanceErr
}

func (g *fakeGateway) GetPositions(context.Context, string, string) ([]core.Position, error) {
	return g.positions, g.positionsErr
}

func (g *fakeGateway) ClosePosition(_ context.Context, _, pair string, amount float64) (core.OrderResult, error) {
	if g.closeFn != nil {
		return g.closeFn(pair, amount)
	}
	return core.OrderResult{Success: true, OrderID: "close-1"}, nil
}

func (g *fakeGateway) GetMarketData(context.Context, string, string) (core.MarketData, error) {
	return g.marketData, g.marketErr
}

func (g *fakeGateway) CheckGatewayStatus(context.Context) (core.GatewayStatus, error) {
	return core.GatewayStatus{Healthy: g.gatewayHealthy}, g.gatewayErr
}

func (g *fakeGateway) CheckConnectorStatus(context.Context, string) (core.ConnectorStatus, error) {
	return core.ConnectorStatus{Available: g.connectorAvailable}, g.connectorErr
}

// fakeStore is an in-memory core.AuditStore.
type fakeStore struct {
	sessions  map[string]core.SessionMeta
	decisions []core.DecisionRecord

	ensureErr error
	appendErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[string]core.SessionMeta)}
}

func (s *fakeStore) EnsureSession(_ context.Context, sessionID string, meta core.SessionMeta) error {
	if s.ensureErr != nil {
		return s.ensureErr
	}
	s.sessions[sessionID] = meta
	return nil
}

func (s *fakeStore) AppendDecision(_ context.Context, rec core.DecisionRecord) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.decisions = append(s.decisions, rec)
	return nil
}

func (s *fakeStore) Close() error { return nil }

func testState(now time.Time) *core.SessionState {
	return core.NewSessionState("sess-test", "crypto", "BTC-USDT", 10000, 3.0, 1.0, now)
}

func testDeps(gw core.Gateway, clock core.Clock) Deps {
	return Deps{
		Gateway:   gw,
		Clock:     clock,
		Connector: "binance",
		Timeout:   time.Second,
	}
}
