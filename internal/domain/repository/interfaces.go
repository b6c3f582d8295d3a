package repository

import (
	"context"
	"time"

	"TradePilot/internal/domain/models"
)

// MarketStream is the live tick feed from the market-data vendor.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// MarketData supplies per-symbol snapshots for an analysis pass. An error
// (or empty series) makes the calling analyzer fall back to its HOLD
// contract; it never aborts the pipeline.
type MarketData interface {
	Snapshot(ctx context.Context, symbol string, n int, tf Timeframe) (models.MarketSnapshot, error)
	Condition(ctx context.Context) (models.MarketCondition, error)
}

// Portfolio supplies the read-only portfolio view for risk evaluation.
type Portfolio interface {
	State(ctx context.Context) (models.PortfolioState, error)
}

// TickPublisher pushes raw ticks to the message bus.
type TickPublisher interface {
	Publish(ctx context.Context, t *models.Tick) error
	PublishBatch(ctx context.Context, ticks []*models.Tick) error
	Close() error
}

// SignalPublisher emits approved trade signals for downstream (mock) order
// placement.
type SignalPublisher interface {
	PublishSignal(ctx context.Context, sig models.TradeSignal, assessment models.RiskAssessment) error
	Close() error
}

// TickStorage persists raw ticks.
type TickStorage interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, t *models.Tick) error
	StoreBatch(ctx context.Context, ticks []*models.Tick) error
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.Tick, error)
	Health(ctx context.Context) error
	Close() error
}

// Metrics is the pipeline's metrics sink.
type Metrics interface {
	RecordMessageSent(backend, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordSignal(symbol string, action string, approved bool)
	RecordAnalyzerFallback(analyzer string)
}
