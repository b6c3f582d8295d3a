package usecase

import (
	"context"
	"fmt"
	"time"

	domrepo "TradePilot/internal/domain/repository"
	"TradePilot/pkg/cache"
	"TradePilot/pkg/logger"
	"TradePilot/pkg/queue"
)

// ScanJobType routes queued scan requests to the ScanJob handler.
const ScanJobType = "market.scan"

// scanResultKey holds the latest completed scan for the API to serve.
const scanResultKey = "tradepilot:scan:latest"

// ScanJobPayload is the queued request for a background multi-symbol scan.
type ScanJobPayload struct {
	Symbols   []string `json:"symbols"`
	N         int      `json:"n"`
	Timeframe string   `json:"timeframe"`
}

// ScanJob runs the multi-symbol pipeline off the request path. The API
// enqueues a payload, a queue worker picks it up and parks the ranked
// decisions in the cache.
type ScanJob struct {
	pipeline *SignalPipeline
	cache    cache.Service
	ttl      time.Duration
	log      *logger.Logger
}

func NewScanJob(pipeline *SignalPipeline, c cache.Service, ttl time.Duration, log *logger.Logger) *ScanJob {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ScanJob{pipeline: pipeline, cache: c, ttl: ttl, log: log}
}

func (j *ScanJob) Name() string { return "market_scan" }

func (j *ScanJob) Type() string { return ScanJobType }

func (j *ScanJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[ScanJobPayload](payload)
	if err != nil {
		return fmt.Errorf("parse scan payload: %w", err)
	}
	if len(p.Symbols) == 0 {
		return nil
	}

	start := time.Now()
	decisions := j.pipeline.GenerateSignals(ctx, p.Symbols, p.N, domrepo.NormalizeTimeframe(p.Timeframe))

	if j.cache != nil {
		if err := j.cache.Set(ctx, scanResultKey, decisions, j.ttl); err != nil {
			return fmt.Errorf("cache scan result: %w", err)
		}
	}
	if j.log != nil {
		j.log.Info("market scan complete",
			logger.Int("symbols", len(p.Symbols)),
			logger.Int("actionable", len(decisions)),
			logger.Duration("took", time.Since(start)),
		)
	}
	return nil
}

// LatestScan returns the most recent cached scan result, if any.
func LatestScan(ctx context.Context, c cache.Service) ([]Decision, bool) {
	if c == nil {
		return nil, false
	}
	var out []Decision
	if err := c.Get(ctx, scanResultKey, &out); err != nil {
		return nil, false
	}
	return out, true
}

var _ queue.Job = (*ScanJob)(nil)
