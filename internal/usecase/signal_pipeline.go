package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"TradePilot/internal/domain/models"
	domrepo "TradePilot/internal/domain/repository"
	domsvc "TradePilot/internal/domain/service"
	"TradePilot/pkg/cache"
	"TradePilot/pkg/logger"
)

// Decision is the full outcome of one pipeline run for a symbol.
type Decision struct {
	Signal     models.TradeSignal    `json:"signal"`
	Assessment models.RiskAssessment `json:"assessment"`
}

// SignalPipeline is the orchestrator: snapshot → analyzer fan-out → fusion →
// risk gate → publish. One run is independent of any other; there is no
// cross-symbol state.
type SignalPipeline struct {
	market    domrepo.MarketData
	analyzers []domsvc.Analyzer
	fuser     *SignalFuser
	gate      *RiskGate
	publisher domrepo.SignalPublisher
	metrics   domrepo.Metrics
	cache     cache.Service
	log       *logger.Logger

	analyzerTimeout time.Duration
	cacheTTL        time.Duration
}

type PipelineOption func(*SignalPipeline)

func WithAnalyzerTimeout(d time.Duration) PipelineOption {
	return func(p *SignalPipeline) { p.analyzerTimeout = d }
}

// WithDecisionCache caches whole decisions per symbol so repeated requests
// within ttl return the recommendation a dashboard already showed.
func WithDecisionCache(c cache.Service, ttl time.Duration) PipelineOption {
	return func(p *SignalPipeline) {
		p.cache = c
		p.cacheTTL = ttl
	}
}

func NewSignalPipeline(
	market domrepo.MarketData,
	analyzers []domsvc.Analyzer,
	fuser *SignalFuser,
	gate *RiskGate,
	publisher domrepo.SignalPublisher,
	metrics domrepo.Metrics,
	log *logger.Logger,
	opts ...PipelineOption,
) *SignalPipeline {
	p := &SignalPipeline{
		market:          market,
		analyzers:       analyzers,
		fuser:           fuser,
		gate:            gate,
		publisher:       publisher,
		metrics:         metrics,
		log:             log,
		analyzerTimeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GenerateSignalParams parameterizes one pipeline run.
type GenerateSignalParams struct {
	Symbol    string
	Quantity  int
	N         int
	Timeframe domrepo.Timeframe
}

// GenerateSignal runs the full pipeline for one symbol. Only infrastructure
// faults (no market data at all) surface as errors; every analytical failure
// is absorbed into the decision itself.
func (p *SignalPipeline) GenerateSignal(ctx context.Context, params GenerateSignalParams) (Decision, error) {
	if params.Symbol == "" {
		return Decision{}, fmt.Errorf("symbol required")
	}
	if params.N <= 0 {
		params.N = 100
	}
	if params.Timeframe == "" {
		params.Timeframe = domrepo.DefaultTimeframe()
	}

	if d, ok := p.cachedDecision(ctx, params); ok {
		return d, nil
	}

	start := time.Now()
	snap, err := p.market.Snapshot(ctx, params.Symbol, params.N, params.Timeframe)
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordError("snapshot")
		}
		return Decision{}, fmt.Errorf("market snapshot %s: %w", params.Symbol, err)
	}

	signals := p.fanOut(ctx, snap)
	fused := p.fuser.Fuse(snap.Symbol, snap.CurrentPrice, signals)
	fused.Quantity = params.Quantity

	assessment := p.gate.Validate(ctx, fused, snap)
	decision := Decision{Signal: fused, Assessment: assessment}

	if p.metrics != nil {
		p.metrics.RecordSignal(fused.Symbol, string(fused.Action), assessment.IsApproved)
		p.metrics.RecordLatency("pipeline", time.Since(start).Seconds())
	}
	if assessment.IsApproved && fused.Action != models.ActionHold && p.publisher != nil {
		if err := p.publisher.PublishSignal(ctx, fused, assessment); err != nil {
			// publishing is best effort, the caller still gets the decision
			if p.metrics != nil {
				p.metrics.RecordError("publish_signal")
			}
			if p.log != nil {
				p.log.Error("publish approved signal", logger.String("symbol", fused.Symbol), logger.Error(err))
			}
		}
	}

	p.storeDecision(ctx, params, decision)
	return decision, nil
}

// GenerateSignals runs the pipeline per symbol, drops HOLD decisions and
// returns the rest sorted by confidence, strongest first.
func (p *SignalPipeline) GenerateSignals(ctx context.Context, symbols []string, n int, tf domrepo.Timeframe) []Decision {
	out := make([]Decision, 0, len(symbols))
	for _, symbol := range symbols {
		d, err := p.GenerateSignal(ctx, GenerateSignalParams{Symbol: symbol, N: n, Timeframe: tf})
		if err != nil {
			if p.log != nil {
				p.log.Warn("scan skipped symbol", logger.String("symbol", symbol), logger.Error(err))
			}
			continue
		}
		if d.Signal.Action == models.ActionHold {
			continue
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Signal.Confidence > out[j].Signal.Confidence
	})
	return out
}

// fanOut runs every analyzer concurrently under its own timeout. An analyzer
// that misses the deadline contributes the degenerate HOLD, so one slow
// dimension cannot stall the decision.
func (p *SignalPipeline) fanOut(ctx context.Context, snap models.MarketSnapshot) []models.TradeSignal {
	type item struct {
		idx int
		sig models.TradeSignal
	}
	ch := make(chan item, len(p.analyzers))
	var wg sync.WaitGroup
	for i, a := range p.analyzers {
		wg.Add(1)
		go func(i int, a domsvc.Analyzer) {
			defer wg.Done()
			actx, cancel := context.WithTimeout(ctx, p.analyzerTimeout)
			defer cancel()

			done := make(chan models.TradeSignal, 1)
			go func() { done <- a.Analyze(actx, snap) }()
			select {
			case sig := <-done:
				ch <- item{i, sig}
			case <-actx.Done():
				if p.metrics != nil {
					p.metrics.RecordAnalyzerFallback(a.Name())
				}
				sig := models.HoldSignal(snap.Symbol, a.Name()+" analysis timed out")
				sig.Source = a.Name()
				ch <- item{i, sig}
			}
		}(i, a)
	}
	go func() { wg.Wait(); close(ch) }()

	signals := make([]models.TradeSignal, len(p.analyzers))
	for it := range ch {
		signals[it.idx] = it.sig
	}
	return signals
}

func (p *SignalPipeline) cacheKey(params GenerateSignalParams) string {
	return fmt.Sprintf("tradepilot:decision:%s:%d:%s", params.Symbol, params.Quantity, params.Timeframe)
}

func (p *SignalPipeline) cachedDecision(ctx context.Context, params GenerateSignalParams) (Decision, bool) {
	if p.cache == nil {
		return Decision{}, false
	}
	var d Decision
	if err := p.cache.Get(ctx, p.cacheKey(params), &d); err != nil {
		return Decision{}, false
	}
	return d, true
}

func (p *SignalPipeline) storeDecision(ctx context.Context, params GenerateSignalParams, d Decision) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Set(ctx, p.cacheKey(params), d, p.cacheTTL); err != nil && p.log != nil {
		p.log.Debug("cache decision", logger.String("symbol", params.Symbol), logger.Error(err))
	}
}
