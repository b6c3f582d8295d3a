package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	models "TradePilot/internal/domain/models"
	domrepo "TradePilot/internal/domain/repository"
	icache "TradePilot/internal/service/cache"
	apimetrics "TradePilot/internal/service/metrics"
	"TradePilot/internal/service/ratelimit"
	"TradePilot/internal/usecase"
	"TradePilot/pkg/cache"
	xhttp "TradePilot/pkg/http"
	xlogger "TradePilot/pkg/logger"
	"TradePilot/pkg/queue"

	"github.com/labstack/echo/v4"
)

// HealthChecker reports per-dependency health for /api/health.
type HealthChecker func(ctx context.Context) map[string]string

// TradingHandler exposes the decision pipeline over HTTP.
type TradingHandler struct {
	logger    *xlogger.Logger
	pipeline  *usecase.SignalPipeline
	consensus *usecase.ConsensusAggregator
	risk      *usecase.PortfolioRiskUseCase
	candles   *usecase.CandlesUseCase
	market    domrepo.MarketData

	scanQueue queue.QueueService // nil disables background scans
	scanCache cache.Service
	respCache icache.BytesCache // short-TTL response cache for consensus
	rl        *ratelimit.Limiter
	health    HealthChecker
}

type TradingHandlerOption func(*TradingHandler)

func WithScanQueue(q queue.QueueService, c cache.Service) TradingHandlerOption {
	return func(h *TradingHandler) {
		h.scanQueue = q
		h.scanCache = c
	}
}

func WithResponseCache(c icache.BytesCache) TradingHandlerOption {
	return func(h *TradingHandler) { h.respCache = c }
}

func WithHealthChecker(fn HealthChecker) TradingHandlerOption {
	return func(h *TradingHandler) { h.health = fn }
}

func NewTradingHandler(
	logger *xlogger.Logger,
	pipeline *usecase.SignalPipeline,
	consensus *usecase.ConsensusAggregator,
	risk *usecase.PortfolioRiskUseCase,
	candles *usecase.CandlesUseCase,
	market domrepo.MarketData,
	opts ...TradingHandlerOption,
) *TradingHandler {
	apimetrics.Register()
	h := &TradingHandler{
		logger:    logger,
		pipeline:  pipeline,
		consensus: consensus,
		risk:      risk,
		candles:   candles,
		market:    market,
		rl:        ratelimit.New(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TradingHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/signal", h.Signal)
	g.GET("/signals", h.Signals)
	g.POST("/scan", h.EnqueueScan)
	g.GET("/scan/latest", h.LatestScan)
	g.GET("/consensus", h.Consensus)
	g.GET("/risk/metrics", h.RiskMetrics)
	g.GET("/candles", h.Candles)
	g.GET("/health", h.Health)
}

// Signal runs the full pipeline for one symbol.
func (h *TradingHandler) Signal(c echo.Context) error {
	start := time.Now()
	defer func() { apimetrics.APILatency.WithLabelValues("signal").Observe(time.Since(start).Seconds()) }()

	req := &models.SignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":signal", 10, 5) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limited")
	}

	d, err := h.pipeline.GenerateSignal(c.Request().Context(), usecase.GenerateSignalParams{
		Symbol:    req.Symbol,
		Quantity:  req.Quantity,
		N:         req.N,
		Timeframe: domrepo.NormalizeTimeframe(req.TF),
	})
	if err != nil {
		apimetrics.APIErrors.WithLabelValues("signal").Inc()
		h.logger.Error("signal pipeline error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if !d.Assessment.IsApproved {
		apimetrics.GateRejections.WithLabelValues(req.Symbol).Inc()
	}
	return xhttp.SuccessResponse(c, d)
}

// Signals runs the pipeline over a basket and returns actionable decisions
// ranked by confidence.
func (h *TradingHandler) Signals(c echo.Context) error {
	start := time.Now()
	defer func() { apimetrics.APILatency.WithLabelValues("signals").Observe(time.Since(start).Seconds()) }()

	req := &models.ScanRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":signals", 3, 1) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limited")
	}

	out := h.pipeline.GenerateSignals(c.Request().Context(), req.Symbols, req.N, domrepo.NormalizeTimeframe(req.TF))
	return xhttp.ListResponse(c, out, int64(len(out)))
}

// EnqueueScan schedules a background scan through the job queue.
func (h *TradingHandler) EnqueueScan(c echo.Context) error {
	if h.scanQueue == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "scan queue not configured")
	}
	req := &models.ScanRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	err := h.scanQueue.PublishMessage(c.Request().Context(), usecase.ScanJobType, usecase.ScanJobPayload{
		Symbols:   req.Symbols,
		N:         req.N,
		Timeframe: req.TF,
	})
	if err != nil {
		apimetrics.APIErrors.WithLabelValues("scan").Inc()
		h.logger.Error("enqueue scan error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.DataResponse(c, http.StatusAccepted, map[string]interface{}{
		"queued":  true,
		"symbols": len(req.Symbols),
	})
}

// LatestScan serves the most recent background scan result.
func (h *TradingHandler) LatestScan(c echo.Context) error {
	out, ok := usecase.LatestScan(c.Request().Context(), h.scanCache)
	if !ok {
		return xhttp.NotFoundResponse(c, "no scan completed yet")
	}
	return xhttp.ListResponse(c, out, int64(len(out)))
}

// Consensus runs the whole-strategy majority vote for one symbol.
func (h *TradingHandler) Consensus(c echo.Context) error {
	start := time.Now()
	defer func() { apimetrics.APILatency.WithLabelValues("consensus").Observe(time.Since(start).Seconds()) }()

	req := &models.ConsensusRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":consensus", 5, 2) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limited")
	}
	tf := domrepo.NormalizeTimeframe(req.TF)

	cacheKey := "consensus:" + req.Symbol + ":" + string(tf)
	if h.respCache != nil {
		if b, ok, err := h.respCache.GetBytes(cacheKey); err == nil && ok {
			var report models.ConsensusReport
			if err := json.Unmarshal(b, &report); err == nil {
				return xhttp.SuccessResponse(c, report)
			}
		}
	}

	snap, err := h.market.Snapshot(c.Request().Context(), req.Symbol, req.N, tf)
	if err != nil {
		apimetrics.APIErrors.WithLabelValues("consensus").Inc()
		h.logger.Error("consensus snapshot error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	report := h.consensus.Evaluate(c.Request().Context(), snap)

	if h.respCache != nil {
		if b, err := json.Marshal(report); err == nil {
			_ = h.respCache.SetBytes(cacheKey, b, 30*time.Second)
		}
	}
	return xhttp.SuccessResponse(c, report)
}

// RiskMetrics serves the portfolio-level risk view.
func (h *TradingHandler) RiskMetrics(c echo.Context) error {
	start := time.Now()
	defer func() { apimetrics.APILatency.WithLabelValues("risk_metrics").Observe(time.Since(start).Seconds()) }()

	risk, err := h.risk.Metrics(c.Request().Context())
	if err != nil {
		apimetrics.APIErrors.WithLabelValues("risk_metrics").Inc()
		h.logger.Error("risk metrics error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, risk)
}

// Candles serves raw OHLCV history.
func (h *TradingHandler) Candles(c echo.Context) error {
	req := &models.SignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	to := time.Now()
	from := to.AddDate(0, 0, -30)
	res, err := h.candles.GetCandles(c.Request().Context(), usecase.GetCandlesParams{
		Symbol:    req.Symbol,
		From:      from,
		To:        to,
		Timeframe: domrepo.NormalizeTimeframe(req.TF),
		Limit:     req.N,
	})
	if err != nil {
		apimetrics.APIErrors.WithLabelValues("candles").Inc()
		h.logger.Error("candles error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Health reports dependency health.
func (h *TradingHandler) Health(c echo.Context) error {
	status := map[string]string{"status": "ok"}
	if h.health != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		for k, v := range h.health(ctx) {
			status[k] = v
		}
	}
	code := http.StatusOK
	for _, v := range status {
		if v != "ok" && v != "" {
			code = http.StatusServiceUnavailable
			break
		}
	}
	return xhttp.DataResponse(c, code, status)
}

var _ xhttp.Handler = (*TradingHandler)(nil)
