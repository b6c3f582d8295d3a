package server

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"TradePilot/internal/domain/models"
	domrepo "TradePilot/internal/domain/repository"
	domsvc "TradePilot/internal/domain/service"
	"TradePilot/internal/handler/api"
	internalrepo "TradePilot/internal/repository"
	icache "TradePilot/internal/service/cache"
	"TradePilot/internal/services/analyzers"
	"TradePilot/internal/services/strategies"
	"TradePilot/internal/usecase"
	"TradePilot/pkg/cache"
	pkgch "TradePilot/pkg/clickhouse"
	"TradePilot/pkg/config"
	xhttp "TradePilot/pkg/http"
	pkgkafka "TradePilot/pkg/kafka"
	applogger "TradePilot/pkg/logger"
	"TradePilot/pkg/queue"
)

// App encapsulates the entire application lifecycle: the ingestion side
// (stream collector, Kafka consumer) and the analysis side (signal pipeline
// behind the HTTP API).
type App struct {
	cfg         *config.Config
	collector   *usecase.TickCollector
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	chClient    *pkgch.Client
	producer    *pkgkafka.Producer
	metrics     domrepo.Metrics
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
	TickProc    *usecase.TickProcessor

	redisCache *cache.RedisCache
	queue      *queue.RedisQueue
	signalPub  domrepo.SignalPublisher
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	collector *usecase.TickCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	metrics domrepo.Metrics,
) *App {
	return &App{
		cfg:       cfg,
		collector: collector,
		consumer:  consumer,
		kh:        kh,
		chClient:  chClient,
		producer:  producer,
		metrics:   metrics,
	}
}

// SetHTTPHandler allows tests to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l, _ := applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})

	if a.httpHandler == nil && a.chClient != nil {
		h, err := a.buildTradingHandler(l)
		if err != nil {
			l.Error("trading handler init error", applogger.Error(err))
			return err
		}
		a.httpHandler = h
	}

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	go func() {
		if err := a.collector.Start(ctx); err != nil {
			l.Error("collector error", applogger.Error(err))
		}
	}()
	l.Info("collector started", applogger.Strings("symbols", a.cfg.Finnhub.Symbols))

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			l.Error("queue start error", applogger.Error(err))
		} else {
			l.Info("queue workers started", applogger.Int("workers", a.cfg.Queue.Workers))
		}
	}

	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}
	l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx, l)
}

// buildTradingHandler assembles the analysis stack: market data over the
// candle store, the four analyzers, fuser, risk gate and the strategy
// consensus, all behind one HTTP handler.
func (a *App) buildTradingHandler(l *applogger.Logger) (xhttp.Handler, error) {
	store := internalrepo.NewCHCandleStore(a.chClient)
	store.SetLogger(l)

	market := internalrepo.NewCandleMarketData(store, a.cfg.Market.Basket)
	if a.TickProc != nil {
		a.TickProc.SetObserver(market.ObservePrice)
	}

	var model analyzers.ModelClient
	if a.cfg.ModelService.URL != "" {
		model = analyzers.NewHTTPModelClient(a.cfg.ModelService.URL, a.cfg.ModelService.Timeout)
	} else {
		model = analyzers.NewSimModelClient()
	}

	analyzerSet := []domsvc.Analyzer{
		analyzers.NewTechnicalAnalyzer(a.cfg.Analyzers.Technical),
		analyzers.NewFundamentalAnalyzer(a.cfg.Analyzers.Fundamental),
		analyzers.NewSentimentAnalyzer(a.cfg.Analyzers.Sentiment),
		analyzers.NewAIAnalyzer(model, a.cfg.Analyzers.AI),
	}

	fuser := usecase.NewSignalFuser(usecase.WithDecisionThreshold(a.cfg.Pipeline.DecisionThreshold))

	positions := make([]models.Position, 0, len(a.cfg.Portfolio.Positions))
	for _, p := range a.cfg.Portfolio.Positions {
		positions = append(positions, models.Position{Symbol: p.Symbol, Value: p.Value, Sector: p.Sector})
	}
	portfolio := internalrepo.NewStaticPortfolio(a.cfg.Portfolio.Value, positions)

	params := usecase.DefaultRiskParams()
	params.MaxPositionRatio = a.cfg.Risk.MaxPositionRatio
	params.MaxPortfolioRisk = a.cfg.Risk.MaxPortfolioRisk
	params.DailyLossLimit = a.cfg.Risk.DailyLossLimit
	params.MaxDrawdownLimit = a.cfg.Risk.MaxDrawdownLimit
	params.MaxVolatility = a.cfg.Risk.MaxVolatility
	params.LiquidityShare = a.cfg.Risk.LiquidityShare
	gate := usecase.NewRiskGate(portfolio, market, params, l)

	if a.producer != nil {
		a.signalPub = internalrepo.NewKafkaSignalPublisher(a.producer, a.cfg.Kafka.SignalsTopic)
	}

	pipeOpts := []usecase.PipelineOption{
		usecase.WithAnalyzerTimeout(a.cfg.Pipeline.AnalyzerTimeout),
	}
	var decisionCache cache.Service
	var respCache icache.BytesCache = icache.NewTTLCache()
	if a.cfg.Redis.Enabled {
		host, port, err := splitHostPort(a.cfg.Redis.Addr)
		if err != nil {
			return nil, err
		}
		rc, err := cache.NewRedisCache(
			cache.WithRedisHost(host),
			cache.WithRedisPort(port),
			cache.WithRedisPassword(a.cfg.Redis.Password),
			cache.WithRedisDB(a.cfg.Redis.DB),
		)
		if err != nil {
			// Redis is an accelerator, not a dependency
			l.Warn("redis unavailable, caching disabled", applogger.Error(err))
		} else {
			a.redisCache = rc
			decisionCache = cache.NewLayeredCache(rc)
			pipeOpts = append(pipeOpts, usecase.WithDecisionCache(decisionCache, a.cfg.Pipeline.CacheTTL))
			respCache = icache.NewRedisCache(icache.RedisConfig{
				Addr:     a.cfg.Redis.Addr,
				Password: a.cfg.Redis.Password,
				DB:       a.cfg.Redis.DB,
			})
		}
	}

	pipeline := usecase.NewSignalPipeline(market, analyzerSet, fuser, gate, a.signalPub, a.metrics, l, pipeOpts...)

	consensus := usecase.NewConsensusAggregator([]domsvc.Strategy{
		strategies.NewMomentumStrategy(),
		strategies.NewMeanReversionStrategy(),
	}, l)

	riskUC := usecase.NewPortfolioRiskUseCase(portfolio, market, l)
	candlesUC := usecase.NewCandlesUseCase(store)

	opts := []api.TradingHandlerOption{
		api.WithResponseCache(respCache),
		api.WithHealthChecker(a.healthCheck),
	}
	if a.cfg.Queue.Enabled && a.redisCache != nil {
		a.queue = queue.NewRedisQueue(l, &queue.QueueConfig{
			Workers:    a.cfg.Queue.Workers,
			RetryLimit: 3,
		}, a.redisCache.Client(), queue.ModeProducerConsumer,
			queue.WithKeyPrefix(a.cfg.Queue.Name+":queue"))
		a.queue.RegisterJob(usecase.NewScanJob(pipeline, decisionCache, a.cfg.Scan.TTL, l))
		opts = append(opts, api.WithScanQueue(a.queue, decisionCache))

		// aggregate repeated error logs through the queue
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          "logs.aggregated",
			Publisher:      a.queue,
		})
	}

	return api.NewTradingHandler(l, pipeline, consensus, riskUC, candlesUC, market, opts...), nil
}

func (a *App) healthCheck(ctx context.Context) map[string]string {
	out := map[string]string{}
	if a.chClient != nil {
		if err := a.chClient.DB().PingContext(ctx); err != nil {
			out["clickhouse"] = err.Error()
		} else {
			out["clickhouse"] = "ok"
		}
	}
	if a.redisCache != nil {
		if err := a.redisCache.Client().Ping(ctx).Err(); err != nil {
			out["redis"] = err.Error()
		} else {
			out["redis"] = "ok"
		}
	}
	out["stream"] = "disconnected"
	if a.collector != nil && a.collector.IsConnected() {
		out["stream"] = "ok"
	}
	return out
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context, l *applogger.Logger) error {
	l.Info("shutting down...")

	if err := a.collector.Shutdown(ctx); err != nil {
		l.Warn("collector stop error", applogger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			l.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.queue != nil {
		if err := a.queue.Stop(shutdownCtx); err != nil {
			l.Warn("queue stop error", applogger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.signalPub != nil {
		if err := a.signalPub.Close(); err != nil {
			l.Warn("signal publisher close error", applogger.Error(err))
		}
	}

	if a.TickProc != nil {
		a.TickProc.Close()
	}

	if a.redisCache != nil {
		if err := a.redisCache.Close(); err != nil {
			l.Warn("redis close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}

func splitHostPort(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}
