// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyellow/realestate-linebot-go/internal/analysis"
	"github.com/garyellow/realestate-linebot-go/internal/chart"
	"github.com/garyellow/realestate-linebot-go/internal/config"
	"github.com/garyellow/realestate-linebot-go/internal/dataset"
	"github.com/garyellow/realestate-linebot-go/internal/datastore"
	"github.com/garyellow/realestate-linebot-go/internal/extractor"
	"github.com/garyellow/realestate-linebot-go/internal/genai"
	"github.com/garyellow/realestate-linebot-go/internal/logger"
	"github.com/garyellow/realestate-linebot-go/internal/memory"
	"github.com/garyellow/realestate-linebot-go/internal/metrics"
	"github.com/garyellow/realestate-linebot-go/internal/objectstore"
	"github.com/garyellow/realestate-linebot-go/internal/orchestrator"
	"github.com/garyellow/realestate-linebot-go/internal/ratelimit"
	"github.com/garyellow/realestate-linebot-go/internal/region"
	"github.com/garyellow/realestate-linebot-go/internal/router"
	"github.com/garyellow/realestate-linebot-go/internal/scraper"
	"github.com/garyellow/realestate-linebot-go/internal/sentry"
	"github.com/garyellow/realestate-linebot-go/internal/storage"
	"github.com/garyellow/realestate-linebot-go/internal/warmup"
	"github.com/garyellow/realestate-linebot-go/internal/webhook"
)

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg            *config.Config
	logger         *logger.Logger
	metrics        *metrics.Metrics
	registry       *prometheus.Registry
	data           *datastore.Store
	tokenizer      *extractor.GSETokenizer
	llm            *genai.Chain // nil without a provider key
	db             *storage.DB  // nil when memory stays in process
	memoryPruner   memory.Pruner
	orchestrator   *orchestrator.Orchestrator
	sessions       *ratelimit.SessionLimiter
	webhookHandler *webhook.Handler // nil when LINE is not configured
	readinessState *warmup.ReadinessState
	router         *gin.Engine
	server         *http.Server
	wg             sync.WaitGroup // background jobs
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterStackToken:    cfg.BetterStackLogToken,
		BetterStackEndpoint: cfg.BetterStackLogEndpoint,
	})

	log = log.WithField("service", "realestate-linebot-go")
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Package-level slog calls pick up session and request IDs through the
	// context handler.
	slog.SetDefault(log.Logger)

	log.Info("Initializing application...")
	if cfg.BetterStackLogToken != "" {
		log.WithField("endpoint", cfg.BetterStackLogEndpoint).Info("Better Stack logging enabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	objects, err := buildObjectStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("object store: %w", err)
	}
	var src dataset.Source = dataset.FileSource{Dir: cfg.DataDir}
	if objects != nil {
		src = objects
	}
	data := datastore.New(src, datastore.Options{
		Files: map[string]string{
			region.Taipei:    cfg.TaipeiFile,
			region.NewTaipei: cfg.NewTaipeiFile,
		},
		TTL:     cfg.CacheTTL,
		Enabled: cfg.CacheEnabled,
		Logger:  log,
		Metrics: m,
	})

	var llm genai.Completer
	chain := genai.NewFromConfig(ctx, buildLLMConfig(cfg), m)
	if chain != nil {
		llm = chain
		log.WithField("primary", chain.Provider().String()).
			WithField("chain_size", chain.Len()).
			Info("LLM features enabled")
	} else {
		log.Info("No LLM provider configured; using keyword rules and statistics fallbacks")
	}

	tokenizer := extractor.NewGSETokenizer()
	ext := extractor.New(extractor.Options{
		LLM:         llm,
		CurrentYear: cfg.CurrentYear,
		SpanYears:   cfg.DefaultSpanYears,
		Tokenizer:   tokenizer,
		Logger:      log,
	})
	rt := router.New(router.Options{LLM: llm, Logger: log, Metrics: m})
	renderer := chart.PNGRenderer{}
	if cfg.ChartFontPath != "" {
		if renderer.Font, err = chart.LoadFont(cfg.ChartFontPath); err != nil {
			log.WithError(err).WithField("path", cfg.ChartFontPath).
				Warn("Failed to load chart font; charts fall back to ASCII labels")
		}
	}
	trends := analysis.NewTrendBuilder(renderer, cfg.CurrentYear, cfg.DefaultSpanYears, log)

	scraperClient := scraper.NewClient(scraper.ClientOptions{
		Timeout:           cfg.ScraperTimeout,
		MaxRetries:        cfg.ScraperMaxRetries,
		RetryDelay:        config.ScraperRetryInitial,
		RequestsPerSecond: cfg.ScraperRPS,
		Metrics:           m,
		Logger:            log,
	})

	inMemory := memory.NewInMemory()
	var (
		mem    memory.Store  = inMemory
		pruner memory.Pruner = inMemory
		db     *storage.DB
	)
	if dsn := cfg.MemoryDSN(); dsn != "" {
		if db, err = storage.Open(ctx, dsn); err != nil {
			return nil, fmt.Errorf("memory database: %w", err)
		}
		memStore := storage.NewMemoryStore(db)
		mem, pruner = memStore, memStore
		log.WithField("path", db.Path()).Info("Conversation memory persisted to SQLite")
	}

	orch := orchestrator.New(orchestrator.Options{
		Data:        data,
		Extractor:   ext,
		Router:      rt,
		Trends:      trends,
		Searcher:    scraper.NewSinyi(scraperClient),
		LLM:         llm,
		Memory:      mem,
		History:     cfg.MemoryMaxHistory,
		MaxListings: cfg.ScraperMaxListings,
		Logger:      log,
		Metrics:     m,
	})

	sessions := ratelimit.NewSessionLimiter(ratelimit.SessionConfig{
		Name:          "session",
		Burst:         cfg.SessionRateBurst,
		RefillRate:    cfg.SessionRateRefill,
		CleanupPeriod: config.RateLimiterCleanupInterval,
		Metrics:       m,
	})

	app := &Application{
		cfg:            cfg,
		logger:         log,
		metrics:        m,
		registry:       registry,
		data:           data,
		tokenizer:      tokenizer,
		llm:            chain,
		db:             db,
		memoryPruner:   pruner,
		orchestrator:   orch,
		sessions:       sessions,
		readinessState: warmup.NewReadinessState(config.PreloadGracePeriod),
	}

	if cfg.LineEnabled() {
		client, err := webhook.NewMessagingClient(cfg.LineChannelToken)
		if err != nil {
			app.closeResources()
			return nil, fmt.Errorf("line: %w", err)
		}
		webhookCfg := webhook.Config{
			ChannelSecret: cfg.LineChannelSecret,
			Replier:       client,
			Querier:       orch,
			Sessions:      sessions,
			Multi:         cfg.LineMultiTool,
			Timeout:       cfg.QueryTimeout,
			Metrics:       m,
			Logger:        log,
		}
		if objects != nil {
			webhookCfg.Charts = objects
		}
		app.webhookHandler, err = webhook.NewHandler(webhookCfg)
		if err != nil {
			app.closeResources()
			return nil, fmt.Errorf("webhook: %w", err)
		}
		log.Info("LINE webhook enabled")
	}

	app.router = app.routes()
	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.router,
		ReadHeaderTimeout: config.HTTPRead,
		ReadTimeout:       config.HTTPRead,
		WriteTimeout:      config.HTTPWrite,
		IdleTimeout:       config.HTTPIdle,
	}

	log.Info("Initialization complete")
	return app, nil
}

// buildObjectStore returns nil when object storage is not configured. The
// client then serves both the exports and published chart images.
func buildObjectStore(ctx context.Context, cfg *config.Config) (*objectstore.Client, error) {
	if !cfg.HasObjectStore() {
		return nil, nil
	}
	return objectstore.New(ctx, objectstore.Config{
		Endpoint:    cfg.ObjectEndpoint,
		AccessKeyID: cfg.ObjectAccessKey,
		SecretKey:   cfg.ObjectSecretKey,
		BucketName:  cfg.ObjectBucket,
		Prefix:      cfg.ObjectPrefix,
		ChartURLTTL: cfg.ChartURLTTL,
	})
}

// buildLLMConfig creates an LLMConfig from the application config.
func buildLLMConfig(cfg *config.Config) genai.LLMConfig {
	llmCfg := genai.LLMConfig{
		Gemini:      genai.ProviderConfig{APIKey: cfg.GeminiAPIKey, Models: cfg.GeminiModels},
		Groq:        genai.ProviderConfig{APIKey: cfg.GroqAPIKey, Models: cfg.GroqModels},
		Cerebras:    genai.ProviderConfig{APIKey: cfg.CerebrasAPIKey, Models: cfg.CerebrasModels},
		RetryConfig: genai.DefaultRetryConfig(),
	}
	if cfg.LLMMaxAttempts > 0 {
		llmCfg.RetryConfig.MaxAttempts = cfg.LLMMaxAttempts
	}

	for _, p := range cfg.LLMProviders {
		switch p {
		case "gemini":
			llmCfg.Providers = append(llmCfg.Providers, genai.ProviderGemini)
		case "groq":
			llmCfg.Providers = append(llmCfg.Providers, genai.ProviderGroq)
		case "cerebras":
			llmCfg.Providers = append(llmCfg.Providers, genai.ProviderCerebras)
		default:
			slog.Warn("ignoring unknown provider", "name", p)
		}
	}
	return llmCfg
}

// routes mounts every endpoint.
func (a *Application) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	if sentry.IsEnabled() {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	r.Use(securityHeadersMiddleware())
	r.Use(loggingMiddleware(a.logger))

	r.GET("/healthz", a.livenessCheck)
	r.HEAD("/healthz", a.livenessCheck)
	r.GET("/ready", a.readinessCheck)
	r.HEAD("/ready", a.readinessCheck)

	api := r.Group("/api")
	api.POST("/query", a.handleQuery)
	api.GET("/cache", a.cacheStatus)
	api.PUT("/cache", a.setCacheEnabled)
	api.DELETE("/cache", a.clearCache)
	api.DELETE("/cache/:city", a.clearCache)
	api.DELETE("/sessions/:id", a.clearSession)

	r.GET("/metrics",
		metricsAuthMiddleware(a.cfg.MetricsAuthEnabled(), a.cfg.MetricsUsername, a.cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	if a.webhookHandler != nil {
		r.POST("/callback", a.readinessMiddleware(), a.webhookHandler.Handle)
	}
	return r
}

// Run starts the HTTP server and background jobs, then blocks until
// SIGINT or SIGTERM.
//
// Background jobs are stopped and drained before resources close, so a
// late preload or prune never touches a closed database.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.startBackgroundJobs(ctx)
	errCh := a.startHTTPServer()

	select {
	case sig := <-a.waitForShutdownSignal():
		a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-errCh:
		a.logger.WithError(err).Error("HTTP server stopped unexpectedly")
	}

	cancel()

	a.logger.Info("Waiting for background jobs to finish...")
	start := time.Now()
	a.wg.Wait()
	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("All background jobs completed")

	return a.shutdown()
}

// startBackgroundJobs starts all background goroutines tracked by the WaitGroup.
func (a *Application) startBackgroundJobs(ctx context.Context) {
	a.wg.Go(func() {
		a.preload(ctx)
	})
	a.wg.Go(func() {
		a.updateCacheMetrics(ctx)
	})
	a.wg.Go(func() {
		a.pruneMemory(ctx)
	})
}

// startHTTPServer serves in a goroutine and reports a listen failure on
// the returned channel.
func (a *Application) startHTTPServer() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	return errCh
}

func (a *Application) waitForShutdownSignal() <-chan os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return quit
}

// shutdown stops the HTTP server, waits for in-flight LINE events and
// closes resources. Call it after background jobs have stopped.
func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	var errs []error
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
		errs = append(errs, err)
	}

	if a.webhookHandler != nil {
		a.logger.Info("Waiting for webhook events to complete...")
		drainCtx, drainCancel := context.WithTimeout(shutdownCtx, config.BackgroundDrain)
		if err := a.webhookHandler.Shutdown(drainCtx); err != nil {
			a.logger.WithError(err).Warn("Webhook handler shutdown timeout")
		}
		drainCancel()
	}

	a.logger.Info("Closing resources...")
	a.closeResources()

	if !sentry.Flush(config.ErrorFlush) && sentry.IsEnabled() {
		a.logger.Warn("Error reports may not have been delivered")
	}

	a.logger.Info("Shutdown complete")
	return errors.Join(errs...)
}

func (a *Application) closeResources() {
	if a.sessions != nil {
		a.sessions.Stop()
	}
	if a.llm != nil {
		if err := a.llm.Close(); err != nil {
			a.logger.WithError(err).WithField("component", "llm").Error("Component close error")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.WithError(err).WithField("component", "database").Error("Component close error")
		}
	}
}
