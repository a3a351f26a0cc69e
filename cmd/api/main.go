package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ranawaqas-khan/jumpingfox/internal/classify"
	"github.com/ranawaqas-khan/jumpingfox/internal/config"
	"github.com/ranawaqas-khan/jumpingfox/internal/guard"
	"github.com/ranawaqas-khan/jumpingfox/internal/lookup"
	"github.com/ranawaqas-khan/jumpingfox/internal/metrics"
	"github.com/ranawaqas-khan/jumpingfox/internal/omkar"
	"github.com/ranawaqas-khan/jumpingfox/internal/probe"
	"github.com/ranawaqas-khan/jumpingfox/internal/queue"
	"github.com/ranawaqas-khan/jumpingfox/internal/score"
	"github.com/ranawaqas-khan/jumpingfox/internal/store"
	"github.com/ranawaqas-khan/jumpingfox/internal/verify"
)

const version = "1.0.0"

// api holds every handler dependency. Handlers live in the other files
// of this package.
type api struct {
	cfg        *config.Config
	log        *zap.Logger
	verifier   *verify.Service
	quota      *guard.Quota
	reputation *guard.Reputation
	iphealth   *guard.IPHealth
	analyzer   *lookup.Analyzer
	jobs       *store.Store
	tasks      *queue.Queue
	registry   *prometheus.Registry
}

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Root context for background goroutines; cancelled on shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis backs quotas, reputation, IP health and the task queue.
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Redis.Addr(),
		DB:          cfg.Redis.DB,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	err = rdb.Ping(pingCtx).Err()
	pingCancel()
	if err != nil {
		logger.Fatal("redis unreachable", zap.String("addr", cfg.Redis.Addr()), zap.Error(err))
	}
	fmt.Printf("✅ Connected to Redis at %s\n", cfg.Redis.Addr())

	jobs, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database unreachable", zap.Error(err))
	}
	defer jobs.Close()
	fmt.Println("✅ Connected to PostgreSQL, migrations applied")

	sets, err := classify.LoadSets(cfg.DataDir)
	if err != nil {
		logger.Warn("classification lists not loaded, using built-ins", zap.Error(err))
		sets = classify.BuiltinSets()
	}

	analyzer := lookup.NewAnalyzer(lookup.NewResolver(cfg.DNS.Timeout()), lookup.Options{
		MXTTL:      cfg.Cache.MXTTL(),
		MXCapacity: cfg.Cache.MXCapacity,
		Lifetime:   cfg.DNS.Lifetime(),
	}, logger)
	analyzer.StartCleanup(ctx, 5*time.Minute)

	ipHealth := guard.NewIPHealth(rdb, logger)
	dialer := probe.NewDialer(cfg.SMTP.IPPool, cfg.SMTP.Timeout(), ipHealth, logger)
	engine := probe.NewEngine(analyzer, dialer, ipHealth, probe.Config{
		Timeout:    cfg.SMTP.Timeout(),
		Pause:      cfg.SMTP.ProbePause(),
		HeloDomain: cfg.SMTP.HeloDomain,
		MailFrom:   cfg.SMTP.MailFrom,
	}, logger)
	if n := len(cfg.SMTP.IPPool); n > 0 {
		fmt.Printf("🛡️  Probe IP pool enabled (%d addresses, round-robin)\n", n)
	} else {
		fmt.Println("⚠️  No IP pool configured, probing from the default route")
	}

	reputation := guard.NewReputation(rdb, logger)

	m := metrics.New()
	registry := prometheus.NewRegistry()
	m.Register(registry)
	registry.MustRegister(collectors.NewGoCollector())

	deps := verify.Deps{
		Sets:    sets,
		Breaker: guard.NewBreaker(cfg.Breaker.Threshold, cfg.Breaker.Cooldown()),
		Quota:   guard.NewQuota(rdb, guard.DefaultTiers(), logger),
		Prober:  engine,
		Scorer:  score.NewScorer(score.DefaultProviderCaps(), reputation, logger),
		Metrics: m,
		Workers: cfg.Pool.MaxWorkers,
		Tier:    cfg.Quota.Tier,
		FlagTTL: cfg.Cache.DomainFlagTTL(),
	}
	if cfg.Omkar.URL != "" {
		deps.Fastpath = omkar.NewClient(cfg.Omkar.URL, cfg.Omkar.APIKey, cfg.Omkar.Timeout(), logger)
	} else {
		logger.Warn("fast-path verifier not configured, every address will be probed")
	}

	verifier := verify.NewService(deps, logger)
	verifier.StartCleanup(ctx, 5*time.Minute)

	a := &api{
		cfg:        cfg,
		log:        logger.Named("api"),
		verifier:   verifier,
		quota:      deps.Quota,
		reputation: reputation,
		iphealth:   ipHealth,
		analyzer:   analyzer,
		jobs:       jobs,
		tasks:      queue.New(rdb, logger),
		registry:   registry,
	}

	server := &http.Server{
		Addr:        cfg.Listen,
		Handler:     a.routes(),
		ReadTimeout: 30 * time.Second,
		// A full batch probes synchronously and can run for minutes.
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		fmt.Printf("🚀 jumpingfox API v%s listening on %s\n", version, cfg.Listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	fmt.Println("⏳ Shutdown signal received, draining in-flight requests...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("graceful shutdown failed", zap.Error(err))
	}
	rdb.Close()
	fmt.Println("✅ Server shut down cleanly")
}

func (a *api) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /verify", a.auth(a.handleVerify))
	mux.HandleFunc("GET /quota/{customer_id}/{domain}", a.auth(a.handleQuota))
	mux.HandleFunc("GET /reputation/{domain}", a.auth(a.handleReputation))
	mux.HandleFunc("GET /iphealth/{ip}/{domain}", a.auth(a.handleIPHealth))
	mux.HandleFunc("GET /dns/{domain}", a.auth(a.handleDNS))
	mux.HandleFunc("POST /upload", a.auth(a.handleUpload))
	mux.HandleFunc("GET /status", a.auth(a.handleStatus))
	mux.HandleFunc("GET /results", a.auth(a.handleResults))
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	return a.cors(mux)
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version})
}

func (a *api) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Error("encode response failed", zap.Error(err))
	}
}

func (a *api) writeError(w http.ResponseWriter, status int, msg string) {
	a.writeJSON(w, status, map[string]string{"error": msg})
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
