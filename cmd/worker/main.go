package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

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
	"github.com/ranawaqas-khan/jumpingfox/internal/worker"
)

// runners is how many queue consumers this binary drives. The per-batch
// pool inside verify.Service does not apply here: each task is a single
// address, so concurrency comes from running several loops.
const runners = 8

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	reputation := guard.NewReputation(rdb, logger)

	deps := verify.Deps{
		Sets:    sets,
		Breaker: guard.NewBreaker(cfg.Breaker.Threshold, cfg.Breaker.Cooldown()),
		Quota:   guard.NewQuota(rdb, guard.DefaultTiers(), logger),
		Prober:  engine,
		Scorer:  score.NewScorer(score.DefaultProviderCaps(), reputation, logger),
		Metrics: metrics.New(),
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

	runner := worker.New(queue.New(rdb, logger), jobs, verifier, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	var wg sync.WaitGroup
	for i := 0; i < runners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runner.Run(ctx)
		}()
	}
	fmt.Printf("🚀 jumpingfox worker running (%d consumers)\n", runners)

	<-quit
	fmt.Println("⏳ Shutdown signal received, finishing current tasks...")
	cancel()
	wg.Wait()
	rdb.Close()
	fmt.Println("✅ Worker shut down cleanly")
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
