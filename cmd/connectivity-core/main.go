// Command connectivity-core is the thin wiring binary that assembles the
// REST, WebSocket, and scraper connection managers, the Redis-backed
// probability/subscription stores, the distributed lock, the persistence
// manager, and the process monitor into one running service.
package main

import (
	"context"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/kalshi-core/connectivity/internal/backoff"
	"github.com/kalshi-core/connectivity/internal/catalog"
	"github.com/kalshi-core/connectivity/internal/distlock"
	"github.com/kalshi-core/connectivity/internal/health"
	"github.com/kalshi-core/connectivity/internal/lifecycle"
	"github.com/kalshi-core/connectivity/internal/persistence"
	"github.com/kalshi-core/connectivity/internal/platform/appconfig"
	"github.com/kalshi-core/connectivity/internal/platform/logging"
	platformmetrics "github.com/kalshi-core/connectivity/internal/platform/metrics"
	"github.com/kalshi-core/connectivity/internal/platform/singleton"
	"github.com/kalshi-core/connectivity/internal/platform/utils"
	"github.com/kalshi-core/connectivity/internal/probastore"
	"github.com/kalshi-core/connectivity/internal/procmon"
	"github.com/kalshi-core/connectivity/internal/restclient"
	"github.com/kalshi-core/connectivity/internal/scraper"
	"github.com/kalshi-core/connectivity/internal/sessiontracker"
	"github.com/kalshi-core/connectivity/internal/substore"
	"github.com/kalshi-core/connectivity/internal/wsclient"
)

func main() {
	cfg, err := appconfig.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.NewFromEnv(cfg.ServiceName)
	logging.SilenceThirdPartyLoggers()
	entry := log.Logger.WithField("service", cfg.ServiceName)
	entry.Info("starting connectivity-core")

	lock, err := singleton.New(cfg.ServiceName, cfg.ServiceRuntimeDir)
	if err != nil {
		entry.WithError(err).Fatal("build singleton lock")
	}
	if err := lock.Acquire(); err != nil {
		entry.WithError(err).Fatal("acquire singleton lock")
	}
	defer lock.Release()

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr(),
		DB:       cfg.RedisDB,
		Password: cfg.RedisPassword,
		PoolSize: 120,
	}
	if cfg.RedisSSL {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	metrics := platformmetrics.New(cfg.ServiceName)

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	networkMonitor := health.NewMonitor(cfg.MaxConsecutiveFailures, cfg.MaxConsecutiveFailures*3)
	engine := backoff.NewEngine(backoff.WithNetworkHealth(networkMonitor))
	tracker := sessiontracker.New(nil)

	managers := startLifecycleManagers(rootCtx, cfg, engine, tracker, log.Logger)
	for _, m := range managers {
		m.Start(rootCtx)
	}

	probaStore := probastore.New(probastore.StaticProvider(rdb))
	subStore := substore.New(rdb, "kalshi", "")
	_ = probaStore
	_ = subStore

	persistMgr := persistence.New(rdb)
	if ok, err := persistMgr.ConfigurePersistence(rootCtx); err != nil {
		entry.WithError(err).Warn("configure redis persistence")
	} else if !ok {
		entry.Warn("redis persistence configuration reported not-ok")
	}
	persistScheduler := persistence.NewScheduler(persistMgr, func(ok bool, message string) {
		if !ok {
			entry.WithField("message", message).Warn("persistence validation failed, reconfigured")
		}
	})
	if err := persistScheduler.Start(rootCtx, "@every 1h"); err != nil {
		entry.WithError(err).Warn("start persistence scheduler")
	}
	defer persistScheduler.Stop()

	procMonitor := procmon.New(nil, 60*time.Second)
	if err := procMonitor.Initialize(rootCtx); err != nil {
		entry.WithError(err).Warn("initial process scan")
	}
	procCron, err := procMonitor.StartBackgroundScanning(rootCtx, "@every 30s")
	if err != nil {
		entry.WithError(err).Warn("start process monitor scheduling")
	}
	if procCron != nil {
		defer procCron.Stop()
	}

	tradeLock := distlock.Trade(rdb, "startup-discovery")
	runDiscovery := func() {
		discoveryCtx, discoveryCancel := context.WithTimeout(rootCtx, 2*time.Minute)
		defer discoveryCancel()
		discoveryCtx = logging.WithTraceID(discoveryCtx, logging.NewTraceID())
		discoveryLog := log.WithTraceFields(discoveryCtx)

		if err := tradeLock.Acquire(discoveryCtx); err != nil {
			discoveryLog.WithError(err).Debug("discovery lock unavailable, skipping run")
			return
		}
		defer tradeLock.Release(discoveryCtx)

		restForDiscovery := findRESTClient(managers)
		if restForDiscovery == nil {
			return
		}
		events, stats, err := catalog.DiscoverMutuallyExclusiveMarkets(discoveryCtx, restForDiscovery, catalog.DefaultConfig(), log.Logger, nil)
		if err != nil {
			discoveryLog.WithError(err).Warn("catalog discovery failed")
			return
		}
		discoveryLog.WithField("events", len(events)).WithField("skipped", stats).Info("catalog discovery complete")
	}
	utils.SafeGo(runDiscovery, func(err error) {
		entry.WithError(err).Error("catalog discovery goroutine panicked")
	})

	if platformmetrics.Enabled() {
		utils.SafeGo(func() {
			writeMetricsSnapshotLoop(rootCtx, metrics, rdb, cfg.HealthCheckInterval)
		}, func(err error) {
			entry.WithError(err).Error("metrics snapshot goroutine panicked")
		})
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	entry.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	for _, m := range managers {
		m.Stop(shutdownCtx)
	}
	if procCron != nil {
		select {
		case <-procCron.Stop().Done():
		case <-time.After(2 * time.Second):
		}
	}
	cancel()
}

// namedManager pairs a lifecycle.Manager with the transport it wraps, so
// shutdown and discovery wiring can find the REST manager back out of the
// generic slice without a type switch on Protocol implementations.
type namedManager struct {
	*lifecycle.Manager
	rest *restclient.Client
}

func startLifecycleManagers(ctx context.Context, cfg appconfig.Config, engine *backoff.Engine, tracker *sessiontracker.Tracker, log *logrus.Logger) []namedManager {
	lifecycleCfg := lifecycle.Config{
		HealthCheckInterval:    cfg.HealthCheckInterval,
		MaxConsecutiveFailures: cfg.MaxConsecutiveFailures,
	}

	var managers []namedManager

	restClient := buildRESTClient(cfg, tracker, log)
	if restClient != nil {
		restProtocol := lifecycle.NewRESTProtocol(restClient, "")
		managers = append(managers, namedManager{
			Manager: lifecycle.New("rest", restProtocol, lifecycleCfg, engine, log),
			rest:    restClient,
		})
	}

	if cfg.ExchangeWSURL != "" {
		wsCfg := wsclient.DefaultConfig(cfg.ExchangeWSURL)
		wsC := wsclient.New(wsCfg, tracker)
		wsProtocol := lifecycle.NewWebSocketProtocol(wsC)
		managers = append(managers, namedManager{
			Manager: lifecycle.New("ws", wsProtocol, lifecycleCfg, engine, log),
		})
	}

	if len(cfg.ScraperURLs) > 0 {
		scraperClient := scraper.New(scraper.DefaultConfig(), cfg.ScraperURLs)
		scraperProtocol := lifecycle.NewScraperProtocol(scraperClient)
		managers = append(managers, namedManager{
			Manager: lifecycle.New("scraper", scraperProtocol, lifecycleCfg, engine, log),
		})
	}

	return managers
}

func buildRESTClient(cfg appconfig.Config, tracker *sessiontracker.Tracker, log *logrus.Logger) *restclient.Client {
	restCfg := restclient.DefaultConfig(cfg.ExchangeBaseURL)
	restCfg.ConnectTimeout = cfg.ConnectionTimeout
	restCfg.TotalTimeout = cfg.RequestTimeout

	if cfg.ExchangeAccessKey == "" || cfg.ExchangePrivateKeyPath == "" {
		log.WithField("reason", "missing exchange credentials").Warn("rest client disabled")
		return nil
	}

	key, err := loadRSAPrivateKey(cfg.ExchangePrivateKeyPath)
	if err != nil {
		log.WithError(err).Error("load exchange private key")
		return nil
	}
	signer := restclient.NewRSASigner(cfg.ExchangeAccessKey, key)
	return restclient.New(restCfg, signer, tracker)
}

func loadRSAPrivateKey(path string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read private key file: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in %s", path)
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	rsaKey, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key in %s is not RSA", path)
	}
	return rsaKey, nil
}

func findRESTClient(managers []namedManager) *restclient.Client {
	for _, m := range managers {
		if m.rest != nil {
			return m.rest
		}
	}
	return nil
}

func writeMetricsSnapshotLoop(ctx context.Context, metrics *platformmetrics.Metrics, rdb *redis.Client, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = metrics.WriteRedisSnapshot(ctx, rdb)
		}
	}
}
