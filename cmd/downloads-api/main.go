package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"trusted-store/downloads"
	"trusted-store/downloads/application"
	"trusted-store/downloads/domain"
	"trusted-store/downloads/infra"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := readConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var catalog domain.CatalogStore
	if cfg.githubToken == "" {
		// O servidor sobe mesmo assim: cada POST responde erro de
		// configuração sem chamada externa nenhuma.
		log.Printf("GITHUB_TOKEN not set: increments will fail with a configuration error")
	} else {
		catalog = infra.NewGitHubStore(cfg.githubToken,
			infra.WithRepo(cfg.githubOwner, cfg.githubRepo),
			infra.WithFilePath(cfg.githubFile),
			infra.WithBaseURL(cfg.githubAPIURL),
		)
	}

	var rdb *redis.Client
	newRedis := func() (*redis.Client, error) {
		c := redis.NewClient(&redis.Options{
			Addr:     cfg.redisAddr,
			Password: cfg.redisPassword,
			DB:       cfg.redisDB,
		})
		pingCtx, cancelPing := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancelPing()
		if _, err := c.Ping(pingCtx).Result(); err != nil {
			return nil, err
		}
		return c, nil
	}

	var markers domain.MarkerStore
	switch cfg.markerBackend {
	case "redis":
		rdb, err = newRedis()
		if err != nil {
			log.Fatalf("redis ping error: %v", err)
		}
		markers = infra.NewRedisMarkerStore(rdb)
	case "sqlite":
		st, err := infra.NewSQLiteMarkerStore(cfg.sqlitePath)
		if err != nil {
			log.Fatalf("sqlite error: %v", err)
		}
		st.StartJanitor(ctx, cfg.rateWindow)
		markers = st
	case "memory":
		st := infra.NewMemoryMarkerStore()
		st.StartJanitor(ctx)
		markers = st
	case "":
		log.Printf("rate limiting disabled (RATE_LIMIT_BACKEND empty)")
	default:
		log.Fatalf("unknown RATE_LIMIT_BACKEND %q", cfg.markerBackend)
	}
	if markers != nil {
		defer func() { _ = markers.Close() }()
	}

	var stats domain.StatsStore
	if cfg.statsEnabled {
		if rdb == nil {
			rdb, err = newRedis()
			if err != nil {
				log.Fatalf("redis stats ping error: %v", err)
			}
			defer func() { _ = rdb.Close() }()
		}
		stats = infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.statsPrefix),
			infra.WithStatsTTL(cfg.statsTTL),
			infra.WithStatsTrackKeys(cfg.statsTrackKeys),
		)
	}

	svc := &application.Service{
		Catalog: catalog,
		Markers: markers,
		Window:  cfg.rateWindow,
		Logf:    log.Printf,
	}

	mux := http.NewServeMux()
	mux.Handle("/download", downloads.NewHandler(downloads.Options{
		Service:            svc,
		Stats:              stats,
		ClientIPHeader:     cfg.clientIPHeader,
		TrustXForwardedFor: cfg.trustXFF,
		RetryAfter:         cfg.rateWindow,
	}))

	h := http.Handler(mux)
	h = downloads.ConcurrencyLimit(downloads.ConcurrencyOptions{
		Max:            cfg.concurrencyMax,
		RejectStatus:   http.StatusServiceUnavailable,
		AcquireTimeout: cfg.concurrencyTimeout,
	})(h)
	if cfg.throttleRPS > 0 {
		buckets := infra.NewBucketStore(cfg.throttleRPS, cfg.throttleBurst)
		buckets.StartJanitor(ctx)
		h = downloads.Throttle(downloads.ThrottleOptions{
			Store:              buckets,
			ClientIPHeader:     cfg.clientIPHeader,
			TrustXForwardedFor: cfg.trustXFF,
			RetryAfter:         cfg.throttleRetryAfter,
		})(h)
	}

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("downloads-api listening on %s -> %s/%s/%s", cfg.listenAddr, cfg.githubOwner, cfg.githubRepo, cfg.githubFile)
	log.Printf("rate limit: backend=%q window=%s", cfg.markerBackend, cfg.rateWindow)
	log.Printf("throttle: rps=%.3f burst=%d concurrencyMax=%d", cfg.throttleRPS, cfg.throttleBurst, cfg.concurrencyMax)
	log.Printf("stats: enabled=%v prefix=%q trackKeys=%v", cfg.statsEnabled, cfg.statsPrefix, cfg.statsTrackKeys)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}

type config struct {
	listenAddr string

	githubToken  string
	githubOwner  string
	githubRepo   string
	githubFile   string
	githubAPIURL string

	markerBackend string
	redisAddr     string
	redisPassword string
	redisDB       int
	sqlitePath    string
	rateWindow    time.Duration

	clientIPHeader string
	trustXFF       bool

	throttleRPS        float64
	throttleBurst      int
	throttleRetryAfter time.Duration
	concurrencyMax     int
	concurrencyTimeout time.Duration

	statsEnabled   bool
	statsPrefix    string
	statsTTL       time.Duration
	statsTrackKeys bool
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")

	cfg.githubToken = os.Getenv("GITHUB_TOKEN")
	cfg.githubOwner = getenvDefault("GITHUB_OWNER", "fm-reloaded")
	cfg.githubRepo = getenvDefault("GITHUB_REPO", "trusted-store")
	cfg.githubFile = getenvDefault("GITHUB_FILE", "mods.json")
	cfg.githubAPIURL = getenvDefault("GITHUB_API_URL", "https://api.github.com")

	cfg.markerBackend = strings.ToLower(strings.TrimSpace(getenvDefault("RATE_LIMIT_BACKEND", "redis")))
	cfg.redisAddr = getenvDefault("REDIS_ADDR", "")
	cfg.redisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.redisDB = getenvIntDefault("REDIS_DB", 0)
	cfg.sqlitePath = getenvDefault("SQLITE_PATH", "markers.db")
	cfg.rateWindow = getenvDurationDefault("RATE_LIMIT_WINDOW", time.Hour)

	cfg.clientIPHeader = getenvDefault("CLIENT_IP_HEADER", "CF-Connecting-IP")
	cfg.trustXFF = getenvBoolDefault("TRUST_XFF", false)

	cfg.throttleRPS = getenvFloatDefault("THROTTLE_RPS", 0)
	cfg.throttleBurst = getenvIntDefault("THROTTLE_BURST", 20)
	cfg.throttleRetryAfter = getenvDurationDefault("THROTTLE_RETRY_AFTER", 1*time.Second)
	cfg.concurrencyMax = getenvIntDefault("CONCURRENCY_MAX", 100)
	cfg.concurrencyTimeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", 0)

	cfg.statsEnabled = getenvBoolDefault("STATS_ENABLED", false)
	cfg.statsPrefix = getenvDefault("STATS_PREFIX", "downloads:stats")
	cfg.statsTTL = getenvDurationDefault("STATS_TTL", 24*time.Hour)
	cfg.statsTrackKeys = getenvBoolDefault("STATS_TRACK_KEYS", false)

	// RATE_LIMIT_BACKEND padrão é redis, mas sem REDIS_ADDR o rate limit é
	// simplesmente desligado: disponibilidade do limiter não é requisito do
	// incremento em si.
	if cfg.markerBackend == "redis" && strings.TrimSpace(cfg.redisAddr) == "" {
		cfg.markerBackend = ""
	}
	if cfg.statsEnabled && strings.TrimSpace(cfg.redisAddr) == "" {
		return config{}, errors.New("REDIS_ADDR is required when STATS_ENABLED=true")
	}
	if cfg.rateWindow <= 0 {
		return config{}, errors.New("RATE_LIMIT_WINDOW must be > 0")
	}
	if cfg.throttleRPS < 0 {
		return config{}, errors.New("THROTTLE_RPS must be >= 0")
	}
	if cfg.throttleRPS > 0 && cfg.throttleBurst <= 0 {
		return config{}, errors.New("THROTTLE_BURST must be > 0")
	}
	if cfg.concurrencyMax < 0 {
		return config{}, errors.New("CONCURRENCY_MAX must be >= 0")
	}
	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
