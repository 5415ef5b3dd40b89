package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/sports-tips-platform/internal/shared/auth"
	sharedcache "github.com/radieske/sports-tips-platform/internal/shared/cache"
	"github.com/radieske/sports-tips-platform/internal/shared/config"
	"github.com/radieske/sports-tips-platform/internal/shared/db"
	sharedkafka "github.com/radieske/sports-tips-platform/internal/shared/kafka"
	"github.com/radieske/sports-tips-platform/internal/shared/logger"
	"github.com/radieske/sports-tips-platform/internal/shared/metrics"
	"github.com/radieske/sports-tips-platform/internal/tips-service/cache"
	httpapi "github.com/radieske/sports-tips-platform/internal/tips-service/http"
	"github.com/radieske/sports-tips-platform/internal/tips-service/model"
	"github.com/radieske/sports-tips-platform/internal/tips-service/policy"
	"github.com/radieske/sports-tips-platform/internal/tips-service/producer"
	"github.com/radieske/sports-tips-platform/internal/tips-service/repo"
	"github.com/radieske/sports-tips-platform/internal/tips-service/service"
	"github.com/radieske/sports-tips-platform/internal/tips-service/ws"
)

func main() {
	cfg := config.LoadService("tips-service")

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting service", zap.String("store", cfg.Store), zap.String("env", cfg.Env))

	guard := policy.NewGuard()
	checks := map[string]metrics.HealthFunc{}

	var (
		store     service.Store
		statCache service.Cache = cache.Nop{}
		publisher service.Publisher
		rdb       *redis.Client
	)

	switch cfg.Store {
	case "memory":
		// modo local: sem Postgres/Redis/Kafka
		store = repo.NewMemory(guard)
		log.Warn("using in-memory store; data is lost on restart")
	default:
		pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()
		if err := repo.Migrate(ctx, pg); err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
		log.Info("postgres connected")
		store = repo.NewPostgres(pg, guard)
		checks["postgres"] = func(ctx context.Context) error { return pg.PingContext(ctx) }

		rdb, err = sharedcache.ConnectRedis(cfg.RedisAddr, cfg.RedisPass)
		if err != nil {
			log.Fatal("failed to connect redis", zap.Error(err))
		}
		defer rdb.Close()
		log.Info("redis connected")
		statCache = cache.New(rdb, cfg.StatsCacheTTL)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }

		writer := sharedkafka.NewWriter(cfg.Brokers(), cfg.TopicTipChanges)
		defer writer.Close()
		log.Info("kafka writer ready", zap.String("topic", cfg.TopicTipChanges))
		publisher = producer.NewKafkaPublisher(writer, cfg.TopicTipChanges)
	}

	for _, id := range cfg.SeedModerators {
		if err := store.GrantRole(ctx, id, model.RoleModerator); err != nil {
			log.Warn("seed moderator failed", zap.String("user_id", id), zap.Error(err))
		}
	}

	m := metrics.NewAPI(prometheus.DefaultRegisterer)
	svc := service.New(log, store, statCache, publisher)
	svc.LeaderboardSize = cfg.LeaderboardSize
	svc.OnWrite = func(kind string) { m.Writes.WithLabelValues(kind).Inc() }
	svc.OnReject = func(reason string) { m.Rejections.WithLabelValues(reason).Inc() }
	checks["store"] = svc.Ping

	hub := ws.NewHub(log, originChecker(cfg.CORSOrigins))
	if rdb != nil {
		ws.StartRedisSubscriber(ctx, rdb, cfg.RedisPubSubChannel, hub, log)
	}

	api := &httpapi.API{
		Log:     log,
		Svc:     svc,
		Auth:    auth.NewVerifier(cfg.JWTSecret),
		WS:      hub.HandleWS,
		Metrics: m,
		Origins: cfg.CORSOrigins,
		Timeout: cfg.RequestTimeout,
	}

	// sobe servidor de métricas e health
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, checks)
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))

	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		_ = apiSrv.Shutdown(shutdownCtx)
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	log.Info("tips-service listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("api", zap.Error(err))
	}
	log.Info("tips-service stopped")
}

// originChecker aplica a mesma lista do CORS ao handshake do websocket
func originChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}
