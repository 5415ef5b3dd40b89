package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/sports-tips-platform/internal/feed-relay/consumer"
	"github.com/radieske/sports-tips-platform/internal/feed-relay/pubsub"
	sharedcache "github.com/radieske/sports-tips-platform/internal/shared/cache"
	"github.com/radieske/sports-tips-platform/internal/shared/config"
	sharedkafka "github.com/radieske/sports-tips-platform/internal/shared/kafka"
	"github.com/radieske/sports-tips-platform/internal/shared/logger"
	"github.com/radieske/sports-tips-platform/internal/shared/metrics"
)

func main() {
	cfg := config.LoadService("feed-relay-worker")

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr, cfg.RedisPass)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// Configura o consumer Kafka (consumer group feed-relay)
	brokers := cfg.Brokers()
	reader := sharedkafka.NewReader(brokers, cfg.TopicTipChanges, "feed-relay")
	defer reader.Close()

	// Métricas Prometheus por estágio
	m := metrics.NewRelay(prometheus.DefaultRegisterer)

	relay := &consumer.Relay{
		Log:         log,
		Reader:      reader,
		Broadcaster: pubsub.NewRedisBroadcaster(redisClient),
		Channel:     cfg.RedisPubSubChannel,
		OnConsumed:  func() { m.Consumed.Inc() },
		OnPublished: func() { m.Published.Inc() },
		OnError:     func(stage string) { m.Errors.WithLabelValues(stage).Inc() },
	}

	// Servidor HTTP para métricas e health check
	srv := metrics.StartMetricsServer(cfg.MetricsPort, map[string]metrics.HealthFunc{
		"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		"kafka": func(ctx context.Context) error { return sharedkafka.Ping(ctx, brokers) },
	})
	defer srv.Close()
	log.Info("metrics/health listening", zap.String("addr", srv.Addr))

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("feed-relay started", zap.String("topic", cfg.TopicTipChanges), zap.String("channel", cfg.RedisPubSubChannel))
	if err := relay.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("relay stopped with error", zap.Error(err))
	}
	log.Info("feed-relay stopped")
}
