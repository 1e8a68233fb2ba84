package container

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/ewang0/redis-demo/internal/admission"
	"github.com/ewang0/redis-demo/internal/analytics"
	noopstore "github.com/ewang0/redis-demo/internal/analytics/store"
	"github.com/ewang0/redis-demo/internal/counter"
	"github.com/ewang0/redis-demo/internal/handlers"
	"github.com/ewang0/redis-demo/internal/health"
	"github.com/ewang0/redis-demo/internal/kv"
	"github.com/ewang0/redis-demo/internal/messaging"
	"github.com/ewang0/redis-demo/internal/middleware"
	"github.com/ewang0/redis-demo/internal/ratelimit"
	"github.com/ewang0/redis-demo/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jaevor/go-nanoid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"
)

// Options holds the service configuration, populated by humacli from
// flags and environment.
type Options struct {
	Port         int    `default:"3012"            help:"Port to listen on"                                    short:"p"`
	RedisAddr    string `default:"localhost:6379"  help:"Redis server address"                                 short:"r"`
	PostgresURL  string `default:""                help:"Postgres connection string for analytics persistence"`
	LogFormat    string `default:"console"         enum:"console,json"                                         help:"Log output format"`
	Algorithm    string `default:"fixed"           enum:"fixed,sliding"                                        help:"Rate limit algorithm"`
	RateLimit    int64  `default:"10"              help:"Max clicks per client per window"`
	RateWindowMs int64  `default:"60000"           help:"Rate limit window in milliseconds"`
	FailOpen     bool   `default:"false"           help:"Admit clicks when the rate limiter store is unreachable"`
}

// LoggerPackage provides the zap logger.
func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		options := do.MustInvoke[*Options](i)

		if options.LogFormat == "json" {
			return zap.NewProduction()
		}

		return zap.NewDevelopment()
	})
}

// RedisPackage provides the shared Redis client.
func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*redis.Client, error) {
		options := do.MustInvoke[*Options](i)

		return redis.NewClient(&redis.Options{Addr: options.RedisAddr}), nil
	})
}

// PostgresPackage provides the pgx connection pool for analytics.
func PostgresPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*pgxpool.Pool, error) {
		options := do.MustInvoke[*Options](i)

		cfg, err := pgxpool.ParseConfig(options.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("parse postgres url: %w", err)
		}

		return pgxpool.NewWithConfig(context.Background(), cfg)
	})
}

// KVPackage provides the atomic store adapter over Redis.
func KVPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (kv.Store, error) {
		return store.NewRedisKV(do.MustInvoke[*redis.Client](i)), nil
	})
}

// RateLimitPackage provides the configured limiter.
func RateLimitPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (ratelimit.Limiter, error) {
		options := do.MustInvoke[*Options](i)

		algorithm := ratelimit.Algorithm(options.Algorithm)

		return ratelimit.New(algorithm, do.MustInvoke[kv.Store](i), ratelimit.Config{
			Limit:     options.RateLimit,
			Window:    time.Duration(options.RateWindowMs) * time.Millisecond,
			KeyPrefix: "ratelimit:" + options.Algorithm + ":",
		})
	})
}

// CounterPackage provides the global click counter handle.
func CounterPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*counter.Counter, error) {
		return counter.New(do.MustInvoke[kv.Store](i), counter.DefaultKey), nil
	})
}

// AdmissionPackage provides the admission gate.
func AdmissionPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*admission.Gate, error) {
		options := do.MustInvoke[*Options](i)

		return admission.NewGate(
			do.MustInvoke[ratelimit.Limiter](i),
			do.MustInvoke[*counter.Counter](i),
			options.FailOpen,
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
}

// PublisherGroupPackage provides the watermill publisher over Redis
// streams and the typed publish functions for click analytics.
func PublisherGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
			Client: do.MustInvoke[*redis.Client](i),
		}, watermill.NopLogger{})
		if err != nil {
			return nil, err
		}

		return messaging.NewPublisherGroup(publisher), nil
	})

	do.Provide(injector, func(i *do.Injector) (messaging.Publish[analytics.ClickEvent], error) {
		group := do.MustInvoke[*messaging.PublisherGroup](i)

		return messaging.NewPublishFunc[analytics.ClickEvent](group.Publisher(), analytics.TopicClickRecorded), nil
	})

	do.Provide(injector, func(i *do.Injector) (messaging.Publish[analytics.ThrottleEvent], error) {
		group := do.MustInvoke[*messaging.PublisherGroup](i)

		return messaging.NewPublishFunc[analytics.ThrottleEvent](group.Publisher(), analytics.TopicClickThrottled), nil
	})
}

// ConsumerGroupPackage provides the analytics consumer group, persisting
// events to Postgres when configured and logging them otherwise.
func ConsumerGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (analytics.Store, error) {
		options := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if options.PostgresURL == "" {
			logger.Warn("no postgres url configured, analytics events will only be logged")

			return noopstore.NewNoop(logger), nil
		}

		return store.NewPostgresAnalytics(do.MustInvoke[*pgxpool.Pool](i)), nil
	})

	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		logger := do.MustInvoke[*zap.Logger](i)
		analyticsStore := do.MustInvoke[analytics.Store](i)

		subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        do.MustInvoke[*redis.Client](i),
			ConsumerGroup: "click-analytics",
		}, watermill.NopLogger{})
		if err != nil {
			return nil, err
		}

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(messaging.NewConsumer(subscriber, analytics.TopicClickRecorded, analyticsStore.SaveClick, logger))
		group.Add(messaging.NewConsumer(subscriber, analytics.TopicClickThrottled, analyticsStore.SaveThrottle, logger))

		return group, nil
	})
}

// HTTPPackage provides the router, the huma API, and registers all routes.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		router := do.MustInvoke[*chi.Mux](i)
		logger := do.MustInvoke[*zap.Logger](i)

		api := humachi.New(router, huma.DefaultConfig("Click Counter", "1.0.0"))

		newRequestID, err := nanoid.Standard(12)
		if err != nil {
			return nil, err
		}

		api.UseMiddleware(middleware.RequestMeta(api, newRequestID))

		clickHandler := handlers.NewClickHandler(
			do.MustInvoke[*admission.Gate](i),
			do.MustInvoke[*counter.Counter](i),
			do.MustInvoke[messaging.Publish[analytics.ClickEvent]](i),
			do.MustInvoke[messaging.Publish[analytics.ThrottleEvent]](i),
			logger,
		)

		handlers.RegisterRoutes(api, clickHandler)
		health.RegisterRoutes(api, health.NewHandler(health.NewRedisChecker(do.MustInvoke[*redis.Client](i))))

		return api, nil
	})
}
