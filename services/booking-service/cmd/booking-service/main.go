package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/md-rashed-zaman/carebook/libs/config"
	"github.com/md-rashed-zaman/carebook/libs/db"
	"github.com/md-rashed-zaman/carebook/libs/grpcx"
	"github.com/md-rashed-zaman/carebook/libs/httpx"
	"github.com/md-rashed-zaman/carebook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/carebook/libs/otel"
	"github.com/md-rashed-zaman/carebook/libs/runtime"
	"github.com/md-rashed-zaman/carebook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/carebook/services/booking-service/internal/consumer"
	"github.com/md-rashed-zaman/carebook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/carebook/services/booking-service/internal/hourscache"
	"github.com/md-rashed-zaman/carebook/services/booking-service/internal/inbox"
	"github.com/md-rashed-zaman/carebook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/carebook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/carebook/services/booking-service/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := run(); err != nil {
		slog.Error("booking-service exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	bootLogger := runtime.NewLogger("booking-service")
	if err := config.LoadDotenv(); err != nil {
		bootLogger.Warn("dotenv load failed", "err", err)
	}

	service := config.String("SERVICE_NAME", "booking-service")
	logger := runtime.NewLogger(service)
	port, err := config.Port("PORT", "8083")
	if err != nil {
		return err
	}
	grpcPort, err := config.Port("GRPC_PORT", "9083")
	if err != nil {
		return err
	}
	slotMinutes, err := config.Int("DEFAULT_SLOT_MINUTES", 30)
	if err != nil {
		return err
	}
	maxSlotMinutes, err := config.Int("MAX_SLOT_MINUTES", 8*60)
	if err != nil {
		return err
	}
	ratePerMinute, err := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if err != nil {
		return err
	}
	cacheTTL, err := config.Duration("HOURS_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return err
	}
	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		return err
	}
	brokers := config.String("KAFKA_BROKERS", "")

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		return err
	}
	defer pool.Close()

	var rdb *redis.Client
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
		})
		defer func() { _ = rdb.Close() }()
	} else {
		logger.Warn("redis disabled (REDIS_ADDR unset); hours cache bypassed, rate limit is per instance")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	hoursRepo := storage.NewHoursRepository(pool)
	bookingRepo := storage.NewBookingRepository(pool)
	outboxRepo := outbox.NewRepository()
	var cacheClient redis.Cmdable
	if rdb != nil {
		cacheClient = rdb
	}
	hoursCache := hourscache.New(cacheClient, hoursRepo, cacheTTL, logger, m)
	avail := availability.NewService(hoursCache, bookingRepo)

	publisher := outbox.NewPublisher(pool, outboxRepo, logger, m, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go publisher.Run(ctx)

	if topic := config.String("KAFKA_HOURS_TOPIC", outbox.TypeHoursUpdated); brokers != "" && topic != "" {
		hoursConsumer := consumer.New(logger, inbox.NewRepository(pool), m, consumer.Config{
			Brokers: brokers,
			GroupID: config.String("KAFKA_GROUP_ID", service),
			Topic:   topic,
		}, consumer.HoursUpdated(logger, hoursRepo, hoursCache, service))
		go hoursConsumer.Run(ctx)
	} else {
		logger.Warn("hours consumer disabled (no kafka brokers configured)")
	}

	var slotLimit httpx.Middleware
	if rdb != nil {
		limiter := httpx.NewRedisRateLimiter(rdb, ratePerMinute, time.Minute, service+":slots")
		slotLimit = limiter.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
	} else {
		slotLimit = httpx.NewLocalRateLimiter(ratePerMinute, time.Minute)
	}

	checks := readyChecks(pool, rdb, brokers)

	bookingHandler := handlers.NewBookingHandler(avail, bookingRepo, outboxRepo, logger, m, handlers.BookingConfig{
		DefaultSlotMinutes: slotMinutes,
		MaxSlotMinutes:     maxSlotMinutes,
	})
	hoursHandler := handlers.NewHoursHandler(avail, hoursRepo, outboxRepo, hoursCache, logger, service)

	r := chi.NewRouter()
	r.Use(
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger, m),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.Strings("CORS_ALLOWED_ORIGINS", nil),
			MaxAge:         10 * time.Minute,
		}),
	)
	r.Get("/healthz", runtime.Healthz)
	r.Get("/readyz", runtime.Readyz(checks...))
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	r.Group(func(r chi.Router) {
		r.Use(httpx.WithTimeout(10 * time.Second))
		handlers.Routes(r, bookingHandler, hoursHandler, slotLimit)
	})

	httpHandler := httpx.Chain(r, httpx.WithBodyLimit(1<<20))
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpcx.NewServer(logger)
	lis, err := net.Listen("tcp", ":"+grpcPort)
	if err != nil {
		return err
	}
	go grpcServer.WatchReady(ctx, 5*time.Second, db.ReadyCheck(pool))
	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	err = runtime.Shutdown(10*time.Second,
		srv.Shutdown,
		func(context.Context) error {
			grpcServer.Stop()
			return nil
		},
		otelShutdown,
	)
	if err != nil {
		logger.Error("shutdown error", "err", err)
	}
	logger.Info("servers stopped")
	return nil
}

// readyChecks covers the database plus whichever of Redis and Kafka are configured.
func readyChecks(pool *db.Pool, rdb *redis.Client, brokers string) []runtime.ReadyCheck {
	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	if rdb != nil {
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }})
	}
	if brokers != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	return checks
}
