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

	"github.com/kirinyoku/cinebook/internal/config"
	"github.com/kirinyoku/cinebook/internal/metrics"
	"github.com/kirinyoku/cinebook/internal/notify"
	"github.com/kirinyoku/cinebook/internal/postgres"
	redisx "github.com/kirinyoku/cinebook/internal/redis"
	"github.com/kirinyoku/cinebook/internal/repository"
	"github.com/kirinyoku/cinebook/internal/repository/memory"
	postgresrepo "github.com/kirinyoku/cinebook/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/cinebook/internal/repository/redis"
	"github.com/kirinyoku/cinebook/internal/service"
	"github.com/kirinyoku/cinebook/internal/service/availability"
	"github.com/kirinyoku/cinebook/internal/service/catalog"
	"github.com/kirinyoku/cinebook/internal/service/scheduling"
	httpgin "github.com/kirinyoku/cinebook/internal/transport/http/gin"
	"github.com/kirinyoku/cinebook/internal/uow"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const initTimeout = 30 * time.Second

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	dispatcher *notify.Dispatcher
	closers    []func() error
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	store, tx, err := a.initStorage(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	rdb, err := a.initRedis(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	m := metrics.New()

	var (
		cache   *redisrepo.Cache
		pubsub  *redisx.BookingsPubSub
		idem    *redisrepo.IdempotencyStore
		limiter httpgin.Limiter
		stream  httpgin.Subscriber
	)
	if rdb != nil {
		cache = redisrepo.New(rdb)
		pubsub = redisx.NewBookingsPubSub(rdb)
		idem = redisrepo.NewIdempotencyStore(rdb, cfg.Limits.IdempotencyTTL)
		limiter = redisrepo.NewSlidingWindowLimiter(rdb, "bookings", cfg.Limits.RateLimit, cfg.Limits.RateWindow)
		stream = pubsub
	}

	a.dispatcher = notify.NewDispatcher(
		a.initPublisher(m, pubsub),
		logger.With(slog.String("component", "notify")),
		m,
		notify.DispatcherConfig{
			QueueSize:      cfg.Notify.QueueSize,
			Workers:        cfg.Notify.Workers,
			PublishTimeout: cfg.Notify.PublishTimeout,
		},
	)

	policy := cfg.Policy
	services := service.NewServices(store, tx, cache, a.dispatcher, m, logger, service.Config{
		Availability: availability.Config{
			Policy: availability.Policy{
				Grace:              policy.Booking.GraceWindow.Std(),
				ReportSessionEnded: policy.Booking.ReportSessionEnded,
			},
			SeatMapTTL: cfg.Redis.SeatMapTTL,
		},
		Scheduling: scheduling.Policy{
			Opening:     policy.Schedule.Opening.Minutes(),
			Closing:     policy.Schedule.Closing.Minutes(),
			MinDuration: policy.Schedule.MinDuration,
			MaxDuration: policy.Schedule.MaxDuration,
			Location:    policy.Schedule.Location(),
		},
		Lead: catalog.LeadPolicy{
			MinLead:          policy.Schedule.MinLead.Std(),
			MaxHorizonMonths: policy.Schedule.MaxHorizonMonths,
		},
	})

	closing := make(chan struct{})

	router := httpgin.NewRouter(httpgin.Deps{
		Services:    services,
		Idempotency: idem,
		Limiter:     limiter,
		Stream:      stream,
		Metrics:     m,
		Health:      store.Ping,
		Logger:      logger,
		Closing:     closing,
	})

	a.httpServer = newHTTPServer(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port), router, closing)

	logger.Info("application initialized",
		slog.String("storage", cfg.Storage.Driver),
		slog.Bool("redis", rdb != nil),
		slog.Any("notify_backends", cfg.Notify.Backends),
		slog.Duration("grace_window", policy.Booking.GraceWindow.Std()),
	)

	return a, nil
}

// newHTTPServer closes closing as soon as Shutdown starts. Shutdown does not
// cancel request contexts, so streaming handlers watch closing to let the
// drain finish.
func newHTTPServer(addr string, h http.Handler, closing chan struct{}) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var once sync.Once
	srv.RegisterOnShutdown(func() {
		once.Do(func() { close(closing) })
	})

	return srv
}

func (a *App) initStorage(ctx context.Context) (repository.Store, repository.Transactor, error) {
	if a.cfg.Storage.Driver == config.DriverMemory {
		a.logger.Warn("using in-memory storage, data is lost on exit")
		s := memory.New()
		return s, s, nil
	}

	dsn := a.cfg.Postgres.DSN()

	if err := postgres.Migrate(dsn); err != nil {
		return nil, nil, fmt.Errorf("failed to migrate postgres: %w", err)
	}

	pool, err := postgres.New(ctx, postgres.Config{DSN: dsn, MaxConns: a.cfg.Postgres.MaxConns})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}
	a.closers = append(a.closers, func() error {
		pool.Close()
		return nil
	})

	store := postgresrepo.NewStore(pool)
	return store, uow.NewUoW(store), nil
}

// initRedis connects to redis. With the in-memory driver redis is optional
// and the features backed by it are switched off when it is unreachable.
func (a *App) initRedis(ctx context.Context) (*redis.Client, error) {
	rdb, err := redisx.New(ctx, redisx.Config{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	if err != nil {
		if a.cfg.Storage.Driver == config.DriverMemory {
			a.logger.Warn("redis unavailable, running without cache, rate limit and live updates",
				slog.String("err", err.Error()))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	a.closers = append(a.closers, rdb.Close)
	return rdb, nil
}

func (a *App) initPublisher(m *metrics.Metrics, pubsub *redisx.BookingsPubSub) notify.Publisher {
	var pubs []notify.Publisher

	for _, backend := range a.cfg.Notify.Backends {
		switch backend {
		case "redis":
			if pubsub == nil {
				a.logger.Warn("redis notification backend skipped, redis is unavailable")
				continue
			}
			pubs = append(pubs, pubsub)
		case "kafka":
			k := notify.NewKafkaPublisher(a.cfg.Notify.KafkaBrokers, a.cfg.Notify.KafkaTopic)
			a.closers = append(a.closers, k.Close)
			pubs = append(pubs, k)
		case "amqp":
			q := notify.NewAMQPPublisher(a.cfg.Notify.AMQPURL, a.cfg.Notify.AMQPQueue)
			a.closers = append(a.closers, q.Close)
			pubs = append(pubs, q)
		}
	}

	if len(pubs) == 0 {
		return notify.Nop{}
	}
	return notify.NewFanout(m, pubs...)
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer a.close()

	g, gCtx := errgroup.WithContext(ctx)

	// the dispatcher outlives the HTTP server so events of in-flight requests
	// are still delivered
	dispatchCtx, stopDispatch := context.WithCancel(context.WithoutCancel(ctx))
	defer stopDispatch()

	g.Go(func() error {
		return a.dispatcher.Run(dispatchCtx)
	})

	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		defer stopDispatch()

		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("failed to release resource", slog.String("err", err.Error()))
		}
	}
	a.closers = nil
}
