package service

import (
	"log/slog"
	"time"

	"github.com/kirinyoku/cinebook/internal/metrics"
	"github.com/kirinyoku/cinebook/internal/repository"
	redisrepo "github.com/kirinyoku/cinebook/internal/repository/redis"
	"github.com/kirinyoku/cinebook/internal/service/availability"
	"github.com/kirinyoku/cinebook/internal/service/booking"
	"github.com/kirinyoku/cinebook/internal/service/catalog"
	"github.com/kirinyoku/cinebook/internal/service/scheduling"
)

type Services struct {
	Availability *availability.Service
	Scheduling   *scheduling.Service
	Booking      *booking.Service
	Catalog      *catalog.Service
}

type Config struct {
	Availability availability.Config
	Scheduling   scheduling.Policy
	Lead         catalog.LeadPolicy
	Now          func() time.Time
}

func NewServices(
	store repository.Store,
	tx repository.Transactor,
	cache *redisrepo.Cache,
	notifier booking.Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
	cfg Config,
) *Services {
	avail := availability.New(store, cache, cfg.Availability)
	sched := scheduling.New(store, cfg.Scheduling, m)

	return &Services{
		Availability: avail,
		Scheduling:   sched,
		Booking: booking.New(booking.Deps{
			Store:    store,
			Tx:       tx,
			Checker:  avail,
			Cache:    cache,
			Notifier: notifier,
			Metrics:  m,
			Log:      logger.With(slog.String("component", "booking")),
			Now:      cfg.Now,
		}),
		Catalog: catalog.New(catalog.Deps{
			Store:     store,
			Tx:        tx,
			Scheduler: sched,
			Cache:     cache,
			Lead:      cfg.Lead,
			Log:       logger.With(slog.String("component", "catalog")),
			Now:       cfg.Now,
		}),
	}
}
