package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/repository"
	redisrepo "github.com/kirinyoku/cinebook/internal/repository/redis"
	"github.com/kirinyoku/cinebook/internal/service/scheduling"
)

const (
	MaxRows        = 20
	MaxSeatsPerRow = 25
)

// Scheduler evaluates a proposed session against a store view.
type Scheduler interface {
	CheckIn(
		ctx context.Context,
		r scheduling.Reader,
		hallID int64,
		start time.Time,
		durationMin int,
		excludeID int64,
	) (domain.Decision, error)
}

// LeadPolicy bounds how far ahead sessions may be scheduled.
type LeadPolicy struct {
	MinLead          time.Duration
	MaxHorizonMonths int
}

type Deps struct {
	Store     repository.Store
	Tx        repository.Transactor
	Scheduler Scheduler
	Cache     *redisrepo.Cache
	Lead      LeadPolicy
	Log       *slog.Logger
	Now       func() time.Time
}

// Service owns the catalog: films, viewers, halls with their seat grids and
// sessions. Every write that could invalidate an existing booking is refused
// while that booking exists.
type Service struct {
	store     repository.Store
	tx        repository.Transactor
	scheduler Scheduler
	cache     *redisrepo.Cache
	lead      LeadPolicy
	log       *slog.Logger
	now       func() time.Time
}

func New(d Deps) *Service {
	if d.Lead.MaxHorizonMonths <= 0 {
		d.Lead.MaxHorizonMonths = 2
	}

	if d.Now == nil {
		d.Now = time.Now
	}

	if d.Log == nil {
		d.Log = slog.Default()
	}

	return &Service{
		store:     d.Store,
		tx:        d.Tx,
		scheduler: d.Scheduler,
		cache:     d.Cache,
		lead:      d.Lead,
		log:       d.Log,
		now:       d.Now,
	}
}

func (s *Service) CreateFilm(ctx context.Context, name string) (domain.Film, error) {
	const op = "service.catalog.CreateFilm"

	f, err := s.store.InsertFilm(ctx, domain.Film{Name: name})
	if err != nil {
		return domain.Film{}, fmt.Errorf("%s: %w", op, err)
	}

	return f, nil
}

func (s *Service) CreateViewer(ctx context.Context, name string) (domain.Viewer, error) {
	const op = "service.catalog.CreateViewer"

	v, err := s.store.InsertViewer(ctx, domain.Viewer{Name: name})
	if err != nil {
		return domain.Viewer{}, fmt.Errorf("%s: %w", op, err)
	}

	return v, nil
}

// invalidate drops cached seat maps. Failures only cost freshness.
func (s *Service) invalidate(ctx context.Context, sessionIDs ...int64) {
	for _, id := range sessionIDs {
		if err := s.cache.InvalidateSession(ctx, id); err != nil {
			s.log.Warn("seat map cache not invalidated",
				slog.Int64("session_id", id),
				slog.String("err", err.Error()),
			)
		}
	}
}

func notFound(err error, r domain.Reason) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Reject(r)
	}
	return err
}
