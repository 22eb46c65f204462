package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/metrics"
	"github.com/kirinyoku/cinebook/internal/repository"
)

// Policy bounds sessions to daily operating hours. Opening and Closing are
// minutes since local midnight in Location.
type Policy struct {
	Opening     int
	Closing     int
	MinDuration int
	MaxDuration int
	Location    *time.Location
}

func DefaultPolicy() Policy {
	return Policy{
		Opening:     8 * 60,
		Closing:     22 * 60,
		MinDuration: 90,
		MaxDuration: 300,
		Location:    time.UTC,
	}
}

// Reader is the part of the store the checker consults. Inside a transaction
// pass the transactional store so the check sees uncommitted edits.
type Reader interface {
	GetHall(ctx context.Context, id int64) (domain.Hall, error)
	ListSessions(ctx context.Context, f domain.SessionFilter) ([]domain.Session, error)
}

type Service struct {
	store   Reader
	policy  Policy
	metrics *metrics.Metrics
}

func New(store Reader, policy Policy, m *metrics.Metrics) *Service {
	if policy.Location == nil {
		policy.Location = time.UTC
	}

	return &Service{
		store:   store,
		policy:  policy,
		metrics: m,
	}
}

func (s *Service) Policy() Policy {
	return s.policy
}

// WithinHours decides duration bounds and operating hours. A session may not
// run past closing, so it never spans midnight.
func (p Policy) WithinHours(start time.Time, durationMin int) domain.Decision {
	if durationMin < p.MinDuration || durationMin > p.MaxDuration {
		return domain.Rejected(domain.ReasonInvalidDuration)
	}

	local := start.In(p.Location)
	sec := local.Hour()*3600 + local.Minute()*60 + local.Second()
	opening, closing := p.Opening*60, p.Closing*60

	if sec < opening || sec >= closing || sec+durationMin*60 > closing {
		return domain.Rejected(domain.ReasonOutsideOperatingHours)
	}

	return domain.Allow
}

// CheckSchedulable decides whether a session of durationMin minutes starting
// at start fits into hallID's schedule.
//
// Parameters:
//   - ctx: request-scoped context.
//   - hallID: the hall to schedule in.
//   - start: proposed start.
//   - durationMin: proposed duration in minutes.
//   - excludeID: session to ignore, the one being edited; 0 for none.
//
// Returns:
//   - domain.Decision: allowed, or the reason for the refusal.
//   - error: only for storage failures.
func (s *Service) CheckSchedulable(
	ctx context.Context,
	hallID int64,
	start time.Time,
	durationMin int,
	excludeID int64,
) (domain.Decision, error) {
	return s.CheckIn(ctx, s.store, hallID, start, durationMin, excludeID)
}

// CheckIn is CheckSchedulable evaluated against r.
func (s *Service) CheckIn(
	ctx context.Context,
	r Reader,
	hallID int64,
	start time.Time,
	durationMin int,
	excludeID int64,
) (domain.Decision, error) {
	const op = "service.scheduling.CheckSchedulable"

	d, err := s.check(ctx, r, hallID, start, durationMin, excludeID)
	if err != nil {
		s.metrics.ScheduleCheck("error")
		return domain.Decision{}, fmt.Errorf("%s: %w", op, err)
	}

	if d.Allowed() {
		s.metrics.ScheduleCheck("ok")
	} else {
		s.metrics.ScheduleCheck(string(d.Reason))
	}

	return d, nil
}

func (s *Service) check(
	ctx context.Context,
	r Reader,
	hallID int64,
	start time.Time,
	durationMin int,
	excludeID int64,
) (domain.Decision, error) {
	if d := s.policy.WithinHours(start, durationMin); !d.Allowed() {
		return d, nil
	}

	if _, err := r.GetHall(ctx, hallID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Rejected(domain.ReasonHallNotFound), nil
		}
		return domain.Decision{}, err
	}

	local := start.In(s.policy.Location)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.policy.Location)

	candidates, err := r.ListSessions(ctx, domain.SessionFilter{
		HallID:    hallID,
		From:      day,
		To:        day.AddDate(0, 0, 1),
		ExcludeID: excludeID,
	})
	if err != nil {
		return domain.Decision{}, err
	}

	end := start.Add(time.Duration(durationMin) * time.Minute)
	for _, c := range candidates {
		if c.Overlaps(start, end) {
			return domain.Rejected(domain.ReasonOverlaps), nil
		}
	}

	return domain.Allow, nil
}
