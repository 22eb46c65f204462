package postgres

import (
	"context"
	"fmt"

	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/repository"
)

func (s *Store) GetSession(ctx context.Context, id int64) (domain.Session, error) {
	return s.selectSession(ctx, "postgres.Store.GetSession", id, "")
}

// LockSession reads the session FOR UPDATE. Catalog edits take it before
// checking for bookings so a concurrent booking can not slip in between.
func (s *Store) LockSession(ctx context.Context, id int64) (domain.Session, error) {
	return s.selectSession(ctx, "postgres.Store.LockSession", id, " FOR UPDATE")
}

// ShareSession reads the session FOR SHARE. Booking writers take it so the
// session keeps its hall until they commit; shared locks do not block each
// other.
func (s *Store) ShareSession(ctx context.Context, id int64) (domain.Session, error) {
	return s.selectSession(ctx, "postgres.Store.ShareSession", id, " FOR SHARE")
}

func (s *Store) selectSession(ctx context.Context, op string, id int64, lock string) (domain.Session, error) {
	var ss domain.Session
	err := s.handle().QueryRow(ctx,
		`SELECT id, film_id, hall_id, starts_at, duration_min
		 FROM sessions WHERE id = $1`+lock,
		id,
	).Scan(&ss.ID, &ss.FilmID, &ss.HallID, &ss.StartsAt, &ss.Duration)
	if err != nil {
		return domain.Session{}, wrapDBErr(op, err)
	}

	return ss, nil
}

// ListSessions returns sessions matching every non-zero field of the filter,
// ordered by start time.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - f: hall, film, start range and an optional session to leave out.
//
// Returns:
//   - []domain.Session: matching sessions, possibly empty.
//   - error: translated storage error.
func (s *Store) ListSessions(ctx context.Context, f domain.SessionFilter) ([]domain.Session, error) {
	const op = "postgres.Store.ListSessions"

	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.HallID != 0 {
		add("hall_id = $%d", f.HallID)
	}
	if f.FilmID != 0 {
		add("film_id = $%d", f.FilmID)
	}
	if !f.From.IsZero() {
		add("starts_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("starts_at < $%d", f.To)
	}
	if f.ExcludeID != 0 {
		add("id <> $%d", f.ExcludeID)
	}

	rows, err := s.handle().Query(ctx,
		`SELECT id, film_id, hall_id, starts_at, duration_min
		 FROM sessions`+whereClause(conds)+`
		 ORDER BY starts_at, id`,
		args...,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		var ss domain.Session
		if err := rows.Scan(&ss.ID, &ss.FilmID, &ss.HallID, &ss.StartsAt, &ss.Duration); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, ss)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (s *Store) InsertSession(ctx context.Context, ss domain.Session) (domain.Session, error) {
	const op = "postgres.Store.InsertSession"

	err := s.handle().QueryRow(ctx,
		`INSERT INTO sessions(film_id, hall_id, starts_at, duration_min)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		ss.FilmID, ss.HallID, ss.StartsAt, ss.Duration,
	).Scan(&ss.ID)
	if err != nil {
		return domain.Session{}, wrapDBErr(op, err)
	}

	return ss, nil
}

func (s *Store) UpdateSession(ctx context.Context, ss domain.Session) error {
	const op = "postgres.Store.UpdateSession"

	tag, err := s.handle().Exec(ctx,
		`UPDATE sessions
		 SET film_id = $2, hall_id = $3, starts_at = $4, duration_min = $5
		 WHERE id = $1`,
		ss.ID, ss.FilmID, ss.HallID, ss.StartsAt, ss.Duration,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

func (s *Store) DeleteSession(ctx context.Context, id int64) error {
	const op = "postgres.Store.DeleteSession"

	tag, err := s.handle().Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

func (s *Store) SessionHasBookings(ctx context.Context, id int64) (bool, error) {
	const op = "postgres.Store.SessionHasBookings"

	var exists bool
	err := s.handle().QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM bookings WHERE session_id = $1)`,
		id,
	).Scan(&exists)
	if err != nil {
		return false, wrapDBErr(op, err)
	}

	return exists, nil
}
