package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/repository"
)

func notFound(op string) error {
	return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
}

func (s *Store) GetFilm(_ context.Context, id int64) (domain.Film, error) {
	var f domain.Film
	err := s.read(func(st *state) error {
		var ok bool
		if f, ok = st.films[id]; !ok {
			return notFound("memory.Store.GetFilm")
		}
		return nil
	})
	return f, err
}

func (s *Store) InsertFilm(_ context.Context, f domain.Film) (domain.Film, error) {
	err := s.write(func(st *state) error {
		f.ID = st.nextID()
		st.films[f.ID] = f
		return nil
	})
	return f, err
}

func (s *Store) GetViewer(_ context.Context, id int64) (domain.Viewer, error) {
	var v domain.Viewer
	err := s.read(func(st *state) error {
		var ok bool
		if v, ok = st.viewers[id]; !ok {
			return notFound("memory.Store.GetViewer")
		}
		return nil
	})
	return v, err
}

func (s *Store) InsertViewer(_ context.Context, v domain.Viewer) (domain.Viewer, error) {
	err := s.write(func(st *state) error {
		v.ID = st.nextID()
		st.viewers[v.ID] = v
		return nil
	})
	return v, err
}

func (s *Store) GetHall(_ context.Context, id int64) (domain.Hall, error) {
	var h domain.Hall
	err := s.read(func(st *state) error {
		var ok bool
		if h, ok = st.halls[id]; !ok {
			return notFound("memory.Store.GetHall")
		}
		return nil
	})
	return h, err
}

// LockHall is GetHall: transactions are already serialized.
func (s *Store) LockHall(ctx context.Context, id int64) (domain.Hall, error) {
	return s.GetHall(ctx, id)
}

func hallNameTaken(st *state, name string, exceptID int64) bool {
	for _, h := range st.halls {
		if h.ID != exceptID && strings.EqualFold(h.Name, name) {
			return true
		}
	}
	return false
}

func (s *Store) InsertHall(_ context.Context, h domain.Hall) (domain.Hall, error) {
	const op = "memory.Store.InsertHall"

	err := s.write(func(st *state) error {
		if hallNameTaken(st, h.Name, 0) {
			return fmt.Errorf("%s: %w", op, repository.ErrConflict)
		}
		h.ID = st.nextID()
		st.halls[h.ID] = h
		return nil
	})
	return h, err
}

func (s *Store) UpdateHall(_ context.Context, h domain.Hall) error {
	const op = "memory.Store.UpdateHall"

	return s.write(func(st *state) error {
		if _, ok := st.halls[h.ID]; !ok {
			return notFound(op)
		}
		if hallNameTaken(st, h.Name, h.ID) {
			return fmt.Errorf("%s: %w", op, repository.ErrConflict)
		}
		st.halls[h.ID] = h
		return nil
	})
}

// DeleteHall removes the hall with its seats and sessions. It fails with
// ErrReferenced while any of them is booked.
func (s *Store) DeleteHall(_ context.Context, id int64) error {
	const op = "memory.Store.DeleteHall"

	return s.write(func(st *state) error {
		if _, ok := st.halls[id]; !ok {
			return notFound(op)
		}
		for k := range st.bookings {
			if st.seats[k.SeatID].HallID == id || st.sessions[k.SessionID].HallID == id {
				return fmt.Errorf("%s: %w", op, repository.ErrReferenced)
			}
		}
		for sid, seat := range st.seats {
			if seat.HallID == id {
				delete(st.seats, sid)
				delete(st.seatPos, seatPos{seat.HallID, seat.Row, seat.Number})
			}
		}
		for sid, ss := range st.sessions {
			if ss.HallID == id {
				delete(st.sessions, sid)
			}
		}
		delete(st.halls, id)
		return nil
	})
}

func (s *Store) HallHasBookings(_ context.Context, hallID int64) (bool, error) {
	var found bool
	err := s.read(func(st *state) error {
		for k := range st.bookings {
			if st.seats[k.SeatID].HallID == hallID {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (s *Store) GetSeat(_ context.Context, id int64) (domain.Seat, error) {
	var seat domain.Seat
	err := s.read(func(st *state) error {
		var ok bool
		if seat, ok = st.seats[id]; !ok {
			return notFound("memory.Store.GetSeat")
		}
		return nil
	})
	return seat, err
}

func sortSeats(seats []domain.Seat) {
	sort.Slice(seats, func(i, j int) bool {
		if seats[i].Row != seats[j].Row {
			return seats[i].Row < seats[j].Row
		}
		return seats[i].Number < seats[j].Number
	})
}

func (s *Store) ListSeats(_ context.Context, hallID int64) ([]domain.Seat, error) {
	var out []domain.Seat
	err := s.read(func(st *state) error {
		for _, seat := range st.seats {
			if seat.HallID == hallID {
				out = append(out, seat)
			}
		}
		return nil
	})
	sortSeats(out)
	return out, err
}

// InsertSeats skips seats whose position already exists in the hall.
func (s *Store) InsertSeats(_ context.Context, seats []domain.Seat) error {
	const op = "memory.Store.InsertSeats"

	return s.write(func(st *state) error {
		for _, seat := range seats {
			if _, ok := st.halls[seat.HallID]; !ok {
				return fmt.Errorf("%s: %w", op, repository.ErrReferenced)
			}
		}
		for _, seat := range seats {
			pos := seatPos{seat.HallID, seat.Row, seat.Number}
			if _, ok := st.seatPos[pos]; ok {
				continue
			}
			seat.ID = st.nextID()
			st.seats[seat.ID] = seat
			st.seatPos[pos] = seat.ID
		}
		return nil
	})
}

func (s *Store) DeleteSeats(_ context.Context, ids []int64) error {
	const op = "memory.Store.DeleteSeats"

	return s.write(func(st *state) error {
		drop := make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			drop[id] = struct{}{}
		}
		for k := range st.bookings {
			if _, ok := drop[k.SeatID]; ok {
				return fmt.Errorf("%s: %w", op, repository.ErrReferenced)
			}
		}
		for id := range drop {
			seat, ok := st.seats[id]
			if !ok {
				continue
			}
			delete(st.seats, id)
			delete(st.seatPos, seatPos{seat.HallID, seat.Row, seat.Number})
		}
		return nil
	})
}

func (s *Store) SeatMap(_ context.Context, sessionID, hallID int64) ([]domain.SeatState, error) {
	var seats []domain.Seat
	booked := make(map[int64]bool)

	err := s.read(func(st *state) error {
		for _, seat := range st.seats {
			if seat.HallID == hallID {
				seats = append(seats, seat)
				_, booked[seat.ID] = st.taken[sessionSeat{sessionID, seat.ID}]
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortSeats(seats)
	out := make([]domain.SeatState, 0, len(seats))
	for _, seat := range seats {
		out = append(out, domain.SeatState{Seat: seat, Booked: booked[seat.ID]})
	}
	return out, nil
}

func (s *Store) GetSession(_ context.Context, id int64) (domain.Session, error) {
	var ss domain.Session
	err := s.read(func(st *state) error {
		var ok bool
		if ss, ok = st.sessions[id]; !ok {
			return notFound("memory.Store.GetSession")
		}
		return nil
	})
	return ss, err
}

// LockSession and ShareSession are GetSession: transactions are already
// serialized.
func (s *Store) LockSession(ctx context.Context, id int64) (domain.Session, error) {
	return s.GetSession(ctx, id)
}

func (s *Store) ShareSession(ctx context.Context, id int64) (domain.Session, error) {
	return s.GetSession(ctx, id)
}

func (s *Store) ListSessions(_ context.Context, f domain.SessionFilter) ([]domain.Session, error) {
	var out []domain.Session
	err := s.read(func(st *state) error {
		for _, ss := range st.sessions {
			switch {
			case f.HallID != 0 && ss.HallID != f.HallID,
				f.FilmID != 0 && ss.FilmID != f.FilmID,
				!f.From.IsZero() && ss.StartsAt.Before(f.From),
				!f.To.IsZero() && !ss.StartsAt.Before(f.To),
				f.ExcludeID != 0 && ss.ID == f.ExcludeID:
				continue
			}
			out = append(out, ss)
		}
		return nil
	})

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].StartsAt.Before(out[j].StartsAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func checkSessionRefs(st *state, ss domain.Session) bool {
	_, film := st.films[ss.FilmID]
	_, hall := st.halls[ss.HallID]
	return film && hall
}

func (s *Store) InsertSession(_ context.Context, ss domain.Session) (domain.Session, error) {
	const op = "memory.Store.InsertSession"

	err := s.write(func(st *state) error {
		if !checkSessionRefs(st, ss) {
			return fmt.Errorf("%s: %w", op, repository.ErrReferenced)
		}
		ss.ID = st.nextID()
		st.sessions[ss.ID] = ss
		return nil
	})
	return ss, err
}

func (s *Store) UpdateSession(_ context.Context, ss domain.Session) error {
	const op = "memory.Store.UpdateSession"

	return s.write(func(st *state) error {
		if _, ok := st.sessions[ss.ID]; !ok {
			return notFound(op)
		}
		if !checkSessionRefs(st, ss) {
			return fmt.Errorf("%s: %w", op, repository.ErrReferenced)
		}
		st.sessions[ss.ID] = ss
		return nil
	})
}

func (s *Store) DeleteSession(_ context.Context, id int64) error {
	const op = "memory.Store.DeleteSession"

	return s.write(func(st *state) error {
		if _, ok := st.sessions[id]; !ok {
			return notFound(op)
		}
		for k := range st.bookings {
			if k.SessionID == id {
				return fmt.Errorf("%s: %w", op, repository.ErrReferenced)
			}
		}
		delete(st.sessions, id)
		return nil
	})
}

func (s *Store) SessionHasBookings(_ context.Context, id int64) (bool, error) {
	var found bool
	err := s.read(func(st *state) error {
		for k := range st.bookings {
			if k.SessionID == id {
				found = true
				break
			}
		}
		return nil
	})
	return found, err
}
