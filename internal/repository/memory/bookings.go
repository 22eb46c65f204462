package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/repository"
)

func (s *Store) GetBooking(_ context.Context, key domain.BookingKey) (domain.Booking, error) {
	var b domain.Booking
	err := s.read(func(st *state) error {
		at, ok := st.bookings[key]
		if !ok {
			return notFound("memory.Store.GetBooking")
		}
		b = domain.Booking{BookingKey: key, CreatedAt: at}
		return nil
	})
	return b, err
}

func (s *Store) BookingExists(_ context.Context, sessionID, seatID int64) (bool, error) {
	var found bool
	err := s.read(func(st *state) error {
		_, found = st.taken[sessionSeat{sessionID, seatID}]
		return nil
	})
	return found, err
}

func (s *Store) ListBookings(_ context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	var out []domain.Booking
	starts := make(map[int64]int64)

	err := s.read(func(st *state) error {
		for k, at := range st.bookings {
			switch {
			case f.ViewerID != 0 && k.ViewerID != f.ViewerID,
				f.SessionID != 0 && k.SessionID != f.SessionID,
				f.SeatID != 0 && k.SeatID != f.SeatID:
				continue
			}
			out = append(out, domain.Booking{BookingKey: k, CreatedAt: at})
			starts[k.SessionID] = st.sessions[k.SessionID].StartsAt.UnixNano()
		}
		return nil
	})

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if starts[a.SessionID] != starts[b.SessionID] {
			return starts[a.SessionID] > starts[b.SessionID]
		}
		if a.SessionID != b.SessionID {
			return a.SessionID < b.SessionID
		}
		return a.SeatID < b.SeatID
	})
	return out, err
}

// InsertBooking is the insert-if-absent primitive keyed by (session, seat).
func (s *Store) InsertBooking(_ context.Context, key domain.BookingKey) (domain.Booking, error) {
	const op = "memory.Store.InsertBooking"

	var b domain.Booking
	err := s.write(func(st *state) error {
		_, viewer := st.viewers[key.ViewerID]
		_, session := st.sessions[key.SessionID]
		_, seat := st.seats[key.SeatID]
		if !viewer || !session || !seat {
			return fmt.Errorf("%s: %w", op, repository.ErrReferenced)
		}

		pair := sessionSeat{key.SessionID, key.SeatID}
		if _, ok := st.taken[pair]; ok {
			return fmt.Errorf("%s: %w", op, repository.ErrConflict)
		}

		at := s.now().UTC()
		st.bookings[key] = at
		st.taken[pair] = key
		b = domain.Booking{BookingKey: key, CreatedAt: at}
		return nil
	})
	return b, err
}

func (s *Store) DeleteBooking(_ context.Context, key domain.BookingKey) error {
	return s.write(func(st *state) error {
		if _, ok := st.bookings[key]; !ok {
			return notFound("memory.Store.DeleteBooking")
		}
		delete(st.bookings, key)
		delete(st.taken, sessionSeat{key.SessionID, key.SeatID})
		return nil
	})
}

func (s *Store) BookedSeatIDs(_ context.Context, hallID int64) ([]int64, error) {
	seen := make(map[int64]struct{})
	err := s.read(func(st *state) error {
		for k := range st.bookings {
			if st.seats[k.SeatID].HallID == hallID {
				seen[k.SeatID] = struct{}{}
			}
		}
		return nil
	})

	out := make([]int64, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, err
}

func (s *Store) BookingDisplay(_ context.Context, key domain.BookingKey) (domain.DisplayInfo, error) {
	var d domain.DisplayInfo
	err := s.read(func(st *state) error {
		ss, ok1 := st.sessions[key.SessionID]
		film, ok2 := st.films[ss.FilmID]
		seat, ok3 := st.seats[key.SeatID]
		viewer, ok4 := st.viewers[key.ViewerID]
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return notFound("memory.Store.BookingDisplay")
		}
		d = domain.DisplayInfo{
			FilmName:    film.Name,
			SeatLabel:   seat.Label(),
			SessionTime: ss.StartsAt,
			ViewerName:  viewer.Name,
		}
		return nil
	})
	return d, err
}
