package catalog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/repository/memory"
	redisrepo "github.com/kirinyoku/cinebook/internal/repository/redis"
	"github.com/kirinyoku/cinebook/internal/service/scheduling"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func tomorrow(h, m int) time.Time {
	return time.Date(2026, 6, 2, h, m, 0, 0, time.UTC)
}

type fixture struct {
	store *memory.Store
	svc   *Service
	film  domain.Film
	hall  domain.Hall
}

func setup(t *testing.T, cache *redisrepo.Cache) *fixture {
	t.Helper()
	ctx := context.Background()
	s := memory.New()

	svc := New(Deps{
		Store:     s,
		Tx:        s,
		Scheduler: scheduling.New(s, scheduling.DefaultPolicy(), nil),
		Cache:     cache,
		Lead:      LeadPolicy{MinLead: time.Hour, MaxHorizonMonths: 2},
		Now:       func() time.Time { return now },
	})

	film, err := svc.CreateFilm(ctx, "Andrei Rublev")
	require.NoError(t, err)
	hall, err := svc.CreateHall(ctx, domain.Hall{Name: "Main", Rows: 3, SeatsPerRow: 3})
	require.NoError(t, err)

	return &fixture{store: s, svc: svc, film: film, hall: hall}
}

func (fx *fixture) session(start time.Time, duration int) domain.Session {
	return domain.Session{FilmID: fx.film.ID, HallID: fx.hall.ID, StartsAt: start, Duration: duration}
}

func (fx *fixture) book(t *testing.T, sessionID int64, row, number int) {
	t.Helper()
	ctx := context.Background()

	viewer, err := fx.svc.CreateViewer(ctx, "Ann")
	require.NoError(t, err)

	seats, err := fx.store.ListSeats(ctx, fx.hall.ID)
	require.NoError(t, err)
	for _, seat := range seats {
		if seat.Row == row && seat.Number == number {
			_, err := fx.store.InsertBooking(ctx, domain.BookingKey{ViewerID: viewer.ID, SessionID: sessionID, SeatID: seat.ID})
			require.NoError(t, err)
			return
		}
	}
	t.Fatalf("no seat %d/%d", row, number)
}

func assertReason(t *testing.T, err error, want domain.Reason) {
	t.Helper()
	got, ok := domain.ReasonOf(err)
	require.True(t, ok, "expected a rejection, got %v", err)
	assert.Equal(t, want, got)
}

func TestCreateHall(t *testing.T) {
	fx := setup(t, nil)
	ctx := context.Background()

	seats, err := fx.store.ListSeats(ctx, fx.hall.ID)
	require.NoError(t, err)
	require.Len(t, seats, 9)
	assert.Equal(t, 1, seats[0].Row)
	assert.Equal(t, 1, seats[0].Number)
	assert.Equal(t, 3, seats[8].Row)
	assert.Equal(t, 3, seats[8].Number)

	_, err = fx.svc.CreateHall(ctx, domain.Hall{Name: "MAIN", Rows: 1, SeatsPerRow: 1})
	assertReason(t, err, domain.ReasonNameTaken)
	assert.ErrorIs(t, err, domain.ErrConflict)

	sizes := []struct{ rows, perRow int }{{0, 5}, {21, 5}, {5, 0}, {5, 26}}
	for _, sz := range sizes {
		_, err := fx.svc.CreateHall(ctx, domain.Hall{Name: "Odd", Rows: sz.rows, SeatsPerRow: sz.perRow})
		assertReason(t, err, domain.ReasonInvalidHallSize)
	}

	big, err := fx.svc.CreateHall(ctx, domain.Hall{Name: "Big", Rows: MaxRows, SeatsPerRow: MaxSeatsPerRow})
	require.NoError(t, err)
	seats, err = fx.store.ListSeats(ctx, big.ID)
	require.NoError(t, err)
	assert.Len(t, seats, MaxRows*MaxSeatsPerRow)
}

func TestResizeHall(t *testing.T) {
	fx := setup(t, nil)
	ctx := context.Background()

	ss, err := fx.svc.CreateSession(ctx, fx.session(tomorrow(12, 0), 120))
	require.NoError(t, err)
	fx.book(t, ss.ID, 3, 3)

	_, err = fx.svc.ResizeHall(ctx, domain.Hall{ID: fx.hall.ID, Name: "Main", Rows: 2, SeatsPerRow: 2})
	assertReason(t, err, domain.ReasonSeatsBooked)

	seats, err := fx.store.ListSeats(ctx, fx.hall.ID)
	require.NoError(t, err)
	assert.Len(t, seats, 9)

	h, err := fx.svc.ResizeHall(ctx, domain.Hall{ID: fx.hall.ID, Name: "Main", Rows: 3, SeatsPerRow: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, h.SeatsPerRow)

	seats, err = fx.store.ListSeats(ctx, fx.hall.ID)
	require.NoError(t, err)
	assert.Len(t, seats, 12)

	// the booked seat kept its identity
	ok, err := fx.store.HallHasBookings(ctx, fx.hall.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = fx.svc.ResizeHall(ctx, domain.Hall{ID: fx.hall.ID, Name: "Main", Rows: 3, SeatsPerRow: 3})
	require.NoError(t, err)
	seats, err = fx.store.ListSeats(ctx, fx.hall.ID)
	require.NoError(t, err)
	assert.Len(t, seats, 9)

	_, err = fx.svc.ResizeHall(ctx, domain.Hall{ID: 9999, Name: "Ghost", Rows: 1, SeatsPerRow: 1})
	assertReason(t, err, domain.ReasonHallNotFound)

	_, err = fx.svc.ResizeHall(ctx, domain.Hall{ID: fx.hall.ID, Name: "Main", Rows: 30, SeatsPerRow: 1})
	assertReason(t, err, domain.ReasonInvalidHallSize)
}

func TestDeleteHall(t *testing.T) {
	fx := setup(t, nil)
	ctx := context.Background()

	_, err := fx.svc.CreateSession(ctx, fx.session(tomorrow(12, 0), 120))
	require.NoError(t, err)

	assertReason(t, fx.svc.DeleteHall(ctx, fx.hall.ID), domain.ReasonHallInUse)

	empty, err := fx.svc.CreateHall(ctx, domain.Hall{Name: "Empty", Rows: 2, SeatsPerRow: 2})
	require.NoError(t, err)
	require.NoError(t, fx.svc.DeleteHall(ctx, empty.ID))

	_, err = fx.svc.GetHall(ctx, empty.ID)
	assertReason(t, err, domain.ReasonHallNotFound)

	assertReason(t, fx.svc.DeleteHall(ctx, empty.ID), domain.ReasonHallNotFound)
}

func TestCreateSession(t *testing.T) {
	fx := setup(t, nil)
	ctx := context.Background()

	_, err := fx.svc.CreateSession(ctx, fx.session(tomorrow(12, 0), 120))
	require.NoError(t, err)

	tests := []struct {
		name string
		ss   domain.Session
		want domain.Reason
	}{
		{"back to back", fx.session(tomorrow(14, 0), 90), ""},
		{"too soon", fx.session(now.Add(30*time.Minute), 90), domain.ReasonTooSoon},
		{"too far", fx.session(now.AddDate(0, 3, 0), 90), domain.ReasonTooFar},
		{"before opening", fx.session(tomorrow(7, 30), 90), domain.ReasonOutsideOperatingHours},
		{"past closing", fx.session(tomorrow(21, 0), 90), domain.ReasonOutsideOperatingHours},
		{"too short", fx.session(tomorrow(16, 0), 60), domain.ReasonInvalidDuration},
		{"overlap", fx.session(tomorrow(13, 0), 90), domain.ReasonOverlaps},
		{"unknown film", domain.Session{FilmID: 9999, HallID: fx.hall.ID, StartsAt: tomorrow(18, 0), Duration: 90}, domain.ReasonFilmNotFound},
		{"unknown hall", domain.Session{FilmID: fx.film.ID, HallID: 9999, StartsAt: tomorrow(18, 0), Duration: 90}, domain.ReasonHallNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created, err := fx.svc.CreateSession(ctx, tt.ss)
			if tt.want == "" {
				require.NoError(t, err)
				assert.NotZero(t, created.ID)
				return
			}
			assertReason(t, err, tt.want)
		})
	}
}

func TestCreateSession_ConcurrentSameSlot(t *testing.T) {
	fx := setup(t, nil)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := fx.svc.CreateSession(ctx, fx.session(tomorrow(12, i*5), 120))
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)

	sessions, err := fx.svc.ListUpcomingSessions(ctx, fx.hall.ID, 0)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestUpdateSession(t *testing.T) {
	fx := setup(t, nil)
	ctx := context.Background()

	a, err := fx.svc.CreateSession(ctx, fx.session(tomorrow(10, 0), 120))
	require.NoError(t, err)
	b, err := fx.svc.CreateSession(ctx, fx.session(tomorrow(14, 0), 120))
	require.NoError(t, err)

	a.StartsAt = tomorrow(10, 30)
	moved, err := fx.svc.UpdateSession(ctx, a)
	require.NoError(t, err)
	assert.True(t, moved.StartsAt.Equal(tomorrow(10, 30)))

	a.StartsAt = tomorrow(13, 0)
	_, err = fx.svc.UpdateSession(ctx, a)
	assertReason(t, err, domain.ReasonOverlaps)

	other, err := fx.svc.CreateHall(ctx, domain.Hall{Name: "Side", Rows: 1, SeatsPerRow: 1})
	require.NoError(t, err)
	a.HallID = other.ID
	_, err = fx.svc.UpdateSession(ctx, a)
	require.NoError(t, err, "another hall is free at that time")

	fx.book(t, b.ID, 1, 1)
	b.StartsAt = tomorrow(16, 0)
	_, err = fx.svc.UpdateSession(ctx, b)
	assertReason(t, err, domain.ReasonHasBookings)

	_, err = fx.svc.UpdateSession(ctx, domain.Session{ID: 9999, FilmID: fx.film.ID, HallID: fx.hall.ID, StartsAt: tomorrow(18, 0), Duration: 90})
	assertReason(t, err, domain.ReasonSessionNotFound)
}

func TestUpdateSession_InvalidatesSeatMap(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cache := redisrepo.New(rdb)

	fx := setup(t, cache)
	ctx := context.Background()

	ss, err := fx.svc.CreateSession(ctx, fx.session(tomorrow(10, 0), 120))
	require.NoError(t, err)

	key, err := cache.SeatMapKey(ctx, ss.ID)
	require.NoError(t, err)
	require.NoError(t, cache.SetString(ctx, key, "[]", time.Minute))

	ss.Duration = 150
	_, err = fx.svc.UpdateSession(ctx, ss)
	require.NoError(t, err)

	next, err := cache.SeatMapKey(ctx, ss.ID)
	require.NoError(t, err)
	assert.NotEqual(t, key, next)
	assert.False(t, mr.Exists(next))
}

func TestDeleteSession(t *testing.T) {
	fx := setup(t, nil)
	ctx := context.Background()

	booked, err := fx.svc.CreateSession(ctx, fx.session(tomorrow(10, 0), 120))
	require.NoError(t, err)
	free, err := fx.svc.CreateSession(ctx, fx.session(tomorrow(14, 0), 120))
	require.NoError(t, err)
	fx.book(t, booked.ID, 2, 2)

	assertReason(t, fx.svc.DeleteSession(ctx, booked.ID), domain.ReasonHasBookings)

	require.NoError(t, fx.svc.DeleteSession(ctx, free.ID))
	assertReason(t, fx.svc.DeleteSession(ctx, free.ID), domain.ReasonSessionNotFound)

	_, err = fx.svc.GetSession(ctx, booked.ID)
	assert.NoError(t, err)
}

func TestListUpcomingSessions(t *testing.T) {
	fx := setup(t, nil)
	ctx := context.Background()

	other, err := fx.svc.CreateFilm(ctx, "Ivan's Childhood")
	require.NoError(t, err)

	_, err = fx.store.InsertSession(ctx, fx.session(now.Add(-3*time.Hour), 120))
	require.NoError(t, err)
	first, err := fx.svc.CreateSession(ctx, fx.session(tomorrow(10, 0), 120))
	require.NoError(t, err)
	second, err := fx.svc.CreateSession(ctx, domain.Session{FilmID: other.ID, HallID: fx.hall.ID, StartsAt: tomorrow(14, 0), Duration: 90})
	require.NoError(t, err)

	all, err := fx.svc.ListUpcomingSessions(ctx, fx.hall.ID, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)
	assert.Equal(t, second.ID, all[1].ID)

	byFilm, err := fx.svc.ListUpcomingSessions(ctx, 0, other.ID)
	require.NoError(t, err)
	require.Len(t, byFilm, 1)
	assert.Equal(t, second.ID, byFilm[0].ID)
}

func TestCheckSession(t *testing.T) {
	fx := setup(t, nil)
	ctx := context.Background()

	_, err := fx.svc.CreateSession(ctx, fx.session(tomorrow(12, 0), 120))
	require.NoError(t, err)

	d, err := fx.svc.CheckSession(ctx, fx.session(tomorrow(12, 30), 90))
	require.NoError(t, err)
	assert.Equal(t, domain.Rejected(domain.ReasonOverlaps), d)

	d, err = fx.svc.CheckSession(ctx, fx.session(now.Add(10*time.Minute), 90))
	require.NoError(t, err)
	assert.Equal(t, domain.Rejected(domain.ReasonTooSoon), d)

	d, err = fx.svc.CheckSession(ctx, fx.session(tomorrow(16, 0), 90))
	require.NoError(t, err)
	assert.True(t, d.Allowed())
}
