// Package memory is an in-process implementation of the repository port. It
// enforces the same uniqueness and reference rules as the postgres schema and
// is used by the memory storage driver and by tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/repository"
)

var (
	_ repository.Store      = (*Store)(nil)
	_ repository.Transactor = (*Store)(nil)
)

type seatPos struct {
	hallID    int64
	row, seat int
}

type sessionSeat struct {
	sessionID, seatID int64
}

type state struct {
	seq      int64
	films    map[int64]domain.Film
	viewers  map[int64]domain.Viewer
	halls    map[int64]domain.Hall
	seats    map[int64]domain.Seat
	seatPos  map[seatPos]int64
	sessions map[int64]domain.Session
	bookings map[domain.BookingKey]time.Time
	taken    map[sessionSeat]domain.BookingKey
}

func newState() *state {
	return &state{
		films:    make(map[int64]domain.Film),
		viewers:  make(map[int64]domain.Viewer),
		halls:    make(map[int64]domain.Hall),
		seats:    make(map[int64]domain.Seat),
		seatPos:  make(map[seatPos]int64),
		sessions: make(map[int64]domain.Session),
		bookings: make(map[domain.BookingKey]time.Time),
		taken:    make(map[sessionSeat]domain.BookingKey),
	}
}

func (st *state) clone() *state {
	cp := &state{seq: st.seq}
	cp.films = cloneMap(st.films)
	cp.viewers = cloneMap(st.viewers)
	cp.halls = cloneMap(st.halls)
	cp.seats = cloneMap(st.seats)
	cp.seatPos = cloneMap(st.seatPos)
	cp.sessions = cloneMap(st.sessions)
	cp.bookings = cloneMap(st.bookings)
	cp.taken = cloneMap(st.taken)
	return cp
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (st *state) nextID() int64 {
	st.seq++
	return st.seq
}

// Store keeps all data in memory. The root store is safe for concurrent use.
// Transactions run one at a time on a private copy of the data that replaces
// the shared copy on commit.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	st   *state
	now  func() time.Time

	inTx  bool
	hooks *[]repository.AfterCommit
}

type Option func(*Store)

// WithClock sets the clock used to stamp bookings.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		st:  newState(),
		now: time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) read(fn func(st *state) error) error {
	if s.inTx {
		return fn(s.st)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return fn(s.st)
}

func (s *Store) write(fn func(st *state) error) error {
	if s.inTx {
		return fn(s.st)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(s.st)
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Do runs fn against a private copy of the data. The copy becomes visible only
// if fn returns nil; hooks run after that, outside the transaction.
func (s *Store) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Store, after func(repository.AfterCommit)) error,
) error {
	if s.inTx {
		return fn(ctx, s, func(h repository.AfterCommit) {
			*s.hooks = append(*s.hooks, h)
		})
	}

	s.txMu.Lock()

	s.mu.RLock()
	work := s.st.clone()
	s.mu.RUnlock()

	var hooks []repository.AfterCommit
	tx := &Store{st: work, now: s.now, inTx: true, hooks: &hooks}

	err := fn(ctx, tx, func(h repository.AfterCommit) {
		hooks = append(hooks, h)
	})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.txMu.Unlock()
		return err
	}

	s.mu.Lock()
	s.st = work
	s.mu.Unlock()
	s.txMu.Unlock()

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}
