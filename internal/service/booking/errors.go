package booking

import (
	"context"
	"errors"

	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/repository"
)

// missingReference works out which side of a booking key vanished after the
// store reported a broken reference.
func missingReference(ctx context.Context, store repository.Store, key domain.BookingKey) error {
	if _, err := store.GetViewer(ctx, key.ViewerID); errors.Is(err, repository.ErrNotFound) {
		return domain.Reject(domain.ReasonViewerNotFound)
	}
	if _, err := store.GetSeat(ctx, key.SeatID); errors.Is(err, repository.ErrNotFound) {
		return domain.Reject(domain.ReasonSeatNotFound)
	}
	return domain.Reject(domain.ReasonSessionNotFound)
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if r, ok := domain.ReasonOf(err); ok {
		return string(r)
	}
	if repository.IsTransient(err) {
		return "transient"
	}
	return "error"
}
