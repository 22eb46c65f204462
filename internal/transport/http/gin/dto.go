package httpgin

import (
	"time"

	"github.com/kirinyoku/cinebook/internal/domain"
)

type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

type CreateFilmRequest struct {
	Name string `json:"name" binding:"required"`
}

type CreateViewerRequest struct {
	Name string `json:"name" binding:"required"`
}

type HallRequest struct {
	Name        string `json:"name" binding:"required"`
	Rows        int    `json:"rows" binding:"required"`
	SeatsPerRow int    `json:"seats_per_row" binding:"required"`
}

type SessionRequest struct {
	FilmID   int64  `json:"film_id" binding:"required"`
	HallID   int64  `json:"hall_id" binding:"required"`
	StartsAt string `json:"starts_at" binding:"required"`
	Duration int    `json:"duration_min" binding:"required"`
}

func (r SessionRequest) toSession(id int64) (domain.Session, error) {
	starts, err := parseRFC3339(r.StartsAt)
	if err != nil {
		return domain.Session{}, err
	}
	return domain.Session{
		ID:       id,
		FilmID:   r.FilmID,
		HallID:   r.HallID,
		StartsAt: starts,
		Duration: r.Duration,
	}, nil
}

type ScheduleCheckRequest struct {
	HallID           int64  `json:"hall_id" binding:"required"`
	StartsAt         string `json:"starts_at" binding:"required"`
	Duration         int    `json:"duration_min" binding:"required"`
	ExcludeSessionID int64  `json:"exclude_session_id"`
}

// DecisionResponse reports the outcome of an advisory check.
type DecisionResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

func decisionResponse(d domain.Decision) DecisionResponse {
	if d.Allowed() {
		return DecisionResponse{Allowed: true}
	}
	return DecisionResponse{Reason: string(d.Reason), Message: d.Reason.Message()}
}

type CreateBookingRequest struct {
	// ViewerID defaults to the caller.
	ViewerID  int64 `json:"viewer_id"`
	SessionID int64 `json:"session_id" binding:"required"`
	SeatID    int64 `json:"seat_id" binding:"required"`
}

type ReplaceBookingRequest struct {
	SeatID int64 `json:"seat_id" binding:"required"`
}

type SeatMapResponse struct {
	SessionID int64              `json:"session_id"`
	Seats     []domain.SeatState `json:"seats"`
}

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
