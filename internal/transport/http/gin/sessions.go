package httpgin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/service"
)

// @Summary  List upcoming sessions
// @Param    hall_id  query  int  false  "Hall ID"
// @Param    film_id  query  int  false  "Film ID"
// @Success  200  {array}  domain.Session
// @Router   /sessions [get]
func handleListSessions(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		hallID, ok := parseInt64Query(c, "hall_id")
		if !ok {
			return
		}
		filmID, ok := parseInt64Query(c, "film_id")
		if !ok {
			return
		}

		sessions, err := svcs.Catalog.ListUpcomingSessions(c.Request.Context(), hallID, filmID)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithETag(c, http.StatusOK, sessions, "public, max-age=15")
	}
}

// @Summary  Get session
// @Param    id  path  int  true  "Session ID"
// @Success  200  {object}  domain.Session
// @Failure  404  {object}  ErrorResponse
// @Router   /sessions/{id} [get]
func handleGetSession(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		ss, err := svcs.Catalog.GetSession(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithETag(c, http.StatusOK, ss, "public, max-age=60")
	}
}

// @Summary  Seat map of a session
// @Param    id  path  int  true  "Session ID"
// @Success  200  {object}  SeatMapResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /sessions/{id}/seats [get]
func handleSeatMap(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		seats, err := svcs.Availability.SeatMap(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithETag(c, http.StatusOK, SeatMapResponse{SessionID: id, Seats: seats}, "no-cache")
	}
}

// @Summary  Whether a seat can be booked right now
// @Param    id       path  int  true  "Session ID"
// @Param    seat_id  path  int  true  "Seat ID"
// @Success  200  {object}  DecisionResponse
// @Router   /sessions/{id}/seats/{seat_id}/bookable [get]
func handleBookable(svcs *service.Services, now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		seatID, ok := parseInt64Param(c, "seat_id")
		if !ok {
			return
		}

		d, err := svcs.Availability.CheckSeat(c.Request.Context(), sessionID, seatID, now())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, decisionResponse(d))
	}
}

// @Summary  Live booking changes of a session (server-sent events)
// @Param    id  path  int  true  "Session ID"
// @Produce  text/event-stream
// @Success  200  {object}  domain.BookingEvent
// @Failure  404  {object}  ErrorResponse
// @Router   /sessions/{id}/seats/stream [get]
func handleSeatStream(
	svcs *service.Services,
	sub Subscriber,
	keepAlive time.Duration,
	closing <-chan struct{},
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		if sub == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{Error: "live updates are disabled"})
			return
		}

		if _, err := svcs.Catalog.GetSession(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		events := make(chan domain.BookingEvent, 16)
		go func() {
			defer close(events)

			err := sub.Subscribe(ctx, func(ctx context.Context, ev domain.BookingEvent) {
				if ev.SessionID != id {
					return
				}
				select {
				case events <- ev:
				case <-ctx.Done():
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("seat stream subscription ended",
					slog.Int64("session_id", id),
					slog.String("err", err.Error()),
				)
			}
		}()

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)
		c.Writer.WriteHeaderNow()
		c.Writer.Flush()

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				c.SSEvent("booking", ev)
				c.Writer.Flush()
			case <-ticker.C:
				if _, err := fmt.Fprint(c.Writer, ": keepalive\n\n"); err != nil {
					return
				}
				c.Writer.Flush()
			case <-closing:
				return
			case <-ctx.Done():
				return
			}
		}
	}
}
