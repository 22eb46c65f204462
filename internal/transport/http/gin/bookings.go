package httpgin

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/cinebook/internal/domain"
	redisrepo "github.com/kirinyoku/cinebook/internal/repository/redis"
	"github.com/kirinyoku/cinebook/internal/service"
)

const idemLockTTL = 60 * time.Second

// @Summary  List bookings
// @Param    viewer_id   query  int  false  "Viewer ID (admin only for other viewers)"
// @Param    session_id  query  int  false  "Session ID"
// @Param    seat_id     query  int  false  "Seat ID"
// @Success  200  {array}  domain.Booking
// @Failure  403  {object}  ErrorResponse
// @Router   /bookings [get]
func handleListBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			f  domain.BookingFilter
			ok bool
		)
		if f.ViewerID, ok = parseInt64Query(c, "viewer_id"); !ok {
			return
		}
		if f.SessionID, ok = parseInt64Query(c, "session_id"); !ok {
			return
		}
		if f.SeatID, ok = parseInt64Query(c, "seat_id"); !ok {
			return
		}

		out, err := svcs.Booking.ListBookings(c.Request.Context(), actorFrom(c), f)
		if err != nil {
			respondErr(c, err)
			return
		}
		if out == nil {
			out = []domain.Booking{}
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Book a seat (idempotent)
// @Param    req  body  CreateBookingRequest  true  "payload"
// @Header   201  {string}  Idempotency-Key  "echo"
// @Success  201  {object}  domain.Booking
// @Failure  403  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse  "seat already booked / idempotency key in progress"
// @Failure  422  {object}  ErrorResponse  "booking window closed"
// @Failure  429  {object}  ErrorResponse  "rate limited"
// @Router   /bookings [post]
func handleCreateBooking(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		actor := actorFrom(c)
		key := domain.BookingKey{ViewerID: req.ViewerID, SessionID: req.SessionID, SeatID: req.SeatID}
		if key.ViewerID == 0 {
			key.ViewerID = actor.ViewerID
		}

		ctx := c.Request.Context()

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemBooking(key.ViewerID, idemKey)

			if replayed := replayIdempotent(c, idem, idemStorageKey, idemKey); replayed {
				return
			}

			locked, err := idem.AcquireLock(ctx, idemStorageKey, idemLockTTL)
			switch {
			case err != nil:
				logger.Warn("idempotency store unavailable", slog.String("err", err.Error()))
				idemStorageKey = ""
			case !locked:
				if replayIdempotent(c, idem, idemStorageKey, idemKey) {
					return
				}
				c.Header("Retry-After", "1")
				c.AbortWithStatusJSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
				return
			}
		}

		b, err := svcs.Booking.CreateBooking(ctx, actor, key)
		if err != nil {
			if idemStorageKey != "" {
				_ = idem.Release(ctx, idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		if idemStorageKey != "" {
			payload, _ := json.Marshal(b)
			if err := idem.SaveResult(ctx, idemStorageKey, http.StatusCreated, string(payload)); err != nil {
				logger.Warn("idempotent result not saved", slog.String("err", err.Error()))
			}
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, b)
	}
}

func replayIdempotent(c *gin.Context, idem *redisrepo.IdempotencyStore, storageKey, idemKey string) bool {
	status, payload, found, err := idem.GetResult(c.Request.Context(), storageKey)
	if err != nil || !found {
		return false
	}

	c.Header("Idempotency-Key", idemKey)
	c.Header("Idempotent-Replayed", "true")
	c.Data(status, "application/json; charset=utf-8", []byte(payload))
	c.Abort()
	return true
}

// @Summary  Get booking
// @Param    viewer_id   path  int  true  "Viewer ID"
// @Param    session_id  path  int  true  "Session ID"
// @Param    seat_id     path  int  true  "Seat ID"
// @Success  200  {object}  domain.Booking
// @Failure  404  {object}  ErrorResponse
// @Router   /bookings/{viewer_id}/{session_id}/{seat_id} [get]
func handleGetBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := bookingKeyParams(c)
		if !ok {
			return
		}

		b, err := svcs.Booking.GetBooking(c.Request.Context(), actorFrom(c), key)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  Move a booking to another seat of the same session
// @Param    viewer_id   path  int  true  "Viewer ID"
// @Param    session_id  path  int  true  "Session ID"
// @Param    seat_id     path  int  true  "Seat ID"
// @Param    req  body  ReplaceBookingRequest  true  "payload"
// @Success  200  {object}  domain.Booking
// @Failure  409  {object}  ErrorResponse
// @Router   /bookings/{viewer_id}/{session_id}/{seat_id} [put]
func handleReplaceBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := bookingKeyParams(c)
		if !ok {
			return
		}

		var req ReplaceBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		b, err := svcs.Booking.ReplaceBooking(c.Request.Context(), actorFrom(c), key, req.SeatID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  Cancel a booking
// @Param    viewer_id   path  int  true  "Viewer ID"
// @Param    session_id  path  int  true  "Session ID"
// @Param    seat_id     path  int  true  "Seat ID"
// @Success  204
// @Failure  404  {object}  ErrorResponse
// @Router   /bookings/{viewer_id}/{session_id}/{seat_id} [delete]
func handleDeleteBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := bookingKeyParams(c)
		if !ok {
			return
		}

		if err := svcs.Booking.DeleteBooking(c.Request.Context(), actorFrom(c), key); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
