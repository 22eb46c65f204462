package httpgin

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/metrics"
	redisrepo "github.com/kirinyoku/cinebook/internal/repository/redis"
	"github.com/kirinyoku/cinebook/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Subscriber delivers committed booking events.
type Subscriber interface {
	Subscribe(ctx context.Context, handler func(ctx context.Context, ev domain.BookingEvent)) error
}

type Deps struct {
	Services    *service.Services
	Idempotency *redisrepo.IdempotencyStore
	Limiter     Limiter
	Stream      Subscriber
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	Health      func(ctx context.Context) error
	Logger      *slog.Logger
	Now         func() time.Time
	// KeepAlive is the idle interval between SSE comments.
	KeepAlive time.Duration
	// Closing is closed when the server starts shutting down. Open SSE
	// streams end on it.
	Closing <-chan struct{}
}

func NewRouter(d Deps, middlewares ...gin.HandlerFunc) *gin.Engine {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}
	if d.KeepAlive <= 0 {
		d.KeepAlive = 15 * time.Second
	}

	r := gin.New()

	r.Use(
		gin.Recovery(),
		RequestIDMiddleware(),
		LoggingMiddleware(d.Logger),
		MetricsMiddleware(d.Metrics),
		CORS(),
		ActorMiddleware(),
	)
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	r.GET("/healthz", handleHealth(d.Health))

	// Public API
	r.GET("/sessions", handleListSessions(d.Services))
	r.GET("/sessions/:id", handleGetSession(d.Services))
	r.GET("/sessions/:id/seats", handleSeatMap(d.Services))
	r.GET("/sessions/:id/seats/stream", handleSeatStream(d.Services, d.Stream, d.KeepAlive, d.Closing, d.Logger))
	r.GET("/sessions/:id/seats/:seat_id/bookable", handleBookable(d.Services, d.Now))

	// Viewer API
	limited := RateLimitMiddleware(d.Limiter, d.Logger)
	bookings := r.Group("/bookings")
	{
		bookings.GET("", handleListBookings(d.Services))
		bookings.POST("", limited, handleCreateBooking(d.Services, d.Idempotency, d.Logger))
		bookings.GET("/:viewer_id/:session_id/:seat_id", handleGetBooking(d.Services))
		bookings.PUT("/:viewer_id/:session_id/:seat_id", limited, handleReplaceBooking(d.Services))
		bookings.DELETE("/:viewer_id/:session_id/:seat_id", limited, handleDeleteBooking(d.Services))
	}

	// Admin API
	admin := r.Group("/admin", RequirePrivileged())
	{
		admin.POST("/films", handleCreateFilm(d.Services))
		admin.POST("/viewers", handleCreateViewer(d.Services))
		admin.POST("/halls", handleCreateHall(d.Services))
		admin.PUT("/halls/:id", handleResizeHall(d.Services))
		admin.DELETE("/halls/:id", handleDeleteHall(d.Services))
		admin.POST("/sessions", handleCreateSession(d.Services))
		admin.PUT("/sessions/:id", handleUpdateSession(d.Services))
		admin.DELETE("/sessions/:id", handleDeleteSession(d.Services))
		admin.POST("/schedule/check", handleScheduleCheck(d.Services))
	}

	return r
}

// @Summary  Liveness and storage reachability
// @Success  200  {object}  map[string]string
// @Failure  503  {object}  ErrorResponse
// @Router   /healthz [get]
func handleHealth(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			if err := check(c.Request.Context()); err != nil {
				_ = c.Error(err)
				c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "storage unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseInt64Query(c *gin.Context, name string) (int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func bookingKeyParams(c *gin.Context) (domain.BookingKey, bool) {
	var (
		key domain.BookingKey
		ok  bool
	)
	if key.ViewerID, ok = parseInt64Param(c, "viewer_id"); !ok {
		return key, false
	}
	if key.SessionID, ok = parseInt64Param(c, "session_id"); !ok {
		return key, false
	}
	if key.SeatID, ok = parseInt64Param(c, "seat_id"); !ok {
		return key, false
	}
	return key, true
}
