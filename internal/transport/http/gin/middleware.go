package httpgin

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/metrics"
	redisrepo "github.com/kirinyoku/cinebook/internal/repository/redis"
)

const (
	headerViewerID = "X-Viewer-ID"
	headerRole     = "X-Role"

	roleAdmin = "admin"

	ctxRequestID = "request_id"
	ctxActor     = "actor"
)

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}

		c.Writer.Header().Set("X-Request-ID", reqID)
		c.Set(ctxRequestID, reqID)

		c.Next()
	}
}

func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"X-Request-ID",
			headerViewerID,
			headerRole,
			"Idempotency-Key",
			"If-None-Match",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
			"ETag",
			"Retry-After",
			"Idempotency-Key",
		},
		MaxAge: 12 * time.Hour,
	})
}

// LoggingMiddleware writes one access record per request. Requests that
// ended in an unexpected error are logged at error level with the cause.
func LoggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		reqID, _ := c.Get(ctxRequestID)
		attrs := []any{
			slog.Int("status", c.Writer.Status()),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("ip", c.ClientIP()),
			slog.Any("request_id", reqID),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes_out", c.Writer.Size()),
		}

		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("err", c.Errors.String()))
			logger.Error("http", slog.Group("http", attrs...))
			return
		}

		logger.Info("http", slog.Group("http", attrs...))
	}
}

// MetricsMiddleware records request counts and latency by route template.
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// ActorMiddleware reads the caller identity set by the upstream gateway.
// Requests without X-Viewer-ID are anonymous.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var actor domain.Actor

		if raw := strings.TrimSpace(c.GetHeader(headerViewerID)); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				badRequest(c, "invalid "+headerViewerID)
				return
			}
			actor.ViewerID = id
		}

		actor.Privileged = strings.EqualFold(strings.TrimSpace(c.GetHeader(headerRole)), roleAdmin)

		c.Set(ctxActor, actor)
		c.Next()
	}
}

func actorFrom(c *gin.Context) domain.Actor {
	if v, ok := c.Get(ctxActor); ok {
		if a, ok := v.(domain.Actor); ok {
			return a
		}
	}
	return domain.Actor{}
}

func RequirePrivileged() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !actorFrom(c).Privileged {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "admin role required"})
			return
		}
		c.Next()
	}
}

// Limiter is a per-client request budget.
type Limiter interface {
	Limit() int
	Allow(ctx context.Context, client string) (redisrepo.RateDecision, error)
}

// RateLimitMiddleware throttles writes per viewer, or per IP for anonymous
// callers. When the limiter itself fails the request is let through.
func RateLimitMiddleware(l Limiter, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}

		client := "ip:" + c.ClientIP()
		if a := actorFrom(c); a.ViewerID != 0 {
			client = "viewer:" + strconv.FormatInt(a.ViewerID, 10)
		}

		d, err := l.Allow(c.Request.Context(), client)
		if err != nil {
			logger.Warn("rate limiter unavailable", slog.String("err", err.Error()))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(l.Limit()))

		if !d.Allowed {
			secs := int(math.Ceil(d.RetryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited"})
			return
		}

		c.Next()
	}
}
