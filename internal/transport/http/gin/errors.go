package httpgin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/repository"
)

// statusOf maps a service error to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrPolicyViolation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case repository.IsTransient(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondErr(c *gin.Context, err error) {
	status := statusOf(err)

	if reason, ok := domain.ReasonOf(err); ok {
		c.AbortWithStatusJSON(status, ErrorResponse{Error: reason.Message(), Reason: string(reason)})
		return
	}

	// faults are logged by the access log, never echoed
	_ = c.Error(err)

	if status == http.StatusServiceUnavailable {
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(status, ErrorResponse{Error: "temporarily unavailable, retry later"})
		return
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Error: "internal error"})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}
