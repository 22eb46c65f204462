package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/service"
)

// @Summary  Create film
// @Param    req  body  CreateFilmRequest  true  "payload"
// @Success  201  {object}  domain.Film
// @Router   /admin/films [post]
func handleCreateFilm(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateFilmRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		f, err := svcs.Catalog.CreateFilm(c.Request.Context(), req.Name)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, f)
	}
}

// @Summary  Register viewer
// @Param    req  body  CreateViewerRequest  true  "payload"
// @Success  201  {object}  domain.Viewer
// @Router   /admin/viewers [post]
func handleCreateViewer(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateViewerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		v, err := svcs.Catalog.CreateViewer(c.Request.Context(), req.Name)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, v)
	}
}

// @Summary  Create hall with its seat grid
// @Param    req  body  HallRequest  true  "payload"
// @Success  201  {object}  domain.Hall
// @Failure  409  {object}  ErrorResponse  "name taken"
// @Failure  422  {object}  ErrorResponse  "invalid hall size"
// @Router   /admin/halls [post]
func handleCreateHall(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req HallRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		h, err := svcs.Catalog.CreateHall(c.Request.Context(), domain.Hall{
			Name:        req.Name,
			Rows:        req.Rows,
			SeatsPerRow: req.SeatsPerRow,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, h)
	}
}

// @Summary  Rename or resize hall
// @Param    id   path  int  true  "Hall ID"
// @Param    req  body  HallRequest  true  "payload"
// @Success  200  {object}  domain.Hall
// @Failure  409  {object}  ErrorResponse  "seats to be removed are booked"
// @Router   /admin/halls/{id} [put]
func handleResizeHall(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		var req HallRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		h, err := svcs.Catalog.ResizeHall(c.Request.Context(), domain.Hall{
			ID:          id,
			Name:        req.Name,
			Rows:        req.Rows,
			SeatsPerRow: req.SeatsPerRow,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, h)
	}
}

// @Summary  Delete hall
// @Param    id  path  int  true  "Hall ID"
// @Success  204
// @Failure  409  {object}  ErrorResponse  "hall in use"
// @Router   /admin/halls/{id} [delete]
func handleDeleteHall(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		if err := svcs.Catalog.DeleteHall(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Schedule session
// @Param    req  body  SessionRequest  true  "payload"
// @Success  201  {object}  domain.Session
// @Failure  422  {object}  ErrorResponse  "overlap, operating hours, lead time"
// @Router   /admin/sessions [post]
func handleCreateSession(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		ss, err := req.toSession(0)
		if err != nil {
			badRequest(c, "invalid starts_at (RFC3339)")
			return
		}

		created, err := svcs.Catalog.CreateSession(c.Request.Context(), ss)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

// @Summary  Reschedule session
// @Param    id   path  int  true  "Session ID"
// @Param    req  body  SessionRequest  true  "payload"
// @Success  200  {object}  domain.Session
// @Failure  409  {object}  ErrorResponse  "session has bookings"
// @Router   /admin/sessions/{id} [put]
func handleUpdateSession(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		var req SessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		ss, err := req.toSession(id)
		if err != nil {
			badRequest(c, "invalid starts_at (RFC3339)")
			return
		}

		updated, err := svcs.Catalog.UpdateSession(c.Request.Context(), ss)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// @Summary  Delete session
// @Param    id  path  int  true  "Session ID"
// @Success  204
// @Failure  409  {object}  ErrorResponse  "session has bookings"
// @Router   /admin/sessions/{id} [delete]
func handleDeleteSession(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		if err := svcs.Catalog.DeleteSession(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Check whether a session could be scheduled
// @Param    req  body  ScheduleCheckRequest  true  "payload"
// @Success  200  {object}  DecisionResponse
// @Router   /admin/schedule/check [post]
func handleScheduleCheck(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ScheduleCheckRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		starts, err := parseRFC3339(req.StartsAt)
		if err != nil {
			badRequest(c, "invalid starts_at (RFC3339)")
			return
		}

		d, err := svcs.Catalog.CheckSession(c.Request.Context(), domain.Session{
			ID:       req.ExcludeSessionID,
			HallID:   req.HallID,
			StartsAt: starts,
			Duration: req.Duration,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, decisionResponse(d))
	}
}
