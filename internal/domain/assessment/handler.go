package assessment

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/renalreg/registry/internal/platform/auth"
	"github.com/renalreg/registry/internal/platform/db"
	"github.com/renalreg/registry/internal/platform/validate"
	"github.com/renalreg/registry/pkg/pagination"
)

type Handler struct {
	svc  *Service
	pool *pgxpool.Pool
}

func NewHandler(svc *Service, pool *pgxpool.Pool) *Handler {
	return &Handler{svc: svc, pool: pool}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	read.GET("/patients/:id/assessments", h.ListAssessments)
	read.GET("/patients/:id/assessments/dialysis", h.ListDialysisAssessments)
	read.GET("/patients/:id/current-episode", h.GetCurrentEpisode)
	read.GET("/assessments/:id", h.GetAssessment)

	write := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	write.POST("/patients/:id/assessments", h.CreateAssessment)
	write.PUT("/assessments/:id", h.UpdateAssessment)
}

// submissionError maps an accumulated validation list to a 422 carrying
// every message, so the form can show all problems at once. Anything else
// is a server fault.
func submissionError(err error) error {
	if ve, ok := validate.AsErrors(err); ok {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]interface{}{
			"errors": ve.Messages(),
		})
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (h *Handler) CreateAssessment(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	var in EventInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var e *Event
	err = db.WithTransaction(c.Request().Context(), h.pool, func(ctx context.Context) error {
		var err error
		e, err = h.svc.Record(ctx, patientID, &in)
		return err
	})
	if err != nil {
		return submissionError(err)
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) UpdateAssessment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in EventInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var e *Event
	err = db.WithTransaction(c.Request().Context(), h.pool, func(ctx context.Context) error {
		var err error
		e, err = h.svc.Update(ctx, id, &in)
		return err
	})
	if err != nil {
		if db.NoRows(err) {
			return echo.NewHTTPError(http.StatusNotFound, "assessment not found")
		}
		return submissionError(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) GetAssessment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if db.NoRows(err) {
			return echo.NewHTTPError(http.StatusNotFound, "assessment not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) GetCurrentEpisode(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	ep, err := h.svc.CurrentEpisodeFor(c.Request().Context(), patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if ep == nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient has no current episode")
	}
	return c.JSON(http.StatusOK, ep)
}

func (h *Handler) ListAssessments(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

func (h *Handler) ListDialysisAssessments(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListDialysis(c.Request().Context(), patientID, p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	ep, err := h.svc.CurrentEpisodeFor(c.Request().Context(), patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"in_dialysis": ep != nil && ep.Dialysis,
		"data":        items,
		"total":       total,
		"limit":       p.Limit,
		"offset":      p.Offset,
	})
}
