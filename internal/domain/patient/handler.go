package patient

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
	read.GET("/patients", h.SearchPatients)
	read.GET("/patients/:id", h.GetPatient)
	read.GET("/patients/:id/registration-history", h.GetRegistrationHistory)

	write := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	write.POST("/patients", h.RegisterPatient)
	write.PUT("/patients/:id", h.UpdateRegistration)
}

// submissionError maps a validation list to 422; anything else left after
// the no-rows checks is a server fault.
func submissionError(err error) error {
	if ve, ok := validate.AsErrors(err); ok {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]interface{}{
			"errors": ve.Messages(),
		})
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (h *Handler) RegisterPatient(c echo.Context) error {
	var in RegisterInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var p *Patient
	err := db.WithTransaction(c.Request().Context(), h.pool, func(ctx context.Context) error {
		var err error
		p, err = h.svc.Register(ctx, &in)
		return err
	})
	if err != nil {
		return submissionError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) UpdateRegistration(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in RegisterInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var p *Patient
	err = db.WithTransaction(c.Request().Context(), h.pool, func(ctx context.Context) error {
		var err error
		p, err = h.svc.UpdateRegistration(ctx, id, &in)
		return err
	})
	if err != nil {
		if db.NoRows(err) {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return submissionError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if db.NoRows(err) {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) SearchPatients(c echo.Context) error {
	p := pagination.FromContext(c)
	items, total, err := h.svc.Search(c.Request().Context(), c.QueryParam("q"), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

func (h *Handler) GetRegistrationHistory(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.History(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}
