package reference

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/renalreg/registry/internal/platform/auth"
	"github.com/renalreg/registry/internal/platform/db"
	"github.com/renalreg/registry/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	read.GET("/institutions", h.ListInstitutions)
	read.GET("/institutions/:id", h.GetInstitution)
	read.GET("/hd-units", h.ListHDUnits)
	read.GET("/hd-units/:id", h.GetHDUnit)
	read.GET("/comorbidities", h.ListComorbidities)
	read.GET("/disabilities", h.ListDisabilities)
	read.GET("/lab-parameters", h.ListLabParameters)
	read.GET("/medications", h.ListMedications)

	// Catalogue maintenance is an admin concern.
	write := api.Group("", auth.RequireRole("admin"))
	write.POST("/institutions", h.CreateInstitution)
	write.PUT("/institutions/:id", h.UpdateInstitution)
	write.POST("/hd-units", h.CreateHDUnit)
	write.POST("/comorbidities", h.CreateComorbidity)
	write.POST("/disabilities", h.CreateDisability)
	write.POST("/lab-parameters", h.CreateLabParameter)
	write.POST("/medications", h.CreateMedication)
}

func (h *Handler) CreateInstitution(c echo.Context) error {
	var hi HealthInstitution
	if err := c.Bind(&hi); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateInstitution(c.Request().Context(), &hi); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, hi)
}

func (h *Handler) GetInstitution(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	hi, err := h.svc.GetInstitution(c.Request().Context(), id)
	if err != nil {
		if db.NoRows(err) {
			return echo.NewHTTPError(http.StatusNotFound, "institution not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, hi)
}

func (h *Handler) UpdateInstitution(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	hi, err := h.svc.GetInstitution(c.Request().Context(), id)
	if err != nil {
		if db.NoRows(err) {
			return echo.NewHTTPError(http.StatusNotFound, "institution not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := c.Bind(hi); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	hi.ID = id
	if err := h.svc.UpdateInstitution(c.Request().Context(), hi); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, hi)
}

func (h *Handler) ListInstitutions(c echo.Context) error {
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListInstitutions(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

func (h *Handler) CreateHDUnit(c echo.Context) error {
	var u HDUnit
	if err := c.Bind(&u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateHDUnit(c.Request().Context(), &u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) GetHDUnit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	u, err := h.svc.GetHDUnit(c.Request().Context(), id)
	if err != nil {
		if db.NoRows(err) {
			return echo.NewHTTPError(http.StatusNotFound, "hd unit not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) ListHDUnits(c echo.Context) error {
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListHDUnits(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

func (h *Handler) ListComorbidities(c echo.Context) error {
	items, err := h.svc.ListComorbidities(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListDisabilities(c echo.Context) error {
	items, err := h.svc.ListDisabilities(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListLabParameters(c echo.Context) error {
	items, err := h.svc.ListLabParameters(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListMedications(c echo.Context) error {
	items, err := h.svc.ListMedications(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) CreateComorbidity(c echo.Context) error {
	var item Comorbidity
	if err := c.Bind(&item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateComorbidity(c.Request().Context(), &item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *Handler) CreateDisability(c echo.Context) error {
	var item Disability
	if err := c.Bind(&item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateDisability(c.Request().Context(), &item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *Handler) CreateLabParameter(c echo.Context) error {
	var item LabParameter
	if err := c.Bind(&item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateLabParameter(c.Request().Context(), &item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *Handler) CreateMedication(c echo.Context) error {
	var item Medication
	if err := c.Bind(&item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateMedication(c.Request().Context(), &item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, item)
}
