package modality

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/renalreg/registry/internal/domain/assessment"
	"github.com/renalreg/registry/internal/platform/auth"
	"github.com/renalreg/registry/internal/platform/db"
	"github.com/renalreg/registry/internal/platform/validate"
)

type Handler struct {
	svc         *Service
	assessments *assessment.Service
	pool        *pgxpool.Pool
}

func NewHandler(svc *Service, assessments *assessment.Service, pool *pgxpool.Pool) *Handler {
	return &Handler{svc: svc, assessments: assessments, pool: pool}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	read.GET("/patients/:id/timeline", h.GetTimeline)
	read.GET("/patients/:id/episodes", h.ListEpisodes)
	read.GET("/patients/:id/aki", h.GetAKI)
	read.GET("/patients/:id/stop", h.GetStop)
	read.GET("/episodes/:id", h.GetEpisode)

	write := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	write.POST("/patients/:id/episodes", h.StartOrChangeEpisode)
	write.PUT("/episodes/:id", h.EditEpisode)
	write.POST("/patients/:id/stop", h.StopDialysis)
}

// transitionRequest is the start/change form: the new episode plus any AKI
// measurement or assessment entered on the same submission.
type transitionRequest struct {
	Episode    EpisodeInput           `json:"episode"`
	AKI        *AKIInput              `json:"aki,omitempty"`
	Assessment *assessment.EventInput `json:"assessment,omitempty"`
}

// submissionError maps a validation list to 422 and a missing patient to
// 404; anything else is a server fault.
func submissionError(err error) error {
	if ve, ok := validate.AsErrors(err); ok {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]interface{}{
			"errors": ve.Messages(),
		})
	}
	if errors.Is(err, ErrPatientNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

// timelineResponse is the reconciled state handed to the presentation
// layer: the six episode slots plus the records correlated with them.
type timelineResponse struct {
	Slots   [TimelineSlots]*Episode `json:"slots"`
	Current *Episode                `json:"current,omitempty"`
	First   *Episode                `json:"first,omitempty"`
	AKI     *AKIMeasurement         `json:"aki,omitempty"`
	Stop    *StopRecord             `json:"stop,omitempty"`
}

func (h *Handler) GetTimeline(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	var asOf *time.Time
	if v := c.QueryParam("as_of"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "as_of must be RFC 3339")
		}
		asOf = &t
	}
	ctx := c.Request().Context()
	tl, err := h.svc.Timeline(ctx, patientID, asOf)
	if err != nil {
		return submissionError(err)
	}
	resp := timelineResponse{
		Slots:   tl.Slots,
		Current: tl.Current(),
		First:   tl.First(),
	}
	if resp.AKI, err = h.svc.GetAKI(ctx, patientID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if resp.Stop, err = h.svc.GetStop(ctx, patientID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetEpisode(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.GetEpisode(c.Request().Context(), id)
	if err != nil {
		if db.NoRows(err) {
			return echo.NewHTTPError(http.StatusNotFound, "episode not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) ListEpisodes(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	episodes, err := h.svc.Episodes(c.Request().Context(), patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": episodes})
}

func (h *Handler) StartOrChangeEpisode(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	var req transitionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var created *Episode
	err = db.WithTransaction(c.Request().Context(), h.pool, func(ctx context.Context) error {
		prior, err := h.svc.Current(ctx, patientID)
		if err != nil {
			return err
		}
		created, err = h.svc.StartOrChange(ctx, patientID, &req.Episode)
		if err != nil {
			return err
		}
		// Records entered on the same form share the episode's
		// correlation timestamp. AKI is pre-KRT data, so it is only
		// taken when this transition is the patient's first entry.
		if req.AKI != nil && prior == nil {
			if _, err := h.svc.RecordAKI(ctx, patientID, &created.CreatedAt, req.AKI); err != nil {
				return err
			}
		}
		if req.Assessment != nil {
			if _, err := h.assessments.UpsertAt(ctx, patientID, created.CreatedAt, req.Assessment); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return submissionError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) EditEpisode(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req transitionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var updated *Episode
	err = db.WithTransaction(c.Request().Context(), h.pool, func(ctx context.Context) error {
		var err error
		updated, err = h.svc.Edit(ctx, id, &req.Episode)
		if err != nil {
			return err
		}
		// A first-time AKI measurement or assessment attached through
		// the edit form inherits the episode's correlation timestamp;
		// existing records are updated in place.
		if req.AKI != nil {
			if _, err := h.svc.RecordAKI(ctx, updated.PatientID, &updated.CreatedAt, req.AKI); err != nil {
				return err
			}
		}
		if req.Assessment != nil {
			if _, err := h.assessments.UpsertAt(ctx, updated.PatientID, updated.CreatedAt, req.Assessment); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if db.NoRows(err) {
			return echo.NewHTTPError(http.StatusNotFound, "episode not found")
		}
		return submissionError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) StopDialysis(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	var in StopInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var rec *StopRecord
	err = db.WithTransaction(c.Request().Context(), h.pool, func(ctx context.Context) error {
		var err error
		rec, err = h.svc.Stop(ctx, patientID, &in)
		return err
	})
	if err != nil {
		return submissionError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) GetAKI(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	a, err := h.svc.GetAKI(c.Request().Context(), patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if a == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no AKI measurement recorded")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) GetStop(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	rec, err := h.svc.GetStop(c.Request().Context(), patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if rec == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no stop record")
	}
	return c.JSON(http.StatusOK, rec)
}
