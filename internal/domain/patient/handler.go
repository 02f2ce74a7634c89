package patient

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ems/casebook/internal/platform/auth"
	"github.com/ems/casebook/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("responder"))
	g.GET("/patients", h.ListPatients)
	g.GET("/patients/:patient_number", h.GetPatient)
}

func (h *Handler) ListPatients(c echo.Context) error {
	f := Filter{
		Search:        c.QueryParam("search"),
		Sex:           c.QueryParam("sex"),
		SortDirection: c.QueryParam("sort"),
	}
	if f.SortDirection != "" && f.SortDirection != "asc" && f.SortDirection != "desc" {
		return echo.NewHTTPError(http.StatusBadRequest, "sort must be asc or desc")
	}
	items, err := h.svc.ListPatients(c.Request().Context(), f)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.Paginate(items, pagination.FromContext(c)))
}

func (h *Handler) GetPatient(c echo.Context) error {
	p, err := h.svc.GetPatient(c.Request().Context(), c.Param("patient_number"))
	if errors.Is(err, ErrPatientNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}
