package cases

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ems/casebook/internal/domain/bodymap"
	"github.com/ems/casebook/internal/domain/responder"
	"github.com/ems/casebook/internal/platform/auth"
	"github.com/ems/casebook/internal/session"
	"github.com/ems/casebook/pkg/pagination"
	"github.com/ems/casebook/pkg/validation"
)

// ResponderResolver maps the signed-in subject to its profile id.
type ResponderResolver interface {
	ResponderID(ctx context.Context, subject string) (uuid.UUID, error)
}

type Handler struct {
	svc        *Service
	responders ResponderResolver
	sessions   *session.Registry
}

func NewHandler(svc *Service, responders ResponderResolver, sessions *session.Registry) *Handler {
	return &Handler{svc: svc, responders: responders, sessions: sessions}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("responder"))
	g.GET("/cases", h.ListCases)
	g.POST("/cases", h.CreateCase)
	g.GET("/cases/lists", h.Lists)
	g.GET("/cases/:case_number", h.GetCase)
	g.PATCH("/cases/:case_number/status", h.UpdateStatus)
	g.GET("/map/cases", h.MapCases)
}

func httpError(err error) error {
	if he, ok := validation.HTTPError(err); ok {
		return he
	}
	switch {
	case errors.Is(err, ErrCaseNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "case not found")
	case errors.Is(err, ErrMissingIdentifier):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func filterFromQuery(c echo.Context) (Filter, error) {
	f := Filter{
		Status:        c.QueryParam("status"),
		Severity:      c.QueryParam("severity"),
		Search:        c.QueryParam("search"),
		SortDirection: c.QueryParam("sort"),
	}
	if active(f.Status) && !Status(f.Status).Valid() {
		return f, echo.NewHTTPError(http.StatusBadRequest, "invalid status filter")
	}
	if active(f.Severity) && !bodymap.Severity(f.Severity).Valid() {
		return f, echo.NewHTTPError(http.StatusBadRequest, "invalid severity filter")
	}
	if f.SortDirection != "" && f.SortDirection != "asc" && f.SortDirection != "desc" {
		return f, echo.NewHTTPError(http.StatusBadRequest, "sort must be asc or desc")
	}
	return f, nil
}

func (h *Handler) holder(c echo.Context) *session.Holder {
	sub := auth.SubjectFromContext(c.Request().Context())
	if h.sessions == nil || sub == "" {
		return nil
	}
	return h.sessions.For(sub)
}

// responderID uses the id cached in the caller's session and falls back to
// a profile lookup.
func (h *Handler) responderID(c echo.Context, hd *session.Holder) (uuid.UUID, error) {
	if hd != nil {
		if id := hd.ResponderID(); id != uuid.Nil {
			return id, nil
		}
	}
	ctx := c.Request().Context()
	id, err := h.responders.ResponderID(ctx, auth.SubjectFromContext(ctx))
	if errors.Is(err, responder.ErrProfileNotFound) {
		return uuid.Nil, echo.NewHTTPError(http.StatusForbidden, "responder profile not provisioned")
	}
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if hd != nil {
		if err := hd.StoreResponder(id); err != nil {
			return uuid.Nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return id, nil
}

func (h *Handler) ListCases(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListCases(c.Request().Context(), f)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.Paginate(items, pagination.FromContext(c)))
}

// CreateCase stores a new case. With use_draft the injuries come from the
// caller's session draft, which is cleared on success.
func (h *Handler) CreateCase(c echo.Context) error {
	var form CaseForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	hd := h.holder(c)
	if form.UseDraft {
		if hd == nil {
			return echo.NewHTTPError(http.StatusBadRequest, "no session draft available")
		}
		form.Injuries = hd.DraftInjuries()
	}
	if err := ValidateForm(form); err != nil {
		return httpError(err)
	}

	id, err := h.responderID(c, hd)
	if err != nil {
		return err
	}
	view, err := h.svc.CreateCase(c.Request().Context(), id, form)
	if err != nil {
		return httpError(err)
	}
	if hd != nil {
		if form.UseDraft {
			hd.ResetDraft(nil)
		}
		hd.SetCaseNumber(view.CaseNumber)
	}
	return c.JSON(http.StatusCreated, view)
}

func (h *Handler) GetCase(c echo.Context) error {
	caseNumber := c.Param("case_number")
	view, err := h.svc.GetCaseDetails(c.Request().Context(), caseNumber)
	if err != nil {
		return httpError(err)
	}
	if hd := h.holder(c); hd != nil {
		hd.SetCaseNumber(caseNumber)
	}
	return c.JSON(http.StatusOK, view)
}

type statusRequest struct {
	Status      string  `json:"status"`
	Description *string `json:"status_description"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if !Status(req.Status).Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	updated, err := h.svc.UpdateStatus(c.Request().Context(), c.Param("case_number"), req.Status, req.Description)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) MapCases(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return err
	}
	f.SortDirection = ""
	markers, err := h.svc.MapCases(c.Request().Context(), f)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, markers)
}

func (h *Handler) Lists(c echo.Context) error {
	lists, err := h.svc.Lists(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, lists)
}
