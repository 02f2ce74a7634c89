package session

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ems/casebook/internal/domain/bodymap"
	"github.com/ems/casebook/internal/platform/auth"
)

type Handler struct {
	registry *Registry
}

func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/session", auth.RequireRole("responder"))
	g.GET("/draft/injuries", h.GetDraft)
	g.POST("/draft/injuries", h.AddInjury)
	g.DELETE("/draft/injuries", h.ClearDraft)
	g.PATCH("/draft/injuries/:id", h.UpdateInjury)
	g.DELETE("/draft/injuries/:id", h.RemoveInjury)
	g.POST("/draft/injuries/:id/select", h.SelectInjury)
	g.DELETE("/draft/selection", h.ClearSelection)
	g.PUT("/draft/view", h.SetView)
	g.GET("/settings", h.GetSettings)
	g.PUT("/settings", h.UpdateSettings)
	g.GET("/case", h.GetCase)
	g.PUT("/case", h.SetCase)
}

func (h *Handler) holder(c echo.Context) (*Holder, error) {
	sub := auth.SubjectFromContext(c.Request().Context())
	if sub == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return h.registry.For(sub), nil
}

type draftResponse struct {
	bodymap.State
	Touched bool `json:"touched"`
}

func draftState(hd *Holder) draftResponse {
	var st bodymap.State
	hd.WithDraft(func(e *bodymap.Editor) error {
		st = e.Snapshot()
		return nil
	})
	return draftResponse{State: st, Touched: hd.Touched()}
}

func editorError(err error) error {
	if errors.Is(err, bodymap.ErrDraftNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}

func (h *Handler) GetDraft(c echo.Context) error {
	hd, err := h.holder(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, draftState(hd))
}

type addInjuryRequest struct {
	X        float64            `json:"x"`
	Y        float64            `json:"y"`
	Side     bodymap.Side       `json:"side"`
	Type     bodymap.InjuryType `json:"type"`
	Severity bodymap.Severity   `json:"severity"`
}

func (h *Handler) AddInjury(c echo.Context) error {
	hd, err := h.holder(c)
	if err != nil {
		return err
	}
	var req addInjuryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	var added bodymap.InjuryDraft
	err = hd.WithDraft(func(e *bodymap.Editor) error {
		if req.Side == "" {
			req.Side = e.View()
		}
		var err error
		added, err = e.AddAt(req.X, req.Y, req.Side, req.Type, req.Severity)
		return err
	})
	if err != nil {
		return editorError(err)
	}
	return c.JSON(http.StatusCreated, added)
}

func (h *Handler) ClearDraft(c echo.Context) error {
	hd, err := h.holder(c)
	if err != nil {
		return err
	}
	hd.WithDraft(func(e *bodymap.Editor) error {
		e.ClearAll()
		return nil
	})
	return c.NoContent(http.StatusNoContent)
}

type updateInjuryRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (h *Handler) UpdateInjury(c echo.Context) error {
	hd, err := h.holder(c)
	if err != nil {
		return err
	}
	var req updateInjuryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	u, err := bodymap.ParseUpdate(req.Field, req.Value)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := hd.WithDraft(func(e *bodymap.Editor) error { return e.Update(c.Param("id"), u) }); err != nil {
		return editorError(err)
	}
	return c.JSON(http.StatusOK, draftState(hd))
}

func (h *Handler) RemoveInjury(c echo.Context) error {
	hd, err := h.holder(c)
	if err != nil {
		return err
	}
	if err := hd.WithDraft(func(e *bodymap.Editor) error { return e.Remove(c.Param("id")) }); err != nil {
		return editorError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SelectInjury(c echo.Context) error {
	hd, err := h.holder(c)
	if err != nil {
		return err
	}
	if err := hd.WithDraft(func(e *bodymap.Editor) error { return e.Select(c.Param("id")) }); err != nil {
		return editorError(err)
	}
	return c.JSON(http.StatusOK, draftState(hd))
}

func (h *Handler) ClearSelection(c echo.Context) error {
	hd, err := h.holder(c)
	if err != nil {
		return err
	}
	hd.WithDraft(func(e *bodymap.Editor) error {
		e.ClearSelection()
		return nil
	})
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SetView(c echo.Context) error {
	hd, err := h.holder(c)
	if err != nil {
		return err
	}
	var req struct {
		Side bodymap.Side `json:"side"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := hd.WithDraft(func(e *bodymap.Editor) error { return e.SetView(req.Side) }); err != nil {
		return editorError(err)
	}
	return c.JSON(http.StatusOK, draftState(hd))
}

func (h *Handler) GetSettings(c echo.Context) error {
	hd, err := h.holder(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, hd.Settings())
}

func (h *Handler) UpdateSettings(c echo.Context) error {
	hd, err := h.holder(c)
	if err != nil {
		return err
	}
	var p SettingsPatch
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	s, err := hd.UpdateSettings(p)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, s)
}

type caseResponse struct {
	CaseNumber string `json:"case_number"`
}

func (h *Handler) GetCase(c echo.Context) error {
	hd, err := h.holder(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, caseResponse{CaseNumber: hd.CaseNumber()})
}

func (h *Handler) SetCase(c echo.Context) error {
	hd, err := h.holder(c)
	if err != nil {
		return err
	}
	var req caseResponse
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	hd.SetCaseNumber(req.CaseNumber)
	return c.JSON(http.StatusOK, req)
}
