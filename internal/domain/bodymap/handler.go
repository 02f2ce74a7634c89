package bodymap

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type Handler struct{}

func NewHandler() *Handler { return &Handler{} }

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/body-regions", h.ListRegions)
	api.GET("/body-regions/locate", h.Locate)
}

func sideParam(c echo.Context) (Side, error) {
	v := c.QueryParam("side")
	if v == "" {
		return Front, nil
	}
	side, err := ParseSide(v)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return side, nil
}

func (h *Handler) ListRegions(c echo.Context) error {
	side, err := sideParam(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"side":    side,
		"regions": Regions(side),
	})
}

func (h *Handler) Locate(c echo.Context) error {
	side, err := sideParam(c)
	if err != nil {
		return err
	}
	x, errX := strconv.ParseFloat(c.QueryParam("x"), 64)
	y, errY := strconv.ParseFloat(c.QueryParam("y"), 64)
	if errX != nil || errY != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "x and y must be numbers")
	}
	if x < 0 || x > 100 || y < 0 || y > 100 {
		return echo.NewHTTPError(http.StatusBadRequest, "x and y must be between 0 and 100")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"x":        x,
		"y":        y,
		"side":     side,
		"location": Locate(x, y, side),
	})
}
