package presenter

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Error string `json:"error"`
}

// OK wraps a successful response.
func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}

func BadRequestMessage(c echo.Context, msg string) error {
	slog.Debug("Bad request", slog.String("error", msg), slog.String("module", "rest"))
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

func NotFound(c echo.Context, msg string) error {
	slog.Debug("Not found", slog.String("error", msg), slog.String("module", "rest"))
	return c.JSON(http.StatusNotFound, errorResponse{Error: msg})
}

func Conflict(c echo.Context, err error) error {
	slog.Warn("Conflict", slog.String("error", err.Error()), slog.String("module", "rest"))
	return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
}

func InternalError(c echo.Context, err error) error {
	slog.Error("Internal error", slog.String("error", err.Error()), slog.String("module", "rest"))
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
}
