package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/novelforge/novelforge/pkg/services"
)

// mapServiceError maps the core's error taxonomy (spec.md §7) to HTTP
// responses. Ownership/precondition failures surface immediately to
// the caller, per the propagation policy; everything else not
// explicitly named here is logged and reported as a 500.
func mapServiceError(err error) *echo.HTTPError {
	var validErr *services.ValidationError
	if errors.As(err, &validErr) {
		return echo.NewHTTPError(http.StatusBadRequest, validErr.Error())
	}

	var creditsErr *services.CreditsExhaustedError
	if errors.As(err, &creditsErr) {
		return echo.NewHTTPError(http.StatusConflict, creditsErr.Error())
	}

	var llmErr *services.LLMFailureError
	if errors.As(err, &llmErr) {
		return echo.NewHTTPError(http.StatusBadGateway, llmErr.Error())
	}

	switch {
	case errors.Is(err, services.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "resource not found")
	case errors.Is(err, services.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusForbidden, "not authorized for this session")
	case errors.Is(err, services.ErrOutlineFrozen):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrPrecondition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrAlreadyRunning):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrStoreUnavailable), errors.Is(err, services.ErrBlobUnavailable):
		slog.Error("infra unavailable", "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "service temporarily unavailable")
	case errors.Is(err, services.ErrRenderFailure):
		slog.Error("render failed", "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "failed to render document")
	}

	slog.Error("unexpected service error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
