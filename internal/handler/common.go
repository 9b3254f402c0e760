package handler // handler maps HTTP requests onto the service layer

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rmtpark-api/internal/middleware"
	"github.com/iliyamo/rmtpark-api/internal/service"
)

// requestTimeout bounds every service call made by a handler.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

func principal(c echo.Context) service.Principal { return middleware.PrincipalFrom(c) }

func statusFor(k service.Kind) int {
	switch k {
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindCapacityExceeded, service.KindForbidden:
		return http.StatusForbidden
	case service.KindConfigMissing, service.KindValidation:
		return http.StatusBadRequest
	case service.KindConflict:
		return http.StatusConflict
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindDownstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a service error.  Errors that did not come from the
// service layer are logged and hidden behind a generic 500.
func writeError(c echo.Context, err error) error {
	var se *service.Error
	if !errors.As(err, &se) {
		slog.Default().Error("request failed", "method", c.Request().Method, "path", c.Path(), "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	body := echo.Map{"error": se.Message, "code": string(se.Kind)}
	if se.Kind == service.KindCapacityExceeded {
		body["limite"] = se.Limit
		body["plano"] = se.Plan
	}
	if se.Kind == service.KindDownstream {
		slog.Default().Warn("downstream failure", "path", c.Path(), "err", se.Err)
	}
	return c.JSON(statusFor(se.Kind), body)
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": string(service.KindValidation)})
}

func parseID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// parseTime accepts RFC 3339 timestamps and zone-less local times, which
// are read in loc.
func parseTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("invalid timestamp " + strconv.Quote(raw))
}

// parseBound parses a query bound.  A plain date covers the whole day, so
// as an upper bound it means the last instant of that day.
func parseBound(raw string, loc *time.Location, upper bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if d, err := time.ParseInLocation("2006-01-02", raw, loc); err == nil {
		if upper {
			d = d.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		return &d, nil
	}
	t, err := parseTime(raw, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func optionalTime(raw *string, loc *time.Location) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := parseTime(*raw, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
