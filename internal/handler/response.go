package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dafibh/fintrack/fintrack-backend/internal/domain"
	"github.com/dafibh/fintrack/fintrack-backend/internal/report"
	"github.com/dafibh/fintrack/fintrack-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error types
const (
	ErrorTypeValidation         = "https://fintrack.app/errors/validation"
	ErrorTypeNotFound           = "https://fintrack.app/errors/not-found"
	ErrorTypeUnauthorized       = "https://fintrack.app/errors/unauthorized"
	ErrorTypeConflict           = "https://fintrack.app/errors/conflict"
	ErrorTypePolicyViolation    = "https://fintrack.app/errors/policy-violation"
	ErrorTypeServiceUnavailable = "https://fintrack.app/errors/service-unavailable"
	ErrorTypeInternal           = "https://fintrack.app/errors/internal"
)

func problem(c echo.Context, status int, errorType, title, detail string) error {
	return c.JSON(status, ProblemDetails{
		Type:     errorType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// NewValidationError creates a validation error response
func NewValidationError(c echo.Context, detail string, errors []ValidationError) error {
	return c.JSON(http.StatusBadRequest, ProblemDetails{
		Type:     ErrorTypeValidation,
		Title:    "Validation Error",
		Status:   http.StatusBadRequest,
		Detail:   detail,
		Instance: c.Request().URL.Path,
		Errors:   errors,
	})
}

// NewNotFoundError creates a not found error response
func NewNotFoundError(c echo.Context, detail string) error {
	return problem(c, http.StatusNotFound, ErrorTypeNotFound, "Not Found", detail)
}

// NewUnauthorizedError creates an unauthorized error response
func NewUnauthorizedError(c echo.Context, detail string) error {
	return problem(c, http.StatusUnauthorized, ErrorTypeUnauthorized, "Unauthorized", detail)
}

// NewConflictError creates a conflict error response
func NewConflictError(c echo.Context, detail string) error {
	return problem(c, http.StatusConflict, ErrorTypeConflict, "Conflict", detail)
}

// NewPolicyViolationError creates an unprocessable entity response for
// requests that are well-formed but forbidden by a business rule
func NewPolicyViolationError(c echo.Context, detail string) error {
	return problem(c, http.StatusUnprocessableEntity, ErrorTypePolicyViolation, "Policy Violation", detail)
}

// NewServiceUnavailableError creates a service unavailable error response
func NewServiceUnavailableError(c echo.Context, detail string) error {
	return problem(c, http.StatusServiceUnavailable, ErrorTypeServiceUnavailable, "Service Unavailable", detail)
}

// NewInternalError creates an internal error response
func NewInternalError(c echo.Context, detail string) error {
	return problem(c, http.StatusInternalServerError, ErrorTypeInternal, "Internal Server Error", detail)
}

// fieldFor names the request field a validation error is about, if any
func fieldFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrNameRequired), errors.Is(err, domain.ErrNameTooLong):
		return "name"
	case errors.Is(err, domain.ErrTaxAmountOutOfRange):
		return "taxAmount"
	case errors.Is(err, domain.ErrInvalidTaxType):
		return "taxType"
	case errors.Is(err, domain.ErrInvalidMonth):
		return "month"
	case errors.Is(err, domain.ErrInvalidPeriod):
		return "end"
	case errors.Is(err, domain.ErrInvalidPage):
		return "page"
	case errors.Is(err, report.ErrUnsupportedFormat):
		return "format"
	case errors.Is(err, service.ErrReceiptTooLarge), errors.Is(err, service.ErrReceiptFormat), errors.Is(err, service.ErrReceiptImageData):
		return "file"
	}
	return ""
}

// detailOf strips the kind prefix from a domain error message
func detailOf(err error, kind error) string {
	return strings.TrimPrefix(err.Error(), kind.Error()+": ")
}

// handleServiceError translates a service error into a problem response.
// Unexpected errors are logged and reported as internal errors.
func handleServiceError(c echo.Context, err error, action string) error {
	switch {
	case errors.Is(err, service.ErrObjectStorageNotConfigured):
		return NewServiceUnavailableError(c, "Object storage is not configured")
	case errors.Is(err, domain.ErrValidation):
		detail := detailOf(err, domain.ErrValidation)
		var fields []ValidationError
		if field := fieldFor(err); field != "" {
			fields = []ValidationError{{Field: field, Message: detail}}
		}
		return NewValidationError(c, detail, fields)
	case errors.Is(err, domain.ErrNotFound):
		return NewNotFoundError(c, detailOf(err, domain.ErrNotFound))
	case errors.Is(err, domain.ErrConflict):
		return NewConflictError(c, detailOf(err, domain.ErrConflict))
	case errors.Is(err, domain.ErrPolicyViolation):
		return NewPolicyViolationError(c, detailOf(err, domain.ErrPolicyViolation))
	}

	log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("Failed to " + action)
	return NewInternalError(c, "Failed to "+action)
}

// parseID reads a positive int32 path parameter
func parseID(c echo.Context, name string) (int32, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 32)
	if err != nil || id <= 0 {
		return 0, false
	}
	return int32(id), true
}

// invalidIDError reports a malformed ID path parameter
func invalidIDError(c echo.Context, name string) error {
	return NewValidationError(c, "Invalid "+name, []ValidationError{
		{Field: name, Message: "Must be a positive integer"},
	})
}

const dateLayout = "2006-01-02"

// parseInstant accepts RFC 3339 timestamps and YYYY-MM-DD dates. A date used
// as the end of a range covers the whole day.
func parseInstant(value string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", value)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, nil
}

const instantMessage = "Must be an RFC 3339 timestamp or YYYY-MM-DD date"

// parseRange reads the required start and end values
func parseRange(startValue, endValue string) (time.Time, time.Time, []ValidationError) {
	var fields []ValidationError

	start, err := parseInstant(startValue, false)
	if err != nil {
		fields = append(fields, ValidationError{Field: "start", Message: instantMessage})
	}
	end, err := parseInstant(endValue, true)
	if err != nil {
		fields = append(fields, ValidationError{Field: "end", Message: instantMessage})
	}
	return start, end, fields
}

// formatSum renders a money amount with two decimals
func formatSum(d decimal.Decimal) string {
	return d.StringFixed(domain.SumPrecision)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
