// Package common holds the response envelope, RFC 9457 problem details and request
// binding shared by the HTTP handlers.
package common

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/amirasaad/bankcore/pkg/domain"
	"github.com/amirasaad/bankcore/pkg/domain/account"
	"github.com/amirasaad/bankcore/pkg/middleware"
	"github.com/amirasaad/bankcore/pkg/money"
	"github.com/amirasaad/bankcore/pkg/transfer"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// RetryAfterSeconds is advertised on responses for transient store failures.
const RetryAfterSeconds = 1

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Response defines the standard API response structure for success cases.
type Response struct {
	Status  int    `json:"status"`         // HTTP status code
	Message string `json:"message"`        // Human-readable explanation
	Data    any    `json:"data,omitempty"` // Response data
}

// ProblemDetails follows RFC 9457 Problem Details for HTTP APIs.
type ProblemDetails struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	Kind     string `json:"kind,omitempty"` // transfer error kind, when there is one
	Errors   any    `json:"errors,omitempty"`
}

// SuccessResponseJSON writes data wrapped in a Response.
func SuccessResponseJSON(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Response{Status: status, Message: message, Data: data})
}

// ErrorResponseJSON writes an RFC 9457 problem document. A string detail becomes
// Detail; anything else is reported under Errors.
func ErrorResponseJSON(c *fiber.Ctx, status int, title string, detail any) error {
	pd := ProblemDetails{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Instance: c.OriginalURL(),
	}
	if detail != nil {
		if s, ok := detail.(string); ok {
			pd.Detail = s
		} else {
			pd.Errors = detail
		}
	}
	c.Set(fiber.HeaderContentType, "application/problem+json")
	return c.Status(status).JSON(pd)
}

// ProblemDetailsJSON maps err to a status code and writes it as a problem document.
// Persistence failures carry a Retry-After header.
func ProblemDetailsJSON(c *fiber.Ctx, title string, err error) error {
	status := ErrorToStatusCode(err)
	pd := ProblemDetails{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   err.Error(),
		Instance: c.OriginalURL(),
	}
	if kind := transfer.KindOf(err); kind != transfer.KindUnknown {
		pd.Kind = kind.String()
	}
	if status == fiber.StatusServiceUnavailable {
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(RetryAfterSeconds))
	}
	if status == fiber.StatusInternalServerError {
		pd.Detail = "unexpected error"
	}
	c.Set(fiber.HeaderContentType, "application/problem+json")
	return c.Status(status).JSON(pd)
}

// ErrorToStatusCode maps domain errors to appropriate HTTP status codes.
func ErrorToStatusCode(err error) int {
	switch transfer.KindOf(err) {
	case transfer.KindInvalidAmount,
		transfer.KindSameAccount,
		transfer.KindAccountInactive,
		transfer.KindInsufficientFunds:
		return fiber.StatusBadRequest
	case transfer.KindAccountNotFound:
		return fiber.StatusNotFound
	case transfer.KindPersistenceFailure:
		return fiber.StatusServiceUnavailable
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, middleware.ErrMissingPrincipal):
		return fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, money.ErrInvalidFormat),
		errors.Is(err, money.ErrNotPositive),
		errors.Is(err, money.ErrTooPrecise),
		errors.Is(err, account.ErrInvalidType),
		errors.Is(err, account.ErrNegativeInterestRate):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrStoreUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// BindAndValidate parses the request body and validates it using go-playground/validator.
// On failure it writes the problem response and returns a nil input.
func BindAndValidate[T any](c *fiber.Ctx) (*T, error) {
	var input T
	if err := c.BodyParser(&input); err != nil {
		return nil, ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid request body", err.Error())
	}
	if err := validate.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			return nil, ErrorResponseJSON(c, fiber.StatusBadRequest, "Validation failed", fields)
		}
		return nil, ErrorResponseJSON(c, fiber.StatusBadRequest, "Validation failed", err.Error())
	}
	return &input, nil
}
