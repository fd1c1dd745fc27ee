// Package handler holds the HTTP handlers.  Handlers bind and validate the
// request, call one service method and render the result; every failure is
// returned as an error and rendered by ErrorHandler.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/course-marketplace/internal/apperr"
	"github.com/iliyamo/course-marketplace/internal/middleware"
	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/service"
)

// requestTimeout bounds the store and broker work of one request.
const requestTimeout = 5 * time.Second

// response is the envelope of single-entity and acknowledgment replies.
type response struct {
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// listResponse is the envelope of paginated replies.
type listResponse struct {
	Data       any              `json:"data"`
	Pagination model.Pagination `json:"pagination"`
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ErrorHandler renders *apperr.Error values with their status and code.
// Internal failures are logged with their cause and shown generically.
func ErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := render(err)
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).
				Str("route", c.Path()).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Msg("request failed")
		}
		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			log.Warn().Err(werr).Msg("write error response")
		}
	}
}

func render(err error) (int, errorBody) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		if ae.Kind == apperr.KindInternal {
			return http.StatusInternalServerError, errorBody{Error: "internal server error", Code: ae.Code}
		}
		return ae.Status(), errorBody{Error: ae.Message, Code: ae.Code}
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok {
			msg = s
		}
		return he.Code, errorBody{Error: msg, Code: httpCode(he.Code)}
	}
	return http.StatusInternalServerError, errorBody{Error: "internal server error", Code: "internal"}
}

func httpCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusTooManyRequests:
		return "too_many_requests"
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large"
	case http.StatusUnsupportedMediaType:
		return "unsupported_media_type"
	}
	if status >= http.StatusInternalServerError {
		return "internal"
	}
	return "bad_request"
}

// Validator adapts validator/v10 to echo.Validator.  Field names in
// messages use the json tag so they match the request body.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)
	return &Validator{v: v}
}

// fieldName is the wire name of f: its json, query, param or form tag.
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "query", "param", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

func (cv *Validator) Validate(i any) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return apperr.Validation(err.Error())
	}
	t := reflect.Indirect(reflect.ValueOf(i)).Type()
	msgs := make([]string, 0, len(ves))
	for _, fe := range ves {
		msgs = append(msgs, describe(t, fe))
	}
	return apperr.Validation(strings.Join(msgs, "; "))
}

func describe(t reflect.Type, fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required":
		return f + " is required"
	case "email":
		return f + " must be a valid email"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", f, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", f, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", f, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", f, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", f, fe.Param())
	case "eqfield":
		other := fe.Param()
		if sf, ok := t.FieldByName(other); ok {
			other = fieldName(sf)
		}
		return fmt.Sprintf("%s must match %s", f, other)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", f, fe.Param())
	case "url":
		return f + " must be a valid url"
	}
	return fmt.Sprintf("%s failed %s", f, fe.Tag())
}

// bind decodes the request into dst and validates it.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return apperr.Validation("invalid request body")
	}
	return c.Validate(dst)
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// Paging is the common ?page&limit pair.  It is exported so the binder
// can reach it when embedded.
type Paging struct {
	Page  int `query:"page" validate:"omitempty,min=1"`
	Limit int `query:"limit" validate:"omitempty,min=1,max=100"`
}

func (q Paging) page() model.Page { return model.Page{Page: q.Page, Limit: q.Limit} }

// actor returns the authenticated caller of a write route.
func actor(c echo.Context) service.Actor {
	return service.Actor{UserID: middleware.UserID(c), Role: middleware.Role(c)}
}

func ok(c echo.Context, status int, msg string, data any) error {
	return c.JSON(status, response{Message: msg, Data: data})
}

func list(c echo.Context, data any, pg model.Pagination) error {
	return c.JSON(http.StatusOK, listResponse{Data: data, Pagination: pg})
}
