package handler

import (
	stderrors "errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"usermgmt/internal/errors"
	"usermgmt/internal/logging"
)

// respondError converts a service error into an echo HTTP error carrying an
// ErrorResponse body. The original error is kept as the internal cause.
func respondError(err error) *echo.HTTPError {
	mapped := errors.MapErrorToHTTP(err)
	return echo.NewHTTPError(mapped.StatusCode, mapped.ToErrorResponse()).SetInternal(err)
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid request body",
			Code:  "VALIDATION_FAILED",
		}).SetInternal(err)
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: validationMessage(err),
			Code:  "VALIDATION_FAILED",
		}).SetInternal(err)
	}
	return nil
}

// validationMessage renders field errors as "field: rule param", one per
// failed field, so Go type names never reach the client.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request body"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fe.Field() + ": " + fe.Tag()
		if fe.Param() != "" {
			msg += " " + fe.Param()
		}
		msgs = append(msgs, msg)
	}
	return strings.Join(msgs, "; ")
}

func parseID(c echo.Context) (uint, error) {
	// 63 bits keeps the id inside the BIGINT primary key range.
	id, err := strconv.ParseUint(c.Param("id"), 10, 63)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid id",
			Code:  "INVALID_ID",
		})
	}
	return uint(id), nil
}

// ErrorHandler renders every error as an ErrorResponse. Errors raised by echo
// itself (unknown route, missing credentials) are normalised to the same
// shape, unexpected errors are logged, and every 401 carries a Basic challenge.
func ErrorHandler(log logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if !stderrors.As(err, &he) {
			he = respondError(err)
		}

		status := he.Code
		body, ok := he.Message.(errors.ErrorResponse)
		if !ok {
			if status == http.StatusUnauthorized {
				body = errors.MapErrorToHTTP(errors.ErrUnauthorized).ToErrorResponse()
			} else {
				body = errors.ErrorResponse{Error: messageOf(he), Code: statusCode(status)}
			}
		}

		if status >= http.StatusInternalServerError {
			cause := he.Internal
			if cause == nil {
				cause = err
			}
			log.Error(c.Request().Context(), "request failed",
				"method", c.Request().Method,
				"path", c.Path(),
				"error", cause,
			)
		}
		if status == http.StatusUnauthorized {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Basic realm="`+Realm+`"`)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.Warn(c.Request().Context(), "write error response", "error", err)
		}
	}
}

func messageOf(he *echo.HTTPError) string {
	if he.Code >= http.StatusInternalServerError {
		return "internal server error"
	}
	if m, ok := he.Message.(string); ok && m != "" {
		return m
	}
	return http.StatusText(he.Code)
}

func statusCode(status int) string {
	if status >= http.StatusInternalServerError {
		return "INTERNAL_ERROR"
	}
	return strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}
