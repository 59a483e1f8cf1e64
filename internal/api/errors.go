package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Moichehub/marketplace/internal/apperr"
)

// NewErrorHandler renders handler errors into the JSON envelope. Typed
// application errors keep their status and code; anything unclassified is
// logged and reported as a 500 without internal details.
func NewErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		resp := Response{Success: false}

		var httpErr *echo.HTTPError
		if appErr, ok := apperr.As(err); ok {
			resp.Code = appErr.Kind.HTTPCode()
			resp.Message = appErr.Message
			resp.Error = &ErrorInfo{Code: appErr.Code, Details: appErr.Details}
		} else if errors.As(err, &httpErr) {
			resp.Code = httpErr.Code
			resp.Message = http.StatusText(httpErr.Code)
			resp.Error = &ErrorInfo{Code: httpErrorCode(httpErr.Code), Details: fmt.Sprint(httpErr.Message)}
		} else {
			logger.Error("unhandled error",
				slog.String("error", fmt.Sprintf("%+v", err)),
				slog.String("method", c.Request().Method),
				slog.String("path", c.Request().URL.Path),
			)
			resp.Code = http.StatusInternalServerError
			resp.Message = "Internal server error"
			resp.Error = &ErrorInfo{Code: "INTERNAL_ERROR"}
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(resp.Code)
		} else {
			err = c.JSON(resp.Code, resp)
		}
		if err != nil {
			logger.Error("write error response", slog.String("error", err.Error()))
		}
	}
}

func httpErrorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusNotFound:
		return "ROUTE_NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	default:
		return "HTTP_ERROR"
	}
}
