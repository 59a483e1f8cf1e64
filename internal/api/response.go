package api

import (
	"github.com/labstack/echo/v4"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool       `json:"success"`
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

func success(c echo.Context, status int, data any, message string) error {
	if message == "" {
		message = "Success"
	}
	return c.JSON(status, Response{
		Success: true,
		Code:    status,
		Message: message,
		Data:    data,
	})
}
