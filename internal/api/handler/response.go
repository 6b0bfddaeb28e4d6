package handler

import (
	"github.com/labstack/echo/v4"
)

// envelope is the success body shared by every endpoint.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// errorResponse mirrors the envelope rendered by the central error handler.
// It exists for the API docs.
type errorResponse struct {
	Success bool   `json:"success" example:"false"`
	Message string `json:"message"`
}

func respond(c echo.Context, code int, data any) error {
	return c.JSON(code, envelope{Success: true, Data: data})
}

func respondMessage(c echo.Context, code int, msg string, data any) error {
	return c.JSON(code, envelope{Success: true, Message: msg, Data: data})
}

func respondList[T any](c echo.Context, code int, items []T) error {
	if items == nil {
		items = []T{}
	}
	n := len(items)
	return c.JSON(code, envelope{Success: true, Count: &n, Data: items})
}
