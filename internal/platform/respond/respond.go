// Package respond writes the success envelope shared by every JSON endpoint.
package respond

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Envelope is the {success, message, data} body.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

func Created(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}
