package middleware

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/olympia-tickets/checkout-service/internal/dto"
)

// ErrorHandler is the central echo error handler. Handlers translate
// service sentinels into *echo.HTTPError themselves; anything else
// reaching this point is unexpected and gets logged, with the client
// seeing a generic 500 instead of internal detail.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := "internal server error"

	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	} else {
		log.Printf("[HTTP] unhandled error on %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}

	if werr := c.JSON(code, dto.ErrorResponse{Message: msg}); werr != nil {
		log.Printf("[HTTP] failed to write error response: %v", werr)
	}
}
