package api

import (
	"errors"
	"net/http"

	"github.com/lift-control/lcc/internal/command"
	"github.com/lift-control/lcc/internal/request"
)

// API error codes for transport and lookup conditions
var (
	ErrBadRequest    = errors.New("BAD_REQUEST")
	ErrNotFoundError = errors.New("NOT_FOUND")
)

// errorMapping pairs a sentinel with its HTTP status, code and message.
type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

var errorMappings = []errorMapping{
	{command.ErrInvalidRange, http.StatusBadRequest, "INVALID_RANGE", "Parameter value is outside the allowed range"},
	{command.ErrInvalidParameter, http.StatusBadRequest, "BAD_REQUEST", "Malformed or missing required parameter"},
	{request.ErrDecode, http.StatusBadRequest, "DECODE_ERROR", "Malformed request record"},
	{ErrBadRequest, http.StatusBadRequest, "BAD_REQUEST", "Malformed request"},
	{command.ErrNotFound, http.StatusNotFound, "NOT_FOUND", "Resource not found"},
	{ErrNotFoundError, http.StatusNotFound, "NOT_FOUND", "Resource not found"},
	{command.ErrUnavailable, http.StatusServiceUnavailable, "UNAVAILABLE", "Unit is out of service"},
}

// ToAPIError converts an error to an HTTP status and an error envelope.
// Unknown errors map to 500 INTERNAL.
func ToAPIError(err error) (int, *Response) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, ErrorResponse(m.code, m.message, map[string]interface{}{"cause": err.Error()})
		}
	}
	return http.StatusInternalServerError, ErrorResponse("INTERNAL", "Internal server error", map[string]interface{}{
		"original": err.Error(),
	})
}

// writeMappedError writes err through ToAPIError.
func writeMappedError(w http.ResponseWriter, err error) {
	status, response := ToAPIError(err)
	writeResponse(w, status, response)
}
