package http

import (
	"errors"
	"io/fs"
	"net/http"
	"strings"

	"salesdash/internal/core"
	"salesdash/internal/services"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// branchParam returns the selected branch from the query string.
func branchParam(r *http.Request) string {
	return sanitizeInput(r.URL.Query().Get("branch"))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	NewJSONResponse().Status(status).Body(v).Write(w)
}

// importErrorResponse maps an import failure onto a status code. Problems
// with the requested file are the caller's; anything else is ours.
func importErrorResponse(err error) *JSONResponseBuilder {
	switch {
	case errors.Is(err, errBadParam),
		errors.Is(err, services.ErrPathNotAllowed),
		errors.Is(err, fs.ErrNotExist),
		errors.Is(err, core.ErrMissingColumn),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidOrders):
		return BadRequestError(err.Error())
	case errors.Is(err, services.ErrReadOnlyBackend):
		return ErrorResponse(http.StatusConflict, err.Error())
	default:
		return InternalServerError("import failed")
	}
}
