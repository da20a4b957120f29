package httpx

import (
	"errors"
	"log/slog"
	"net/http"
)

// ErrorMapper translates a package's sentinel errors into RFC7807
// responses. Errors matching none of the sentinel lists are logged
// under Scope and reported as a 500 with no detail leaked.
type ErrorMapper struct {
	Logger     *slog.Logger
	Scope      string
	BadRequest []error
	NotFound   []error
	Conflict   []error
}

// Respond writes the mapped response for err.
func (m ErrorMapper) Respond(w http.ResponseWriter, err error) {
	switch {
	case matchesAny(err, m.BadRequest):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case matchesAny(err, m.NotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case matchesAny(err, m.Conflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		if m.Logger != nil {
			m.Logger.Error(m.Scope, slog.Any("error", err))
		}
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func matchesAny(err error, sentinels []error) bool {
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
