package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorMapperRespond(t *testing.T) {
	errMissing := errors.New("widgets: not found")
	errInvalid := errors.New("widgets: invalid input")

	mapper := ErrorMapper{
		Logger:     slog.New(slog.DiscardHandler),
		Scope:      "widgets handler",
		BadRequest: []error{errInvalid},
		NotFound:   []error{errMissing},
	}

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantTitle  string
		wantDetail bool
	}{
		{"not found sentinel", errMissing, http.StatusNotFound, "Not Found", true},
		{"wrapped bad request", fmt.Errorf("widgets: save: %w", errInvalid), http.StatusBadRequest, "Validation Failed", true},
		{"unmatched error hides detail", errors.New("pg down"), http.StatusInternalServerError, "Internal Error", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mapper.Respond(rec, tc.err)

			require.Equal(t, tc.wantStatus, rec.Code)

			var problem ProblemDetail
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&problem))
			require.Equal(t, tc.wantTitle, problem.Title)
			require.Equal(t, tc.wantStatus, problem.Status)
			if tc.wantDetail {
				require.Contains(t, problem.Detail, "widgets")
			} else {
				require.Empty(t, problem.Detail)
			}
		})
	}
}

func TestErrorMapperNilLogger(t *testing.T) {
	rec := httptest.NewRecorder()
	ErrorMapper{}.Respond(rec, errors.New("boom"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
