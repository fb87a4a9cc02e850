package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockroom/pkg/platform/sentinel"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("db failed"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decodeError(t, w)
		assert.Equal(t, "internal_error", body["error"])
		_, ok := body["error_description"]
		assert.False(t, ok)
	})

	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("item %q: %w", "A1", sentinel.ErrNotFound), http.StatusNotFound, "not_found"},
		{fmt.Errorf("receive: %w", sentinel.ErrMalformed), http.StatusBadRequest, "bad_request"},
		{fmt.Errorf("reload: %w", sentinel.ErrUnavailable), http.StatusServiceUnavailable, "unavailable"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tc.err)
			assert.Equal(t, tc.status, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, tc.code, body["error"])
			assert.Equal(t, tc.err.Error(), body["error_description"])
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Note string `json:"note"`
	}

	t.Run("valid body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"note":"x"}`))
		got, err := DecodeJSON[payload](httptest.NewRecorder(), r)
		require.NoError(t, err)
		assert.Equal(t, "x", got.Note)
	})

	for name, body := range map[string]string{
		"syntax error":  `{"note":`,
		"unknown field": `{"note":"x","extra":1}`,
		"empty body":    ``,
	} {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
			_, err := DecodeJSON[payload](httptest.NewRecorder(), r)
			assert.ErrorIs(t, err, sentinel.ErrMalformed)
		})
	}
}
