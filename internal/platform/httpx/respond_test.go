package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fieldErr map[string]string

func (f fieldErr) Error() string                  { return "invalid form" }
func (f fieldErr) FieldErrors() map[string]string { return f }

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("load: %w", ErrNotFound), http.StatusNotFound},
		{ErrDuplicate, http.StatusConflict},
		{ErrConflict, http.StatusConflict},
		{ErrValidation, http.StatusBadRequest},
		{ErrUpstream, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, c.err)
		assert.Equal(t, c.code, rec.Code, c.err.Error())
	}
}

func TestRespondErrorIncludesFieldErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, fmt.Errorf("submit: %w", fieldErr{"party_name": "is required"}))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "is required", body.Errors["party_name"])
}
