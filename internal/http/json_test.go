package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/glosswerks/glosswerks-api/internal/errors"
)

type decodeTarget struct {
	Email string `json:"email"`
}

func decodeBody(t *testing.T, body string) (*httptest.ResponseRecorder, decodeTarget, bool) {
	t.Helper()
	var dst decodeTarget
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	ok := DecodeJSON(rec, req, &dst)
	return rec, dst, ok
}

func TestDecodeJSON(t *testing.T) {
	rec, dst, ok := decodeBody(t, `{"email":"jo@glosswerks.test"}`)
	require.True(t, ok)
	assert.Equal(t, "jo@glosswerks.test", dst.Email)
	assert.Equal(t, http.StatusOK, rec.Code)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{name: "malformed", body: `{"email":`, status: http.StatusBadRequest, code: "invalid_json"},
		{name: "unknown field", body: `{"mail":"x"}`, status: http.StatusBadRequest, code: "invalid_json"},
		{name: "trailing data", body: `{"email":"a"}{"email":"b"}`, status: http.StatusBadRequest, code: "invalid_json"},
		{name: "too large", body: `{"email":"` + strings.Repeat("a", maxJSONBody) + `"}`, status: http.StatusRequestEntityTooLarge, code: "body_too_large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _, ok := decodeBody(t, tt.body)
			assert.False(t, ok)
			assert.Equal(t, tt.status, rec.Code)

			var body errorBody
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.code, body.Error)
		})
	}
}

func TestWriteError_Field(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ErrorParams{
		Code:    http.StatusBadRequest,
		ErrCode: "validation",
		Err:     apperrors.ValidationField("email", "email is invalid"),
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"error":"validation","message":"email is invalid","field":"email"}`, rec.Body.String())
}
