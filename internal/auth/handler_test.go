// AngelaMos | 2026
// handler_test.go

package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarttaxi/user-service/internal/core"
)

func passthrough(next http.Handler) http.Handler { return next }

func newTestRouter(t *testing.T, f *fixture) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(f.svc).RegisterRoutes(r, passthrough)
	return r
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) core.ErrorBody {
	t.Helper()
	var body core.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.False(t, body.Success)
	return body.Error
}

func TestHandler_RegisterThenLoginRequiresVerification(t *testing.T) {
	f := newFixture(t, false)
	h := newTestRouter(t, f)

	rec := postJSON(t, h, "/auth/register", map[string]string{
		"email":     "a@x.com",
		"password":  "Secret1",
		"firstName": "A",
		"lastName":  "B",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var registered map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&registered))
	assert.Equal(t, "a@x.com", registered["email"])
	assert.Equal(t, false, registered["isVerified"])
	assert.Equal(t, true, registered["isActive"])
	assert.NotEmpty(t, registered["token"])
	assert.NotContains(t, registered, "password")

	rec = postJSON(t, h, "/auth/login", map[string]string{
		"email":    "a@x.com",
		"password": "Secret1",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "ACCOUNT_NOT_ELIGIBLE", decodeError(t, rec).Code)

	f.users.set(int64(registered["userId"].(float64)), true, true)

	rec = postJSON(t, h, "/auth/login", map[string]string{
		"email":    "A@X.COM",
		"password": "Secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp AuthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.IsVerified)
	assert.Equal(t, []string{"USER"}, resp.Roles)
}

func TestHandler_RegisterErrors(t *testing.T) {
	f := newFixture(t, false)
	h := newTestRouter(t, f)

	valid := map[string]string{
		"email":         "dup@x.com",
		"password":      "Secret1",
		"firstName":     "A",
		"lastName":      "B",
		"licenseNumber": "DZ-123",
	}
	require.Equal(t, http.StatusCreated, postJSON(t, h, "/auth/register", valid).Code)

	tests := []struct {
		name     string
		body     any
		wantCode string
	}{
		{"duplicate email", valid, "DUPLICATE_IDENTITY"},
		{"duplicate license", map[string]string{
			"email": "other@x.com", "password": "Secret1",
			"firstName": "A", "lastName": "B", "licenseNumber": "DZ-123",
		}, "DUPLICATE_IDENTITY"},
		{"invalid email", map[string]string{
			"email": "not-an-email", "password": "Secret1", "firstName": "A", "lastName": "B",
		}, "BAD_REQUEST"},
		{"missing names", map[string]string{
			"email": "n@x.com", "password": "Secret1",
		}, "BAD_REQUEST"},
		{"whitespace first name", map[string]string{
			"email": "w@x.com", "password": "Secret1", "firstName": "   ", "lastName": "B",
		}, "BAD_REQUEST"},
		{"whitespace last name", map[string]string{
			"email": "w@x.com", "password": "Secret1", "firstName": "A", "lastName": " \t ",
		}, "BAD_REQUEST"},
		{"short password", map[string]string{
			"email": "p@x.com", "password": "abc", "firstName": "A", "lastName": "B",
		}, "BAD_REQUEST"},
		{"malformed json", "{not json", "BAD_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h, "/auth/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
		})
	}
}

func TestHandler_LoginInvalidCredentials(t *testing.T) {
	f := newFixture(t, false)
	h := newTestRouter(t, f)

	rec := postJSON(t, h, "/auth/login", map[string]string{
		"email": "ghost@x.com", "password": "whatever",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "INVALID_CREDENTIALS", body.Code)
	assert.Equal(t, "invalid email or password", body.Message)

	rec = postJSON(t, h, "/auth/login", map[string]string{"email": "ghost@x.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
