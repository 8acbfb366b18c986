// AngelaMos | 2026
// handler_test.go

package vehicle

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarttaxi/user-service/internal/core"
	"github.com/smarttaxi/user-service/internal/middleware"
	"github.com/smarttaxi/user-service/internal/user"
)

func newTestRouter(svc *Service, identity middleware.Identity) http.Handler {
	h := NewHandler(svc)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithIdentity(req.Context(), identity)))
		})
	})
	r.Route("/vehicles", h.RegisterRoutes)
	r.Route("/users", h.RegisterUserRoutes)
	return r
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var (
	adminIdentity  = middleware.Identity{UserID: 1, Roles: []string{user.RoleAdmin}}
	driverIdentity = middleware.Identity{UserID: 10, Roles: []string{user.RoleDriver}}
)

func TestHandler_CreateAndGet(t *testing.T) {
	svc, _, _ := newTestService(t)
	admin := newTestRouter(svc, adminIdentity)

	rec := do(t, admin, http.MethodPost, "/vehicles", map[string]any{
		"licensePlate": "ab-123",
		"make":         "Toyota",
		"model":        "Prius",
		"vehicleType":  "hatchback",
		"seats":        5,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created VehicleResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, "AB-123", created.LicensePlate)
	assert.Equal(t, TypeHatchback, created.VehicleType)
	assert.True(t, created.InsuranceExpired)

	driver := newTestRouter(svc, driverIdentity)
	rec = do(t, driver, http.MethodGet, "/vehicles/"+strconv.FormatInt(created.ID, 10), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, admin, http.MethodPost, "/vehicles", map[string]any{
		"licensePlate": "AB-123",
		"make":         "Kia",
		"model":        "Rio",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body core.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "DUPLICATE_IDENTITY", body.Error.Code)

	rec = do(t, admin, http.MethodPost, "/vehicles", map[string]any{
		"licensePlate": "ZZ-1",
		"make":         "Kia",
		"model":        "Rio",
		"vehicleType":  "tank",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, admin, http.MethodGet, "/vehicles/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_MutationsRequireAdmin(t *testing.T) {
	svc, _, _ := newTestService(t)
	v := createTestVehicle(t, svc, "AB-123")
	driver := newTestRouter(svc, driverIdentity)
	id := strconv.FormatInt(v.ID, 10)

	paths := []struct{ method, path string }{
		{http.MethodGet, "/vehicles"},
		{http.MethodPost, "/vehicles"},
		{http.MethodPut, "/vehicles/" + id},
		{http.MethodPost, "/vehicles/" + id + "/verify"},
		{http.MethodGet, "/vehicles/" + id + "/drivers"},
		{http.MethodPost, "/vehicles/" + id + "/drivers/10"},
	}
	for _, p := range paths {
		rec := do(t, driver, p.method, p.path, map[string]any{})
		assert.Equal(t, http.StatusForbidden, rec.Code, "%s %s", p.method, p.path)
	}
}

func TestHandler_DriverAssignment(t *testing.T) {
	svc, _, _ := newTestService(t)
	v := createTestVehicle(t, svc, "AB-123")
	admin := newTestRouter(svc, adminIdentity)
	base := "/vehicles/" + strconv.FormatInt(v.ID, 10)

	rec := do(t, admin, http.MethodPost, base+"/drivers/10", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, admin, http.MethodPost, base+"/drivers/77", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, admin, http.MethodGet, base+"/drivers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var drivers []Driver
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&drivers))
	require.Len(t, drivers, 1)
	assert.Equal(t, int64(10), drivers[0].ID)

	self := newTestRouter(svc, driverIdentity)
	rec = do(t, self, http.MethodGet, "/users/10/vehicles", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var vehicles []VehicleResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&vehicles))
	require.Len(t, vehicles, 1)

	rec = do(t, self, http.MethodGet, "/users/11/vehicles", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, admin, http.MethodDelete, base+"/drivers/10", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandler_List(t *testing.T) {
	svc, _, _ := newTestService(t)
	createTestVehicle(t, svc, "AB-1")
	_, err := svc.Create(t.Context(), CreateVehicleRequest{
		LicensePlate: "VAN-1",
		Make:         "Ford",
		Model:        "Transit",
		VehicleType:  TypeVan,
	})
	require.NoError(t, err)
	admin := newTestRouter(svc, adminIdentity)

	rec := do(t, admin, http.MethodGet, "/vehicles?type=VAN", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		Items []VehicleResponse `json:"items"`
		Total int               `json:"total"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "VAN-1", page.Items[0].LicensePlate)
}
