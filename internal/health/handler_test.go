// AngelaMos | 2026
// handler_test.go

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type redisChecker struct{ rdb *redis.Client }

func (c redisChecker) Ping(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestBanner(t *testing.T) {
	rec := serve(NewHandler(), "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User Service is running", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
}

func TestReadiness(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	healthyDB := pingFunc(func(context.Context) error { return nil })
	brokenDB := pingFunc(func(context.Context) error { return errors.New("down") })

	t.Run("all healthy", func(t *testing.T) {
		h := NewHandler(
			Dependency{Name: "database", Checker: healthyDB},
			Dependency{Name: "redis", Checker: redisChecker{rdb}},
		)
		rec := serve(h, "/readyz")
		require.Equal(t, http.StatusOK, rec.Code)

		var body ReadinessResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "ok", body.Status)
		require.Len(t, body.Checks, 2)
		assert.Equal(t, "database", body.Checks[0].Name)
		assert.Equal(t, "redis", body.Checks[1].Name)
	})

	t.Run("degraded", func(t *testing.T) {
		h := NewHandler(
			Dependency{Name: "database", Checker: brokenDB},
			Dependency{Name: "redis", Checker: redisChecker{rdb}},
		)
		rec := serve(h, "/readyz")
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var body ReadinessResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "degraded", body.Status)
		assert.False(t, body.Checks[0].Healthy)
		assert.True(t, body.Checks[1].Healthy)
	})

	t.Run("missing checker", func(t *testing.T) {
		rec := serve(NewHandler(Dependency{Name: "database"}), "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("not ready", func(t *testing.T) {
		h := NewHandler(Dependency{Name: "database", Checker: healthyDB})
		h.SetReady(false)
		assert.Equal(t, http.StatusServiceUnavailable, serve(h, "/readyz").Code)
	})
}

func TestShutdown(t *testing.T) {
	h := NewHandler()
	assert.Equal(t, http.StatusOK, serve(h, "/livez").Code)

	h.SetShutdown(true)
	assert.Equal(t, http.StatusServiceUnavailable, serve(h, "/healthz").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(h, "/readyz").Code)
	assert.Equal(t, http.StatusOK, serve(h, "/health").Code)
}
