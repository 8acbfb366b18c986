// AngelaMos | 2026
// ratelimit_test.go

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func hit(h http.Handler, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.RemoteAddr = ip + ":5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	rl := NewRateLimiter(rdb, RateLimitConfig{
		Limit:   PerMinute(2, 2),
		KeyFunc: KeyByIPAndEndpoint,
	})
	h := rl.Handler(okHandler())

	assert.Equal(t, http.StatusOK, hit(h, "/auth/login", "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, hit(h, "/auth/login", "10.0.0.1").Code)

	limited := hit(h, "/auth/login", "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMITED", errorCode(t, limited))

	assert.Equal(t, http.StatusOK, hit(h, "/auth/register", "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, hit(h, "/auth/login", "10.0.0.2").Code)
}

func TestRateLimiter_FallsBackWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	rl := NewRateLimiter(rdb, RateLimitConfig{Limit: PerMinute(1, 1)})
	h := rl.Handler(okHandler())

	assert.Equal(t, http.StatusOK, hit(h, "/users/1", "10.0.0.9").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "/users/1", "10.0.0.9").Code)
}

func TestRateLimiter_Bypass(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	rl := NewRateLimiter(rdb, RateLimitConfig{
		Limit: PerMinute(1, 1),
		BypassFunc: func(r *http.Request) bool {
			return r.URL.Path == "/healthz"
		},
	})
	h := rl.Handler(okHandler())

	for range 5 {
		require.Equal(t, http.StatusOK, hit(h, "/healthz", "10.0.0.3").Code)
	}
}

func TestKeys(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/vehicles/42/drivers/7", nil)
	req.RemoteAddr = "192.168.1.5:1234"
	assert.Equal(t, "ratelimit:ip:192.168.1.5", KeyByIP(req))
	assert.Equal(t,
		"ratelimit:ip:192.168.1.5:endpoint:/vehicles/{id}/drivers/{id}",
		KeyByIPAndEndpoint(req),
	)

	req.Header.Set("X-Forwarded-For", "1.1.1.1, 2.2.2.2")
	assert.Equal(t, "ratelimit:ip:2.2.2.2", KeyByIP(req))
}
