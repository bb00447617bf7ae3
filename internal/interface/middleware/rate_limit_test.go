package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func newLimitedRouter(rdb *redis.Client, max int, window time.Duration, keyFn KeyFunc, allow AllowFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ping", RateLimit(rdb, max, window, keyFn, allow), func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return r
}

func doGet(r *gin.Engine, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = ip + ":12345"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitBlocksOverLimit(t *testing.T) {
	_, rdb := newTestRedis(t)
	r := newLimitedRouter(rdb, 3, time.Minute, KeyByIP(), nil)

	for i := 0; i < 3; i++ {
		if w := doGet(r, "10.0.0.1"); w.Code != http.StatusOK {
			t.Fatalf("request %d: code = %d, want 200", i+1, w.Code)
		}
	}
	w := doGet(r, "10.0.0.1")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("code = %d, want 429", w.Code)
	}
	if w.Header().Get("X-RateLimit-Limit") != "3" {
		t.Fatalf("X-RateLimit-Limit = %q, want 3", w.Header().Get("X-RateLimit-Limit"))
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestRateLimitIsolatesClients(t *testing.T) {
	_, rdb := newTestRedis(t)
	r := newLimitedRouter(rdb, 1, time.Minute, KeyByIP(), nil)

	if w := doGet(r, "10.0.0.1"); w.Code != http.StatusOK {
		t.Fatalf("first client: code = %d, want 200", w.Code)
	}
	if w := doGet(r, "10.0.0.1"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("first client second hit: code = %d, want 429", w.Code)
	}
	if w := doGet(r, "10.0.0.2"); w.Code != http.StatusOK {
		t.Fatalf("second client: code = %d, want 200", w.Code)
	}
}

func TestRateLimitWindowResets(t *testing.T) {
	mr, rdb := newTestRedis(t)
	r := newLimitedRouter(rdb, 1, time.Second, KeyByIP(), nil)

	if w := doGet(r, "10.0.0.1"); w.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", w.Code)
	}
	if w := doGet(r, "10.0.0.1"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("code = %d, want 429", w.Code)
	}

	mr.FastForward(1100 * time.Millisecond)

	if w := doGet(r, "10.0.0.1"); w.Code != http.StatusOK {
		t.Fatalf("after window: code = %d, want 200", w.Code)
	}
}

func TestRateLimitFailsOpenWithoutRedis(t *testing.T) {
	r := newLimitedRouter(nil, 1, time.Minute, KeyByIP(), nil)
	for i := 0; i < 5; i++ {
		if w := doGet(r, "10.0.0.1"); w.Code != http.StatusOK {
			t.Fatalf("request %d: code = %d, want 200", i+1, w.Code)
		}
	}
}

func TestRateLimitAllowBypass(t *testing.T) {
	_, rdb := newTestRedis(t)
	allowAll := func(*gin.Context) bool { return true }
	r := newLimitedRouter(rdb, 1, time.Minute, KeyByIP(), allowAll)

	for i := 0; i < 5; i++ {
		if w := doGet(r, "10.0.0.1"); w.Code != http.StatusOK {
			t.Fatalf("request %d: code = %d, want 200", i+1, w.Code)
		}
	}
}
