package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/princinho/moviebackend/apperr"
	"github.com/princinho/moviebackend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type authFunc func(ctx context.Context, token string) (*models.User, error)

func (f authFunc) Authenticate(ctx context.Context, token string) (*models.User, error) {
	return f(ctx, token)
}

func newEngine(development bool) *gin.Engine {
	r := gin.New()
	r.Use(Recovery(zap.NewNop(), development))
	r.Use(ErrorHandler(zap.NewNop(), development))
	return r
}

func do(r http.Handler, method, path string, header http.Header) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func TestAuthMiddleware(t *testing.T) {
	jane := &models.User{ID: bson.NewObjectID(), Name: "Jane", Role: models.RoleUser, IsActive: true}
	auth := authFunc(func(_ context.Context, token string) (*models.User, error) {
		switch token {
		case "good":
			return jane, nil
		case "expired":
			return nil, apperr.ErrTokenExpired
		case "locked":
			return nil, apperr.ErrAccountLocked
		}
		return nil, apperr.ErrInvalidToken
	})

	r := newEngine(false)
	r.GET("/me", AuthMiddleware(auth), func(c *gin.Context) {
		u, ok := CurrentUser(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"name": u.Name})
	})

	cases := []struct {
		name   string
		header http.Header
		status int
		code   string
	}{
		{"no header", nil, http.StatusUnauthorized, "TOKEN_MISSING"},
		{"not bearer", http.Header{"Authorization": []string{"Basic abc"}}, http.StatusUnauthorized, "TOKEN_MISSING"},
		{"empty bearer", http.Header{"Authorization": []string{"Bearer "}}, http.StatusUnauthorized, "TOKEN_MISSING"},
		{"expired", bearer("expired"), http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{"garbage", bearer("nope"), http.StatusUnauthorized, "INVALID_TOKEN"},
		{"locked", bearer("locked"), http.StatusLocked, "ACCOUNT_LOCKED"},
		{"ok", bearer("good"), http.StatusOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, body := do(r, http.MethodGet, "/me", tc.header)
			assert.Equal(t, tc.status, w.Code)
			if tc.code != "" {
				assert.Equal(t, tc.code, body["code"])
				assert.NotEmpty(t, body["error"])
				return
			}
			assert.Equal(t, "Jane", body["name"])
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	users := map[string]*models.User{
		"user":  {ID: bson.NewObjectID(), Role: models.RoleUser, IsActive: true},
		"admin": {ID: bson.NewObjectID(), Role: models.RoleAdmin, IsActive: true},
	}
	auth := authFunc(func(_ context.Context, token string) (*models.User, error) {
		return users[token], nil
	})

	r := newEngine(false)
	r.GET("/admin", AuthMiddleware(auth), RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w, body := do(r, http.MethodGet, "/admin", bearer("user"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "INSUFFICIENT_PERMISSIONS", body["code"])

	w, _ = do(r, http.MethodGet, "/admin", bearer("admin"))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestErrorHandler(t *testing.T) {
	detailed := apperr.ErrValidation.WithDetails([]map[string]string{{"field": "email", "message": "bad"}})

	for _, dev := range []bool{false, true} {
		r := newEngine(dev)
		r.GET("/validation", func(c *gin.Context) { Fail(c, detailed) })
		r.GET("/internal", func(c *gin.Context) { Fail(c, errors.New("mongo: connection refused")) })
		r.GET("/canceled", func(c *gin.Context) { Fail(c, fmt.Errorf("invoke: %w", context.Canceled)) })

		t.Run(fmt.Sprintf("development=%v", dev), func(t *testing.T) {
			w, body := do(r, http.MethodGet, "/validation", nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "VALIDATION_ERROR", body["code"])
			assert.Len(t, body["details"], 1)
			assert.NotContains(t, body, "debug")

			w, body = do(r, http.MethodGet, "/internal", nil)
			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Equal(t, "INTERNAL_SERVER_ERROR", body["code"])
			assert.Equal(t, "Internal server error", body["error"])
			if dev {
				assert.Equal(t, "mongo: connection refused", body["debug"])
			} else {
				assert.NotContains(t, body, "debug")
				assert.NotContains(t, w.Body.String(), "mongo")
			}

			w, _ = do(r, http.MethodGet, "/canceled", nil)
			assert.Equal(t, StatusClientClosedRequest, w.Code)
			assert.Zero(t, w.Body.Len())
		})
	}
}

func TestRecovery(t *testing.T) {
	for _, dev := range []bool{false, true} {
		r := newEngine(dev)
		r.GET("/panic", func(c *gin.Context) { panic("boom") })

		w, body := do(r, http.MethodGet, "/panic", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "INTERNAL_SERVER_ERROR", body["code"])
		if dev {
			assert.NotEmpty(t, body["stack"])
		} else {
			assert.NotContains(t, body, "stack")
		}
	}
}

func TestNotFound(t *testing.T) {
	r := newEngine(false)
	r.NoRoute(NotFound())

	w, body := do(r, http.MethodGet, "/api/nothing-here", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ROUTE_NOT_FOUND", body["code"])
	assert.Equal(t, "/api/nothing-here", body["path"])
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(RequestLogger(zap.New(core)))
	r.GET("/reset/:token", func(c *gin.Context) {
		assert.NotEmpty(t, RequestID(c))
		c.Status(http.StatusOK)
	})

	w, _ := do(r, http.MethodGet, "/reset/secret-token-value", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/reset/:token", fields["path"])
	assert.EqualValues(t, http.StatusOK, fields["status"])

	id := "6f1c1a52-3a0c-4a3b-9d53-1f7e8d3c2b10"
	w, _ = do(r, http.MethodGet, "/reset/x", http.Header{RequestIDHeader: []string{id}})
	assert.Equal(t, id, w.Header().Get(RequestIDHeader))

	w, _ = do(r, http.MethodGet, "/reset/x", http.Header{RequestIDHeader: []string{"<script>"}})
	assert.NotEqual(t, "<script>", w.Header().Get(RequestIDHeader))
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestRateLimiter(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(5, 15*time.Minute).WithClock(clock.Now)

	for i := 0; i < 5; i++ {
		assert.True(t, rl.Allow("1.2.3.4"), "request %d", i+1)
	}
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"), "buckets are per client")

	// one token refills every window/limit
	clock.Advance(3 * time.Minute)
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))

	clock.Advance(15 * time.Minute)
	assert.True(t, rl.Allow("9.9.9.9"))
	assert.Equal(t, 1, rl.Len(), "idle buckets are evicted")
}

func TestRateLimiterHandler(t *testing.T) {
	r := newEngine(false)
	r.Use(NewRateLimiter(2, time.Minute).Handler())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		w, _ := do(r, http.MethodGet, "/x", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w, body := do(r, http.MethodGet, "/x", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", body["code"])
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
}
