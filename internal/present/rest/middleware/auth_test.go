package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/totegamma/portfolio"
	"github.com/totegamma/portfolio/internal/domain"
)

type mockVerifier struct{}

func (mockVerifier) Verify(ctx context.Context, token string) (portfolio.AdminIdentity, error) {
	if token != "good" {
		return portfolio.AdminIdentity{}, domain.UnauthorizedError{Reason: "bad token"}
	}
	return portfolio.AdminIdentity{ID: "admin-1", Email: "me@example.com"}, nil
}

func newEcho() *echo.Echo {
	e := echo.New()
	auth := NewAuthMiddleware(mockVerifier{})
	e.Use(auth.IdentifyIdentity)
	e.GET("/public", func(c echo.Context) error {
		return c.String(http.StatusOK, map[bool]string{true: "admin", false: "visitor"}[IsAdmin(c.Request().Context())])
	})
	e.GET("/admin", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, auth.RequireAdmin)
	return e
}

func do(e *echo.Echo, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRequireAdmin(t *testing.T) {
	e := newEcho()

	assert.Equal(t, http.StatusUnauthorized, do(e, "/admin", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, "/admin", "Bearer bad").Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, "/admin", "Basic good").Code)
	assert.Equal(t, http.StatusOK, do(e, "/admin", "Bearer good").Code)
}

func TestIdentifyIdentity(t *testing.T) {
	e := newEcho()
	assert.Equal(t, "visitor", do(e, "/public", "").Body.String())
	assert.Equal(t, "visitor", do(e, "/public", "Bearer bad").Body.String())
	assert.Equal(t, "admin", do(e, "/public", "Bearer good").Body.String())
}

func TestQueryTokenOnlyOnUpgrade(t *testing.T) {
	e := newEcho()

	req := httptest.NewRequest(http.MethodGet, "/admin?token=good", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin?token=good", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type countingLimiter struct {
	limit int
	seen  map[string]int
}

func (l *countingLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.seen[key]++
	return l.seen[key] <= l.limit, nil
}

func (l *countingLimiter) Window() time.Duration {
	return time.Minute
}

func TestRateLimit(t *testing.T) {
	e := echo.New()
	limiter := &countingLimiter{limit: 1, seen: map[string]int{}}
	e.POST("/api/contact", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, RateLimit(limiter))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send().Code)
	rec := send()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, 2, limiter.seen["10.0.0.1:/api/contact"])
}
