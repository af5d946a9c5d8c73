package middleware

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/totegamma/portfolio/internal/domain"
	"github.com/totegamma/portfolio/internal/present/rest/presenter"
	"github.com/totegamma/portfolio/internal/service"
)

var tracer = otel.Tracer("middleware")

type AuthMiddleware struct {
	auth service.AdminVerifier
}

func NewAuthMiddleware(auth service.AdminVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		auth: auth,
	}
}

// IdentifyIdentity attaches the admin identity to the request context when a
// valid bearer token is present. Requests without one pass through untouched.
// Browsers cannot set headers on a websocket handshake, so upgrade requests
// may carry the token in the "token" query parameter instead.
func (s *AuthMiddleware) IdentifyIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Middleware.Auth.IdentifyIdentity")
		defer span.End()

		token, err := requestToken(c)
		if err == nil {
			identity, err := s.auth.Verify(ctx, token)
			if err != nil {
				span.RecordError(errors.Wrap(err, "AuthMiddleware.IdentifyIdentity: s.auth.Verify failed"))
			} else {
				ctx = context.WithValue(ctx, domain.RequesterIdCtxKey, identity.ID)
				ctx = context.WithValue(ctx, domain.RequesterEmailCtxKey, identity.Email)
				span.SetAttributes(attribute.String("RequesterId", identity.ID))
			}
		}

		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// RequireAdmin rejects the request with 401 unless IdentifyIdentity found an admin.
func (s *AuthMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !IsAdmin(c.Request().Context()) {
			return presenter.Unauthorized(c, domain.UnauthorizedError{Reason: "admin token required"})
		}
		return next(c)
	}
}

// IsAdmin reports whether the request carries a verified admin identity.
func IsAdmin(ctx context.Context) bool {
	id, ok := ctx.Value(domain.RequesterIdCtxKey).(string)
	return ok && id != ""
}

func requestToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get("Authorization")
	if header == "" && websocket.IsWebSocketUpgrade(c.Request()) {
		if token := c.QueryParam("token"); token != "" {
			return token, nil
		}
	}
	return bearerToken(header)
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", fmt.Errorf("no authorization header")
	}
	split := strings.Split(header, " ")
	if len(split) != 2 {
		return "", fmt.Errorf("invalid authentication header")
	}
	if split[0] != "Bearer" {
		return "", fmt.Errorf("only Bearer is acceptable")
	}
	return split[1], nil
}

// RateLimit throttles a route per client IP. A broken limiter lets traffic
// through rather than taking the form down.
func RateLimit(limiter service.RateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP() + ":" + c.Path()
			ok, err := limiter.Allow(c.Request().Context(), key)
			if err != nil {
				zap.L().Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
				return next(c)
			}
			if !ok {
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(limiter.Window().Seconds())))
				return presenter.TooManyRequests(c)
			}
			return next(c)
		}
	}
}
