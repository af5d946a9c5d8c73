package presenter

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/totegamma/portfolio/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

// OK wraps a successful response.
func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}

func Created(c echo.Context, payload any) error {
	return c.JSON(http.StatusCreated, payload)
}

func BadRequest(c echo.Context, err error) error {
	zap.L().Info("bad request", zap.String("path", c.Path()), zap.Error(err))
	return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func BadRequestMessage(c echo.Context, msg string) error {
	zap.L().Info("bad request", zap.String("path", c.Path()), zap.String("reason", msg))
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

func NotFound(c echo.Context, msg string) error {
	return c.JSON(http.StatusNotFound, errorResponse{Error: msg})
}

func Unauthorized(c echo.Context, err error) error {
	zap.L().Info("unauthorized", zap.String("path", c.Path()), zap.String("ip", c.RealIP()), zap.Error(err))
	return c.JSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
}

func TooManyRequests(c echo.Context) error {
	return c.JSON(http.StatusTooManyRequests, errorResponse{Error: "too many requests"})
}

func InternalError(c echo.Context, err error) error {
	zap.L().Error("internal error",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	msg := "internal error"
	if errors.Is(err, domain.ErrTransactionFailure) {
		msg = "transaction failed, nothing was changed"
	}
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: msg})
}

// StatusOf maps a domain error to its HTTP status.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrTargetNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSelfSwap), errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// Error renders any error returned by a usecase.
func Error(c echo.Context, err error) error {
	switch StatusOf(err) {
	case http.StatusNotFound:
		return NotFound(c, err.Error())
	case http.StatusBadRequest:
		return BadRequest(c, err)
	case http.StatusUnauthorized:
		return Unauthorized(c, err)
	}
	return InternalError(c, err)
}
