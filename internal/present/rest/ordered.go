package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/zeebo/xxh3"

	"github.com/totegamma/portfolio"
	"github.com/totegamma/portfolio/internal/domain"
	"github.com/totegamma/portfolio/internal/present/rest/middleware"
	"github.com/totegamma/portfolio/internal/present/rest/presenter"
	"github.com/totegamma/portfolio/internal/usecase"
)

const maxBodySize = 1 << 20

// OrderedRoutes registers the endpoints of one ordered resource.
type OrderedRoutes interface {
	Resource() string
	Register(g *echo.Group, admin, limit echo.MiddlewareFunc)
}

type orderedHandler[T any, PT usecase.Model[T]] struct {
	uc *usecase.OrderedUsecase[T, PT]
}

// Ordered exposes an ordered usecase over HTTP.
func Ordered[T any, PT usecase.Model[T]](uc *usecase.OrderedUsecase[T, PT]) OrderedRoutes {
	return &orderedHandler[T, PT]{uc: uc}
}

func (h *orderedHandler[T, PT]) Resource() string {
	return h.uc.Resource()
}

func (h *orderedHandler[T, PT]) Register(g *echo.Group, admin, limit echo.MiddlewareFunc) {
	g.GET("", h.handleList)
	g.GET("/all", h.handleListAll, admin)
	g.GET("/positions", h.handlePositions, admin)
	g.POST("", h.handleCreate, admin)
	g.POST("/swap-order", h.handleSwap, admin)
	if h.uc.Gated() {
		g.POST("/submit", h.handleSubmit, limit)
		g.POST("/:id/approve", h.handleApproval(true), admin)
		g.POST("/:id/unapprove", h.handleApproval(false), admin)
	}
	g.GET("/:id", h.handleGet)
	g.PUT("/:id", h.handleUpdate, admin)
	g.DELETE("/:id", h.handleDelete, admin)
}

func (h *orderedHandler[T, PT]) handleList(c echo.Context) error {
	body, err := h.uc.PublicList(c.Request().Context())
	if err != nil {
		return presenter.Error(c, err)
	}
	return writeCached(c, body)
}

func (h *orderedHandler[T, PT]) handleListAll(c echo.Context) error {
	rows, err := h.uc.ListAll(c.Request().Context())
	if err != nil {
		return presenter.Error(c, err)
	}
	if rows == nil {
		rows = []T{}
	}
	return presenter.OK(c, rows)
}

func (h *orderedHandler[T, PT]) handlePositions(c echo.Context) error {
	positions, err := h.uc.Positions(c.Request().Context())
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, positions)
}

func (h *orderedHandler[T, PT]) handleGet(c echo.Context) error {
	ctx := c.Request().Context()
	row, err := h.uc.Get(ctx, c.Param("id"), middleware.IsAdmin(ctx))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, row)
}

func (h *orderedHandler[T, PT]) handleCreate(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return presenter.Error(c, err)
	}
	row, err := h.uc.Create(c.Request().Context(), body)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, row)
}

func (h *orderedHandler[T, PT]) handleSubmit(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return presenter.Error(c, err)
	}
	row, err := h.uc.Submit(c.Request().Context(), body)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, row)
}

func (h *orderedHandler[T, PT]) handleUpdate(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return presenter.Error(c, err)
	}
	row, err := h.uc.Update(c.Request().Context(), c.Param("id"), body)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, row)
}

func (h *orderedHandler[T, PT]) handleDelete(c echo.Context) error {
	if err := h.uc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *orderedHandler[T, PT]) handleSwap(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return presenter.Error(c, err)
	}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return presenter.BadRequestMessage(c, "invalid JSON")
	}
	req, err := portfolio.ParseSwapRequest(h.uc.Resource(), fields)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	a, b, err := h.uc.Swap(c.Request().Context(), req.First, req.Second)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"status": "ok", "items": []PT{a, b}})
}

func (h *orderedHandler[T, PT]) handleApproval(approved bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		row, err := h.uc.SetApproval(c.Request().Context(), c.Param("id"), approved)
		if err != nil {
			return presenter.Error(c, err)
		}
		return presenter.OK(c, row)
	}
}

func readBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodySize+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxBodySize {
		return nil, domain.ValidationError{Reason: "request body too large"}
	}
	return body, nil
}

// writeCached serves a JSON document with a content hash ETag.
func writeCached(c echo.Context, body []byte) error {
	etag := fmt.Sprintf(`"%016x"`, xxh3.Hash(body))
	c.Response().Header().Set("ETag", etag)
	c.Response().Header().Set("Cache-Control", "no-cache")
	if c.Request().Header.Get("If-None-Match") == etag {
		return c.NoContent(http.StatusNotModified)
	}
	return c.JSONBlob(http.StatusOK, body)
}
