package rest

import (
	"context"
	"net/http"
	"path/filepath"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/totegamma/portfolio"
	"github.com/totegamma/portfolio/internal/domain"
	"github.com/totegamma/portfolio/internal/infra/database/models"
	"github.com/totegamma/portfolio/internal/present/rest/middleware"
	"github.com/totegamma/portfolio/internal/present/rest/presenter"
	"github.com/totegamma/portfolio/internal/service"
	"github.com/totegamma/portfolio/internal/usecase"
)

// EventSource streams committed changes to realtime clients.
type EventSource interface {
	Subscribe(ctx context.Context) (<-chan portfolio.Event, error)
}

type Handler struct {
	config  domain.Config
	ordered []OrderedRoutes
	contact *usecase.ContactUsecase
	upload  *usecase.UploadUsecase
	events  EventSource
	auth    *middleware.AuthMiddleware
	limiter service.RateLimiter
	files   string
}

func NewHandler(
	config domain.Config,
	ordered []OrderedRoutes,
	contact *usecase.ContactUsecase,
	upload *usecase.UploadUsecase,
	events EventSource,
	auth *middleware.AuthMiddleware,
	limiter service.RateLimiter,
	files string,
) *Handler {
	return &Handler{
		config:  config,
		ordered: ordered,
		contact: contact,
		upload:  upload,
		events:  events,
		auth:    auth,
		limiter: limiter,
		files:   files,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.handleHealth)
	e.GET("/realtime", h.handleRealtime, h.auth.IdentifyIdentity, h.auth.RequireAdmin)
	if h.files != "" {
		e.GET("/files/*", h.handleFile)
	}

	admin := h.auth.RequireAdmin
	limit := middleware.RateLimit(h.limiter)

	api := e.Group("/api", h.auth.IdentifyIdentity)
	for _, r := range h.ordered {
		r.Register(api.Group("/"+r.Resource()), admin, limit)
	}

	api.POST("/contact", h.handleContactSubmit, limit)
	api.GET("/contact", h.handleContactList, admin)
	api.PUT("/contact/:id/read", h.handleContactRead, admin)
	api.DELETE("/contact/:id", h.handleContactDelete, admin)

	api.GET("/uploads", h.handleUploadList, admin)
	api.POST("/uploads", h.handleUpload, admin)
	api.DELETE("/uploads/:key", h.handleUploadDelete, admin)
}

func (h *Handler) handleHealth(c echo.Context) error {
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleContactSubmit(c echo.Context) error {
	var msg models.ContactMessage
	if err := c.Bind(&msg); err != nil {
		return presenter.BadRequest(c, err)
	}
	if err := h.contact.Submit(c.Request().Context(), &msg); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, echo.Map{"status": "ok", "id": msg.ID})
}

func (h *Handler) handleContactList(c echo.Context) error {
	msgs, err := h.contact.List(c.Request().Context(), c.QueryParam("unread") == "true")
	if err != nil {
		return presenter.Error(c, err)
	}
	if msgs == nil {
		msgs = []models.ContactMessage{}
	}
	return presenter.OK(c, msgs)
}

func (h *Handler) handleContactRead(c echo.Context) error {
	var body struct {
		Read *bool `json:"read"`
	}
	if err := c.Bind(&body); err != nil {
		return presenter.BadRequest(c, err)
	}
	read := true
	if body.Read != nil {
		read = *body.Read
	}
	if err := h.contact.MarkRead(c.Request().Context(), c.Param("id"), read); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleContactDelete(c echo.Context) error {
	if err := h.contact.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleUploadList(c echo.Context) error {
	uploads, err := h.upload.List(c.Request().Context())
	if err != nil {
		return presenter.Error(c, err)
	}
	if uploads == nil {
		uploads = []models.Upload{}
	}
	return presenter.OK(c, uploads)
}

func (h *Handler) handleUpload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return presenter.BadRequestMessage(c, "multipart field \"file\" is required")
	}
	if fh.Size > usecase.MaxUploadSize {
		return presenter.Error(c, domain.ValidationError{Field: "file", Reason: "too large"})
	}

	file, err := fh.Open()
	if err != nil {
		return presenter.InternalError(c, err)
	}
	defer file.Close()

	upload, err := h.upload.Upload(c.Request().Context(), fh.Filename, fh.Header.Get("Content-Type"), file)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, upload)
}

func (h *Handler) handleUploadDelete(c echo.Context) error {
	if err := h.upload.Delete(c.Request().Context(), c.Param("key")); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleFile(c echo.Context) error {
	key := c.Param("*")
	if key == "" || key != filepath.Base(key) || key[0] == '.' {
		return presenter.NotFound(c, "file not found")
	}
	c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	return c.File(filepath.Join(h.files, key))
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Request is a control message sent by realtime clients. The feed is admin
// only: events name unapproved submissions.
type Request struct {
	Type      string   `json:"type"`
	Resources []string `json:"resources"`
}

const pingInterval = 30 * time.Second

func (h *Handler) handleRealtime(c echo.Context) error {
	if h.events == nil {
		return presenter.NotFound(c, "realtime is disabled")
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		zap.L().Error("failed to upgrade websocket", zap.Error(err), zap.String("module", "socket"))
		return nil
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	events, err := h.events.Subscribe(ctx)
	if err != nil {
		zap.L().Error("failed to subscribe", zap.Error(err), zap.String("module", "socket"))
		return nil
	}

	filter := make(chan []string, 1)
	go func() {
		defer cancel()
		for {
			var req Request
			if err := ws.ReadJSON(&req); err != nil {
				if wsErr, ok := err.(*websocket.CloseError); ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						zap.L().Debug("websocket closed", zap.Error(wsErr), zap.String("module", "socket"))
					}
				} else if ctx.Err() == nil {
					zap.L().Debug("error reading message", zap.Error(err), zap.String("module", "socket"))
				}
				return
			}

			switch req.Type {
			case "listen":
				select {
				case <-filter:
				default:
				}
				filter <- req.Resources
			case "h": // heartbeat
			default:
				zap.L().Info("unknown request type", zap.String("type", req.Type), zap.String("module", "socket"))
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	var listening []string
	for {
		select {
		case <-ctx.Done():
			return nil
		case resources := <-filter:
			listening = resources
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return nil
			}
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if len(listening) > 0 && !slices.Contains(listening, event.Resource) {
				continue
			}
			if err := ws.WriteJSON(event); err != nil {
				zap.L().Debug("error writing message", zap.Error(err), zap.String("module", "socket"))
				return nil
			}
		}
	}
}
