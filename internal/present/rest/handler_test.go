package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totegamma/portfolio"
	"github.com/totegamma/portfolio/internal/domain"
	"github.com/totegamma/portfolio/internal/infra/cache"
	"github.com/totegamma/portfolio/internal/infra/database"
	"github.com/totegamma/portfolio/internal/infra/database/models"
	"github.com/totegamma/portfolio/internal/infra/repository"
	"github.com/totegamma/portfolio/internal/infra/storage"
	"github.com/totegamma/portfolio/internal/present/rest/middleware"
	"github.com/totegamma/portfolio/internal/service"
	"github.com/totegamma/portfolio/internal/usecase"
	"github.com/totegamma/portfolio/jwt"
)

const testSecret = "handler-secret"

type testServer struct {
	e     *echo.Echo
	token string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.NewSQLite(fmt.Sprintf("file:rest_%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	files, err := storage.NewLocal(t.TempDir(), "http://localhost")
	require.NoError(t, err)
	listCache := cache.NewMemory(time.Minute)
	broker := service.NewBroker()

	config := domain.Config{RateLimit: domain.RateLimit{Requests: 3, Window: time.Minute}}
	ordered := []OrderedRoutes{
		Ordered(usecase.NewOrderedUsecase[models.Skill](repository.NewSkillRepository(db), listCache, broker, files)),
		Ordered(usecase.NewOrderedUsecase[models.Testimonial](repository.NewTestimonialRepository(db), listCache, broker, files)),
	}
	h := NewHandler(
		config,
		ordered,
		usecase.NewContactUsecase(repository.NewContactRepository(db), broker),
		usecase.NewUploadUsecase(repository.NewUploadRepository(db), files, broker),
		broker,
		middleware.NewAuthMiddleware(service.NewAuthService(nil, testSecret)),
		service.NewMemoryRateLimiter(config.RateLimit),
		files.Root(),
	)

	e := echo.New()
	h.RegisterRoutes(e)

	token, _, err := jwt.Create("admin-1", "me@example.com", domain.RoleAdmin, time.Hour, testSecret)
	require.NoError(t, err)
	return &testServer{e: e, token: token}
}

func (s *testServer) do(method, path, body string, admin bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.RemoteAddr = "192.0.2.1:4321"
	if admin {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) create(t *testing.T, resource, body string) map[string]any {
	t.Helper()
	rec := s.do(http.MethodPost, "/api/"+resource, body, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var out []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestAdminRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/skills"},
		{http.MethodGet, "/api/skills/all"},
		{http.MethodGet, "/api/skills/positions"},
		{http.MethodPut, "/api/skills/x"},
		{http.MethodDelete, "/api/skills/x"},
		{http.MethodPost, "/api/skills/swap-order"},
		{http.MethodPost, "/api/testimonials/x/approve"},
		{http.MethodGet, "/api/contact"},
		{http.MethodPost, "/api/uploads"},
		{http.MethodGet, "/realtime"},
	} {
		rec := s.do(tc.method, tc.path, `{`, false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestSkillLifecycle(t *testing.T) {
	s := newTestServer(t)

	a := s.create(t, "skills", `{"name":"Go","level":90}`)
	b := s.create(t, "skills", `{"name":"SQL"}`)
	c := s.create(t, "skills", `{"name":"Redis"}`)
	assert.EqualValues(t, 1, a["order"])
	assert.EqualValues(t, 3, c["order"])

	rec := s.do(http.MethodPost, "/api/skills/swap-order",
		fmt.Sprintf(`{"skillId1":%q,"skillId2":%q}`, a["id"], c["id"]), true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	list := decodeList(t, s.do(http.MethodGet, "/api/skills", "", false))
	require.Len(t, list, 3)
	assert.Equal(t, c["id"], list[0]["id"])
	assert.Equal(t, b["id"], list[1]["id"])
	assert.Equal(t, a["id"], list[2]["id"])

	rec = s.do(http.MethodDelete, "/api/skills/"+b["id"].(string), "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	list = decodeList(t, s.do(http.MethodGet, "/api/skills", "", false))
	require.Len(t, list, 2)
	assert.EqualValues(t, 1, list[0]["order"])
	assert.EqualValues(t, 2, list[1]["order"])
}

func TestSwapErrors(t *testing.T) {
	s := newTestServer(t)
	a := s.create(t, "skills", `{"name":"Go"}`)

	rec := s.do(http.MethodPost, "/api/skills/swap-order", fmt.Sprintf(`{"skillId1":%q,"skillId2":%q}`, a["id"], a["id"]), true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/skills/swap-order", fmt.Sprintf(`{"skillId1":%q,"skillId2":"missing"}`, a["id"]), true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "second")

	rec = s.do(http.MethodPost, "/api/skills/swap-order", fmt.Sprintf(`{"testimonialId1":%q}`, a["id"]), true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMoveThroughPut(t *testing.T) {
	s := newTestServer(t)
	a := s.create(t, "skills", `{"name":"Go"}`)
	s.create(t, "skills", `{"name":"SQL"}`)

	rec := s.do(http.MethodPut, "/api/skills/"+a["id"].(string), `{"order":2,"shouldSwap":true}`, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPut, "/api/skills/"+a["id"].(string), `{"order":5,"shouldSwap":true}`, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/api/skills/positions", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(rec.Body.String()), fmt.Sprintf(`%q:2}`, a["id"])), rec.Body.String())
}

func TestListETag(t *testing.T) {
	s := newTestServer(t)
	s.create(t, "skills", `{"name":"Go"}`)

	first := s.do(http.MethodGet, "/api/skills", "", false)
	require.Equal(t, http.StatusOK, first.Code)
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/api/skills", nil)
	req.Header.Set("If-None-Match", etag)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)

	s.create(t, "skills", `{"name":"SQL"}`)
	req = httptest.NewRequest(http.MethodGet, "/api/skills", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, etag, rec.Header().Get("ETag"))
}

func TestTestimonialApprovalFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/testimonials/submit", `{"author":"visitor","content":"great","approved":true}`, false)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var pending map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pending))
	assert.Equal(t, false, pending["approved"])
	id := pending["id"].(string)

	assert.Empty(t, decodeList(t, s.do(http.MethodGet, "/api/testimonials", "", false)))
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/testimonials/"+id, "", false).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/testimonials/"+id, "", true).Code)

	rec = s.do(http.MethodPost, "/api/testimonials/"+id+"/approve", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeList(t, s.do(http.MethodGet, "/api/testimonials", "", false))
	require.Len(t, list, 1)
	assert.EqualValues(t, 1, list[0]["order"])

	rec = s.do(http.MethodPost, "/api/testimonials/"+id+"/unapprove", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeList(t, s.do(http.MethodGet, "/api/testimonials", "", false)))

	all := decodeList(t, s.do(http.MethodGet, "/api/testimonials/all", "", true))
	require.Len(t, all, 1)
	assert.EqualValues(t, 0, all[0]["order"])
}

func TestSubmitIsRateLimited(t *testing.T) {
	s := newTestServer(t)
	body := `{"name":"Ada","email":"ada@example.com","message":"hi"}`
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/contact", body, false).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, s.do(http.MethodPost, "/api/contact", body, false).Code)

	rec := s.do(http.MethodGet, "/api/contact", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeList(t, rec), 3)
}

func TestUploadAndServe(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "pixel.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.token)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var upload models.Upload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &upload))
	assert.Equal(t, "image/png", upload.ContentType)

	rec = s.do(http.MethodGet, "/files/"+upload.Key, "", false)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodDelete, "/api/uploads/"+upload.Key, "", true)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodGet, "/files/"+upload.Key, "", false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRealtimeStreamsEventsToAdmins(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/realtime"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	ws, _, err := websocket.DefaultDialer.Dial(url+"?token="+s.token, nil)
	require.NoError(t, err)
	defer ws.Close()
	require.NoError(t, ws.WriteJSON(Request{Type: "listen", Resources: []string{"skills"}}))

	// events published before the subscription is registered are dropped,
	// so keep producing until one arrives
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				s.do(http.MethodPost, "/api/skills", `{"name":"Go"}`, true)
			}
		}
	}()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var event portfolio.Event
	require.NoError(t, ws.ReadJSON(&event))
	assert.Equal(t, "skills", event.Resource)
	assert.Equal(t, portfolio.ActionCreate, event.Action)
	assert.Len(t, event.IDs, 1)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/healthz", "", false).Code)
}
