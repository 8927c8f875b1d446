package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"slidecraft/backend/go/internal/deck_service/consumer"
	"slidecraft/backend/go/internal/deck_service/service"
	"slidecraft/backend/go/internal/deck_service/store"
	"slidecraft/backend/go/internal/models"
	"slidecraft/backend/go/internal/templates"
	"slidecraft/backend/go/pkg/httpmiddleware"
	"slidecraft/backend/go/pkg/logger"
	"slidecraft/backend/go/pkg/ratelimiter"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	svc    *service.DeckService
	store  *store.MemoryStore
}

func newTestServer(t *testing.T, mw Middleware, checks map[string]HealthCheck) *testServer {
	t.Helper()
	st := store.NewMemoryStore()
	_, err := templates.Seed(context.Background(), st)
	require.NoError(t, err)

	svc := service.NewDeckService(service.Deps{
		Store:   st,
		Stream:  consumer.NewMemoryStream(20 * time.Millisecond),
		Logger:  logger.Discard(),
		Options: service.Options{AdaptiveLayout: true},
	})
	t.Cleanup(svc.Close)

	a, err := NewAPI(svc, logger.Discard(), []string{"http://localhost:*"}, checks)
	require.NoError(t, err)
	router := gin.New()
	RegisterRoutes(router, a, mw)
	return &testServer{router: router, svc: svc, store: st}
}

func (s *testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestSubmitJobHandler(t *testing.T) {
	s := newTestServer(t, Middleware{}, nil)

	w := s.do(http.MethodPost, "/api/jobs", map[string]interface{}{"prompt": "Sales deck", "audiences": []string{"board"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		JobID string `json:"jobId"`
	}
	decode(t, w, &resp)
	assert.NotEmpty(t, resp.JobID)

	w = s.do(http.MethodGet, "/api/presentations/"+resp.JobID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/jobs", "{not json").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/jobs", map[string]string{"prompt": " "}).Code)
}

func TestPushDummyAndEvents(t *testing.T) {
	s := newTestServer(t, Middleware{}, nil)

	w := s.do(http.MethodPost, "/api/pushDummy", `{"jobId":"job-7","payload":{"step": 1}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/pushDummy", `{"jobId":"job-7","payload":"<SlideIdeas/>"}`).Code)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/events/job-7", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	body := rec.Body.String()
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, body, "event:message\ndata:{\"step\":1}\n\n")
	assert.Contains(t, body, `data:"<SlideIdeas/>"`)
}

func TestPushDummy_MissingJob(t *testing.T) {
	s := newTestServer(t, Middleware{}, nil)
	w := s.do(http.MethodPost, "/api/pushDummy", `{"payload":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTemplateDeckRoutes(t *testing.T) {
	s := newTestServer(t, Middleware{}, nil)

	w := s.do(http.MethodPost, "/api/presentations/template", map[string]string{"prompt": "Demo"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Presentation models.Presentation `json:"presentation"`
		Slides       []models.Slide      `json:"slides"`
	}
	decode(t, w, &created)
	id := created.Presentation.ID
	require.Len(t, created.Slides, 5)

	w = s.do(http.MethodGet, "/api/presentations/"+id+"/slides/0/render?format=html", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), `data-slide-id="title-slide"`)

	w = s.do(http.MethodGet, "/api/presentations/"+id+"/slides/1/render?width=1200", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var comp struct {
		SlideID  string        `json:"slideId"`
		Elements []interface{} `json:"elements"`
	}
	decode(t, w, &comp)
	assert.Equal(t, "performance-slide", comp.SlideID)
	assert.NotEmpty(t, comp.Elements)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/presentations/"+id+"/slides/x/render", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/presentations/"+id+"/slides/9/render", nil).Code)

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/api/presentations/"+id+"/slides/0", nil).Code)
	w = s.do(http.MethodGet, "/api/presentations/"+id+"/slides", nil)
	var slides []models.Slide
	decode(t, w, &slides)
	assert.Len(t, slides, 4)

	// export needs an object store
	assert.Equal(t, http.StatusServiceUnavailable, s.do(http.MethodPost, "/api/presentations/"+id+"/export", nil).Code)

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/api/presentations/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/presentations/"+id, nil).Code)
}

func TestChartRoutes(t *testing.T) {
	s := newTestServer(t, Middleware{}, nil)

	w := s.do(http.MethodGet, "/api/charts", nil)
	var charts []models.Chart
	decode(t, w, &charts)
	assert.Len(t, charts, 3)

	w = s.do(http.MethodPost, "/api/charts", map[string]string{"xml": "<broken"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	doc := `<ChartDefinition><ChartConfig type="pie" title="Share"/></ChartDefinition>`
	w = s.do(http.MethodPost, "/api/charts", map[string]string{"id": "share", "xml": doc})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/charts/share", nil).Code)

	w = s.do(http.MethodPost, "/api/charts/render?format=svg", map[string]interface{}{"xml": doc, "width": 300, "height": 200})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "<svg"))

	w = s.do(http.MethodPost, "/api/charts/render", map[string]string{"xml": "nope"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"svg"`)

	w = s.do(http.MethodPost, "/api/charts/render", map[string]interface{}{
		"xml":         doc,
		"interaction": map[string]interface{}{"hover": map[string]interface{}{"mark": 0, "x": 10, "y": 10}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"interaction":{"ticks":0,"hovered":true}`)
	assert.Contains(t, w.Body.String(), `class=\"tooltip\"`)

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/api/charts/share", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, "/api/charts/share", nil).Code)
}

func TestTextComponentRoutes(t *testing.T) {
	s := newTestServer(t, Middleware{}, nil)
	w := s.do(http.MethodGet, "/api/text-components/title-main", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/api/text-components", map[string]string{"id": "x", "xml": "<TextComponent><Content><Text>x</Text></Content></TextComponent>"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/api/text-components/x", nil).Code)
}

func TestUploadWorkbook(t *testing.T) {
	s := newTestServer(t, Middleware{}, nil)

	wb := excelize.NewFile()
	defer wb.Close()
	require.NoError(t, wb.SetSheetName("Sheet1", "headcount"))
	require.NoError(t, wb.SetSheetRow("headcount", "A1", &[]interface{}{"team", "people"}))
	require.NoError(t, wb.SetSheetRow("headcount", "A2", &[]interface{}{"Sales", 12}))
	xlsx, err := wb.WriteToBuffer()
	require.NoError(t, err)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "headcount.xlsx")
	require.NoError(t, err)
	_, err = part.Write(xlsx.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/datasets", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/datasets", nil)
	assert.Contains(t, w.Body.String(), "headcount")
	assert.Contains(t, w.Body.String(), "world-gdp-data")

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/datasets", nil).Code)
}

func TestRateLimitedJobs(t *testing.T) {
	limiter, err := ratelimiter.NewPerKey(ratelimiter.Settings{
		Algorithm: ratelimiter.AlgorithmFixedWindow, Limit: 1, Window: time.Minute,
	}, time.Minute)
	require.NoError(t, err)
	s := newTestServer(t, Middleware{RateLimit: httpmiddleware.RateLimit(limiter, nil)}, nil)

	body := map[string]string{"prompt": "deck"}
	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/jobs", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, s.do(http.MethodPost, "/api/jobs", body).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/presentations", nil).Code)
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t, Middleware{}, map[string]HealthCheck{
		"redis": func(context.Context) error { return nil },
	})
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/healthz", nil).Code)

	s = newTestServer(t, Middleware{}, map[string]HealthCheck{
		"mongodb": func(context.Context) error { return errors.New("no reachable servers") },
	})
	w := s.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "no reachable servers")
}

func TestWebSocket(t *testing.T) {
	s := newTestServer(t, Middleware{}, nil)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	p, err := s.svc.SubmitJob(context.Background(), "live deck", nil)
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/presentations/" + p.ID

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"https://evil.example"}})
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"http://localhost:3000"}})
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.svc.Watchers(p.ID) == 1 }, time.Second, 10*time.Millisecond)
	_, err = s.svc.PushEvent(context.Background(), p.ID,
		`<SlideIdeas><SlideIdea><SlideId>a</SlideId><Title>A</Title></SlideIdea></SlideIdeas>`)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var change models.Change
	require.NoError(t, conn.ReadJSON(&change))
	assert.Equal(t, models.ChangeSlidesReplaced, change.Kind)
	assert.Equal(t, []string{"a"}, change.SlideIDs)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return s.svc.Watchers(p.ID) == 0 }, time.Second, 10*time.Millisecond)

	_, resp, err = websocket.DefaultDialer.Dial(strings.TrimSuffix(url, p.ID)+"missing", nil)
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	}
}
