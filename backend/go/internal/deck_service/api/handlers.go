package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gobwas/glob"
	"github.com/gorilla/websocket"

	"slidecraft/backend/go/internal/deck_service/consumer"
	"slidecraft/backend/go/internal/deck_service/service"
	"slidecraft/backend/go/internal/models"
	"slidecraft/backend/go/pkg/chart"
	"slidecraft/backend/go/pkg/logger"
)

// HealthCheck probes one backing service.
type HealthCheck func(ctx context.Context) error

// API provides handlers for the deck service.
type API struct {
	service  *service.DeckService
	logger   *logger.Logger
	upgrader websocket.Upgrader
	origins  []glob.Glob
	checks   map[string]HealthCheck
}

// NewAPI creates a new API handler. allowedOrigins are glob patterns such
// as "http://localhost:*"; requests without an Origin header are accepted.
func NewAPI(svc *service.DeckService, logger *logger.Logger, allowedOrigins []string, checks map[string]HealthCheck) (*API, error) {
	a := &API{service: svc, logger: logger, checks: checks}
	for _, pattern := range allowedOrigins {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		a.origins = append(a.origins, g)
	}
	a.upgrader = websocket.Upgrader{CheckOrigin: a.checkOrigin}
	return a, nil
}

func (a *API) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, g := range a.origins {
		if g.Match(origin) {
			return true
		}
	}
	a.logger.WithField("origin", origin).Warn("WebSocket origin rejected")
	return false
}

// writeError maps service errors to status codes. Unexpected errors were
// already logged by the service layer.
func writeError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrExportUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

func (a *API) badRequest(c *gin.Context, err error) {
	a.logger.WithError(models.ErrorInfo{Message: err.Error()}).Warn("Invalid request payload")
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
}

// SubmitJobHandler creates a presentation and queues its generation job.
func (a *API) SubmitJobHandler(c *gin.Context) {
	var payload struct {
		Prompt    string   `json:"prompt"`
		Audiences []string `json:"audiences"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		a.badRequest(c, err)
		return
	}

	p, err := a.service.SubmitJob(c.Request.Context(), payload.Prompt, payload.Audiences)
	if err != nil {
		writeError(c, err, "Failed to submit job")
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobId": p.ID})
}

// EventsHandler streams a job's events as server-sent events, from the
// first entry, until the client goes away.
func (a *API) EventsHandler(c *gin.Context) {
	jobID := c.Param("jobId")
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	err := a.service.FollowEvents(c.Request.Context(), jobID, func(ev consumer.Event) error {
		c.SSEvent("message", ev.Message)
		c.Writer.Flush()
		return nil
	})
	if err != nil {
		a.logger.WithJob(jobID).WithError(models.ErrorInfo{Message: err.Error()}).Error("Event stream ended with error")
	}
}

// PushDummyHandler appends a payload to a job's stream. The payload is
// stored as its JSON text.
func (a *API) PushDummyHandler(c *gin.Context) {
	var payload struct {
		JobID   string          `json:"jobId"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		a.badRequest(c, err)
		return
	}
	var msg bytes.Buffer
	if err := json.Compact(&msg, payload.Payload); err != nil || msg.Len() == 0 {
		msg.Reset()
		msg.WriteString("null")
	}
	if _, err := a.service.PushEvent(c.Request.Context(), payload.JobID, msg.String()); err != nil {
		writeError(c, err, "Failed to push event")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// WebSocketHandler upgrades the connection and registers it as a watcher of
// the presentation until the client disconnects.
func (a *API) WebSocketHandler(c *gin.Context) {
	presentationID := c.Param("id")
	if _, err := a.service.GetPresentation(c.Request.Context(), presentationID); err != nil {
		writeError(c, err, "Failed to retrieve presentation")
		return
	}

	conn, err := a.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		a.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to upgrade WebSocket connection")
		return
	}

	unwatch := a.service.Watch(presentationID, conn)
	go func() {
		defer unwatch()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				break
			}
		}
	}()
}

// ListPresentationsHandler returns every presentation.
func (a *API) ListPresentationsHandler(c *gin.Context) {
	list, err := a.service.ListPresentations(c.Request.Context())
	if err != nil {
		writeError(c, err, "Failed to retrieve presentations")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (a *API) GetPresentationHandler(c *gin.Context) {
	p, err := a.service.GetPresentation(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "Failed to retrieve presentation")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (a *API) DeletePresentationHandler(c *gin.Context) {
	if err := a.service.DeletePresentation(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err, "Failed to delete presentation")
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateFromTemplateHandler creates a presentation from the sample layouts.
func (a *API) CreateFromTemplateHandler(c *gin.Context) {
	var payload struct {
		Prompt string `json:"prompt"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			a.badRequest(c, err)
			return
		}
	}
	p, slides, err := a.service.CreateFromTemplate(c.Request.Context(), payload.Prompt)
	if err != nil {
		writeError(c, err, "Failed to create presentation")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"presentation": p, "slides": slides})
}

func slideIndex(c *gin.Context) (int, bool) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil || i < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "slide index must be a non-negative integer"})
		return 0, false
	}
	return i, true
}

func (a *API) ListSlidesHandler(c *gin.Context) {
	slides, err := a.service.ListSlides(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "Failed to retrieve slides")
		return
	}
	c.JSON(http.StatusOK, slides)
}

func (a *API) AppendSlideHandler(c *gin.Context) {
	var in service.SlideInput
	if err := c.ShouldBindJSON(&in); err != nil {
		a.badRequest(c, err)
		return
	}
	slide, err := a.service.AppendSlide(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		writeError(c, err, "Failed to append slide")
		return
	}
	c.JSON(http.StatusCreated, slide)
}

func (a *API) UpdateSlideHandler(c *gin.Context) {
	index, ok := slideIndex(c)
	if !ok {
		return
	}
	var in service.SlideInput
	if err := c.ShouldBindJSON(&in); err != nil {
		a.badRequest(c, err)
		return
	}
	slide, err := a.service.UpdateSlide(c.Request.Context(), c.Param("id"), index, in)
	if err != nil {
		writeError(c, err, "Failed to update slide")
		return
	}
	c.JSON(http.StatusOK, slide)
}

func (a *API) DeleteSlideHandler(c *gin.Context) {
	index, ok := slideIndex(c)
	if !ok {
		return
	}
	if err := a.service.DeleteSlide(c.Request.Context(), c.Param("id"), index); err != nil {
		writeError(c, err, "Failed to delete slide")
		return
	}
	c.Status(http.StatusNoContent)
}

// RenderSlideHandler composes a slide. format=html returns a standalone
// fragment, anything else the composition as JSON.
func (a *API) RenderSlideHandler(c *gin.Context) {
	index, ok := slideIndex(c)
	if !ok {
		return
	}
	width, _ := strconv.Atoi(c.DefaultQuery("width", "0"))
	comp, err := a.service.RenderSlide(c.Request.Context(), c.Param("id"), index, width)
	if err != nil {
		writeError(c, err, "Failed to render slide")
		return
	}
	if strings.EqualFold(c.Query("format"), "html") {
		page, err := comp.HTML()
		if err != nil {
			a.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to render slide html")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render slide"})
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
		return
	}
	c.JSON(http.StatusOK, comp)
}

func (a *API) ExportHandler(c *gin.Context) {
	res, err := a.service.Export(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "Failed to export presentation")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (a *API) ListChartsHandler(c *gin.Context) {
	charts, err := a.service.ListCharts(c.Request.Context())
	if err != nil {
		writeError(c, err, "Failed to retrieve charts")
		return
	}
	c.JSON(http.StatusOK, charts)
}

func (a *API) GetChartHandler(c *gin.Context) {
	chart, err := a.service.GetChart(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "Failed to retrieve chart")
		return
	}
	c.JSON(http.StatusOK, chart)
}

func (a *API) CreateChartHandler(c *gin.Context) {
	var chart models.Chart
	if err := c.ShouldBindJSON(&chart); err != nil {
		a.badRequest(c, err)
		return
	}
	if err := a.service.CreateChart(c.Request.Context(), &chart); err != nil {
		writeError(c, err, "Failed to create chart")
		return
	}
	c.JSON(http.StatusCreated, chart)
}

func (a *API) DeleteChartHandler(c *gin.Context) {
	if err := a.service.DeleteChart(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err, "Failed to delete chart")
		return
	}
	c.Status(http.StatusNoContent)
}

// RenderChartHandler draws a chart document. format=svg returns the image,
// anything else the scene as JSON with the SVG inlined. A request carrying
// an interaction also reports what the replay did.
func (a *API) RenderChartHandler(c *gin.Context) {
	var req service.ChartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.badRequest(c, err)
		return
	}
	var (
		scene  *chart.Scene
		result *chart.InteractionResult
		err    error
	)
	if req.Interaction.Empty() {
		scene, err = a.service.RenderChart(c.Request.Context(), req)
	} else {
		var res chart.InteractionResult
		scene, res, err = a.service.InteractChart(c.Request.Context(), req)
		result = &res
	}
	status := http.StatusOK
	if err != nil {
		status = http.StatusUnprocessableEntity
	}
	svg := scene.SVG()
	if strings.EqualFold(c.Query("format"), "svg") {
		c.Data(status, "image/svg+xml", []byte(svg))
		return
	}
	body := gin.H{"scene": scene, "svg": svg}
	if result != nil {
		body["interaction"] = result
	}
	c.JSON(status, body)
}

func (a *API) ListTextComponentsHandler(c *gin.Context) {
	list, err := a.service.ListTextComponents(c.Request.Context())
	if err != nil {
		writeError(c, err, "Failed to retrieve text components")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (a *API) GetTextComponentHandler(c *gin.Context) {
	tc, err := a.service.GetTextComponent(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "Failed to retrieve text component")
		return
	}
	c.JSON(http.StatusOK, tc)
}

func (a *API) CreateTextComponentHandler(c *gin.Context) {
	var tc models.TextComponent
	if err := c.ShouldBindJSON(&tc); err != nil {
		a.badRequest(c, err)
		return
	}
	if err := a.service.CreateTextComponent(c.Request.Context(), &tc); err != nil {
		writeError(c, err, "Failed to create text component")
		return
	}
	c.JSON(http.StatusCreated, tc)
}

func (a *API) DeleteTextComponentHandler(c *gin.Context) {
	if err := a.service.DeleteTextComponent(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err, "Failed to delete text component")
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) ListDatasetsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"datasets": a.service.Datasets()})
}

// UploadWorkbookHandler imports the sheets of a multipart "file" upload.
func (a *API) UploadWorkbookHandler(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		a.badRequest(c, err)
		return
	}
	f, err := fh.Open()
	if err != nil {
		a.badRequest(c, err)
		return
	}
	defer f.Close()

	ids, err := a.service.ImportWorkbook(f)
	if err != nil {
		writeError(c, err, "Failed to import workbook")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"datasets": ids})
}

// HealthHandler runs every health check with a short deadline.
func (a *API) HealthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	results := gin.H{}
	for name, check := range a.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}
	c.JSON(status, gin.H{"status": http.StatusText(status), "checks": results})
}
