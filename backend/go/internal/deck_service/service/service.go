package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"slidecraft/backend/go/internal/deck_service/consumer"
	"slidecraft/backend/go/internal/deck_service/reconcile"
	"slidecraft/backend/go/internal/deck_service/store"
	"slidecraft/backend/go/internal/models"
	"slidecraft/backend/go/internal/templates"
	"slidecraft/backend/go/pkg/cache"
	"slidecraft/backend/go/pkg/chart"
	"slidecraft/backend/go/pkg/logger"
	"slidecraft/backend/go/pkg/slidelayout"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("invalid input")
	// ErrExportUnavailable is returned when no object store is configured.
	ErrExportUnavailable = errors.New("export is not configured")
)

// JobPublisher hands submitted jobs to the generation workers.
type JobPublisher interface {
	PublishJob(ctx context.Context, req models.JobRequest) error
}

// Options tune rendering and export.
type Options struct {
	Viewport       int
	AdaptiveLayout bool
	ExportBucket   string
}

// Deps are the collaborators of a DeckService. Jobs and Objects may be nil.
type Deps struct {
	Store     store.Store
	Stream    consumer.Source
	Jobs      JobPublisher
	Objects   ObjectStore
	Catalog   *templates.Catalog
	DebugSink reconcile.DebugSink
	Logger    *logger.Logger
	Options   Options
}

type session struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// DeckService provides the business logic behind the HTTP API: job
// submission, live reconciliation of job streams, rendering and export.
type DeckService struct {
	store       store.Store
	stream      consumer.Source
	follower    *consumer.StreamConsumer
	jobs        JobPublisher
	objects     ObjectStore
	catalog     *templates.Catalog
	reconciler  *reconcile.Reconciler
	connManager *ConnectionManager
	logger      *logger.Logger
	opts        Options
	now         func() time.Time
	scenes      *cache.LRU[sceneKey, *chart.Scene]

	baseCtx    context.Context
	stop       context.CancelFunc
	sessionsMu sync.Mutex
	sessions   map[string]*session
}

// NewDeckService wires a DeckService.
func NewDeckService(d Deps) *DeckService {
	if d.Options.Viewport <= 0 {
		d.Options.Viewport = slidelayout.DefaultViewport
	}
	if d.Logger == nil {
		d.Logger = logger.Discard()
	}
	if d.Catalog == nil {
		cat, err := templates.NewCatalog()
		if err != nil {
			d.Logger.WithError(errorInfo(err)).Warn("Failed to load embedded datasets")
			cat = templates.EmptyCatalog()
		}
		d.Catalog = cat
	}
	scenes, _ := cache.New[sceneKey, *chart.Scene](cache.Options{Capacity: sceneCacheSize, TTL: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	return &DeckService{
		store:       d.Store,
		stream:      d.Stream,
		follower:    consumer.NewStreamConsumer(d.Stream, d.Logger),
		jobs:        d.Jobs,
		objects:     d.Objects,
		catalog:     d.Catalog,
		reconciler:  reconcile.New(d.Store, d.DebugSink, d.Logger),
		connManager: NewConnectionManager(),
		logger:      d.Logger,
		opts:        d.Options,
		now:         func() time.Time { return time.Now().UTC() },
		scenes:      scenes,
		baseCtx:     ctx,
		stop:        cancel,
		sessions:    make(map[string]*session),
	}
}

// Close stops every live session and waits for them to finish.
func (s *DeckService) Close() {
	s.stop()
	s.sessionsMu.Lock()
	running := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		running = append(running, sess)
	}
	s.sessionsMu.Unlock()
	for _, sess := range running {
		<-sess.done
	}
}

// SubmitJob creates the presentation for a new job and publishes the job
// request. The presentation id is the job id.
func (s *DeckService) SubmitJob(ctx context.Context, prompt string, audiences []string) (*models.Presentation, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrInvalidInput)
	}
	p := &models.Presentation{
		ID:        uuid.New().String(),
		Prompt:    prompt,
		Audiences: cleanAudiences(audiences),
		CreatedAt: s.now(),
	}
	log := s.logger.WithJob(p.ID)

	if err := s.store.CreatePresentation(ctx, p); err != nil {
		log.WithError(errorInfo(err)).Error("Failed to create presentation in store")
		return nil, err
	}

	if s.jobs != nil {
		req := models.JobRequest{JobID: p.ID, Prompt: p.Prompt, Audiences: p.Audiences, SubmittedAt: p.CreatedAt}
		if err := s.jobs.PublishJob(ctx, req); err != nil {
			log.WithError(errorInfo(err)).Error("Failed to publish job request")
			if derr := s.store.DeletePresentation(context.WithoutCancel(ctx), p.ID); derr != nil {
				log.WithError(errorInfo(derr)).Error("Failed to roll back presentation")
			}
			return nil, err
		}
	}
	log.WithPayload(map[string]interface{}{"audiences": p.Audiences}).Info("Job submitted")
	return p, nil
}

func cleanAudiences(in []string) []string {
	out := make([]string, 0, len(in))
	for _, a := range in {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// PushEvent appends a raw message to a job's event stream.
func (s *DeckService) PushEvent(ctx context.Context, jobID, message string) (string, error) {
	if strings.TrimSpace(jobID) == "" {
		return "", fmt.Errorf("%w: jobId is required", ErrInvalidInput)
	}
	id, err := s.stream.Append(ctx, jobID, message)
	if err != nil {
		s.logger.WithJob(jobID).WithError(errorInfo(err)).Error("Failed to push event")
		return "", err
	}
	return id, nil
}

// FollowEvents passes every entry of a job's stream to fn until ctx ends.
func (s *DeckService) FollowEvents(ctx context.Context, jobID string, fn func(consumer.Event) error) error {
	return s.follower.Follow(ctx, jobID, fn)
}

// RunSession reconciles a job's stream into the store until ctx ends.
// Each run starts a fresh session, so the slug map is rebuilt from the
// stream's own ideas messages. Store failures are logged and the session
// goes on with the next message.
func (s *DeckService) RunSession(ctx context.Context, presentationID string, notify func(models.Change)) error {
	sess := reconcile.NewSession(presentationID)
	log := s.logger.WithJob(presentationID)
	log.Info("Reconcile session started")
	defer log.Info("Reconcile session stopped")

	return s.follower.Follow(ctx, presentationID, func(ev consumer.Event) error {
		change, err := s.reconciler.Handle(ctx, sess, ev.Message)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.WithError(errorInfo(err)).WithPayload(map[string]interface{}{"eventId": ev.ID}).Error("Failed to apply stream message")
			return nil
		}
		if change != nil && notify != nil {
			notify(*change)
		}
		return nil
	})
}

// Watch registers a live connection for a presentation. The first watcher
// starts a reconcile session whose changes are broadcast to all watchers;
// the returned function unregisters and stops the session with the last one.
func (s *DeckService) Watch(presentationID string, conn Conn) func() {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()

	if s.connManager.Add(presentationID, conn) {
		ctx, cancel := context.WithCancel(s.baseCtx)
		sess := &session{cancel: cancel, done: make(chan struct{})}
		s.sessions[presentationID] = sess
		go func() {
			defer close(sess.done)
			err := s.RunSession(ctx, presentationID, func(ch models.Change) {
				s.connManager.Broadcast(presentationID, ch)
			})
			if err != nil {
				s.logger.WithJob(presentationID).WithError(errorInfo(err)).Error("Reconcile session failed")
			}
		}()
	}
	s.logger.WithJob(presentationID).WithPayload(map[string]interface{}{"watchers": s.connManager.Count(presentationID)}).Info("WebSocket connection added")

	var once sync.Once
	return func() {
		once.Do(func() {
			s.sessionsMu.Lock()
			defer s.sessionsMu.Unlock()
			if s.connManager.Remove(presentationID, conn) {
				if sess, ok := s.sessions[presentationID]; ok {
					sess.cancel()
					delete(s.sessions, presentationID)
				}
			}
			s.logger.WithJob(presentationID).Info("WebSocket connection removed")
		})
	}
}

// Watchers returns the number of live connections of a presentation.
func (s *DeckService) Watchers(presentationID string) int {
	return s.connManager.Count(presentationID)
}

// ListPresentations returns all presentations, newest first.
func (s *DeckService) ListPresentations(ctx context.Context) ([]*models.Presentation, error) {
	return s.store.ListPresentations(ctx)
}

// GetPresentation returns a presentation or ErrNotFound.
func (s *DeckService) GetPresentation(ctx context.Context, id string) (*models.Presentation, error) {
	p, err := s.store.GetPresentation(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

// DeletePresentation removes a presentation with its slides.
func (s *DeckService) DeletePresentation(ctx context.Context, id string) error {
	if _, err := s.GetPresentation(ctx, id); err != nil {
		return err
	}
	return s.store.DeletePresentation(ctx, id)
}

// CreateFromTemplate creates a presentation whose slides are the sample
// deck layouts, without submitting a job.
func (s *DeckService) CreateFromTemplate(ctx context.Context, prompt string) (*models.Presentation, []*models.Slide, error) {
	layouts, err := templates.Layouts()
	if err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(prompt) == "" {
		prompt = "Sample deck"
	}
	p := &models.Presentation{ID: uuid.New().String(), Prompt: prompt, Audiences: []string{}, CreatedAt: s.now()}
	if err := s.store.CreatePresentation(ctx, p); err != nil {
		return nil, nil, err
	}
	slides := make([]*models.Slide, len(layouts))
	for i, doc := range layouts {
		slideID := fmt.Sprintf("slide-%d", i+1)
		if l, err := slidelayout.Parse(doc); err == nil && l.ID != "" {
			slideID = l.ID
		}
		slides[i] = &models.Slide{ID: uuid.New().String(), PresentationID: p.ID, SlideID: slideID, XML: &doc, UpdatedAt: p.CreatedAt}
	}
	if err := s.store.AppendSlides(ctx, slides); err != nil {
		return nil, nil, err
	}
	return p, slides, nil
}

// ListSlides returns a presentation's slides in order.
func (s *DeckService) ListSlides(ctx context.Context, presentationID string) ([]*models.Slide, error) {
	if _, err := s.GetPresentation(ctx, presentationID); err != nil {
		return nil, err
	}
	return s.store.ListSlides(ctx, presentationID)
}

// SlideInput is the editable part of a slide.
type SlideInput struct {
	SlideID string           `json:"slideId"`
	XML     *string          `json:"xml"`
	Notes   models.SlideNote `json:"notes"`
}

// AppendSlide adds a slide after the last one.
func (s *DeckService) AppendSlide(ctx context.Context, presentationID string, in SlideInput) (*models.Slide, error) {
	if _, err := s.GetPresentation(ctx, presentationID); err != nil {
		return nil, err
	}
	slide := &models.Slide{
		ID:             uuid.New().String(),
		PresentationID: presentationID,
		SlideID:        strings.TrimSpace(in.SlideID),
		XML:            in.XML,
		Notes:          in.Notes,
		UpdatedAt:      s.now(),
	}
	if slide.SlideID == "" {
		slide.SlideID = reconcile.Slugify(in.Notes.Title)
	}
	if slide.SlideID == "" {
		slide.SlideID = slide.ID
	}
	if err := s.store.AppendSlide(ctx, slide); err != nil {
		return nil, err
	}
	return slide, nil
}

// SlideAt returns the slide at a zero based index.
func (s *DeckService) SlideAt(ctx context.Context, presentationID string, index int) (*models.Slide, error) {
	slides, err := s.ListSlides(ctx, presentationID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(slides) {
		return nil, ErrNotFound
	}
	return slides[index], nil
}

// UpdateSlide replaces the content of the slide at index.
func (s *DeckService) UpdateSlide(ctx context.Context, presentationID string, index int, in SlideInput) (*models.Slide, error) {
	slide, err := s.SlideAt(ctx, presentationID, index)
	if err != nil {
		return nil, err
	}
	if id := strings.TrimSpace(in.SlideID); id != "" {
		slide.SlideID = id
	}
	slide.XML = in.XML
	slide.Notes = in.Notes
	slide.UpdatedAt = s.now()
	if err := s.store.UpdateSlide(ctx, slide); err != nil {
		return nil, mapNotFound(err)
	}
	return slide, nil
}

// DeleteSlide removes the slide at index; later slides move up.
func (s *DeckService) DeleteSlide(ctx context.Context, presentationID string, index int) error {
	slide, err := s.SlideAt(ctx, presentationID, index)
	if err != nil {
		return err
	}
	return mapNotFound(s.store.DeleteSlide(ctx, slide.ID))
}

// ListCharts returns the stored chart definitions.
func (s *DeckService) ListCharts(ctx context.Context) ([]*models.Chart, error) {
	return s.store.ListCharts(ctx)
}

// GetChart returns a chart or ErrNotFound.
func (s *DeckService) GetChart(ctx context.Context, id string) (*models.Chart, error) {
	c, err := s.store.GetChart(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

// CreateChart validates and stores a chart definition. The type and name
// default to what the document declares.
func (s *DeckService) CreateChart(ctx context.Context, c *models.Chart) error {
	cfg, err := chart.ParseDefinition(c.XML)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	c.ID = firstNonEmpty(c.ID, cfg.ID, uuid.New().String())
	c.Type = firstNonEmpty(c.Type, cfg.TypeName)
	c.Name = firstNonEmpty(c.Name, cfg.Title, c.ID)
	c.CreatedAt = s.now()
	return s.store.CreateChart(ctx, c)
}

// DeleteChart removes a chart definition.
func (s *DeckService) DeleteChart(ctx context.Context, id string) error {
	if _, err := s.GetChart(ctx, id); err != nil {
		return err
	}
	return mapNotFound(s.store.DeleteChart(ctx, id))
}

// ListTextComponents returns the stored text components.
func (s *DeckService) ListTextComponents(ctx context.Context) ([]*models.TextComponent, error) {
	return s.store.ListTextComponents(ctx)
}

// GetTextComponent returns a text component or ErrNotFound.
func (s *DeckService) GetTextComponent(ctx context.Context, id string) (*models.TextComponent, error) {
	t, err := s.store.GetTextComponent(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrNotFound
	}
	return t, nil
}

// CreateTextComponent validates and stores a text component.
func (s *DeckService) CreateTextComponent(ctx context.Context, t *models.TextComponent) error {
	if _, err := slidelayout.ParseTextComponent(t.XML); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	t.ID = firstNonEmpty(t.ID, uuid.New().String())
	t.Name = firstNonEmpty(t.Name, t.ID)
	t.CreatedAt = s.now()
	return s.store.CreateTextComponent(ctx, t)
}

// DeleteTextComponent removes a text component.
func (s *DeckService) DeleteTextComponent(ctx context.Context, id string) error {
	if _, err := s.GetTextComponent(ctx, id); err != nil {
		return err
	}
	return mapNotFound(s.store.DeleteTextComponent(ctx, id))
}

// Datasets lists the ids charts can use as external data sources.
func (s *DeckService) Datasets() []string {
	return s.catalog.IDs()
}

// ImportWorkbook adds the sheets of an uploaded workbook to the dataset
// catalog and returns the imported ids.
func (s *DeckService) ImportWorkbook(r io.Reader) ([]string, error) {
	sets, err := templates.ReadWorkbook(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	s.catalog.Merge(sets)
	ids := make([]string, 0, len(sets))
	for id := range sets {
		ids = append(ids, id)
	}
	s.logger.WithPayload(map[string]interface{}{"datasets": ids}).Info("Workbook imported")
	return ids, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func errorInfo(err error) models.ErrorInfo {
	return models.ErrorInfo{Message: err.Error()}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func htmlEscape(s string) string { return html.EscapeString(s) }

func objectSlug(slideID string) string {
	if slug := reconcile.Slugify(slideID); slug != "" {
		return slug
	}
	return "slide"
}
