package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"slidecraft/backend/go/internal/models"
	"slidecraft/backend/go/pkg/logger"
)

// SlideWriter is the part of the persisted store the reconciler mutates.
type SlideWriter interface {
	// ReplaceSlides deletes every slide of the presentation and inserts slides.
	ReplaceSlides(ctx context.Context, presentationID string, slides []*models.Slide) error
	// UpdateSlideXML patches the xml of one slide and reports whether it exists.
	UpdateSlideXML(ctx context.Context, presentationID, slideID, xml string) (bool, error)
}

// DebugSink receives payloads that are neither slide ideas nor slide content.
type DebugSink interface {
	PublishDebug(ctx context.Context, ev models.DebugEvent) error
}

const maxDebugEvents = 200

// Session is the state of one stream connection. It is reset, by creating a
// new one, whenever a client reconnects.
type Session struct {
	PresentationID string

	resolver *Resolver
	debug    []models.DebugEvent
	handled  int
}

func NewSession(presentationID string) *Session {
	return &Session{PresentationID: presentationID, resolver: NewResolver()}
}

// Resolver exposes the session's slug map.
func (s *Session) Resolver() *Resolver { return s.resolver }

// Handled counts the messages processed in this session.
func (s *Session) Handled() int { return s.handled }

// DebugEvents returns the most recent side channel events.
func (s *Session) DebugEvents() []models.DebugEvent {
	return append([]models.DebugEvent(nil), s.debug...)
}

func (s *Session) addDebug(ev models.DebugEvent) {
	s.debug = append(s.debug, ev)
	if over := len(s.debug) - maxDebugEvents; over > 0 {
		s.debug = append(s.debug[:0], s.debug[over:]...)
	}
}

type presentationLock struct {
	mu   sync.Mutex
	refs int
}

// Reconciler applies stream payloads to the persisted slides.
type Reconciler struct {
	store  SlideWriter
	sink   DebugSink
	logger *logger.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*presentationLock
}

// New builds a reconciler. sink may be nil, in which case debug events are
// only logged.
func New(store SlideWriter, sink DebugSink, log *logger.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		sink:   sink,
		logger: log,
		now:    time.Now,
		locks:  map[string]*presentationLock{},
	}
}

// lock serialises mutations per presentation.
func (r *Reconciler) lock(id string) func() {
	r.mu.Lock()
	l, ok := r.locks[id]
	if !ok {
		l = &presentationLock{}
		r.locks[id] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		r.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(r.locks, id)
		}
		r.mu.Unlock()
	}
}

// Handle applies one payload. Malformed payloads are logged and yield a nil
// change; only store failures are returned. Once ctx is cancelled no new
// message is started, but writes already under way run to completion.
func (r *Reconciler) Handle(ctx context.Context, s *Session, payload string) (*models.Change, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	unlock := r.lock(s.PresentationID)
	defer unlock()

	s.handled++
	writeCtx := context.WithoutCancel(ctx)
	log := r.logger.WithJob(s.PresentationID)

	doc := Normalize(payload)
	switch class := Classify(doc); class {
	case ClassIdeas:
		return r.applyIdeas(writeCtx, s, doc, log)
	case ClassContent:
		return r.applyContent(writeCtx, s, doc, log)
	case ClassOther:
		return r.recordDebug(writeCtx, s, payload, log), nil
	default:
		panic(fmt.Sprintf("reconcile: unhandled payload class %v", class))
	}
}

func (r *Reconciler) applyIdeas(ctx context.Context, s *Session, doc string, log *logger.Logger) (*models.Change, error) {
	ideas, err := ParseIdeas(doc)
	if err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error(), Type: "parse_error"}).Error("Failed to parse slide ideas")
		return nil, nil
	}

	s.resolver.Reset()
	now := r.now()
	slides := make([]*models.Slide, len(ideas))
	ids := make([]string, len(ideas))
	used := make(map[string]struct{}, len(ideas))
	for i, idea := range ideas {
		id := idea.SlideID
		if id == "" {
			id = Slugify(idea.Title)
		}
		if id == "" {
			id = fmt.Sprintf("slide-%d", i+1)
		}
		id = uniqueSlideID(id, used)
		s.resolver.Add(idea.Title, id)
		ids[i] = id
		slides[i] = &models.Slide{
			ID:             uuid.New().String(),
			PresentationID: s.PresentationID,
			Index:          i,
			SlideID:        id,
			Notes: models.SlideNote{
				Title:              idea.Title,
				ContentDescription: idea.ContentDescription,
				DataInsights:       idea.DataInsights,
			},
			UpdatedAt: now,
		}
	}

	if err := r.store.ReplaceSlides(ctx, s.PresentationID, slides); err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error(), Type: "database_error"}).Error("Failed to replace slides")
		return nil, fmt.Errorf("replace slides of %s: %w", s.PresentationID, err)
	}
	log.WithPayload(map[string]interface{}{"slides": len(slides)}).Info("Slides replaced from slide ideas")
	return &models.Change{PresentationID: s.PresentationID, Kind: models.ChangeSlidesReplaced, SlideIDs: ids, At: now}, nil
}

// uniqueSlideID suffixes id with -2, -3, ... until it is not in used, and records it.
func uniqueSlideID(id string, used map[string]struct{}) string {
	candidate := id
	for n := 2; ; n++ {
		if _, ok := used[candidate]; !ok {
			break
		}
		candidate = fmt.Sprintf("%s-%d", id, n)
	}
	used[candidate] = struct{}{}
	return candidate
}

func (r *Reconciler) applyContent(ctx context.Context, s *Session, doc string, log *logger.Logger) (*models.Change, error) {
	parsed, err := ParseSlides(doc)
	if err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error(), Type: "parse_error"}).Error("Failed to parse slide content")
		return nil, nil
	}

	change := &models.Change{PresentationID: s.PresentationID, Kind: models.ChangeSlideUpdated, At: r.now()}
	for _, p := range parsed {
		res := s.resolver.Resolve(p.Ref)
		switch res.Match {
		case MatchNone:
			log.WithPayload(map[string]interface{}{"ref": p.Ref}).Warn("No slide matches content reference, update skipped")
			change.Skipped = append(change.Skipped, p.Ref)
			continue
		case MatchFuzzy:
			log.WithPayload(map[string]interface{}{"ref": p.Ref, "slug": res.Slug, "slideId": res.SlideID}).
				Warn("Slide reference resolved by substring match")
		}

		found, err := r.store.UpdateSlideXML(ctx, s.PresentationID, res.SlideID, p.XML)
		if err != nil {
			log.WithError(models.ErrorInfo{Message: err.Error(), Type: "database_error"}).
				WithPayload(map[string]interface{}{"slideId": res.SlideID}).Error("Failed to update slide xml")
			return change, fmt.Errorf("update slide %s of %s: %w", res.SlideID, s.PresentationID, err)
		}
		if !found {
			log.WithPayload(map[string]interface{}{"ref": p.Ref, "slideId": res.SlideID}).Warn("Resolved slide has no record, update skipped")
			change.Skipped = append(change.Skipped, p.Ref)
			continue
		}
		change.SlideIDs = append(change.SlideIDs, res.SlideID)
	}
	return change, nil
}

func (r *Reconciler) recordDebug(ctx context.Context, s *Session, payload string, log *logger.Logger) *models.Change {
	now := r.now()
	ev := models.DebugEvent{PresentationID: s.PresentationID, ReceivedAt: now}
	raw := strings.TrimSpace(payload)
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		ev.JSON = v
	} else {
		ev.Raw = raw
	}
	s.addDebug(ev)

	if r.sink == nil {
		log.WithPayload(map[string]interface{}{"event": ev}).Debug("Debug event")
	} else if err := r.sink.PublishDebug(ctx, ev); err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error()}).Warn("Failed to publish debug event")
	}
	return &models.Change{PresentationID: s.PresentationID, Kind: models.ChangeDebug, At: now}
}
