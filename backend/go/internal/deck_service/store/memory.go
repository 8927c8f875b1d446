package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"slidecraft/backend/go/internal/models"
)

// MemoryStore keeps everything in process. Records are copied on the way in
// and out so callers never share state with the store.
type MemoryStore struct {
	mu             sync.RWMutex
	presentations  map[string]*models.Presentation
	slides         map[string]*models.Slide
	charts         map[string]*models.Chart
	textComponents map[string]*models.TextComponent
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		presentations:  map[string]*models.Presentation{},
		slides:         map[string]*models.Slide{},
		charts:         map[string]*models.Chart{},
		textComponents: map[string]*models.TextComponent{},
	}
}

func (m *MemoryStore) Ready(context.Context) error { return nil }
func (m *MemoryStore) Close(context.Context) error { return nil }

func copyPresentation(p *models.Presentation) *models.Presentation {
	c := *p
	c.Audiences = append([]string(nil), p.Audiences...)
	return &c
}

func copySlide(s *models.Slide) *models.Slide {
	c := *s
	if s.XML != nil {
		x := *s.XML
		c.XML = &x
	}
	return &c
}

// --- presentations ---

func (m *MemoryStore) CreatePresentation(_ context.Context, p *models.Presentation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if _, ok := m.presentations[p.ID]; ok {
		return fmt.Errorf("presentation %s already exists", p.ID)
	}
	m.presentations[p.ID] = copyPresentation(p)
	return nil
}

func (m *MemoryStore) GetPresentation(_ context.Context, id string) (*models.Presentation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.presentations[id]
	if !ok {
		return nil, nil
	}
	return copyPresentation(p), nil
}

func (m *MemoryStore) ListPresentations(context.Context) ([]*models.Presentation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Presentation, 0, len(m.presentations))
	for _, p := range m.presentations {
		out = append(out, copyPresentation(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) UpdatePresentation(_ context.Context, p *models.Presentation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.presentations[p.ID]; !ok {
		return ErrNotFound
	}
	m.presentations[p.ID] = copyPresentation(p)
	return nil
}

func (m *MemoryStore) DeletePresentation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.presentations, id)
	m.deleteSlidesLocked(id)
	return nil
}

// --- slides ---

func (m *MemoryStore) slidesOfLocked(presentationID string) []*models.Slide {
	var out []*models.Slide
	for _, s := range m.slides {
		if s.PresentationID == presentationID {
			out = append(out, s)
		}
	}
	sortSlides(out)
	return out
}

func (m *MemoryStore) GetSlide(_ context.Context, id string) (*models.Slide, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.slides[id]
	if !ok {
		return nil, nil
	}
	return copySlide(s), nil
}

func (m *MemoryStore) ListSlides(_ context.Context, presentationID string) ([]*models.Slide, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored := m.slidesOfLocked(presentationID)
	out := make([]*models.Slide, len(stored))
	for i, s := range stored {
		out[i] = copySlide(s)
	}
	return out, nil
}

func (m *MemoryStore) appendLocked(s *models.Slide) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now()
	}
	s.Index = len(m.slidesOfLocked(s.PresentationID))
	m.slides[s.ID] = copySlide(s)
}

func (m *MemoryStore) AppendSlide(_ context.Context, s *models.Slide) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendLocked(s)
	return nil
}

func (m *MemoryStore) AppendSlides(_ context.Context, slides []*models.Slide) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range slides {
		m.appendLocked(s)
	}
	return nil
}

func (m *MemoryStore) UpdateSlide(_ context.Context, s *models.Slide) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.slides[s.ID]
	if !ok {
		return ErrNotFound
	}
	next := copySlide(s)
	next.PresentationID = cur.PresentationID
	next.Index = cur.Index
	next.UpdatedAt = time.Now()
	m.slides[s.ID] = next
	return nil
}

func (m *MemoryStore) UpdateSlideXML(_ context.Context, presentationID, slideID, xml string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	found := false
	now := time.Now()
	for _, s := range m.slidesOfLocked(presentationID) {
		if s.SlideID == slideID {
			x := xml
			s.XML = &x
			s.UpdatedAt = now
			found = true
		}
	}
	return found, nil
}

func (m *MemoryStore) DeleteSlide(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slides[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.slides, id)
	for _, other := range m.slidesOfLocked(s.PresentationID) {
		if other.Index > s.Index {
			other.Index--
		}
	}
	return nil
}

func (m *MemoryStore) deleteSlidesLocked(presentationID string) {
	for id, s := range m.slides {
		if s.PresentationID == presentationID {
			delete(m.slides, id)
		}
	}
}

func (m *MemoryStore) DeleteSlides(_ context.Context, presentationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteSlidesLocked(presentationID)
	return nil
}

func (m *MemoryStore) ReplaceSlides(_ context.Context, presentationID string, slides []*models.Slide) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteSlidesLocked(presentationID)
	for i, s := range slides {
		if s.ID == "" {
			s.ID = uuid.New().String()
		}
		s.PresentationID = presentationID
		s.Index = i
		m.slides[s.ID] = copySlide(s)
	}
	return nil
}

// --- charts ---

func (m *MemoryStore) CreateChart(_ context.Context, c *models.Chart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createChartLocked(c)
}

func (m *MemoryStore) createChartLocked(c *models.Chart) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if _, ok := m.charts[c.ID]; ok {
		return fmt.Errorf("chart %s already exists", c.ID)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	cc := *c
	m.charts[c.ID] = &cc
	return nil
}

func (m *MemoryStore) CreateCharts(_ context.Context, charts []*models.Chart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range charts {
		if err := m.createChartLocked(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) GetChart(_ context.Context, id string) (*models.Chart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.charts[id]
	if !ok {
		return nil, nil
	}
	cc := *c
	return &cc, nil
}

func (m *MemoryStore) ListCharts(context.Context) ([]*models.Chart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Chart, 0, len(m.charts))
	for _, c := range m.charts {
		cc := *c
		out = append(out, &cc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) UpdateChart(_ context.Context, c *models.Chart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.charts[c.ID]; !ok {
		return ErrNotFound
	}
	cc := *c
	m.charts[c.ID] = &cc
	return nil
}

func (m *MemoryStore) DeleteChart(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.charts, id)
	return nil
}

// --- text components ---

func (m *MemoryStore) CreateTextComponent(_ context.Context, t *models.TextComponent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createTextLocked(t)
}

func (m *MemoryStore) createTextLocked(t *models.TextComponent) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if _, ok := m.textComponents[t.ID]; ok {
		return fmt.Errorf("text component %s already exists", t.ID)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	tc := *t
	m.textComponents[t.ID] = &tc
	return nil
}

func (m *MemoryStore) CreateTextComponents(_ context.Context, ts []*models.TextComponent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range ts {
		if err := m.createTextLocked(t); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) GetTextComponent(_ context.Context, id string) (*models.TextComponent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.textComponents[id]
	if !ok {
		return nil, nil
	}
	tc := *t
	return &tc, nil
}

func (m *MemoryStore) ListTextComponents(context.Context) ([]*models.TextComponent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.TextComponent, 0, len(m.textComponents))
	for _, t := range m.textComponents {
		tc := *t
		out = append(out, &tc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) UpdateTextComponent(_ context.Context, t *models.TextComponent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.textComponents[t.ID]; !ok {
		return ErrNotFound
	}
	tc := *t
	m.textComponents[t.ID] = &tc
	return nil
}

func (m *MemoryStore) DeleteTextComponent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.textComponents, id)
	return nil
}
