package store

import (
	"context"
	"errors"
	"sort"

	"slidecraft/backend/go/internal/models"
)

// ErrNotFound is returned by operations that must act on an existing record,
// such as deleting a slide. Lookups return (nil, nil) instead.
var ErrNotFound = errors.New("record not found")

// PresentationStore persists presentations.
type PresentationStore interface {
	CreatePresentation(ctx context.Context, p *models.Presentation) error
	GetPresentation(ctx context.Context, id string) (*models.Presentation, error)
	ListPresentations(ctx context.Context) ([]*models.Presentation, error)
	UpdatePresentation(ctx context.Context, p *models.Presentation) error
	// DeletePresentation removes the presentation and all of its slides.
	DeletePresentation(ctx context.Context, id string) error
}

// SlideStore persists slides. Every operation keeps the indexes of a
// presentation's slides contiguous from zero.
type SlideStore interface {
	GetSlide(ctx context.Context, id string) (*models.Slide, error)
	// ListSlides returns a presentation's slides ordered by index.
	ListSlides(ctx context.Context, presentationID string) ([]*models.Slide, error)
	// AppendSlide stores s at max(index)+1 and sets s.Index accordingly.
	AppendSlide(ctx context.Context, s *models.Slide) error
	// AppendSlides is AppendSlide for several slides, in order.
	AppendSlides(ctx context.Context, slides []*models.Slide) error
	// UpdateSlide replaces a slide's content fields; its index is left alone.
	UpdateSlide(ctx context.Context, s *models.Slide) error
	// UpdateSlideXML patches the xml of every slide with the given external
	// slide id and reports whether any such slide exists.
	UpdateSlideXML(ctx context.Context, presentationID, slideID, xml string) (bool, error)
	// DeleteSlide removes a slide and shifts the trailing slides down by one.
	DeleteSlide(ctx context.Context, id string) error
	DeleteSlides(ctx context.Context, presentationID string) error
	// ReplaceSlides atomically swaps all slides of a presentation for slides,
	// indexed in the given order.
	ReplaceSlides(ctx context.Context, presentationID string, slides []*models.Slide) error
}

// ChartStore persists chart definition documents.
type ChartStore interface {
	CreateChart(ctx context.Context, c *models.Chart) error
	CreateCharts(ctx context.Context, charts []*models.Chart) error
	GetChart(ctx context.Context, id string) (*models.Chart, error)
	ListCharts(ctx context.Context) ([]*models.Chart, error)
	UpdateChart(ctx context.Context, c *models.Chart) error
	DeleteChart(ctx context.Context, id string) error
}

// TextComponentStore persists text component documents.
type TextComponentStore interface {
	CreateTextComponent(ctx context.Context, t *models.TextComponent) error
	CreateTextComponents(ctx context.Context, ts []*models.TextComponent) error
	GetTextComponent(ctx context.Context, id string) (*models.TextComponent, error)
	ListTextComponents(ctx context.Context) ([]*models.TextComponent, error)
	UpdateTextComponent(ctx context.Context, t *models.TextComponent) error
	DeleteTextComponent(ctx context.Context, id string) error
}

// Store is the complete persisted store. It is constructed explicitly and
// must be Ready before use.
type Store interface {
	PresentationStore
	SlideStore
	ChartStore
	TextComponentStore

	// Ready verifies the backend is reachable and prepares its schema.
	Ready(ctx context.Context) error
	Close(ctx context.Context) error
}

func sortSlides(slides []*models.Slide) {
	sort.SliceStable(slides, func(i, j int) bool { return slides[i].Index < slides[j].Index })
}
