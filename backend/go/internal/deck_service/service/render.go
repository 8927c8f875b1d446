package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"slidecraft/backend/go/internal/models"
	"slidecraft/backend/go/pkg/chart"
	"slidecraft/backend/go/pkg/slidelayout"
)

// resources collects everything a slide may refer to by id.
func (s *DeckService) resources(ctx context.Context) (slidelayout.Resources, error) {
	res := slidelayout.Resources{
		TextComponents: map[string]string{},
		Charts:         map[string]string{},
		Data:           s.catalog.Snapshot(),
	}
	charts, err := s.store.ListCharts(ctx)
	if err != nil {
		return res, fmt.Errorf("list charts: %w", err)
	}
	for _, c := range charts {
		res.Charts[c.ID] = c.XML
	}
	texts, err := s.store.ListTextComponents(ctx)
	if err != nil {
		return res, fmt.Errorf("list text components: %w", err)
	}
	for _, t := range texts {
		res.TextComponents[t.ID] = t.XML
	}
	return res, nil
}

func (s *DeckService) composer(res slidelayout.Resources, width int) *slidelayout.Composer {
	if width <= 0 {
		width = s.opts.Viewport
	}
	opts := []slidelayout.Option{slidelayout.WithViewport(float64(width))}
	if !s.opts.AdaptiveLayout {
		opts = append(opts, slidelayout.WithPolicy(slidelayout.StackedPolicy{}))
	}
	return slidelayout.NewComposer(res, opts...)
}

func (s *DeckService) compose(res slidelayout.Resources, slide *models.Slide, width int) *slidelayout.Composition {
	doc := ""
	if slide.XML != nil {
		doc = *slide.XML
	}
	comp := s.composer(res, width).ComposeDocument(doc)
	if comp.SlideID == "" {
		comp.SlideID = slide.SlideID
	}
	comp.Notes = NotesMarkdown(slide.Notes)
	if len(comp.Warnings) > 0 {
		s.logger.WithJob(slide.PresentationID).WithPayload(map[string]interface{}{
			"slideId":  slide.SlideID,
			"warnings": comp.Warnings,
		}).Warn("Slide composed with warnings")
	}
	return comp
}

// RenderSlide composes the slide at index. width overrides the viewport
// when positive.
func (s *DeckService) RenderSlide(ctx context.Context, presentationID string, index, width int) (*slidelayout.Composition, error) {
	slide, err := s.SlideAt(ctx, presentationID, index)
	if err != nil {
		return nil, err
	}
	res, err := s.resources(ctx)
	if err != nil {
		return nil, err
	}
	return s.compose(res, slide, width), nil
}

// ChartRequest is a chart document to draw. DataID overrides the data
// source named in the document. A non-empty Interaction is replayed on a
// fresh scene, which is never cached.
type ChartRequest struct {
	XML         string            `json:"xml"`
	DataID      string            `json:"dataId"`
	Width       float64           `json:"width"`
	Height      float64           `json:"height"`
	Interaction chart.Interaction `json:"interaction"`
}

const sceneCacheSize = 256

type sceneKey struct {
	doc           uint64
	docLen        int
	dataID        string
	width, height float64
	catalog       uint64
}

func keyOf(req ChartRequest, catalog uint64) sceneKey {
	return sceneKey{
		doc:     xxhash.Sum64String(req.XML),
		docLen:  len(req.XML),
		dataID:  req.DataID,
		width:   req.Width,
		height:  req.Height,
		catalog: catalog,
	}
}

// RenderChart draws a chart document against the dataset catalog. An
// unparseable document returns the placeholder scene with ErrInvalidInput.
// Scenes without interaction are cached until the catalog changes.
func (s *DeckService) RenderChart(ctx context.Context, req ChartRequest) (*chart.Scene, error) {
	if !req.Interaction.Empty() {
		scene, _, err := s.InteractChart(ctx, req)
		return scene, err
	}
	key := keyOf(req, s.catalog.Version())
	if scene, ok := s.scenes.Get(key); ok {
		return scene, nil
	}
	scene, err := s.drawChart(req)
	if err != nil {
		return scene, err
	}
	s.scenes.Put(key, scene, 1)
	return scene, nil
}

// InteractChart draws a fresh scene and replays req.Interaction on it:
// network drags and layout ticks, then a tooltip hover.
func (s *DeckService) InteractChart(_ context.Context, req ChartRequest) (*chart.Scene, chart.InteractionResult, error) {
	scene, err := s.drawChart(req)
	if err != nil {
		return scene, chart.InteractionResult{}, err
	}
	res := scene.Apply(req.Interaction)
	s.logger.WithPayload(map[string]interface{}{
		"kind": scene.Kind.String(), "dragged": res.Dragged, "ticks": res.Ticks, "hovered": res.Hovered,
	}).Debug("Chart interaction replayed")
	return scene, res, nil
}

func (s *DeckService) drawChart(req ChartRequest) (*chart.Scene, error) {
	cfg, err := chart.ParseDefinition(req.XML)
	if err != nil {
		return chart.InvalidScene(req.Width, req.Height), fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	dataID := firstNonEmpty(req.DataID, cfg.DataSource.ID)
	var supplied *chart.Dataset
	if ds, ok := s.catalog.Snapshot()[dataID]; ok && dataID != "" {
		supplied = &ds
	}
	return chart.RenderConfig(cfg, supplied, chart.Options{Width: req.Width, Height: req.Height}), nil
}

// NotesMarkdown formats a slide's planning notes for the notes panel.
func NotesMarkdown(n models.SlideNote) string {
	var parts []string
	if t := strings.TrimSpace(n.Title); t != "" {
		parts = append(parts, "**"+t+"**")
	}
	if d := strings.TrimSpace(n.ContentDescription); d != "" {
		parts = append(parts, d)
	}
	if d := strings.TrimSpace(n.DataInsights); d != "" {
		parts = append(parts, "_Data insights:_ "+d)
	}
	return strings.Join(parts, "\n\n")
}
