package chart

import (
	"fmt"
	"math/rand"
)

const (
	// NoDataMessage is shown when no row survives validation.
	NoDataMessage = "No valid data to display"
	// InvalidConfigMessage is shown when the chart document cannot be parsed.
	InvalidConfigMessage = "Invalid chart configuration"
)

// Options tune a render pass.
type Options struct {
	// Width and Height override the document dimensions when positive.
	Width  float64
	Height float64
	// Rand seeds mock data and the network layout.
	Rand *rand.Rand
}

// Render draws a dataset with the renderer for the config's kind.
func Render(cfg *Config, ds Dataset) *Scene {
	return renderWith(cfg, ds, nil)
}

func renderWith(cfg *Config, ds Dataset, rng *rand.Rand) *Scene {
	switch cfg.Kind {
	case KindBar, KindOther:
		return renderBar(cfg, ds.Rows)
	case KindLine, KindArea:
		return renderLine(cfg, ds.Rows)
	case KindPie, KindDonut:
		return renderPie(cfg, ds.Rows)
	case KindScatter, KindBubble:
		return renderScatter(cfg, ds.Rows)
	case KindNetwork:
		return renderNetwork(cfg, ds, rng)
	case KindChoropleth:
		return renderChoropleth(cfg, ds.Rows)
	default:
		panic(fmt.Sprintf("chart: unhandled chart kind %v", cfg.Kind))
	}
}

// RenderDocument runs the whole pipeline for one chart document: parse,
// resolve data, draw. A document that does not parse yields a placeholder
// scene along with the parse error.
func RenderDocument(doc string, supplied *Dataset, opts Options) (*Scene, error) {
	cfg, err := ParseDefinition(doc)
	if err != nil {
		return InvalidScene(opts.Width, opts.Height), err
	}
	return RenderConfig(cfg, supplied, opts), nil
}

// RenderConfig resizes a parsed config per opts, resolves its data and draws it.
func RenderConfig(cfg *Config, supplied *Dataset, opts Options) *Scene {
	if opts.Width > 0 || opts.Height > 0 {
		cfg = cfg.WithSize(opts.Width, opts.Height)
	}
	ds := ResolveDataset(cfg, supplied, opts.Rand)
	return renderWith(cfg, ds, opts.Rand)
}

// InvalidScene is the placeholder for an unparseable chart document.
func InvalidScene(width, height float64) *Scene {
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	return &Scene{Kind: KindOther, Width: width, Height: height, Message: InvalidConfigMessage}
}

func (s *Scene) noData() *Scene {
	s.Message = NoDataMessage
	s.Marks = nil
	s.Axes = nil
	s.Legend = nil
	s.Title = nil
	s.ValidRows = 0
	return s
}

func (s *Scene) setTitle(cfg *Config, y float64) {
	if cfg.Title == "" {
		return
	}
	s.Title = &Label{Text: cfg.Title, X: cfg.Dimensions.Width / 2, Y: y, FontSize: 16}
}

func bandAxis(b Band, inner Rect, label string) Axis {
	a := Axis{Orient: AxisBottom, Y: inner.Height, Length: inner.Width, Label: label}
	half := b.Bandwidth() / 2
	for _, d := range b.Domain() {
		pos, _ := b.Pos(d)
		a.Ticks = append(a.Ticks, Tick{Offset: pos + half, Label: d})
	}
	return a
}

func linearAxis(orient AxisOrient, s Linear, inner Rect, ax AxisConfig, format func(float64) string) Axis {
	a := Axis{Orient: orient, Label: ax.Label, Grid: ax.GridLines}
	if orient == AxisBottom {
		a.Y = inner.Height
		a.Length = inner.Width
		a.GridSize = inner.Height
	} else {
		a.Length = inner.Height
		a.GridSize = inner.Width
	}
	step := s.TickStep(10)
	for _, t := range s.Ticks(10) {
		label := formatTick(t, step)
		if format != nil {
			label = format(t)
		}
		a.Ticks = append(a.Ticks, Tick{Offset: s.Map(t), Label: label})
	}
	return a
}

// labelOr returns the first non-empty text field of the row, else def.
func labelOr(r Row, def string, names ...string) string {
	for _, n := range names {
		if t := r.Text(n); t != "" {
			return t
		}
	}
	return def
}
