package slidelayout

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"slidecraft/backend/go/pkg/chart"
)

const (
	// ImagePlaceholderSrc stands in for every image; real image resolution is not done here.
	ImagePlaceholderSrc = "https://via.placeholder.com/400x300?text=Image+Placeholder"

	LoadingMessage       = "Loading slide content..."
	InvalidLayoutMessage = "Invalid layout XML"
	NoSlideMessage       = "No slide element found"

	DefaultViewport = 960
	gridGap         = 32
	minChartHeight  = 300
)

// Resources are the component stores a slide refers to by id.
type Resources struct {
	// TextComponents maps a text id to its text component document.
	TextComponents map[string]string
	// Charts maps a chart id to its chart definition document.
	Charts map[string]string
	// Data maps a data source id to a dataset.
	Data map[string]chart.Dataset
}

// Element is a composed node, ready for a rendering backend.
type Element struct {
	Kind    NodeKind `json:"kind"`
	ID      string   `json:"id,omitempty"`
	Classes string   `json:"classes,omitempty"`
	// Tag is h1, h2, h3 or p for text, ul or ol for lists.
	Tag     string   `json:"tag,omitempty"`
	Text    string   `json:"text,omitempty"`
	Items   []string `json:"items,omitempty"`
	Ordered bool     `json:"ordered,omitempty"`

	Src    string `json:"src,omitempty"`
	Alt    string `json:"alt,omitempty"`
	Width  string `json:"width,omitempty"`
	Height string `json:"height,omitempty"`

	ChartID   string       `json:"chartId,omitempty"`
	ChartType string       `json:"chartType,omitempty"`
	Scene     *chart.Scene `json:"scene,omitempty"`
	// Fallback marks a chart drawn as a dashed placeholder box; Text holds
	// its label and Caption the placeholder text.
	Fallback bool   `json:"fallback,omitempty"`
	Caption  string `json:"caption,omitempty"`

	Children []Element `json:"children,omitempty"`
	// Area is set on top-level elements only.
	Area *GridArea `json:"area,omitempty"`
}

// Composition is a composed slide. Message is set instead of elements when
// the layout could not be composed.
type Composition struct {
	SlideID     string      `json:"slideId,omitempty"`
	Classes     string      `json:"classes,omitempty"`
	Message     string      `json:"message,omitempty"`
	Arrangement Arrangement `json:"arrangement"`
	Elements    []Element   `json:"elements"`
	// Notes is markdown shown beside the slide.
	Notes    string   `json:"notes,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func (c *Composition) warn(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

// Composer turns parsed layouts into compositions.
type Composer struct {
	res      Resources
	policy   Policy
	viewport float64
	seed     int64
}

// Option configures a Composer.
type Option func(*Composer)

// WithPolicy replaces the adaptive layout policy.
func WithPolicy(p Policy) Option {
	return func(c *Composer) { c.policy = p }
}

// WithViewport sets the slide width that responsive charts are sized against.
func WithViewport(width float64) Option {
	return func(c *Composer) {
		if width > 0 {
			c.viewport = width
		}
	}
}

// WithSeed seeds mock data and network layouts.
func WithSeed(seed int64) Option {
	return func(c *Composer) { c.seed = seed }
}

// NewComposer builds a composer over res.
func NewComposer(res Resources, opts ...Option) *Composer {
	c := &Composer{res: res, policy: AdaptivePolicy{}, viewport: DefaultViewport, seed: 1}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ComposeDocument parses and composes a layout document. An empty document
// is a slide still waiting for content; parse failures become a message.
func (c *Composer) ComposeDocument(doc string) *Composition {
	if strings.TrimSpace(doc) == "" {
		return &Composition{Message: LoadingMessage}
	}
	layout, err := Parse(doc)
	if err != nil {
		msg := InvalidLayoutMessage
		if errors.Is(err, ErrNoSlide) {
			msg = NoSlideMessage
		}
		return &Composition{Message: msg, Warnings: []string{err.Error()}}
	}
	return c.Compose(layout)
}

// Compose resolves every node of the layout and places the top-level ones.
func (c *Composer) Compose(l *Layout) *Composition {
	comp := &Composition{SlideID: l.ID, Classes: l.Classes}
	comp.Arrangement = c.policy.Arrange(l.Nodes)

	cols := float64(max(1, comp.Arrangement.Columns))
	colWidth := (c.viewport - gridGap*(cols-1)) / cols
	for i, n := range l.Nodes {
		area := comp.Arrangement.Areas[i]
		width := colWidth*float64(area.ColSpan) + gridGap*float64(area.ColSpan-1)
		el := c.compose(n, width, comp)
		el.Area = &area
		comp.Elements = append(comp.Elements, el)
	}
	return comp
}

func (c *Composer) compose(n Node, width float64, comp *Composition) Element {
	el := Element{Kind: n.Kind, ID: n.ID, Classes: n.Classes}
	switch n.Kind {
	case KindTitle, KindText:
		el.Tag = n.Tag
		el.Text = c.resolveText(n, comp)
	case KindImage:
		el.Src = ImagePlaceholderSrc
		el.Alt = n.Alt
		el.Width = n.Width
		el.Height = n.Height
	case KindChart:
		c.composeChart(&el, n, width, comp)
	case KindList:
		el.Ordered = n.Ordered
		el.Tag = "ul"
		if n.Ordered {
			el.Tag = "ol"
		}
		src := n.Content
		if src == "" {
			src = n.Placeholder
		}
		el.Items = ListItems(src)
	case KindContainer:
		for _, child := range n.Children {
			el.Children = append(el.Children, c.compose(child, width, comp))
		}
	default:
		panic(fmt.Sprintf("slidelayout: unhandled node kind %v", n.Kind))
	}
	return el
}

// resolveText picks inline content, then the referenced text component,
// then the placeholder.
func (c *Composer) resolveText(n Node, comp *Composition) string {
	if n.Content != "" {
		return n.Content
	}
	fallback := n.Placeholder
	if n.TextID != "" {
		if doc, ok := c.res.TextComponents[n.TextID]; ok {
			tc, err := ParseTextComponent(doc)
			switch {
			case err != nil:
				comp.warn("text component %q: %v", n.TextID, err)
			case tc.Text != "":
				return tc.Text
			case fallback == "":
				fallback = tc.Placeholder
			}
		}
	}
	return fallback
}

func (c *Composer) composeChart(el *Element, n Node, width float64, comp *Composition) {
	el.ChartID = n.ChartID
	el.ChartType = n.ChartType

	var doc string
	switch {
	case n.InlineChart != "":
		doc = n.InlineChart
	case n.ChartID != "" && c.res.Charts[n.ChartID] != "":
		doc = c.res.Charts[n.ChartID]
	default:
		el.Fallback = true
		el.Text = ChartLabel(n.ChartType)
		el.Caption = n.Placeholder
		return
	}

	cfg, err := chart.ParseDefinition(doc)
	if err != nil {
		comp.warn("chart %q: %v", n.ChartID, err)
		el.Scene = chart.InvalidScene(width, 0)
		return
	}
	var supplied *chart.Dataset
	if id := cfg.DataSource.ID; id != "" && n.InlineChart == "" {
		if ds, ok := c.res.Data[id]; ok {
			supplied = &ds
		} else {
			comp.warn("chart %q: data source %q not found", n.ChartID, id)
		}
	}
	opts := chart.Options{Rand: rand.New(rand.NewSource(c.seed))}
	if cfg.Dimensions.Responsive && width > 0 {
		opts.Width = width
		opts.Height = math.Max(minChartHeight, 0.6*width)
	}
	el.Scene = chart.RenderConfig(cfg, supplied, opts)
}

// ChartLabel is the caption of a placeholder chart box, e.g. "Bubble Chart".
func ChartLabel(chartType string) string {
	if chartType == "" {
		chartType = "bar"
	}
	return cases.Title(language.English).String(chartType) + " Chart"
}

var (
	bulletMarker = regexp.MustCompile(`^[•\-\*]\s*`)
	numberMarker = regexp.MustCompile(`^\d+\.\s*`)
)

// ListItems splits list text into items. Lines are separated by newlines or
// a literal backslash-n; bullet and number markers are stripped and blank
// lines dropped.
func ListItems(text string) []string {
	text = strings.ReplaceAll(text, `\n`, "\n")
	var items []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = bulletMarker.ReplaceAllString(line, "")
		line = numberMarker.ReplaceAllString(line, "")
		items = append(items, line)
	}
	return items
}
