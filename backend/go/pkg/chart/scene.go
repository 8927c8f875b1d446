package chart

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MarkKind is the geometric primitive a mark is drawn with.
type MarkKind int

const (
	MarkRect MarkKind = iota
	MarkCircle
	MarkPath
	MarkLine
	MarkText
)

var markKindNames = []string{"rect", "circle", "path", "line", "text"}

func (k MarkKind) String() string {
	if int(k) < len(markKindNames) {
		return markKindNames[k]
	}
	return "unknown"
}

// MarshalJSON writes the kind by name.
func (k MarkKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// Mark is one drawn element, in plot coordinates.
type Mark struct {
	Kind        MarkKind `json:"kind"`
	Role        string   `json:"role"`
	Key         string   `json:"key,omitempty"`
	X           float64  `json:"x"`
	Y           float64  `json:"y"`
	X2          float64  `json:"x2,omitempty"`
	Y2          float64  `json:"y2,omitempty"`
	Width       float64  `json:"width,omitempty"`
	Height      float64  `json:"height,omitempty"`
	R           float64  `json:"r,omitempty"`
	Path        string   `json:"path,omitempty"`
	Text        string   `json:"text,omitempty"`
	Anchor      string   `json:"anchor,omitempty"`
	FontSize    float64  `json:"fontSize,omitempty"`
	Fill        string   `json:"fill,omitempty"`
	Stroke      string   `json:"stroke,omitempty"`
	StrokeWidth float64  `json:"strokeWidth,omitempty"`
	Opacity     float64  `json:"opacity,omitempty"`
	Dashed      bool     `json:"dashed,omitempty"`
	Tooltip     []string `json:"tooltip,omitempty"`
}

// AxisOrient says which side of the plot an axis sits on.
type AxisOrient int

const (
	AxisBottom AxisOrient = iota
	AxisLeft
)

// Tick is a labelled position along an axis or legend.
type Tick struct {
	Offset float64 `json:"offset"`
	Label  string  `json:"label"`
}

// Axis is an axis guide in plot coordinates.
type Axis struct {
	Orient   AxisOrient `json:"orient"`
	X        float64    `json:"x"`
	Y        float64    `json:"y"`
	Length   float64    `json:"length"`
	Ticks    []Tick     `json:"ticks"`
	Label    string     `json:"label,omitempty"`
	Grid     bool       `json:"grid,omitempty"`
	GridSize float64    `json:"gridSize,omitempty"`
}

// GradientStop is one color stop of a legend ramp.
type GradientStop struct {
	Offset float64 `json:"offset"`
	Color  string  `json:"color"`
}

// Legend is a horizontal color ramp with ticks, in absolute coordinates.
type Legend struct {
	X      float64        `json:"x"`
	Y      float64        `json:"y"`
	Width  float64        `json:"width"`
	Height float64        `json:"height"`
	Title  string         `json:"title,omitempty"`
	Stops  []GradientStop `json:"stops"`
	Ticks  []Tick         `json:"ticks"`
}

// Label is free text in absolute coordinates.
type Label struct {
	Text     string  `json:"text"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	FontSize float64 `json:"fontSize"`
}

// Tooltip is the floating panel shown over a hovered mark.
type Tooltip struct {
	X       float64  `json:"x"`
	Y       float64  `json:"y"`
	Lines   []string `json:"lines"`
	Visible bool     `json:"visible"`
}

// Scene is the output of one render pass. It is owned by a single render
// loop and is not safe for concurrent use.
type Scene struct {
	Kind      Kind    `json:"kind"`
	ID        string  `json:"id,omitempty"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	OriginX   float64 `json:"originX"`
	OriginY   float64 `json:"originY"`
	Title     *Label  `json:"title,omitempty"`
	Message   string  `json:"message,omitempty"`
	Marks     []Mark  `json:"marks"`
	Axes      []Axis  `json:"axes,omitempty"`
	Legend    *Legend `json:"legend,omitempty"`
	ValidRows int     `json:"validRows"`

	// Panel is the tooltip shown by PointerEnter, nil until one has been.
	Panel *Tooltip `json:"tooltip,omitempty"`

	tooltips bool
	torn     bool
	network  *networkState
}

func newScene(cfg *Config) *Scene {
	return &Scene{
		Kind:     cfg.Kind,
		ID:       cfg.ID,
		Width:    cfg.Dimensions.Width,
		Height:   cfg.Dimensions.Height,
		OriginX:  cfg.Margin.Left,
		OriginY:  cfg.Margin.Top,
		tooltips: cfg.TooltipEnabled,
	}
}

// PointerEnter shows the tooltip for mark i near the pointer. It reports
// whether a panel is now visible.
func (s *Scene) PointerEnter(i int, x, y float64) bool {
	if s.torn || !s.tooltips || i < 0 || i >= len(s.Marks) || len(s.Marks[i].Tooltip) == 0 {
		return false
	}
	if s.Panel == nil {
		s.Panel = &Tooltip{}
	}
	s.Panel.Lines = append([]string(nil), s.Marks[i].Tooltip...)
	s.Panel.Visible = true
	s.PointerMove(x, y)
	return true
}

// PointerMove keeps a visible panel next to the pointer.
func (s *Scene) PointerMove(x, y float64) {
	if s.Panel == nil || !s.Panel.Visible {
		return
	}
	s.Panel.X = x + 10
	s.Panel.Y = y - 10
}

// PointerLeave hides the panel.
func (s *Scene) PointerLeave() {
	if s.Panel != nil {
		s.Panel.Visible = false
	}
}

// Tooltip returns the panel, if one exists.
func (s *Scene) Tooltip() (Tooltip, bool) {
	if s.Panel == nil {
		return Tooltip{}, false
	}
	return *s.Panel, true
}

// Teardown removes the tooltip panel and stops any running simulation.
// The scene must not be interacted with afterwards.
func (s *Scene) Teardown() {
	s.Panel = nil
	s.torn = true
	if s.network != nil {
		s.network.sim.Stop()
	}
}

// TornDown reports whether Teardown has run.
func (s *Scene) TornDown() bool { return s.torn }

// MarksByRole returns the marks with the given role.
func (s *Scene) MarksByRole(role string) []Mark {
	var out []Mark
	for _, m := range s.Marks {
		if m.Role == role {
			out = append(out, m)
		}
	}
	return out
}

// SVG serialises the scene.
func (s *Scene) SVG() string {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`,
		num(s.Width), num(s.Height), num(s.Width), num(s.Height))
	if s.Message != "" {
		fmt.Fprintf(&b, `<text x="%s" y="%s" text-anchor="middle" font-size="14" fill="#666">%s</text>`,
			num(s.Width/2), num(s.Height/2), escape(s.Message))
		b.WriteString(`</svg>`)
		return b.String()
	}
	if s.Legend != nil && len(s.Legend.Stops) > 0 {
		b.WriteString(`<defs><linearGradient id="legend-gradient" x1="0%" x2="100%" y1="0%" y2="0%">`)
		for _, st := range s.Legend.Stops {
			fmt.Fprintf(&b, `<stop offset="%s%%" stop-color="%s"/>`, num(st.Offset*100), st.Color)
		}
		b.WriteString(`</linearGradient></defs>`)
	}
	fmt.Fprintf(&b, `<g transform="translate(%s,%s)">`, num(s.OriginX), num(s.OriginY))
	for _, a := range s.Axes {
		writeAxis(&b, a)
	}
	for _, m := range s.Marks {
		s.writeMark(&b, m)
	}
	b.WriteString(`</g>`)
	if s.Legend != nil {
		writeLegend(&b, s.Legend)
	}
	if s.Title != nil {
		fmt.Fprintf(&b, `<text x="%s" y="%s" text-anchor="middle" font-size="%s" font-weight="bold">%s</text>`,
			num(s.Title.X), num(s.Title.Y), num(s.Title.FontSize), escape(s.Title.Text))
	}
	if s.Panel != nil && s.Panel.Visible {
		writeTooltip(&b, *s.Panel)
	}
	b.WriteString(`</svg>`)
	return b.String()
}

func (s *Scene) writeMark(b *strings.Builder, m Mark) {
	style := markStyle(m)
	var open string
	switch m.Kind {
	case MarkRect:
		open = fmt.Sprintf(`<rect x="%s" y="%s" width="%s" height="%s"%s`, num(m.X), num(m.Y), num(m.Width), num(m.Height), style)
	case MarkCircle:
		open = fmt.Sprintf(`<circle cx="%s" cy="%s" r="%s"%s`, num(m.X), num(m.Y), num(m.R), style)
	case MarkPath:
		open = fmt.Sprintf(`<path d="%s"%s`, m.Path, style)
	case MarkLine:
		open = fmt.Sprintf(`<line x1="%s" y1="%s" x2="%s" y2="%s"%s`, num(m.X), num(m.Y), num(m.X2), num(m.Y2), style)
	case MarkText:
		anchor := m.Anchor
		if anchor == "" {
			anchor = "middle"
		}
		fmt.Fprintf(b, `<text x="%s" y="%s" text-anchor="%s" font-size="%s"%s>%s</text>`,
			num(m.X), num(m.Y), anchor, num(math.Max(m.FontSize, 10)), style, escape(m.Text))
		return
	default:
		return
	}
	b.WriteString(open)
	if s.tooltips && len(m.Tooltip) > 0 {
		fmt.Fprintf(b, `><title>%s</title></%s>`, escape(strings.Join(m.Tooltip, "\n")), m.Kind)
		return
	}
	b.WriteString(`/>`)
}

func writeTooltip(b *strings.Builder, t Tooltip) {
	width := 0
	for _, l := range t.Lines {
		width = max(width, len([]rune(l)))
	}
	fmt.Fprintf(b, `<g class="tooltip" transform="translate(%s,%s)">`, num(t.X), num(t.Y))
	fmt.Fprintf(b, `<rect width="%s" height="%s" rx="4" fill="white" stroke="#ccc"/>`,
		num(float64(width*7+16)), num(float64(len(t.Lines)*16+8)))
	for i, l := range t.Lines {
		fmt.Fprintf(b, `<text x="8" y="%s" font-size="12">%s</text>`, num(float64(i*16+18)), escape(l))
	}
	b.WriteString(`</g>`)
}

func markStyle(m Mark) string {
	var b strings.Builder
	fill := m.Fill
	if fill == "" && m.Kind != MarkText {
		fill = "none"
	}
	if fill != "" {
		fmt.Fprintf(&b, ` fill="%s"`, fill)
	}
	if m.Stroke != "" {
		fmt.Fprintf(&b, ` stroke="%s"`, m.Stroke)
		if m.StrokeWidth > 0 {
			fmt.Fprintf(&b, ` stroke-width="%s"`, num(m.StrokeWidth))
		}
	}
	if m.Opacity > 0 && m.Opacity < 1 {
		fmt.Fprintf(&b, ` opacity="%s"`, num(m.Opacity))
	}
	if m.Dashed {
		b.WriteString(` stroke-dasharray="4,4"`)
	}
	return b.String()
}

func writeAxis(b *strings.Builder, a Axis) {
	fmt.Fprintf(b, `<g class="axis" transform="translate(%s,%s)">`, num(a.X), num(a.Y))
	switch a.Orient {
	case AxisBottom:
		fmt.Fprintf(b, `<line x1="0" y1="0" x2="%s" y2="0" stroke="currentColor"/>`, num(a.Length))
		for _, t := range a.Ticks {
			if a.Grid {
				fmt.Fprintf(b, `<line x1="%s" y1="0" x2="%s" y2="%s" stroke="#e0e0e0"/>`, num(t.Offset), num(t.Offset), num(-a.GridSize))
			}
			fmt.Fprintf(b, `<line x1="%s" y1="0" x2="%s" y2="6" stroke="currentColor"/>`, num(t.Offset), num(t.Offset))
			fmt.Fprintf(b, `<text x="%s" y="18" text-anchor="middle" font-size="10">%s</text>`, num(t.Offset), escape(t.Label))
		}
		if a.Label != "" {
			fmt.Fprintf(b, `<text x="%s" y="35" text-anchor="middle" font-size="12">%s</text>`, num(a.Length/2), escape(a.Label))
		}
	case AxisLeft:
		fmt.Fprintf(b, `<line x1="0" y1="0" x2="0" y2="%s" stroke="currentColor"/>`, num(a.Length))
		for _, t := range a.Ticks {
			if a.Grid {
				fmt.Fprintf(b, `<line x1="0" y1="%s" x2="%s" y2="%s" stroke="#e0e0e0"/>`, num(t.Offset), num(a.GridSize), num(t.Offset))
			}
			fmt.Fprintf(b, `<line x1="-6" y1="%s" x2="0" y2="%s" stroke="currentColor"/>`, num(t.Offset), num(t.Offset))
			fmt.Fprintf(b, `<text x="-9" y="%s" dy="0.32em" text-anchor="end" font-size="10">%s</text>`, num(t.Offset), escape(t.Label))
		}
		if a.Label != "" {
			fmt.Fprintf(b, `<text transform="rotate(-90)" x="%s" y="-30" text-anchor="middle" font-size="12">%s</text>`, num(-a.Length/2), escape(a.Label))
		}
	}
	b.WriteString(`</g>`)
}

func writeLegend(b *strings.Builder, l *Legend) {
	fmt.Fprintf(b, `<g class="legend" transform="translate(%s,%s)">`, num(l.X), num(l.Y))
	fmt.Fprintf(b, `<rect width="%s" height="%s" fill="url(#legend-gradient)"/>`, num(l.Width), num(l.Height))
	for _, t := range l.Ticks {
		fmt.Fprintf(b, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="currentColor"/>`, num(t.Offset), num(l.Height), num(t.Offset), num(l.Height+6))
		fmt.Fprintf(b, `<text x="%s" y="%s" text-anchor="middle" font-size="10">%s</text>`, num(t.Offset), num(l.Height+18), escape(t.Label))
	}
	if l.Title != "" {
		fmt.Fprintf(b, `<text x="%s" y="-5" text-anchor="middle" font-size="12" font-weight="bold">%s</text>`, num(l.Width/2), escape(l.Title))
	}
	b.WriteString(`</g>`)
}

// num prints a coordinate with at most two decimals.
func num(v float64) string {
	if !isFinite(v) {
		return "0"
	}
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
