package chart

import (
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

var categoricalSchemes = map[string][]string{
	"category10": {"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd", "#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf"},
	"tableau10":  {"#4e79a7", "#f28e2c", "#e15759", "#76b7b2", "#59a14f", "#edc949", "#af7aa1", "#ff9da7", "#9c755f", "#bab0ab"},
	"set3":       {"#8dd3c7", "#ffffb3", "#bebada", "#fb8072", "#80b1d3", "#fdb462", "#b3de69", "#fccde5", "#d9d9d9", "#bc80bd", "#ccebc5", "#ffed6f"},
	"paired":     {"#a6cee3", "#1f78b4", "#b2df8a", "#33a02c", "#fb9a99", "#e31a1c", "#fdbf6f", "#ff7f00", "#cab2d6", "#6a3d9a", "#ffff99", "#b15928"},
}

var sequentialSchemes = map[string][]string{
	"blues":   {"#f7fbff", "#deebf7", "#c6dbef", "#9ecae1", "#6baed6", "#4292c6", "#2171b5", "#08519c", "#08306b"},
	"greens":  {"#f7fcf5", "#e5f5e0", "#c7e9c0", "#a1d99b", "#74c476", "#41ab5d", "#238b45", "#006d2c", "#00441b"},
	"reds":    {"#fff5f0", "#fee0d2", "#fcbba1", "#fc9272", "#fb6a4a", "#ef3b2c", "#cb181d", "#a50f15", "#67000d"},
	"oranges": {"#fff5eb", "#fee6ce", "#fdd0a2", "#fdae6b", "#fd8d3c", "#f16913", "#d94801", "#a63603", "#7f2704"},
	"purples": {"#fcfbfd", "#efedf5", "#dadaeb", "#bcbddc", "#9e9ac8", "#807dba", "#6a51a3", "#54278f", "#3f007d"},
	"greys":   {"#ffffff", "#f0f0f0", "#d9d9d9", "#bdbdbd", "#969696", "#737373", "#525252", "#252525", "#000000"},
}

func schemeKey(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.TrimPrefix(key, "scheme")
	key = strings.TrimPrefix(key, "interpolate")
	return key
}

// Palette returns the categorical colors for a scheme name, falling back to category10.
func Palette(name string) []string {
	if p, ok := categoricalSchemes[schemeKey(name)]; ok {
		return p
	}
	return categoricalSchemes["category10"]
}

// Ordinal hands out palette colors to keys in first-seen order.
type Ordinal struct {
	palette []string
	index   map[string]int
}

// NewOrdinal builds an ordinal scale; keys in domain are assigned first, in order.
func NewOrdinal(palette []string, domain ...string) *Ordinal {
	o := &Ordinal{palette: palette, index: make(map[string]int)}
	for _, d := range domain {
		o.Color(d)
	}
	return o
}

// Color returns the color assigned to key.
func (o *Ordinal) Color(key string) string {
	i, ok := o.index[key]
	if !ok {
		i = len(o.index)
		o.index[key] = i
	}
	return o.palette[i%len(o.palette)]
}

// At returns the color for a position.
func (o *Ordinal) At(i int) string {
	return o.palette[i%len(o.palette)]
}

// Sequential maps a numeric domain onto a color ramp.
type Sequential struct {
	d0, d1 float64
	stops  []colorful.Color
}

// NewSequential builds a sequential scale. Unknown scheme names use blues.
func NewSequential(scheme string, d0, d1 float64) Sequential {
	hexes, ok := sequentialSchemes[schemeKey(scheme)]
	if !ok {
		hexes = sequentialSchemes["blues"]
	}
	stops := make([]colorful.Color, 0, len(hexes))
	for _, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			continue
		}
		stops = append(stops, c)
	}
	return Sequential{d0: d0, d1: d1, stops: stops}
}

// At interpolates the ramp at t in [0,1]; t is clamped.
func (s Sequential) At(t float64) string {
	if math.IsNaN(t) {
		t = 0
	}
	t = math.Max(0, math.Min(1, t))
	n := len(s.stops) - 1
	pos := t * float64(n)
	i := int(math.Floor(pos))
	if i >= n {
		return s.stops[n].Hex()
	}
	return s.stops[i].BlendLab(s.stops[i+1], pos-float64(i)).Clamped().Hex()
}

// Color maps a domain value.
func (s Sequential) Color(v float64) string {
	if s.d1 == s.d0 {
		return s.At(0.5)
	}
	return s.At((v - s.d0) / (s.d1 - s.d0))
}
