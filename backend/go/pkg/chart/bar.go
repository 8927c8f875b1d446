package chart

import (
	"fmt"
	"math"
)

const (
	barPadding   = 0.1
	groupPadding = 0.05
)

// seriesKeys lists the numeric measures carried by the rows, excluding the
// category and descriptive fields, in first-seen order.
func seriesKeys(cfg *Config, rows []Row, categoryField string) []string {
	skip := map[string]bool{categoryField: true, "label": true, "id": true}
	if f, ok := cfg.FieldFor("color"); ok {
		skip[f.Name] = true
	}
	seen := make(map[string]bool)
	var keys []string
	for _, r := range rows {
		for _, k := range r.Keys() {
			if skip[k] || seen[k] {
				continue
			}
			if _, ok := r.Number(k); ok {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}

func renderBar(cfg *Config, rows []Row) *Scene {
	s := newScene(cfg)
	categoryField := cfg.FieldName("x", "category")
	keys := seriesKeys(cfg, rows, categoryField)
	if len(keys) > 1 {
		return renderGroupedBar(cfg, rows, categoryField, keys, s)
	}
	valueField := cfg.FieldName("y", "value")
	if len(keys) == 1 {
		if _, ok := cfg.FieldFor("y"); !ok {
			valueField = keys[0]
		}
	}

	type bar struct {
		category string
		value    float64
		row      Row
	}
	var bars []bar
	for _, r := range rows {
		v, ok := r.Number(valueField)
		if !ok || v < 0 {
			continue
		}
		bars = append(bars, bar{category: labelOr(r, "Unknown", categoryField, "label"), value: v, row: r})
	}
	if len(bars) == 0 {
		return s.noData()
	}
	s.ValidRows = len(bars)

	inner := cfg.Inner()
	cats := make([]string, len(bars))
	maxV := 0.0
	for i, b := range bars {
		cats[i] = b.category
		maxV = math.Max(maxV, b.value)
	}
	if maxV == 0 {
		maxV = 1
	}
	x := NewBand(cats, 0, inner.Width, barPadding)
	y := NewLinear(0, maxV, inner.Height, 0).Nice(10)
	colors := NewOrdinal(Palette(cfg.ColorScheme))

	s.Axes = append(s.Axes, bandAxis(x, inner, cfg.XAxis.Label), linearAxis(AxisLeft, y, inner, cfg.YAxis, nil))
	for i, b := range bars {
		pos, _ := x.Pos(b.category)
		top := y.Map(b.value)
		s.Marks = append(s.Marks, Mark{
			Kind:    MarkRect,
			Role:    "bar",
			Key:     b.category,
			X:       pos,
			Y:       top,
			Width:   x.Bandwidth(),
			Height:  math.Max(0, inner.Height-top),
			Fill:    colors.At(i),
			Opacity: cfg.Opacity,
			Tooltip: rowTooltip(cfg, b.row, b.category, "Value: "+formatNumber(b.value)),
		})
	}
	s.setTitle(cfg, cfg.Margin.Top/2)
	return s
}

func renderGroupedBar(cfg *Config, rows []Row, categoryField string, keys []string, s *Scene) *Scene {
	type group struct {
		category string
		values   []float64
		row      Row
	}
	var groups []group
rowLoop:
	for _, r := range rows {
		vals := make([]float64, len(keys))
		for i, k := range keys {
			v, ok := r.Number(k)
			if !ok || v < 0 {
				continue rowLoop
			}
			vals[i] = v
		}
		groups = append(groups, group{category: labelOr(r, "Unknown", categoryField, "label"), values: vals, row: r})
	}
	if len(groups) == 0 {
		return s.noData()
	}
	s.ValidRows = len(groups)

	inner := cfg.Inner()
	cats := make([]string, len(groups))
	maxV := 0.0
	for i, g := range groups {
		cats[i] = g.category
		for _, v := range g.values {
			maxV = math.Max(maxV, v)
		}
	}
	if maxV == 0 {
		maxV = 1
	}
	x0 := NewBand(cats, 0, inner.Width, barPadding)
	x1 := NewBand(keys, 0, x0.Bandwidth(), groupPadding)
	y := NewLinear(0, maxV, inner.Height, 0).Nice(10)
	colors := NewOrdinal(Palette(cfg.ColorScheme), keys...)

	s.Axes = append(s.Axes, bandAxis(x0, inner, cfg.XAxis.Label), linearAxis(AxisLeft, y, inner, cfg.YAxis, nil))
	for _, g := range groups {
		base, _ := x0.Pos(g.category)
		for i, k := range keys {
			off, _ := x1.Pos(k)
			top := y.Map(g.values[i])
			s.Marks = append(s.Marks, Mark{
				Kind:    MarkRect,
				Role:    "bar",
				Key:     fmt.Sprintf("%s/%s", g.category, k),
				X:       base + off,
				Y:       top,
				Width:   x1.Bandwidth(),
				Height:  math.Max(0, inner.Height-top),
				Fill:    colors.Color(k),
				Opacity: cfg.Opacity,
				Tooltip: rowTooltip(cfg, g.row, g.category, k+": "+formatNumber(g.values[i])),
			})
		}
	}
	s.setTitle(cfg, cfg.Margin.Top/2)
	return s
}
