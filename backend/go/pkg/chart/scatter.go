package chart

import (
	"math"
)

const (
	scatterRadius   = 6
	bubbleMinRadius = 4
	bubbleMaxRadius = 30
	scatterOpacity  = 0.7
)

func renderScatter(cfg *Config, rows []Row) *Scene {
	s := newScene(cfg)
	xField := cfg.FieldName("x", "x")
	yField := cfg.FieldName("y", "y")
	sizeField := cfg.FieldName("size", "size")
	colorField := cfg.FieldName("color", "category")
	bubble := cfg.Kind == KindBubble

	type sample struct {
		x, y, size float64
		row        Row
	}
	var samples []sample
	for _, r := range rows {
		x, okX := r.Number(xField)
		y, okY := r.Number(yField)
		if !okX || !okY {
			continue
		}
		smp := sample{x: x, y: y, row: r}
		if bubble {
			size, ok := r.Number(sizeField)
			if !ok || size <= 0 {
				continue
			}
			smp.size = size
		}
		samples = append(samples, smp)
	}
	if len(samples) == 0 {
		return s.noData()
	}
	s.ValidRows = len(samples)

	inner := cfg.Inner()
	xs := make([]float64, len(samples))
	ys := make([]float64, len(samples))
	sizes := make([]float64, len(samples))
	for i, smp := range samples {
		xs[i], ys[i], sizes[i] = smp.x, smp.y, smp.size
	}
	xlo, xhi := extent(xs)
	ylo, yhi := extent(ys)
	x := NewLinear(xlo, xhi, 0, inner.Width).Nice(10)
	y := NewLinear(ylo, yhi, inner.Height, 0).Nice(10)
	_, smax := extent(sizes)
	r := NewSqrt(0, smax, bubbleMinRadius, bubbleMaxRadius)
	colors := NewOrdinal(Palette(cfg.ColorScheme))

	s.Axes = append(s.Axes, linearAxis(AxisBottom, x, inner, cfg.XAxis, nil), linearAxis(AxisLeft, y, inner, cfg.YAxis, nil))

	xTitle := fieldTitle(cfg, "x", "X")
	yTitle := fieldTitle(cfg, "y", "Y")
	for _, smp := range samples {
		radius := float64(scatterRadius)
		if bubble {
			radius = math.Max(bubbleMinRadius, r.Map(smp.size))
		}
		name := labelOr(smp.row, "Item", "company", "name", "label")
		lines := []string{name, xTitle + ": " + formatNumber(smp.x), yTitle + ": " + formatNumber(smp.y)}
		if bubble {
			lines = append(lines, fieldTitle(cfg, "size", "Size")+": "+formatNumber(smp.size))
		}
		s.Marks = append(s.Marks, Mark{
			Kind:    MarkCircle,
			Role:    "point",
			Key:     name,
			X:       x.Map(smp.x),
			Y:       y.Map(smp.y),
			R:       radius,
			Fill:    colors.Color(labelOr(smp.row, "", colorField)),
			Stroke:  "#fff",
			Opacity: scatterOpacity,
			Tooltip: rowTooltip(cfg, smp.row, lines...),
		})
	}
	s.setTitle(cfg, cfg.Margin.Top/2)
	return s
}

// fieldTitle names a role in tooltips: its title, else its field name, else def.
func fieldTitle(cfg *Config, role, def string) string {
	if f, ok := cfg.FieldFor(role); ok {
		if l := f.Label(); l != "" {
			return l
		}
	}
	return def
}
