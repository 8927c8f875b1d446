package chart

import (
	"fmt"
	"math"
	"strings"
)

const donutRatio = 0.4

// Slice is one wedge of a pie, with angles in radians clockwise from twelve o'clock.
type Slice struct {
	Label      string
	Value      float64
	StartAngle float64
	EndAngle   float64
}

// pieSlices lays values out in input order; they are never sorted.
func pieSlices(labels []string, values []float64) []Slice {
	total := 0.0
	for _, v := range values {
		total += v
	}
	slices := make([]Slice, len(values))
	angle := 0.0
	for i, v := range values {
		span := 0.0
		if total > 0 {
			span = v / total * 2 * math.Pi
		}
		slices[i] = Slice{Label: labels[i], Value: v, StartAngle: angle, EndAngle: angle + span}
		angle += span
	}
	return slices
}

func renderPie(cfg *Config, rows []Row) *Scene {
	s := newScene(cfg)
	labelField := cfg.FieldName("x", "label")
	valueField := cfg.FieldName("y", "value")

	var (
		labels []string
		values []float64
		valid  []Row
	)
	for _, r := range rows {
		v, ok := r.Number(valueField)
		if !ok || v <= 0 {
			continue
		}
		labels = append(labels, labelOr(r, "Unknown", labelField, "label", "category"))
		values = append(values, v)
		valid = append(valid, r)
	}
	if len(valid) == 0 {
		return s.noData()
	}
	s.ValidRows = len(valid)

	w, h := cfg.Dimensions.Width, cfg.Dimensions.Height
	s.OriginX, s.OriginY = w/2, h/2
	outer := math.Max(0, math.Min(w, h)/2-20)
	inner := 0.0
	if cfg.Kind == KindDonut {
		inner = outer * donutRatio
	}

	total := 0.0
	for _, v := range values {
		total += v
	}
	colors := NewOrdinal(Palette(cfg.ColorScheme))
	slices := pieSlices(labels, values)
	for i, sl := range slices {
		pct := sl.Value / total * 100
		s.Marks = append(s.Marks, Mark{
			Kind:        MarkPath,
			Role:        "slice",
			Key:         sl.Label,
			Path:        arcPath(inner, outer, sl.StartAngle, sl.EndAngle),
			Fill:        colors.Color(sl.Label),
			Stroke:      "#fff",
			StrokeWidth: 2,
			Opacity:     cfg.Opacity,
			Tooltip: rowTooltip(cfg, valid[i], sl.Label,
				"Value: "+formatNumber(sl.Value),
				fmt.Sprintf("Percentage: %.1f%%", pct)),
		})
	}
	for _, sl := range slices {
		cx, cy := arcCentroid(inner, outer, sl.StartAngle, sl.EndAngle)
		s.Marks = append(s.Marks, Mark{Kind: MarkText, Role: "label", Key: sl.Label, X: cx, Y: cy, Text: sl.Label, FontSize: 12, Fill: "#fff"})
	}
	s.setTitle(cfg, 20)
	return s
}

func arcPoint(r, a float64) (float64, float64) {
	return r * math.Sin(a), -r * math.Cos(a)
}

func arcCentroid(r0, r1, a0, a1 float64) (float64, float64) {
	return arcPoint((r0+r1)/2, (a0+a1)/2)
}

// arcPath draws an annular sector. An inner radius of zero gives a pie wedge.
func arcPath(r0, r1, a0, a1 float64) string {
	var b strings.Builder
	da := a1 - a0
	if r1 <= 0 || da <= 0 {
		return "M0,0Z"
	}
	if da >= 2*math.Pi-1e-9 {
		// A full turn needs two half arcs; SVG cannot draw a closed arc in one.
		fmt.Fprintf(&b, "M0,%sA%s,%s,0,1,1,0,%sA%s,%s,0,1,1,0,%s",
			num(-r1), num(r1), num(r1), num(r1), num(r1), num(r1), num(-r1))
		if r0 > 0 {
			fmt.Fprintf(&b, "M0,%sA%s,%s,0,1,0,0,%sA%s,%s,0,1,0,0,%s",
				num(-r0), num(r0), num(r0), num(r0), num(r0), num(r0), num(-r0))
		}
		b.WriteString("Z")
		return b.String()
	}
	large := 0
	if da > math.Pi {
		large = 1
	}
	x0, y0 := arcPoint(r1, a0)
	x1, y1 := arcPoint(r1, a1)
	fmt.Fprintf(&b, "M%s,%sA%s,%s,0,%d,1,%s,%s", num(x0), num(y0), num(r1), num(r1), large, num(x1), num(y1))
	if r0 > 0 {
		x2, y2 := arcPoint(r0, a1)
		x3, y3 := arcPoint(r0, a0)
		fmt.Fprintf(&b, "L%s,%sA%s,%s,0,%d,0,%s,%s", num(x2), num(y2), num(r0), num(r0), large, num(x3), num(y3))
	} else {
		b.WriteString("L0,0")
	}
	b.WriteString("Z")
	return b.String()
}
