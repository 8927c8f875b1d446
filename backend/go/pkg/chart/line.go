package chart

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

type point struct {
	x, y float64
}

// xMode says what drives the horizontal position of a line sample.
type xMode int

const (
	xIndex xMode = iota
	xNumber
	xDate
)

func renderLine(cfg *Config, rows []Row) *Scene {
	s := newScene(cfg)
	valueField := cfg.FieldName("y", "value")

	var valid []Row
	for _, r := range rows {
		if _, ok := r.Number(valueField); ok {
			valid = append(valid, r)
		}
	}
	if len(valid) == 0 {
		return s.noData()
	}
	s.ValidRows = len(valid)

	mode, xField := lineXMode(cfg, valid)
	xs := make([]float64, len(valid))
	for i, r := range valid {
		switch mode {
		case xNumber:
			xs[i], _ = r.Number(xField)
		case xDate:
			t, _ := r.Time(xField)
			xs[i] = float64(t.UnixMilli())
		default:
			xs[i] = float64(i)
		}
	}
	order := make([]int, len(valid))
	for i := range order {
		order[i] = i
	}
	if mode != xIndex {
		sort.SliceStable(order, func(a, b int) bool { return xs[order[a]] < xs[order[b]] })
	}

	inner := cfg.Inner()
	ys := make([]float64, len(valid))
	for i, r := range valid {
		ys[i], _ = r.Number(valueField)
	}
	xlo, xhi := extent(xs)
	ylo, yhi := extent(ys)
	x := NewLinear(xlo, xhi, 0, inner.Width)
	y := NewLinear(ylo, yhi, inner.Height, 0).Nice(10)

	var xFormat func(float64) string
	if mode == xDate {
		xFormat = func(v float64) string { return time.UnixMilli(int64(v)).UTC().Format("Jan 2") }
	}
	s.Axes = append(s.Axes, linearAxis(AxisBottom, x, inner, cfg.XAxis, xFormat), linearAxis(AxisLeft, y, inner, cfg.YAxis, nil))

	pts := make([]point, len(order))
	for i, idx := range order {
		pts[i] = point{x: x.Map(xs[idx]), y: y.Map(ys[idx])}
	}
	color := Palette(cfg.ColorScheme)[0]
	line := monotonePath(pts)
	if cfg.Kind == KindArea {
		area := line + fmt.Sprintf("L%s,%sL%s,%sZ", num(pts[len(pts)-1].x), num(inner.Height), num(pts[0].x), num(inner.Height))
		s.Marks = append(s.Marks, Mark{Kind: MarkPath, Role: "area", Path: area, Fill: color, Opacity: 0.3})
	}
	s.Marks = append(s.Marks, Mark{Kind: MarkPath, Role: "line", Path: line, Stroke: color, StrokeWidth: 2})
	for i, idx := range order {
		r := valid[idx]
		label := labelOr(r, fmt.Sprintf("Point %d", idx+1), cfg.FieldName("x", "category"), "label")
		if mode == xDate {
			label = time.UnixMilli(int64(xs[idx])).UTC().Format("2006-01-02")
		}
		s.Marks = append(s.Marks, Mark{
			Kind:    MarkCircle,
			Role:    "dot",
			Key:     label,
			X:       pts[i].x,
			Y:       pts[i].y,
			R:       4,
			Fill:    color,
			Tooltip: rowTooltip(cfg, r, label, "Value: "+formatNumber(ys[idx])),
		})
	}
	s.setTitle(cfg, cfg.Margin.Top/2)
	return s
}

func lineXMode(cfg *Config, rows []Row) (xMode, string) {
	candidates := []string{}
	if f, ok := cfg.FieldFor("x"); ok {
		candidates = append(candidates, f.Name)
	}
	candidates = append(candidates, "date", "x")
	for _, name := range candidates {
		allNum, allDate := true, true
		for _, r := range rows {
			v, present := r.Get(name)
			if !present {
				allNum, allDate = false, false
				break
			}
			if _, ok := r.Number(name); !ok {
				allNum = false
			}
			if _, isString := v.(string); isString && allNum {
				allNum = false
			}
			if _, ok := r.Time(name); !ok {
				allDate = false
			}
		}
		switch {
		case allNum:
			return xNumber, name
		case allDate:
			return xDate, name
		}
	}
	return xIndex, ""
}

// monotonePath builds a cubic path through the points that preserves
// monotonicity between samples, so the curve never overshoots the data.
func monotonePath(pts []point) string {
	var b strings.Builder
	if len(pts) == 0 {
		return ""
	}
	fmt.Fprintf(&b, "M%s,%s", num(pts[0].x), num(pts[0].y))
	if len(pts) == 1 {
		return b.String()
	}
	if len(pts) == 2 {
		fmt.Fprintf(&b, "L%s,%s", num(pts[1].x), num(pts[1].y))
		return b.String()
	}
	n := len(pts)
	tangents := make([]float64, n)
	for i := 1; i < n-1; i++ {
		tangents[i] = slope3(pts[i-1], pts[i], pts[i+1])
	}
	tangents[0] = slope2(pts[0], pts[1], tangents[1])
	tangents[n-1] = slope2(pts[n-2], pts[n-1], tangents[n-2])
	for i := 0; i < n-1; i++ {
		p0, p1 := pts[i], pts[i+1]
		dx := (p1.x - p0.x) / 3
		fmt.Fprintf(&b, "C%s,%s,%s,%s,%s,%s",
			num(p0.x+dx), num(p0.y+dx*tangents[i]),
			num(p1.x-dx), num(p1.y-dx*tangents[i+1]),
			num(p1.x), num(p1.y))
	}
	return b.String()
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// slope3 is the tangent at p1 given its neighbours (Steffen 1990).
func slope3(p0, p1, p2 point) float64 {
	h0 := p1.x - p0.x
	h1 := p2.x - p1.x
	s0 := safeDiv(p1.y-p0.y, h0, h1 < 0)
	s1 := safeDiv(p2.y-p1.y, h1, h0 < 0)
	p := (s0*h1 + s1*h0) / (h0 + h1)
	v := (sign(s0) + sign(s1)) * math.Min(math.Min(math.Abs(s0), math.Abs(s1)), 0.5*math.Abs(p))
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// slope2 is the one-sided tangent at an end point.
func slope2(p0, p1 point, t float64) float64 {
	h := p1.x - p0.x
	if h == 0 {
		return t
	}
	return (3*(p1.y-p0.y)/h - t) / 2
}

func safeDiv(num, den float64, negZero bool) float64 {
	if den == 0 {
		if negZero {
			den = math.Copysign(0, -1)
		}
	}
	return num / den
}
