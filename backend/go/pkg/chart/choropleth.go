package chart

import (
	"math"
	"strings"
	"unicode/utf8"
)

const (
	legendWidth  = 200
	legendHeight = 20
	legendStops  = 11
	legendTicks  = 5
	cellGap      = 4
)

func renderChoropleth(cfg *Config, rows []Row) *Scene {
	s := newScene(cfg)
	valueField := cfg.FieldName("fill", "gdp")
	labelField := cfg.FieldName("label", "country")

	type region struct {
		label string
		value float64
		row   Row
	}
	var regions []region
	for _, r := range rows {
		v, ok := r.Number(valueField)
		if !ok || v <= 0 {
			continue
		}
		label := labelOr(r, "", labelField, "name", "label", "category")
		if label == "" {
			continue
		}
		regions = append(regions, region{label: label, value: v, row: r})
	}
	if len(regions) == 0 {
		return s.noData()
	}
	s.ValidRows = len(regions)

	maxV := 0.0
	for _, rg := range regions {
		maxV = math.Max(maxV, rg.value)
	}
	scheme := cfg.ColorScheme
	if _, ok := sequentialSchemes[schemeKey(scheme)]; !ok {
		scheme = "blues"
	}
	color := NewSequential(scheme, 0, maxV)

	inner := cfg.Inner()
	cols := int(math.Ceil(math.Sqrt(float64(len(regions)))))
	rowsN := int(math.Ceil(float64(len(regions)) / float64(cols)))
	cellW := inner.Width / float64(cols)
	cellH := inner.Height / float64(rowsN)
	title := "GDP (Millions USD)"
	if f, ok := cfg.FieldFor("fill"); ok && f.Title != "" {
		title = f.Title
	}

	for i, rg := range regions {
		col, row := i%cols, i/cols
		x := float64(col) * cellW
		y := float64(row) * cellH
		w := math.Max(0, cellW-cellGap)
		h := math.Max(0, cellH-cellGap)
		s.Marks = append(s.Marks, Mark{
			Kind:    MarkRect,
			Role:    "region",
			Key:     rg.label,
			X:       x,
			Y:       y,
			Width:   w,
			Height:  h,
			Fill:    color.Color(rg.value),
			Stroke:  "#fff",
			Tooltip: rowTooltip(cfg, rg.row, rg.label, title+": "+FormatSI(rg.value)),
		})
		s.Marks = append(s.Marks, Mark{
			Kind:     MarkText,
			Role:     "label",
			Key:      rg.label,
			X:        x + w/2,
			Y:        y + h/2,
			Text:     abbreviate(rg.label),
			FontSize: 10,
			Fill:     "#333",
		})
	}

	legend := &Legend{
		X:      cfg.Dimensions.Width - legendWidth - 20,
		Y:      cfg.Dimensions.Height - 40,
		Width:  legendWidth,
		Height: legendHeight,
		Title:  title,
	}
	for i := 0; i < legendStops; i++ {
		t := float64(i) / (legendStops - 1)
		legend.Stops = append(legend.Stops, GradientStop{Offset: t, Color: color.At(t)})
	}
	for i := 0; i < legendTicks; i++ {
		t := float64(i) / (legendTicks - 1)
		legend.Ticks = append(legend.Ticks, Tick{Offset: t * legendWidth, Label: FormatSI(t * maxV)})
	}
	s.Legend = legend
	s.setTitle(cfg, cfg.Margin.Top/2)
	return s
}

// abbreviate keeps the first three letters of a name, upper-cased.
func abbreviate(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > 3 {
		name = string([]rune(name)[:3])
	}
	return strings.ToUpper(name)
}
