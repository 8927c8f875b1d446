package chart

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, doc string) *Config {
	t.Helper()
	cfg, err := ParseDefinition(doc)
	require.NoError(t, err)
	return cfg
}

func configOf(t *testing.T, kind string) *Config {
	return mustParse(t, `<ChartDefinition><ChartConfig type="`+kind+`" title="Test chart"/></ChartDefinition>`)
}

func TestRender_EveryKindHasARenderer(t *testing.T) {
	for _, k := range Kinds() {
		t.Run(k.String(), func(t *testing.T) {
			cfg := configOf(t, k.String())
			require.Equal(t, k, cfg.Kind)
			var s *Scene
			require.NotPanics(t, func() {
				s = renderWith(cfg, MockData(cfg, rand.New(rand.NewSource(7))), rand.New(rand.NewSource(7)))
			})
			assert.Empty(t, s.Message)
			assert.Positive(t, s.ValidRows)
			assert.NotEmpty(t, s.Marks)
			require.NotNil(t, s.Title)
			assert.Equal(t, cfg.Dimensions.Width/2, s.Title.X)
		})
	}
}

func TestRenderBar_ValidRowCount(t *testing.T) {
	rows := []Row{
		RowOf("category", "A", "value", 10.0),
		RowOf("category", "B", "value", math.NaN()),
		RowOf("category", "C", "value", math.Inf(1)),
		RowOf("category", "D"),
		RowOf("category", "E", "value", -5.0),
		RowOf("category", "F", "value", "abc"),
		RowOf("category", "G", "value", 20.0),
	}
	s := Render(configOf(t, "bar"), Dataset{Rows: rows})

	assert.Equal(t, 2, s.ValidRows)
	bars := s.MarksByRole("bar")
	require.Len(t, bars, 2)
	assert.Equal(t, "A", bars[0].Key)
	assert.Equal(t, "G", bars[1].Key)
	assert.Greater(t, bars[1].Height, bars[0].Height)
	for _, b := range bars {
		assert.GreaterOrEqual(t, b.Y, 0.0)
	}
	require.Len(t, s.Axes, 2)
	assert.Equal(t, AxisBottom, s.Axes[0].Orient)
	assert.Len(t, s.Axes[0].Ticks, 2)
}

func TestRenderBar_GroupedDispatch(t *testing.T) {
	single := Render(configOf(t, "bar"), Dataset{Rows: []Row{
		RowOf("category", "A", "value", 1.0),
		RowOf("category", "B", "value", 2.0),
	}})
	assert.Len(t, single.MarksByRole("bar"), 2)

	rows := []Row{
		RowOf("category", "North", "seriesA", 10.0, "seriesB", 12.0),
		RowOf("category", "South", "seriesA", 7.0, "seriesB", 3.0),
		RowOf("category", "East", "seriesA", 4.0, "seriesB", 9.0),
	}
	grouped := Render(configOf(t, "bar"), Dataset{Rows: rows})
	bars := grouped.MarksByRole("bar")
	require.Len(t, bars, len(rows)*2)
	assert.Equal(t, "North/seriesA", bars[0].Key)
	assert.Equal(t, "North/seriesB", bars[1].Key)
	// Colors follow series position, not value.
	assert.Equal(t, bars[0].Fill, bars[2].Fill)
	assert.Equal(t, bars[1].Fill, bars[3].Fill)
	assert.NotEqual(t, bars[0].Fill, bars[1].Fill)
	assert.Less(t, bars[0].X, bars[1].X)

	again := Render(configOf(t, "bar"), Dataset{Rows: rows})
	assert.Equal(t, grouped.Marks, again.Marks)
}

func TestRenderPie_InsertionOrder(t *testing.T) {
	rows := []Row{
		RowOf("label", "A", "value", 30.0),
		RowOf("label", "B", "value", 25.0),
		RowOf("label", "C", "value", 20.0),
		RowOf("label", "Z", "value", 0.0),
	}
	s := Render(configOf(t, "pie"), Dataset{Rows: rows})
	slices := s.MarksByRole("slice")
	require.Len(t, slices, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{slices[0].Key, slices[1].Key, slices[2].Key})
	assert.Equal(t, 3, s.ValidRows)
	assert.Contains(t, slices[0].Tooltip, "Percentage: 40.0%")

	ascending := Render(configOf(t, "pie"), Dataset{Rows: []Row{
		RowOf("label", "C", "value", 20.0),
		RowOf("label", "A", "value", 30.0),
	}})
	got := ascending.MarksByRole("slice")
	assert.Equal(t, "C", got[0].Key)
	assert.Equal(t, "A", got[1].Key)
}

func TestPieSlices_Angles(t *testing.T) {
	slices := pieSlices([]string{"A", "B", "C"}, []float64{30, 25, 20})
	assert.Equal(t, 0.0, slices[0].StartAngle)
	assert.InDelta(t, 2*math.Pi*30/75, slices[0].EndAngle, 1e-9)
	assert.Equal(t, slices[0].EndAngle, slices[1].StartAngle)
	assert.InDelta(t, 2*math.Pi, slices[2].EndAngle, 1e-9)
}

func TestRenderDonut_InnerRadius(t *testing.T) {
	rows := []Row{RowOf("label", "only", "value", 1.0)}
	pie := Render(configOf(t, "pie"), Dataset{Rows: rows}).MarksByRole("slice")[0]
	donut := Render(configOf(t, "donut"), Dataset{Rows: rows}).MarksByRole("slice")[0]
	// 400x300 → outer radius 130; donut draws a second ring at 52.
	assert.Equal(t, "M0,-130A130,130,0,1,1,0,130A130,130,0,1,1,0,-130Z", pie.Path)
	assert.Contains(t, donut.Path, "M0,-52A52,52,0,1,0,0,52")
}

func TestRenderLine_SkipsInvalidAndSortsDates(t *testing.T) {
	rows := []Row{
		RowOf("category", "c", "value", 3.0, "date", "2024-01-03"),
		RowOf("category", "a", "value", 1.0, "date", "2024-01-01"),
		RowOf("category", "x", "value", math.NaN(), "date", "2024-01-02"),
		RowOf("category", "b", "value", 2.0, "date", "2024-01-02"),
	}
	s := Render(configOf(t, "line"), Dataset{Rows: rows})
	assert.Equal(t, 3, s.ValidRows)
	dots := s.MarksByRole("dot")
	require.Len(t, dots, 3)
	assert.Equal(t, "2024-01-01", dots[0].Key)
	assert.Equal(t, "2024-01-03", dots[2].Key)
	assert.Less(t, dots[0].X, dots[1].X)
	assert.Less(t, dots[1].X, dots[2].X)
	assert.Empty(t, s.MarksByRole("area"))

	area := Render(configOf(t, "area"), Dataset{Rows: rows})
	assert.Len(t, area.MarksByRole("area"), 1)
}

func TestMonotonePath_NoOvershoot(t *testing.T) {
	pts := []point{{0, 0}, {10, 10}, {20, 10}, {30, 0}}
	path := monotonePath(pts)
	assert.True(t, strings.HasPrefix(path, "M0,0C"))
	// The flat segment keeps zero tangents at both ends, so its control points stay at y=10.
	assert.Contains(t, path, "C13.33,10,16.67,10,20,10")
}

func TestRenderScatter_DropsPointsIndividually(t *testing.T) {
	rows := []Row{
		RowOf("x", 1.0, "y", 2.0, "size", 10.0),
		RowOf("x", math.NaN(), "y", 2.0, "size", 10.0),
		RowOf("x", 3.0, "y", 4.0, "size", -1.0),
		RowOf("x", 5.0, "size", 1.0),
		RowOf("x", 6.0, "y", 7.0, "size", 40.0),
	}
	scatter := Render(configOf(t, "scatter"), Dataset{Rows: rows})
	assert.Equal(t, 3, scatter.ValidRows)
	for _, p := range scatter.MarksByRole("point") {
		assert.Equal(t, 6.0, p.R)
	}

	bubble := Render(configOf(t, "bubble"), Dataset{Rows: rows})
	assert.Equal(t, 2, bubble.ValidRows)
	points := bubble.MarksByRole("point")
	require.Len(t, points, 2)
	assert.InDelta(t, 4+26*math.Sqrt(10)/math.Sqrt(40), points[0].R, 1e-9)
	assert.Equal(t, 30.0, points[1].R)
}

func TestRenderScatter_TooltipFormat(t *testing.T) {
	cfg := mustParse(t, bubbleDefinition)
	rows := []Row{RowOf("company", "TechCorp", "revenue", 150.0, "profit", 30.0, "employees", 1200.0, "sector", "Tech")}
	s := Render(cfg, Dataset{Rows: rows})
	points := s.MarksByRole("point")
	require.Len(t, points, 1)
	assert.Equal(t, []string{"Company: TechCorp", "Revenue: 150M"}, points[0].Tooltip)
}

func TestRender_NoValidData(t *testing.T) {
	bad := []Row{RowOf("category", "A", "value", math.NaN()), RowOf("label", "x")}
	for _, kind := range []string{"bar", "line", "pie", "scatter", "bubble", "choropleth", "mystery"} {
		t.Run(kind, func(t *testing.T) {
			s := Render(configOf(t, kind), Dataset{Rows: bad})
			assert.Equal(t, NoDataMessage, s.Message)
			assert.Empty(t, s.Marks)
			assert.Zero(t, s.ValidRows)
			assert.Contains(t, s.SVG(), NoDataMessage)
		})
	}
	network := Render(configOf(t, "network"), Dataset{Graph: &Graph{}})
	assert.Equal(t, NoDataMessage, network.Message)
}

func TestRenderChoropleth_GridAndLegend(t *testing.T) {
	rows := []Row{
		RowOf("country", "United States", "gdp", 21_000_000.0),
		RowOf("country", "China", "gdp", 14_000_000.0),
		RowOf("country", "Japan", "gdp", 5_000_000.0),
		RowOf("country", "Nowhere", "gdp", 0.0),
		RowOf("gdp", 10.0),
		RowOf("country", "Germany", "gdp", 3_800_000.0),
		RowOf("country", "India", "gdp", 2_900_000.0),
	}
	s := Render(configOf(t, "choropleth"), Dataset{Rows: rows})
	assert.Equal(t, 5, s.ValidRows)
	regions := s.MarksByRole("region")
	require.Len(t, regions, 5)
	// Five regions → three columns; the fourth wraps to the second row.
	assert.Equal(t, 0.0, regions[3].X)
	assert.Greater(t, regions[3].Y, 0.0)
	assert.Greater(t, regions[1].X, regions[0].X)
	assert.NotEqual(t, regions[0].Fill, regions[2].Fill)

	labels := s.MarksByRole("label")
	assert.Equal(t, "UNI", labels[0].Text)

	require.NotNil(t, s.Legend)
	assert.Len(t, s.Legend.Stops, 11)
	require.Len(t, s.Legend.Ticks, 5)
	assert.Equal(t, "0.0", s.Legend.Ticks[0].Label)
	assert.Equal(t, "21M", s.Legend.Ticks[4].Label)
	assert.Equal(t, "GDP (Millions USD)", s.Legend.Title)
	assert.Contains(t, s.SVG(), `id="legend-gradient"`)
}

func TestFormatSI(t *testing.T) {
	tests := map[float64]string{
		0:         "0.0",
		1_234_567: "1.2M",
		2_500_000: "2.5M",
		45_000:    "45k",
		5:         "5.0",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatSI(in), "FormatSI(%v)", in)
	}
}

func TestRenderDocument_InvalidPlaceholder(t *testing.T) {
	s, err := RenderDocument("<broken", nil, Options{Width: 320, Height: 200})
	assert.ErrorIs(t, err, ErrInvalidDefinition)
	require.NotNil(t, s)
	assert.Equal(t, InvalidConfigMessage, s.Message)
	assert.Equal(t, 320.0, s.Width)
	assert.Contains(t, s.SVG(), InvalidConfigMessage)

	s, err = RenderDocument(lineDefinition, nil, Options{Width: 800, Rand: rand.New(rand.NewSource(3))})
	require.NoError(t, err)
	assert.Equal(t, 800.0, s.Width)
	assert.Equal(t, 400.0, s.Height)
	assert.Equal(t, 10, s.ValidRows)
}

func TestScene_TooltipLifecycle(t *testing.T) {
	s := Render(configOf(t, "bar"), Dataset{Rows: []Row{RowOf("category", "A", "value", 4.0)}})

	_, ok := s.Tooltip()
	assert.False(t, ok)
	require.True(t, s.PointerEnter(0, 100, 50))
	tip, ok := s.Tooltip()
	require.True(t, ok)
	assert.True(t, tip.Visible)
	assert.Equal(t, 110.0, tip.X)
	assert.Equal(t, 40.0, tip.Y)
	assert.Equal(t, []string{"A", "Value: 4"}, tip.Lines)

	s.PointerMove(120, 60)
	tip, _ = s.Tooltip()
	assert.Equal(t, 130.0, tip.X)

	s.PointerLeave()
	tip, _ = s.Tooltip()
	assert.False(t, tip.Visible)

	s.Teardown()
	_, ok = s.Tooltip()
	assert.False(t, ok)
	assert.True(t, s.TornDown())
	assert.False(t, s.PointerEnter(0, 1, 1))
	_, ok = s.Tooltip()
	assert.False(t, ok)
}

func TestScene_TooltipsDisabled(t *testing.T) {
	cfg := mustParse(t, `<ChartDefinition><ChartConfig type="bar"/><Interactions><Tooltip enabled="false"/></Interactions></ChartDefinition>`)
	s := Render(cfg, Dataset{Rows: []Row{RowOf("category", "A", "value", 4.0)}})
	assert.False(t, s.PointerEnter(0, 1, 1))
	assert.NotContains(t, s.SVG(), "<title>")
}

func TestScene_SVGEscapesText(t *testing.T) {
	cfg := mustParse(t, `<ChartDefinition><ChartConfig type="bar" title="R&amp;D &lt;2024&gt;"/></ChartDefinition>`)
	s := Render(cfg, Dataset{Rows: []Row{RowOf("category", "A&B", "value", 1.0)}})
	svg := s.SVG()
	assert.Contains(t, svg, "R&amp;D &lt;2024&gt;")
	assert.Contains(t, svg, "A&amp;B")
	assert.True(t, strings.HasPrefix(svg, "<svg"))
	assert.True(t, strings.HasSuffix(svg, "</svg>"))
}
