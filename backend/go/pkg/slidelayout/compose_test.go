package slidelayout

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidecraft/backend/go/pkg/chart"
)

const revenueChart = `<ChartDefinition>
  <ChartConfig type="bar" title="Revenue">
    <Data><DataSource type="external" dataId="revenue-data"/></Data>
  </ChartConfig>
</ChartDefinition>`

func testResources() Resources {
	return Resources{
		TextComponents: map[string]string{
			"t-title": `<TextComponent><Content><Text>Q1 Review</Text></Content></TextComponent>`,
			"t-empty": `<TextComponent><Content><PlaceholderText>Write here</PlaceholderText></Content></TextComponent>`,
			"t-bad":   `<TextComponent>`,
		},
		Charts: map[string]string{"revenue": revenueChart},
		Data: map[string]chart.Dataset{
			"revenue-data": {Rows: []chart.Row{
				chart.RowOf("category", "Jan", "value", 10.0),
				chart.RowOf("category", "Feb", "value", 12.0),
			}},
		},
	}
}

func TestComposer_ResolveText(t *testing.T) {
	c := NewComposer(testResources())
	comp := c.ComposeDocument(`<Slide>
  <Title textId="t-title" placeholder="unused"/>
  <Text textId="t-empty"/>
  <Text textId="t-missing" placeholder="Fallback"/>
  <Text textId="t-title">Inline wins</Text>
  <Text textId="t-bad" placeholder="Broken"/>
</Slide>`)

	require.Empty(t, comp.Message)
	require.Len(t, comp.Elements, 5)
	assert.Equal(t, "Q1 Review", comp.Elements[0].Text)
	assert.Equal(t, "h1", comp.Elements[0].Tag)
	assert.Equal(t, "Write here", comp.Elements[1].Text)
	assert.Equal(t, "Fallback", comp.Elements[2].Text)
	assert.Equal(t, "Inline wins", comp.Elements[3].Text)
	assert.Equal(t, "Broken", comp.Elements[4].Text)
	require.Len(t, comp.Warnings, 1)
	assert.Contains(t, comp.Warnings[0], "t-bad")
}

func TestComposer_ChartFromResources(t *testing.T) {
	comp := NewComposer(testResources()).ComposeDocument(`<Slide id="s1">
  <Title>Revenue</Title>
  <Chart chartId="revenue"/>
</Slide>`)

	assert.Equal(t, ModeOneChart, comp.Arrangement.Mode)
	require.Len(t, comp.Elements, 2)
	el := comp.Elements[1]
	require.NotNil(t, el.Scene)
	assert.False(t, el.Fallback)
	assert.Len(t, el.Scene.MarksByRole("bar"), 2)
	assert.Equal(t, "Jan", el.Scene.MarksByRole("bar")[0].Key)

	// Two columns of (960 - 32) / 2 each; height never drops below 300.
	assert.InDelta(t, 464, el.Scene.Width, 1e-9)
	assert.InDelta(t, 300, el.Scene.Height, 1e-9)
	require.NotNil(t, el.Area)
	assert.Equal(t, 1, el.Area.Column)
	assert.Empty(t, comp.Warnings)
}

func TestComposer_StackedChartIsFullWidth(t *testing.T) {
	comp := NewComposer(testResources(), WithPolicy(StackedPolicy{}), WithViewport(1200)).
		ComposeDocument(`<Slide><Chart chartId="revenue"/></Slide>`)
	s := comp.Elements[0].Scene
	require.NotNil(t, s)
	assert.InDelta(t, 1200, s.Width, 1e-9)
	assert.InDelta(t, 720, s.Height, 1e-9)
}

func TestComposer_MissingDataSourceFallsBackToMock(t *testing.T) {
	res := testResources()
	res.Data = nil
	comp := NewComposer(res).ComposeDocument(`<Slide><Chart chartId="revenue"/></Slide>`)
	el := comp.Elements[0]
	require.NotNil(t, el.Scene)
	assert.NotEmpty(t, el.Scene.Marks)
	require.Len(t, comp.Warnings, 1)
	assert.Contains(t, comp.Warnings[0], "revenue-data")
}

func TestComposer_ChartPlaceholder(t *testing.T) {
	comp := NewComposer(Resources{}).ComposeDocument(
		`<Slide><Chart chartId="nowhere" type="bubble" placeholder="Company bubbles"/></Slide>`)
	el := comp.Elements[0]
	assert.True(t, el.Fallback)
	assert.Nil(t, el.Scene)
	assert.Equal(t, "Bubble Chart", el.Text)
	assert.Equal(t, "Company bubbles", el.Caption)
}

func TestComposer_InvalidChartDocument(t *testing.T) {
	res := Resources{Charts: map[string]string{"broken": "<ChartDefinition>"}}
	comp := NewComposer(res).ComposeDocument(`<Slide><Chart chartId="broken"/></Slide>`)
	el := comp.Elements[0]
	require.NotNil(t, el.Scene)
	assert.Equal(t, chart.InvalidConfigMessage, el.Scene.Message)
	assert.Len(t, comp.Warnings, 1)
}

func TestComposer_InlineChartIgnoresDataMap(t *testing.T) {
	comp := NewComposer(testResources()).ComposeDocument(`<Slide><Chart>` + revenueChart + `</Chart></Slide>`)
	el := comp.Elements[0]
	require.NotNil(t, el.Scene)
	assert.Empty(t, comp.Warnings)
	for _, m := range el.Scene.MarksByRole("bar") {
		assert.NotEqual(t, "Jan", m.Key)
	}
}

func TestComposer_Messages(t *testing.T) {
	c := NewComposer(Resources{})
	assert.Equal(t, LoadingMessage, c.ComposeDocument("").Message)
	assert.Equal(t, InvalidLayoutMessage, c.ComposeDocument("<Slide>").Message)
	assert.Equal(t, NoSlideMessage, c.ComposeDocument("<Deck/>").Message)
}

func TestComposer_ContainerChildrenHaveNoArea(t *testing.T) {
	comp := NewComposer(Resources{}).ComposeDocument(
		`<Slide><Container><Text>a</Text><Image alt="x"/></Container></Slide>`)
	box := comp.Elements[0]
	require.Len(t, box.Children, 2)
	assert.Nil(t, box.Children[0].Area)
	assert.Equal(t, ImagePlaceholderSrc, box.Children[1].Src)
}

func TestListItems(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"• One\n- Two\n* Three", []string{"One", "Two", "Three"}},
		{`1. First\n2. Second`, []string{"First", "Second"}},
		{"\n\n  \nsolo\n", []string{"solo"}},
		{"", nil},
		{"- 3. both", []string{"both"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ListItems(tt.in), tt.in)
	}
}

func TestChartLabel(t *testing.T) {
	assert.Equal(t, "Bar Chart", ChartLabel(""))
	assert.Equal(t, "Network Chart", ChartLabel("network"))
}

func TestComposition_HTML(t *testing.T) {
	comp := NewComposer(testResources()).ComposeDocument(`<Slide id="s1" classes="dark">
  <Title>Q1 &lt;script&gt;</Title>
  <List ordered="true">1. a\n2. b</List>
  <Chart chartId="revenue"/>
  <Chart chartId="gone" type="pie" placeholder="Share"/>
</Slide>`)
	comp.Notes = "Speak to **growth**.\n\n<script>alert(1)</script>"

	out, err := comp.HTML()
	require.NoError(t, err)

	assert.Contains(t, out, `data-slide-id="s1"`)
	assert.Contains(t, out, `data-layout="two-charts"`)
	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "Q1 &lt;script&gt;")
	assert.Contains(t, out, "<ol")
	assert.Contains(t, out, "<li>b</li>")
	assert.Contains(t, out, "<svg")
	assert.Contains(t, out, "dashed")
	assert.Contains(t, out, "Pie Chart")
	assert.Contains(t, out, "<strong>growth</strong>")
	assert.NotContains(t, out, "<script>")
	assert.Equal(t, 1, strings.Count(out, `<aside class="notes">`))
}

func TestRenderNotes_Links(t *testing.T) {
	out := string(renderNotes("[click](javascript:alert(1)) and [docs](https://example.com/q1)"))
	assert.NotContains(t, out, "javascript:")
	assert.Contains(t, out, "click")
	assert.Contains(t, out, `href="https://example.com/q1"`)
	assert.Contains(t, out, `rel="nofollow"`)
}

func TestComposition_HTMLMessage(t *testing.T) {
	out, err := NewComposer(Resources{}).ComposeDocument("").HTML()
	require.NoError(t, err)
	assert.Contains(t, out, LoadingMessage)
	assert.NotContains(t, out, "display:grid")
}
