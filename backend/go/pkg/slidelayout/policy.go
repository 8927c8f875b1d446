package slidelayout

// Mode names the arrangement chosen for a slide.
type Mode int

const (
	ModeStacked Mode = iota
	ModeOneChart
	ModeTwoCharts
)

func (m Mode) String() string {
	switch m {
	case ModeOneChart:
		return "one-chart"
	case ModeTwoCharts:
		return "two-charts"
	}
	return "stacked"
}

// GridArea places a top-level node in the slide grid. Rows and columns are
// zero based.
type GridArea struct {
	Row     int `json:"row"`
	Column  int `json:"column"`
	RowSpan int `json:"rowSpan"`
	ColSpan int `json:"colSpan"`
}

// Arrangement is a policy decision: the column count and one area per
// top-level node, in document order.
type Arrangement struct {
	Mode    Mode       `json:"mode"`
	Columns int        `json:"columns"`
	Areas   []GridArea `json:"areas"`
}

// Policy decides where the top-level nodes of a slide go.
type Policy interface {
	Arrange(nodes []Node) Arrangement
}

// StackedPolicy keeps every node in a single column in document order.
type StackedPolicy struct{}

// Arrange implements Policy.
func (StackedPolicy) Arrange(nodes []Node) Arrangement {
	a := Arrangement{Mode: ModeStacked, Columns: 1, Areas: make([]GridArea, len(nodes))}
	for i := range nodes {
		a.Areas[i] = GridArea{Row: i, RowSpan: 1, ColSpan: 1}
	}
	return a
}

// AdaptivePolicy switches to a two column grid when a slide has one or two
// charts among its direct children:
//
//   - one chart: headings span the top, nodes before the chart fill the left
//     column, the chart takes the right column, later nodes span below;
//   - two charts: headings span the top, earlier nodes fill leading cells,
//     the charts sit side by side, later nodes span below;
//   - anything else is stacked.
type AdaptivePolicy struct{}

// Arrange implements Policy.
func (AdaptivePolicy) Arrange(nodes []Node) Arrangement {
	var charts []int
	for i, n := range nodes {
		if n.Kind == KindChart {
			charts = append(charts, i)
		}
	}
	switch len(charts) {
	case 1:
		return arrangeOneChart(nodes, charts[0])
	case 2:
		return arrangeTwoCharts(nodes, charts[0], charts[1])
	default:
		return StackedPolicy{}.Arrange(nodes)
	}
}

func arrangeOneChart(nodes []Node, chart int) Arrangement {
	a := Arrangement{Mode: ModeOneChart, Columns: 2, Areas: make([]GridArea, len(nodes))}
	row := placeHeadings(nodes, a.Areas)

	left := 0
	for i := 0; i < chart; i++ {
		if nodes[i].IsHeading() {
			continue
		}
		a.Areas[i] = GridArea{Row: row + left, Column: 0, RowSpan: 1, ColSpan: 1}
		left++
	}
	span := max(1, left)
	a.Areas[chart] = GridArea{Row: row, Column: 1, RowSpan: span, ColSpan: 1}
	row += span

	placeFooter(nodes, a.Areas, chart+1, row)
	return a
}

func arrangeTwoCharts(nodes []Node, first, second int) Arrangement {
	a := Arrangement{Mode: ModeTwoCharts, Columns: 2, Areas: make([]GridArea, len(nodes))}
	row := placeHeadings(nodes, a.Areas)

	cell := 0
	for i := 0; i < first; i++ {
		if nodes[i].IsHeading() {
			continue
		}
		a.Areas[i] = GridArea{Row: row + cell/2, Column: cell % 2, RowSpan: 1, ColSpan: 1}
		cell++
	}
	row += (cell + 1) / 2

	a.Areas[first] = GridArea{Row: row, Column: 0, RowSpan: 1, ColSpan: 1}
	a.Areas[second] = GridArea{Row: row, Column: 1, RowSpan: 1, ColSpan: 1}
	row++

	// Nodes between the charts follow them, spanning both columns.
	row = placeFooter(nodes[:second], a.Areas[:second], first+1, row)
	placeFooter(nodes, a.Areas, second+1, row)
	return a
}

// placeHeadings gives every heading a full-width row at the top and returns
// the first free row.
func placeHeadings(nodes []Node, areas []GridArea) int {
	row := 0
	for i, n := range nodes {
		if n.IsHeading() {
			areas[i] = GridArea{Row: row, Column: 0, RowSpan: 1, ColSpan: 2}
			row++
		}
	}
	return row
}

// placeFooter stacks the non-heading nodes from index start onwards in
// full-width rows and returns the first free row.
func placeFooter(nodes []Node, areas []GridArea, start, row int) int {
	for i := start; i < len(nodes); i++ {
		if nodes[i].IsHeading() {
			continue
		}
		areas[i] = GridArea{Row: row, Column: 0, RowSpan: 1, ColSpan: 2}
		row++
	}
	return row
}
