package chart

import (
	"fmt"
	"math/rand"
	"time"
)

const mockSize = 10

var mockCountries = []string{
	"United States", "China", "Japan", "Germany", "India",
	"United Kingdom", "France", "Italy", "Brazil", "Canada",
}

// MockData synthesises a ten item dataset shaped for the chart kind. Field
// names follow the config's role mapping where one exists. A nil rng uses a
// fixed seed.
func MockData(cfg *Config, rng *rand.Rand) Dataset {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	kind := KindBar
	if cfg != nil {
		kind = cfg.Kind.Policy()
	}
	name := func(role, def string) string {
		if cfg == nil {
			return def
		}
		return cfg.FieldName(role, def)
	}

	switch kind {
	case KindScatter, KindBubble:
		xf, yf, sf, cf := name("x", "x"), name("y", "y"), name("size", "size"), name("color", "category")
		rows := make([]Row, mockSize)
		for i := range rows {
			rows[i] = RowOf(
				xf, rng.Float64()*100,
				yf, rng.Float64()*100,
				sf, rng.Float64()*20+5,
				cf, fmt.Sprintf("Group %d", i%3+1),
			)
		}
		return Dataset{Rows: rows}
	case KindPie, KindDonut:
		lf, vf := name("x", "label"), name("y", "value")
		shares := []struct {
			label string
			value float64
		}{{"A", 30}, {"B", 25}, {"C", 20}, {"D", 15}, {"E", 10}}
		rows := make([]Row, len(shares))
		for i, s := range shares {
			rows[i] = RowOf(lf, s.label, vf, s.value)
		}
		return Dataset{Rows: rows}
	case KindNetwork:
		g := &Graph{}
		for i := 0; i < mockSize; i++ {
			g.Nodes = append(g.Nodes, GraphNode{
				ID:    fmt.Sprintf("Node %d", i+1),
				Group: fmt.Sprint(i%3 + 1),
				Size:  float64(rng.Intn(200) + 50),
				Title: fmt.Sprintf("Node %d", i+1),
			})
		}
		for i := 1; i < mockSize; i++ {
			g.Links = append(g.Links, GraphLink{
				Source: g.Nodes[rng.Intn(i)].ID,
				Target: g.Nodes[i].ID,
				Value:  float64(rng.Intn(10) + 1),
			})
		}
		return Dataset{Graph: g}
	case KindChoropleth:
		lf, mf := name("label", "country"), name("fill", "gdp")
		rows := make([]Row, mockSize)
		for i := range rows {
			rows[i] = RowOf(lf, mockCountries[i], mf, float64(rng.Intn(20_000_000)+100_000))
		}
		return Dataset{Rows: rows}
	default:
		cf, vf := name("x", "category"), name("y", "value")
		start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
		rows := make([]Row, mockSize)
		for i := range rows {
			rows[i] = RowOf(
				cf, fmt.Sprintf("Item %d", i+1),
				vf, float64(rng.Intn(100)+10),
				"date", start.AddDate(0, 0, i),
			)
		}
		return Dataset{Rows: rows}
	}
}

// ResolveDataset picks the data a chart is drawn with: supplied data first,
// then the document's own data section, then mock data. Mock data is only
// used when the document has no data section at all.
func ResolveDataset(cfg *Config, supplied *Dataset, rng *rand.Rand) Dataset {
	if supplied != nil && !supplied.Empty() {
		return *supplied
	}
	if cfg.HasInlineData() {
		return cfg.InlineData()
	}
	return MockData(cfg, rng)
}
