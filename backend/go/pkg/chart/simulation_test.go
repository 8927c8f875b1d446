package chart

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orgGraph() *Graph {
	return &Graph{
		Nodes: []GraphNode{
			{ID: "CEO", Group: "1", Size: 30},
			{ID: "CTO", Group: "2", Size: 25},
			{ID: "CFO", Group: "2", Size: 25},
			{ID: "VP_Eng", Group: "2", Size: 20},
		},
		Links: []GraphLink{
			{Source: "CEO", Target: "CTO", Value: 5},
			{Source: "CEO", Target: "CFO", Value: 5},
			{Source: "CTO", Target: "VP_Eng", Value: 3},
			{Source: "CTO", Target: "Ghost", Value: 1},
		},
	}
}

func TestSimulation_DropsUnresolvedLinks(t *testing.T) {
	sim, dropped := NewSimulation(orgGraph(), DefaultForces(), 400, 300, rand.New(rand.NewSource(1)))
	assert.Equal(t, 1, dropped)
	assert.Len(t, sim.links, 3)
	assert.Len(t, sim.Positions(), 4)
}

func TestSimulation_Settles(t *testing.T) {
	sim, _ := NewSimulation(orgGraph(), DefaultForces(), 400, 300, rand.New(rand.NewSource(1)))
	n := sim.Run(1000)
	assert.LessOrEqual(t, n, maxWarmupTicks+1)
	assert.Less(t, sim.Alpha(), alphaMin)
	assert.False(t, sim.Running())
	assert.False(t, sim.Step())

	var cx, cy float64
	for _, p := range sim.Positions() {
		require.False(t, math.IsNaN(p.X) || math.IsNaN(p.Y))
		cx += p.X
		cy += p.Y
	}
	assert.InDelta(t, 200, cx/4, 1)
	assert.InDelta(t, 150, cy/4, 1)

	ceo, _ := sim.Node("CEO")
	cto, _ := sim.Node("CTO")
	d := math.Hypot(ceo.X-cto.X, ceo.Y-cto.Y)
	assert.Greater(t, d, 2*DefaultForces().CollideRadius*0.8, "collision keeps nodes apart")
}

func TestSimulation_DragPinsAndReleases(t *testing.T) {
	sim, _ := NewSimulation(orgGraph(), DefaultForces(), 400, 300, rand.New(rand.NewSource(1)))
	sim.Run(maxWarmupTicks)
	require.False(t, sim.Running())

	require.True(t, sim.DragStart("CFO"))
	assert.True(t, sim.Running(), "dragging reheats the layout")
	require.True(t, sim.DragTo("CFO", 10, 20))
	for i := 0; i < 5; i++ {
		require.True(t, sim.Step())
	}
	cfo, _ := sim.Node("CFO")
	assert.True(t, cfo.Pinned())
	assert.Equal(t, 10.0, cfo.X)
	assert.Equal(t, 20.0, cfo.Y)

	require.True(t, sim.DragEnd("CFO"))
	cfo, _ = sim.Node("CFO")
	assert.False(t, cfo.Pinned())
	sim.Run(2000)
	assert.False(t, sim.Running())

	assert.False(t, sim.DragStart("nobody"))
}

func TestSimulation_StopIsFinal(t *testing.T) {
	sim, _ := NewSimulation(orgGraph(), DefaultForces(), 400, 300, nil)
	sim.Stop()
	assert.True(t, sim.Stopped())
	assert.False(t, sim.Step())
	before := sim.Positions()
	sim.Run(10)
	assert.Equal(t, before, sim.Positions())

	sim.Restart()
	assert.True(t, sim.Step())
}

func TestRenderNetwork(t *testing.T) {
	cfg := configOf(t, "network")
	s := renderWith(cfg, Dataset{Graph: orgGraph()}, rand.New(rand.NewSource(5)))

	assert.Equal(t, 4, s.ValidRows)
	assert.Equal(t, 1, s.DroppedLinks())
	links := s.MarksByRole("link")
	nodes := s.MarksByRole("node")
	require.Len(t, links, 3)
	require.Len(t, nodes, 4)
	assert.Equal(t, math.Sqrt(5), links[0].StrokeWidth)
	assert.Equal(t, math.Sqrt(30)/2, nodes[0].R)
	assert.Equal(t, nodes[1].Fill, nodes[2].Fill)
	assert.NotEqual(t, nodes[0].Fill, nodes[1].Fill)

	ceo, _ := s.Simulation().Node("CEO")
	assert.Equal(t, ceo.X, nodes[0].X)
	assert.Equal(t, ceo.X, links[0].X)

	require.True(t, s.Drag("VP_Eng", 50, 60))
	moved := s.MarksByRole("node")[3]
	assert.Equal(t, 50.0, moved.X)
	assert.Equal(t, 60.0, moved.Y)
	assert.True(t, s.Tick())

	s.Teardown()
	assert.True(t, s.Simulation().Stopped())
	assert.False(t, s.Tick())
	assert.False(t, s.Drag("CEO", 0, 0))
}

func TestRenderNetwork_FromRows(t *testing.T) {
	rows := []Row{
		RowOf("id", "a", "group", "x"),
		RowOf("id", "b", "group", "y"),
		RowOf("source", "a", "target", "b", "value", 2.0),
	}
	s := Render(configOf(t, "network"), Dataset{Rows: rows})
	assert.Equal(t, 2, s.ValidRows)
	assert.Len(t, s.MarksByRole("link"), 1)
}

func TestScene_ApplyInteraction(t *testing.T) {
	cfg := configOf(t, "network")
	s := renderWith(cfg, Dataset{Graph: orgGraph()}, rand.New(rand.NewSource(5)))
	assert.True(t, Interaction{}.Empty())

	res := s.Apply(Interaction{
		Drags: []DragMove{{Node: "Ghost", X: 1, Y: 1}, {Node: "CFO", X: 20, Y: 30}},
		Ticks: 10_000,
		Hover: &Pointer{Mark: len(s.MarksByRole("link"))},
	})
	assert.Equal(t, []string{"CFO"}, res.Dragged)
	assert.Positive(t, res.Ticks)
	assert.LessOrEqual(t, res.Ticks, MaxInteractionTicks)
	assert.True(t, res.Hovered)

	tip, ok := s.Tooltip()
	require.True(t, ok)
	assert.Equal(t, "CEO", tip.Lines[0])
	assert.Contains(t, s.SVG(), `class="tooltip"`)

	s.Teardown()
	res = s.Apply(Interaction{Ticks: 5, Hover: &Pointer{}})
	assert.Zero(t, res.Ticks)
	assert.False(t, res.Hovered)
}

func TestScene_ApplyOnBarIgnoresDrags(t *testing.T) {
	s := Render(configOf(t, "bar"), Dataset{Rows: []Row{RowOf("category", "A", "value", 4.0)}})
	res := s.Apply(Interaction{Drags: []DragMove{{Node: "A"}}, Ticks: 3})
	assert.Empty(t, res.Dragged)
	assert.Zero(t, res.Ticks)
	assert.NotContains(t, s.SVG(), `class="tooltip"`)
}
