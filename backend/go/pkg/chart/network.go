package chart

import (
	"math"
	"math/rand"
)

type networkState struct {
	sim     *Simulation
	graph   *Graph
	dropped int
}

func renderNetwork(cfg *Config, ds Dataset, rng *rand.Rand) *Scene {
	s := newScene(cfg)
	g := ds.Graph
	if g == nil {
		g = graphFromRows(ds.Rows)
	}
	if g == nil || len(g.Nodes) == 0 {
		return s.noData()
	}
	w, h := cfg.Dimensions.Width, cfg.Dimensions.Height
	s.OriginX, s.OriginY = 0, 0

	sim, dropped := NewSimulation(g, cfg.Forces, w, h, rng)
	sim.Run(maxWarmupTicks)
	s.network = &networkState{sim: sim, graph: g, dropped: dropped}
	s.ValidRows = len(sim.nodes)

	colors := NewOrdinal(Palette(cfg.ColorScheme))
	for _, l := range sim.links {
		width := 1.0
		if l.value > 0 {
			width = math.Sqrt(l.value)
		}
		s.Marks = append(s.Marks, Mark{
			Kind:        MarkLine,
			Role:        "link",
			Key:         sim.nodes[l.source].ID + "->" + sim.nodes[l.target].ID,
			Stroke:      "#999",
			StrokeWidth: width,
			Opacity:     0.6,
		})
	}
	seen := make(map[string]bool)
	for _, n := range g.Nodes {
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		size := n.Size
		if size <= 0 {
			size = 100
		}
		title := n.Title
		if title == "" {
			title = n.ID
		}
		tooltip := []string{title}
		if n.Group != "" {
			tooltip = append(tooltip, "Group: "+n.Group)
		}
		s.Marks = append(s.Marks, Mark{
			Kind:        MarkCircle,
			Role:        "node",
			Key:         n.ID,
			R:           math.Sqrt(size) / 2,
			Fill:        colors.Color(n.Group),
			Stroke:      "#fff",
			StrokeWidth: 1.5,
			Tooltip:     tooltip,
		})
	}
	for _, n := range sim.nodes {
		s.Marks = append(s.Marks, Mark{Kind: MarkText, Role: "label", Key: n.ID, Text: n.ID, Anchor: "start", FontSize: 10})
	}
	s.syncNetwork()
	s.setTitle(cfg, 20)
	return s
}

// graphFromRows reads a graph out of tabular rows: rows with source and
// target are links, rows with an id are nodes.
func graphFromRows(rows []Row) *Graph {
	if len(rows) == 0 {
		return nil
	}
	g := &Graph{}
	for _, r := range rows {
		src, dst := r.Text("source"), r.Text("target")
		if src != "" && dst != "" {
			v, _ := r.Number("value")
			g.Links = append(g.Links, GraphLink{Source: src, Target: dst, Value: v})
			continue
		}
		id := r.Text("id")
		if id == "" {
			continue
		}
		size, _ := r.Number("size")
		g.Nodes = append(g.Nodes, GraphNode{ID: id, Group: r.Text("group"), Size: size, Title: r.Text("title")})
	}
	return g
}

// Simulation exposes the layout behind a network scene, or nil for other kinds.
func (s *Scene) Simulation() *Simulation {
	if s.network == nil {
		return nil
	}
	return s.network.sim
}

// DroppedLinks counts links that referenced unknown nodes.
func (s *Scene) DroppedLinks() int {
	if s.network == nil {
		return 0
	}
	return s.network.dropped
}

// Tick advances the layout one step and moves the marks to match.
func (s *Scene) Tick() bool {
	if s.torn || s.network == nil {
		return false
	}
	moved := s.network.sim.Step()
	if moved {
		s.syncNetwork()
	}
	return moved
}

// Drag runs a whole drag gesture on one node: pin, move, release.
func (s *Scene) Drag(id string, x, y float64) bool {
	if s.torn || s.network == nil {
		return false
	}
	sim := s.network.sim
	if !sim.DragStart(id) {
		return false
	}
	sim.DragTo(id, x, y)
	sim.Step()
	s.syncNetwork()
	sim.DragEnd(id)
	return true
}

func (s *Scene) syncNetwork() {
	sim := s.network.sim
	li := 0
	for i := range s.Marks {
		m := &s.Marks[i]
		switch m.Role {
		case "link":
			if li < len(sim.links) {
				l := sim.links[li]
				src, dst := sim.nodes[l.source], sim.nodes[l.target]
				m.X, m.Y, m.X2, m.Y2 = src.X, src.Y, dst.X, dst.Y
				li++
			}
		case "node":
			if n, ok := sim.Node(m.Key); ok {
				m.X, m.Y = n.X, n.Y
			}
		case "label":
			if n, ok := sim.Node(m.Key); ok {
				m.X, m.Y = n.X+12, n.Y+4
			}
		}
	}
}
