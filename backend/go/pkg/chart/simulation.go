package chart

import (
	"math"
	"math/rand"
)

const (
	alphaMin        = 0.001
	velocityDecay   = 0.4
	dragAlphaTarget = 0.3
	maxWarmupTicks  = 300
	distanceMin2    = 1.0
)

var initialAngle = math.Pi * (3 - math.Sqrt(5))

// SimNode is a node's position in the layout.
type SimNode struct {
	ID     string
	X, Y   float64
	VX, VY float64
	// fx and fy are set while the node is pinned.
	fx, fy *float64
}

// Pinned reports whether the node is held at a fixed position.
func (n *SimNode) Pinned() bool { return n.fx != nil }

type simLink struct {
	source, target int
	value          float64
	strength       float64
	bias           float64
}

// Simulation is a velocity Verlet force layout: link springs, many-body
// charge, centering and collision. It is stepped by its owner and is not
// safe for concurrent use.
type Simulation struct {
	nodes  []SimNode
	links  []simLink
	index  map[string]int
	forces Forces
	cx, cy float64
	rng    *rand.Rand

	alpha       float64
	alphaDecay  float64
	alphaTarget float64
	stopped     bool
	ticks       int
}

// NewSimulation lays nodes out on a phyllotaxis spiral around the centre.
// Links whose endpoints are not both known are dropped; the count of
// dropped links is returned.
func NewSimulation(g *Graph, forces Forces, width, height float64, rng *rand.Rand) (*Simulation, int) {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	sim := &Simulation{
		index:      make(map[string]int),
		forces:     forces,
		cx:         width / 2,
		cy:         height / 2,
		rng:        rng,
		alpha:      1,
		alphaDecay: 1 - math.Pow(alphaMin, 1.0/maxWarmupTicks),
	}
	if g == nil {
		return sim, 0
	}
	for _, n := range g.Nodes {
		if _, dup := sim.index[n.ID]; dup {
			continue
		}
		i := len(sim.nodes)
		radius := 10 * math.Sqrt(0.5+float64(i))
		angle := float64(i) * initialAngle
		sim.index[n.ID] = i
		sim.nodes = append(sim.nodes, SimNode{
			ID: n.ID,
			X:  sim.cx + radius*math.Cos(angle),
			Y:  sim.cy + radius*math.Sin(angle),
		})
	}

	dropped := 0
	count := make([]int, len(sim.nodes))
	for _, l := range g.Links {
		s, okS := sim.index[l.Source]
		t, okT := sim.index[l.Target]
		if !okS || !okT {
			dropped++
			continue
		}
		count[s]++
		count[t]++
		sim.links = append(sim.links, simLink{source: s, target: t, value: l.Value})
	}
	for i := range sim.links {
		l := &sim.links[i]
		l.strength = 1 / float64(min(count[l.source], count[l.target]))
		l.bias = float64(count[l.source]) / float64(count[l.source]+count[l.target])
	}
	return sim, dropped
}

// Positions returns a snapshot of the node positions.
func (s *Simulation) Positions() []SimNode {
	return append([]SimNode(nil), s.nodes...)
}

// Node looks a node up by id.
func (s *Simulation) Node(id string) (SimNode, bool) {
	i, ok := s.index[id]
	if !ok {
		return SimNode{}, false
	}
	return s.nodes[i], true
}

// Alpha is the current temperature of the layout.
func (s *Simulation) Alpha() float64 { return s.alpha }

// Ticks counts the steps taken so far.
func (s *Simulation) Ticks() int { return s.ticks }

// Running reports whether another Step would move anything.
func (s *Simulation) Running() bool {
	return !s.stopped && (s.alpha >= alphaMin || s.alphaTarget > 0)
}

// Stop halts the layout. Further steps are no-ops until Restart.
func (s *Simulation) Stop() { s.stopped = true }

// Stopped reports whether Stop has been called.
func (s *Simulation) Stopped() bool { return s.stopped }

// Restart resumes a stopped layout.
func (s *Simulation) Restart() { s.stopped = false }

// Reheat raises alpha so the layout settles again after a change.
func (s *Simulation) Reheat(alpha float64) {
	s.alpha = alpha
	s.stopped = false
}

// Run steps until the layout cools or maxTicks is reached.
func (s *Simulation) Run(maxTicks int) int {
	n := 0
	for n < maxTicks && s.Step() {
		n++
	}
	return n
}

// Step advances the layout by one tick. It returns false when nothing moved.
func (s *Simulation) Step() bool {
	if !s.Running() {
		return false
	}
	s.alpha += (s.alphaTarget - s.alpha) * s.alphaDecay
	s.applyLinks()
	s.applyCharge()
	s.applyCenter()
	s.applyCollide()
	for i := range s.nodes {
		n := &s.nodes[i]
		if n.fx != nil {
			n.X, n.VX = *n.fx, 0
		} else {
			n.VX *= 1 - velocityDecay
			n.X += n.VX
		}
		if n.fy != nil {
			n.Y, n.VY = *n.fy, 0
		} else {
			n.VY *= 1 - velocityDecay
			n.Y += n.VY
		}
	}
	s.ticks++
	return true
}

// PinNode holds a node at (x, y).
func (s *Simulation) PinNode(id string, x, y float64) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	fx, fy := x, y
	s.nodes[i].fx, s.nodes[i].fy = &fx, &fy
	return true
}

// ReleaseNode lets a pinned node move freely again.
func (s *Simulation) ReleaseNode(id string) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.nodes[i].fx, s.nodes[i].fy = nil, nil
	return true
}

// DragStart pins a node where it stands and keeps the layout warm while it is dragged.
func (s *Simulation) DragStart(id string) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.alphaTarget = dragAlphaTarget
	s.stopped = false
	return s.PinNode(id, s.nodes[i].X, s.nodes[i].Y)
}

// DragTo moves a dragged node.
func (s *Simulation) DragTo(id string, x, y float64) bool {
	return s.PinNode(id, x, y)
}

// DragEnd releases the node and lets the layout cool.
func (s *Simulation) DragEnd(id string) bool {
	s.alphaTarget = 0
	return s.ReleaseNode(id)
}

func (s *Simulation) jiggle() float64 {
	return (s.rng.Float64() - 0.5) * 1e-6
}

func (s *Simulation) applyLinks() {
	for _, l := range s.links {
		src, dst := &s.nodes[l.source], &s.nodes[l.target]
		x := dst.X + dst.VX - src.X - src.VX
		y := dst.Y + dst.VY - src.Y - src.VY
		if x == 0 {
			x = s.jiggle()
		}
		if y == 0 {
			y = s.jiggle()
		}
		d := math.Sqrt(x*x + y*y)
		k := (d - s.forces.LinkDistance) / d * s.alpha * l.strength
		x, y = x*k, y*k
		dst.VX -= x * l.bias
		dst.VY -= y * l.bias
		src.VX += x * (1 - l.bias)
		src.VY += y * (1 - l.bias)
	}
}

func (s *Simulation) applyCharge() {
	if s.forces.Charge == 0 {
		return
	}
	for i := range s.nodes {
		n := &s.nodes[i]
		for j := range s.nodes {
			if i == j {
				continue
			}
			x := s.nodes[j].X - n.X
			y := s.nodes[j].Y - n.Y
			if x == 0 {
				x = s.jiggle()
			}
			if y == 0 {
				y = s.jiggle()
			}
			l := x*x + y*y
			if l < distanceMin2 {
				l = math.Sqrt(distanceMin2 * l)
			}
			n.VX += x * s.forces.Charge * s.alpha / l
			n.VY += y * s.forces.Charge * s.alpha / l
		}
	}
}

func (s *Simulation) applyCenter() {
	if len(s.nodes) == 0 || s.forces.CenterStrength == 0 {
		return
	}
	var sx, sy float64
	for _, n := range s.nodes {
		sx += n.X
		sy += n.Y
	}
	k := s.forces.CenterStrength
	sx = (sx/float64(len(s.nodes)) - s.cx) * k
	sy = (sy/float64(len(s.nodes)) - s.cy) * k
	for i := range s.nodes {
		s.nodes[i].X -= sx
		s.nodes[i].Y -= sy
	}
}

func (s *Simulation) applyCollide() {
	r := s.forces.CollideRadius
	if r <= 0 {
		return
	}
	rr := 2 * r
	for i := range s.nodes {
		a := &s.nodes[i]
		for j := i + 1; j < len(s.nodes); j++ {
			b := &s.nodes[j]
			x := a.X + a.VX - b.X - b.VX
			y := a.Y + a.VY - b.Y - b.VY
			l := x*x + y*y
			if l >= rr*rr {
				continue
			}
			if x == 0 {
				x = s.jiggle()
				l += x * x
			}
			if y == 0 {
				y = s.jiggle()
				l += y * y
			}
			d := math.Sqrt(l)
			k := (rr - d) / d
			x, y = x*k*0.5, y*k*0.5
			a.VX += x
			a.VY += y
			b.VX -= x
			b.VY -= y
		}
	}
}
