package chart

// MaxInteractionTicks caps the layout steps one Interaction may request.
const MaxInteractionTicks = maxWarmupTicks

// DragMove drags one network node to (X, Y) and lets go.
type DragMove struct {
	Node string  `json:"node"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Pointer is a hover over the mark at index Mark.
type Pointer struct {
	Mark int     `json:"mark"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Interaction is pointer input replayed against a freshly rendered scene:
// drags first, then extra layout ticks, then the hover.
type Interaction struct {
	Drags []DragMove `json:"drags,omitempty"`
	Ticks int        `json:"ticks,omitempty"`
	Hover *Pointer   `json:"hover,omitempty"`
}

// Empty reports whether the interaction would leave a scene unchanged.
func (in Interaction) Empty() bool {
	return len(in.Drags) == 0 && in.Ticks <= 0 && in.Hover == nil
}

// InteractionResult says what an Interaction did.
type InteractionResult struct {
	Dragged []string `json:"dragged,omitempty"`
	Ticks   int      `json:"ticks"`
	Hovered bool     `json:"hovered"`
}

// Apply replays in against the scene. Drags of unknown nodes and drags on
// non-network scenes are ignored; ticks stop early once the layout cools.
func (s *Scene) Apply(in Interaction) InteractionResult {
	var res InteractionResult
	for _, d := range in.Drags {
		if s.Drag(d.Node, d.X, d.Y) {
			res.Dragged = append(res.Dragged, d.Node)
		}
	}
	for res.Ticks < min(in.Ticks, MaxInteractionTicks) && s.Tick() {
		res.Ticks++
	}
	if in.Hover != nil {
		res.Hovered = s.PointerEnter(in.Hover.Mark, in.Hover.X, in.Hover.Y)
	}
	return res
}
