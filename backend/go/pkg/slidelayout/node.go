package slidelayout

// NodeKind is the closed set of elements a slide layout may contain.
type NodeKind int

const (
	KindTitle NodeKind = iota
	KindText
	KindImage
	KindChart
	KindList
	KindContainer
)

var kindNames = []string{"title", "text", "image", "chart", "list", "container"}

// NodeKinds lists every kind in declaration order.
func NodeKinds() []NodeKind {
	return []NodeKind{KindTitle, KindText, KindImage, KindChart, KindList, KindContainer}
}

func (k NodeKind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// kindForElement maps an element's local name to a kind.
func kindForElement(name string) (NodeKind, bool) {
	switch name {
	case "Title":
		return KindTitle, true
	case "Text":
		return KindText, true
	case "Image":
		return KindImage, true
	case "Chart":
		return KindChart, true
	case "List":
		return KindList, true
	case "Container":
		return KindContainer, true
	}
	return 0, false
}

// Node is one parsed element of a slide. Fields that do not apply to the
// node's kind are left empty.
type Node struct {
	Kind        NodeKind `json:"kind"`
	ID          string   `json:"id,omitempty"`
	Classes     string   `json:"classes,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	// Content is inline text, either element text or a <Content> child.
	Content string `json:"content,omitempty"`

	// Title and Text.
	Tag    string `json:"tag,omitempty"`
	TextID string `json:"textId,omitempty"`

	// Chart.
	ChartID     string `json:"chartId,omitempty"`
	ChartType   string `json:"chartType,omitempty"`
	InlineChart string `json:"inlineChart,omitempty"`

	// List.
	Ordered bool `json:"ordered,omitempty"`

	// Image.
	Alt    string `json:"alt,omitempty"`
	Width  string `json:"width,omitempty"`
	Height string `json:"height,omitempty"`

	// Container.
	Children []Node `json:"children,omitempty"`
}

// IsHeading reports whether the node is a slide title: a Title element or
// an h1 Text.
func (n Node) IsHeading() bool {
	return n.Kind == KindTitle || (n.Kind == KindText && n.Tag == "h1")
}

// Layout is a parsed slide: its style classes and direct children in document order.
type Layout struct {
	ID      string `json:"id,omitempty"`
	Classes string `json:"classes,omitempty"`
	Nodes   []Node `json:"nodes"`
}

// ChartCount counts the charts among the slide's direct children.
func (l *Layout) ChartCount() int {
	n := 0
	for _, node := range l.Nodes {
		if node.Kind == KindChart {
			n++
		}
	}
	return n
}
