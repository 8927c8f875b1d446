package slidelayout

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidLayout is returned for empty or malformed layout documents.
	ErrInvalidLayout = errors.New("invalid layout XML")
	// ErrNoSlide is returned when a well-formed document has no Slide element.
	ErrNoSlide = errors.New("no slide element found")
)

// element is a generic XML element. Child order is preserved and the raw
// inner markup is kept for embedded chart documents.
type element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []element  `xml:",any"`
	Text     string     `xml:",chardata"`
	Inner    string     `xml:",innerxml"`
}

func (e *element) attr(name string) string {
	for _, a := range e.Attrs {
		if a.Name.Local == name && a.Name.Space != "xmlns" {
			return strings.TrimSpace(a.Value)
		}
	}
	return ""
}

func (e *element) child(name string) *element {
	for i := range e.Children {
		if e.Children[i].XMLName.Local == name {
			return &e.Children[i]
		}
	}
	return nil
}

// find returns the first element named name in document order, e included.
func (e *element) find(name string) *element {
	if e.XMLName.Local == name {
		return e
	}
	for i := range e.Children {
		if found := e.Children[i].find(name); found != nil {
			return found
		}
	}
	return nil
}

// outerXML rebuilds the element's markup. Namespace declarations are
// dropped; downstream parsers match on local names only.
func (e *element) outerXML() string {
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(e.XMLName.Local)
	for _, a := range e.Attrs {
		if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}
		b.WriteString(" ")
		b.WriteString(a.Name.Local)
		b.WriteString(`="`)
		_ = xml.EscapeText(&b, []byte(a.Value))
		b.WriteString(`"`)
	}
	b.WriteString(">")
	b.WriteString(e.Inner)
	b.WriteString("</")
	b.WriteString(e.XMLName.Local)
	b.WriteString(">")
	return b.String()
}

func decode(doc string) (*element, error) {
	if strings.TrimSpace(doc) == "" {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidLayout)
	}
	var root element
	if err := xml.Unmarshal([]byte(doc), &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	return &root, nil
}

// Parse reads a slide layout document. The root may be a Slide, or any
// wrapper such as SlideDeck; the first Slide in document order is used.
func Parse(doc string) (*Layout, error) {
	root, err := decode(doc)
	if err != nil {
		return nil, err
	}
	slide := root.find("Slide")
	if slide == nil {
		return nil, fmt.Errorf("%w: root is <%s>", ErrNoSlide, root.XMLName.Local)
	}
	return &Layout{
		ID:      slide.attr("id"),
		Classes: slide.attr("classes"),
		Nodes:   parseChildren(slide),
	}, nil
}

func parseChildren(parent *element) []Node {
	var nodes []Node
	for i := range parent.Children {
		if n, ok := parseNode(&parent.Children[i]); ok {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// parseNode converts one element. Unknown elements are skipped.
func parseNode(e *element) (Node, bool) {
	kind, ok := kindForElement(e.XMLName.Local)
	if !ok {
		return Node{}, false
	}
	n := Node{
		Kind:        kind,
		ID:          e.attr("id"),
		Classes:     e.attr("classes"),
		Placeholder: e.attr("placeholder"),
		Content:     inlineContent(e),
	}
	switch kind {
	case KindTitle:
		n.Tag = headingTag(e.attr("tag"), "h1")
		n.TextID = e.attr("textId")
	case KindText:
		n.Tag = headingTag(e.attr("tag"), "p")
		n.TextID = e.attr("textId")
	case KindImage:
		n.Alt = e.attr("alt")
		n.Width = e.attr("width")
		n.Height = e.attr("height")
	case KindChart:
		n.ChartID = e.attr("chartId")
		n.ChartType = e.attr("type")
		if n.ChartType == "" {
			n.ChartType = "bar"
		}
		if def := e.child("ChartDefinition"); def != nil {
			n.InlineChart = def.outerXML()
		}
		n.Content = ""
	case KindList:
		n.Ordered = e.attr("ordered") == "true"
	case KindContainer:
		n.Children = parseChildren(e)
		n.Content = ""
	default:
		panic(fmt.Sprintf("slidelayout: unhandled node kind %v", kind))
	}
	return n, true
}

func inlineContent(e *element) string {
	if c := e.child("Content"); c != nil {
		return strings.TrimSpace(c.Text)
	}
	return strings.TrimSpace(e.Text)
}

func headingTag(tag, def string) string {
	switch strings.ToLower(tag) {
	case "h1", "h2", "h3", "p":
		return strings.ToLower(tag)
	}
	return def
}

// TextComponent is the parsed form of a text component document.
type TextComponent struct {
	Text        string `json:"text"`
	Placeholder string `json:"placeholder,omitempty"`
}

// ParseTextComponent reads a text component document, e.g.
// <TextComponent><Content><Text>…</Text><PlaceholderText>…</PlaceholderText></Content></TextComponent>.
func ParseTextComponent(doc string) (TextComponent, error) {
	root, err := decode(doc)
	if err != nil {
		return TextComponent{}, err
	}
	var tc TextComponent
	content := root.find("Content")
	if content == nil {
		return tc, nil
	}
	if t := content.find("Text"); t != nil {
		tc.Text = strings.TrimSpace(t.Text)
	}
	if p := content.find("PlaceholderText"); p != nil {
		tc.Placeholder = strings.TrimSpace(p.Text)
	}
	return tc, nil
}
