package chart

import "strings"

// Kind is the closed set of chart types the renderer knows how to draw.
type Kind int

const (
	KindBar Kind = iota
	KindLine
	KindArea
	KindPie
	KindDonut
	KindScatter
	KindBubble
	KindNetwork
	KindChoropleth
	// KindOther is any type string we do not recognise. It is drawn with the bar policy.
	KindOther
)

var kindNames = map[Kind]string{
	KindBar:        "bar",
	KindLine:       "line",
	KindArea:       "area",
	KindPie:        "pie",
	KindDonut:      "donut",
	KindScatter:    "scatter",
	KindBubble:     "bubble",
	KindNetwork:    "network",
	KindChoropleth: "choropleth",
	KindOther:      "other",
}

// Kinds lists every kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindBar, KindLine, KindArea, KindPie, KindDonut, KindScatter, KindBubble, KindNetwork, KindChoropleth, KindOther}
}

// ParseKind maps a type attribute to a Kind. Empty input means bar.
func ParseKind(s string) Kind {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return KindBar
	}
	for k, name := range kindNames {
		if name == s && k != KindOther {
			return k
		}
	}
	return KindOther
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Policy returns the kind whose renderer draws k.
func (k Kind) Policy() Kind {
	if k == KindOther {
		return KindBar
	}
	return k
}

// Cartesian reports whether the kind is drawn on x/y axes.
func (k Kind) Cartesian() bool {
	switch k.Policy() {
	case KindBar, KindLine, KindArea, KindScatter, KindBubble:
		return true
	}
	return false
}
