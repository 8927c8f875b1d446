package reconcile

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMalformed wraps every payload parse failure.
var ErrMalformed = errors.New("malformed stream payload")

// Idea is one planned slide from a slide-ideas message.
type Idea struct {
	SlideID            string `json:"slideId"`
	Title              string `json:"title"`
	ContentDescription string `json:"contentDescription"`
	DataInsights       string `json:"dataInsights"`
}

type xmlIdea struct {
	ID                 string `xml:"id,attr"`
	SlideID            string `xml:"SlideId"`
	Title              string `xml:"Title"`
	ContentDescription string `xml:"ContentDescription"`
	DataInsights       string `xml:"DataInsights"`
}

type xmlIdeas struct {
	XMLName xml.Name  `xml:"SlideIdeas"`
	Ideas   []xmlIdea `xml:"SlideIdea"`
}

// ParseIdeas reads a SlideIdeas document in document order.
func ParseIdeas(doc string) ([]Idea, error) {
	var root xmlIdeas
	if err := xml.Unmarshal([]byte(doc), &root); err != nil {
		return nil, fmt.Errorf("%w: slide ideas: %v", ErrMalformed, err)
	}
	ideas := make([]Idea, 0, len(root.Ideas))
	for _, x := range root.Ideas {
		id := strings.TrimSpace(x.SlideID)
		if id == "" {
			id = strings.TrimSpace(x.ID)
		}
		ideas = append(ideas, Idea{
			SlideID:            id,
			Title:              strings.TrimSpace(x.Title),
			ContentDescription: strings.TrimSpace(x.ContentDescription),
			DataInsights:       strings.TrimSpace(x.DataInsights),
		})
	}
	return ideas, nil
}

// ParsedSlide is one Slide element of a content message. Ref is the
// identifier the generator used, either a slide id or a title slug.
type ParsedSlide struct {
	Ref     string `json:"ref"`
	Classes string `json:"classes,omitempty"`
	XML     string `json:"xml"`
}

// ParseSlides extracts the Slide elements of a content message: the root
// itself when it is a Slide, otherwise the Slide children of the wrapping
// root. Each slide keeps its exact source markup. A lone child slide without
// an id inherits the wrapper's id.
func ParseSlides(doc string) ([]ParsedSlide, error) {
	d := xml.NewDecoder(strings.NewReader(doc))
	var (
		slides    []ParsedSlide
		depth     int
		rootID    string
		start     int64
		current   *ParsedSlide
		slideAt   = -1
		foundRoot bool
	)
	for {
		offset := d.InputOffset()
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: slides: %v", ErrMalformed, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				if foundRoot {
					return nil, fmt.Errorf("%w: slides: multiple root elements", ErrMalformed)
				}
				foundRoot = true
				rootID = attr(t, "id")
			}
			if current == nil && t.Name.Local == "Slide" && depth <= 1 {
				current = &ParsedSlide{Ref: attr(t, "id"), Classes: attr(t, "classes")}
				start = offset
				slideAt = depth
			}
			depth++
		case xml.EndElement:
			depth--
			if current != nil && depth == slideAt {
				current.XML = doc[start:d.InputOffset()]
				slides = append(slides, *current)
				current = nil
				slideAt = -1
			}
		}
	}
	if !foundRoot {
		return nil, fmt.Errorf("%w: slides: no root element", ErrMalformed)
	}
	if len(slides) == 0 {
		return nil, fmt.Errorf("%w: slides: no Slide elements", ErrMalformed)
	}
	if len(slides) == 1 && slides[0].Ref == "" {
		slides[0].Ref = rootID
	}
	return slides, nil
}

func attr(e xml.StartElement, name string) string {
	for _, a := range e.Attr {
		if a.Name.Local == name && a.Name.Space != "xmlns" {
			return strings.TrimSpace(a.Value)
		}
	}
	return ""
}
