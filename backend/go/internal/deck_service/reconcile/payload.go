package reconcile

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/tidwall/gjson"
)

// Class is the kind of a stream payload, decided by its root element.
type Class int

const (
	ClassOther Class = iota
	ClassIdeas
	ClassContent
)

func (c Class) String() string {
	switch c {
	case ClassIdeas:
		return "ideas"
	case ClassContent:
		return "content"
	}
	return "other"
}

// maxUnwrap bounds how many JSON string and code fence layers are peeled.
const maxUnwrap = 4

// Normalize strips the transport wrapping generators put around XML: a JSON
// string literal, a markdown code fence, a byte order mark, or any nesting
// of those.
func Normalize(payload string) string {
	s := trimDoc(payload)
	for i := 0; i < maxUnwrap; i++ {
		next := s
		if strings.HasPrefix(next, `"`) && gjson.Valid(next) {
			next = gjson.Parse(next).String()
		}
		next = trimDoc(stripFence(next))
		if next == s {
			break
		}
		s = next
	}
	return s
}

func trimDoc(s string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "\ufeff"))
}

// stripFence removes a surrounding ``` fence, with or without a language tag.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	body := s[3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = strings.TrimLeft(body, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
	}
	body = strings.TrimSpace(body)
	return strings.TrimSuffix(body, "```")
}

// rootName returns the local name of the document's first element, skipping
// the prolog, comments and processing instructions.
func rootName(doc string) (string, error) {
	d := xml.NewDecoder(strings.NewReader(doc))
	for {
		tok, err := d.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", errors.New("no root element")
			}
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return t.Name.Local, nil
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return "", errors.New("text before root element")
			}
		}
	}
}

// Classify decides what a normalized payload is. Only the root tag is
// inspected; a malformed body is still classified and fails later in parsing.
func Classify(doc string) Class {
	if !strings.HasPrefix(doc, "<") {
		return ClassOther
	}
	name, err := rootName(doc)
	if err != nil {
		return ClassOther
	}
	switch name {
	case "SlideIdeas":
		return ClassIdeas
	case "Slide", "SlideDeck", "Presentation":
		return ClassContent
	}
	return ClassOther
}
