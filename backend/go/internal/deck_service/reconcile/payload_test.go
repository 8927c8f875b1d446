package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  <Slide id=\"a\"/>\n", `<Slide id="a"/>`},
		{"bom", "\ufeff<Slide/>", "<Slide/>"},
		{"fence with language", "```xml\n<Slide/>\n```", "<Slide/>"},
		{"fence without language", "```\n<SlideIdeas/>\n```", "<SlideIdeas/>"},
		{"json string", `"<Slide id=\"a\">\n</Slide>"`, "<Slide id=\"a\">\n</Slide>"},
		{"json string around fence", `"` + "```xml\\n<Slide/>\\n```" + `"`, "<Slide/>"},
		{"fence around json string", "```\n\"<Slide/>\"\n```", "<Slide/>"},
		{"json object untouched", `{"status":"working"}`, `{"status":"working"}`},
		{"broken json string untouched", `"<Slide`, `"<Slide`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		doc  string
		want Class
	}{
		{`<SlideIdeas><SlideIdea/></SlideIdeas>`, ClassIdeas},
		{`<?xml version="1.0"?><!-- generated --><SlideIdeas/>`, ClassIdeas},
		{`<Slide id="a"/>`, ClassContent},
		{`<SlideDeck><Slide/></SlideDeck>`, ClassContent},
		{`<Presentation><Slide/></Presentation>`, ClassContent},
		{`<ns:Slide xmlns:ns="urn:x"/>`, ClassContent},
		{`<Slide id="a"><Title>unclosed`, ClassContent},
		{`<Status>working</Status>`, ClassOther},
		{`{"progress": 0.5}`, ClassOther},
		{`thinking...`, ClassOther},
		{``, ClassOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.doc), tt.doc)
	}
}
