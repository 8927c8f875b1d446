package models

import "time"

// Presentation is one generated deck. Its ID doubles as the job id and the
// event stream key.
type Presentation struct {
	ID        string    `bson:"_id" json:"id"`
	Prompt    string    `bson:"prompt" json:"prompt"`
	Audiences []string  `bson:"audiences" json:"audiences"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// Slide is a persisted slide record. Index is zero based and contiguous per
// presentation; XML stays nil until the generator delivers the layout.
type Slide struct {
	ID             string    `bson:"_id" json:"id"`
	PresentationID string    `bson:"presentation_id" json:"presentationId"`
	Index          int       `bson:"index" json:"index"`
	SlideID        string    `bson:"slide_id" json:"slideId"`
	XML            *string   `bson:"xml" json:"xml"`
	Notes          SlideNote `bson:"notes" json:"notes"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updatedAt"`
}

// HasXML reports whether the layout has been delivered.
func (s *Slide) HasXML() bool {
	return s.XML != nil && *s.XML != ""
}

// SlideNote carries the idea a slide was planned from.
type SlideNote struct {
	Title              string `bson:"title" json:"title"`
	ContentDescription string `bson:"content_description" json:"contentDescription"`
	DataInsights       string `bson:"data_insights" json:"dataInsights"`
}

// Chart is a stored chart definition document.
type Chart struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Type      string    `bson:"type" json:"type"`
	XML       string    `bson:"xml" json:"xml"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// TextComponent is a stored text component document.
type TextComponent struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	XML       string    `bson:"xml" json:"xml"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}
