package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ideasDoc = `<SlideIdeas xmlns="urn:slidecraft:ideas">
  <SlideIdea>
    <SlideId>exec-summary</SlideId>
    <Title>Executive Summary, Q1 2024!</Title>
    <ContentDescription>Headline numbers</ContentDescription>
    <DataInsights>Revenue up 12%</DataInsights>
  </SlideIdea>
  <SlideIdea id="market">
    <Title>Market Overview</Title>
  </SlideIdea>
  <SlideIdea>
    <SlideId>next-steps</SlideId>
    <Title>Next Steps</Title>
  </SlideIdea>
</SlideIdeas>`

func TestParseIdeas(t *testing.T) {
	ideas, err := ParseIdeas(ideasDoc)
	require.NoError(t, err)
	require.Len(t, ideas, 3)
	assert.Equal(t, Idea{
		SlideID:            "exec-summary",
		Title:              "Executive Summary, Q1 2024!",
		ContentDescription: "Headline numbers",
		DataInsights:       "Revenue up 12%",
	}, ideas[0])
	assert.Equal(t, "market", ideas[1].SlideID)
	assert.Equal(t, "next-steps", ideas[2].SlideID)
}

func TestParseIdeas_Malformed(t *testing.T) {
	for _, doc := range []string{"", "<SlideIdeas><SlideIdea>", "<Other/>"} {
		_, err := ParseIdeas(doc)
		assert.ErrorIs(t, err, ErrMalformed, doc)
	}
}

func TestParseSlides_SingleSlide(t *testing.T) {
	doc := `<Slide id="executive-summary-q1-2024" classes="dark"><Title>Hi</Title></Slide>`
	slides, err := ParseSlides(doc)
	require.NoError(t, err)
	require.Len(t, slides, 1)
	assert.Equal(t, ParsedSlide{Ref: "executive-summary-q1-2024", Classes: "dark", XML: doc}, slides[0])
}

func TestParseSlides_Wrapper(t *testing.T) {
	doc := `<SlideDeck id="deck">
  <Slide id="a"><Text>one</Text></Slide>
  <Notes><Slide id="nested"/></Notes>
  <Slide id="b"/>
</SlideDeck>`
	slides, err := ParseSlides(doc)
	require.NoError(t, err)
	require.Len(t, slides, 2)
	assert.Equal(t, "a", slides[0].Ref)
	assert.Equal(t, `<Slide id="a"><Text>one</Text></Slide>`, slides[0].XML)
	assert.Equal(t, "b", slides[1].Ref)
	assert.Equal(t, `<Slide id="b"/>`, slides[1].XML)
}

func TestParseSlides_LoneChildInheritsWrapperID(t *testing.T) {
	slides, err := ParseSlides(`<SlideDeck id="market-overview"><Slide><Title>x</Title></Slide></SlideDeck>`)
	require.NoError(t, err)
	require.Len(t, slides, 1)
	assert.Equal(t, "market-overview", slides[0].Ref)
}

func TestParseSlides_Malformed(t *testing.T) {
	for _, doc := range []string{
		`<Slide id="a"><Title>unclosed</Slide>`,
		`<SlideDeck><Page/></SlideDeck>`,
		`<Slide/><Slide/>`,
		``,
	} {
		_, err := ParseSlides(doc)
		assert.ErrorIs(t, err, ErrMalformed, doc)
	}
}
