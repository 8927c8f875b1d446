package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"slidecraft/backend/go/internal/deck_service/consumer"
	"slidecraft/backend/go/internal/deck_service/store"
	"slidecraft/backend/go/internal/models"
	"slidecraft/backend/go/internal/templates"
	"slidecraft/backend/go/pkg/chart"
	"slidecraft/backend/go/pkg/logger"
	"slidecraft/backend/go/pkg/slidelayout"
)

type fakeJobs struct {
	mu   sync.Mutex
	jobs []models.JobRequest
	err  error
}

func (f *fakeJobs) PublishJob(_ context.Context, req models.JobRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, req)
	return nil
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string]string
}

func (f *fakeObjects) PutObject(_ context.Context, bucket, name string, r io.Reader, _ int64, _ string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string]string{}
	}
	f.objects[bucket+"/"+name] = string(b)
	return nil
}

type fakeConn struct {
	mu     sync.Mutex
	sent   []interface{}
	closed bool
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("closed")
	}
	c.sent = append(c.sent, v)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) messages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

type fixture struct {
	svc     *DeckService
	store   *store.MemoryStore
	stream  *consumer.MemoryStream
	jobs    *fakeJobs
	objects *fakeObjects
	hook    *test.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	base, hook := test.NewNullLogger()
	f := &fixture{
		store:   store.NewMemoryStore(),
		stream:  consumer.NewMemoryStream(20 * time.Millisecond),
		jobs:    &fakeJobs{},
		objects: &fakeObjects{},
		hook:    hook,
	}
	f.svc = NewDeckService(Deps{
		Store:   f.store,
		Stream:  f.stream,
		Jobs:    f.jobs,
		Objects: f.objects,
		Logger:  logger.NewWith(base, "test"),
		Options: Options{Viewport: 960, AdaptiveLayout: true, ExportBucket: "exports"},
	})
	t.Cleanup(f.svc.Close)
	return f
}

func TestSubmitJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.SubmitJob(ctx, "  Quarterly review ", []string{"board", " ", "sales"})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Quarterly review", p.Prompt)
	assert.Equal(t, []string{"board", "sales"}, p.Audiences)

	require.Len(t, f.jobs.jobs, 1)
	assert.Equal(t, p.ID, f.jobs.jobs[0].JobID)

	got, err := f.svc.GetPresentation(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Prompt, got.Prompt)
}

func TestSubmitJob_Validation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.SubmitJob(context.Background(), "   ", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, f.jobs.jobs)
}

func TestSubmitJob_PublishFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.jobs.err = errors.New("broker down")

	_, err := f.svc.SubmitJob(ctx, "deck", nil)
	require.Error(t, err)

	list, err := f.svc.ListPresentations(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPushAndFollowEvents(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := f.svc.PushEvent(ctx, "job-1", `{"hello":"world"}`)
	require.NoError(t, err)
	_, err = f.svc.PushEvent(ctx, "job-1", "second")
	require.NoError(t, err)

	_, err = f.svc.PushEvent(ctx, "", "x")
	assert.ErrorIs(t, err, ErrInvalidInput)

	var got []string
	err = f.svc.FollowEvents(ctx, "job-1", func(ev consumer.Event) error {
		got = append(got, ev.Message)
		if len(got) == 2 {
			cancel()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{`{"hello":"world"}`, "second"}, got)
}

const ideasDoc = `<SlideIdeas>
  <SlideIdea><SlideId>intro</SlideId><Title>Intro</Title></SlideIdea>
  <SlideIdea><SlideId>numbers</SlideId><Title>Numbers</Title></SlideIdea>
</SlideIdeas>`

func TestWatch_ReconcilesAndBroadcasts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.SubmitJob(ctx, "deck", nil)
	require.NoError(t, err)

	a, b := &fakeConn{}, &fakeConn{}
	unwatchA := f.svc.Watch(p.ID, a)
	unwatchB := f.svc.Watch(p.ID, b)
	assert.Equal(t, 2, f.svc.Watchers(p.ID))

	_, err = f.svc.PushEvent(ctx, p.ID, ideasDoc)
	require.NoError(t, err)
	_, err = f.svc.PushEvent(ctx, p.ID, `<Slide id="numbers"><Title>42</Title></Slide>`)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return a.messages() == 2 && b.messages() == 2
	}, 2*time.Second, 10*time.Millisecond)

	slides, err := f.svc.ListSlides(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, slides, 2)
	assert.Equal(t, "intro", slides[0].SlideID)
	assert.False(t, slides[0].HasXML())
	assert.True(t, slides[1].HasXML())

	unwatchA()
	unwatchA()
	assert.True(t, a.closed)
	assert.Equal(t, 1, f.svc.Watchers(p.ID))
	unwatchB()
	assert.Equal(t, 0, f.svc.Watchers(p.ID))

	f.svc.sessionsMu.Lock()
	assert.Empty(t, f.svc.sessions)
	f.svc.sessionsMu.Unlock()
}

func TestSlides_CRUDByIndex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.SubmitJob(ctx, "deck", nil)
	require.NoError(t, err)

	x := `<Slide><Title>One</Title></Slide>`
	first, err := f.svc.AppendSlide(ctx, p.ID, SlideInput{XML: &x, Notes: models.SlideNote{Title: "First Slide"}})
	require.NoError(t, err)
	assert.Equal(t, "first-slide", first.SlideID)
	_, err = f.svc.AppendSlide(ctx, p.ID, SlideInput{SlideID: "second"})
	require.NoError(t, err)

	y := `<Slide><Title>Two</Title></Slide>`
	updated, err := f.svc.UpdateSlide(ctx, p.ID, 1, SlideInput{XML: &y})
	require.NoError(t, err)
	assert.Equal(t, "second", updated.SlideID)

	require.NoError(t, f.svc.DeleteSlide(ctx, p.ID, 0))
	slides, err := f.svc.ListSlides(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, slides, 1)
	assert.Equal(t, 0, slides[0].Index)
	assert.Equal(t, y, *slides[0].XML)

	_, err = f.svc.SlideAt(ctx, p.ID, 5)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.AppendSlide(ctx, "missing", SlideInput{})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.svc.DeletePresentation(ctx, "missing"), ErrNotFound)
}

func TestTemplateDeck_RenderAndExport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := templates.Seed(ctx, f.store)
	require.NoError(t, err)

	p, slides, err := f.svc.CreateFromTemplate(ctx, "")
	require.NoError(t, err)
	require.Len(t, slides, 5)
	assert.Equal(t, "title-slide", slides[0].SlideID)

	comp, err := f.svc.RenderSlide(ctx, p.ID, 1, 1200)
	require.NoError(t, err)
	assert.Empty(t, comp.Message)
	assert.Empty(t, comp.Warnings)
	assert.Equal(t, "performance-slide", comp.SlideID)

	res, err := f.svc.Export(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "exports", res.Bucket)
	require.Len(t, res.Objects, 6)
	assert.Equal(t, p.ID+"/00-title-slide.html", res.Objects[0])
	assert.Equal(t, p.ID+"/deck.html", res.Objects[5])

	deck := f.objects.objects["exports/"+p.ID+"/deck.html"]
	assert.Equal(t, 5, strings.Count(deck, "data-slide-id="))
	assert.Contains(t, deck, "<title>Sample deck</title>")
}

func TestExport_Unavailable(t *testing.T) {
	f := newFixture(t)
	f.svc.objects = nil
	_, err := f.svc.Export(context.Background(), "any")
	assert.ErrorIs(t, err, ErrExportUnavailable)
}

func TestCharts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.CreateChart(ctx, &models.Chart{XML: "<ChartDefinition>"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	c := &models.Chart{XML: `<ChartDefinition><ChartConfig type="line" title="Trend"/></ChartDefinition>`}
	require.NoError(t, f.svc.CreateChart(ctx, c))
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "Trend", c.Name)

	got, err := f.svc.GetChart(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.XML, got.XML)

	require.NoError(t, f.svc.DeleteChart(ctx, c.ID))
	_, err = f.svc.GetChart(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTextComponents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.CreateTextComponent(ctx, &models.TextComponent{XML: "<TextComponent>"}), ErrInvalidInput)

	tc := &models.TextComponent{ID: "greeting", XML: `<TextComponent><Content><Text>Hi</Text></Content></TextComponent>`}
	require.NoError(t, f.svc.CreateTextComponent(ctx, tc))
	list, err := f.svc.ListTextComponents(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "greeting", list[0].Name)
	require.NoError(t, f.svc.DeleteTextComponent(ctx, "greeting"))
	assert.ErrorIs(t, f.svc.DeleteTextComponent(ctx, "greeting"), ErrNotFound)
}

func TestImportWorkbookFeedsRenderChart(t *testing.T) {
	f := newFixture(t)

	wb := excelize.NewFile()
	defer wb.Close()
	require.NoError(t, wb.SetSheetName("Sheet1", "revenue-data"))
	require.NoError(t, wb.SetSheetRow("revenue-data", "A1", &[]interface{}{"category", "value"}))
	require.NoError(t, wb.SetSheetRow("revenue-data", "A2", &[]interface{}{"Jan", 10}))
	require.NoError(t, wb.SetSheetRow("revenue-data", "A3", &[]interface{}{"Feb", 12}))
	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)

	ids, err := f.svc.ImportWorkbook(buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"revenue-data"}, ids)
	assert.Contains(t, f.svc.Datasets(), "revenue-data")

	scene, err := f.svc.RenderChart(context.Background(), ChartRequest{
		XML:   `<ChartDefinition><ChartConfig type="bar" title="Revenue"><Data><DataSource type="external" dataId="revenue-data"/></Data></ChartConfig></ChartDefinition>`,
		Width: 640, Height: 400,
	})
	require.NoError(t, err)
	bars := scene.MarksByRole("bar")
	require.Len(t, bars, 2)
	assert.Equal(t, "Jan", bars[0].Key)

	_, err = f.svc.ImportWorkbook(strings.NewReader("not a workbook"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRenderChart_Invalid(t *testing.T) {
	f := newFixture(t)
	scene, err := f.svc.RenderChart(context.Background(), ChartRequest{XML: "nope"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	require.NotNil(t, scene)
	assert.NotEmpty(t, scene.Message)
}

func TestNotesMarkdown(t *testing.T) {
	assert.Equal(t, "**Intro**\n\nWhy we are here\n\n_Data insights:_ up 5%",
		NotesMarkdown(models.SlideNote{Title: "Intro", ContentDescription: "Why we are here", DataInsights: "up 5%"}))
	assert.Empty(t, NotesMarkdown(models.SlideNote{}))
}

func TestStackedLayoutOption(t *testing.T) {
	f := newFixture(t)
	f.svc.opts.AdaptiveLayout = false
	x := `<Slide><Title>T</Title><Chart type="bar" placeholder="p"/></Slide>`
	comp := f.svc.compose(slidelayout.Resources{}, &models.Slide{XML: &x}, 0)
	assert.Equal(t, slidelayout.ModeStacked, comp.Arrangement.Mode)
}

func TestRenderChart_CachedUntilCatalogChanges(t *testing.T) {
	f := newFixture(t)
	req := ChartRequest{XML: `<ChartDefinition><ChartConfig type="pie" title="Share"/></ChartDefinition>`, Width: 300, Height: 200}

	first, err := f.svc.RenderChart(context.Background(), req)
	require.NoError(t, err)
	again, err := f.svc.RenderChart(context.Background(), req)
	require.NoError(t, err)
	assert.Same(t, first, again)

	f.svc.catalog.Merge(nil)
	fresh, err := f.svc.RenderChart(context.Background(), req)
	require.NoError(t, err)
	assert.NotSame(t, first, fresh)
}

func TestRenderChart_CacheKeyHashesDocument(t *testing.T) {
	a := ChartRequest{XML: `<ChartDefinition><ChartConfig type="pie" title="AAAA"/></ChartDefinition>`}
	b := ChartRequest{XML: `<ChartDefinition><ChartConfig type="pie" title="BBBB"/></ChartDefinition>`}
	ka, kb := keyOf(a, 1), keyOf(b, 1)
	assert.NotEqual(t, ka, kb)
	assert.Equal(t, ka, keyOf(a, 1))
	assert.NotEqual(t, ka, keyOf(a, 2))
	assert.Equal(t, len(a.XML), ka.docLen)

	f := newFixture(t)
	sa, err := f.svc.RenderChart(context.Background(), a)
	require.NoError(t, err)
	sb, err := f.svc.RenderChart(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, "AAAA", sa.Title.Text)
	assert.Equal(t, "BBBB", sb.Title.Text)
}

func TestInteractChart_NetworkDragAndHover(t *testing.T) {
	f := newFixture(t)
	req := ChartRequest{
		XML:    `<ChartDefinition><Chart id="org" type="network"><DataSource dataId="organization-network-data"/></Chart></ChartDefinition>`,
		Width:  600,
		Height: 400,
	}
	plain, err := f.svc.RenderChart(context.Background(), req)
	require.NoError(t, err)
	links := len(plain.MarksByRole("link"))
	require.Positive(t, links)

	req.Interaction = chart.Interaction{
		Drags: []chart.DragMove{{Node: "CFO", X: 10, Y: 20}},
		Ticks: 5,
		Hover: &chart.Pointer{Mark: links, X: 50, Y: 50},
	}
	scene, res, err := f.svc.InteractChart(context.Background(), req)
	require.NoError(t, err)
	assert.NotSame(t, plain, scene)
	assert.Equal(t, []string{"CFO"}, res.Dragged)
	assert.Equal(t, 5, res.Ticks)
	assert.True(t, res.Hovered)
	require.NotNil(t, scene.Panel)
	assert.Equal(t, "Chief Executive Officer", scene.Panel.Lines[0])

	// The cached scene is untouched by the replay.
	assert.Nil(t, plain.Panel)
	again, err := f.svc.RenderChart(context.Background(), ChartRequest{XML: req.XML, Width: 600, Height: 400})
	require.NoError(t, err)
	assert.Same(t, plain, again)
}
