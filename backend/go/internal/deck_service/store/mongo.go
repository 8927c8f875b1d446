package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"slidecraft/backend/go/internal/models"
)

// Collection names used by MongoStore.
const (
	PresentationsCollection  = "presentations"
	SlidesCollection         = "slides"
	ChartsCollection         = "charts"
	TextComponentsCollection = "text_components"
)

// MongoStore implements Store on MongoDB. With transactions enabled, slide
// replacement and deletion run in a multi-document transaction, which needs
// a replica set.
type MongoStore struct {
	client         *mongo.Client
	presentations  *mongo.Collection
	slides         *mongo.Collection
	charts         *mongo.Collection
	textComponents *mongo.Collection
	transactions   bool
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore builds a store on db. The client is owned by the caller.
func NewMongoStore(db *mongo.Database, transactions bool) *MongoStore {
	return &MongoStore{
		client:         db.Client(),
		presentations:  db.Collection(PresentationsCollection),
		slides:         db.Collection(SlidesCollection),
		charts:         db.Collection(ChartsCollection),
		textComponents: db.Collection(TextComponentsCollection),
		transactions:   transactions,
	}
}

// Ready pings the server and creates the slide indexes.
func (s *MongoStore) Ready(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping mongodb: %w", err)
	}
	_, err := s.slides.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "presentation_id", Value: 1}, {Key: "index", Value: 1}}},
		{Keys: bson.D{{Key: "presentation_id", Value: 1}, {Key: "slide_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create slide indexes: %w", err)
	}
	return nil
}

// Close is a no-op; the client belongs to the database package.
func (s *MongoStore) Close(context.Context) error { return nil }

// atomically runs fn in a transaction when enabled, directly otherwise.
func (s *MongoStore) atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.transactions {
		return fn(ctx)
	}
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOneOptions) (*T, error) {
	var v T
	err := coll.FindOne(ctx, filter, opts...).Decode(&v)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]*T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*T
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// --- presentations ---

func (s *MongoStore) CreatePresentation(ctx context.Context, p *models.Presentation) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	_, err := s.presentations.InsertOne(ctx, p)
	return err
}

func (s *MongoStore) GetPresentation(ctx context.Context, id string) (*models.Presentation, error) {
	return findOne[models.Presentation](ctx, s.presentations, bson.M{"_id": id})
}

func (s *MongoStore) ListPresentations(ctx context.Context) ([]*models.Presentation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findAll[models.Presentation](ctx, s.presentations, bson.M{}, opts)
}

func (s *MongoStore) UpdatePresentation(ctx context.Context, p *models.Presentation) error {
	res, err := s.presentations.UpdateOne(ctx, bson.M{"_id": p.ID}, bson.M{
		"$set": bson.M{"prompt": p.Prompt, "audiences": p.Audiences},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeletePresentation(ctx context.Context, id string) error {
	return s.atomically(ctx, func(ctx context.Context) error {
		if _, err := s.slides.DeleteMany(ctx, bson.M{"presentation_id": id}); err != nil {
			return err
		}
		_, err := s.presentations.DeleteOne(ctx, bson.M{"_id": id})
		return err
	})
}

// --- slides ---

func (s *MongoStore) GetSlide(ctx context.Context, id string) (*models.Slide, error) {
	return findOne[models.Slide](ctx, s.slides, bson.M{"_id": id})
}

func (s *MongoStore) ListSlides(ctx context.Context, presentationID string) ([]*models.Slide, error) {
	opts := options.Find().SetSort(bson.D{{Key: "index", Value: 1}})
	return findAll[models.Slide](ctx, s.slides, bson.M{"presentation_id": presentationID}, opts)
}

func (s *MongoStore) nextIndex(ctx context.Context, presentationID string) (int, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "index", Value: -1}})
	last, err := findOne[models.Slide](ctx, s.slides, bson.M{"presentation_id": presentationID}, opts)
	if err != nil {
		return 0, err
	}
	if last == nil {
		return 0, nil
	}
	return last.Index + 1, nil
}

func (s *MongoStore) AppendSlide(ctx context.Context, slide *models.Slide) error {
	return s.AppendSlides(ctx, []*models.Slide{slide})
}

func (s *MongoStore) AppendSlides(ctx context.Context, slides []*models.Slide) error {
	return s.atomically(ctx, func(ctx context.Context) error {
		next := map[string]int{}
		docs := make([]interface{}, 0, len(slides))
		for _, slide := range slides {
			idx, ok := next[slide.PresentationID]
			if !ok {
				var err error
				if idx, err = s.nextIndex(ctx, slide.PresentationID); err != nil {
					return err
				}
			}
			next[slide.PresentationID] = idx + 1
			if slide.ID == "" {
				slide.ID = uuid.New().String()
			}
			if slide.UpdatedAt.IsZero() {
				slide.UpdatedAt = time.Now()
			}
			slide.Index = idx
			docs = append(docs, slide)
		}
		if len(docs) == 0 {
			return nil
		}
		_, err := s.slides.InsertMany(ctx, docs)
		return err
	})
}

func (s *MongoStore) UpdateSlide(ctx context.Context, slide *models.Slide) error {
	res, err := s.slides.UpdateOne(ctx, bson.M{"_id": slide.ID}, bson.M{
		"$set": bson.M{
			"slide_id":   slide.SlideID,
			"xml":        slide.XML,
			"notes":      slide.Notes,
			"updated_at": time.Now(),
		},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) UpdateSlideXML(ctx context.Context, presentationID, slideID, xml string) (bool, error) {
	res, err := s.slides.UpdateMany(ctx,
		bson.M{"presentation_id": presentationID, "slide_id": slideID},
		bson.M{"$set": bson.M{"xml": xml, "updated_at": time.Now()}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoStore) DeleteSlide(ctx context.Context, id string) error {
	return s.atomically(ctx, func(ctx context.Context) error {
		slide, err := s.GetSlide(ctx, id)
		if err != nil {
			return err
		}
		if slide == nil {
			return ErrNotFound
		}
		if _, err := s.slides.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
			return err
		}
		_, err = s.slides.UpdateMany(ctx,
			bson.M{"presentation_id": slide.PresentationID, "index": bson.M{"$gt": slide.Index}},
			bson.M{"$inc": bson.M{"index": -1}},
		)
		return err
	})
}

func (s *MongoStore) DeleteSlides(ctx context.Context, presentationID string) error {
	_, err := s.slides.DeleteMany(ctx, bson.M{"presentation_id": presentationID})
	return err
}

func (s *MongoStore) ReplaceSlides(ctx context.Context, presentationID string, slides []*models.Slide) error {
	return s.atomically(ctx, func(ctx context.Context) error {
		if _, err := s.slides.DeleteMany(ctx, bson.M{"presentation_id": presentationID}); err != nil {
			return fmt.Errorf("delete slides: %w", err)
		}
		if len(slides) == 0 {
			return nil
		}
		docs := make([]interface{}, len(slides))
		for i, slide := range slides {
			if slide.ID == "" {
				slide.ID = uuid.New().String()
			}
			slide.PresentationID = presentationID
			slide.Index = i
			docs[i] = slide
		}
		if _, err := s.slides.InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("insert slides: %w", err)
		}
		return nil
	})
}

// --- charts ---

func (s *MongoStore) CreateChart(ctx context.Context, c *models.Chart) error {
	return s.CreateCharts(ctx, []*models.Chart{c})
}

func (s *MongoStore) CreateCharts(ctx context.Context, charts []*models.Chart) error {
	if len(charts) == 0 {
		return nil
	}
	docs := make([]interface{}, len(charts))
	for i, c := range charts {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Now()
		}
		docs[i] = c
	}
	_, err := s.charts.InsertMany(ctx, docs)
	return err
}

func (s *MongoStore) GetChart(ctx context.Context, id string) (*models.Chart, error) {
	return findOne[models.Chart](ctx, s.charts, bson.M{"_id": id})
}

func (s *MongoStore) ListCharts(ctx context.Context) ([]*models.Chart, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	return findAll[models.Chart](ctx, s.charts, bson.M{}, opts)
}

func (s *MongoStore) UpdateChart(ctx context.Context, c *models.Chart) error {
	res, err := s.charts.UpdateOne(ctx, bson.M{"_id": c.ID}, bson.M{
		"$set": bson.M{"name": c.Name, "type": c.Type, "xml": c.XML},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteChart(ctx context.Context, id string) error {
	_, err := s.charts.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// --- text components ---

func (s *MongoStore) CreateTextComponent(ctx context.Context, t *models.TextComponent) error {
	return s.CreateTextComponents(ctx, []*models.TextComponent{t})
}

func (s *MongoStore) CreateTextComponents(ctx context.Context, ts []*models.TextComponent) error {
	if len(ts) == 0 {
		return nil
	}
	docs := make([]interface{}, len(ts))
	for i, t := range ts {
		if t.ID == "" {
			t.ID = uuid.New().String()
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now()
		}
		docs[i] = t
	}
	_, err := s.textComponents.InsertMany(ctx, docs)
	return err
}

func (s *MongoStore) GetTextComponent(ctx context.Context, id string) (*models.TextComponent, error) {
	return findOne[models.TextComponent](ctx, s.textComponents, bson.M{"_id": id})
}

func (s *MongoStore) ListTextComponents(ctx context.Context) ([]*models.TextComponent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	return findAll[models.TextComponent](ctx, s.textComponents, bson.M{}, opts)
}

func (s *MongoStore) UpdateTextComponent(ctx context.Context, t *models.TextComponent) error {
	res, err := s.textComponents.UpdateOne(ctx, bson.M{"_id": t.ID}, bson.M{
		"$set": bson.M{"name": t.Name, "xml": t.XML},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteTextComponent(ctx context.Context, id string) error {
	_, err := s.textComponents.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
