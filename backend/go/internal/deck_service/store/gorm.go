package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"slidecraft/backend/go/internal/models"
)

type presentationRow struct {
	ID        string `gorm:"primaryKey;size:64"`
	Prompt    string `gorm:"type:text"`
	Audiences datatypes.JSON
	CreatedAt time.Time `gorm:"index"`
}

func (presentationRow) TableName() string { return "presentations" }

// slideRow stores the index as position; INDEX is reserved in MySQL.
type slideRow struct {
	ID                      string  `gorm:"primaryKey;size:64"`
	PresentationID          string  `gorm:"size:64;not null;index:idx_slide_position,priority:1;index:idx_slide_ref,priority:1"`
	Position                int     `gorm:"not null;index:idx_slide_position,priority:2"`
	SlideID                 string  `gorm:"size:255;index:idx_slide_ref,priority:2"`
	XML                     *string `gorm:"type:longtext"`
	NotesTitle              string  `gorm:"size:512"`
	NotesContentDescription string  `gorm:"type:text"`
	NotesDataInsights       string  `gorm:"type:text"`
	UpdatedAt               time.Time
}

func (slideRow) TableName() string { return "slides" }

type chartRow struct {
	ID        string `gorm:"primaryKey;size:64"`
	Name      string `gorm:"size:255"`
	Type      string `gorm:"size:32;index"`
	XML       string `gorm:"type:longtext"`
	CreatedAt time.Time
}

func (chartRow) TableName() string { return "charts" }

type textComponentRow struct {
	ID        string `gorm:"primaryKey;size:64"`
	Name      string `gorm:"size:255"`
	XML       string `gorm:"type:longtext"`
	CreatedAt time.Time
}

func (textComponentRow) TableName() string { return "text_components" }

func toPresentationRow(p *models.Presentation) (*presentationRow, error) {
	audiences, err := json.Marshal(p.Audiences)
	if err != nil {
		return nil, err
	}
	return &presentationRow{ID: p.ID, Prompt: p.Prompt, Audiences: datatypes.JSON(audiences), CreatedAt: p.CreatedAt}, nil
}

func (r *presentationRow) model() (*models.Presentation, error) {
	p := &models.Presentation{ID: r.ID, Prompt: r.Prompt, CreatedAt: r.CreatedAt}
	if len(r.Audiences) > 0 {
		if err := json.Unmarshal(r.Audiences, &p.Audiences); err != nil {
			return nil, fmt.Errorf("decode audiences of %s: %w", r.ID, err)
		}
	}
	return p, nil
}

func toSlideRow(s *models.Slide) *slideRow {
	return &slideRow{
		ID:                      s.ID,
		PresentationID:          s.PresentationID,
		Position:                s.Index,
		SlideID:                 s.SlideID,
		XML:                     s.XML,
		NotesTitle:              s.Notes.Title,
		NotesContentDescription: s.Notes.ContentDescription,
		NotesDataInsights:       s.Notes.DataInsights,
		UpdatedAt:               s.UpdatedAt,
	}
}

func (r *slideRow) model() *models.Slide {
	return &models.Slide{
		ID:             r.ID,
		PresentationID: r.PresentationID,
		Index:          r.Position,
		SlideID:        r.SlideID,
		XML:            r.XML,
		Notes: models.SlideNote{
			Title:              r.NotesTitle,
			ContentDescription: r.NotesContentDescription,
			DataInsights:       r.NotesDataInsights,
		},
		UpdatedAt: r.UpdatedAt,
	}
}

// GormStore implements Store on MySQL through gorm. Slide replacement and
// deletion run in transactions.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// NewGormStore builds a store on db. The connection is owned by the caller.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Ready pings the database and migrates the schema.
func (s *GormStore) Ready(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping mysql: %w", err)
	}
	if err := s.db.WithContext(ctx).AutoMigrate(&presentationRow{}, &slideRow{}, &chartRow{}, &textComponentRow{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *GormStore) Close(context.Context) error { return nil }

func first[T any](db *gorm.DB, query string, args ...interface{}) (*T, error) {
	var row T
	if err := db.Where(query, args...).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func updated(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- presentations ---

func (s *GormStore) CreatePresentation(ctx context.Context, p *models.Presentation) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	row, err := toPresentationRow(p)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(row).Error
}

func (s *GormStore) GetPresentation(ctx context.Context, id string) (*models.Presentation, error) {
	row, err := first[presentationRow](s.db.WithContext(ctx), "id = ?", id)
	if err != nil || row == nil {
		return nil, err
	}
	return row.model()
}

func (s *GormStore) ListPresentations(ctx context.Context) ([]*models.Presentation, error) {
	var rows []presentationRow
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*models.Presentation, 0, len(rows))
	for i := range rows {
		p, err := rows[i].model()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *GormStore) UpdatePresentation(ctx context.Context, p *models.Presentation) error {
	row, err := toPresentationRow(p)
	if err != nil {
		return err
	}
	return updated(s.db.WithContext(ctx).Model(&presentationRow{}).Where("id = ?", p.ID).
		Updates(map[string]interface{}{"prompt": row.Prompt, "audiences": row.Audiences}))
}

func (s *GormStore) DeletePresentation(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("presentation_id = ?", id).Delete(&slideRow{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&presentationRow{}).Error
	})
}

// --- slides ---

func (s *GormStore) GetSlide(ctx context.Context, id string) (*models.Slide, error) {
	row, err := first[slideRow](s.db.WithContext(ctx), "id = ?", id)
	if err != nil || row == nil {
		return nil, err
	}
	return row.model(), nil
}

func (s *GormStore) ListSlides(ctx context.Context, presentationID string) ([]*models.Slide, error) {
	var rows []slideRow
	err := s.db.WithContext(ctx).Where("presentation_id = ?", presentationID).Order("position ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*models.Slide, len(rows))
	for i := range rows {
		out[i] = rows[i].model()
	}
	return out, nil
}

func (s *GormStore) AppendSlide(ctx context.Context, slide *models.Slide) error {
	return s.AppendSlides(ctx, []*models.Slide{slide})
}

func (s *GormStore) AppendSlides(ctx context.Context, slides []*models.Slide) error {
	if len(slides) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		next := map[string]int{}
		rows := make([]*slideRow, 0, len(slides))
		for _, slide := range slides {
			idx, ok := next[slide.PresentationID]
			if !ok {
				var last int64
				err := tx.Model(&slideRow{}).Where("presentation_id = ?", slide.PresentationID).
					Select("COALESCE(MAX(position), -1)").Row().Scan(&last)
				if err != nil {
					return fmt.Errorf("read last slide index: %w", err)
				}
				idx = int(last) + 1
			}
			next[slide.PresentationID] = idx + 1
			if slide.ID == "" {
				slide.ID = uuid.New().String()
			}
			slide.Index = idx
			rows = append(rows, toSlideRow(slide))
		}
		return tx.Create(&rows).Error
	})
}

func (s *GormStore) UpdateSlide(ctx context.Context, slide *models.Slide) error {
	row := toSlideRow(slide)
	return updated(s.db.WithContext(ctx).Model(&slideRow{}).Where("id = ?", slide.ID).Updates(map[string]interface{}{
		"slide_id":                  row.SlideID,
		"xml":                       row.XML,
		"notes_title":               row.NotesTitle,
		"notes_content_description": row.NotesContentDescription,
		"notes_data_insights":       row.NotesDataInsights,
		"updated_at":                time.Now(),
	}))
}

func (s *GormStore) UpdateSlideXML(ctx context.Context, presentationID, slideID, xml string) (bool, error) {
	found := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scope := func() *gorm.DB {
			return tx.Model(&slideRow{}).Where("presentation_id = ? AND slide_id = ?", presentationID, slideID)
		}
		var n int64
		if err := scope().Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		found = true
		return scope().Updates(map[string]interface{}{"xml": xml, "updated_at": time.Now()}).Error
	})
	return found, err
}

func (s *GormStore) DeleteSlide(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := first[slideRow](tx, "id = ?", id)
		if err != nil {
			return err
		}
		if row == nil {
			return ErrNotFound
		}
		if err := tx.Where("id = ?", id).Delete(&slideRow{}).Error; err != nil {
			return err
		}
		return tx.Model(&slideRow{}).
			Where("presentation_id = ? AND position > ?", row.PresentationID, row.Position).
			UpdateColumn("position", gorm.Expr("position - 1")).Error
	})
}

func (s *GormStore) DeleteSlides(ctx context.Context, presentationID string) error {
	return s.db.WithContext(ctx).Where("presentation_id = ?", presentationID).Delete(&slideRow{}).Error
}

func (s *GormStore) ReplaceSlides(ctx context.Context, presentationID string, slides []*models.Slide) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("presentation_id = ?", presentationID).Delete(&slideRow{}).Error; err != nil {
			return fmt.Errorf("delete slides: %w", err)
		}
		if len(slides) == 0 {
			return nil
		}
		rows := make([]*slideRow, len(slides))
		for i, slide := range slides {
			if slide.ID == "" {
				slide.ID = uuid.New().String()
			}
			slide.PresentationID = presentationID
			slide.Index = i
			rows[i] = toSlideRow(slide)
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert slides: %w", err)
		}
		return nil
	})
}

// --- charts ---

func (s *GormStore) CreateChart(ctx context.Context, c *models.Chart) error {
	return s.CreateCharts(ctx, []*models.Chart{c})
}

func (s *GormStore) CreateCharts(ctx context.Context, charts []*models.Chart) error {
	if len(charts) == 0 {
		return nil
	}
	rows := make([]*chartRow, len(charts))
	for i, c := range charts {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Now()
		}
		rows[i] = &chartRow{ID: c.ID, Name: c.Name, Type: c.Type, XML: c.XML, CreatedAt: c.CreatedAt}
	}
	return s.db.WithContext(ctx).Create(&rows).Error
}

func (s *GormStore) GetChart(ctx context.Context, id string) (*models.Chart, error) {
	row, err := first[chartRow](s.db.WithContext(ctx), "id = ?", id)
	if err != nil || row == nil {
		return nil, err
	}
	return &models.Chart{ID: row.ID, Name: row.Name, Type: row.Type, XML: row.XML, CreatedAt: row.CreatedAt}, nil
}

func (s *GormStore) ListCharts(ctx context.Context) ([]*models.Chart, error) {
	var rows []chartRow
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*models.Chart, len(rows))
	for i, r := range rows {
		out[i] = &models.Chart{ID: r.ID, Name: r.Name, Type: r.Type, XML: r.XML, CreatedAt: r.CreatedAt}
	}
	return out, nil
}

func (s *GormStore) UpdateChart(ctx context.Context, c *models.Chart) error {
	return updated(s.db.WithContext(ctx).Model(&chartRow{}).Where("id = ?", c.ID).
		Updates(map[string]interface{}{"name": c.Name, "type": c.Type, "xml": c.XML}))
}

func (s *GormStore) DeleteChart(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&chartRow{}).Error
}

// --- text components ---

func (s *GormStore) CreateTextComponent(ctx context.Context, t *models.TextComponent) error {
	return s.CreateTextComponents(ctx, []*models.TextComponent{t})
}

func (s *GormStore) CreateTextComponents(ctx context.Context, ts []*models.TextComponent) error {
	if len(ts) == 0 {
		return nil
	}
	rows := make([]*textComponentRow, len(ts))
	for i, t := range ts {
		if t.ID == "" {
			t.ID = uuid.New().String()
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now()
		}
		rows[i] = &textComponentRow{ID: t.ID, Name: t.Name, XML: t.XML, CreatedAt: t.CreatedAt}
	}
	return s.db.WithContext(ctx).Create(&rows).Error
}

func (s *GormStore) GetTextComponent(ctx context.Context, id string) (*models.TextComponent, error) {
	row, err := first[textComponentRow](s.db.WithContext(ctx), "id = ?", id)
	if err != nil || row == nil {
		return nil, err
	}
	return &models.TextComponent{ID: row.ID, Name: row.Name, XML: row.XML, CreatedAt: row.CreatedAt}, nil
}

func (s *GormStore) ListTextComponents(ctx context.Context) ([]*models.TextComponent, error) {
	var rows []textComponentRow
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*models.TextComponent, len(rows))
	for i, r := range rows {
		out[i] = &models.TextComponent{ID: r.ID, Name: r.Name, XML: r.XML, CreatedAt: r.CreatedAt}
	}
	return out, nil
}

func (s *GormStore) UpdateTextComponent(ctx context.Context, t *models.TextComponent) error {
	return updated(s.db.WithContext(ctx).Model(&textComponentRow{}).Where("id = ?", t.ID).
		Updates(map[string]interface{}{"name": t.Name, "xml": t.XML}))
}

func (s *GormStore) DeleteTextComponent(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&textComponentRow{}).Error
}
