package service

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
)

// ObjectStore receives exported slides.
type ObjectStore interface {
	PutObject(ctx context.Context, bucket, name string, r io.Reader, size int64, contentType string) error
}

type minioObjects struct {
	client *minio.Client
}

// NewMinioObjectStore adapts a MinIO client.
func NewMinioObjectStore(client *minio.Client) ObjectStore {
	return &minioObjects{client: client}
}

func (m *minioObjects) PutObject(ctx context.Context, bucket, name string, r io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, bucket, name, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", bucket, name, err)
	}
	return nil
}

// ExportResult lists the objects written by Export.
type ExportResult struct {
	Bucket  string   `json:"bucket"`
	Objects []string `json:"objects"`
}

// Export renders every slide of a presentation to HTML and uploads one
// object per slide plus a combined deck.html.
func (s *DeckService) Export(ctx context.Context, presentationID string) (*ExportResult, error) {
	if s.objects == nil {
		return nil, ErrExportUnavailable
	}
	p, err := s.store.GetPresentation(ctx, presentationID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	slides, err := s.store.ListSlides(ctx, presentationID)
	if err != nil {
		return nil, err
	}
	res, err := s.resources(ctx)
	if err != nil {
		return nil, err
	}

	result := &ExportResult{Bucket: s.opts.ExportBucket}
	var deck bytes.Buffer
	deck.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>")
	deck.WriteString(htmlEscape(p.Prompt))
	deck.WriteString("</title></head><body>\n")
	for _, slide := range slides {
		comp := s.compose(res, slide, 0)
		page, err := comp.HTML()
		if err != nil {
			return nil, fmt.Errorf("render slide %d: %w", slide.Index, err)
		}
		name := fmt.Sprintf("%s/%02d-%s.html", presentationID, slide.Index, objectSlug(slide.SlideID))
		if err := s.put(ctx, name, []byte(page)); err != nil {
			return nil, err
		}
		result.Objects = append(result.Objects, name)
		deck.WriteString(page)
		deck.WriteString("\n")
	}
	deck.WriteString("</body></html>\n")

	name := presentationID + "/deck.html"
	if err := s.put(ctx, name, deck.Bytes()); err != nil {
		return nil, err
	}
	result.Objects = append(result.Objects, name)
	s.logger.WithJob(presentationID).WithPayload(map[string]interface{}{"objects": len(result.Objects)}).Info("Presentation exported")
	return result, nil
}

func (s *DeckService) put(ctx context.Context, name string, body []byte) error {
	err := s.objects.PutObject(ctx, s.opts.ExportBucket, name, bytes.NewReader(body), int64(len(body)), "text/html; charset=utf-8")
	if err != nil {
		s.logger.WithError(errorInfo(err)).WithPayload(map[string]interface{}{"object": name}).Error("Failed to upload export")
		return err
	}
	return nil
}
