package product

import (
	"context"
	"errors"

	"github.com/Pulkitg-senkusha/Products-Cart/pkg/common/logger"
	"github.com/Pulkitg-senkusha/Products-Cart/pkg/observability/metrics"
)

const eventSource = "product-service"

// Source fetches raw listings for a free-text query.
type Source interface {
	Search(ctx context.Context, query string) ([]Listing, error)
}

// Store persists normalized product records.
type Store interface {
	UpsertBatch(ctx context.Context, recs []Product) ([]Product, error)
	List(ctx context.Context) ([]Product, error)
	Delete(ctx context.Context, id string) (*Product, error)
	MarkViewed(ctx context.Context, id string) (*Product, error)
}

// Publisher emits product events after successful mutations. A nil Publisher
// disables publishing.
type Publisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

type Service struct {
	source    Source
	store     Store
	publisher Publisher
	metrics   *metrics.Metrics
}

func NewService(source Source, store Store, publisher Publisher, m *metrics.Metrics) *Service {
	return &Service{
		source:    source,
		store:     store,
		publisher: publisher,
		metrics:   m,
	}
}

// FetchAndStore runs the pipeline: query the source, keep listings that carry
// id, title and price (in source order, at most limit of them), upsert the
// survivors, and return the subset the store actually persisted.
func (s *Service) FetchAndStore(ctx context.Context, query string, limit int) ([]Product, error) {
	logger.Log.WithField("query", query).Info("Fetching products from source")

	listings, err := s.source.Search(ctx, query)
	if err != nil {
		err = s.classify(err)
		s.metrics.IncFetch(outcomeLabel(err))
		return nil, err
	}

	records := make([]Product, 0, limit)
	for _, l := range listings {
		if len(records) >= limit {
			break
		}
		if l.ASIN == "" || l.Title == "" || l.Price == "" {
			s.metrics.IncSkipped()
			logger.Log.WithField("asin", l.ASIN).Debug("Skipping listing with missing fields")
			continue
		}

		rec := Product{
			ProductID:    l.ASIN,
			ProductName:  l.Title,
			ProductPrice: l.Price,
		}
		if l.StarRating != "" {
			rating := l.StarRating
			rec.ProductStarRating = &rating
		}
		records = append(records, rec)
	}

	logger.Log.WithFields(map[string]interface{}{
		"query":     query,
		"extracted": len(records),
	}).Info("Extracted products, storing")

	stored, err := s.store.UpsertBatch(ctx, records)
	if err != nil {
		err = s.classify(err)
		s.metrics.IncFetch(outcomeLabel(err))
		return nil, err
	}

	for range stored {
		s.metrics.IncUpserted()
	}
	for i := 0; i < len(records)-len(stored); i++ {
		s.metrics.IncUpsertFailure()
	}
	s.metrics.IncFetch("success")

	s.publish(ctx, "product.upserted", map[string]interface{}{
		"query": query,
		"count": len(stored),
	})

	return stored, nil
}

// List returns every stored product.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.store.List(ctx)
}

// Delete removes a product by id; ErrNotFound passes through untouched.
func (s *Service) Delete(ctx context.Context, id string) (*Product, error) {
	rec, err := s.store.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "product.deleted", map[string]interface{}{"product_id": id})
	return rec, nil
}

// MarkViewed flips the viewed flag; ErrNotFound passes through untouched.
func (s *Service) MarkViewed(ctx context.Context, id string) (*Product, error) {
	rec, err := s.store.MarkViewed(ctx, id)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "product.viewed", map[string]interface{}{"product_id": id})
	return rec, nil
}

// classify wraps unclassified failures into PipelineError exactly once;
// SourceError and MalformedResponseError propagate unchanged.
func (s *Service) classify(err error) error {
	var se SourceError
	if errors.As(err, &se) {
		return err
	}
	var me MalformedResponseError
	if errors.As(err, &me) {
		return err
	}
	var pe PipelineError
	if errors.As(err, &pe) {
		return err
	}

	logger.Log.WithError(err).Error("Failed to fetch or store products")
	return PipelineError{Err: err}
}

// publish emits an event when a publisher is configured. Failures are logged
// and never surface to the caller.
func (s *Service) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEvent(ctx, eventType, eventSource, data); err != nil {
		logger.Log.WithError(err).WithField("event_type", eventType).Warn("Failed to publish product event")
	}
}

func outcomeLabel(err error) string {
	var se SourceError
	if errors.As(err, &se) {
		return "source_error"
	}
	var me MalformedResponseError
	if errors.As(err, &me) {
		return "malformed_response"
	}
	return "error"
}
