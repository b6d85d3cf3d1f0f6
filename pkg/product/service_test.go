package product

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/Pulkitg-senkusha/Products-Cart/pkg/common/logger"
	"github.com/Pulkitg-senkusha/Products-Cart/pkg/observability/metrics"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type stubSource struct {
	listings []Listing
	err      error
}

func (s *stubSource) Search(ctx context.Context, query string) ([]Listing, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.listings, nil
}

// memStore implements Store in memory with the same upsert contract as the
// real repository: conflicts update name/price/rating and keep viewed.
type memStore struct {
	rows      map[string]Product
	order     []string
	failIDs   map[string]bool
	upsertErr error
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]Product), failIDs: make(map[string]bool)}
}

func (m *memStore) UpsertBatch(ctx context.Context, recs []Product) ([]Product, error) {
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	stored := make([]Product, 0, len(recs))
	for _, rec := range recs {
		if m.failIDs[rec.ProductID] {
			continue
		}
		if existing, ok := m.rows[rec.ProductID]; ok {
			rec.Viewed = existing.Viewed
		} else {
			m.order = append(m.order, rec.ProductID)
		}
		m.rows[rec.ProductID] = rec
		stored = append(stored, rec)
	}
	return stored, nil
}

func (m *memStore) List(ctx context.Context) ([]Product, error) {
	out := make([]Product, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.rows[id])
	}
	return out, nil
}

func (m *memStore) Delete(ctx context.Context, id string) (*Product, error) {
	rec, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.rows, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return &rec, nil
}

func (m *memStore) MarkViewed(ctx context.Context, id string) (*Product, error) {
	rec, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	rec.Viewed = true
	m.rows[id] = rec
	return &rec, nil
}

type stubPublisher struct {
	events []string
	err    error
}

func (p *stubPublisher) PublishEvent(ctx context.Context, eventType, source string, data map[string]interface{}) error {
	p.events = append(p.events, eventType)
	return p.err
}

func listing(id, title, price, rating string) Listing {
	return Listing{ASIN: id, Title: title, Price: price, StarRating: rating}
}

func newTestService(src Source, store Store, pub Publisher) *Service {
	return NewService(src, store, pub, metrics.New())
}

func TestFetchAndStoreBoundsToLimit(t *testing.T) {
	src := &stubSource{listings: []Listing{
		listing("A1", "First", "$10", "4.1"),
		listing("A2", "Second", "$20", "4.2"),
		listing("A3", "Third", "$30", ""),
		listing("A4", "Fourth", "$40", "4.4"),
		listing("A5", "Fifth", "$50", "4.5"),
		listing("A6", "Sixth", "$60", "4.6"),
	}}
	svc := newTestService(src, newMemStore(), nil)

	stored, err := svc.FetchAndStore(context.Background(), "mouse", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stored) != 4 {
		t.Fatalf("expected 4 products, got %d", len(stored))
	}
	for i, want := range []string{"A1", "A2", "A3", "A4"} {
		if stored[i].ProductID != want {
			t.Fatalf("expected %s at position %d, got %s", want, i, stored[i].ProductID)
		}
	}
	if stored[2].ProductStarRating != nil {
		t.Fatalf("expected nil rating for A3, got %q", *stored[2].ProductStarRating)
	}
	if stored[0].ProductStarRating == nil || *stored[0].ProductStarRating != "4.1" {
		t.Fatal("expected A1 rating to pass through")
	}
}

func TestFetchAndStoreSkipsIncompleteListings(t *testing.T) {
	src := &stubSource{listings: []Listing{
		listing("", "No ID", "$10", ""),
		listing("B1", "", "$10", ""),
		listing("B2", "No price", "", ""),
		listing("B3", "Kept", "$15", "3.9"),
		listing("B4", "Also kept", "$25", ""),
	}}
	svc := newTestService(src, newMemStore(), nil)

	stored, err := svc.FetchAndStore(context.Background(), "mouse", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 products, got %d", len(stored))
	}
	if stored[0].ProductID != "B3" || stored[1].ProductID != "B4" {
		t.Fatalf("unexpected products: %v", stored)
	}
}

func TestFetchAndStoreZeroLimit(t *testing.T) {
	src := &stubSource{listings: []Listing{listing("C1", "Something", "$5", "")}}
	store := newMemStore()
	svc := newTestService(src, store, nil)

	stored, err := svc.FetchAndStore(context.Background(), "mouse", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stored) != 0 {
		t.Fatalf("expected no products with limit 0, got %d", len(stored))
	}
	if len(store.rows) != 0 {
		t.Fatal("expected nothing persisted with limit 0")
	}
}

func TestFetchAndStoreIdempotentUpsert(t *testing.T) {
	src := &stubSource{listings: []Listing{listing("D1", "Keyboard", "$30", "4.0")}}
	store := newMemStore()
	svc := newTestService(src, store, nil)

	if _, err := svc.FetchAndStore(context.Background(), "keyboard", 4); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := svc.MarkViewed(context.Background(), "D1"); err != nil {
		t.Fatalf("mark viewed: %v", err)
	}

	src.listings = []Listing{listing("D1", "Keyboard v2", "$35", "4.2")}
	stored, err := svc.FetchAndStore(context.Background(), "keyboard", 4)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(store.rows) != 1 {
		t.Fatalf("expected a single row, got %d", len(store.rows))
	}
	if stored[0].ProductName != "Keyboard v2" || stored[0].ProductPrice != "$35" {
		t.Fatalf("expected updated fields, got %+v", stored[0])
	}
	if !stored[0].Viewed {
		t.Fatal("expected viewed flag to survive the upsert")
	}
}

func TestFetchAndStoreSourceErrorPassesThrough(t *testing.T) {
	src := &stubSource{err: SourceError{StatusCode: 503, Message: "upstream down"}}
	svc := newTestService(src, newMemStore(), nil)

	_, err := svc.FetchAndStore(context.Background(), "mouse", 4)
	var se SourceError
	if !errors.As(err, &se) {
		t.Fatalf("expected SourceError, got %T: %v", err, err)
	}
	if se.StatusCode != 503 || se.Message != "upstream down" {
		t.Fatalf("expected status and message preserved verbatim, got %+v", se)
	}
	var pe PipelineError
	if errors.As(err, &pe) {
		t.Fatal("classified error must not be re-wrapped")
	}
}

func TestFetchAndStoreMalformedResponseDistinct(t *testing.T) {
	src := &stubSource{err: MalformedResponseError{Reason: "response JSON missing 'products' list"}}
	svc := newTestService(src, newMemStore(), nil)

	_, err := svc.FetchAndStore(context.Background(), "mouse", 4)
	var me MalformedResponseError
	if !errors.As(err, &me) {
		t.Fatalf("expected MalformedResponseError, got %T: %v", err, err)
	}
	var se SourceError
	if errors.As(err, &se) {
		t.Fatal("malformed response must stay distinct from source errors")
	}
	if status, _ := HTTPStatus(err); status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
}

func TestFetchAndStoreWrapsUnclassifiedErrors(t *testing.T) {
	src := &stubSource{err: errors.New("connection reset")}
	svc := newTestService(src, newMemStore(), nil)

	_, err := svc.FetchAndStore(context.Background(), "mouse", 4)
	var pe PipelineError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PipelineError, got %T: %v", err, err)
	}
	if pe.Err.Error() != "connection reset" {
		t.Fatalf("expected original message preserved, got %q", pe.Err.Error())
	}
	if status, _ := HTTPStatus(err); status != 500 {
		t.Fatalf("expected 500, got %d", status)
	}

	store := newMemStore()
	store.upsertErr = errors.New("db gone")
	svc = newTestService(&stubSource{listings: []Listing{listing("E1", "X", "$1", "")}}, store, nil)
	_, err = svc.FetchAndStore(context.Background(), "mouse", 4)
	if !errors.As(err, &pe) {
		t.Fatalf("expected PipelineError from store failure, got %T: %v", err, err)
	}
}

func TestFetchAndStoreBestEffortBatch(t *testing.T) {
	src := &stubSource{listings: []Listing{
		listing("F1", "Fine", "$1", ""),
		listing("F2", "Rejected", "$2", ""),
		listing("F3", "Fine too", "$3", ""),
	}}
	store := newMemStore()
	store.failIDs["F2"] = true
	svc := newTestService(src, store, nil)

	stored, err := svc.FetchAndStore(context.Background(), "mouse", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 committed products, got %d", len(stored))
	}
	if stored[0].ProductID != "F1" || stored[1].ProductID != "F3" {
		t.Fatalf("unexpected surviving products: %v", stored)
	}
}

func TestMarkViewedNotFound(t *testing.T) {
	svc := newTestService(&stubSource{}, newMemStore(), nil)

	_, err := svc.MarkViewed(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteNotFound(t *testing.T) {
	svc := newTestService(&stubSource{}, newMemStore(), nil)

	_, err := svc.Delete(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPublishFailureDoesNotSurface(t *testing.T) {
	src := &stubSource{listings: []Listing{listing("G1", "Widget", "$9", "")}}
	pub := &stubPublisher{err: errors.New("broker unavailable")}
	svc := newTestService(src, newMemStore(), pub)

	stored, err := svc.FetchAndStore(context.Background(), "widget", 4)
	if err != nil {
		t.Fatalf("publish failure must not surface: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected 1 product, got %d", len(stored))
	}
	if len(pub.events) != 1 || pub.events[0] != "product.upserted" {
		t.Fatalf("expected a product.upserted publish attempt, got %v", pub.events)
	}
}

func TestMutationsPublishEvents(t *testing.T) {
	store := newMemStore()
	store.rows["H1"] = Product{ProductID: "H1", ProductName: "Thing", ProductPrice: "$2"}
	store.order = append(store.order, "H1")
	pub := &stubPublisher{}
	svc := newTestService(&stubSource{}, store, pub)

	if _, err := svc.MarkViewed(context.Background(), "H1"); err != nil {
		t.Fatalf("mark viewed: %v", err)
	}
	if _, err := svc.Delete(context.Background(), "H1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(pub.events) != 2 || pub.events[0] != "product.viewed" || pub.events[1] != "product.deleted" {
		t.Fatalf("unexpected events: %v", pub.events)
	}

	// Not-found mutations must not publish.
	if _, err := svc.Delete(context.Background(), "H1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(pub.events) != 2 {
		t.Fatalf("not-found mutation must not publish, got %v", pub.events)
	}
}
