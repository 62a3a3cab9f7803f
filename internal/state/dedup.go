package state

import (
	"sync"

	"zootovary/crawler/internal/domain"
)

// KeyRegistry holds the run-wide article and barcode sets. Reserve is an
// atomic check-then-insert: both keys are checked and claimed under one
// lock, so two offers carrying the same article can never race past the
// duplicate check from different workers. The sets are append-only for the
// lifetime of the run.
type KeyRegistry struct {
	mu       sync.Mutex
	articles map[string]struct{}
	barcodes map[string]struct{}
}

func NewKeyRegistry() *KeyRegistry {
	return &KeyRegistry{
		articles: make(map[string]struct{}),
		barcodes: make(map[string]struct{}),
	}
}

// Reserve claims an article/barcode pair. If either key was claimed before,
// nothing is inserted and a *domain.DuplicateKeyError is returned.
func (r *KeyRegistry) Reserve(article, barcode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.articles[article]; ok {
		return &domain.DuplicateKeyError{Article: article, Barcode: barcode}
	}
	if _, ok := r.barcodes[barcode]; ok {
		return &domain.DuplicateKeyError{Article: article, Barcode: barcode}
	}

	r.articles[article] = struct{}{}
	r.barcodes[barcode] = struct{}{}
	return nil
}

// ArticleCount reports how many distinct articles were accepted so far.
func (r *KeyRegistry) ArticleCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.articles)
}

// BarcodeCount reports how many distinct barcodes were accepted so far.
func (r *KeyRegistry) BarcodeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.barcodes)
}
