package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"memecoin-tracker/internal/domain"
	"memecoin-tracker/internal/storage"
)

// PriceStore is an in-memory implementation of storage.PriceStore.
// Append-only, like its PostgreSQL counterpart.
type PriceStore struct {
	mu     sync.RWMutex
	nextID int64
	rows   []*domain.Price
}

// NewPriceStore creates a new in-memory price store.
func NewPriceStore() *PriceStore {
	return &PriceStore{nextID: 1}
}

// Insert adds a single price observation.
func (s *PriceStore) Insert(_ context.Context, p *domain.Price) error {
	if p == nil || p.TokenURI == "" || !p.HasPrice() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	priceCopy := *p
	priceCopy.ID = s.nextID
	s.nextID++
	if priceCopy.CreatedAt.IsZero() {
		priceCopy.CreatedAt = time.Now().UTC()
	}
	s.rows = append(s.rows, &priceCopy)
	return nil
}

// InsertBulk adds multiple price observations.
func (s *PriceStore) InsertBulk(ctx context.Context, prices []*domain.Price) error {
	for _, p := range prices {
		if p == nil || p.TokenURI == "" || !p.HasPrice() {
			return storage.ErrInvalidInput
		}
	}
	for _, p := range prices {
		if err := s.Insert(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// GetByTokenURI retrieves observations for a token, newest first.
func (s *PriceStore) GetByTokenURI(_ context.Context, uri string, limit int) ([]*domain.Price, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var prices []*domain.Price
	for _, p := range s.rows {
		if p.TokenURI == uri {
			priceCopy := *p
			prices = append(prices, &priceCopy)
		}
	}

	sort.Slice(prices, func(i, j int) bool {
		return prices[i].Timestamp.After(prices[j].Timestamp)
	})

	if limit > 0 && len(prices) > limit {
		prices = prices[:limit]
	}
	return prices, nil
}

// All returns every stored observation in insertion order. Test helper.
func (s *PriceStore) All() []*domain.Price {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Price, 0, len(s.rows))
	for _, p := range s.rows {
		priceCopy := *p
		out = append(out, &priceCopy)
	}
	return out
}

var _ storage.PriceStore = (*PriceStore)(nil)
