package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"memecoin-tracker/internal/domain"
	"memecoin-tracker/internal/storage"
)

// PriceHistoryStore is an in-memory implementation of
// storage.PriceHistoryStore.
type PriceHistoryStore struct {
	mu     sync.RWMutex
	points []*domain.PricePoint
}

// NewPriceHistoryStore creates a new in-memory price history store.
func NewPriceHistoryStore() *PriceHistoryStore {
	return &PriceHistoryStore{}
}

// InsertBulk appends points to the timeseries.
func (s *PriceHistoryStore) InsertBulk(_ context.Context, points []*domain.PricePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		if p == nil || p.TokenURI == "" {
			return storage.ErrInvalidInput
		}
		pointCopy := *p
		s.points = append(s.points, &pointCopy)
	}
	return nil
}

// GetByTokenURI retrieves points for a token within [start, end],
// ordered by timestamp ascending.
func (s *PriceHistoryStore) GetByTokenURI(_ context.Context, uri string, start, end time.Time) ([]*domain.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var points []*domain.PricePoint
	for _, p := range s.points {
		if p.TokenURI != uri || p.Timestamp.Before(start) || p.Timestamp.After(end) {
			continue
		}
		pointCopy := *p
		points = append(points, &pointCopy)
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
	return points, nil
}

// All returns every stored point in insertion order. Test helper.
func (s *PriceHistoryStore) All() []*domain.PricePoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.PricePoint, 0, len(s.points))
	for _, p := range s.points {
		pointCopy := *p
		out = append(out, &pointCopy)
	}
	return out
}

var _ storage.PriceHistoryStore = (*PriceHistoryStore)(nil)
