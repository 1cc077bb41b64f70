package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"memecoin-tracker/internal/domain"
	"memecoin-tracker/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
// Token rows are created externally; Insert exists so tests and the
// memory-backed mode can seed rows.
type TokenStore struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*domain.Token
	byURI  map[string]*domain.Token
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		nextID: 1,
		byID:   make(map[int64]*domain.Token),
		byURI:  make(map[string]*domain.Token),
	}
}

// Insert seeds a token row. Assigns the ID when zero. Returns
// ErrDuplicateKey if the URI already exists.
func (s *TokenStore) Insert(_ context.Context, t *domain.Token) error {
	if t == nil || t.URI == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byURI[t.URI]; exists {
		return storage.ErrDuplicateKey
	}

	if t.ID == 0 {
		t.ID = s.nextID
	}
	if t.ID >= s.nextID {
		s.nextID = t.ID + 1
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	tokenCopy := *t
	s.byID[t.ID] = &tokenCopy
	s.byURI[t.URI] = &tokenCopy
	return nil
}

// GetByID retrieves a token by primary key. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByID(_ context.Context, id int64) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.byID[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	tokenCopy := *t
	return &tokenCopy, nil
}

// GetByURI retrieves a token by its metadata URI. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByURI(_ context.Context, uri string) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.byURI[uri]
	if !exists {
		return nil, storage.ErrNotFound
	}

	tokenCopy := *t
	return &tokenCopy, nil
}

// GetByURIs retrieves all tokens matching the given URIs.
func (s *TokenStore) GetByURIs(_ context.Context, uris []string) ([]*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tokens []*domain.Token
	for _, uri := range uris {
		if t, exists := s.byURI[uri]; exists {
			tokenCopy := *t
			tokens = append(tokens, &tokenCopy)
		}
	}
	return tokens, nil
}

// GetRecent retrieves the most recently created tokens, newest first.
func (s *TokenStore) GetRecent(_ context.Context, limit int) ([]*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tokens := make([]*domain.Token, 0, len(s.byID))
	for _, t := range s.byID {
		tokenCopy := *t
		tokens = append(tokens, &tokenCopy)
	}

	sort.Slice(tokens, func(i, j int) bool {
		if tokens[i].CreatedAt.Equal(tokens[j].CreatedAt) {
			return tokens[i].ID > tokens[j].ID
		}
		return tokens[i].CreatedAt.After(tokens[j].CreatedAt)
	})

	if limit > 0 && len(tokens) > limit {
		tokens = tokens[:limit]
	}
	return tokens, nil
}

// Patch applies a best-effort partial metadata update to a token row.
func (s *TokenStore) Patch(_ context.Context, id int64, patch domain.TokenPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.byID[id]
	if !exists {
		return storage.ErrNotFound
	}

	if patch.Name != nil {
		t.Name = patch.Name
	}
	if patch.Symbol != nil {
		t.Symbol = patch.Symbol
	}
	if patch.MarketCap != nil {
		t.MarketCap = patch.MarketCap
	}
	if patch.TotalSupply != nil {
		t.TotalSupply = patch.TotalSupply
	}

	lastUpdated := patch.LastUpdated
	if lastUpdated.IsZero() {
		lastUpdated = time.Now().UTC()
	}
	t.LastUpdated = &lastUpdated

	return nil
}

// SelectRefreshCandidates returns tokens needing a market-data refresh.
// Mirrors the SQL predicate: address present and (market_cap missing,
// total_supply missing, last_updated missing, or older than staleBefore).
func (s *TokenStore) SelectRefreshCandidates(_ context.Context, staleBefore time.Time, limit int) ([]*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []*domain.Token
	for _, t := range s.byID {
		if t.Address == nil {
			continue
		}
		stale := t.MarketCap == nil || t.TotalSupply == nil ||
			t.LastUpdated == nil || t.LastUpdated.Before(staleBefore)
		if !stale {
			continue
		}
		tokenCopy := *t
		candidates = append(candidates, &tokenCopy)
	}

	// Oldest last_updated first, nils first, matching the SQL ordering.
	sort.Slice(candidates, func(i, j int) bool {
		li, lj := candidates[i].LastUpdated, candidates[j].LastUpdated
		switch {
		case li == nil && lj == nil:
			return candidates[i].ID < candidates[j].ID
		case li == nil:
			return true
		case lj == nil:
			return false
		default:
			return li.Before(*lj)
		}
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

var _ storage.TokenStore = (*TokenStore)(nil)
