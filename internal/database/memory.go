package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"folio/internal/models"
)

// MemoryStore is an in-process chunk cache with the same exact-key contract as
// Repo. Used in tests and when running without Postgres.
type MemoryStore struct {
	mu     sync.Mutex
	chunks map[string][]models.PricePoint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{chunks: map[string][]models.PricePoint{}}
}

func chunkKey(symbol string, from, to time.Time) string {
	return fmt.Sprintf("%s|%s|%s", symbol, from.Format(dayFormat), to.Format(dayFormat))
}

func (s *MemoryStore) Get(_ context.Context, symbol string, from, to time.Time) ([]models.PricePoint, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	points, ok := s.chunks[chunkKey(symbol, from, to)]
	return points, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, symbol string, from, to time.Time, points []models.PricePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := chunkKey(symbol, from, to)
	if _, ok := s.chunks[key]; ok {
		return nil
	}
	s.chunks[key] = points
	return nil
}
