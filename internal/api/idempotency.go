package api

import (
	"sync"
	"time"

	"github.com/synheart/synheart-physio/internal/models"
)

const defaultIdempotencyEntries = 1024

// cachedRun holds what is needed to render a run again. Traces are not
// kept; generation is deterministic for a fixed seed.
type cachedRun struct {
	receipt models.Receipt
	request models.SimulateRequest // Seed set to the seed actually used
	at      time.Time
}

// IdempotencyStore remembers the run served for each Idempotency-Key so a
// retried request gets the same run back instead of a new one.
type IdempotencyStore struct {
	seen map[string]cachedRun
	max  int
	mu   sync.RWMutex
}

func NewIdempotencyStore(max int) *IdempotencyStore {
	if max <= 0 {
		max = defaultIdempotencyEntries
	}
	return &IdempotencyStore{
		seen: make(map[string]cachedRun),
		max:  max,
	}
}

// Get returns the cached run for key.
func (s *IdempotencyStore) Get(key string) (cachedRun, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.seen[key]
	return c, ok
}

// Put records the run for key, evicting the oldest entry when full.
func (s *IdempotencyStore) Put(key string, receipt models.Receipt, req models.SimulateRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[key]; !exists && len(s.seen) >= s.max {
		var oldestKey string
		var oldest time.Time
		for k, c := range s.seen {
			if oldestKey == "" || c.at.Before(oldest) {
				oldestKey, oldest = k, c.at
			}
		}
		delete(s.seen, oldestKey)
	}
	seed := receipt.Seed
	req.Seed = &seed
	s.seen[key] = cachedRun{receipt: receipt, request: req, at: time.Now()}
}

// Len returns the number of cached keys.
func (s *IdempotencyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}
