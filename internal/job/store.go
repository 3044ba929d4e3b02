package job

import (
	"sync"

	"github.com/gofrs/uuid/v5"
)

// DefaultStoreSize is how many finished jobs the store retains before
// evicting the oldest.
const DefaultStoreSize = 100

// Store is a bounded in-memory job registry. Jobs are request-scoped;
// the store only exists so a caller can inspect state and logs shortly
// after the fact.
type Store struct {
	mu    sync.RWMutex
	jobs  map[uuid.UUID]*Job
	order []uuid.UUID
	max   int
}

// NewStore creates a Store retaining at most max jobs. A non-positive max
// falls back to DefaultStoreSize.
func NewStore(max int) *Store {
	if max <= 0 {
		max = DefaultStoreSize
	}
	return &Store{
		jobs: make(map[uuid.UUID]*Job, max),
		max:  max,
	}
}

// Add registers a job, evicting the oldest entries beyond the retention
// bound.
func (s *Store) Add(j *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[j.ID] = j
	s.order = append(s.order, j.ID)

	for len(s.order) > s.max {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.jobs, oldest)
	}
}

// Get returns the job with the given id.
func (s *Store) Get(id uuid.UUID) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	return j, ok
}

// Len returns the number of retained jobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
