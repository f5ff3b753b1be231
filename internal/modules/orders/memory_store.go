package orders

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps records in a map guarded by one mutex. Nothing
// survives a restart.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
	byCode  map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
		byCode:  make(map[string]string),
	}
}

func (s *MemoryStore) Mutate(ctx context.Context, ref string, seed func() (Record, error), fn func(rec *Record) bool) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[ref]
	if !ok {
		r, err := seed()
		if err != nil {
			return Record{}, err
		}
		rec = &r
		s.records[ref] = rec
		s.byCode[rec.VerificationCode] = ref
	}
	fn(rec)
	return rec.Clone(), nil
}

func (s *MemoryStore) Get(ctx context.Context, ref string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[ref]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) GetByVerificationCode(ctx context.Context, code string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, ok := s.byCode[code]
	if !ok {
		return Record{}, ErrNotFound
	}
	return s.records[ref].Clone(), nil
}

// References lists stored references in lexical order.
func (s *MemoryStore) References() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.records))
	for k := range s.records {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
