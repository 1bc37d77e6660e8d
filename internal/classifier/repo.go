package classifier

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/mkarlsen/switchboard/pkg/models"
)

// ErrPatternNotFound indicates an update or lookup named an unknown pattern.
var ErrPatternNotFound = errors.New("pattern not found")

// ErrDuplicatePattern indicates a pattern id was registered twice.
var ErrDuplicatePattern = errors.New("pattern already registered")

// PatternRepo is the injected repository holding the mutable pattern table.
// Implementations must make Update an atomic per-key read-modify-write.
type PatternRepo interface {
	// Get returns a copy of the pattern, or false if unknown.
	Get(id string) (*models.DomainPattern, bool)
	// List returns copies of all patterns ordered by id.
	List() []*models.DomainPattern
	// Register adds a new pattern. Registering an existing id is an error.
	Register(p *models.DomainPattern) error
	// Update applies fn to the stored pattern under the pattern's own lock.
	Update(id string, fn func(*models.DomainPattern)) error
}

// patternEntry pairs a pattern with its own lock, giving single-writer-per-key
// update semantics without serializing unrelated patterns.
type patternEntry struct {
	mu      sync.Mutex
	pattern *models.DomainPattern
}

// MemoryRepo is the in-memory PatternRepo implementation.
type MemoryRepo struct {
	mu      sync.RWMutex
	entries map[string]*patternEntry
}

// NewMemoryRepo creates an empty MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		entries: make(map[string]*patternEntry),
	}
}

// NewSeededRepo creates a MemoryRepo preloaded with the default patterns.
func NewSeededRepo() *MemoryRepo {
	repo := NewMemoryRepo()
	for _, p := range DefaultPatterns() {
		// Default patterns are well-formed; Register cannot fail here.
		_ = repo.Register(p)
	}
	return repo
}

// Get returns a copy of the pattern with the given id.
func (r *MemoryRepo) Get(id string) (*models.DomainPattern, bool) {
	r.mu.RLock()
	entry, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.pattern.Clone(), true
}

// List returns copies of all patterns ordered by id.
func (r *MemoryRepo) List() []*models.DomainPattern {
	r.mu.RLock()
	entries := make([]*patternEntry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	patterns := make([]*models.DomainPattern, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		patterns = append(patterns, e.pattern.Clone())
		e.mu.Unlock()
	}

	sort.Slice(patterns, func(i, j int) bool {
		return patterns[i].ID < patterns[j].ID
	})
	return patterns
}

// Register adds a new pattern to the table. The stored copy gets its
// confidence clamped, a default state, and seeded decay evidence.
func (r *MemoryRepo) Register(p *models.DomainPattern) error {
	if p.ID == "" {
		return fmt.Errorf("register pattern: empty id")
	}
	if p.SpecialistID == "" {
		return fmt.Errorf("register pattern %q: empty specialist id", p.ID)
	}

	stored := p.Clone()
	stored.Confidence = clamp01(stored.Confidence)
	if stored.State == "" {
		stored.State = models.PatternObserving
	}
	seedEvidence(stored)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[stored.ID]; exists {
		return fmt.Errorf("register pattern %q: %w", stored.ID, ErrDuplicatePattern)
	}
	r.entries[stored.ID] = &patternEntry{pattern: stored}
	return nil
}

// Update applies fn to the stored pattern under its per-key lock. The
// confidence bound is enforced after fn runs, whatever fn did.
func (r *MemoryRepo) Update(id string, fn func(*models.DomainPattern)) error {
	r.mu.RLock()
	entry, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("update pattern %q: %w", id, ErrPatternNotFound)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	fn(entry.pattern)
	entry.pattern.Confidence = clamp01(entry.pattern.Confidence)
	return nil
}

// Compile-time verification that MemoryRepo implements PatternRepo.
var _ PatternRepo = (*MemoryRepo)(nil)
