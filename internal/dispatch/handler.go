package dispatch

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mkarlsen/switchboard/pkg/models"
)

// Handler performs domain-specific problem analysis. Implementations are
// external collaborators; the dispatcher only sees findings or an error.
// Invoke must honor ctx cancellation.
type Handler interface {
	Invoke(ctx context.Context, correlationID string, bundle models.ContextBundle) ([]models.Finding, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, correlationID string, bundle models.ContextBundle) ([]models.Finding, error)

// Invoke calls f.
func (f HandlerFunc) Invoke(ctx context.Context, correlationID string, bundle models.ContextBundle) ([]models.Finding, error) {
	return f(ctx, correlationID, bundle)
}

var _ Handler = (HandlerFunc)(nil)

// registration pairs a specialist's description with its handler.
type registration struct {
	specialist models.Specialist
	handler    Handler
}

// Registry maps specialist ids to their capability and handler. The
// fallback specialist receives unclassified problems; the meta specialist
// synthesizes multi-batch sessions. Both must be registered before
// dispatching.
type Registry struct {
	mu       sync.RWMutex
	entries  map[models.SpecialistID]registration
	fallback models.SpecialistID
	meta     models.SpecialistID
}

// NewRegistry creates a Registry with the given fallback and meta
// specialist ids.
func NewRegistry(fallback, meta models.SpecialistID) *Registry {
	return &Registry{
		entries:  make(map[models.SpecialistID]registration),
		fallback: fallback,
		meta:     meta,
	}
}

// Register binds a handler to a specialist. The specialist must carry a
// known capability, so a typo in the enum fails at registration instead of
// at dispatch.
func (r *Registry) Register(specialist models.Specialist, h Handler) error {
	if specialist.ID == "" {
		return fmt.Errorf("specialist id must not be empty")
	}
	if !specialist.Capability.Valid() {
		return fmt.Errorf("specialist %q has unknown capability %q", specialist.ID, specialist.Capability)
	}
	if h == nil {
		return fmt.Errorf("handler for %q must not be nil", specialist.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[specialist.ID]; exists {
		return fmt.Errorf("specialist %q already registered", specialist.ID)
	}
	r.entries[specialist.ID] = registration{specialist: specialist, handler: h}
	return nil
}

// Get returns the handler for a specialist id.
func (r *Registry) Get(id models.SpecialistID) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[id]
	return entry.handler, ok
}

// Specialist returns the registered description for a specialist id.
func (r *Registry) Specialist(id models.SpecialistID) (models.Specialist, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[id]
	return entry.specialist, ok
}

// Specialists returns all registered specialists in id order.
func (r *Registry) Specialists() []models.Specialist {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Specialist, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry.specialist)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Fallback returns the fallback specialist id.
func (r *Registry) Fallback() models.SpecialistID {
	return r.fallback
}

// Meta returns the meta specialist id.
func (r *Registry) Meta() models.SpecialistID {
	return r.meta
}

// IDs returns all registered specialist ids in sorted order.
func (r *Registry) IDs() []models.SpecialistID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]models.SpecialistID, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Validate checks that the fallback and meta specialists are registered.
// A registry that fails validation is a startup failure.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.entries[r.fallback]; !ok {
		return fmt.Errorf("fallback specialist %q has no registered handler", r.fallback)
	}
	if _, ok := r.entries[r.meta]; !ok {
		return fmt.Errorf("meta specialist %q has no registered handler", r.meta)
	}
	return nil
}
