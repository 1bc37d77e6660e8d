package classifier

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mkarlsen/switchboard/internal/state"
	"github.com/mkarlsen/switchboard/pkg/models"
)

// patternKeyPrefix namespaces pattern snapshots in the key/value store.
const patternKeyPrefix = "pattern/"

// SaveSnapshot persists the full pattern table to the key/value store.
// Snapshots carry no TTL; patterns live until replaced.
func SaveSnapshot(repo PatternRepo, store state.Store) error {
	for _, p := range repo.List() {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal pattern %q: %w", p.ID, err)
		}
		if err := store.Put(patternKeyPrefix+p.ID, data, 0); err != nil {
			return fmt.Errorf("persist pattern %q: %w", p.ID, err)
		}
	}
	return nil
}

// LoadSnapshot restores persisted patterns into the repository. Patterns
// already registered (the built-in seeds) have their learned statistics
// replaced; unknown patterns are registered.
func LoadSnapshot(repo PatternRepo, store state.Store) error {
	entries, err := store.List(patternKeyPrefix)
	if err != nil {
		return fmt.Errorf("list persisted patterns: %w", err)
	}

	for key, data := range entries {
		var p models.DomainPattern
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("unmarshal persisted pattern %q: %w", key, err)
		}

		err := repo.Update(p.ID, func(stored *models.DomainPattern) {
			*stored = *p.Clone()
		})
		if errors.Is(err, ErrPatternNotFound) {
			err = repo.Register(&p)
		}
		if err != nil {
			return fmt.Errorf("restore pattern %q: %w", p.ID, err)
		}
	}
	return nil
}
