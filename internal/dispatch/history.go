package dispatch

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mkarlsen/switchboard/internal/state"
	"github.com/mkarlsen/switchboard/pkg/models"
)

// sessionKeyPrefix namespaces archived sessions in the key/value store.
const sessionKeyPrefix = "session/"

// historyLimit caps how many archived sessions the historical context
// layer carries.
const historyLimit = 10

// archive persists the finished session. A no-op without a store.
func (r *Runner) archive(session models.CorrelationSession) error {
	if r.store == nil {
		return nil
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", session.ID, err)
	}
	if err := r.store.Put(sessionKeyPrefix+session.ID, data, 0); err != nil {
		return fmt.Errorf("persist session %s: %w", session.ID, err)
	}
	return nil
}

// loadHistory builds the historical layer from archived sessions: the most
// recent ones, newest first. History is best-effort; a read failure means
// an empty layer, not a failed dispatch.
func (r *Runner) loadHistory() []models.SessionRef {
	if r.store == nil {
		return nil
	}

	entries, err := r.store.List(sessionKeyPrefix)
	if err != nil {
		debugLog("load session history: %v", err)
		return nil
	}

	refs := make([]models.SessionRef, 0, len(entries))
	for key, data := range entries {
		var session models.CorrelationSession
		if err := json.Unmarshal(data, &session); err != nil {
			debugLog("decode archived session %q: %v", key, err)
			continue
		}

		completedAt := session.CreatedAt
		for _, ev := range session.Events {
			if ev.Timestamp.After(completedAt) {
				completedAt = ev.Timestamp
			}
		}
		refs = append(refs, models.SessionRef{
			CorrelationID: session.ID,
			Requester:     session.Requester,
			Status:        session.Status,
			CompletedAt:   completedAt,
		})
	}

	sort.Slice(refs, func(i, j int) bool {
		if !refs[i].CompletedAt.Equal(refs[j].CompletedAt) {
			return refs[i].CompletedAt.After(refs[j].CompletedAt)
		}
		return refs[i].CorrelationID < refs[j].CorrelationID
	})
	if len(refs) > historyLimit {
		refs = refs[:historyLimit]
	}
	return refs
}

// LoadSessions returns the archived sessions, newest first. Used by the
// CLI to show session history.
func LoadSessions(store state.Store) ([]models.CorrelationSession, error) {
	if store == nil {
		return nil, nil
	}

	entries, err := store.List(sessionKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list archived sessions: %w", err)
	}

	sessions := make([]models.CorrelationSession, 0, len(entries))
	for key, data := range entries {
		var session models.CorrelationSession
		if err := json.Unmarshal(data, &session); err != nil {
			return nil, fmt.Errorf("decode archived session %q: %w", key, err)
		}
		sessions = append(sessions, session)
	}

	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
		}
		return sessions[i].ID < sessions[j].ID
	})
	return sessions, nil
}
