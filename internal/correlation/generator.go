// Package correlation generates unique session identifiers and tracks the
// set of active ids for the lifetime of the registry.
package correlation

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"
)

// hashWidth is the number of hex characters taken from the request hash.
const hashWidth = 8

// timestampLayout is the second-precision timestamp embedded in ids.
const timestampLayout = "20060102T150405"

// Generator builds correlation ids from the requester, a second-precision
// timestamp, and a short hash of the request text. It keeps a registry of
// active ids; a freshly built id that collides gets a zero-padded numeric
// suffix. Check-and-insert happens in a single critical section so
// generation is safe under concurrent callers.
type Generator struct {
	mu     sync.Mutex
	active map[string]struct{}

	// now is injectable for collision tests.
	now func() time.Time
}

// NewGenerator creates a Generator with an empty registry.
func NewGenerator() *Generator {
	return &Generator{
		active: make(map[string]struct{}),
		now:    time.Now,
	}
}

// Generate builds a unique correlation id for the requester and request
// text, registers it as active, and returns it.
func (g *Generator) Generate(requester, text string) string {
	base := fmt.Sprintf("%s-%s-%s",
		normalizeRequester(requester),
		g.now().UTC().Format(timestampLayout),
		hashText(text),
	)

	g.mu.Lock()
	defer g.mu.Unlock()

	id := base
	for suffix := 1; ; suffix++ {
		if _, taken := g.active[id]; !taken {
			break
		}
		id = fmt.Sprintf("%s-%02d", base, suffix)
	}
	g.active[id] = struct{}{}
	return id
}

// Release removes an id from the registry. Called when the owning session
// is archived. Releasing an unknown id is a no-op.
func (g *Generator) Release(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, id)
}

// IsActive reports whether the id is currently registered.
func (g *Generator) IsActive(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.active[id]
	return ok
}

// ActiveCount returns the number of registered ids.
func (g *Generator) ActiveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.active)
}

// normalizeRequester lowercases the requester id and collapses runs of
// non-alphanumeric characters into single dashes.
func normalizeRequester(requester string) string {
	var b strings.Builder
	lastDash := true // suppress a leading dash
	for _, r := range strings.ToLower(requester) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if out == "" {
		return "anonymous"
	}
	return out
}

// hashText returns a fixed-width hex digest of the request text.
func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:hashWidth]
}
