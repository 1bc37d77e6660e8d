package correlation

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// fixedClock pins the generator to a single second so every id collides.
func fixedClock(g *Generator) {
	at := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	g.now = func() time.Time { return at }
}

func TestGenerate_Format(t *testing.T) {
	g := NewGenerator()
	fixedClock(g)

	id := g.Generate("Alice@Example.com", "fix the login flow")

	parts := strings.Split(id, "-")
	// alice-example-com-20250314T092653-<hash>
	if len(parts) != 5 {
		t.Fatalf("id %q has %d dash-separated parts, want 5", id, len(parts))
	}
	if parts[0] != "alice" || parts[1] != "example" || parts[2] != "com" {
		t.Errorf("requester not normalized in %q", id)
	}
	if parts[3] != "20250314T092653" {
		t.Errorf("timestamp = %q, want 20250314T092653", parts[3])
	}
	if len(parts[4]) != hashWidth {
		t.Errorf("hash width = %d, want %d", len(parts[4]), hashWidth)
	}
}

func TestGenerate_CollisionSuffix(t *testing.T) {
	g := NewGenerator()
	fixedClock(g)

	first := g.Generate("alice", "same text")
	second := g.Generate("alice", "same text")

	if second != first+"-01" {
		t.Errorf("second id = %q, want %q", second, first+"-01")
	}
	if !g.IsActive(first) {
		t.Error("first id not in registry")
	}
	if !g.IsActive(second) {
		t.Error("second id not in registry")
	}

	third := g.Generate("alice", "same text")
	if third != first+"-02" {
		t.Errorf("third id = %q, want %q", third, first+"-02")
	}
}

func TestGenerate_ConcurrentSameSecond(t *testing.T) {
	g := NewGenerator()
	fixedClock(g)

	const n = 50
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = g.Generate("alice", "identical request")
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id generated: %q", id)
		}
		seen[id] = true
	}
	if g.ActiveCount() != n {
		t.Errorf("ActiveCount() = %d, want %d", g.ActiveCount(), n)
	}
}

func TestRelease_FreesID(t *testing.T) {
	g := NewGenerator()
	fixedClock(g)

	id := g.Generate("alice", "text")
	g.Release(id)

	if g.IsActive(id) {
		t.Error("id still active after Release")
	}

	// A released id can be handed out again without a suffix.
	again := g.Generate("alice", "text")
	if again != id {
		t.Errorf("regenerated id = %q, want %q", again, id)
	}

	// Releasing an unknown id is a no-op.
	g.Release("never-existed")
}

func TestNormalizeRequester(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "alice", "alice"},
		{"uppercase", "Alice", "alice"},
		{"email", "alice@example.com", "alice-example-com"},
		{"symbol runs", "ci//bot__7", "ci-bot-7"},
		{"leading trailing", "--alice--", "alice"},
		{"empty", "", "anonymous"},
		{"only symbols", "@#$", "anonymous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeRequester(tt.in)
			if got != tt.want {
				t.Errorf("normalizeRequester(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestHashText_Deterministic(t *testing.T) {
	a := hashText("same input")
	b := hashText("same input")
	if a != b {
		t.Errorf("hashText not deterministic: %q vs %q", a, b)
	}
	if hashText("other input") == a {
		t.Error("hashText collided on different inputs")
	}
}

func TestGenerate_ManyCollisions(t *testing.T) {
	g := NewGenerator()
	fixedClock(g)

	base := g.Generate("alice", "text")
	for i := 1; i <= 120; i++ {
		id := g.Generate("alice", "text")
		want := fmt.Sprintf("%s-%02d", base, i)
		if id != want {
			t.Fatalf("collision %d: id = %q, want %q", i, id, want)
		}
	}
}
