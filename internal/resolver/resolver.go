// Package resolver resolves symbolic references like "local-scope:rules.md"
// to concrete file content, following embedded @-references with bounded
// depth and caching results by absolute path.
package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/mkarlsen/switchboard/internal/config"
)

// Reference prefixes. A bare relative path resolves against the project root.
const (
	PrefixLocalScope  = "local-scope"
	PrefixUserScope   = "user-scope"
	PrefixProjectRoot = "project-root"
	PrefixDoc         = "doc"
)

// refToken matches embedded references inside resolved content:
// @<prefix>:<path> or @<relative-path>.
var refToken = regexp.MustCompile(`@(?:([a-z][a-z-]*):)?([\w][\w./-]*)`)

// Entry is one resolved (or unresolved) reference.
type Entry struct {
	// Reference is the symbolic form as requested.
	Reference string
	// Path is the absolute path the reference mapped to.
	Path string
	// Content is the file content; empty when unresolved.
	Content string
	// Resolved reports whether the target existed. A missing target is not
	// an error; callers apply their own fallback.
	Resolved bool
}

// Resolution is the outcome of resolving one reference and everything it
// transitively embeds.
type Resolution struct {
	Root Entry
	// Embedded holds transitively resolved references in traversal order.
	Embedded []Entry
	// Warnings records skipped branches: cycles, depth overflow, and
	// unresolvable targets. Never fatal.
	Warnings []string
}

// Resolver maps symbolic references to file content. Safe for concurrent
// use; the cache is the only shared mutable state.
type Resolver struct {
	roots    map[string]string
	project  string
	maxDepth int
	cache    *Cache

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// New creates a Resolver from resolver configuration. A file watcher is
// started to invalidate cached entries when their files change; if the
// watcher cannot be created the resolver works without it.
func New(cfg config.ResolverConfig) *Resolver {
	r := &Resolver{
		roots: map[string]string{
			PrefixLocalScope:  cfg.LocalScope,
			PrefixUserScope:   cfg.UserScope,
			PrefixProjectRoot: cfg.ProjectRoot,
			PrefixDoc:         cfg.Docs,
		},
		project:  cfg.ProjectRoot,
		maxDepth: cfg.MaxDepth,
		cache:    NewCache(cfg.CacheTTL),
		done:     make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		// Continue without invalidation; entries still expire by TTL.
		return r
	}
	r.watcher = watcher
	go r.watchFiles()

	return r
}

// References extracts the symbolic references embedded in text, in
// document order.
func References(text string) []string {
	matches := refToken.FindAllStringSubmatch(text, -1)
	refs := make([]string, 0, len(matches))
	for _, m := range matches {
		ref := m[2]
		if m[1] != "" {
			ref = m[1] + ":" + ref
		}
		refs = append(refs, ref)
	}
	return refs
}

// workItem is one pending reference on the resolution stack.
type workItem struct {
	ref   string
	depth int
}

// Resolve resolves a symbolic reference and every reference embedded in its
// content, iteratively. A branch is skipped with a warning when it exceeds
// the depth bound or revisits a path already seen in this resolution.
func (r *Resolver) Resolve(reference string) Resolution {
	var res Resolution

	rootPath, err := r.resolvePath(reference)
	if err != nil {
		res.Root = Entry{Reference: reference}
		res.Warnings = append(res.Warnings, err.Error())
		return res
	}

	visited := map[string]bool{rootPath: true}
	res.Root = r.load(reference, rootPath)
	if !res.Root.Resolved {
		res.Warnings = append(res.Warnings, fmt.Sprintf("reference %q unresolved: %s missing", reference, rootPath))
		return res
	}

	// Explicit work stack instead of recursion; children are pushed in
	// reverse so traversal follows document order.
	stack := r.pushChildren(nil, res.Root.Content, 1)
	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if item.depth > r.maxDepth {
			res.Warnings = append(res.Warnings, fmt.Sprintf("reference %q skipped: depth %d exceeds limit %d", item.ref, item.depth, r.maxDepth))
			continue
		}

		path, err := r.resolvePath(item.ref)
		if err != nil {
			res.Warnings = append(res.Warnings, err.Error())
			continue
		}
		if visited[path] {
			res.Warnings = append(res.Warnings, fmt.Sprintf("reference %q skipped: cycle at %s", item.ref, path))
			continue
		}
		visited[path] = true

		entry := r.load(item.ref, path)
		res.Embedded = append(res.Embedded, entry)
		if !entry.Resolved {
			res.Warnings = append(res.Warnings, fmt.Sprintf("reference %q unresolved: %s missing", item.ref, path))
			continue
		}

		stack = r.pushChildren(stack, entry.Content, item.depth+1)
	}

	return res
}

// Invalidate drops the cached entry for the given absolute path.
func (r *Resolver) Invalidate(path string) {
	r.cache.Invalidate(path)
}

// Close stops the file watcher.
func (r *Resolver) Close() {
	close(r.done)
	if r.watcher != nil {
		r.watcher.Close()
	}
}

// pushChildren scans content for embedded references and pushes them onto
// the stack in reverse document order.
func (r *Resolver) pushChildren(stack []workItem, content string, depth int) []workItem {
	matches := refToken.FindAllStringSubmatch(content, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		ref := matches[i][2]
		if prefix := matches[i][1]; prefix != "" {
			ref = prefix + ":" + ref
		}
		stack = append(stack, workItem{ref: ref, depth: depth})
	}
	return stack
}

// load fetches content for path, consulting the cache first.
func (r *Resolver) load(reference, path string) Entry {
	entry := Entry{Reference: reference, Path: path}

	if content, ok := r.cache.Get(path); ok {
		entry.Content = content
		entry.Resolved = true
		return entry
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return entry
	}

	entry.Content = string(data)
	entry.Resolved = true
	r.cache.Put(path, entry.Content)
	if r.watcher != nil {
		// Best effort; a file we cannot watch still expires by TTL.
		r.watcher.Add(path)
	}
	return entry
}

// resolvePath maps a symbolic reference to an absolute path.
func (r *Resolver) resolvePath(reference string) (string, error) {
	root := r.project
	rest := reference

	if prefix, path, ok := strings.Cut(reference, ":"); ok {
		mapped, known := r.roots[prefix]
		if !known {
			return "", fmt.Errorf("reference %q skipped: unknown prefix %q", reference, prefix)
		}
		root, rest = mapped, path
	}

	if filepath.IsAbs(rest) || strings.Contains(rest, "..") {
		return "", fmt.Errorf("reference %q skipped: path escapes its scope", reference)
	}

	abs, err := filepath.Abs(filepath.Join(root, rest))
	if err != nil {
		return "", fmt.Errorf("reference %q skipped: %w", reference, err)
	}
	return abs, nil
}

// watchFiles invalidates cache entries when their files change on disk.
func (r *Resolver) watchFiles() {
	for {
		select {
		case <-r.done:
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				r.cache.Invalidate(event.Name)
			}
		case <-r.watcher.Errors:
			// Ignore errors, keep watching
		}
	}
}
