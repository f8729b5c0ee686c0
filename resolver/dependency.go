package resolver

import "sort"

// DependencyKind tags how a dependency on another node was discovered.
type DependencyKind string

const (
	// DependencySchema marks a structural dependency, registered during
	// the one-time structural pass. Schema entries persist for the
	// resolver's lifetime.
	DependencySchema DependencyKind = "schema"

	// DependencyResolution marks a dependency discovered while a
	// resolution attempt was running. Resolution entries are dropped on
	// every reset.
	DependencyResolution DependencyKind = "resolution"
)

// A DependencyMap records the nodes a resolver depends on, keyed by the
// target node's full path.
type DependencyMap map[string]DependencyKind

// Merge records a dependency on path. An existing schema entry is never
// downgraded by a later resolution discovery of the same path.
func (m DependencyMap) Merge(path string, kind DependencyKind) {
	if m[path] == DependencySchema {
		return
	}
	m[path] = kind
}

// MergeAll merges every entry from other into m.
func (m DependencyMap) MergeAll(other DependencyMap) {
	for path, kind := range other {
		m.Merge(path, kind)
	}
}

// Paths returns the paths in the map in lexical order.
func (m DependencyMap) Paths() []string {
	out := make([]string, 0, len(m))
	for path := range m {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// dropResolution removes all resolution-kind entries.
func (m DependencyMap) dropResolution() {
	for path, kind := range m {
		if kind == DependencyResolution {
			delete(m, path)
		}
	}
}

// DepMode selects which entries Dependencies returns.
type DepMode int

const (
	// DepsSelf returns only the resolver's own entries.
	DepsSelf DepMode = iota

	// DepsActive adds, recursively, the entries of the branch that was
	// active in the most recent attempt. The result reflects what was
	// actually consulted.
	DepsActive

	// DepsAll adds every branch's entries regardless of activity. Used
	// for static analysis before any resolution has run.
	DepsAll
)
