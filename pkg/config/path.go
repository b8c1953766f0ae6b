package config

import "strings"

// Path is a dotted identifier path, e.g. "linker.fill_byte" split into
// ["linker", "fill_byte"]. Trimmed down from the teacher's
// pkg/util/path.go (which also tracks absolute-vs-relative and supports
// scope-walk operations like Dehead/PrefixOf for identifier resolution)
// to just the join/split subset a flat key-value store needs: has_def
// and get_def key lookups, and config {} directive keys, are always
// whole dotted strings rather than incrementally resolved scope walks.
type Path struct {
	segments []string
}

// ParsePath splits a dotted key string into its segments.
func ParsePath(key string) Path {
	return Path{segments: strings.Split(key, ".")}
}

// NewPath constructs a Path directly from already-split segments.
func NewPath(segments ...string) Path {
	return Path{segments: segments}
}

// Extend returns this path with a new innermost segment appended,
// e.g. used when a config {} directive is prefixed by its enclosing
// namespace.
func (p Path) Extend(tail string) Path {
	return Path{segments: append(append([]string{}, p.segments...), tail)}
}

// String renders the canonical dotted form of this path, used as the
// map key for both Config and Builtins so that equivalent keys (e.g.
// differing only in how they were joined) collide rather than silently
// shadowing one another.
func (p Path) String() string {
	return strings.Join(p.segments, ".")
}
