// Package pragma interprets specially-formatted comments as directives keyed
// by source line. A line matching `# Pragma: <name>` (case-insensitively)
// anywhere in a comment names a directive; the captured token is looked up
// in a fixed table and unknown tokens are silently ignored.
//
// Directives are resolved by the line of the node being considered, not by
// walking the tree, so they survive node replacement across filters: a later
// filter may query the same line even though the node originally at that
// line was replaced by an earlier filter.
package pragma

import (
	"regexp"
	"strings"

	"github.com/vk/rejig/internal/annotations"
	"github.com/vk/rejig/internal/node"
)

// Directive is an internal symbol a recognized pragma name maps to.
type Directive int

const (
	// Invalid is the zero Directive; no pragma name maps to it.
	Invalid Directive = iota
	// Array marks a shift-like operator as an array append.
	Array
	// String marks a shift-like operator as a string concatenation.
	String
	// Skip marks a cross-file reference that must not be inlined.
	Skip
)

// String returns the canonical pragma name for the directive.
func (d Directive) String() string {
	switch d {
	case Array:
		return "array"
	case String:
		return "string"
	case Skip:
		return "skip"
	default:
		return "invalid"
	}
}

// directives is the fixed name-to-symbol table. Lookup is by lowercased
// token; names not present here are not errors, they are simply dropped.
var directives = map[string]Directive{
	"array":  Array,
	"string": String,
	"skip":   Skip,
}

// pattern matches the pragma grammar anywhere inside a comment.
var pattern = regexp.MustCompile(`(?i)#\s*pragma:\s*(\S+)`)

// Index answers directive-presence queries against an annotation store. It
// scans lazily: each lookup first processes only the store entries appended
// since the previous lookup.
type Index struct {
	store   *annotations.Store
	scanned int
	byKey   map[annotations.Key]map[Directive]bool
}

// NewIndex creates an index over the given store.
func NewIndex(store *annotations.Store) *Index {
	return &Index{
		store: store,
		byKey: make(map[annotations.Key]map[Directive]bool),
	}
}

// Has reports whether the directive is present on the node's source line.
// Nodes without a location never observe directives.
func (ix *Index) Has(n *node.Node, d Directive) bool {
	if n == nil || n.Loc == nil {
		return false
	}
	return ix.HasAt(n.Loc.File, n.Loc.Line, d)
}

// HasAt reports whether the directive is present at a (file, line) key. The
// fully-qualified key is authoritative; a same-line key with no recorded
// file is consulted only when the qualified key has no entries at all, for
// compatibility with annotations that predate source-name tracking.
func (ix *Index) HasAt(file string, line int, d Directive) bool {
	ix.refresh()

	if set, ok := ix.byKey[annotations.Key{File: file, Line: line}]; ok {
		return set[d]
	}
	if file != "" {
		if set, ok := ix.byKey[annotations.Key{File: "", Line: line}]; ok {
			return set[d]
		}
	}
	return false
}

// refresh scans the store suffix appended since the previous lookup.
func (ix *Index) refresh() {
	suffix := ix.store.From(ix.scanned)
	ix.scanned = ix.store.Len()

	for _, e := range suffix {
		for _, m := range pattern.FindAllStringSubmatch(e.Text, -1) {
			d, ok := directives[strings.ToLower(m[1])]
			if !ok {
				continue
			}
			set := ix.byKey[e.Key]
			if set == nil {
				set = make(map[Directive]bool)
				ix.byKey[e.Key] = set
			}
			set[d] = true
		}
	}
}
