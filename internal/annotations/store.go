// Package annotations holds the out-of-band comment table collected during
// parsing. Comments are keyed by (source file, line) rather than by tree
// node, so directives survive node replacement across filters. A secondary
// table associates comments with specific declaration nodes at parse time.
//
// The store is append-only for the duration of a compilation: inlining
// another file appends that file's contribution, and previously returned
// answers are never invalidated.
package annotations

import "github.com/vk/rejig/internal/node"

// Key addresses one source line of one file.
type Key struct {
	File string
	Line int
}

// Entry is a single raw comment recorded against a source line.
type Entry struct {
	Key  Key
	Text string
}

// Store is the shared comment table for one compilation run. It is not safe
// for concurrent use; the pipeline is single-threaded.
type Store struct {
	entries []Entry
	byKey   map[Key][]string
	byNode  map[*node.Node][]string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		byKey:  make(map[Key][]string),
		byNode: make(map[*node.Node][]string),
	}
}

// Append records a raw comment against a (file, line) key.
func (s *Store) Append(file string, line int, text string) {
	k := Key{File: file, Line: line}
	s.entries = append(s.entries, Entry{Key: k, Text: text})
	s.byKey[k] = append(s.byKey[k], text)
}

// Attach associates a comment with a specific declaration node. The
// association is transient: it does not survive replacement of the node.
func (s *Store) Attach(n *node.Node, text string) {
	s.byNode[n] = append(s.byNode[n], text)
}

// At returns the comments recorded for a (file, line) key, in append order.
func (s *Store) At(file string, line int) []string {
	return s.byKey[Key{File: file, Line: line}]
}

// ForNode returns the comments the parser attached to a declaration node.
func (s *Store) ForNode(n *node.Node) []string {
	return s.byNode[n]
}

// Len returns the number of line-keyed entries appended so far. Combined
// with From it lets a consumer scan only the suffix appended since its last
// look, avoiding quadratic re-scans as files are inlined.
func (s *Store) Len() int { return len(s.entries) }

// From returns the line-keyed entries appended at or after position i.
// The returned slice must not be modified.
func (s *Store) From(i int) []Entry {
	if i < 0 || i >= len(s.entries) {
		return nil
	}
	return s.entries[i:]
}

// Contribution is the set of annotations a single parse produces. The
// inliner merges contributions from referenced files into the shared store.
type Contribution struct {
	Comments []Entry
	Attached map[*node.Node][]string
}

// NewContribution creates an empty contribution.
func NewContribution() *Contribution {
	return &Contribution{Attached: make(map[*node.Node][]string)}
}

// Append records a line-keyed comment in the contribution.
func (c *Contribution) Append(file string, line int, text string) {
	c.Comments = append(c.Comments, Entry{Key: Key{File: file, Line: line}, Text: text})
}

// Attach records a node-attached comment in the contribution.
func (c *Contribution) Attach(n *node.Node, text string) {
	c.Attached[n] = append(c.Attached[n], text)
}

// Merge unions a contribution into the store. Comments already present under
// an overlapping key are kept; merging never overwrites.
func (s *Store) Merge(c *Contribution) {
	if c == nil {
		return
	}
	for _, e := range c.Comments {
		s.Append(e.Key.File, e.Key.Line, e.Text)
	}
	for n, texts := range c.Attached {
		for _, text := range texts {
			s.Attach(n, text)
		}
	}
}
