// Package node defines the immutable tagged tree value shared by every
// pipeline filter.
//
// A Node carries an open-ended type tag, an ordered sequence of children, and
// an optional source location. Children are heterogeneous: each element is
// either a nested *Node, a scalar (string, int, float64, Symbol), or a []any
// list of such values. Nodes are never mutated in place; a "changed" node is
// a newly constructed Node built with New, WithChildren or WithTag.
//
// Identity for structural-equality purposes is the pair (tag, children).
// Source location is carried for annotation lookup only and never
// participates in equality or fingerprints.
package node

import (
	"fmt"
	"strconv"
	"strings"
)

// Symbol is a symbolic atom child, distinct from an ordinary string literal.
type Symbol string

// Loc records where a node originated in the source text. It is attached by
// the parser and preserved across rewrites so that line-keyed annotations
// survive node replacement.
type Loc struct {
	File string
	Line int
	Col  int
}

// String renders the location as "file:line:col" for error messages.
func (l *Loc) String() string {
	if l == nil {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Col)
}

// Node is a single immutable vertex of the syntax tree. The Tag and Children
// fields are exported for pattern matching by filters, but must never be
// mutated; construct a replacement instead.
type Node struct {
	Tag      string
	Children []any
	Loc      *Loc
}

// New constructs a Node with the given tag and children. The children slice
// is copied so later edits to the caller's slice cannot alias into the tree.
func New(tag string, children ...any) *Node {
	kids := make([]any, len(children))
	copy(kids, children)
	return &Node{Tag: tag, Children: kids}
}

// At returns a copy of the node carrying the given source location.
func (n *Node) At(loc *Loc) *Node {
	out := *n
	out.Loc = loc
	return &out
}

// WithChildren returns a new Node with the same tag and location but the
// given children sequence.
func (n *Node) WithChildren(children ...any) *Node {
	out := New(n.Tag, children...)
	out.Loc = n.Loc
	return out
}

// WithTag returns a new Node with the given tag, sharing this node's
// children and location.
func (n *Node) WithTag(tag string) *Node {
	out := *n
	out.Tag = tag
	return &out
}

// Len returns the number of children.
func (n *Node) Len() int { return len(n.Children) }

// Child returns the i-th child, or nil if the index is out of range.
func (n *Node) Child(i int) any {
	if i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// NodeChild returns the i-th child if it is a *Node, otherwise nil.
func (n *Node) NodeChild(i int) *Node {
	c, _ := n.Child(i).(*Node)
	return c
}

// IsNode reports whether a child value is a tree node, distinguishing nodes
// from scalar and list leaves during generic traversal.
func IsNode(v any) bool {
	n, ok := v.(*Node)
	return ok && n != nil
}

// Equal reports structural equality between two child values. Two nodes are
// equal when their tags match and their children are pairwise equal;
// locations are ignored. Scalars compare by value, lists elementwise.
func Equal(a, b any) bool {
	an, aok := a.(*Node)
	bn, bok := b.(*Node)
	if aok != bok {
		return false
	}
	if aok {
		if an == nil || bn == nil {
			return an == bn
		}
		if an.Tag != bn.Tag || len(an.Children) != len(bn.Children) {
			return false
		}
		for i := range an.Children {
			if !Equal(an.Children[i], bn.Children[i]) {
				return false
			}
		}
		return true
	}
	al, alOK := a.([]any)
	bl, blOK := b.([]any)
	if alOK != blOK {
		return false
	}
	if alOK {
		if len(al) != len(bl) {
			return false
		}
		for i := range al {
			if !Equal(al[i], bl[i]) {
				return false
			}
		}
		return true
	}
	return a == b
}

// Fingerprint derives a stable string key over (tag, children), usable as a
// map key for duplicate detection. Equal nodes produce equal fingerprints.
func (n *Node) Fingerprint() string {
	var sb strings.Builder
	writeFingerprint(&sb, n)
	return sb.String()
}

// String renders the node as an s-expression for logs and test failures.
func (n *Node) String() string { return n.Fingerprint() }

func writeFingerprint(sb *strings.Builder, v any) {
	switch c := v.(type) {
	case nil:
		sb.WriteString("nil")
	case *Node:
		if c == nil {
			sb.WriteString("nil")
			return
		}
		sb.WriteByte('(')
		sb.WriteString(c.Tag)
		for _, kid := range c.Children {
			sb.WriteByte(' ')
			writeFingerprint(sb, kid)
		}
		sb.WriteByte(')')
	case []any:
		sb.WriteByte('[')
		for i, kid := range c {
			if i > 0 {
				sb.WriteByte(' ')
			}
			writeFingerprint(sb, kid)
		}
		sb.WriteByte(']')
	case Symbol:
		sb.WriteByte(':')
		sb.WriteString(string(c))
	case string:
		sb.WriteString(strconv.Quote(c))
	default:
		fmt.Fprintf(sb, "%v", c)
	}
}
