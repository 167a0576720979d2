// Package markdown parses markdown documents into an arena-backed tree,
// extracts correctable text spans from it, and serializes the tree back
// to markdown after corrected spans are written in.
//
// The tree mirrors an element-tree shape: every node carries its own
// Text plus a Tail, the text that follows the node's closing delimiter
// inside its parent. Nodes are addressed by stable arena indices so a
// span's back-reference stays valid for the whole correction window.
package markdown

import (
	"fmt"
	"strings"

	"github.com/jackzampolin/redline/internal/document"
)

// Node tags. Root is a container and never serializes itself.
const (
	TagRoot   = "root"
	TagP      = "p"
	TagH1     = "h1"
	TagH2     = "h2"
	TagH3     = "h3"
	TagH4     = "h4"
	TagH5     = "h5"
	TagH6     = "h6"
	TagUL     = "ul"
	TagOL     = "ol"
	TagLI     = "li"
	TagStrong = "strong"
	TagEm     = "em"
	TagCode   = "code"
)

// Node is one element in the tree. Children are arena indices.
type Node struct {
	Tag      string
	Text     string
	Tail     string
	Children []int
}

// Tree is the parsed structural representation of a markdown document.
// Index 0 is always the root node.
type Tree struct {
	nodes []Node
}

// newTree returns a tree containing only the root node.
func newTree() *Tree {
	return &Tree{nodes: []Node{{Tag: TagRoot}}}
}

// add appends a node to the arena and links it under parent, returning
// its index.
func (t *Tree) add(parent int, tag string) int {
	idx := len(t.nodes)
	t.nodes = append(t.nodes, Node{Tag: tag})
	t.nodes[parent].Children = append(t.nodes[parent].Children, idx)
	return idx
}

// Len returns the number of nodes in the arena, root included.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns the node at an arena index.
func (t *Tree) Node(i int) *Node { return &t.nodes[i] }

// ExtractSpans walks the tree pre-order and returns one span per
// non-empty text unit: a node's own text before its children, and each
// child's tail right after that child's subtree. Identical input always
// yields identical span order.
func (t *Tree) ExtractSpans() []document.Span {
	var spans []document.Span
	t.extract(0, &spans)
	return spans
}

func (t *Tree) extract(idx int, spans *[]document.Span) {
	n := &t.nodes[idx]
	if trimmed := strings.TrimSpace(n.Text); trimmed != "" {
		*spans = append(*spans, document.Span{
			Content: trimmed,
			Ref:     document.Ref{Node: idx},
		})
	}
	for _, child := range n.Children {
		t.extract(child, spans)
		if trimmed := strings.TrimSpace(t.nodes[child].Tail); trimmed != "" {
			*spans = append(*spans, document.Span{
				Content: trimmed,
				Ref:     document.Ref{Node: child, IsTail: true},
			})
		}
	}
}

// WriteOptions controls reinsertion behavior.
type WriteOptions struct {
	// TailSpace is the word-boundary policy around inline children.
	// Extracted spans are trimmed, so without it corrected text fuses
	// with an adjacent inline element on reinsertion. When set, a tail
	// that corrected down to empty is replaced by a single space, and
	// a node's own text gets a trailing space before its first child.
	TailSpace bool
}

// DefaultWriteOptions enables the tail-space policy. The single-space
// substitution is a heuristic: it keeps words from fusing across an
// emptied tail but can introduce a space before punctuation that
// immediately follows an inline element. It is configurable for that
// reason, not assumed universally correct.
func DefaultWriteOptions() WriteOptions {
	return WriteOptions{TailSpace: true}
}

// WriteSpans writes corrected span content back into the referenced
// nodes. Every span must still resolve to a live arena entry; otherwise
// nothing is written and the error wraps document.ErrStructuralReference.
func (t *Tree) WriteSpans(spans []document.Span, opts WriteOptions) error {
	for _, s := range spans {
		if s.Ref.Node < 0 || s.Ref.Node >= len(t.nodes) {
			return fmt.Errorf("%w: node %d of %d", document.ErrStructuralReference, s.Ref.Node, len(t.nodes))
		}
	}
	for _, s := range spans {
		n := &t.nodes[s.Ref.Node]
		if s.Ref.IsTail {
			switch {
			case s.Content == "" && opts.TailSpace:
				n.Tail = " "
			case s.Content == "":
				n.Tail = ""
			default:
				n.Tail = " " + s.Content
			}
		} else {
			n.Text = s.Content
			if opts.TailSpace && s.Content != "" && len(n.Children) > 0 {
				n.Text += " "
			}
		}
	}
	return nil
}
