package markdown

import "strings"

// syntax maps a tag to its markdown prefix/suffix pair. Tags not in the
// table (root, p, ul, ol) serialize with no delimiters of their own.
var syntax = map[string][2]string{
	TagH1:     {"# ", ""},
	TagH2:     {"## ", ""},
	TagH3:     {"### ", ""},
	TagH4:     {"#### ", ""},
	TagH5:     {"##### ", ""},
	TagH6:     {"###### ", ""},
	TagLI:     {"* ", ""},
	TagStrong: {"**", "**"},
	TagEm:     {"*", "*"},
	TagCode:   {"`", "`"},
}

// blockTags emit a trailing blank-line separator after their content;
// inline tags do not.
var blockTags = map[string]bool{
	TagH1: true, TagH2: true, TagH3: true,
	TagH4: true, TagH5: true, TagH6: true,
	TagP: true, TagUL: true, TagOL: true, TagLI: true,
}

// Render serializes the tree back to markdown. The output carries a
// single trailing newline; interior blank-line separation follows the
// block/inline split above.
func (t *Tree) Render() string {
	var b strings.Builder
	for _, child := range t.nodes[0].Children {
		t.render(&b, child)
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func (t *Tree) render(b *strings.Builder, idx int) {
	n := &t.nodes[idx]

	pair := syntax[n.Tag]
	b.WriteString(pair[0])
	b.WriteString(n.Text)
	for _, child := range n.Children {
		t.render(b, child)
	}
	b.WriteString(pair[1])

	if blockTags[n.Tag] {
		b.WriteString("\n\n")
	}
	b.WriteString(n.Tail)
}
