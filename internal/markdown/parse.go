package markdown

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jackzampolin/redline/internal/document"
)

var (
	headingRe  = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	bulletRe   = regexp.MustCompile(`^[*-]\s+(.*)$`)
	orderedRe  = regexp.MustCompile(`^\d+\.\s+(.*)$`)
	headingTag = []string{TagH1, TagH2, TagH3, TagH4, TagH5, TagH6}
)

// Parse builds a tree from markdown source. The block grammar covers the
// constructs the serializer can emit: ATX headings, unordered and ordered
// lists, and paragraphs, with strong/emphasis/inline-code parsed inside
// each. An unparseable document returns an error wrapping
// document.ErrParse and no tree.
func Parse(src string) (*Tree, error) {
	if !utf8.ValidString(src) {
		return nil, fmt.Errorf("%w: source is not valid UTF-8", document.ErrParse)
	}

	src = strings.ReplaceAll(src, "\r\n", "\n")
	lines := strings.Split(src, "\n")

	t := newTree()
	i := 0
	for i < len(lines) {
		line := lines[i]
		stripped := strings.TrimSpace(line)

		switch {
		case stripped == "":
			i++

		case headingRe.MatchString(stripped):
			m := headingRe.FindStringSubmatch(stripped)
			h := t.add(0, headingTag[len(m[1])-1])
			t.parseInline(h, m[2])
			i++

		case bulletRe.MatchString(stripped) || orderedRe.MatchString(stripped):
			ordered := orderedRe.MatchString(stripped)
			tag := TagUL
			itemRe := bulletRe
			if ordered {
				tag = TagOL
				itemRe = orderedRe
			}
			list := t.add(0, tag)
			for i < len(lines) {
				s := strings.TrimSpace(lines[i])
				m := itemRe.FindStringSubmatch(s)
				if m == nil {
					break
				}
				li := t.add(list, TagLI)
				t.parseInline(li, m[1])
				i++
			}

		default:
			// Paragraph: consecutive non-blank lines that do not start
			// another block.
			var para []string
			for i < len(lines) {
				s := strings.TrimSpace(lines[i])
				if s == "" || headingRe.MatchString(s) || bulletRe.MatchString(s) || orderedRe.MatchString(s) {
					break
				}
				para = append(para, s)
				i++
			}
			p := t.add(0, TagP)
			t.parseInline(p, strings.Join(para, "\n"))
		}
	}

	return t, nil
}

// parseInline splits text into plain runs and strong/em/code child
// nodes. Plain text before the first child lands in the parent's Text;
// runs after a child land in that child's Tail, matching the element
// tree shape the extractor and serializer expect.
func (t *Tree) parseInline(parent int, text string) {
	appendText := func(s string) {
		if s == "" {
			return
		}
		p := &t.nodes[parent]
		if len(p.Children) == 0 {
			p.Text += s
			return
		}
		last := p.Children[len(p.Children)-1]
		t.nodes[last].Tail += s
	}

	for text != "" {
		delim, start := nextDelimiter(text)
		if start < 0 {
			appendText(text)
			return
		}

		inner, rest, ok := splitDelimited(text[start:], delim)
		if !ok {
			// No closing delimiter: the marker is literal text.
			appendText(text[:start+len(delim)])
			text = text[start+len(delim):]
			continue
		}

		appendText(text[:start])
		switch delim {
		case "`":
			code := t.add(parent, TagCode)
			t.nodes[code].Text = inner
		case "**":
			strong := t.add(parent, TagStrong)
			t.parseInline(strong, inner)
		case "*":
			em := t.add(parent, TagEm)
			t.parseInline(em, inner)
		}
		text = rest
	}
}

// nextDelimiter finds the earliest inline marker in s. "**" wins over
// "*" at the same position.
func nextDelimiter(s string) (string, int) {
	best, at := "", -1
	for _, d := range []string{"`", "**", "*"} {
		i := strings.Index(s, d)
		if i < 0 {
			continue
		}
		if at < 0 || i < at || (i == at && len(d) > len(best)) {
			best, at = d, i
		}
	}
	return best, at
}

// splitDelimited expects s to start with delim and returns the content
// up to the matching closer plus the remainder after it.
func splitDelimited(s, delim string) (inner, rest string, ok bool) {
	body := s[len(delim):]
	end := strings.Index(body, delim)
	if end < 0 {
		return "", "", false
	}
	return body[:end], body[end+len(delim):], true
}
