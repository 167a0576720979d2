package review

import (
	"strings"

	"github.com/clipperhouse/uax29/v2/words"
	"github.com/pmezard/go-difflib/difflib"
)

// token is one word or punctuation unit with its byte range.
type token struct {
	text  string
	start int
	end   int
}

// tokenize segments text into word/punctuation tokens with offsets.
// UAX-29 word segmentation partitions the whole string, so a running
// cursor over the segments yields exact byte positions; whitespace
// segments are dropped from the comparison sequence.
func tokenize(text string) []token {
	var tokens []token
	pos := 0
	segments := words.FromString(text)
	for segments.Next() {
		v := segments.Value()
		start := pos
		pos += len(v)
		if strings.TrimSpace(v) == "" {
			continue
		}
		tokens = append(tokens, token{text: v, start: start, end: pos})
	}
	return tokens
}

// highlightChanges aligns the two paragraphs' token sequences and
// returns delete ranges against the original text and insert ranges
// against the corrected text. Tokens in equal opcodes are never
// highlighted.
func highlightChanges(original, corrected string) ([]Highlight, []Highlight) {
	origTokens := tokenize(original)
	corrTokens := tokenize(corrected)

	a := make([]string, len(origTokens))
	for i, tok := range origTokens {
		a[i] = tok.text
	}
	b := make([]string, len(corrTokens))
	for j, tok := range corrTokens {
		b[j] = tok.text
	}

	var origHL, corrHL []Highlight
	for _, op := range difflib.NewMatcher(a, b).GetOpCodes() {
		switch op.Tag {
		case 'd':
			for i := op.I1; i < op.I2; i++ {
				origHL = append(origHL, Highlight{Start: origTokens[i].start, End: origTokens[i].end, Op: "delete"})
			}
		case 'i':
			for j := op.J1; j < op.J2; j++ {
				corrHL = append(corrHL, Highlight{Start: corrTokens[j].start, End: corrTokens[j].end, Op: "insert"})
			}
		case 'r':
			for i := op.I1; i < op.I2; i++ {
				origHL = append(origHL, Highlight{Start: origTokens[i].start, End: origTokens[i].end, Op: "delete"})
			}
			for j := op.J1; j < op.J2; j++ {
				corrHL = append(corrHL, Highlight{Start: corrTokens[j].start, End: corrTokens[j].end, Op: "insert"})
			}
		}
	}
	return origHL, corrHL
}
