// Package review compares an original and a corrected document at
// paragraph and word granularity, producing blocks a reviewer can scan
// to see exactly what the correction pass changed. It is independent of
// the correction pipeline: it reads two finished files and holds no
// shared state, so a comparison can run alongside a later pipeline run.
package review

import (
	"fmt"
	"os"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/jackzampolin/redline/internal/document"
)

// Change classifies one diff block.
type Change string

const (
	ChangeModified Change = "modified"
	ChangeAdded    Change = "added"
	ChangeDeleted  Change = "deleted"
)

// Highlight is one word-level range. Start and End are byte offsets
// into the block's original (op "delete") or corrected (op "insert")
// text.
type Highlight struct {
	Start int
	End   int
	Op    string
}

// Block is a single paragraph-level difference.
type Block struct {
	Paragraph int
	Line      int
	Change    Change
	Original  string
	Corrected string

	OriginalHighlights  []Highlight
	CorrectedHighlights []Highlight
}

// CompareFiles diffs two files on disk. A missing or unreadable input
// returns an error wrapping document.ErrDiffComparison.
func CompareFiles(originalPath, correctedPath string) ([]Block, error) {
	original, err := os.ReadFile(originalPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", document.ErrDiffComparison, originalPath, err)
	}
	corrected, err := os.ReadFile(correctedPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", document.ErrDiffComparison, correctedPath, err)
	}
	return Compare(string(original), string(corrected)), nil
}

// Compare aligns the two documents' paragraph lists and emits one block
// per changed, added, or deleted paragraph. Equal paragraphs are
// consumed silently. Identical inputs always produce identical output.
func Compare(original, corrected string) []Block {
	origParas := splitParagraphs(original)
	corrParas := splitParagraphs(corrected)

	matcher := difflib.NewMatcher(origParas, corrParas)

	var blocks []Block
	line := 1
	paragraph := 0

	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'e':
			for i := op.I1; i < op.I2; i++ {
				paragraph++
				line += strings.Count(origParas[i], "\n") + 1
			}

		case 'r':
			// Aligned pairs become modified blocks; leftovers on either
			// side fall through as deletions or additions.
			pairs := op.I2 - op.I1
			if op.J2-op.J1 < pairs {
				pairs = op.J2 - op.J1
			}
			for k := 0; k < pairs; k++ {
				paragraph++
				orig := origParas[op.I1+k]
				corr := corrParas[op.J1+k]
				origHL, corrHL := highlightChanges(orig, corr)
				blocks = append(blocks, Block{
					Paragraph:           paragraph,
					Line:                line,
					Change:              ChangeModified,
					Original:            orig,
					Corrected:           corr,
					OriginalHighlights:  origHL,
					CorrectedHighlights: corrHL,
				})
				line += strings.Count(orig, "\n") + 1
			}
			for i := op.I1 + pairs; i < op.I2; i++ {
				paragraph++
				blocks = append(blocks, Block{
					Paragraph: paragraph,
					Line:      line,
					Change:    ChangeDeleted,
					Original:  origParas[i],
				})
				line += strings.Count(origParas[i], "\n") + 1
			}
			for j := op.J1 + pairs; j < op.J2; j++ {
				paragraph++
				blocks = append(blocks, Block{
					Paragraph: paragraph,
					Line:      line,
					Change:    ChangeAdded,
					Corrected: corrParas[j],
				})
			}

		case 'd':
			for i := op.I1; i < op.I2; i++ {
				paragraph++
				blocks = append(blocks, Block{
					Paragraph: paragraph,
					Line:      line,
					Change:    ChangeDeleted,
					Original:  origParas[i],
				})
				line += strings.Count(origParas[i], "\n") + 1
			}

		case 'i':
			for j := op.J1; j < op.J2; j++ {
				paragraph++
				blocks = append(blocks, Block{
					Paragraph: paragraph,
					Line:      line,
					Change:    ChangeAdded,
					Corrected: corrParas[j],
				})
			}
		}
	}

	return blocks
}

// splitParagraphs splits a document into trimmed, non-empty paragraphs
// on blank-line boundaries.
func splitParagraphs(text string) []string {
	var paragraphs []string
	var current []string

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			current = append(current, line)
			continue
		}
		if len(current) > 0 {
			paragraphs = append(paragraphs, strings.TrimSpace(strings.Join(current, "\n")))
			current = nil
		}
	}
	if len(current) > 0 {
		paragraphs = append(paragraphs, strings.TrimSpace(strings.Join(current, "\n")))
	}
	return paragraphs
}
