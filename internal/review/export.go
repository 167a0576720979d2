package review

import (
	"fmt"
	"strings"
)

// Export renders blocks into the plain-text review format: a short
// header, then one `## Paragraph <n> (Line <n>)` section per block with
// `-` original and `+` corrected lines, blank-line separated.
func Export(blocks []Block) string {
	var lines []string
	lines = append(lines, "# Redline - Text Corrections Diff")
	lines = append(lines, "")

	for _, b := range blocks {
		lines = append(lines, fmt.Sprintf("## Paragraph %d (Line %d)", b.Paragraph, b.Line))
		lines = append(lines, "")

		switch b.Change {
		case ChangeModified:
			lines = append(lines, "- "+b.Original)
			lines = append(lines, "+ "+b.Corrected)
		case ChangeDeleted:
			lines = append(lines, "- "+b.Original)
		case ChangeAdded:
			lines = append(lines, "+ "+b.Corrected)
		}

		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}
