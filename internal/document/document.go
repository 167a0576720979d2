// Package document defines the shared data model for the correction
// pipeline: spans extracted from a source document, positional matches
// returned by correction engines, and the per-run report.
package document

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies how a source document is structured.
type Format string

const (
	// FormatMarkdown is a markup tree parsed from a .md file.
	FormatMarkdown Format = "markdown"
	// FormatEPUB is a zip package of XHTML paragraph documents.
	FormatEPUB Format = "epub"
)

// DetectFormat selects the document format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md":
		return FormatMarkdown, nil
	case ".epub":
		return FormatEPUB, nil
	default:
		return "", fmt.Errorf("unsupported file type %q: expected .md or .epub", filepath.Ext(path))
	}
}

// CorrectedPath returns the output path for an input: the stem plus a
// "_corrected" suffix before the original extension. The input file is
// never overwritten in place.
func CorrectedPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	return strings.TrimSuffix(inputPath, ext) + "_corrected" + ext
}

// Ref is a span's back-reference into the parsed structure. For markdown
// trees Node is an arena index and IsTail selects the node's trailing
// text; for EPUB containers Doc names the content document and Para is
// the paragraph ordinal within it.
type Ref struct {
	Node   int
	IsTail bool

	Doc  string
	Para int
}

// Span is one correctable unit of text tied to a single structural
// location. Spans are created in extraction order and that order is
// preserved through correction and reinsertion.
type Span struct {
	Content string
	Ref     Ref
}

// Match is a positional correction suggestion from an annotator engine.
// Offset and Length are 0-based character (rune) offsets into the span
// content the engine was given, not into the whole document.
type Match struct {
	Offset       int
	Length       int
	Replacements []string
	Rule         string
}
