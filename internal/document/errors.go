package document

import "errors"

// Sentinel error kinds for the failure modes the pipeline distinguishes.
// Callers match with errors.Is; messages are wrapped at the failure site.
var (
	// ErrParse means the document could not be parsed into a tree or
	// paragraph structure. Fatal for the run; no output is written.
	ErrParse = errors.New("document parse failed")

	// ErrCorrectionEngine means an external engine call failed or
	// returned malformed data. Non-fatal; the span is left unchanged
	// after bounded retries.
	ErrCorrectionEngine = errors.New("correction engine failed")

	// ErrStructuralReference means a span's back-reference no longer
	// resolved at reinsertion time. Fatal for the run; no output is
	// written.
	ErrStructuralReference = errors.New("structural reference no longer resolves")

	// ErrDiffComparison means a diff input file was missing or
	// unreadable. Surfaced to the caller; independent of the pipeline.
	ErrDiffComparison = errors.New("diff comparison input unreadable")
)
