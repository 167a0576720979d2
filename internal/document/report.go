package document

import "time"

// Category classifies a match as one of the correction kinds the applier
// considers safe to apply mechanically.
type Category string

const (
	CategoryTypo            Category = "typo"
	CategoryPunctuation     Category = "punctuation"
	CategorySpacing         Category = "spacing"
	CategoryCasing          Category = "casing"
	CategorySimpleAgreement Category = "simple_agreement"
	// CategoryUnsafe marks a rule outside the allow-list. Unsafe matches
	// are never applied.
	CategoryUnsafe Category = "unsafe"
)

// Outcome is the result of correcting one span: the (possibly reverted)
// text plus per-category fix counts. Reverted is true when the structural
// validation check rejected the edited text and the original was kept.
type Outcome struct {
	Text     string
	Counts   map[Category]int
	Reverted bool
}

// Report accumulates per-run correction statistics. It is threaded back
// through the call chain rather than held in package state, so concurrent
// runs never share counters.
type Report struct {
	Input  string
	Output string
	Format Format

	SpansTotal     int
	SpansChanged   int
	SpansReverted  int
	EngineFailures int

	Counts map[Category]int

	ExtractDuration time.Duration
	CorrectDuration time.Duration
	WriteDuration   time.Duration
}

// NewReport returns a Report ready for accumulation.
func NewReport(input string, format Format) *Report {
	return &Report{
		Input:  input,
		Format: format,
		Counts: make(map[Category]int),
	}
}

// Add merges one span's outcome into the report.
func (r *Report) Add(o Outcome, changed bool) {
	r.SpansTotal++
	if o.Reverted {
		r.SpansReverted++
	}
	if changed {
		r.SpansChanged++
	}
	for cat, n := range o.Counts {
		r.Counts[cat] += n
	}
}

// TotalFixes sums the category counters.
func (r *Report) TotalFixes() int {
	total := 0
	for _, n := range r.Counts {
		total += n
	}
	return total
}
