// Package applier turns engine suggestions into validated span edits.
// Matches pass through a fixed safety gate: classification against a
// rule allow-list, descending-offset application so edits never shift
// pending offsets, and a structural-marker parity check that reverts
// the whole span on any mismatch. The result is always either the
// original text or the text with every kept match applied — a partially
// applied span is never observable.
package applier

import (
	"context"
	"sort"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/jackzampolin/redline/internal/document"
	"github.com/jackzampolin/redline/internal/engine"
)

// structuralMarkers are the characters whose counts must match between
// the pre-edit and post-edit text. Parity of these is a cheap proxy for
// "the edit did not break document formatting".
var structuralMarkers = []rune{'[', ']', '(', ')', '`'}

// Config controls classification and engine retry behavior.
type Config struct {
	// Categories maps engine rule identifiers to safe categories. A
	// rule not present here classifies as unsafe and is never applied.
	Categories map[string]document.Category

	// RetryAttempts bounds annotator/rewriter calls per span.
	RetryAttempts uint
	// RetryDelay is the base delay; attempts back off from it.
	RetryDelay time.Duration
}

// DefaultConfig returns the allow-list matching the LanguageTool rules
// this tool trusts, plus retry defaults.
func DefaultConfig() Config {
	return Config{
		Categories: map[string]document.Category{
			"MORFOLOGIK_RULE_EN_US":        document.CategoryTypo,
			"ENGLISH_WORD_REPEAT_RULE":     document.CategoryTypo,
			"COMMA_PARENTHESIS_WHITESPACE": document.CategoryPunctuation,
			"EN_QUOTES":                    document.CategoryPunctuation,
			"UNPAIRED_BRACKETS":            document.CategoryPunctuation,
			"WHITESPACE_RULE":              document.CategorySpacing,
			"SENTENCE_WHITESPACE":          document.CategorySpacing,
			"UPPERCASE_SENTENCE_START":     document.CategoryCasing,
			"PERSPECTIVE_AGREEMENT":        document.CategorySimpleAgreement,
		},
		RetryAttempts: 3,
		RetryDelay:    500 * time.Millisecond,
	}
}

// Applier corrects spans through one engine.
type Applier struct {
	engine engine.Engine
	cfg    Config
}

// New creates an applier for the given engine.
func New(e engine.Engine, cfg Config) *Applier {
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 1
	}
	return &Applier{engine: e, cfg: cfg}
}

// CorrectSpan corrects one span's text. On engine failure after the
// bounded retries the span is treated as having zero matches: the
// outcome carries the untouched original and the error reports the
// failure so the caller can record it without aborting the run.
func (a *Applier) CorrectSpan(ctx context.Context, text string) (document.Outcome, error) {
	switch a.engine.Form() {
	case engine.FormRewriter:
		return a.correctRewrite(ctx, text)
	default:
		return a.correctAnnotated(ctx, text)
	}
}

func (a *Applier) correctAnnotated(ctx context.Context, text string) (document.Outcome, error) {
	var matches []document.Match
	err := retry.Do(
		func() error {
			var callErr error
			matches, callErr = a.engine.Annotator().Annotate(ctx, text)
			return callErr
		},
		retry.Context(ctx),
		retry.Attempts(a.cfg.RetryAttempts),
		retry.Delay(a.cfg.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return untouched(text), err
	}
	return Apply(text, matches, a.cfg.Categories), nil
}

func (a *Applier) correctRewrite(ctx context.Context, text string) (document.Outcome, error) {
	var rewritten string
	err := retry.Do(
		func() error {
			var callErr error
			rewritten, callErr = a.engine.Rewriter().Rewrite(ctx, text)
			return callErr
		},
		retry.Context(ctx),
		retry.Attempts(a.cfg.RetryAttempts),
		retry.Delay(a.cfg.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return untouched(text), err
	}

	// The rewrite is one implicit match over the whole span: accepted
	// wholesale or reverted by the same parity check.
	if !markersPreserved(text, rewritten) {
		o := untouched(text)
		o.Reverted = true
		return o, nil
	}
	return document.Outcome{Text: rewritten, Counts: map[document.Category]int{}}, nil
}

func untouched(text string) document.Outcome {
	return document.Outcome{Text: text, Counts: map[document.Category]int{}}
}

// Apply runs the classify → filter → order → apply → validate sequence
// over one span's text. Offsets in matches are rune offsets into text.
func Apply(text string, matches []document.Match, categories map[string]document.Category) document.Outcome {
	runes := []rune(text)

	// Classify and filter. Matches with no replacement candidates, an
	// unsafe rule, or bounds outside the span are dropped.
	type kept struct {
		m   document.Match
		cat document.Category
	}
	var safe []kept
	for _, m := range matches {
		cat, ok := categories[m.Rule]
		if !ok || cat == document.CategoryUnsafe {
			continue
		}
		if len(m.Replacements) == 0 {
			continue
		}
		if m.Offset < 0 || m.Length < 0 || m.Offset+m.Length > len(runes) {
			continue
		}
		safe = append(safe, kept{m: m, cat: cat})
	}

	// Descending offset, stable on the engine's original order, so
	// applying one match never shifts a not-yet-applied one.
	sort.SliceStable(safe, func(i, j int) bool {
		return safe[i].m.Offset > safe[j].m.Offset
	})

	// The engine guarantees neither ordering nor non-overlap. Two matches
	// on the same region cannot both apply; the first kept in sorted
	// order wins and any later match reaching into it is dropped.
	counts := make(map[document.Category]int)
	corrected := runes
	applied := false
	lowest := 0
	for _, k := range safe {
		if applied && k.m.Offset+k.m.Length > lowest {
			continue
		}
		replacement := []rune(k.m.Replacements[0])
		next := make([]rune, 0, len(corrected)-k.m.Length+len(replacement))
		next = append(next, corrected[:k.m.Offset]...)
		next = append(next, replacement...)
		next = append(next, corrected[k.m.Offset+k.m.Length:]...)
		corrected = next
		applied = true
		lowest = k.m.Offset
		counts[k.cat]++
	}

	result := string(corrected)
	if !markersPreserved(text, result) {
		o := untouched(text)
		o.Reverted = true
		return o
	}
	return document.Outcome{Text: result, Counts: counts}
}

// markersPreserved compares structural marker counts between the
// original and edited text.
func markersPreserved(original, edited string) bool {
	for _, marker := range structuralMarkers {
		if countRune(original, marker) != countRune(edited, marker) {
			return false
		}
	}
	return true
}

func countRune(s string, r rune) int {
	n := 0
	for _, c := range s {
		if c == r {
			n++
		}
	}
	return n
}
