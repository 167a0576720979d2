package applier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackzampolin/redline/internal/document"
	"github.com/jackzampolin/redline/internal/engine"
)

func typoMatch(offset, length int, replacement string) document.Match {
	return document.Match{
		Offset:       offset,
		Length:       length,
		Replacements: []string{replacement},
		Rule:         "MORFOLOGIK_RULE_EN_US",
	}
}

func TestApply_NoMatchesIsIdentity(t *testing.T) {
	out := Apply("The quick brown fox.", nil, DefaultConfig().Categories)
	if out.Text != "The quick brown fox." {
		t.Errorf("text changed with no matches: %q", out.Text)
	}
	if out.Reverted {
		t.Error("reverted without any edit")
	}
	for cat, n := range out.Counts {
		if n != 0 {
			t.Errorf("category %s counted %d with no matches", cat, n)
		}
	}
}

func TestApply_SingleMatch(t *testing.T) {
	out := Apply("Ths is a test.", []document.Match{typoMatch(0, 3, "This")}, DefaultConfig().Categories)
	if out.Text != "This is a test." {
		t.Errorf("got %q", out.Text)
	}
	if out.Counts[document.CategoryTypo] != 1 {
		t.Errorf("expected 1 typo fix, got %d", out.Counts[document.CategoryTypo])
	}
}

func TestApply_OffsetSafety(t *testing.T) {
	// Engine returns matches in ascending order with length-changing
	// replacements; applying highest-offset-first must keep every
	// earlier offset valid.
	text := "aa bb cc"
	matches := []document.Match{
		typoMatch(0, 2, "alpha"),
		typoMatch(3, 2, "beta"),
		typoMatch(6, 2, "gamma"),
	}
	out := Apply(text, matches, DefaultConfig().Categories)
	if out.Text != "alpha beta gamma" {
		t.Errorf("got %q", out.Text)
	}

	// Final length = original + Σ(len(replacement) − len(match)).
	wantLen := len(text) + (5 - 2) + (4 - 2) + (5 - 2)
	if len(out.Text) != wantLen {
		t.Errorf("expected length %d, got %d", wantLen, len(out.Text))
	}
	if out.Counts[document.CategoryTypo] != 3 {
		t.Errorf("expected 3 fixes, got %d", out.Counts[document.CategoryTypo])
	}
}

func TestApply_RuneOffsets(t *testing.T) {
	// Offsets are character offsets, so multi-byte runes before the
	// match must not skew the slice position.
	out := Apply("héllo wörld teh end", []document.Match{typoMatch(12, 3, "the")}, DefaultConfig().Categories)
	if out.Text != "héllo wörld the end" {
		t.Errorf("got %q", out.Text)
	}
}

func TestApply_UnsafeCategoryNeverApplied(t *testing.T) {
	matches := []document.Match{{
		Offset:       0,
		Length:       3,
		Replacements: []string{"Totally", "rewritten"},
		Rule:         "SOME_AGGRESSIVE_STYLE_RULE",
	}}
	out := Apply("Ths is fine.", matches, DefaultConfig().Categories)
	if out.Text != "Ths is fine." {
		t.Errorf("unsafe match was applied: %q", out.Text)
	}
	if len(out.Counts) != 0 {
		t.Errorf("unsafe match counted: %v", out.Counts)
	}
}

func TestApply_NoReplacementCandidates(t *testing.T) {
	matches := []document.Match{{Offset: 0, Length: 3, Rule: "MORFOLOGIK_RULE_EN_US"}}
	out := Apply("Ths is fine.", matches, DefaultConfig().Categories)
	if out.Text != "Ths is fine." {
		t.Errorf("match without candidates was applied: %q", out.Text)
	}
}

func TestApply_OutOfBoundsMatchDropped(t *testing.T) {
	matches := []document.Match{typoMatch(100, 3, "nope")}
	out := Apply("short", matches, DefaultConfig().Categories)
	if out.Text != "short" || out.Reverted {
		t.Errorf("out-of-bounds match affected span: %+v", out)
	}
}

func TestApply_RevertAtomicity(t *testing.T) {
	// Two good edits plus one that destroys a bracket: the parity
	// check must revert everything and zero every counter.
	text := "Ths text [has] a brckt."
	matches := []document.Match{
		typoMatch(0, 3, "This"),
		typoMatch(17, 5, "bracket"),
		typoMatch(9, 5, "has"), // replaces "[has]" including brackets
	}
	out := Apply(text, matches, DefaultConfig().Categories)
	if !out.Reverted {
		t.Fatal("expected revert")
	}
	if out.Text != text {
		t.Errorf("revert did not restore original: %q", out.Text)
	}
	for cat, n := range out.Counts {
		if n != 0 {
			t.Errorf("category %s counted %d after revert", cat, n)
		}
	}
}

func TestApply_OverlappingMatchesKeepFirst(t *testing.T) {
	// A whole-span replacement and a deletion inside it cannot both
	// apply. The deletion sorts first (higher offset) and wins; the
	// whole-span match reaching into its region is dropped, not applied
	// against the shrunken text.
	matches := []document.Match{
		typoMatch(0, 10, "x"),
		typoMatch(5, 5, ""),
	}
	out := Apply("abcdefghij", matches, DefaultConfig().Categories)
	if out.Text != "abcde" {
		t.Errorf("got %q", out.Text)
	}
	if out.Counts[document.CategoryTypo] != 1 {
		t.Errorf("expected 1 fix, got %d", out.Counts[document.CategoryTypo])
	}
	if out.Reverted {
		t.Error("dropped overlap must not trigger a revert")
	}
}

func TestApply_SameRegionMatchesApplyOnce(t *testing.T) {
	// Two suggestions for the same word: only the higher-offset one
	// applies, the other is dropped.
	matches := []document.Match{
		typoMatch(0, 3, "This"),
		typoMatch(2, 1, "us"),
	}
	out := Apply("Ths is fine.", matches, DefaultConfig().Categories)
	if out.Text != "Thus is fine." {
		t.Errorf("got %q", out.Text)
	}
	if out.Counts[document.CategoryTypo] != 1 {
		t.Errorf("expected 1 fix, got %d", out.Counts[document.CategoryTypo])
	}
}

func TestApply_AdjacentMatchesBothApply(t *testing.T) {
	// Touching ranges share no position and are not overlaps.
	matches := []document.Match{
		typoMatch(0, 2, "AB"),
		typoMatch(2, 2, "CD"),
	}
	out := Apply("abcd", matches, DefaultConfig().Categories)
	if out.Text != "ABCD" {
		t.Errorf("got %q", out.Text)
	}
	if out.Counts[document.CategoryTypo] != 2 {
		t.Errorf("expected 2 fixes, got %d", out.Counts[document.CategoryTypo])
	}
}

func TestApply_StableTieOrder(t *testing.T) {
	// Two same-offset matches: the engine's list order decides which
	// one applies, reproducibly.
	matches := []document.Match{
		typoMatch(0, 2, "XY"),
		typoMatch(0, 2, "ZZ"),
	}
	first := Apply("ab rest", matches, DefaultConfig().Categories)
	second := Apply("ab rest", matches, DefaultConfig().Categories)
	if first.Text != second.Text {
		t.Errorf("tie order not reproducible: %q vs %q", first.Text, second.Text)
	}
}

func TestCorrectSpan_EngineFailureDegrades(t *testing.T) {
	mock := &engine.MockAnnotator{Err: errors.New("engine down")}
	a := New(engine.NewAnnotator(mock), Config{
		Categories:    DefaultConfig().Categories,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	})

	out, err := a.CorrectSpan(context.Background(), "some text")
	if err == nil {
		t.Fatal("expected error to be reported")
	}
	if out.Text != "some text" {
		t.Errorf("span changed despite engine failure: %q", out.Text)
	}
	if mock.Calls() != 3 {
		t.Errorf("expected 3 attempts, got %d", mock.Calls())
	}
}

func TestCorrectSpan_RetryRecovers(t *testing.T) {
	mock := &engine.MockAnnotator{
		Err:       errors.New("transient"),
		FailFirst: 2,
		Matches:   []document.Match{typoMatch(0, 3, "This")},
	}
	a := New(engine.NewAnnotator(mock), Config{
		Categories:    DefaultConfig().Categories,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	})

	out, err := a.CorrectSpan(context.Background(), "Ths works.")
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if out.Text != "This works." {
		t.Errorf("got %q", out.Text)
	}
	if mock.Calls() != 3 {
		t.Errorf("expected 3 calls, got %d", mock.Calls())
	}
}

func TestCorrectSpan_RewriterAccepted(t *testing.T) {
	mock := &engine.MockRewriter{Rewrites: map[string]string{
		"Ths is bad.": "This is bad.",
	}}
	a := New(engine.NewRewriter(mock), DefaultConfig())

	out, err := a.CorrectSpan(context.Background(), "Ths is bad.")
	if err != nil {
		t.Fatalf("correct failed: %v", err)
	}
	if out.Text != "This is bad." {
		t.Errorf("got %q", out.Text)
	}
}

func TestCorrectSpan_RewriterRevertsOnMarkerLoss(t *testing.T) {
	mock := &engine.MockRewriter{Rewrites: map[string]string{
		"Keep `this` code.": "Keep this code.", // dropped the backticks
	}}
	a := New(engine.NewRewriter(mock), DefaultConfig())

	out, err := a.CorrectSpan(context.Background(), "Keep `this` code.")
	if err != nil {
		t.Fatalf("correct failed: %v", err)
	}
	if !out.Reverted {
		t.Fatal("expected revert")
	}
	if out.Text != "Keep `this` code." {
		t.Errorf("got %q", out.Text)
	}
}
