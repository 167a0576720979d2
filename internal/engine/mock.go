package engine

import (
	"context"
	"sync/atomic"

	"github.com/jackzampolin/redline/internal/document"
)

const MockEngineName = "mock"

// MockAnnotator is an Annotator for testing.
type MockAnnotator struct {
	// Matches is returned for every span unless MatchesFor has an
	// entry for the exact span text.
	Matches    []document.Match
	MatchesFor map[string][]document.Match

	// Err is returned instead when set. FailFirst makes the first N
	// calls fail and the rest succeed, for retry tests.
	Err       error
	FailFirst int

	calls atomic.Int64
}

// Name implements Annotator.
func (m *MockAnnotator) Name() string { return MockEngineName }

// Calls reports how many times Annotate ran.
func (m *MockAnnotator) Calls() int { return int(m.calls.Load()) }

// Annotate implements Annotator.
func (m *MockAnnotator) Annotate(ctx context.Context, text string) ([]document.Match, error) {
	n := m.calls.Add(1)
	if m.Err != nil && (m.FailFirst == 0 || n <= int64(m.FailFirst)) {
		return nil, m.Err
	}
	if matches, ok := m.MatchesFor[text]; ok {
		return matches, nil
	}
	return m.Matches, nil
}

// MockRewriter is a Rewriter for testing.
type MockRewriter struct {
	// Rewrite result per input text; inputs not in the map come back
	// unchanged.
	Rewrites map[string]string
	Err      error
}

// Name implements Rewriter.
func (m *MockRewriter) Name() string { return MockEngineName }

// Rewrite implements Rewriter.
func (m *MockRewriter) Rewrite(ctx context.Context, text string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	if out, ok := m.Rewrites[text]; ok {
		return out, nil
	}
	return text, nil
}
