// Package engine defines the correction-engine boundary: the pipeline
// hands a span's text to an external engine and gets back either a full
// rewrite or a list of positional match suggestions. The engine decides
// what to suggest; nothing in this package judges correction quality.
package engine

import (
	"context"

	"github.com/jackzampolin/redline/internal/document"
)

// Form discriminates the two supported engine shapes.
type Form int

const (
	// FormAnnotator engines return positional matches against the span
	// text, with no ordering or non-overlap guarantee.
	FormAnnotator Form = iota
	// FormRewriter engines return full replacement text; the applier
	// treats the whole span as one implicit match.
	FormRewriter
)

// Annotator is an engine that suggests positional corrections. Calls
// are blocking and synchronous; cancellation and timeouts belong to the
// caller's context.
type Annotator interface {
	Name() string
	Annotate(ctx context.Context, text string) ([]document.Match, error)
}

// Rewriter is an engine that returns the whole span rewritten.
type Rewriter interface {
	Name() string
	Rewrite(ctx context.Context, text string) (string, error)
}

// Engine is a tagged union holding exactly one engine form. Construct
// with NewAnnotator or NewRewriter; callers branch on Form rather than
// inspecting types.
type Engine struct {
	form      Form
	annotator Annotator
	rewriter  Rewriter
}

// NewAnnotator wraps an annotator engine.
func NewAnnotator(a Annotator) Engine {
	return Engine{form: FormAnnotator, annotator: a}
}

// NewRewriter wraps a rewriter engine.
func NewRewriter(r Rewriter) Engine {
	return Engine{form: FormRewriter, rewriter: r}
}

// Form returns which variant is active.
func (e Engine) Form() Form { return e.form }

// Name returns the wrapped engine's identifier.
func (e Engine) Name() string {
	if e.form == FormRewriter {
		return e.rewriter.Name()
	}
	return e.annotator.Name()
}

// Annotator returns the annotator variant. Valid only when Form is
// FormAnnotator.
func (e Engine) Annotator() Annotator { return e.annotator }

// Rewriter returns the rewriter variant. Valid only when Form is
// FormRewriter.
func (e Engine) Rewriter() Rewriter { return e.rewriter }
