// Package pipeline runs the full correction sequence for one input
// file: extract spans, correct each through the engine, write the
// corrected spans back, and serialize next to the input.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackzampolin/redline/internal/applier"
	"github.com/jackzampolin/redline/internal/document"
	"github.com/jackzampolin/redline/internal/epubdoc"
	"github.com/jackzampolin/redline/internal/markdown"
	"github.com/jackzampolin/redline/internal/svcctx"
)

// Pipeline corrects documents with one engine and one policy set.
type Pipeline struct {
	applier *applier.Applier
	write   markdown.WriteOptions
	// output overrides the default "<stem>_corrected<ext>" path when set.
	output string
}

// New creates a pipeline around a configured applier.
func New(a *applier.Applier, write markdown.WriteOptions, output string) *Pipeline {
	return &Pipeline{applier: a, write: write, output: output}
}

// Run corrects inputPath and writes the result to a sibling file. The
// input is never modified. Engine failures on individual spans degrade
// to "no corrections" for that span and are counted on the report; only
// structural problems abort the run.
func (p *Pipeline) Run(ctx context.Context, inputPath string) (*document.Report, error) {
	logger := svcctx.LoggerFrom(ctx)
	if logger == nil {
		logger = slog.Default()
	}

	format, err := document.DetectFormat(inputPath)
	if err != nil {
		return nil, err
	}

	report := document.NewReport(inputPath, format)
	report.Output = p.output
	if report.Output == "" {
		report.Output = document.CorrectedPath(inputPath)
	}

	logger.Info("starting correction run",
		"input", inputPath,
		"format", string(format),
		"output", report.Output)

	switch format {
	case document.FormatEPUB:
		err = p.runEPUB(ctx, logger, inputPath, report)
	default:
		err = p.runMarkdown(ctx, logger, inputPath, report)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("correction run complete",
		"spans", report.SpansTotal,
		"changed", report.SpansChanged,
		"reverted", report.SpansReverted,
		"engine_failures", report.EngineFailures,
		"fixes", report.TotalFixes())

	return report, nil
}

func (p *Pipeline) runMarkdown(ctx context.Context, logger *slog.Logger, inputPath string, report *document.Report) error {
	src, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", inputPath, err)
	}

	start := time.Now()
	tree, err := markdown.Parse(string(src))
	if err != nil {
		return err
	}
	spans := tree.ExtractSpans()
	report.ExtractDuration = time.Since(start)

	if err := p.correctSpans(ctx, logger, spans, report); err != nil {
		return err
	}

	start = time.Now()
	if err := tree.WriteSpans(spans, p.write); err != nil {
		return err
	}
	if err := os.WriteFile(report.Output, []byte(tree.Render()), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", report.Output, err)
	}
	report.WriteDuration = time.Since(start)
	return nil
}

func (p *Pipeline) runEPUB(ctx context.Context, logger *slog.Logger, inputPath string, report *document.Report) error {
	start := time.Now()
	container, err := epubdoc.Open(inputPath)
	if err != nil {
		return err
	}
	spans := container.ExtractSpans()
	report.ExtractDuration = time.Since(start)

	if err := p.correctSpans(ctx, logger, spans, report); err != nil {
		return err
	}

	start = time.Now()
	if err := container.WriteSpans(spans); err != nil {
		return err
	}
	if err := container.Save(report.Output); err != nil {
		return err
	}
	report.WriteDuration = time.Since(start)
	return nil
}

// correctSpans runs each span through the engine sequentially, updating
// span contents in place and accumulating the report.
func (p *Pipeline) correctSpans(ctx context.Context, logger *slog.Logger, spans []document.Span, report *document.Report) error {
	start := time.Now()
	for i := range spans {
		if err := ctx.Err(); err != nil {
			return err
		}

		outcome, err := p.applier.CorrectSpan(ctx, spans[i].Content)
		if err != nil {
			report.EngineFailures++
			logger.Warn("engine failed for span, keeping original",
				"span", i,
				"error", err)
		}

		changed := outcome.Text != spans[i].Content
		report.Add(outcome, changed)
		if outcome.Reverted {
			logger.Debug("span reverted by structural validation", "span", i)
		} else if changed {
			logger.Debug("span corrected",
				"span", i,
				"fixes", countFixes(outcome))
		}
		spans[i].Content = outcome.Text
	}
	report.CorrectDuration = time.Since(start)
	return nil
}

func countFixes(o document.Outcome) int {
	n := 0
	for _, c := range o.Counts {
		n += c
	}
	return n
}
