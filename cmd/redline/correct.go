package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/redline/internal/applier"
	"github.com/jackzampolin/redline/internal/document"
	"github.com/jackzampolin/redline/internal/markdown"
	"github.com/jackzampolin/redline/internal/pipeline"
	"github.com/jackzampolin/redline/internal/svcctx"
)

var (
	correctEngine      string
	correctOutput      string
	correctNoTailSpace bool
)

var correctCmd = &cobra.Command{
	Use:   "correct <file>",
	Short: "Correct a markdown or EPUB file",
	Long: `Correct the text of a markdown (.md) or EPUB (.epub) file.

The input is never modified. Corrections are written to a sibling file
with a "_corrected" suffix unless --output is given.

Examples:
  redline correct book.md                  # writes book_corrected.md
  redline correct book.epub                # writes book_corrected.epub
  redline correct --engine openai book.md  # use the rewriter engine
  redline correct -o out.md book.md        # explicit output path`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, logger, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := mgr.Get()
		if correctEngine != "" {
			cfg.Engine = correctEngine
		}

		eng, err := cfg.BuildEngine()
		if err != nil {
			return err
		}

		write := markdown.WriteOptions{TailSpace: cfg.Policy.TailSpace}
		if correctNoTailSpace {
			write.TailSpace = false
		}

		ctx := svcctx.WithServices(cmd.Context(), &svcctx.Services{
			Logger: logger,
			Config: cfg,
		})

		p := pipeline.New(applier.New(eng, cfg.ApplierConfig()), write, correctOutput)
		report, err := p.Run(ctx, args[0])
		if err != nil {
			return err
		}

		printReport(report, eng.Name())
		return nil
	},
}

const roundTo = time.Millisecond

func printReport(r *document.Report, engineName string) {
	fmt.Printf("Corrected %s -> %s\n", r.Input, r.Output)
	fmt.Printf("  Engine:   %s\n", engineName)
	fmt.Printf("  Spans:    %d total, %d changed, %d reverted\n",
		r.SpansTotal, r.SpansChanged, r.SpansReverted)
	if r.EngineFailures > 0 {
		fmt.Printf("  Failures: %d spans kept unchanged after engine errors\n", r.EngineFailures)
	}
	if r.TotalFixes() > 0 {
		fmt.Printf("  Fixes:    %d\n", r.TotalFixes())
		for _, cat := range []document.Category{
			document.CategoryTypo,
			document.CategoryPunctuation,
			document.CategorySpacing,
			document.CategoryCasing,
			document.CategorySimpleAgreement,
		} {
			if n := r.Counts[cat]; n > 0 {
				fmt.Printf("    %-17s %d\n", string(cat)+":", n)
			}
		}
	}
	fmt.Printf("  Timing:   extract %s, correct %s, write %s\n",
		r.ExtractDuration.Round(roundTo), r.CorrectDuration.Round(roundTo), r.WriteDuration.Round(roundTo))
}

func init() {
	correctCmd.Flags().StringVar(&correctEngine, "engine", "", "correction engine: languagetool or openai (default from config)")
	correctCmd.Flags().StringVarP(&correctOutput, "output", "o", "", "output path (default: <stem>_corrected<ext>)")
	correctCmd.Flags().BoolVar(&correctNoTailSpace, "no-tail-space", false, "do not pad word boundaries around inline markup")

	rootCmd.AddCommand(correctCmd)
}
