package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/redline/internal/review"
)

var (
	diffExport string
	diffWatch  bool
)

var diffCmd = &cobra.Command{
	Use:   "diff <original> <corrected>",
	Short: "Show a paragraph-level diff between two text files",
	Long: `Compare an original file against its corrected version and show
changed paragraphs with word-level highlights.

Examples:
  redline diff book.md book_corrected.md
  redline diff --export review.md book.md book_corrected.md
  redline diff --watch book.md book_corrected.md`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		original, corrected := args[0], args[1]

		if diffWatch {
			err := review.Watch(cmd.Context(), original, corrected, func(blocks []review.Block, err error) {
				fmt.Println(watchHeader(time.Now()))
				if err != nil {
					fmt.Fprintf(os.Stderr, "diff error: %v\n", err)
					return
				}
				printBlocks(blocks)
			})
			// Ctrl+C is the normal way out of watch mode.
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		blocks, err := review.CompareFiles(original, corrected)
		if err != nil {
			return err
		}

		if diffExport != "" {
			if err := os.WriteFile(diffExport, []byte(review.Export(blocks)), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", diffExport, err)
			}
			fmt.Printf("Exported %d changed paragraphs to %s\n", len(blocks), diffExport)
			return nil
		}

		printBlocks(blocks)
		return nil
	},
}

// watchHeader separates successive recomputes in watch mode.
func watchHeader(at time.Time) string {
	return fmt.Sprintf("\n--- diff at %s ---", at.Format("15:04:05"))
}

func printBlocks(blocks []review.Block) {
	if len(blocks) == 0 {
		fmt.Println("No differences.")
		return
	}
	for _, b := range blocks {
		fmt.Printf("Paragraph %d (Line %d) [%s]\n", b.Paragraph, b.Line, b.Change)
		switch b.Change {
		case review.ChangeAdded:
			fmt.Printf("  + %s\n", b.Corrected)
		case review.ChangeDeleted:
			fmt.Printf("  - %s\n", b.Original)
		default:
			fmt.Printf("  - %s\n", b.Original)
			fmt.Printf("  + %s\n", b.Corrected)
		}
		fmt.Println()
	}
	fmt.Printf("%d changed paragraphs\n", len(blocks))
}

func init() {
	diffCmd.Flags().StringVar(&diffExport, "export", "", "write the diff to a markdown file instead of stdout")
	diffCmd.Flags().BoolVar(&diffWatch, "watch", false, "recompute the diff when either file changes")

	rootCmd.AddCommand(diffCmd)
}
