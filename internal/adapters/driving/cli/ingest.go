package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driving"
	"github.com/custodia-labs/groundwork/internal/logger"
)

var (
	ingestChangedOnly bool
	ingestWatch       bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Index course documents",
	Long: `Loads documents from the configured source directory, splits them into
chunks, embeds them and writes them to the vector index.

Without arguments the whole source is ingested and documents that have
disappeared are removed from the index. With arguments only the given
source paths (relative to the source directory) are re-ingested.

Use --watch to keep running and re-ingest files as they change.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestChangedOnly, "changed-only", false, "skip documents whose content is unchanged")
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "watch the source directory after ingesting")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := wire(needSource); err != nil {
		return err
	}
	if ingestService == nil {
		return errors.New("ingestion service not configured")
	}

	ctx := cmd.Context()
	var (
		report *domain.IngestReport
		err    error
	)
	if len(args) > 0 {
		report, err = ingestService.IngestPaths(ctx, args)
	} else {
		progress := newProgressLine(cmd.OutOrStdout())
		report, err = ingestService.IngestAll(ctx, driving.IngestOptions{
			ChangedOnly: ingestChangedOnly,
			Progress:    progress.update,
		})
		progress.done()
	}
	if err := printIngestReport(cmd, report, err); err != nil {
		return err
	}

	if !ingestWatch {
		return nil
	}
	return watchSource(cmd)
}

func watchSource(cmd *cobra.Command) error {
	if sourceWatcher == nil {
		return errors.New("source watcher not configured")
	}
	cmd.Println("Watching for changes. Press Ctrl+C to stop.")

	ctx := cmd.Context()
	return sourceWatcher.Watch(ctx, func(paths []string) {
		logger.Info("Changed: %v", paths)
		report, err := ingestService.IngestPaths(ctx, paths)
		if err := printIngestReport(cmd, report, err); err != nil {
			cmd.PrintErrf("Error: %v\n", err)
		}
	})
}

// printIngestReport prints the summary and any per-document failures.
// Partial failures still fail the command.
func printIngestReport(cmd *cobra.Command, report *domain.IngestReport, err error) error {
	if report == nil {
		if err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}
		return nil
	}

	cmd.Printf("Ingested %d documents (%d chunks), %d unchanged, %d removed in %s\n",
		report.Documents, report.Chunks, report.Unchanged, report.Removed,
		report.Duration.Round(time.Millisecond))
	for _, f := range report.Failed {
		cmd.Printf("  FAILED %s: %v\n", f.SourcePath, f.Err)
	}

	var partial *domain.PartialIngestError
	if errors.As(err, &partial) {
		return fmt.Errorf("%d documents failed", len(partial.Failures))
	}
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	return nil
}

// progressLine rewrites a single status line on a terminal and stays
// silent otherwise.
type progressLine struct {
	w       io.Writer
	enabled bool
	drawn   bool
}

func newProgressLine(w io.Writer) *progressLine {
	f, ok := w.(*os.File)
	return &progressLine{w: w, enabled: ok && term.IsTerminal(int(f.Fd()))}
}

func (p *progressLine) update(done, total int, sourcePath string) {
	if !p.enabled {
		return
	}
	fmt.Fprintf(p.w, "\r\033[K[%d/%d] %s", done, total, sourcePath)
	p.drawn = true
}

func (p *progressLine) done() {
	if p.drawn {
		fmt.Fprint(p.w, "\r\033[K")
	}
}
