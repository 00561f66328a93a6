package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/docqa/internal/config"
	"github.com/ziadkadry99/docqa/internal/progress"
	"github.com/ziadkadry99/docqa/internal/qa"
	"github.com/ziadkadry99/docqa/internal/vectordb"
	"github.com/ziadkadry99/docqa/internal/walker"
)

var (
	ingestOwner   string
	ingestSubject string
	ingestJSON    bool
	ingestJobs    int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file-or-directory>...",
	Short: "Index documents so they can be queried",
	Long: `Extracts, chunks and embeds each document and stores it in the library.
Directories are searched recursively using the include and exclude
patterns from the config. Documents already indexed are recognised by
content and are not embedded again.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestOwner, "owner", "", "owner id recorded with each document")
	ingestCmd.Flags().StringVar(&ingestSubject, "subject", "", "subject recorded with each document")
	ingestCmd.Flags().IntVarP(&ingestJobs, "jobs", "j", 2, "documents ingested in parallel")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "print results as JSON")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	paths, err := collectDocuments(cfg, args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Println("No documents found to ingest.")
		return nil
	}

	// A single document shows embedding progress; a batch shows files.
	reporter := progress.NewReporter()
	opts := appOptions{}
	if len(paths) == 1 && !ingestJSON {
		opts.embedProgress = progress.Func(reporter, "Embedding chunks")
	}

	a, err := openApp(cfg, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	var (
		results []*qa.IngestResult
		failed  int
	)
	if len(paths) == 1 {
		res, err := a.svc.IngestFile(ctx, paths[0], ingestOwner, ingestSubject)
		if err != nil {
			return err
		}
		results = append(results, res)
	} else {
		reporter.Start(len(paths), "Ingesting documents")
		batch := a.svc.IngestBatch(ctx, paths, qa.BatchOptions{
			Concurrency: ingestJobs,
			OwnerID:     ingestOwner,
			Subject:     ingestSubject,
			OnProgress: func(done, _ int, path string) {
				reporter.Update(done, path)
			},
		})
		reporter.Finish("")
		results = batch.Results
		for _, e := range batch.Errors {
			a.logger.Warn("ingest failed", zap.String("path", e.Path), zap.Error(e.Err))
		}
		failed = len(batch.Errors)
	}

	if ingestJSON {
		if err := printJSON(results); err != nil {
			return err
		}
	} else {
		printIngested(results)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed; rerun with -v for details", failed, len(paths))
	}
	return nil
}

// collectDocuments expands directories into the supported documents
// they contain. Files named explicitly are kept whatever their patterns.
func collectDocuments(cfg *config.Config, args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		res, err := walker.Walk(walker.WalkerConfig{
			RootDir:     arg,
			Include:     cfg.Include,
			Exclude:     cfg.Exclude,
			MaxFileSize: cfg.Limits.MaxUploadBytes,
		})
		if err != nil {
			return nil, err
		}
		for _, s := range res.Skipped {
			fmt.Fprintf(os.Stderr, "Skipping %s: %s\n", s.RelPath, s.Reason)
		}
		for _, f := range res.Files {
			paths = append(paths, f.Path)
		}
	}
	return paths, nil
}

func printIngested(results []*qa.IngestResult) {
	for _, res := range results {
		note := ""
		if res.Source != vectordb.SourceBuilt {
			note = fmt.Sprintf(" (index reused from %s)", res.Source)
		}
		if res.Failed > 0 {
			note += fmt.Sprintf(" (%d chunks could not be embedded)", res.Failed)
		}
		fmt.Printf("%s  %s  %d chunks, %s profile%s\n",
			res.Document.ID[:12], res.Document.Name, res.Document.Chunks, res.Profile.Name, note)
	}
}
