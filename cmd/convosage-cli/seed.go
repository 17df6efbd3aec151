package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/ingest"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/retrieval"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/storage"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/text2sql"
)

// newSeedCmd creates the seed subcommand.
func newSeedCmd() *cobra.Command {
	var (
		outletsPath  string
		productsPath string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the outlet and product datasets into the store",
		Long: `Seed loads the outlet dataset into the configured database, rebuilds the
product index, and invalidates any cached query results. Paths default to
the configured datasets.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			if outletsPath == "" {
				outletsPath = cfg.Datasets.OutletsPath
			}
			if productsPath == "" {
				productsPath = cfg.Datasets.ProductsPath
			}

			logger.Info().
				Str("outlets", outletsPath).
				Str("products", productsPath).
				Msg("Starting seed")

			db, err := openDatabase(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			cacheClient, err := newCacheClient(cfg)
			if err != nil {
				return fmt.Errorf("connect cache: %w", err)
			}
			defer cacheClient.Close()

			repo := storage.NewOutletRepository(db, cfg.Database.Driver)
			index := retrieval.NewIndex(nil)
			queryCache := text2sql.NewQueryCache(cacheClient, logger, text2sql.DefaultQueryCacheConfig())

			pipeline := ingest.NewPipeline(repo, index, queryCache, logger)

			bars := newStageBars(outputJSON)
			result, err := pipeline.Seed(ctx, ingest.SeedRequest{
				OutletsPath:  outletsPath,
				ProductsPath: productsPath,
				OnProgress:   bars.Report,
			})
			bars.Finish()
			if err != nil {
				return fmt.Errorf("seed failed: %w", err)
			}

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]interface{}{
					"jobId":           result.JobID.String(),
					"outletsLoaded":   result.OutletsLoaded,
					"outletsSeeded":   result.OutletsSeeded,
					"productsLoaded":  result.ProductsLoaded,
					"productsIndexed": result.ProductsIndexed,
					"vocabularySize":  result.VocabularySize,
					"errors":          result.Errors,
					"duration":        result.Duration.String(),
				})
			}

			fmt.Printf("✓ Seed completed successfully\n")
			fmt.Printf("  Job ID: %s\n", result.JobID)
			fmt.Printf("  Outlets: %d/%d | Products: %d | Vocabulary: %d\n",
				result.OutletsSeeded, result.OutletsLoaded, result.ProductsIndexed, result.VocabularySize)
			if len(result.Errors) > 0 {
				fmt.Printf("  Skipped rows: %d\n", len(result.Errors))
			}
			fmt.Printf("  Duration: %s\n", result.Duration)

			return nil
		},
	}

	cmd.Flags().StringVar(&outletsPath, "outlets", "", "outlet dataset path (default: configured)")
	cmd.Flags().StringVar(&productsPath, "products", "", "product dataset path (default: configured)")

	return cmd
}

// stageBars renders one terminal progress bar per seed stage.
type stageBars struct {
	quiet   bool
	current string
	bar     *progressbar.ProgressBar
}

func newStageBars(quiet bool) *stageBars {
	return &stageBars{quiet: quiet}
}

// Report satisfies ingest.ProgressFunc, rotating to a fresh bar when the
// pipeline moves to the next stage.
func (b *stageBars) Report(stage string, completed, total int) {
	if b.quiet {
		return
	}
	if stage != b.current {
		if b.bar != nil {
			_ = b.bar.Finish()
		}
		b.current = stage
		b.bar = newStageBar(stageLabel(stage), total)
	}
	if b.bar != nil {
		_ = b.bar.Set(completed)
	}
}

func (b *stageBars) Finish() {
	if b.quiet || b.bar == nil {
		return
	}
	_ = b.bar.Finish()
}

func newStageBar(description string, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("rows"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func stageLabel(stage string) string {
	switch stage {
	case ingest.StageLoadOutlets:
		return "Loading outlets"
	case ingest.StageSeedOutlets:
		return "Seeding outlets"
	case ingest.StageLoadProducts:
		return "Loading products"
	case ingest.StageIndexProducts:
		return "Indexing products"
	}
	return stage
}
