// Package main provides the ConvoSage CLI entrypoint.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/cache"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/chat"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/config"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/ingest"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/monitoring"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/observability"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/retrieval"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/storage"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/text2sql"
)

var (
	// Global flags
	cfgFile    string
	outputJSON bool
	verbose    bool
	noColor    bool

	// Configuration and logger
	cfg    *config.Config
	logger *observability.Logger
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "convosage-cli",
	Short: "ConvoSage CLI for chatting, seeding, and querying the assistant",
	Long: `ConvoSage CLI drives the conversational outlet and product assistant.

Use this tool to:
- Chat with the assistant interactively
- Ask one-shot questions through the tool dispatcher
- Seed outlet and product datasets into the store
- Translate outlet questions into SQL and run them
- Search the product catalog by similarity

All commands support --json for automation.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logFormat := "console"
		if outputJSON {
			logFormat = "json"
		}

		logLevel := cfg.Observability.LogLevel
		if verbose {
			logLevel = "debug"
		}

		logger = observability.NewLogger(observability.LogConfig{
			Level:       logLevel,
			Format:      logFormat,
			ServiceName: "convosage-cli",
		})

		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: uses env vars)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	// Add subcommands
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newAskCmd())
	rootCmd.AddCommand(newSeedCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newOutletsCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newVersionCmd creates the version subcommand.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.Encode(map[string]string{
					"version": "0.1.0",
					"go":      "1.25",
				})
				return
			}
			fmt.Println("convosage-cli v0.1.0")
		},
	}
}

// openDatabase opens the configured database and applies pending migrations.
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := storage.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := storage.NewMigrationManager(db, cfg.Database.Driver).Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

// newCacheClient builds the configured cache backend. Redis failures are
// fatal, a misconfigured cache should not silently degrade to per-process
// memory.
func newCacheClient(cfg *config.Config) (cache.Client, error) {
	if cfg.Cache.Driver == "redis" {
		return cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
		})
	}
	return cache.NewMemoryClient(cfg.Cache.MaxEntries), nil
}

// assistant bundles the locally built services the query commands run
// against.
type assistant struct {
	db         *sql.DB
	cache      cache.Client
	repo       *storage.OutletRepository
	index      *retrieval.Index
	outlets    *text2sql.Service
	sessions   *chat.Store
	usage      *monitoring.Usage
	dispatcher *chat.Dispatcher
	seeded     *ingest.SeedResult
}

// buildAssistant wires the full in-process stack: database, cache, seeded
// datasets, translator, product index, and dispatcher. onProgress receives
// per-stage seeding progress when non-nil.
func buildAssistant(ctx context.Context, cfg *config.Config, onProgress ingest.ProgressFunc) (*assistant, error) {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	cacheClient, err := newCacheClient(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect cache: %w", err)
	}

	repo := storage.NewOutletRepository(db, cfg.Database.Driver)
	index := retrieval.NewIndex(nil)
	queryCache := text2sql.NewQueryCache(cacheClient, logger, text2sql.DefaultQueryCacheConfig())

	pipeline := ingest.NewPipeline(repo, index, queryCache, logger)
	seeded, err := pipeline.Seed(ctx, ingest.SeedRequest{
		OutletsPath:  cfg.Datasets.OutletsPath,
		ProductsPath: cfg.Datasets.ProductsPath,
		OnProgress:   onProgress,
	})
	if err != nil {
		cacheClient.Close()
		db.Close()
		return nil, fmt.Errorf("seed datasets: %w", err)
	}

	sessions := chat.NewStore(cfg.Chat.HistoryLimit, cfg.Chat.SessionIdleTTL, logger)
	usage := monitoring.NewUsage()
	outletService := text2sql.NewService(repo, queryCache, logger)
	dispatcher := chat.NewDispatcher(sessions, outletService, index, usage, cfg.Chat.DefaultTopK, logger)

	return &assistant{
		db:         db,
		cache:      cacheClient,
		repo:       repo,
		index:      index,
		outlets:    outletService,
		sessions:   sessions,
		usage:      usage,
		dispatcher: dispatcher,
		seeded:     seeded,
	}, nil
}

func (a *assistant) Close() {
	a.cache.Close()
	a.db.Close()
}
