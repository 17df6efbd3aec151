package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/observability"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/retrieval"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/storage"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/text2sql"
)

// Stage names reported through SeedRequest.OnProgress.
const (
	StageLoadOutlets   = "load_outlets"
	StageSeedOutlets   = "seed_outlets"
	StageLoadProducts  = "load_products"
	StageIndexProducts = "index_products"
)

// ProgressFunc receives per-stage progress while a seed job runs.
type ProgressFunc func(stage string, completed, total int)

// Pipeline seeds the outlet store and rebuilds the product index from the
// JSON datasets.
type Pipeline struct {
	logger     *observability.Logger
	outlets    *storage.OutletRepository
	index      *retrieval.Index
	queryCache *text2sql.QueryCache
}

// NewPipeline creates a seeding pipeline. index and queryCache may be nil
// when the caller only wants the outlet store populated.
func NewPipeline(outlets *storage.OutletRepository, index *retrieval.Index, queryCache *text2sql.QueryCache, logger *observability.Logger) *Pipeline {
	return &Pipeline{
		logger:     logger,
		outlets:    outlets,
		index:      index,
		queryCache: queryCache,
	}
}

// SeedRequest names the datasets to load. An empty path skips that
// dataset's stages.
type SeedRequest struct {
	OutletsPath  string
	ProductsPath string
	OnProgress   ProgressFunc
}

// SeedResult reports what one seed job did.
type SeedResult struct {
	JobID           uuid.UUID     `json:"job_id"`
	OutletsLoaded   int           `json:"outlets_loaded"`
	OutletsSeeded   int           `json:"outlets_seeded"`
	ProductsLoaded  int           `json:"products_loaded"`
	ProductsIndexed int           `json:"products_indexed"`
	VocabularySize  int           `json:"vocabulary_size"`
	Errors          []string      `json:"errors,omitempty"`
	StartedAt       time.Time     `json:"started_at"`
	CompletedAt     time.Time     `json:"completed_at"`
	Duration        time.Duration `json:"duration"`
}

// Seed loads the requested datasets. A dataset that fails to load or
// validate aborts the job; individual outlet rows that fail to persist are
// recorded in Errors and skipped.
func (p *Pipeline) Seed(ctx context.Context, req SeedRequest) (*SeedResult, error) {
	if req.OutletsPath == "" && req.ProductsPath == "" {
		return nil, fmt.Errorf("no dataset paths provided")
	}

	result := &SeedResult{
		JobID:     uuid.New(),
		StartedAt: time.Now(),
	}

	p.logger.Info().
		Str("job_id", result.JobID.String()).
		Str("outlets_path", req.OutletsPath).
		Str("products_path", req.ProductsPath).
		Msg("Starting dataset seed job")

	if req.OutletsPath != "" {
		if err := p.seedOutlets(ctx, req, result); err != nil {
			return result, err
		}
	}

	if req.ProductsPath != "" {
		if err := p.indexProducts(req, result); err != nil {
			return result, err
		}
	}

	// Cached outlet answers describe the previous dataset.
	if p.queryCache != nil && result.OutletsSeeded > 0 {
		if err := p.queryCache.Invalidate(ctx); err != nil {
			p.logger.Warn().Err(err).Msg("Failed to invalidate outlet query cache")
			result.Errors = append(result.Errors, fmt.Sprintf("invalidate query cache: %v", err))
		}
	}

	result.CompletedAt = time.Now()
	result.Duration = result.CompletedAt.Sub(result.StartedAt)

	p.logger.Info().
		Str("job_id", result.JobID.String()).
		Int("outlets_seeded", result.OutletsSeeded).
		Int("products_indexed", result.ProductsIndexed).
		Int("vocabulary_size", result.VocabularySize).
		Int("errors", len(result.Errors)).
		Dur("duration", result.Duration).
		Msg("Dataset seed job completed")

	return result, nil
}

// seedOutlets loads the outlet dataset and upserts every row.
func (p *Pipeline) seedOutlets(ctx context.Context, req SeedRequest, result *SeedResult) error {
	report(req, StageLoadOutlets, 0, 1)
	outlets, err := LoadOutlets(req.OutletsPath)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("load outlets: %v", err))
		return err
	}
	result.OutletsLoaded = len(outlets)
	report(req, StageLoadOutlets, 1, 1)

	report(req, StageSeedOutlets, 0, len(outlets))
	for i := range outlets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.outlets.Upsert(ctx, &outlets[i]); err != nil {
			p.logger.Warn().
				Err(err).
				Str("outlet_name", outlets[i].Name).
				Msg("Failed to persist outlet")
			result.Errors = append(result.Errors, fmt.Sprintf("outlet %q: %v", outlets[i].Name, err))
			continue
		}
		result.OutletsSeeded++
		report(req, StageSeedOutlets, i+1, len(outlets))
	}

	p.logger.Debug().
		Int("loaded", result.OutletsLoaded).
		Int("seeded", result.OutletsSeeded).
		Msg("Seeded outlet store")

	return nil
}

// indexProducts loads the product catalog and swaps it into the index.
func (p *Pipeline) indexProducts(req SeedRequest, result *SeedResult) error {
	report(req, StageLoadProducts, 0, 1)
	products, err := retrieval.LoadCatalog(req.ProductsPath)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("load products: %v", err))
		return err
	}
	result.ProductsLoaded = len(products)
	report(req, StageLoadProducts, 1, 1)

	report(req, StageIndexProducts, 0, 1)
	if p.index != nil {
		p.index.Rebuild(products)
		result.ProductsIndexed = p.index.Size()
		result.VocabularySize = p.index.VocabularySize()
	}
	report(req, StageIndexProducts, 1, 1)

	p.logger.Debug().
		Int("loaded", result.ProductsLoaded).
		Int("indexed", result.ProductsIndexed).
		Int("vocabulary", result.VocabularySize).
		Msg("Rebuilt product index")

	return nil
}

func report(req SeedRequest, stage string, completed, total int) {
	if req.OnProgress != nil {
		req.OnProgress(stage, completed, total)
	}
}
