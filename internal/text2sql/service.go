package text2sql

import (
	"context"
	"fmt"
	"time"

	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/observability"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/storage"
)

// OutletExecutor runs generated queries against the outlet store.
type OutletExecutor interface {
	ExecuteSearch(ctx context.Context, query string, binds []interface{}) ([]storage.Outlet, error)
	ExecuteCount(ctx context.Context, query string, binds []interface{}) (int, error)
}

// Service answers outlet questions end to end: translate the utterance,
// execute the generated query, and cache the outcome.
type Service struct {
	translator *Translator
	outlets    OutletExecutor
	cache      *QueryCache
	logger     *observability.Logger
}

// NewService creates an outlet query service. The cache may be nil, in which
// case every question is translated and executed fresh.
func NewService(outlets OutletExecutor, queryCache *QueryCache, logger *observability.Logger) *Service {
	return &Service{
		translator: NewTranslator(),
		outlets:    outlets,
		cache:      queryCache,
		logger:     logger,
	}
}

// Translate exposes the translation step alone, without execution.
func (s *Service) Translate(utterance string) Translation {
	return s.translator.Translate(utterance)
}

// Query translates and executes an outlet question.
func (s *Service) Query(ctx context.Context, utterance string) (*QueryResult, error) {
	start := time.Now()

	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, utterance); ok {
			cached.Cached = true
			cached.LatencyMs = time.Since(start).Milliseconds()
			return cached, nil
		}
	}

	translation := s.translator.Translate(utterance)

	s.logger.Debug().
		Str("utterance", utterance).
		Str("query_type", string(translation.QueryType)).
		Bool("valid", translation.Valid).
		Msg("Translated outlet question")

	result := &QueryResult{Translation: translation}

	if translation.QueryType == QueryTypeCount {
		count, err := s.outlets.ExecuteCount(ctx, translation.SQL, translation.Binds)
		if err != nil {
			return nil, fmt.Errorf("outlet count query: %w", err)
		}
		result.Count = count
	} else {
		outlets, err := s.outlets.ExecuteSearch(ctx, translation.SQL, translation.Binds)
		if err != nil {
			return nil, fmt.Errorf("outlet search query: %w", err)
		}
		result.Outlets = outlets
		result.Count = len(outlets)
	}

	result.LatencyMs = time.Since(start).Milliseconds()

	if s.cache != nil {
		_ = s.cache.Set(ctx, utterance, result)
	}

	s.logger.Info().
		Str("query_type", string(translation.QueryType)).
		Bool("valid", translation.Valid).
		Int("results", result.Count).
		Int64("latency_ms", result.LatencyMs).
		Msg("Outlet query complete")

	return result, nil
}

// InvalidateCache drops cached results. Called after outlets are reseeded.
func (s *Service) InvalidateCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx)
}
