package monitoring

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/observability"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/retrieval"
)

// CatalogWatcher re-hashes the product dataset on an interval and rebuilds
// the search index when the file changes. The rebuild is a whole-index swap,
// so readers keep a consistent snapshot throughout.
type CatalogWatcher struct {
	path     string
	interval time.Duration
	index    *retrieval.Index
	logger   *observability.Logger

	// lastHash is only touched by the watch loop (and Prime before it
	// starts), so it needs no locking.
	lastHash string
}

// NewCatalogWatcher creates a watcher for the dataset at path.
func NewCatalogWatcher(path string, interval time.Duration, index *retrieval.Index, logger *observability.Logger) *CatalogWatcher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &CatalogWatcher{
		path:     path,
		interval: interval,
		index:    index,
		logger:   logger,
	}
}

// Prime records the digest of the currently loaded dataset so the first tick
// does not trigger a spurious rebuild.
func (w *CatalogWatcher) Prime() error {
	digest, err := hashFile(w.path)
	if err != nil {
		return fmt.Errorf("hash product catalog: %w", err)
	}
	w.lastHash = digest
	return nil
}

// Start runs the watch loop until ctx is canceled. Callers run it in its own
// goroutine.
func (w *CatalogWatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Stopping catalog watcher")
			return
		case <-ticker.C:
			if err := w.checkOnce(); err != nil {
				w.logger.Warn().Err(err).Str("path", w.path).Msg("Catalog check failed")
			}
		}
	}
}

// checkOnce compares the dataset digest with the last seen one. A changed
// but unloadable file leaves the current index serving and retries on the
// next tick.
func (w *CatalogWatcher) checkOnce() error {
	digest, err := hashFile(w.path)
	if err != nil {
		return fmt.Errorf("hash product catalog: %w", err)
	}
	if digest == w.lastHash {
		return nil
	}

	products, err := retrieval.LoadCatalog(w.path)
	if err != nil {
		return fmt.Errorf("reload product catalog: %w", err)
	}

	w.index.Rebuild(products)
	w.lastHash = digest

	w.logger.Info().
		Str("digest", digest[:12]).
		Int("products", len(products)).
		Int("vocabulary", w.index.VocabularySize()).
		Msg("Product catalog changed, index rebuilt")

	return nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
