package retrieval

import (
	"math"
	"sort"
	"sync/atomic"
)

// Result pairs a catalog product with its similarity score.
type Result struct {
	Product Product
	Score   float64
}

// Index answers nearest-neighbor queries over the product catalog. Reads go
// through an immutable snapshot behind an atomic pointer; Rebuild swaps the
// whole snapshot in one step, so concurrent readers never observe a
// half-built vocabulary or a vector-count mismatch.
type Index struct {
	snapshot atomic.Pointer[indexSnapshot]
}

// indexSnapshot is the unit of atomic replacement: products, embedder and
// vectors always belong to the same build.
type indexSnapshot struct {
	products []Product
	embedder *Embedder
	vectors  [][]float64
}

// NewIndex builds an index over the given catalog.
func NewIndex(products []Product) *Index {
	idx := &Index{}
	idx.Rebuild(products)
	return idx
}

// Rebuild recomputes vocabulary, IDF weights and document vectors from the
// catalog and swaps them in atomically. In-flight searches keep the snapshot
// they started with.
func (idx *Index) Rebuild(products []Product) {
	corpus := make([]string, len(products))
	for i, p := range products {
		corpus[i] = p.SearchText()
	}

	embedder := NewEmbedder(corpus)
	vectors := make([][]float64, len(products))
	for i, doc := range corpus {
		vectors[i] = embedder.Vectorize(doc)
	}

	idx.snapshot.Store(&indexSnapshot{
		products: products,
		embedder: embedder,
		vectors:  vectors,
	})
}

// Search returns at most k products in non-increasing similarity order. Ties
// keep catalog order. An empty catalog yields an empty slice, which callers
// must distinguish from k all-zero scores on a query with no vocabulary
// overlap.
func (idx *Index) Search(query string, k int) []Result {
	snap := idx.snapshot.Load()
	if snap == nil || len(snap.products) == 0 || k <= 0 {
		return []Result{}
	}

	queryVec := snap.embedder.Vectorize(query)

	results := make([]Result, len(snap.products))
	for i, p := range snap.products {
		results[i] = Result{
			Product: p,
			Score:   cosineSimilarity(queryVec, snap.vectors[i]),
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k]
}

// Size reports the number of indexed products.
func (idx *Index) Size() int {
	snap := idx.snapshot.Load()
	if snap == nil {
		return 0
	}
	return len(snap.products)
}

// VocabularySize reports the dimensionality of the current snapshot.
func (idx *Index) VocabularySize() int {
	snap := idx.snapshot.Load()
	if snap == nil {
		return 0
	}
	return snap.embedder.VocabularySize()
}

// Products returns the catalog behind the current snapshot.
func (idx *Index) Products() []Product {
	snap := idx.snapshot.Load()
	if snap == nil {
		return nil
	}
	return snap.products
}

// GetProduct looks up a catalog item by id.
func (idx *Index) GetProduct(id string) (Product, bool) {
	snap := idx.snapshot.Load()
	if snap == nil {
		return Product{}, false
	}
	for _, p := range snap.products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// RoundScore rounds a similarity score to the three decimals reported on the
// public surfaces.
func RoundScore(s float64) float64 {
	return math.Round(s*1000) / 1000
}
