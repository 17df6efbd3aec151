package retrieval

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() []Product {
	return []Product{
		{
			ID:          "zus-001",
			Name:        "ZUS All Day Cup",
			Category:    "Drinkware",
			Subcategory: "Tumbler",
			Description: "Double wall stainless steel tumbler that keeps drinks hot for hours",
			PriceMYR:    79,
			CapacityML:  500,
			Material:    "Stainless Steel",
			Features:    []string{"double-wall insulation", "leak-proof lid"},
			Colors:      []string{"Thunder Blue", "Space Black"},
			InStock:     true,
		},
		{
			ID:          "zus-002",
			Name:        "ZUS Ceramic Mug",
			Category:    "Drinkware",
			Subcategory: "Mug",
			Description: "Glazed ceramic mug for slow mornings at home",
			PriceMYR:    39,
			CapacityML:  350,
			Material:    "Ceramic",
			Features:    []string{"dishwasher safe"},
			Colors:      []string{"Cloud White"},
			InStock:     true,
		},
		{
			ID:          "zus-003",
			Name:        "ZUS Frozee Cold Cup",
			Category:    "Drinkware",
			Subcategory: "Cold Cup",
			Description: "Frosted cold cup with a reusable straw for iced drinks",
			PriceMYR:    55,
			CapacityML:  650,
			Material:    "BPA-free Plastic",
			Features:    []string{"reusable straw"},
			Colors:      []string{"Frost"},
			InStock:     false,
		},
	}
}

func TestIndex_Search_SelfQueryRanksFirst(t *testing.T) {
	catalog := testCatalog()
	idx := NewIndex(catalog)

	for _, p := range catalog {
		results := idx.Search(p.SearchText(), 1)
		require.Len(t, results, 1)
		assert.Equal(t, p.ID, results[0].Product.ID)
		assert.InDelta(t, 1.0, results[0].Score, 1e-9, "product should match its own text perfectly")
	}
}

func TestIndex_Search_RanksByRelevance(t *testing.T) {
	idx := NewIndex(testCatalog())

	results := idx.Search("stainless steel tumbler", 3)
	require.Len(t, results, 3)

	assert.Equal(t, "zus-001", results[0].Product.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
	}
}

func TestIndex_Search_KBounds(t *testing.T) {
	idx := NewIndex(testCatalog())

	assert.Len(t, idx.Search("cup", 2), 2)
	assert.Len(t, idx.Search("cup", 10), 3, "k beyond catalog size returns the whole catalog")
	assert.Empty(t, idx.Search("cup", 0))
	assert.Empty(t, idx.Search("cup", -1))
}

func TestIndex_Search_EmptyCatalog(t *testing.T) {
	idx := NewIndex(nil)

	results := idx.Search("tumbler", 3)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestIndex_Search_NoOverlapKeepsCatalogOrder(t *testing.T) {
	idx := NewIndex(testCatalog())

	results := idx.Search("xylophone zymurgy", 3)
	require.Len(t, results, 3)

	// All scores are zero, so the stable sort preserves catalog order.
	assert.Equal(t, "zus-001", results[0].Product.ID)
	assert.Equal(t, "zus-002", results[1].Product.ID)
	assert.Equal(t, "zus-003", results[2].Product.ID)
	for _, r := range results {
		assert.Zero(t, r.Score)
	}
}

func TestIndex_Search_DeterministicAcrossRebuilds(t *testing.T) {
	catalog := testCatalog()
	idx := NewIndex(catalog)

	first := idx.Search("ceramic mug", 3)
	idx.Rebuild(catalog)
	second := idx.Search("ceramic mug", 3)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Product.ID, second[i].Product.ID)
		assert.InDelta(t, first[i].Score, second[i].Score, 1e-12)
	}
}

func TestIndex_Rebuild_SwapsWholeCatalog(t *testing.T) {
	catalog := testCatalog()
	idx := NewIndex(catalog)
	require.Equal(t, 3, idx.Size())

	idx.Rebuild(catalog[:1])

	assert.Equal(t, 1, idx.Size())
	results := idx.Search("ceramic mug", 3)
	require.Len(t, results, 1)
	assert.Equal(t, "zus-001", results[0].Product.ID)
}

func TestIndex_Rebuild_ConcurrentReaders(t *testing.T) {
	full := testCatalog()
	idx := NewIndex(full)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				results := idx.Search("stainless steel tumbler", 2)
				// Both snapshots hold at least two products, so a reader
				// must never see a partial index.
				assert.Len(t, results, 2)
				for _, r := range results {
					assert.GreaterOrEqual(t, r.Score, 0.0)
					assert.LessOrEqual(t, r.Score, 1.0)
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		if i%2 == 0 {
			idx.Rebuild(full[:2])
		} else {
			idx.Rebuild(full)
		}
	}
	wg.Wait()
}

func TestIndex_GetProduct(t *testing.T) {
	idx := NewIndex(testCatalog())

	p, ok := idx.GetProduct("zus-002")
	require.True(t, ok)
	assert.Equal(t, "ZUS Ceramic Mug", p.Name)

	_, ok = idx.GetProduct("zus-999")
	assert.False(t, ok)
}

func TestRoundScore(t *testing.T) {
	assert.Equal(t, 0.123, RoundScore(0.1234))
	assert.Equal(t, 0.877, RoundScore(0.8765))
	assert.Equal(t, 1.0, RoundScore(1.0))
	assert.Equal(t, 0.0, RoundScore(0.0))
}
