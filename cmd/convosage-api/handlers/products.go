package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/observability"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/retrieval"
)

// ProductsHandler handles product search and catalog endpoints.
type ProductsHandler struct {
	logger      *observability.Logger
	index       *retrieval.Index
	defaultTopK int
	maxTopK     int
}

// NewProductsHandler creates a new products handler.
func NewProductsHandler(index *retrieval.Index, defaultTopK, maxTopK int, logger *observability.Logger) *ProductsHandler {
	if defaultTopK < 1 {
		defaultTopK = 3
	}
	if maxTopK < 1 {
		maxTopK = 10
	}
	return &ProductsHandler{
		logger:      logger,
		index:       index,
		defaultTopK: defaultTopK,
		maxTopK:     maxTopK,
	}
}

// productSearchRequest is the POST /products/search payload.
type productSearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// scoredProduct is a catalog item with its similarity score. Catalog
// endpoints carry a null score since no query was involved.
type scoredProduct struct {
	retrieval.Product
	SimilarityScore *float64 `json:"similarity_score"`
}

// productSearchResponse is the POST /products/search response.
type productSearchResponse struct {
	Query   string          `json:"query"`
	Results []scoredProduct `json:"results"`
	Total   int             `json:"total"`
}

// Search handles POST /products/search.
func (h *ProductsHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req productSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}

	topK := req.TopK
	if topK == 0 {
		topK = h.defaultTopK
	}
	if topK < 1 || topK > h.maxTopK {
		writeError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("top_k must be between 1 and %d", h.maxTopK))
		return
	}

	results := h.index.Search(req.Query, topK)
	scored := make([]scoredProduct, 0, len(results))
	for _, res := range results {
		score := retrieval.RoundScore(res.Score)
		scored = append(scored, scoredProduct{Product: res.Product, SimilarityScore: &score})
	}

	writeJSON(w, http.StatusOK, productSearchResponse{
		Query:   req.Query,
		Results: scored,
		Total:   len(scored),
	})
}

// List handles GET /products.
func (h *ProductsHandler) List(w http.ResponseWriter, r *http.Request) {
	products := h.index.Products()
	out := make([]scoredProduct, 0, len(products))
	for _, p := range products {
		out = append(out, scoredProduct{Product: p})
	}
	writeJSON(w, http.StatusOK, out)
}

// GetByID handles GET /products/{productID}.
func (h *ProductsHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")

	product, ok := h.index.GetProduct(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("product %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, scoredProduct{Product: product})
}
