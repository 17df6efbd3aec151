package client

import (
	"context"
	"net/http"
	"net/url"
)

// Product is one catalog item. SimilarityScore is set on search results and
// null on catalog listings, where no query was involved.
type Product struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Category        string   `json:"category"`
	Subcategory     string   `json:"subcategory"`
	Description     string   `json:"description"`
	PriceMYR        float64  `json:"price_myr"`
	CapacityML      int      `json:"capacity_ml"`
	Material        string   `json:"material"`
	Features        []string `json:"features"`
	Colors          []string `json:"colors"`
	InStock         bool     `json:"in_stock"`
	SimilarityScore *float64 `json:"similarity_score"`
}

// ProductSearchResult is a ranked product search.
type ProductSearchResult struct {
	Query   string    `json:"query"`
	Results []Product `json:"results"`
	Total   int       `json:"total"`
}

type productSearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// SearchProducts ranks catalog products against the query. topK <= 0 uses
// the server default.
func (c *Client) SearchProducts(ctx context.Context, query string, topK int) (*ProductSearchResult, error) {
	req := productSearchRequest{Query: query}
	if topK > 0 {
		req.TopK = topK
	}

	var result ProductSearchResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/products/search", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListProducts returns the full catalog.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.do(ctx, http.MethodGet, "/api/v1/products", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct returns one catalog product by ID.
func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	var product Product
	if err := c.do(ctx, http.MethodGet, "/api/v1/products/"+url.PathEscape(id), nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}
