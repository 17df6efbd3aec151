// Package retrieval provides TF-IDF similarity search over the product catalog.
package retrieval

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Product is one catalog item. The catalog is loaded once at startup and
// treated as immutable afterwards.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Subcategory string   `json:"subcategory"`
	Description string   `json:"description"`
	PriceMYR    float64  `json:"price_myr"`
	CapacityML  int      `json:"capacity_ml"`
	Material    string   `json:"material"`
	Features    []string `json:"features"`
	Colors      []string `json:"colors"`
	InStock     bool     `json:"in_stock"`
}

// SearchText combines the fields that participate in similarity matching.
func (p Product) SearchText() string {
	parts := []string{
		p.Name,
		p.Description,
		p.Category,
		p.Subcategory,
		p.Material,
		strings.Join(p.Features, " "),
		strings.Join(p.Colors, " "),
	}
	return strings.Join(parts, " ")
}

// LoadCatalog reads and validates a product catalog from a JSON file. Any
// malformed item fails the whole load; the index must never serve a
// half-loaded catalog.
func LoadCatalog(path string) ([]Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read product catalog %s: %w", path, err)
	}

	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("parse product catalog %s: %w", path, err)
	}

	for i, p := range products {
		if err := validateProduct(p); err != nil {
			return nil, fmt.Errorf("product catalog %s: item %d: %w", path, i, err)
		}
	}

	return products, nil
}

// validateProduct checks the fields every catalog item must carry.
func validateProduct(p Product) error {
	if p.ID == "" {
		return fmt.Errorf("missing id")
	}
	if p.Name == "" {
		return fmt.Errorf("product %s: missing name", p.ID)
	}
	if p.Category == "" {
		return fmt.Errorf("product %s: missing category", p.ID)
	}
	if p.PriceMYR <= 0 {
		return fmt.Errorf("product %s: price must be positive, got %v", p.ID, p.PriceMYR)
	}
	if p.CapacityML <= 0 {
		return fmt.Errorf("product %s: capacity must be positive, got %d", p.ID, p.CapacityML)
	}
	return nil
}
