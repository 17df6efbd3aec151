// Package ingest loads the outlet and product datasets into the serving
// stores.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/storage"
)

// LoadOutlets reads and validates an outlet dataset from a JSON file. Any
// malformed entry fails the whole load; the store is never seeded from a
// half-valid dataset.
func LoadOutlets(path string) ([]storage.Outlet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read outlet dataset %s: %w", path, err)
	}

	var outlets []storage.Outlet
	if err := json.Unmarshal(data, &outlets); err != nil {
		return nil, fmt.Errorf("parse outlet dataset %s: %w", path, err)
	}

	for i, o := range outlets {
		if err := validateOutlet(o); err != nil {
			return nil, fmt.Errorf("outlet dataset %s: item %d: %w", path, i, err)
		}
	}

	return outlets, nil
}

// validateOutlet checks the fields every outlet row must carry, matching
// the NOT NULL columns of the outlets table. Row ids are assigned by the
// store, so the dataset does not carry them.
func validateOutlet(o storage.Outlet) error {
	if o.Name == "" {
		return fmt.Errorf("missing outlet name")
	}
	if o.Address == "" {
		return fmt.Errorf("outlet %q: missing address", o.Name)
	}
	if o.City == "" {
		return fmt.Errorf("outlet %q: missing city", o.Name)
	}
	if o.State == "" {
		return fmt.Errorf("outlet %q: missing state", o.Name)
	}
	if o.Postcode == "" {
		return fmt.Errorf("outlet %q: missing postcode", o.Name)
	}
	return nil
}
