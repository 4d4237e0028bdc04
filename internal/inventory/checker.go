// Package inventory reconciles available stock against the quantities a
// seeded batch requires.
package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/logging"
	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/models"
)

// StockStore is the slice of the fulfillment store the checker needs.
type StockStore interface {
	GetStockLevels(ctx context.Context, region models.Region, variantIDs []string) ([]models.StockLevel, error)
	AddStock(ctx context.Context, region models.Region, variantID string, quantity int) error
}

// Requirement is the quantity of one variant a batch needs available.
type Requirement struct {
	VariantID string
	Quantity  int
}

// Shortage reports a variant whose available stock is below requirement.
type Shortage struct {
	VariantID string `json:"variant_id"`
	Required  int    `json:"required"`
	Available int    `json:"available"`
	Missing   int    `json:"missing"`
}

// Checker computes shortages and optionally tops up stock.
type Checker struct {
	store StockStore
	env   models.Environment
}

// NewChecker builds a checker for the given environment.
func NewChecker(s StockStore, env models.Environment) *Checker {
	return &Checker{store: s, env: env}
}

// ComputeShortages compares required quantities to available ones.
// Variants absent from available count as zero stock. The result is
// sorted by variant id for stable output.
func ComputeShortages(required []Requirement, available []models.StockLevel) []Shortage {
	levels := make(map[string]int, len(available))
	for _, sl := range available {
		levels[sl.VariantID] = sl.Quantity
	}

	var shortages []Shortage
	for _, req := range required {
		have := levels[req.VariantID]
		if have < req.Quantity {
			shortages = append(shortages, Shortage{
				VariantID: req.VariantID,
				Required:  req.Quantity,
				Available: have,
				Missing:   req.Quantity - have,
			})
		}
	}
	sort.Slice(shortages, func(i, j int) bool { return shortages[i].VariantID < shortages[j].VariantID })
	return shortages
}

// Reconcile queries current stock levels, reports shortages, and when
// topUp is set closes each shortage by adding the missing quantity.
// Top-up is refused outside non-production environments.
func (c *Checker) Reconcile(ctx context.Context, region models.Region, required []Requirement, topUp bool) ([]Shortage, error) {
	variantIDs := make([]string, 0, len(required))
	for _, req := range required {
		if req.Quantity < 0 {
			return nil, fmt.Errorf("required quantity for %s is negative", req.VariantID)
		}
		variantIDs = append(variantIDs, req.VariantID)
	}

	available, err := c.store.GetStockLevels(ctx, region, variantIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock levels: %w", err)
	}

	shortages := ComputeShortages(required, available)
	if len(shortages) == 0 || !topUp {
		return shortages, nil
	}

	if c.env.IsProduction() {
		return shortages, &models.EnvironmentGuardError{Environment: c.env.Name}
	}

	for _, s := range shortages {
		if err := c.store.AddStock(ctx, region, s.VariantID, s.Missing); err != nil {
			return shortages, fmt.Errorf("failed to top up %s: %w", s.VariantID, err)
		}
		logging.LogKV("info", "topped up stock", map[string]interface{}{
			"variant_id": s.VariantID,
			"added":      s.Missing,
			"region":     region,
		})
	}
	return shortages, nil
}
