package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/models"
	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/store"
)

// GetLocation returns the location by id, or store.ErrNotFound.
func (db *Database) GetLocation(ctx context.Context, id string) (*models.Location, error) {
	var loc models.Location
	err := db.Pool.QueryRow(ctx, `
		SELECT id, name, region FROM locations WHERE id = $1
	`, id).Scan(&loc.ID, &loc.Name, &loc.Region)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("location %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load location %s: %w", id, err)
	}
	return &loc, nil
}

// ListCollectionPrepIDs returns the ids of collection preps matching the
// given region, location, carrier, and calendar day.
func (db *Database) ListCollectionPrepIDs(ctx context.Context, region models.Region, locationID, carrier string, day time.Time) ([]string, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id FROM collection_preps
		WHERE region = $1 AND location_id = $2 AND carrier = $3 AND day = $4
	`, region, locationID, carrier, day)
	if err != nil {
		return nil, fmt.Errorf("failed to list collection prep ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan collection prep id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetStockLevels returns stock levels for the given variants in a region.
func (db *Database) GetStockLevels(ctx context.Context, region models.Region, variantIDs []string) ([]models.StockLevel, error) {
	if len(variantIDs) == 0 {
		return nil, nil
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT variant_id, region, quantity
		FROM stock_levels WHERE region = $1 AND variant_id = ANY($2)
	`, region, variantIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock levels: %w", err)
	}
	defer rows.Close()

	var levels []models.StockLevel
	for rows.Next() {
		var sl models.StockLevel
		if err := rows.Scan(&sl.VariantID, &sl.Region, &sl.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan stock level: %w", err)
		}
		levels = append(levels, sl)
	}
	return levels, rows.Err()
}

// AddStock increases the stock level of a variant, creating the row if it
// does not exist.
func (db *Database) AddStock(ctx context.Context, region models.Region, variantID string, quantity int) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO stock_levels (variant_id, region, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (variant_id, region)
		DO UPDATE SET quantity = stock_levels.quantity + EXCLUDED.quantity
	`, variantID, region, quantity)
	if err != nil {
		return fmt.Errorf("failed to add stock for %s: %w", variantID, err)
	}
	return nil
}
