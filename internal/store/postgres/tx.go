package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/models"
	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/store"
)

// Bounded waits inside every transaction. Exceeding either surfaces a
// terminal SQLSTATE (55P03 / 57014) that the retry executor will not retry.
const (
	lockTimeout      = "5s"
	statementTimeout = "30s"
)

// WithTransaction runs fn inside one transaction at the given isolation
// level, committing on nil and rolling back on error.
func (db *Database) WithTransaction(ctx context.Context, iso store.IsolationLevel, fn func(tx store.Tx) error) error {
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	if iso == store.IsolationSerializable {
		txOpts.IsoLevel = pgx.Serializable
	}

	tx, err := db.Pool.BeginTx(ctx, txOpts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%s'", lockTimeout)); err != nil {
		return fmt.Errorf("failed to set lock_timeout: %w", err)
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = '%s'", statementTimeout)); err != nil {
		return fmt.Errorf("failed to set statement_timeout: %w", err)
	}

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// pgTx implements store.Tx over a pgx transaction.
type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) FindOrderByExternalID(ctx context.Context, externalID string) (*models.Order, error) {
	query := `
		SELECT id, external_id, status, region, customer_ref, location_id, created_at
		FROM orders
		WHERE external_id = $1
	`
	var o models.Order
	err := t.tx.QueryRow(ctx, query, externalID).Scan(
		&o.ID, &o.ExternalID, &o.Status, &o.Region, &o.CustomerRef, &o.LocationID, &o.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", externalID, err)
	}
	return &o, nil
}

func (t *pgTx) ListPreps(ctx context.Context, orderID string) ([]models.Prep, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, order_id, collection_prep_id, region
		FROM preps WHERE order_id = $1
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list preps: %w", err)
	}
	defer rows.Close()

	var preps []models.Prep
	for rows.Next() {
		var p models.Prep
		if err := rows.Scan(&p.ID, &p.OrderID, &p.CollectionPrepID, &p.Region); err != nil {
			return nil, fmt.Errorf("failed to scan prep: %w", err)
		}
		preps = append(preps, p)
	}
	return preps, rows.Err()
}

func (t *pgTx) ListPrepPartIDs(ctx context.Context, prepIDs []string) ([]string, error) {
	if len(prepIDs) == 0 {
		return nil, nil
	}
	rows, err := t.tx.Query(ctx, `SELECT id FROM prep_parts WHERE prep_id = ANY($1)`, prepIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list prep parts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan prep part id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (t *pgTx) ListPrepPartItems(ctx context.Context, prepPartIDs []string) ([]models.PrepPartItem, error) {
	if len(prepPartIDs) == 0 {
		return nil, nil
	}
	rows, err := t.tx.Query(ctx, `
		SELECT id, prep_part_id, packed_box_id
		FROM prep_part_items WHERE prep_part_id = ANY($1)
	`, prepPartIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list prep part items: %w", err)
	}
	defer rows.Close()

	var items []models.PrepPartItem
	for rows.Next() {
		var it models.PrepPartItem
		if err := rows.Scan(&it.ID, &it.PrepPartID, &it.PackedBoxID); err != nil {
			return nil, fmt.Errorf("failed to scan prep part item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (t *pgTx) ListShipments(ctx context.Context, orderID string) ([]models.Shipment, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, order_id, collection_prep_id, status
		FROM shipments WHERE order_id = $1
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shipments: %w", err)
	}
	defer rows.Close()

	var shipments []models.Shipment
	for rows.Next() {
		var s models.Shipment
		if err := rows.Scan(&s.ID, &s.OrderID, &s.CollectionPrepID, &s.Status); err != nil {
			return nil, fmt.Errorf("failed to scan shipment: %w", err)
		}
		shipments = append(shipments, s)
	}
	return shipments, rows.Err()
}

func (t *pgTx) CountVariantOrders(ctx context.Context, orderID string) (int64, error) {
	var count int64
	err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM variant_orders WHERE order_id = $1`, orderID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count variant orders: %w", err)
	}
	return count, nil
}

func (t *pgTx) DeletePackedBoxes(ctx context.Context, boxIDs []string) (int64, error) {
	if len(boxIDs) == 0 {
		return 0, nil
	}
	ct, err := t.tx.Exec(ctx, `DELETE FROM packed_boxes WHERE id = ANY($1)`, boxIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to delete packed boxes: %w", err)
	}
	return ct.RowsAffected(), nil
}

func (t *pgTx) DeletePrepPartItems(ctx context.Context, prepPartIDs []string) (int64, error) {
	if len(prepPartIDs) == 0 {
		return 0, nil
	}
	ct, err := t.tx.Exec(ctx, `DELETE FROM prep_part_items WHERE prep_part_id = ANY($1)`, prepPartIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to delete prep part items: %w", err)
	}
	return ct.RowsAffected(), nil
}

func (t *pgTx) DeletePrepParts(ctx context.Context, prepIDs []string) (int64, error) {
	if len(prepIDs) == 0 {
		return 0, nil
	}
	ct, err := t.tx.Exec(ctx, `DELETE FROM prep_parts WHERE prep_id = ANY($1)`, prepIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to delete prep parts: %w", err)
	}
	return ct.RowsAffected(), nil
}

func (t *pgTx) DeletePreps(ctx context.Context, orderID string) (int64, error) {
	ct, err := t.tx.Exec(ctx, `DELETE FROM preps WHERE order_id = $1`, orderID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete preps: %w", err)
	}
	return ct.RowsAffected(), nil
}

func (t *pgTx) DeleteShipments(ctx context.Context, orderID string) (int64, error) {
	ct, err := t.tx.Exec(ctx, `DELETE FROM shipments WHERE order_id = $1`, orderID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete shipments: %w", err)
	}
	return ct.RowsAffected(), nil
}

func (t *pgTx) DeleteVariantOrders(ctx context.Context, orderID string) (int64, error) {
	ct, err := t.tx.Exec(ctx, `DELETE FROM variant_orders WHERE order_id = $1`, orderID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete variant orders: %w", err)
	}
	return ct.RowsAffected(), nil
}

func (t *pgTx) DeleteOrder(ctx context.Context, orderID string) (int64, error) {
	ct, err := t.tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, orderID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete order: %w", err)
	}
	return ct.RowsAffected(), nil
}

func (t *pgTx) CountCollectionPrepRefs(ctx context.Context, collectionPrepID string, region models.Region) (int64, error) {
	var count int64
	err := t.tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM preps WHERE collection_prep_id = $1 AND region = $2
	`, collectionPrepID, region).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count collection prep references: %w", err)
	}
	return count, nil
}

func (t *pgTx) DeleteCollectionPrep(ctx context.Context, id string, region models.Region) (int64, error) {
	ct, err := t.tx.Exec(ctx, `DELETE FROM collection_preps WHERE id = $1 AND region = $2`, id, region)
	if err != nil {
		return 0, fmt.Errorf("failed to delete collection prep: %w", err)
	}
	return ct.RowsAffected(), nil
}

func (t *pgTx) InsertOrder(ctx context.Context, o models.Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders (id, external_id, status, region, customer_ref, location_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, o.ID, o.ExternalID, o.Status, o.Region, o.CustomerRef, o.LocationID, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (t *pgTx) InsertVariantOrder(ctx context.Context, vo models.VariantOrder) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO variant_orders (id, order_id, variant_id, quantity, region)
		VALUES ($1, $2, $3, $4, $5)
	`, vo.ID, vo.OrderID, vo.VariantID, vo.Quantity, vo.Region)
	if err != nil {
		return fmt.Errorf("failed to insert variant order: %w", err)
	}
	return nil
}

func (t *pgTx) InsertPrep(ctx context.Context, p models.Prep) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO preps (id, order_id, collection_prep_id, region)
		VALUES ($1, $2, $3, $4)
	`, p.ID, p.OrderID, p.CollectionPrepID, p.Region)
	if err != nil {
		return fmt.Errorf("failed to insert prep: %w", err)
	}
	return nil
}

func (t *pgTx) InsertPrepPart(ctx context.Context, pp models.PrepPart) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO prep_parts (id, prep_id, part_id, quantity, region)
		VALUES ($1, $2, $3, $4, $5)
	`, pp.ID, pp.PrepID, pp.PartID, pp.Quantity, pp.Region)
	if err != nil {
		return fmt.Errorf("failed to insert prep part: %w", err)
	}
	return nil
}

func (t *pgTx) InsertPrepPartItem(ctx context.Context, ppi models.PrepPartItem) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO prep_part_items (id, prep_part_id, packed_box_id)
		VALUES ($1, $2, $3)
	`, ppi.ID, ppi.PrepPartID, ppi.PackedBoxID)
	if err != nil {
		return fmt.Errorf("failed to insert prep part item: %w", err)
	}
	return nil
}

func (t *pgTx) InsertShipment(ctx context.Context, s models.Shipment) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO shipments (id, order_id, collection_prep_id, status)
		VALUES ($1, $2, $3, $4)
	`, s.ID, s.OrderID, s.CollectionPrepID, s.Status)
	if err != nil {
		return fmt.Errorf("failed to insert shipment: %w", err)
	}
	return nil
}

func (t *pgTx) InsertPackedBox(ctx context.Context, b models.PackedBox) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO packed_boxes (id, collection_prep_id, order_id, status)
		VALUES ($1, $2, $3, $4)
	`, b.ID, b.CollectionPrepID, b.OrderID, b.Status)
	if err != nil {
		return fmt.Errorf("failed to insert packed box: %w", err)
	}
	return nil
}

func (t *pgTx) InsertCollectionPrep(ctx context.Context, cp models.CollectionPrep) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO collection_preps (id, region, carrier, location_id, day)
		VALUES ($1, $2, $3, $4, $5)
	`, cp.ID, cp.Region, cp.Carrier, cp.LocationID, cp.Day)
	if err != nil {
		return fmt.Errorf("failed to insert collection prep: %w", err)
	}
	return nil
}
