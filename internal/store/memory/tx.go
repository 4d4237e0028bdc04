package memory

import (
	"context"
	"fmt"

	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/models"
)

// memTx implements store.Tx over a working snapshot of the state.
type memTx struct {
	st     *state
	parent *Store
}

func (t *memTx) FindOrderByExternalID(ctx context.Context, externalID string) (*models.Order, error) {
	if err := t.parent.takeFailure("FindOrderByExternalID"); err != nil {
		return nil, err
	}
	for _, o := range t.st.orders {
		if o.ExternalID == externalID {
			cp := o
			return &cp, nil
		}
	}
	return nil, nil
}

func (t *memTx) ListPreps(ctx context.Context, orderID string) ([]models.Prep, error) {
	var preps []models.Prep
	for _, p := range t.st.preps {
		if p.OrderID == orderID {
			preps = append(preps, p)
		}
	}
	return preps, nil
}

func (t *memTx) ListPrepPartIDs(ctx context.Context, prepIDs []string) ([]string, error) {
	set := toSet(prepIDs)
	var ids []string
	for _, pp := range t.st.prepParts {
		if set[pp.PrepID] {
			ids = append(ids, pp.ID)
		}
	}
	return ids, nil
}

func (t *memTx) ListPrepPartItems(ctx context.Context, prepPartIDs []string) ([]models.PrepPartItem, error) {
	set := toSet(prepPartIDs)
	var items []models.PrepPartItem
	for _, it := range t.st.prepPartItems {
		if set[it.PrepPartID] {
			items = append(items, it)
		}
	}
	return items, nil
}

func (t *memTx) ListShipments(ctx context.Context, orderID string) ([]models.Shipment, error) {
	var shipments []models.Shipment
	for _, s := range t.st.shipments {
		if s.OrderID == orderID {
			shipments = append(shipments, s)
		}
	}
	return shipments, nil
}

func (t *memTx) CountVariantOrders(ctx context.Context, orderID string) (int64, error) {
	var n int64
	for _, vo := range t.st.variantOrders {
		if vo.OrderID == orderID {
			n++
		}
	}
	return n, nil
}

func (t *memTx) DeletePackedBoxes(ctx context.Context, boxIDs []string) (int64, error) {
	if err := t.parent.takeFailure("DeletePackedBoxes"); err != nil {
		return 0, err
	}
	var n int64
	for _, id := range boxIDs {
		if _, ok := t.st.packedBoxes[id]; ok {
			delete(t.st.packedBoxes, id)
			n++
		}
	}
	return n, nil
}

func (t *memTx) DeletePrepPartItems(ctx context.Context, prepPartIDs []string) (int64, error) {
	if err := t.parent.takeFailure("DeletePrepPartItems"); err != nil {
		return 0, err
	}
	set := toSet(prepPartIDs)
	var n int64
	for id, it := range t.st.prepPartItems {
		if set[it.PrepPartID] {
			delete(t.st.prepPartItems, id)
			n++
		}
	}
	return n, nil
}

func (t *memTx) DeletePrepParts(ctx context.Context, prepIDs []string) (int64, error) {
	if err := t.parent.takeFailure("DeletePrepParts"); err != nil {
		return 0, err
	}
	set := toSet(prepIDs)
	var n int64
	for id, pp := range t.st.prepParts {
		if set[pp.PrepID] {
			delete(t.st.prepParts, id)
			n++
		}
	}
	return n, nil
}

func (t *memTx) DeletePreps(ctx context.Context, orderID string) (int64, error) {
	if err := t.parent.takeFailure("DeletePreps"); err != nil {
		return 0, err
	}
	var n int64
	for id, p := range t.st.preps {
		if p.OrderID == orderID {
			delete(t.st.preps, id)
			n++
		}
	}
	return n, nil
}

func (t *memTx) DeleteShipments(ctx context.Context, orderID string) (int64, error) {
	if err := t.parent.takeFailure("DeleteShipments"); err != nil {
		return 0, err
	}
	var n int64
	for id, s := range t.st.shipments {
		if s.OrderID == orderID {
			delete(t.st.shipments, id)
			n++
		}
	}
	return n, nil
}

func (t *memTx) DeleteVariantOrders(ctx context.Context, orderID string) (int64, error) {
	if err := t.parent.takeFailure("DeleteVariantOrders"); err != nil {
		return 0, err
	}
	var n int64
	for id, vo := range t.st.variantOrders {
		if vo.OrderID == orderID {
			delete(t.st.variantOrders, id)
			n++
		}
	}
	return n, nil
}

func (t *memTx) DeleteOrder(ctx context.Context, orderID string) (int64, error) {
	if err := t.parent.takeFailure("DeleteOrder"); err != nil {
		return 0, err
	}
	if _, ok := t.st.orders[orderID]; !ok {
		return 0, nil
	}
	delete(t.st.orders, orderID)
	return 1, nil
}

func (t *memTx) CountCollectionPrepRefs(ctx context.Context, collectionPrepID string, region models.Region) (int64, error) {
	var n int64
	for _, p := range t.st.preps {
		if p.Region == region && p.CollectionPrepID != nil && *p.CollectionPrepID == collectionPrepID {
			n++
		}
	}
	return n, nil
}

func (t *memTx) DeleteCollectionPrep(ctx context.Context, id string, region models.Region) (int64, error) {
	if err := t.parent.takeFailure("DeleteCollectionPrep"); err != nil {
		return 0, err
	}
	key := cpKey(id, region)
	if _, ok := t.st.collectionPreps[key]; !ok {
		return 0, nil
	}
	delete(t.st.collectionPreps, key)
	return 1, nil
}

func (t *memTx) InsertOrder(ctx context.Context, o models.Order) error {
	for _, existing := range t.st.orders {
		if existing.ExternalID == o.ExternalID {
			return fmt.Errorf("order external_id %s already exists", o.ExternalID)
		}
	}
	t.st.orders[o.ID] = o
	return nil
}

func (t *memTx) InsertVariantOrder(ctx context.Context, vo models.VariantOrder) error {
	t.st.variantOrders[vo.ID] = vo
	return nil
}

func (t *memTx) InsertPrep(ctx context.Context, p models.Prep) error {
	t.st.preps[p.ID] = p
	return nil
}

func (t *memTx) InsertPrepPart(ctx context.Context, pp models.PrepPart) error {
	t.st.prepParts[pp.ID] = pp
	return nil
}

func (t *memTx) InsertPrepPartItem(ctx context.Context, ppi models.PrepPartItem) error {
	t.st.prepPartItems[ppi.ID] = ppi
	return nil
}

func (t *memTx) InsertShipment(ctx context.Context, s models.Shipment) error {
	t.st.shipments[s.ID] = s
	return nil
}

func (t *memTx) InsertPackedBox(ctx context.Context, b models.PackedBox) error {
	t.st.packedBoxes[b.ID] = b
	return nil
}

func (t *memTx) InsertCollectionPrep(ctx context.Context, cp models.CollectionPrep) error {
	key := cpKey(cp.ID, cp.Region)
	if _, ok := t.st.collectionPreps[key]; ok {
		// Mirrors the Postgres uniqueness constraint on (id, region),
		// the backstop for the identifier generator's documented race.
		return fmt.Errorf("collection prep (%s, %s) already exists", cp.ID, cp.Region)
	}
	t.st.collectionPreps[key] = cp
	return nil
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
