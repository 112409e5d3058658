/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package wharf

import (
	"context"
	"fmt"
	"sort"

	"github.com/blnkfinance/wharf/database"
	"github.com/blnkfinance/wharf/model"
)

// ledger applies pair-level operations (one product in one storage unit) on top of the row
// primitives of the datasource. It is always bound to the transaction of the calling operation.
type ledger struct {
	ds database.IDataSource
}

// moveLeg is the part of a settlement taken from one source row.
type moveLeg struct {
	InventoryID string
	Quantity    int64
}

// Snapshot returns every ledger row of the given products joined with its storage unit.
func (w *Wharf) Snapshot(ctx context.Context, keys []model.ProductKey) ([]model.StockRow, error) {
	return w.datasource.GetStock(ctx, keys)
}

// reserve holds qty of key in unitID, spreading over rows with the most availability first.
// Every row is re-validated by a conditional update, so a concurrent reservation that got there
// first makes this fail with ErrInsufficientAvailability.
func (l ledger) reserve(ctx context.Context, key model.ProductKey, unitID string, qty int64) error {
	rows, err := l.ds.GetInventoryRows(ctx, key, unitID)
	if err != nil {
		return err
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Available() > rows[j].Available() })

	left := qty
	for _, row := range rows {
		if left == 0 {
			break
		}
		take := min(row.Available(), left)
		if take <= 0 {
			continue
		}
		ok, err := l.ds.ReserveRow(ctx, row.InventoryID, take)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s at unit %s changed concurrently", model.ErrInsufficientAvailability, key, unitID)
		}
		left -= take
	}
	if left > 0 {
		return fmt.Errorf("%w: %s at unit %s is short by %d", model.ErrInsufficientAvailability, key, unitID, left)
	}
	return nil
}

// release hands back up to qty of reservations of key in unitID and reports how much was
// actually released. Over-release is clamped at zero.
func (l ledger) release(ctx context.Context, key model.ProductKey, unitID string, qty int64) (int64, error) {
	rows, err := l.ds.GetInventoryRows(ctx, key, unitID)
	if err != nil {
		return 0, err
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ReservedQuantity > rows[j].ReservedQuantity })

	var released int64
	for _, row := range rows {
		take := min(row.ReservedQuantity, qty-released)
		if take <= 0 {
			continue
		}
		if err := l.ds.ReleaseRow(ctx, row.InventoryID, take); err != nil {
			return released, err
		}
		released += take
	}
	return released, nil
}

// releaseAll drops every reservation of key in unitID back to zero.
func (l ledger) releaseAll(ctx context.Context, key model.ProductKey, unitID string) (int64, error) {
	rows, err := l.ds.GetInventoryRows(ctx, key, unitID)
	if err != nil {
		return 0, err
	}
	var released int64
	for _, row := range rows {
		if row.ReservedQuantity == 0 {
			continue
		}
		if err := l.ds.ReleaseRow(ctx, row.InventoryID, row.ReservedQuantity); err != nil {
			return released, err
		}
		released += row.ReservedQuantity
	}
	return released, nil
}

// settle moves qty of key from sourceID to destID. Source rows are consumed largest first and
// deleted when empty. The reservation backing the move is released in full even when it sat on
// a different row than the stock that was taken. The destination row is merged or created.
func (l ledger) settle(ctx context.Context, key model.ProductKey, sourceID, destID string, qty int64) ([]moveLeg, error) {
	rows, err := l.ds.GetInventoryRows(ctx, key, sourceID)
	if err != nil {
		return nil, err
	}

	var physical int64
	for _, row := range rows {
		physical += row.PhysicalQuantity
	}
	if physical < qty {
		return nil, &model.IntegrityError{ProductID: key.ProductID, SourceUnitID: sourceID, Needed: qty, Found: physical}
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].PhysicalQuantity > rows[j].PhysicalQuantity })

	var legs []moveLeg
	var releasedInline int64
	left := qty
	for _, row := range rows {
		if left == 0 {
			break
		}
		take := min(row.PhysicalQuantity, left)
		if _, err := l.ds.DeductRow(ctx, row.InventoryID, take); err != nil {
			return nil, err
		}
		releasedInline += min(take, row.ReservedQuantity)
		legs = append(legs, moveLeg{InventoryID: row.InventoryID, Quantity: take})
		left -= take
	}

	if rest := qty - releasedInline; rest > 0 {
		if _, err := l.release(ctx, key, sourceID, rest); err != nil {
			return nil, err
		}
	}

	if _, err := l.ds.AddStock(ctx, model.InventoryUnit{
		ProductID:        key.ProductID,
		Class:            key.Class,
		StorageUnitID:    destID,
		PhysicalQuantity: qty,
	}); err != nil {
		return nil, err
	}
	return legs, nil
}
