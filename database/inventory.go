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

package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/blnkfinance/wharf/model"
)

const inventoryColumns = `i.inventory_id, i.product_id, i.storage_unit_id, i.class, i.physical_quantity, i.reserved_quantity, i.stocked_at, i.updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInventory(row rowScanner, extra ...interface{}) (model.InventoryUnit, error) {
	var inv model.InventoryUnit
	dest := []interface{}{&inv.InventoryID, &inv.ProductID, &inv.StorageUnitID, &inv.Class,
		&inv.PhysicalQuantity, &inv.ReservedQuantity, &inv.StockedAt, &inv.UpdatedAt}
	err := row.Scan(append(dest, extra...)...)
	return inv, err
}

// GetStock returns every ledger row for the given keys joined with the unit that holds it.
// Rows come back in discovery order: oldest stock first.
func (d Datasource) GetStock(ctx context.Context, keys []model.ProductKey) ([]model.StockRow, error) {
	ctx, span := otel.Tracer("wharf.database").Start(ctx, "Fetching stock snapshot")
	defer span.End()

	if len(keys) == 0 {
		return nil, nil
	}
	wanted := make([]string, 0, len(keys))
	for _, k := range keys {
		wanted = append(wanted, k.String())
	}

	rows, err := d.q().QueryContext(ctx, `
		SELECT `+inventoryColumns+`, `+unitColumns+`
		FROM wharf.inventory_units i
		JOIN wharf.storage_units s ON s.storage_unit_id = i.storage_unit_id
		LEFT JOIN wharf.locations l ON l.location_id = s.location_id
		WHERE i.class || '/' || i.product_id = ANY($1)
		ORDER BY i.stocked_at, i.id
	`, pq.Array(wanted))
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch stock")
	}
	defer func() { _ = rows.Close() }()

	var out []model.StockRow
	for rows.Next() {
		var unit model.StorageUnit
		inv, err := scanInventory(rows, unitDest(&unit)...)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan stock row")
		}
		out = append(out, model.StockRow{InventoryUnit: inv, Unit: unit})
	}
	return out, rows.Err()
}

func (d Datasource) GetUnitInventory(ctx context.Context, storageUnitID string) ([]model.InventoryUnit, error) {
	rows, err := d.q().QueryContext(ctx, `
		SELECT `+inventoryColumns+`
		FROM wharf.inventory_units i
		WHERE i.storage_unit_id = $1
		ORDER BY i.class, i.product_id, i.id
	`+d.forUpdate(), storageUnitID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch inventory of unit %s", storageUnitID)
	}
	return collectInventory(rows)
}

// GetInventoryRows returns the rows of one product in one unit. Inside a transaction the rows
// stay locked until it ends.
func (d Datasource) GetInventoryRows(ctx context.Context, key model.ProductKey, storageUnitID string) ([]model.InventoryUnit, error) {
	rows, err := d.q().QueryContext(ctx, `
		SELECT `+inventoryColumns+`
		FROM wharf.inventory_units i
		WHERE i.product_id = $1 AND i.class = $2 AND i.storage_unit_id = $3
		ORDER BY i.id
	`+d.forUpdate(), key.ProductID, key.Class, storageUnitID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch rows of %s at %s", key, storageUnitID)
	}
	return collectInventory(rows)
}

func collectInventory(rows *sql.Rows) ([]model.InventoryUnit, error) {
	defer func() { _ = rows.Close() }()
	var out []model.InventoryUnit
	for rows.Next() {
		inv, err := scanInventory(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan inventory row")
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// ReserveRow adds qty to the reserved counter only while the row can still cover it.
// It reports false when a concurrent reservation got there first.
func (d Datasource) ReserveRow(ctx context.Context, inventoryID string, qty int64) (bool, error) {
	result, err := d.q().ExecContext(ctx, `
		UPDATE wharf.inventory_units
		SET reserved_quantity = reserved_quantity + $2, updated_at = $3
		WHERE inventory_id = $1 AND reserved_quantity + $2 <= physical_quantity
	`, inventoryID, qty, time.Now())
	if err != nil {
		return false, errors.Wrapf(err, "failed to reserve %d on %s", qty, inventoryID)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to get rows affected")
	}
	return n == 1, nil
}

func (d Datasource) ReleaseRow(ctx context.Context, inventoryID string, qty int64) error {
	result, err := d.q().ExecContext(ctx, `
		UPDATE wharf.inventory_units
		SET reserved_quantity = GREATEST(reserved_quantity - $2, 0), updated_at = $3
		WHERE inventory_id = $1
	`, inventoryID, qty, time.Now())
	if err != nil {
		return errors.Wrapf(err, "failed to release %d on %s", qty, inventoryID)
	}
	return expectAffected(result, model.ErrNotFound, "inventory row %s", inventoryID)
}

// DeductRow removes qty of physical stock from a row. The reserved counter drops by the same
// amount, never below zero. A row left with no physical stock is deleted.
func (d Datasource) DeductRow(ctx context.Context, inventoryID string, qty int64) (model.InventoryUnit, error) {
	row := d.q().QueryRowContext(ctx, `
		UPDATE wharf.inventory_units i
		SET physical_quantity = physical_quantity - $2,
		    reserved_quantity = GREATEST(reserved_quantity - $2, 0),
		    updated_at = $3
		WHERE inventory_id = $1 AND physical_quantity >= $2
		RETURNING `+inventoryColumns, inventoryID, qty, time.Now())
	inv, err := scanInventory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.InventoryUnit{}, errors.Wrapf(model.ErrInsufficientPhysicalStock, "inventory row %s cannot cover %d", inventoryID, qty)
	}
	if err != nil {
		return model.InventoryUnit{}, errors.Wrapf(err, "failed to deduct %d from %s", qty, inventoryID)
	}

	if inv.PhysicalQuantity == 0 {
		if _, err := d.q().ExecContext(ctx, `DELETE FROM wharf.inventory_units WHERE inventory_id = $1`, inventoryID); err != nil {
			return model.InventoryUnit{}, errors.Wrapf(err, "failed to delete empty row %s", inventoryID)
		}
	}
	return inv, nil
}

// AddStock merges row.PhysicalQuantity into the oldest row for (product, unit, class),
// creating the row when none exists.
func (d Datasource) AddStock(ctx context.Context, add model.InventoryUnit) (model.InventoryUnit, error) {
	now := time.Now()
	row := d.q().QueryRowContext(ctx, `
		UPDATE wharf.inventory_units i
		SET physical_quantity = physical_quantity + $4, updated_at = $5
		WHERE inventory_id = (
			SELECT inventory_id FROM wharf.inventory_units
			WHERE product_id = $1 AND storage_unit_id = $2 AND class = $3
			ORDER BY id LIMIT 1 FOR UPDATE
		)
		RETURNING `+inventoryColumns, add.ProductID, add.StorageUnitID, add.Class, add.PhysicalQuantity, now)
	inv, err := scanInventory(row)
	if err == nil {
		return inv, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.InventoryUnit{}, errors.Wrapf(err, "failed to merge stock of %s into %s", add.ProductID, add.StorageUnitID)
	}

	add.InventoryID = model.GenerateUUIDWithSuffix("inv")
	add.StockedAt = now
	add.UpdatedAt = now
	_, err = d.q().ExecContext(ctx, `
		INSERT INTO wharf.inventory_units (inventory_id, product_id, storage_unit_id, class, physical_quantity, reserved_quantity, stocked_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, add.InventoryID, add.ProductID, add.StorageUnitID, add.Class, add.PhysicalQuantity, add.ReservedQuantity, add.StockedAt, add.UpdatedAt)
	if err != nil {
		return model.InventoryUnit{}, errors.Wrapf(err, "failed to create stock of %s in %s", add.ProductID, add.StorageUnitID)
	}
	return add, nil
}
