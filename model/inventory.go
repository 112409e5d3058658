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

package model

import "time"

// InventoryClass partitions the ledger into piece-level and bulk stock.
type InventoryClass string

const (
	ClassPiece InventoryClass = "piece"
	ClassBulk  InventoryClass = "bulk"
)

// Valid reports whether c is a known inventory class.
func (c InventoryClass) Valid() bool {
	return c == ClassPiece || c == ClassBulk
}

// InventoryUnit is one ledger row: a quantity of a product held in a storage unit.
// Invariant: 0 <= ReservedQuantity <= PhysicalQuantity.
type InventoryUnit struct {
	InventoryID      string         `json:"inventory_id"`
	ProductID        string         `json:"product_id"`
	StorageUnitID    string         `json:"storage_unit_id"`
	Class            InventoryClass `json:"class"`
	PhysicalQuantity int64          `json:"physical_quantity"`
	ReservedQuantity int64          `json:"reserved_quantity"`
	StockedAt        time.Time      `json:"stocked_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Available returns the quantity not yet promised to any demand.
func (u InventoryUnit) Available() int64 {
	return u.PhysicalQuantity - u.ReservedQuantity
}

// Key returns the class/product key for the row.
func (u InventoryUnit) Key() ProductKey {
	return ProductKey{Class: u.Class, ProductID: u.ProductID}
}

// StockRow is a ledger row joined with the storage unit that holds it.
type StockRow struct {
	InventoryUnit
	Unit StorageUnit `json:"unit"`
}
