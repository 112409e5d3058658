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

	"github.com/sirupsen/logrus"

	"github.com/blnkfinance/wharf/database"
	"github.com/blnkfinance/wharf/model"
)

// ReceiveStock books quantity into a storage unit, merging into the row it already holds for the
// product and class. reference ties the RECEIVE transaction to the receipt; it defaults to the
// unit.
func (w *Wharf) ReceiveStock(ctx context.Context, receipt model.InventoryUnit, reference string) (model.InventoryUnit, error) {
	ctx, span := tracer.Start(ctx, "Receiving stock")
	defer span.End()

	if receipt.Class == "" {
		receipt.Class = model.ClassPiece
	}
	if !receipt.Class.Valid() || receipt.ProductID == "" || receipt.PhysicalQuantity <= 0 {
		return model.InventoryUnit{}, fmt.Errorf("%w: a receipt needs a product, a valid class and a positive quantity", model.ErrInvalidState)
	}
	if reference == "" {
		reference = receipt.StorageUnitID
	}

	var row model.InventoryUnit
	err := w.datasource.WithinTransaction(ctx, func(ds database.IDataSource) error {
		unit, err := ds.GetStorageUnit(ctx, receipt.StorageUnitID)
		if err != nil {
			return err
		}
		if unit.Status != model.UnitStatusOpen || unit.IsLocked() {
			return fmt.Errorf("%w: %s cannot receive stock", model.ErrInvalidState, unit.Code)
		}

		row, err = ds.AddStock(ctx, model.InventoryUnit{
			ProductID:        receipt.ProductID,
			Class:            receipt.Class,
			StorageUnitID:    unit.StorageUnitID,
			PhysicalQuantity: receipt.PhysicalQuantity,
		})
		if err != nil {
			return err
		}
		return recordTransaction(ctx, ds, ReceiveEvent{Key: receipt.Key(), UnitID: unit.StorageUnitID, Quantity: receipt.PhysicalQuantity, Reference: reference})
	})
	if err != nil {
		return model.InventoryUnit{}, logAndRecordError(span, "failed to receive stock", err)
	}

	logrus.WithFields(logrus.Fields{"product_id": receipt.ProductID, "unit": receipt.StorageUnitID, "quantity": receipt.PhysicalQuantity}).Info("stock received")
	w.emit(ctx, EventStockReceived, row)
	return row, nil
}

// GetInventory returns every ledger row held by a storage unit.
func (w *Wharf) GetInventory(ctx context.Context, storageUnitID string) ([]model.InventoryUnit, error) {
	if _, err := w.datasource.GetStorageUnit(ctx, storageUnitID); err != nil {
		return nil, err
	}
	return w.datasource.GetUnitInventory(ctx, storageUnitID)
}

// CreateDemand registers an order or a transfer. Orders need at least one line; transfers may be
// created empty and filled with boxes later.
func (w *Wharf) CreateDemand(ctx context.Context, demand model.Demand) (model.Demand, error) {
	ctx, span := tracer.Start(ctx, "Creating demand")
	defer span.End()

	switch demand.Kind {
	case model.DemandOrder:
		if len(demand.Lines) == 0 {
			return model.Demand{}, fmt.Errorf("%w: an order needs at least one line", model.ErrInvalidState)
		}
	case model.DemandTransfer:
	default:
		return model.Demand{}, fmt.Errorf("%w: unknown demand kind %q", model.ErrInvalidState, demand.Kind)
	}

	demand.Status = model.DemandPending
	demand.PriorStatus = ""
	demand.ApprovedBy = ""
	demand.ApprovedAt = nil
	demand.Boxes = nil
	for i := range demand.Lines {
		line := &demand.Lines[i]
		if line.Class == "" {
			line.Class = model.ClassPiece
		}
		if line.ProductID == "" || !line.Class.Valid() || line.QuantityRequested <= 0 {
			return model.Demand{}, fmt.Errorf("%w: line %d needs a product, a valid class and a positive quantity", model.ErrInvalidState, i+1)
		}
		line.BoxID = ""
		line.QuantityReserved = 0
		line.QuantityPicked = 0
	}

	created, err := w.datasource.CreateDemand(ctx, demand)
	if err != nil {
		return model.Demand{}, logAndRecordError(span, "failed to create demand", err)
	}
	return created, nil
}

// GetDemand returns a demand with its lines and linked boxes.
func (w *Wharf) GetDemand(ctx context.Context, id string) (*model.Demand, error) {
	return w.datasource.GetDemand(ctx, id)
}

// GetJob returns a job with its tasks in pick order.
func (w *Wharf) GetJob(ctx context.Context, id string) (*model.PickingJob, error) {
	return w.datasource.GetJob(ctx, id)
}

// ListJobs returns jobs newest first, narrowed by filter.
func (w *Wharf) ListJobs(ctx context.Context, filter database.JobFilter) ([]model.PickingJob, error) {
	return w.datasource.ListJobs(ctx, filter)
}
