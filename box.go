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
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/blnkfinance/wharf/allocator"
	"github.com/blnkfinance/wharf/database"
	redlock "github.com/blnkfinance/wharf/internal/lock"
	"github.com/blnkfinance/wharf/model"
)

// LinkBox attaches a storage box to a transfer so AllocateBoxTransfer moves it whole.
func (w *Wharf) LinkBox(ctx context.Context, transferID, boxID string) error {
	ctx, span := tracer.Start(ctx, "Linking box")
	defer span.End()

	held, err := w.acquireLocks(ctx, redlock.DemandKey(transferID))
	if err != nil {
		return err
	}
	defer held.release(ctx)

	transfer, err := w.datasource.GetDemand(ctx, transferID)
	if err != nil {
		return err
	}
	if transfer.Kind != model.DemandTransfer || !transfer.IsOpen() {
		return fmt.Errorf("%w: boxes can only be linked to an open transfer", model.ErrInvalidState)
	}

	box, err := w.datasource.GetStorageUnit(ctx, boxID)
	if err != nil {
		return err
	}
	if box.Kind != model.KindStorage {
		return fmt.Errorf("%w: %s is a %s", model.ErrSourceIneligible, box.Code, box.Kind)
	}
	return w.datasource.LinkBox(ctx, transferID, box.StorageUnitID)
}

// AllocateBoxTransfer runs BOX-mode allocation for a transfer: every linked box is reserved
// whole, one task per product inside it, and locked to the transfer. Box lines on the transfer
// record what each box carries.
func (w *Wharf) AllocateBoxTransfer(ctx context.Context, transferID string) (*AllocationResult, error) {
	ctx, span := tracer.Start(ctx, "Allocating box transfer")
	defer span.End()
	span.SetAttributes(attribute.String("demand.id", transferID))

	held, err := w.acquireLocks(ctx, redlock.DemandKey(transferID))
	if err != nil {
		return nil, logAndRecordError(span, "demand lock error", err)
	}
	defer held.release(ctx)

	transfer, err := w.loadAllocatable(ctx, transferID)
	if err != nil {
		return nil, logAndRecordError(span, "box allocation rejected", err)
	}
	if transfer.Kind != model.DemandTransfer {
		return nil, fmt.Errorf("%w: %s is not a transfer", model.ErrInvalidState, transferID)
	}
	if len(transfer.Boxes) == 0 {
		return nil, model.ErrNoBoxesLinked
	}

	var jobs []model.PickingJob
	err = w.datasource.WithinTransaction(ctx, func(ds database.IDataSource) error {
		boxes := make([]allocator.BoxContents, 0, len(transfer.Boxes))
		for _, boxID := range transfer.Boxes {
			unit, err := ds.GetStorageUnit(ctx, boxID)
			if err != nil {
				return err
			}
			rows, err := ds.GetUnitInventory(ctx, boxID)
			if err != nil {
				return err
			}
			boxes = append(boxes, allocator.BoxContents{Unit: *unit, Rows: rows})
		}

		candidates, err := allocator.PlanBoxes(transferID, boxes)
		if err != nil {
			return err
		}

		draft := model.PickingJob{DemandID: transferID, Kind: model.JobBoxPick}
		for _, c := range candidates {
			line, err := ds.UpsertBoxLine(ctx, model.DemandLine{
				DemandID:          transferID,
				ProductID:         c.Key.ProductID,
				Class:             c.Key.Class,
				BoxID:             c.StorageUnitID,
				QuantityRequested: c.Quantity,
			})
			if err != nil {
				return err
			}
			draft.Tasks = append(draft.Tasks, taskFromAssignment(allocator.Assignment{Candidate: c, DemandID: transferID, LineID: line.LineID}))
		}

		created, err := writeReservations(ctx, ds, []model.PickingJob{draft})
		if err != nil {
			return err
		}
		for _, b := range boxes {
			if err := ds.SetStorageUnitLock(ctx, b.Unit.StorageUnitID, transferID); err != nil {
				return err
			}
		}
		jobs = created
		return markAllocated(ctx, ds, transfer)
	})
	if errors.Is(err, allocator.ErrEmptyDemand) {
		return newAllocationResult(nil, transferID), nil
	}
	if err != nil {
		return nil, logAndRecordError(span, "box allocation commit error", err)
	}

	result := newAllocationResult(jobs, transferID)
	logrus.WithFields(logrus.Fields{"demand_id": transferID, "boxes": len(transfer.Boxes), "tasks": result.TasksCreated}).Info("box transfer allocated")
	for _, j := range jobs {
		w.emit(ctx, EventJobCreated, j)
	}
	return result, nil
}
