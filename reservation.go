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

	"github.com/blnkfinance/wharf/allocator"
	"github.com/blnkfinance/wharf/database"
	"github.com/blnkfinance/wharf/model"
)

// taskFromAssignment turns an allocator assignment into an unsaved picking task.
func taskFromAssignment(a allocator.Assignment) model.PickingTask {
	return model.PickingTask{
		DemandID:       a.DemandID,
		LineID:         a.LineID,
		ProductID:      a.Key.ProductID,
		Class:          a.Key.Class,
		SourceUnitID:   a.StorageUnitID,
		SourceUnitCode: a.StorageUnitCode,
		Quantity:       a.Quantity,
		Status:         model.TaskPending,
	}
}

// writeReservations is the only path that creates reservations. For every task of every draft, in
// the order given, it reserves the task quantity on the source unit and records a RESERVE
// transaction. Line counters are then raised by the summed task quantities and the jobs are
// persisted with their tasks. ds must be transaction bound: any failure leaves the caller to roll
// back everything written so far.
func writeReservations(ctx context.Context, ds database.IDataSource, drafts []model.PickingJob) ([]model.PickingJob, error) {
	l := ledger{ds: ds}
	reservedByLine := make(map[string]int64)
	var lineOrder []string

	for _, draft := range drafts {
		for _, t := range draft.Tasks {
			key := model.ProductKey{Class: t.Class, ProductID: t.ProductID}
			if err := l.reserve(ctx, key, t.SourceUnitID, t.Quantity); err != nil {
				return nil, fmt.Errorf("reserve %d of %s at %s for %s: %w", t.Quantity, key, t.SourceUnitCode, t.DemandID, err)
			}
			if err := recordTransaction(ctx, ds, ReserveEvent{Key: key, UnitID: t.SourceUnitID, Quantity: t.Quantity, Reference: t.DemandID}); err != nil {
				return nil, err
			}
			if _, seen := reservedByLine[t.LineID]; !seen {
				lineOrder = append(lineOrder, t.LineID)
			}
			reservedByLine[t.LineID] += t.Quantity
		}
	}

	for _, lineID := range lineOrder {
		if err := ds.AdjustLineReserved(ctx, lineID, reservedByLine[lineID]); err != nil {
			return nil, err
		}
	}

	jobs := make([]model.PickingJob, 0, len(drafts))
	for _, draft := range drafts {
		job, err := ds.CreateJob(ctx, draft)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// markAllocated moves every demand to ALLOCATED, remembering the status it had before.
func markAllocated(ctx context.Context, ds database.IDataSource, demands ...*model.Demand) error {
	for _, d := range demands {
		if d.Status == model.DemandAllocated || d.Status == model.DemandInProgress {
			continue
		}
		if err := ds.UpdateDemandStatus(ctx, d.DemandID, model.DemandAllocated, d.Status); err != nil {
			return err
		}
	}
	return nil
}

func countTasks(jobs []model.PickingJob) int {
	n := 0
	for _, j := range jobs {
		n += len(j.Tasks)
	}
	return n
}
