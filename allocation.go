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

// AllocationResult summarises a successful allocation run. A run with nothing outstanding
// succeeds with no jobs.
type AllocationResult struct {
	DemandIDs    []string           `json:"demand_ids"`
	WaveID       string             `json:"wave_id,omitempty"`
	Jobs         []model.PickingJob `json:"jobs"`
	JobsCreated  int                `json:"jobs_created"`
	TasksCreated int                `json:"tasks_created"`
}

func newAllocationResult(jobs []model.PickingJob, demandIDs ...string) *AllocationResult {
	return &AllocationResult{
		DemandIDs:    demandIDs,
		Jobs:         jobs,
		JobsCreated:  len(jobs),
		TasksCreated: countTasks(jobs),
	}
}

// ShortagePayload is the body of the allocation.shortage event.
type ShortagePayload struct {
	DemandIDs []string                 `json:"demand_ids"`
	Shortage  []allocator.ShortageLine `json:"shortage"`
}

// loadAllocatable fetches a demand that may receive a new allocation run: it must be open and
// hold no active job.
func (w *Wharf) loadAllocatable(ctx context.Context, demandID string) (*model.Demand, error) {
	demand, err := w.datasource.GetDemand(ctx, demandID)
	if err != nil {
		return nil, err
	}
	if !demand.IsOpen() {
		return nil, fmt.Errorf("%w: demand %s is %s", model.ErrInvalidState, demandID, demand.Status)
	}

	jobs, err := w.datasource.ListJobsByDemand(ctx, demandID)
	if err != nil {
		return nil, err
	}
	for _, j := range jobs {
		if j.IsActive() {
			return nil, fmt.Errorf("%w: job %s for demand %s", model.ErrDuplicateActiveJob, j.JobID, demandID)
		}
	}
	return demand, nil
}

// holdsFor reads the approval holds other transfers keep on every key.
func (w *Wharf) holdsFor(ctx context.Context, keys []model.ProductKey, excludeDemandID string) (map[model.ProductKey]int64, error) {
	holds := make(map[model.ProductKey]int64, len(keys))
	for _, key := range keys {
		held, err := w.datasource.GetApprovedHolds(ctx, key, excludeDemandID)
		if err != nil {
			return nil, err
		}
		if held > 0 {
			holds[key] = held
		}
	}
	return holds, nil
}

// refsFor lists the outstanding item lines of demands as allocator refs, demand by demand.
func refsFor(demands ...*model.Demand) []allocator.DemandRef {
	var refs []allocator.DemandRef
	for _, d := range demands {
		for _, line := range d.OutstandingLines() {
			refs = append(refs, allocator.DemandRef{
				DemandID: d.DemandID,
				LineID:   line.LineID,
				Key:      line.Key(),
				Quantity: line.Outstanding(),
			})
		}
	}
	return refs
}

func keysOf(refs []allocator.DemandRef) []model.ProductKey {
	seen := make(map[model.ProductKey]bool)
	var keys []model.ProductKey
	for _, r := range refs {
		if !seen[r.Key] {
			seen[r.Key] = true
			keys = append(keys, r.Key)
		}
	}
	return keys
}

// planItems runs the ITEM planner over refs and attributes every candidate to a demand line.
func (w *Wharf) planItems(ctx context.Context, refs []allocator.DemandRef, excludeHoldsOf string) ([]allocator.Assignment, error) {
	keys := keysOf(refs)
	stock, err := w.datasource.GetStock(ctx, keys)
	if err != nil {
		return nil, err
	}
	holds, err := w.holdsFor(ctx, keys, excludeHoldsOf)
	if err != nil {
		return nil, err
	}

	candidates, err := w.planner(holds).Plan(allocator.NeedsFor(refs), stock)
	if err != nil {
		return nil, err
	}
	return allocator.Distribute(candidates, refs), nil
}

func (w *Wharf) reportShortage(ctx context.Context, err error, demandIDs ...string) {
	var shortage *allocator.ShortageError
	if !errors.As(err, &shortage) {
		return
	}
	logrus.WithFields(logrus.Fields{"demands": demandIDs, "short_products": len(shortage.Lines)}).Warn(shortage.Error())
	w.emit(ctx, EventAllocationShortage, ShortagePayload{DemandIDs: demandIDs, Shortage: shortage.Lines})
}

// AllocateDemand runs ITEM-mode allocation for every outstanding item line of an order or
// transfer and commits one job holding all tasks. The run either commits completely or leaves
// nothing behind: a shortage aborts before any write and a failed reservation rolls back the run.
func (w *Wharf) AllocateDemand(ctx context.Context, demandID string) (*AllocationResult, error) {
	ctx, span := tracer.Start(ctx, "Allocating demand")
	defer span.End()
	span.SetAttributes(attribute.String("demand.id", demandID))

	held, err := w.acquireLocks(ctx, redlock.DemandKey(demandID))
	if err != nil {
		return nil, logAndRecordError(span, "demand lock error", err)
	}
	defer held.release(ctx)

	demand, err := w.loadAllocatable(ctx, demandID)
	if err != nil {
		return nil, logAndRecordError(span, "allocation rejected", err)
	}

	refs := refsFor(demand)
	if len(refs) == 0 {
		return newAllocationResult(nil, demandID), nil
	}

	assignments, err := w.planItems(ctx, refs, demandID)
	if errors.Is(err, allocator.ErrEmptyDemand) {
		return newAllocationResult(nil, demandID), nil
	}
	if err != nil {
		w.reportShortage(ctx, err, demandID)
		return nil, err
	}

	kind := model.JobItemPick
	if demand.Kind == model.DemandTransfer {
		kind = model.JobTransferPick
	}
	draft := model.PickingJob{DemandID: demandID, Kind: kind, Zone: commonZone(assignments)}
	for _, a := range assignments {
		draft.Tasks = append(draft.Tasks, taskFromAssignment(a))
	}

	var jobs []model.PickingJob
	err = w.datasource.WithinTransaction(ctx, func(ds database.IDataSource) error {
		created, err := writeReservations(ctx, ds, []model.PickingJob{draft})
		if err != nil {
			return err
		}
		jobs = created
		return markAllocated(ctx, ds, demand)
	})
	if err != nil {
		return nil, logAndRecordError(span, "allocation commit error", err)
	}

	result := newAllocationResult(jobs, demandID)
	logrus.WithFields(logrus.Fields{"demand_id": demandID, "jobs": result.JobsCreated, "tasks": result.TasksCreated}).Info("demand allocated")
	for _, j := range jobs {
		w.emit(ctx, EventJobCreated, j)
	}
	return result, nil
}

// commonZone returns the zone shared by every assignment, or empty when they span zones.
func commonZone(assignments []allocator.Assignment) string {
	if len(assignments) == 0 {
		return ""
	}
	zone := assignments[0].Zone
	for _, a := range assignments[1:] {
		if a.Zone != zone {
			return ""
		}
	}
	return zone
}
