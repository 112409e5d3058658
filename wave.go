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

// PlanWave allocates many pending orders together. Demand is aggregated before planning, every
// candidate is split back over the orders first come first served, and the tasks are grouped into
// one WAVE_PICK job per zone. Inside a zone, ground level and the most recently stocked units
// come first.
func (w *Wharf) PlanWave(ctx context.Context, orderIDs []string) (*AllocationResult, error) {
	ctx, span := tracer.Start(ctx, "Planning wave")
	defer span.End()

	ids := dedupe(orderIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: a wave needs at least one order", model.ErrInvalidState)
	}
	span.SetAttributes(attribute.Int("wave.orders", len(ids)))

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = redlock.DemandKey(id)
	}
	held, err := w.acquireLocks(ctx, keys...)
	if err != nil {
		return nil, logAndRecordError(span, "demand lock error", err)
	}
	defer held.release(ctx)

	orders := make([]*model.Demand, 0, len(ids))
	for _, id := range ids {
		order, err := w.loadAllocatable(ctx, id)
		if err != nil {
			return nil, err
		}
		if order.Kind != model.DemandOrder || order.Status != model.DemandPending {
			return nil, fmt.Errorf("%w: wave orders must be pending orders, %s is a %s %s", model.ErrInvalidState, id, order.Status, order.Kind)
		}
		orders = append(orders, order)
	}

	refs := refsFor(orders...)
	if len(refs) == 0 {
		return newAllocationResult(nil, ids...), nil
	}

	assignments, err := w.planItems(ctx, refs, "")
	if errors.Is(err, allocator.ErrEmptyDemand) {
		return newAllocationResult(nil, ids...), nil
	}
	if err != nil {
		w.reportShortage(ctx, err, ids...)
		return nil, err
	}

	waveID := model.GenerateUUIDWithSuffix("wave")
	batches := allocator.PartitionByZone(assignments, allocator.GroundFirstLIFO{})
	drafts := make([]model.PickingJob, 0, len(batches))
	for _, batch := range batches {
		draft := model.PickingJob{WaveID: waveID, Kind: model.JobWavePick, Zone: batch.Zone}
		for _, a := range batch.Assignments {
			draft.Tasks = append(draft.Tasks, taskFromAssignment(a))
		}
		drafts = append(drafts, draft)
	}

	var jobs []model.PickingJob
	err = w.datasource.WithinTransaction(ctx, func(ds database.IDataSource) error {
		created, err := writeReservations(ctx, ds, drafts)
		if err != nil {
			return err
		}
		jobs = created
		return markAllocated(ctx, ds, orders...)
	})
	if err != nil {
		return nil, logAndRecordError(span, "wave commit error", err)
	}

	result := newAllocationResult(jobs, ids...)
	result.WaveID = waveID
	logrus.WithFields(logrus.Fields{"wave_id": waveID, "orders": len(ids), "jobs": result.JobsCreated, "tasks": result.TasksCreated}).Info("wave planned")
	for _, j := range jobs {
		w.emit(ctx, EventJobCreated, j)
	}
	return result, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
