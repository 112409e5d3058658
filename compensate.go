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

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/blnkfinance/wharf/database"
	redlock "github.com/blnkfinance/wharf/internal/lock"
	"github.com/blnkfinance/wharf/model"
)

// DeleteJob cancels a job that no picker has started. Every reservation its tasks hold is handed
// back, the demand lines are lowered to match and the job is removed with its tasks. A demand
// left without an active job returns to PENDING, or for transfers to the status it had before
// allocation.
func (w *Wharf) DeleteJob(ctx context.Context, jobID string) error {
	ctx, span := tracer.Start(ctx, "Deleting job")
	defer span.End()
	span.SetAttributes(attribute.String("job.id", jobID))

	job, err := w.datasource.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	demandIDs := jobDemands(job)
	keys := []string{redlock.JobKey(jobID)}
	for _, id := range demandIDs {
		keys = append(keys, redlock.DemandKey(id))
	}
	held, err := w.acquireLocks(ctx, keys...)
	if err != nil {
		return logAndRecordError(span, "job lock error", err)
	}
	defer held.release(ctx)

	// a concurrent delete or confirmation may have won the locks first
	job, err = w.datasource.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != model.JobOpen {
		return fmt.Errorf("%w: job %s is %s", model.ErrJobNotCancellable, jobID, job.Status)
	}
	for _, t := range job.Tasks {
		if t.Status != model.TaskPending {
			return fmt.Errorf("%w: job %s has settled tasks", model.ErrJobNotCancellable, jobID)
		}
	}

	err = w.datasource.WithinTransaction(ctx, func(ds database.IDataSource) error {
		demands := make(map[string]*model.Demand, len(demandIDs))
		for _, id := range demandIDs {
			d, err := ds.GetDemand(ctx, id)
			if err != nil {
				return err
			}
			demands[id] = d
		}

		if err := reverseReservations(ctx, ds, job, demands); err != nil {
			return err
		}
		if err := ds.DeleteJob(ctx, jobID); err != nil {
			return err
		}
		if job.Kind == model.JobBoxPick {
			if err := unlockBoxes(ctx, ds, job); err != nil {
				return err
			}
		}

		for _, id := range demandIDs {
			if err := revertDemand(ctx, ds, demands[id]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return logAndRecordError(span, "job compensation failed", err)
	}

	job.Status = model.JobCancelled
	logrus.WithFields(logrus.Fields{"job_id": jobID, "demands": demandIDs, "tasks": len(job.Tasks)}).Info("job deleted")
	w.emit(ctx, EventJobCancelled, job)
	return nil
}

// reverseReservations releases what every task of job reserved and lowers its line. BOX_PICK
// tasks release the box rows back to zero. RELEASE transactions are written for orders only.
func reverseReservations(ctx context.Context, ds database.IDataSource, job *model.PickingJob, demands map[string]*model.Demand) error {
	l := ledger{ds: ds}
	releasedByLine := make(map[string]int64)
	var lineOrder []string

	for _, t := range job.Tasks {
		key := model.ProductKey{Class: t.Class, ProductID: t.ProductID}
		var released int64
		var err error
		if job.Kind == model.JobBoxPick {
			released, err = l.releaseAll(ctx, key, t.SourceUnitID)
		} else {
			released, err = l.release(ctx, key, t.SourceUnitID, t.Quantity)
		}
		if err != nil {
			return err
		}
		if released != t.Quantity {
			logrus.Warnf("task %s reserved %d of %s at %s but %d was released", t.TaskID, t.Quantity, key, t.SourceUnitCode, released)
		}

		if d := demands[t.DemandID]; d != nil && d.Kind == model.DemandOrder {
			if err := recordTransaction(ctx, ds, ReleaseEvent{Key: key, UnitID: t.SourceUnitID, Quantity: released, Reference: t.DemandID}); err != nil {
				return err
			}
		}
		if _, seen := releasedByLine[t.LineID]; !seen {
			lineOrder = append(lineOrder, t.LineID)
		}
		releasedByLine[t.LineID] += t.Quantity
	}

	for _, lineID := range lineOrder {
		if err := ds.AdjustLineReserved(ctx, lineID, -releasedByLine[lineID]); err != nil {
			return err
		}
	}
	return nil
}

// revertDemand restores the pre-allocation status of a demand once no active job holds it.
func revertDemand(ctx context.Context, ds database.IDataSource, demand *model.Demand) error {
	jobs, err := ds.ListJobsByDemand(ctx, demand.DemandID)
	if err != nil {
		return err
	}
	for _, j := range jobs {
		if j.IsActive() {
			return nil
		}
	}

	status := model.DemandPending
	if demand.Kind == model.DemandTransfer && demand.PriorStatus != "" {
		status = demand.PriorStatus
	}
	if demand.Status == status {
		return nil
	}
	return ds.UpdateDemandStatus(ctx, demand.DemandID, status, "")
}

// jobDemands lists the demands a job serves in sorted order.
func jobDemands(job *model.PickingJob) []string {
	seen := make(map[string]bool)
	var ids []string
	if job.DemandID != "" {
		seen[job.DemandID] = true
		ids = append(ids, job.DemandID)
	}
	for _, t := range job.Tasks {
		if t.DemandID != "" && !seen[t.DemandID] {
			seen[t.DemandID] = true
			ids = append(ids, t.DemandID)
		}
	}
	sort.Strings(ids)
	return ids
}
