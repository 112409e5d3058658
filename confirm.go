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

	"github.com/blnkfinance/wharf/database"
	redlock "github.com/blnkfinance/wharf/internal/lock"
	"github.com/blnkfinance/wharf/internal/notification"
	"github.com/blnkfinance/wharf/model"
)

// Confirmation is the outcome of settling one task.
type Confirmation struct {
	Task         model.PickingTask  `json:"task"`
	JobStatus    model.JobStatus    `json:"job_status"`
	DemandStatus model.DemandStatus `json:"demand_status"`
}

// ConfirmTask settles a pending task into the outbox scanned by the picker. Stock leaves the
// source unit, lands in the outbox and the task, its job and its demand advance. A source that
// holds less physical stock than the task is an integrity failure: nothing is written and the
// alarm is raised.
func (w *Wharf) ConfirmTask(ctx context.Context, taskID, destinationCode string) (*Confirmation, error) {
	ctx, span := tracer.Start(ctx, "Confirming task")
	defer span.End()
	span.SetAttributes(attribute.String("task.id", taskID))

	task, err := w.datasource.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	held, err := w.acquireLocks(ctx, redlock.DemandKey(task.DemandID), redlock.JobKey(task.JobID))
	if err != nil {
		return nil, logAndRecordError(span, "task lock error", err)
	}
	defer held.release(ctx)

	// the task may have been confirmed or its job deleted while waiting for the locks
	task, err = w.datasource.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != model.TaskPending {
		return nil, fmt.Errorf("%w: task %s is %s", model.ErrInvalidState, taskID, task.Status)
	}

	dest, err := w.resolveDestination(ctx, destinationCode, task.DemandID)
	if err != nil {
		return nil, err
	}

	key := model.ProductKey{Class: task.Class, ProductID: task.ProductID}
	result := &Confirmation{}
	var jobDone, demandDone bool
	err = w.datasource.WithinTransaction(ctx, func(ds database.IDataSource) error {
		legs, err := ledger{ds: ds}.settle(ctx, key, task.SourceUnitID, dest.StorageUnitID, task.Quantity)
		if err != nil {
			return err
		}
		for _, leg := range legs {
			if err := recordTransaction(ctx, ds, MoveEvent{Key: key, From: task.SourceUnitID, To: dest.StorageUnitID, Quantity: leg.Quantity, Reference: task.DemandID}); err != nil {
				return err
			}
		}
		if err := ds.CompleteTask(ctx, taskID, dest.StorageUnitID, w.now()); err != nil {
			return err
		}
		if err := ds.AdjustLinePicked(ctx, task.LineID, task.Quantity); err != nil {
			return err
		}

		result.JobStatus, jobDone, err = advanceJob(ctx, ds, task.JobID)
		if err != nil {
			return err
		}
		result.DemandStatus, demandDone, err = advanceDemand(ctx, ds, task.DemandID)
		return err
	})
	if err != nil {
		var integrity *model.IntegrityError
		if errors.As(err, &integrity) {
			integrity.TaskID = taskID
			notification.NotifyError(integrity)
		}
		return nil, logAndRecordError(span, "task confirmation failed", err)
	}

	confirmed, err := w.datasource.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	result.Task = *confirmed

	logrus.WithFields(logrus.Fields{"task_id": taskID, "job_id": task.JobID, "demand_id": task.DemandID, "destination": dest.Code}).Info("task confirmed")
	w.emit(ctx, EventTaskConfirmed, result.Task)
	if jobDone {
		if job, err := w.datasource.GetJob(ctx, task.JobID); err == nil {
			w.emit(ctx, EventJobCompleted, job)
		}
	}
	if demandDone {
		if demand, err := w.datasource.GetDemand(ctx, task.DemandID); err == nil {
			w.emit(ctx, EventDemandCompleted, demand)
		}
	}
	return result, nil
}

// resolveDestination turns a scanned code into an outbox the demand may fill. Eligibility is read
// fresh so a cached unit never hides a lock taken since it was cached.
func (w *Wharf) resolveDestination(ctx context.Context, code, demandID string) (*model.StorageUnit, error) {
	unit, err := w.ResolveUnitByCode(ctx, code)
	if errors.Is(err, model.ErrNotFound) {
		return nil, &model.DestinationError{Code: code, Reason: "unknown storage unit", Suggestions: w.suggestOutboxes(ctx, code)}
	}
	if err != nil {
		return nil, err
	}

	fresh, err := w.datasource.GetStorageUnit(ctx, unit.StorageUnitID)
	if err != nil {
		return nil, err
	}
	if !fresh.EligibleAsDestinationFor(demandID) {
		reason := "not an open outbox"
		if fresh.Kind == model.KindOutbox && fresh.Status == model.UnitStatusOpen {
			reason = "locked to " + fresh.LockOwner
		}
		return nil, &model.DestinationError{Code: code, Reason: reason}
	}
	return fresh, nil
}

// advanceJob moves a job to IN_PROGRESS on its first confirmation and to COMPLETED on its last.
// Boxes reserved whole by a completed BOX_PICK job are unlocked.
func advanceJob(ctx context.Context, ds database.IDataSource, jobID string) (model.JobStatus, bool, error) {
	job, err := ds.GetJob(ctx, jobID)
	if err != nil {
		return "", false, err
	}

	for _, t := range job.Tasks {
		if t.Status != model.TaskCompleted {
			if job.Status == model.JobOpen {
				return model.JobInProgress, false, ds.UpdateJobStatus(ctx, jobID, model.JobInProgress)
			}
			return job.Status, false, nil
		}
	}

	if err := ds.UpdateJobStatus(ctx, jobID, model.JobCompleted); err != nil {
		return "", false, err
	}
	if job.Kind == model.JobBoxPick {
		if err := unlockBoxes(ctx, ds, job); err != nil {
			return "", false, err
		}
	}
	return model.JobCompleted, true, nil
}

// advanceDemand completes a demand once every line, item and box alike, is fully picked. Until
// then an allocated demand is marked IN_PROGRESS.
func advanceDemand(ctx context.Context, ds database.IDataSource, demandID string) (model.DemandStatus, bool, error) {
	demand, err := ds.GetDemand(ctx, demandID)
	if err != nil {
		return "", false, err
	}

	for _, line := range demand.Lines {
		if line.QuantityPicked < line.QuantityRequested {
			if demand.Status == model.DemandAllocated {
				return model.DemandInProgress, false, ds.UpdateDemandStatus(ctx, demandID, model.DemandInProgress, "")
			}
			return demand.Status, false, nil
		}
	}

	if err := ds.UpdateDemandStatus(ctx, demandID, model.DemandCompleted, ""); err != nil {
		return "", false, err
	}
	return model.DemandCompleted, true, nil
}

func unlockBoxes(ctx context.Context, ds database.IDataSource, job *model.PickingJob) error {
	seen := make(map[string]bool)
	for _, t := range job.Tasks {
		if seen[t.SourceUnitID] {
			continue
		}
		seen[t.SourceUnitID] = true
		if err := ds.SetStorageUnitLock(ctx, t.SourceUnitID, ""); err != nil {
			return err
		}
	}
	return nil
}
