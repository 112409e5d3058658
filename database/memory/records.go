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

package memory

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/blnkfinance/wharf/database"
	"github.com/blnkfinance/wharf/model"
)

func (s *Store) CreateLocation(_ context.Context, location model.Location) (model.Location, error) {
	defer s.lock()()
	for _, l := range s.data.locations {
		if l.Code == location.Code {
			return model.Location{}, errors.Wrapf(model.ErrAlreadyExists, "location %s", location.Code)
		}
	}
	location.LocationID = model.GenerateUUIDWithSuffix("loc")
	location.CreatedAt = time.Now()
	s.data.locations[location.LocationID] = location
	return location, nil
}

func (s *Store) GetLocation(_ context.Context, id string) (*model.Location, error) {
	defer s.lock()()
	l, ok := s.data.locations[id]
	if !ok {
		return nil, errors.Wrapf(model.ErrNotFound, "location %s", id)
	}
	return &l, nil
}

func (s *Store) CreateStorageUnit(_ context.Context, unit model.StorageUnit) (model.StorageUnit, error) {
	defer s.lock()()
	for _, u := range s.data.units {
		if u.Code == unit.Code {
			return model.StorageUnit{}, errors.Wrapf(model.ErrAlreadyExists, "storage unit %s", unit.Code)
		}
	}
	if unit.LocationID != "" {
		l, ok := s.data.locations[unit.LocationID]
		if !ok {
			return model.StorageUnit{}, errors.Wrapf(model.ErrNotFound, "location %s", unit.LocationID)
		}
		unit.Zone = l.Zone
		unit.Level = l.Level
	}
	if unit.Status == "" {
		unit.Status = model.UnitStatusOpen
	}
	unit.StorageUnitID = model.GenerateUUIDWithSuffix("su")
	unit.CreatedAt = time.Now()
	s.data.units[unit.StorageUnitID] = unit
	return unit, nil
}

func (s *Store) GetStorageUnit(_ context.Context, id string) (*model.StorageUnit, error) {
	defer s.lock()()
	u, ok := s.data.units[id]
	if !ok {
		return nil, errors.Wrapf(model.ErrNotFound, "storage unit %s", id)
	}
	return &u, nil
}

func (s *Store) GetStorageUnitByCode(_ context.Context, code string) (*model.StorageUnit, error) {
	defer s.lock()()
	for _, u := range s.data.units {
		if u.Code == code {
			return &u, nil
		}
	}
	return nil, errors.Wrapf(model.ErrNotFound, "storage unit with code %s", code)
}

func (s *Store) ListStorageUnitsByKind(_ context.Context, kind model.StorageUnitKind) ([]model.StorageUnit, error) {
	defer s.lock()()
	var out []model.StorageUnit
	for _, u := range s.data.units {
		if u.Kind == kind {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *Store) SetStorageUnitLock(_ context.Context, id string, owner string) error {
	defer s.lock()()
	u, ok := s.data.units[id]
	if !ok {
		return errors.Wrapf(model.ErrNotFound, "storage unit %s", id)
	}
	u.LockOwner = owner
	s.data.units[id] = u
	return nil
}

func (s *Store) CreateDemand(_ context.Context, d model.Demand) (model.Demand, error) {
	defer s.lock()()
	if d.DemandID == "" {
		prefix := "ord"
		if d.Kind == model.DemandTransfer {
			prefix = "trf"
		}
		d.DemandID = model.GenerateUUIDWithSuffix(prefix)
	}
	if _, exists := s.data.demands[d.DemandID]; exists {
		return model.Demand{}, errors.Wrapf(model.ErrAlreadyExists, "demand %s", d.DemandID)
	}
	if d.Status == "" {
		d.Status = model.DemandPending
	}
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	d = copyDemand(d)
	for i := range d.Lines {
		d.Lines[i].LineID = model.GenerateUUIDWithSuffix("line")
		d.Lines[i].DemandID = d.DemandID
	}
	s.data.demands[d.DemandID] = d
	return copyDemand(d), nil
}

func (s *Store) GetDemand(_ context.Context, id string) (*model.Demand, error) {
	defer s.lock()()
	d, ok := s.data.demands[id]
	if !ok {
		return nil, errors.Wrapf(model.ErrNotFound, "demand %s", id)
	}
	d = copyDemand(d)
	return &d, nil
}

func (s *Store) UpdateDemandStatus(_ context.Context, id string, status, prior model.DemandStatus) error {
	defer s.lock()()
	d, ok := s.data.demands[id]
	if !ok {
		return errors.Wrapf(model.ErrNotFound, "demand %s", id)
	}
	d.Status = status
	if prior != "" {
		d.PriorStatus = prior
	}
	d.UpdatedAt = time.Now()
	s.data.demands[id] = d
	return nil
}

func (s *Store) ApproveDemand(_ context.Context, id string, approvedBy string, at time.Time) error {
	defer s.lock()()
	d, ok := s.data.demands[id]
	if !ok || d.Status != model.DemandPending {
		return errors.Wrapf(model.ErrInvalidState, "demand %s is not pending", id)
	}
	d.Status = model.DemandApproved
	d.ApprovedBy = approvedBy
	d.ApprovedAt = &at
	d.UpdatedAt = at
	s.data.demands[id] = d
	return nil
}

func (s *Store) findLine(lineID string) (*model.DemandLine, bool) {
	for id, d := range s.data.demands {
		for i := range d.Lines {
			if d.Lines[i].LineID == lineID {
				return &s.data.demands[id].Lines[i], true
			}
		}
	}
	return nil, false
}

func (s *Store) AdjustLineReserved(_ context.Context, lineID string, delta int64) error {
	defer s.lock()()
	line, ok := s.findLine(lineID)
	if !ok {
		return errors.Wrapf(model.ErrInvalidState, "line %s cannot move reserved by %d", lineID, delta)
	}
	next := line.QuantityReserved + delta
	if next < line.QuantityPicked || next > line.QuantityRequested {
		return errors.Wrapf(model.ErrInvalidState, "line %s cannot move reserved by %d", lineID, delta)
	}
	line.QuantityReserved = next
	return nil
}

func (s *Store) AdjustLinePicked(_ context.Context, lineID string, delta int64) error {
	defer s.lock()()
	line, ok := s.findLine(lineID)
	if !ok {
		return errors.Wrapf(model.ErrInvalidState, "line %s cannot move picked by %d", lineID, delta)
	}
	next := line.QuantityPicked + delta
	if next < 0 || next > line.QuantityReserved {
		return errors.Wrapf(model.ErrInvalidState, "line %s cannot move picked by %d", lineID, delta)
	}
	line.QuantityPicked = next
	return nil
}

func (s *Store) UpsertBoxLine(_ context.Context, line model.DemandLine) (model.DemandLine, error) {
	defer s.lock()()
	d, ok := s.data.demands[line.DemandID]
	if !ok {
		return model.DemandLine{}, errors.Wrapf(model.ErrNotFound, "demand %s", line.DemandID)
	}
	for i := range d.Lines {
		l := &d.Lines[i]
		if l.BoxID == line.BoxID && l.Key() == line.Key() {
			l.QuantityRequested = line.QuantityRequested
			l.QuantityReserved = line.QuantityReserved
			return *l, nil
		}
	}
	line.LineID = model.GenerateUUIDWithSuffix("line")
	d.Lines = append(d.Lines, line)
	s.data.demands[line.DemandID] = d
	return line, nil
}

func (s *Store) LinkBox(_ context.Context, demandID, boxID string) error {
	defer s.lock()()
	d, ok := s.data.demands[demandID]
	if !ok {
		return errors.Wrapf(model.ErrNotFound, "demand %s", demandID)
	}
	for _, b := range d.Boxes {
		if b == boxID {
			return errors.Wrapf(model.ErrAlreadyExists, "box %s on %s", boxID, demandID)
		}
	}
	d.Boxes = append(d.Boxes, boxID)
	s.data.demands[demandID] = d
	return nil
}

func (s *Store) GetApprovedHolds(_ context.Context, key model.ProductKey, excludeDemandID string) (int64, error) {
	defer s.lock()()
	var held int64
	for id, d := range s.data.demands {
		if id == excludeDemandID || d.Kind != model.DemandTransfer || d.Status != model.DemandApproved {
			continue
		}
		for _, l := range d.Lines {
			if l.BoxID == "" && l.Key() == key {
				held += l.QuantityRequested - l.QuantityReserved
			}
		}
	}
	return held, nil
}

func (s *Store) jobIndex(id string) int {
	for i, j := range s.data.jobs {
		if j.JobID == id {
			return i
		}
	}
	return -1
}

func (s *Store) CreateJob(_ context.Context, job model.PickingJob) (model.PickingJob, error) {
	defer s.lock()()
	if job.JobID == "" {
		job.JobID = model.GenerateUUIDWithSuffix("job")
	}
	if s.jobIndex(job.JobID) >= 0 {
		return model.PickingJob{}, errors.Wrapf(model.ErrAlreadyExists, "job %s", job.JobID)
	}
	if job.Status == "" {
		job.Status = model.JobOpen
	}
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt
	job = copyJob(job)
	for i := range job.Tasks {
		t := &job.Tasks[i]
		t.TaskID = model.GenerateUUIDWithSuffix("task")
		t.JobID = job.JobID
		t.Sequence = i + 1
		if t.Status == "" {
			t.Status = model.TaskPending
		}
	}
	s.data.jobs = append(s.data.jobs, job)
	return copyJob(job), nil
}

func (s *Store) GetJob(_ context.Context, id string) (*model.PickingJob, error) {
	defer s.lock()()
	i := s.jobIndex(id)
	if i < 0 {
		return nil, errors.Wrapf(model.ErrNotFound, "job %s", id)
	}
	job := copyJob(s.data.jobs[i])
	return &job, nil
}

func (s *Store) ListJobs(_ context.Context, filter database.JobFilter) ([]model.PickingJob, error) {
	defer s.lock()()
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	var out []model.PickingJob
	skipped := 0
	for i := len(s.data.jobs) - 1; i >= 0 && len(out) < limit; i-- {
		j := s.data.jobs[i]
		if filter.Status != "" && j.Status != filter.Status {
			continue
		}
		if filter.Zone != "" && j.Zone != filter.Zone {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, copyJob(j))
	}
	return out, nil
}

func (s *Store) ListJobsByDemand(_ context.Context, demandID string) ([]model.PickingJob, error) {
	defer s.lock()()
	var out []model.PickingJob
	for _, j := range s.data.jobs {
		if j.DemandID == demandID || holdsDemand(j, demandID) {
			out = append(out, copyJob(j))
		}
	}
	return out, nil
}

func holdsDemand(j model.PickingJob, demandID string) bool {
	for _, t := range j.Tasks {
		if t.DemandID == demandID {
			return true
		}
	}
	return false
}

func (s *Store) UpdateJobStatus(_ context.Context, id string, status model.JobStatus) error {
	defer s.lock()()
	i := s.jobIndex(id)
	if i < 0 {
		return errors.Wrapf(model.ErrNotFound, "job %s", id)
	}
	s.data.jobs[i].Status = status
	s.data.jobs[i].UpdatedAt = time.Now()
	return nil
}

func (s *Store) DeleteJob(_ context.Context, id string) error {
	defer s.lock()()
	i := s.jobIndex(id)
	if i < 0 {
		return errors.Wrapf(model.ErrNotFound, "job %s", id)
	}
	s.data.jobs = append(s.data.jobs[:i], s.data.jobs[i+1:]...)
	return nil
}

func (s *Store) findTask(id string) (*model.PickingTask, bool) {
	for i := range s.data.jobs {
		for k := range s.data.jobs[i].Tasks {
			if s.data.jobs[i].Tasks[k].TaskID == id {
				return &s.data.jobs[i].Tasks[k], true
			}
		}
	}
	return nil, false
}

func (s *Store) GetTask(_ context.Context, id string) (*model.PickingTask, error) {
	defer s.lock()()
	t, ok := s.findTask(id)
	if !ok {
		return nil, errors.Wrapf(model.ErrNotFound, "task %s", id)
	}
	task := *t
	return &task, nil
}

func (s *Store) CompleteTask(_ context.Context, id, destinationUnitID string, at time.Time) error {
	defer s.lock()()
	t, ok := s.findTask(id)
	if !ok || t.Status != model.TaskPending {
		return errors.Wrapf(model.ErrInvalidState, "task %s is not pending", id)
	}
	t.Status = model.TaskCompleted
	t.DestinationUnitID = destinationUnitID
	t.CompletedAt = &at
	return nil
}

func (s *Store) RecordTransaction(_ context.Context, txn *model.Transaction) (*model.Transaction, error) {
	defer s.lock()()
	if txn.TransactionID == "" {
		txn.TransactionID = model.GenerateUUIDWithSuffix("txn")
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now()
	}
	s.data.txns = append(s.data.txns, *txn)
	return txn, nil
}

func (s *Store) GetTransactionsByReference(_ context.Context, referenceID string) ([]model.Transaction, error) {
	defer s.lock()()
	var out []model.Transaction
	for _, t := range s.data.txns {
		if t.ReferenceID == referenceID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) RecordPickException(_ context.Context, exception *model.PickException) (*model.PickException, error) {
	defer s.lock()()
	exception.ExceptionID = model.GenerateUUIDWithSuffix("exc")
	exception.CreatedAt = time.Now()
	s.data.exceptions[exception.ExceptionID] = *exception
	return exception, nil
}

func (s *Store) GetPickException(_ context.Context, id string) (*model.PickException, error) {
	defer s.lock()()
	e, ok := s.data.exceptions[id]
	if !ok {
		return nil, errors.Wrapf(model.ErrNotFound, "exception %s", id)
	}
	return &e, nil
}
