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
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/blnkfinance/wharf/database"
	"github.com/blnkfinance/wharf/model"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

var _ database.IDataSource = (*MockDataSource)(nil)

// WithinTransaction runs fn against the mock itself so expectations set on m apply inside
// the unit of work.
func (m *MockDataSource) WithinTransaction(ctx context.Context, fn func(ds database.IDataSource) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m)
}

// Inventory methods

func (m *MockDataSource) GetStock(ctx context.Context, keys []model.ProductKey) ([]model.StockRow, error) {
	args := m.Called(ctx, keys)
	return args.Get(0).([]model.StockRow), args.Error(1)
}

func (m *MockDataSource) GetUnitInventory(ctx context.Context, storageUnitID string) ([]model.InventoryUnit, error) {
	args := m.Called(ctx, storageUnitID)
	return args.Get(0).([]model.InventoryUnit), args.Error(1)
}

func (m *MockDataSource) GetInventoryRows(ctx context.Context, key model.ProductKey, storageUnitID string) ([]model.InventoryUnit, error) {
	args := m.Called(ctx, key, storageUnitID)
	return args.Get(0).([]model.InventoryUnit), args.Error(1)
}

func (m *MockDataSource) ReserveRow(ctx context.Context, inventoryID string, qty int64) (bool, error) {
	args := m.Called(ctx, inventoryID, qty)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) ReleaseRow(ctx context.Context, inventoryID string, qty int64) error {
	args := m.Called(ctx, inventoryID, qty)
	return args.Error(0)
}

func (m *MockDataSource) DeductRow(ctx context.Context, inventoryID string, qty int64) (model.InventoryUnit, error) {
	args := m.Called(ctx, inventoryID, qty)
	return args.Get(0).(model.InventoryUnit), args.Error(1)
}

func (m *MockDataSource) AddStock(ctx context.Context, row model.InventoryUnit) (model.InventoryUnit, error) {
	args := m.Called(ctx, row)
	return args.Get(0).(model.InventoryUnit), args.Error(1)
}

// Directory methods

func (m *MockDataSource) CreateLocation(ctx context.Context, location model.Location) (model.Location, error) {
	args := m.Called(ctx, location)
	return args.Get(0).(model.Location), args.Error(1)
}

func (m *MockDataSource) GetLocation(ctx context.Context, id string) (*model.Location, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Location), args.Error(1)
}

func (m *MockDataSource) CreateStorageUnit(ctx context.Context, unit model.StorageUnit) (model.StorageUnit, error) {
	args := m.Called(ctx, unit)
	return args.Get(0).(model.StorageUnit), args.Error(1)
}

func (m *MockDataSource) GetStorageUnit(ctx context.Context, id string) (*model.StorageUnit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StorageUnit), args.Error(1)
}

func (m *MockDataSource) GetStorageUnitByCode(ctx context.Context, code string) (*model.StorageUnit, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StorageUnit), args.Error(1)
}

func (m *MockDataSource) ListStorageUnitsByKind(ctx context.Context, kind model.StorageUnitKind) ([]model.StorageUnit, error) {
	args := m.Called(ctx, kind)
	return args.Get(0).([]model.StorageUnit), args.Error(1)
}

func (m *MockDataSource) SetStorageUnitLock(ctx context.Context, id string, owner string) error {
	args := m.Called(ctx, id, owner)
	return args.Error(0)
}

// Demand methods

func (m *MockDataSource) CreateDemand(ctx context.Context, d model.Demand) (model.Demand, error) {
	args := m.Called(ctx, d)
	return args.Get(0).(model.Demand), args.Error(1)
}

func (m *MockDataSource) GetDemand(ctx context.Context, id string) (*model.Demand, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Demand), args.Error(1)
}

func (m *MockDataSource) UpdateDemandStatus(ctx context.Context, id string, status, prior model.DemandStatus) error {
	args := m.Called(ctx, id, status, prior)
	return args.Error(0)
}

func (m *MockDataSource) ApproveDemand(ctx context.Context, id string, approvedBy string, at time.Time) error {
	args := m.Called(ctx, id, approvedBy, at)
	return args.Error(0)
}

func (m *MockDataSource) AdjustLineReserved(ctx context.Context, lineID string, delta int64) error {
	args := m.Called(ctx, lineID, delta)
	return args.Error(0)
}

func (m *MockDataSource) AdjustLinePicked(ctx context.Context, lineID string, delta int64) error {
	args := m.Called(ctx, lineID, delta)
	return args.Error(0)
}

func (m *MockDataSource) UpsertBoxLine(ctx context.Context, line model.DemandLine) (model.DemandLine, error) {
	args := m.Called(ctx, line)
	return args.Get(0).(model.DemandLine), args.Error(1)
}

func (m *MockDataSource) LinkBox(ctx context.Context, demandID, boxID string) error {
	args := m.Called(ctx, demandID, boxID)
	return args.Error(0)
}

func (m *MockDataSource) GetApprovedHolds(ctx context.Context, key model.ProductKey, excludeDemandID string) (int64, error) {
	args := m.Called(ctx, key, excludeDemandID)
	return args.Get(0).(int64), args.Error(1)
}

// Job methods

func (m *MockDataSource) CreateJob(ctx context.Context, job model.PickingJob) (model.PickingJob, error) {
	args := m.Called(ctx, job)
	return args.Get(0).(model.PickingJob), args.Error(1)
}

func (m *MockDataSource) GetJob(ctx context.Context, id string) (*model.PickingJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PickingJob), args.Error(1)
}

func (m *MockDataSource) ListJobs(ctx context.Context, filter database.JobFilter) ([]model.PickingJob, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]model.PickingJob), args.Error(1)
}

func (m *MockDataSource) ListJobsByDemand(ctx context.Context, demandID string) ([]model.PickingJob, error) {
	args := m.Called(ctx, demandID)
	return args.Get(0).([]model.PickingJob), args.Error(1)
}

func (m *MockDataSource) UpdateJobStatus(ctx context.Context, id string, status model.JobStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockDataSource) DeleteJob(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDataSource) GetTask(ctx context.Context, id string) (*model.PickingTask, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PickingTask), args.Error(1)
}

func (m *MockDataSource) CompleteTask(ctx context.Context, id, destinationUnitID string, at time.Time) error {
	args := m.Called(ctx, id, destinationUnitID, at)
	return args.Error(0)
}

// Audit and exception methods

func (m *MockDataSource) RecordTransaction(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	args := m.Called(ctx, txn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockDataSource) GetTransactionsByReference(ctx context.Context, referenceID string) ([]model.Transaction, error) {
	args := m.Called(ctx, referenceID)
	return args.Get(0).([]model.Transaction), args.Error(1)
}

func (m *MockDataSource) RecordPickException(ctx context.Context, exception *model.PickException) (*model.PickException, error) {
	args := m.Called(ctx, exception)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PickException), args.Error(1)
}

func (m *MockDataSource) GetPickException(ctx context.Context, id string) (*model.PickException, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PickException), args.Error(1)
}
