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

package database

import (
	"context"
	"time"

	"github.com/blnkfinance/wharf/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	inventory     // Ledger rows and their row-level mutations
	directory     // Locations and storage units
	demand        // Orders, transfers and their lines
	job           // Picking jobs and tasks
	audit         // Append-only transaction log
	pickException // Exceptions raised by pickers

	// WithinTransaction runs fn against a datasource bound to a single unit of work.
	// The work is committed when fn returns nil and rolled back otherwise.
	WithinTransaction(ctx context.Context, fn func(ds IDataSource) error) error
}

// JobFilter narrows ListJobs. Empty fields match everything.
type JobFilter struct {
	Status model.JobStatus
	Zone   string
	Limit  int
	Offset int
}

// inventory defines the row-level ledger primitives. Pair-level semantics (reserve, release,
// settle across every row of a product in a unit) are built on top of these.
type inventory interface {
	GetStock(ctx context.Context, keys []model.ProductKey) ([]model.StockRow, error)                                 // Rows for keys joined with their unit, in discovery order
	GetUnitInventory(ctx context.Context, storageUnitID string) ([]model.InventoryUnit, error)                       // Every row held by a unit
	GetInventoryRows(ctx context.Context, key model.ProductKey, storageUnitID string) ([]model.InventoryUnit, error) // Rows of one product in one unit, locked inside a transaction
	ReserveRow(ctx context.Context, inventoryID string, qty int64) (bool, error)                                     // Conditional reserved += qty; false when it would exceed physical
	ReleaseRow(ctx context.Context, inventoryID string, qty int64) error                                             // reserved -= qty, clamped at zero
	DeductRow(ctx context.Context, inventoryID string, qty int64) (model.InventoryUnit, error)                       // physical -= qty, reserved -= qty (clamped); rows reaching zero are deleted
	AddStock(ctx context.Context, row model.InventoryUnit) (model.InventoryUnit, error)                              // Merges into the row for (product, unit, class) or creates it
}

// directory defines methods for locations and storage units.
type directory interface {
	CreateLocation(ctx context.Context, location model.Location) (model.Location, error)
	GetLocation(ctx context.Context, id string) (*model.Location, error)
	CreateStorageUnit(ctx context.Context, unit model.StorageUnit) (model.StorageUnit, error)
	GetStorageUnit(ctx context.Context, id string) (*model.StorageUnit, error)
	GetStorageUnitByCode(ctx context.Context, code string) (*model.StorageUnit, error)
	ListStorageUnitsByKind(ctx context.Context, kind model.StorageUnitKind) ([]model.StorageUnit, error)
	SetStorageUnitLock(ctx context.Context, id string, owner string) error // Empty owner unlocks
}

// demand defines methods for orders, transfers and their lines.
type demand interface {
	CreateDemand(ctx context.Context, d model.Demand) (model.Demand, error)
	GetDemand(ctx context.Context, id string) (*model.Demand, error) // Includes lines and linked boxes
	UpdateDemandStatus(ctx context.Context, id string, status, prior model.DemandStatus) error
	ApproveDemand(ctx context.Context, id string, approvedBy string, at time.Time) error
	AdjustLineReserved(ctx context.Context, lineID string, delta int64) error // Fails when the result leaves [picked, requested]
	AdjustLinePicked(ctx context.Context, lineID string, delta int64) error   // Fails when the result exceeds reserved
	UpsertBoxLine(ctx context.Context, line model.DemandLine) (model.DemandLine, error)
	LinkBox(ctx context.Context, demandID, boxID string) error
	GetApprovedHolds(ctx context.Context, key model.ProductKey, excludeDemandID string) (int64, error) // Unreserved quantity held by other APPROVED transfers
}

// job defines methods for picking jobs and their tasks.
type job interface {
	CreateJob(ctx context.Context, job model.PickingJob) (model.PickingJob, error) // Persists the job header and its tasks
	GetJob(ctx context.Context, id string) (*model.PickingJob, error)              // Includes tasks ordered by sequence
	ListJobs(ctx context.Context, filter JobFilter) ([]model.PickingJob, error)
	ListJobsByDemand(ctx context.Context, demandID string) ([]model.PickingJob, error) // Direct jobs plus wave jobs carrying tasks for the demand
	UpdateJobStatus(ctx context.Context, id string, status model.JobStatus) error
	DeleteJob(ctx context.Context, id string) error // Cascades to tasks
	GetTask(ctx context.Context, id string) (*model.PickingTask, error)
	CompleteTask(ctx context.Context, id, destinationUnitID string, at time.Time) error // Only PENDING tasks transition
}

// audit defines methods for the transaction log.
type audit interface {
	RecordTransaction(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)
	GetTransactionsByReference(ctx context.Context, referenceID string) ([]model.Transaction, error)
}

// pickException defines methods for exceptions raised mid-pick.
type pickException interface {
	RecordPickException(ctx context.Context, exception *model.PickException) (*model.PickException, error)
	GetPickException(ctx context.Context, id string) (*model.PickException, error)
}
