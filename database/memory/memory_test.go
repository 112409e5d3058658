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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blnkfinance/wharf/database"
	"github.com/blnkfinance/wharf/model"
)

func storageUnit(t *testing.T, s *Store, code, zone string, level int) model.StorageUnit {
	t.Helper()
	ctx := context.Background()
	loc, err := s.CreateLocation(ctx, model.Location{Code: "LOC-" + code, Zone: zone, Level: level})
	require.NoError(t, err)
	unit, err := s.CreateStorageUnit(ctx, model.StorageUnit{Code: code, Kind: model.KindStorage, LocationID: loc.LocationID})
	require.NoError(t, err)
	return unit
}

func TestWithinTransaction_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	unit := storageUnit(t, s, "BX-1", "A", 0)
	row, err := s.AddStock(ctx, model.InventoryUnit{ProductID: "P1", StorageUnitID: unit.StorageUnitID, Class: model.ClassPiece, PhysicalQuantity: 5})
	require.NoError(t, err)

	failure := errors.New("second reservation failed")
	err = s.WithinTransaction(ctx, func(tx database.IDataSource) error {
		ok, err := tx.ReserveRow(ctx, row.InventoryID, 4)
		require.NoError(t, err)
		require.True(t, ok)
		return failure
	})
	assert.ErrorIs(t, err, failure)

	rows, err := s.GetInventoryRows(ctx, row.Key(), unit.StorageUnitID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(0), rows[0].ReservedQuantity)
}

func TestWithinTransaction_Commits(t *testing.T) {
	ctx := context.Background()
	s := New()
	unit := storageUnit(t, s, "BX-1", "A", 0)
	row, err := s.AddStock(ctx, model.InventoryUnit{ProductID: "P1", StorageUnitID: unit.StorageUnitID, Class: model.ClassPiece, PhysicalQuantity: 5})
	require.NoError(t, err)

	err = s.WithinTransaction(ctx, func(tx database.IDataSource) error {
		return tx.WithinTransaction(ctx, func(inner database.IDataSource) error {
			_, err := inner.ReserveRow(ctx, row.InventoryID, 5)
			return err
		})
	})
	require.NoError(t, err)

	ok, err := s.ReserveRow(ctx, row.InventoryID, 1)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestAddStock_MergesByProductUnitAndClass(t *testing.T) {
	ctx := context.Background()
	s := New()
	unit := storageUnit(t, s, "BX-1", "A", 0)

	first, err := s.AddStock(ctx, model.InventoryUnit{ProductID: "P1", StorageUnitID: unit.StorageUnitID, Class: model.ClassPiece, PhysicalQuantity: 2})
	require.NoError(t, err)
	merged, err := s.AddStock(ctx, model.InventoryUnit{ProductID: "P1", StorageUnitID: unit.StorageUnitID, Class: model.ClassPiece, PhysicalQuantity: 3})
	require.NoError(t, err)
	bulk, err := s.AddStock(ctx, model.InventoryUnit{ProductID: "P1", StorageUnitID: unit.StorageUnitID, Class: model.ClassBulk, PhysicalQuantity: 1})
	require.NoError(t, err)

	assert.Equal(t, first.InventoryID, merged.InventoryID)
	assert.Equal(t, int64(5), merged.PhysicalQuantity)
	assert.NotEqual(t, first.InventoryID, bulk.InventoryID)

	stock, err := s.GetStock(ctx, []model.ProductKey{{Class: model.ClassPiece, ProductID: "P1"}})
	require.NoError(t, err)
	require.Len(t, stock, 1)
	assert.Equal(t, "A", stock[0].Unit.Zone)
}

func TestDeductRow(t *testing.T) {
	ctx := context.Background()
	s := New()
	unit := storageUnit(t, s, "BX-1", "A", 0)
	s.Seed(model.InventoryUnit{InventoryID: "inv_1", ProductID: "P1", StorageUnitID: unit.StorageUnitID, Class: model.ClassPiece, PhysicalQuantity: 5, ReservedQuantity: 5})

	left, err := s.DeductRow(ctx, "inv_1", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), left.PhysicalQuantity)
	assert.Equal(t, int64(3), left.ReservedQuantity)

	_, err = s.DeductRow(ctx, "inv_1", 4)
	assert.ErrorIs(t, err, model.ErrInsufficientPhysicalStock)

	left, err = s.DeductRow(ctx, "inv_1", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(0), left.PhysicalQuantity)

	rows, err := s.GetUnitInventory(ctx, unit.StorageUnitID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReleaseRow_Clamps(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Seed(model.InventoryUnit{InventoryID: "inv_1", ProductID: "P1", StorageUnitID: "su_1", Class: model.ClassPiece, PhysicalQuantity: 5, ReservedQuantity: 2})

	require.NoError(t, s.ReleaseRow(ctx, "inv_1", 10))
	rows, err := s.GetInventoryRows(ctx, model.ProductKey{Class: model.ClassPiece, ProductID: "P1"}, "su_1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows[0].ReservedQuantity)
}

func TestDemandLineCounters(t *testing.T) {
	ctx := context.Background()
	s := New()
	d, err := s.CreateDemand(ctx, model.Demand{Kind: model.DemandOrder, Lines: []model.DemandLine{{ProductID: "P1", Class: model.ClassPiece, QuantityRequested: 4}}})
	require.NoError(t, err)
	lineID := d.Lines[0].LineID

	require.NoError(t, s.AdjustLineReserved(ctx, lineID, 4))
	assert.ErrorIs(t, s.AdjustLineReserved(ctx, lineID, 1), model.ErrInvalidState)
	require.NoError(t, s.AdjustLinePicked(ctx, lineID, 3))
	assert.ErrorIs(t, s.AdjustLineReserved(ctx, lineID, -2), model.ErrInvalidState)

	got, err := s.GetDemand(ctx, d.DemandID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.Lines[0].QuantityReserved)
	assert.Equal(t, int64(3), got.Lines[0].QuantityPicked)
}

func TestApprovedHolds(t *testing.T) {
	ctx := context.Background()
	s := New()
	key := model.ProductKey{Class: model.ClassPiece, ProductID: "P1"}

	approved, err := s.CreateDemand(ctx, model.Demand{Kind: model.DemandTransfer, Lines: []model.DemandLine{{ProductID: "P1", Class: model.ClassPiece, QuantityRequested: 4}}})
	require.NoError(t, err)
	_, err = s.CreateDemand(ctx, model.Demand{Kind: model.DemandTransfer, Lines: []model.DemandLine{{ProductID: "P1", Class: model.ClassPiece, QuantityRequested: 9}}})
	require.NoError(t, err)

	require.NoError(t, s.ApproveDemand(ctx, approved.DemandID, "u_1", approved.CreatedAt))
	assert.ErrorIs(t, s.ApproveDemand(ctx, approved.DemandID, "u_1", approved.CreatedAt), model.ErrInvalidState)

	held, err := s.GetApprovedHolds(ctx, key, "trf_other")
	require.NoError(t, err)
	assert.Equal(t, int64(4), held)

	held, err = s.GetApprovedHolds(ctx, key, approved.DemandID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), held)
}

func TestJobs(t *testing.T) {
	ctx := context.Background()
	s := New()

	direct, err := s.CreateJob(ctx, model.PickingJob{DemandID: "ord_1", Kind: model.JobItemPick, Zone: "A",
		Tasks: []model.PickingTask{{DemandID: "ord_1", ProductID: "P1", Quantity: 1}}})
	require.NoError(t, err)
	wave, err := s.CreateJob(ctx, model.PickingJob{WaveID: "wave_1", Kind: model.JobWavePick, Zone: "B",
		Tasks: []model.PickingTask{{DemandID: "ord_2", ProductID: "P1", Quantity: 1}, {DemandID: "ord_1", ProductID: "P2", Quantity: 2}}})
	require.NoError(t, err)
	assert.Equal(t, 2, wave.Tasks[1].Sequence)

	jobs, err := s.ListJobsByDemand(ctx, "ord_1")
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	jobs, err = s.ListJobs(ctx, database.JobFilter{Zone: "B"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, wave.JobID, jobs[0].JobID)

	taskID := direct.Tasks[0].TaskID
	require.NoError(t, s.CompleteTask(ctx, taskID, "su_out", direct.CreatedAt))
	assert.ErrorIs(t, s.CompleteTask(ctx, taskID, "su_out", direct.CreatedAt), model.ErrInvalidState)

	require.NoError(t, s.DeleteJob(ctx, wave.JobID))
	assert.ErrorIs(t, s.DeleteJob(ctx, wave.JobID), model.ErrNotFound)
	_, err = s.GetTask(ctx, wave.Tasks[0].TaskID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
