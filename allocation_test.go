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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blnkfinance/wharf/allocator"
	"github.com/blnkfinance/wharf/database"
	"github.com/blnkfinance/wharf/database/memory"
	"github.com/blnkfinance/wharf/model"
)

func TestAllocateDemand_PrefersUnitCoveringMore(t *testing.T) {
	w, _, _ := newTestWharf(t)
	ctx := context.Background()
	p := productID()
	x := newUnit(t, w, "BX-X", model.KindStorage, "A", 0)
	y := newUnit(t, w, "BX-Y", model.KindStorage, "A", 0)
	receive(t, w, y, p, 3)
	receive(t, w, x, p, 5)
	order := newDemand(t, w, model.DemandOrder, line(p, 6))

	result, err := w.AllocateDemand(ctx, order.DemandID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.JobsCreated)
	assert.Equal(t, 2, result.TasksCreated)

	tasks := result.Jobs[0].Tasks
	assert.Equal(t, x.StorageUnitID, tasks[0].SourceUnitID)
	assert.Equal(t, int64(5), tasks[0].Quantity)
	assert.Equal(t, y.StorageUnitID, tasks[1].SourceUnitID)
	assert.Equal(t, int64(1), tasks[1].Quantity)
	assert.Equal(t, model.JobItemPick, result.Jobs[0].Kind)
	assert.Equal(t, "A", result.Jobs[0].Zone)

	assert.Equal(t, int64(6), lineReserved(t, w, order.DemandID)[p])
	assert.Equal(t, int64(5), reservedAt(t, w, x.StorageUnitID, p))
	assert.Equal(t, int64(1), reservedAt(t, w, y.StorageUnitID, p))
	assertLedgerInvariant(t, w, p)

	d, err := w.GetDemand(ctx, order.DemandID)
	require.NoError(t, err)
	assert.Equal(t, model.DemandAllocated, d.Status)

	txns, err := w.GetTransactions(ctx, order.DemandID)
	require.NoError(t, err)
	assert.Len(t, txns, 2)
	for _, txn := range txns {
		assert.Equal(t, model.TxnReserve, txn.Type)
	}
}

func TestAllocateDemand_TaskTotalsMatchReservedDelta(t *testing.T) {
	w, _, _ := newTestWharf(t)
	ctx := context.Background()
	p1, p2 := productID(), productID()
	a := newUnit(t, w, "BX-A", model.KindStorage, "A", 0)
	b := newUnit(t, w, "BX-B", model.KindStorage, "B", 1)
	receive(t, w, a, p1, 4)
	receive(t, w, a, p2, 1)
	receive(t, w, b, p1, 9)
	receive(t, w, b, p2, 7)
	order := newDemand(t, w, model.DemandOrder, line(p1, 8), line(p2, 5), line(p1, 2))

	result, err := w.AllocateDemand(ctx, order.DemandID)
	require.NoError(t, err)

	byProduct := make(map[string]int64)
	for _, task := range result.Jobs[0].Tasks {
		byProduct[task.ProductID] += task.Quantity
	}
	assert.Equal(t, lineReserved(t, w, order.DemandID), byProduct)
	assert.Equal(t, int64(10), byProduct[p1])
	assert.Empty(t, result.Jobs[0].Zone)
	assertLedgerInvariant(t, w, p1, p2)
}

func TestAllocateDemand_ExactStockLeavesNothingAvailable(t *testing.T) {
	w, _, _ := newTestWharf(t)
	p := productID()
	box := newUnit(t, w, "BX-1", model.KindStorage, "A", 0)
	receive(t, w, box, p, 4)
	order := newDemand(t, w, model.DemandOrder, line(p, 4))

	_, err := w.AllocateDemand(context.Background(), order.DemandID)
	require.NoError(t, err)

	rows := unitRows(t, w, box.StorageUnitID, p)
	require.Len(t, rows, 1)
	assert.Zero(t, rows[0].Available())
}

func TestAllocateDemand_OneOverIsShortByOne(t *testing.T) {
	w, _, _ := newTestWharf(t)
	ctx := context.Background()
	p := productID()
	box := newUnit(t, w, "BX-1", model.KindStorage, "A", 0)
	receive(t, w, box, p, 4)
	order := newDemand(t, w, model.DemandOrder, line(p, 5))

	_, err := w.AllocateDemand(ctx, order.DemandID)
	var shortage *allocator.ShortageError
	require.ErrorAs(t, err, &shortage)
	require.Len(t, shortage.Lines, 1)
	assert.Equal(t, int64(1), shortage.Lines[0].Missing)

	assert.Zero(t, reservedAt(t, w, box.StorageUnitID, p))
	jobs, err := w.ListJobs(ctx, database.JobFilter{})
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestAllocateDemand_ShortageListsEveryProductAndWritesNothing(t *testing.T) {
	w, _, _ := newTestWharf(t)
	ctx := context.Background()
	p, q := productID(), productID()
	a := newUnit(t, w, "BX-A", model.KindStorage, "A", 0)
	b := newUnit(t, w, "BX-B", model.KindStorage, "A", 0)
	receive(t, w, a, p, 4)
	receive(t, w, b, p, 3)
	receive(t, w, b, q, 1)
	order := newDemand(t, w, model.DemandOrder, line(p, 10), line(q, 3))

	_, err := w.AllocateDemand(ctx, order.DemandID)
	var shortage *allocator.ShortageError
	require.ErrorAs(t, err, &shortage)
	assert.Equal(t, []allocator.ShortageLine{
		{ProductID: p, Class: model.ClassPiece, Needed: 10, Available: 7, Missing: 3},
		{ProductID: q, Class: model.ClassPiece, Needed: 3, Available: 1, Missing: 2},
	}, shortage.Lines)

	assert.Zero(t, reservedAt(t, w, a.StorageUnitID, p))
	assert.Zero(t, reservedAt(t, w, b.StorageUnitID, p))
	assert.Empty(t, lineReserved(t, w, order.DemandID)[p])
	txns, err := w.GetTransactions(ctx, order.DemandID)
	require.NoError(t, err)
	assert.Empty(t, txns)

	d, err := w.GetDemand(ctx, order.DemandID)
	require.NoError(t, err)
	assert.Equal(t, model.DemandPending, d.Status)
}

func TestAllocateDemand_RejectsSecondRunWhileJobActive(t *testing.T) {
	w, _, _ := newTestWharf(t)
	p := productID()
	box := newUnit(t, w, "BX-1", model.KindStorage, "A", 0)
	receive(t, w, box, p, 10)
	order := newDemand(t, w, model.DemandOrder, line(p, 2))

	_, err := w.AllocateDemand(context.Background(), order.DemandID)
	require.NoError(t, err)
	_, err = w.AllocateDemand(context.Background(), order.DemandID)
	assert.ErrorIs(t, err, model.ErrDuplicateActiveJob)
	assert.Equal(t, int64(2), reservedAt(t, w, box.StorageUnitID, p))
}

func TestAllocateDemand_SkipsIneligibleUnits(t *testing.T) {
	w, store, _ := newTestWharf(t)
	ctx := context.Background()
	p := productID()
	locked := newUnit(t, w, "BX-L", model.KindStorage, "A", 0)
	outbox := newUnit(t, w, "OUT-1", model.KindOutbox, "A", 0)
	open := newUnit(t, w, "BX-O", model.KindStorage, "A", 0)
	receive(t, w, locked, p, 10)
	receive(t, w, open, p, 2)
	store.Seed(model.InventoryUnit{ProductID: p, Class: model.ClassPiece, StorageUnitID: outbox.StorageUnitID, PhysicalQuantity: 10})
	require.NoError(t, store.SetStorageUnitLock(ctx, locked.StorageUnitID, "trf_other"))

	order := newDemand(t, w, model.DemandOrder, line(p, 3))
	_, err := w.AllocateDemand(ctx, order.DemandID)
	var shortage *allocator.ShortageError
	require.ErrorAs(t, err, &shortage)
	assert.Equal(t, int64(2), shortage.Lines[0].Available)
}

func TestAllocateDemand_NothingOutstandingIsNoop(t *testing.T) {
	w, _, _ := newTestWharf(t)
	transfer := newDemand(t, w, model.DemandTransfer)

	result, err := w.AllocateDemand(context.Background(), transfer.DemandID)
	require.NoError(t, err)
	assert.Zero(t, result.JobsCreated)

	d, err := w.GetDemand(context.Background(), transfer.DemandID)
	require.NoError(t, err)
	assert.Equal(t, model.DemandPending, d.Status)
}

func TestAllocateDemand_UnknownDemand(t *testing.T) {
	w, _, _ := newTestWharf(t)
	_, err := w.AllocateDemand(context.Background(), "ord_missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

// racingStore lets a set number of row reservations through and then behaves as if another
// run took the remaining stock first.
type racingStore struct {
	*memory.Store
	allow int
	calls int
}

func (r *racingStore) WithinTransaction(ctx context.Context, fn func(ds database.IDataSource) error) error {
	return r.Store.WithinTransaction(ctx, func(ds database.IDataSource) error {
		return fn(&racingTx{IDataSource: ds, parent: r})
	})
}

type racingTx struct {
	database.IDataSource
	parent *racingStore
}

func (r *racingTx) ReserveRow(ctx context.Context, inventoryID string, qty int64) (bool, error) {
	r.parent.calls++
	if r.parent.calls > r.parent.allow {
		return false, nil
	}
	return r.IDataSource.ReserveRow(ctx, inventoryID, qty)
}

func TestAllocateDemand_LostRaceRollsBackWholeRun(t *testing.T) {
	w, store, _ := newTestWharf(t)
	ctx := context.Background()
	racing := &racingStore{Store: store, allow: 1}
	w.datasource = racing

	p, q := productID(), productID()
	a := newUnit(t, w, "BX-A", model.KindStorage, "A", 0)
	b := newUnit(t, w, "BX-B", model.KindStorage, "A", 0)
	receive(t, w, a, p, 5)
	receive(t, w, b, q, 5)
	order := newDemand(t, w, model.DemandOrder, line(p, 5), line(q, 5))

	_, err := w.AllocateDemand(ctx, order.DemandID)
	require.ErrorIs(t, err, model.ErrInsufficientAvailability)
	assert.Equal(t, 2, racing.calls)

	assert.Zero(t, reservedAt(t, w, a.StorageUnitID, p))
	assert.Zero(t, reservedAt(t, w, b.StorageUnitID, q))
	assert.Empty(t, lineReserved(t, w, order.DemandID)[p])

	jobs, err := w.ListJobs(ctx, database.JobFilter{})
	require.NoError(t, err)
	assert.Empty(t, jobs)
	txns, err := w.GetTransactions(ctx, order.DemandID)
	require.NoError(t, err)
	assert.Empty(t, txns)

	d, err := w.GetDemand(ctx, order.DemandID)
	require.NoError(t, err)
	assert.Equal(t, model.DemandPending, d.Status)
}
