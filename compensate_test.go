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

	"github.com/blnkfinance/wharf/model"
)

func TestDeleteJob_RestoresReservationsExactly(t *testing.T) {
	w, store, _ := newTestWharf(t)
	ctx := context.Background()
	p, q := productID(), productID()
	x := newUnit(t, w, "BX-X", model.KindStorage, "A", 0)
	y := newUnit(t, w, "BX-Y", model.KindStorage, "A", 1)
	receive(t, w, x, p, 5)
	receive(t, w, y, p, 3)
	receive(t, w, y, q, 4)

	// stock already promised to an earlier order must come back untouched
	earlier := newDemand(t, w, model.DemandOrder, line(q, 1))
	_, err := w.AllocateDemand(ctx, earlier.DemandID)
	require.NoError(t, err)

	keys := []model.ProductKey{{Class: model.ClassPiece, ProductID: p}, {Class: model.ClassPiece, ProductID: q}}
	before, err := store.GetStock(ctx, keys)
	require.NoError(t, err)

	order := newDemand(t, w, model.DemandOrder, line(p, 6), line(q, 2))
	result, err := w.AllocateDemand(ctx, order.DemandID)
	require.NoError(t, err)

	require.NoError(t, w.DeleteJob(ctx, result.Jobs[0].JobID))

	after, err := store.GetStock(ctx, keys)
	require.NoError(t, err)
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].ReservedQuantity, after[i].ReservedQuantity, "row %s", before[i].InventoryID)
		assert.Equal(t, before[i].PhysicalQuantity, after[i].PhysicalQuantity, "row %s", before[i].InventoryID)
	}

	d, err := w.GetDemand(ctx, order.DemandID)
	require.NoError(t, err)
	assert.Equal(t, model.DemandPending, d.Status)
	for _, l := range d.Lines {
		assert.Zero(t, l.QuantityReserved)
	}

	txns, err := w.GetTransactions(ctx, order.DemandID)
	require.NoError(t, err)
	var released int64
	for _, txn := range txns {
		if txn.Type == model.TxnRelease {
			released += txn.Quantity
		}
	}
	assert.Equal(t, int64(8), released)

	_, err = w.GetJob(ctx, result.Jobs[0].JobID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	again, err := w.AllocateDemand(ctx, order.DemandID)
	require.NoError(t, err)
	assert.Equal(t, 1, again.JobsCreated)
}

func TestDeleteJob_SecondDeleteNeverReleasesTwice(t *testing.T) {
	w, _, _ := newTestWharf(t)
	ctx := context.Background()
	p := productID()
	box := newUnit(t, w, "BX-1", model.KindStorage, "A", 0)
	receive(t, w, box, p, 10)

	first := newDemand(t, w, model.DemandOrder, line(p, 4))
	second := newDemand(t, w, model.DemandOrder, line(p, 3))
	r1, err := w.AllocateDemand(ctx, first.DemandID)
	require.NoError(t, err)
	_, err = w.AllocateDemand(ctx, second.DemandID)
	require.NoError(t, err)

	require.NoError(t, w.DeleteJob(ctx, r1.Jobs[0].JobID))
	err = w.DeleteJob(ctx, r1.Jobs[0].JobID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	assert.Equal(t, int64(3), reservedAt(t, w, box.StorageUnitID, p))
	assert.Equal(t, int64(3), lineReserved(t, w, second.DemandID)[p])
}

func TestDeleteJob_StartedJobIsNotCancellable(t *testing.T) {
	w, _, _ := newTestWharf(t)
	ctx := context.Background()
	p := productID()
	x := newUnit(t, w, "BX-X", model.KindStorage, "A", 0)
	y := newUnit(t, w, "BX-Y", model.KindStorage, "A", 0)
	newUnit(t, w, "OUT-1", model.KindOutbox, "A", 0)
	receive(t, w, x, p, 5)
	receive(t, w, y, p, 3)
	order := newDemand(t, w, model.DemandOrder, line(p, 6))

	result, err := w.AllocateDemand(ctx, order.DemandID)
	require.NoError(t, err)
	job := result.Jobs[0]
	_, err = w.ConfirmTask(ctx, job.Tasks[0].TaskID, "OUT-1")
	require.NoError(t, err)

	err = w.DeleteJob(ctx, job.JobID)
	assert.ErrorIs(t, err, model.ErrJobNotCancellable)
	assert.Equal(t, int64(1), reservedAt(t, w, y.StorageUnitID, p))
}

func TestDeleteJob_TransferReturnsToApprovedWithoutReleaseAudit(t *testing.T) {
	w, _, _ := newTestWharf(t)
	ctx := context.Background()
	p := productID()
	box := newUnit(t, w, "BX-1", model.KindStorage, "A", 0)
	receive(t, w, box, p, 10)
	transfer := newDemand(t, w, model.DemandTransfer, line(p, 4))

	_, err := w.ApproveReservation(ctx, transfer.DemandID, "user_1")
	require.NoError(t, err)
	result, err := w.AllocateDemand(ctx, transfer.DemandID)
	require.NoError(t, err)
	assert.Equal(t, model.JobTransferPick, result.Jobs[0].Kind)

	d, err := w.GetDemand(ctx, transfer.DemandID)
	require.NoError(t, err)
	assert.Equal(t, model.DemandAllocated, d.Status)
	assert.Equal(t, model.DemandApproved, d.PriorStatus)

	require.NoError(t, w.DeleteJob(ctx, result.Jobs[0].JobID))

	d, err = w.GetDemand(ctx, transfer.DemandID)
	require.NoError(t, err)
	assert.Equal(t, model.DemandApproved, d.Status)
	assert.Zero(t, reservedAt(t, w, box.StorageUnitID, p))

	txns, err := w.GetTransactions(ctx, transfer.DemandID)
	require.NoError(t, err)
	for _, txn := range txns {
		assert.NotEqual(t, model.TxnRelease, txn.Type)
	}
}

func TestDeleteJob_UnknownJob(t *testing.T) {
	w, _, _ := newTestWharf(t)
	assert.ErrorIs(t, w.DeleteJob(context.Background(), "job_missing"), model.ErrNotFound)
}
