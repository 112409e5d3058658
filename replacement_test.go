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

func TestReplacementSuggestions_RankNearestFirst(t *testing.T) {
	w, store, _ := newTestWharf(t)
	ctx := context.Background()
	p := productID()
	source := newUnit(t, w, "A-01", model.KindStorage, "A", 1)
	receive(t, w, source, p, 5)
	order := newDemand(t, w, model.DemandOrder, line(p, 5))
	result, err := w.AllocateDemand(ctx, order.DemandID)
	require.NoError(t, err)
	task := result.Jobs[0].Tasks[0]

	far := newUnit(t, w, "B-01", model.KindStorage, "B", 1)
	high := newUnit(t, w, "A-03", model.KindStorage, "A", 3)
	near := newUnit(t, w, "A-02", model.KindStorage, "A", 1)
	nearBig := newUnit(t, w, "A-04", model.KindStorage, "A", 1)
	locked := newUnit(t, w, "A-05", model.KindStorage, "A", 1)
	receive(t, w, far, p, 50)
	receive(t, w, high, p, 10)
	receive(t, w, near, p, 2)
	receive(t, w, nearBig, p, 7)
	receive(t, w, locked, p, 9)
	require.NoError(t, store.SetStorageUnitLock(ctx, locked.StorageUnitID, "trf_other"))

	exception, err := w.ReportPickException(ctx, task.TaskID, 2, "damaged")
	require.NoError(t, err)
	assert.Equal(t, int64(5), exception.RequestedQty)
	assert.Equal(t, int64(2), exception.AvailableQty)
	assert.Equal(t, source.StorageUnitID, exception.SourceUnitID)

	suggestions, err := w.ReplacementSuggestions(ctx, exception.ExceptionID)
	require.NoError(t, err)
	codes := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		codes = append(codes, s.UnitCode)
	}
	assert.Equal(t, []string{"A-04", "A-02", "A-03", "B-01"}, codes)
	assert.Equal(t, int64(7), suggestions[0].AvailableQty)

	pending, err := w.datasource.GetTask(ctx, task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskPending, pending.Status)
}

func TestReportPickException_Validation(t *testing.T) {
	w, _, _ := newTestWharf(t)
	ctx := context.Background()
	p := productID()
	source := newUnit(t, w, "A-01", model.KindStorage, "A", 0)
	newUnit(t, w, "OUT-1", model.KindOutbox, "A", 0)
	receive(t, w, source, p, 5)
	order := newDemand(t, w, model.DemandOrder, line(p, 5))
	result, err := w.AllocateDemand(ctx, order.DemandID)
	require.NoError(t, err)
	taskID := result.Jobs[0].Tasks[0].TaskID

	_, err = w.ReportPickException(ctx, taskID, 5, "miscount")
	assert.ErrorIs(t, err, model.ErrInvalidState)
	_, err = w.ReportPickException(ctx, taskID, -1, "miscount")
	assert.ErrorIs(t, err, model.ErrInvalidState)

	_, err = w.ConfirmTask(ctx, taskID, "OUT-1")
	require.NoError(t, err)
	_, err = w.ReportPickException(ctx, taskID, 1, "late")
	assert.ErrorIs(t, err, model.ErrInvalidState)

	_, err = w.ReplacementSuggestions(ctx, "exc_missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}
