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

	"github.com/blnkfinance/wharf/model"
)

// ReportPickException records that a picker found less stock at a task's source than the task
// expects. The task stays pending; the exception is the anchor for replacement suggestions.
func (w *Wharf) ReportPickException(ctx context.Context, taskID string, availableQty int64, reason string) (*model.PickException, error) {
	ctx, span := tracer.Start(ctx, "Reporting pick exception")
	defer span.End()

	task, err := w.datasource.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != model.TaskPending {
		return nil, fmt.Errorf("%w: task %s is %s", model.ErrInvalidState, taskID, task.Status)
	}
	if availableQty < 0 || availableQty >= task.Quantity {
		return nil, fmt.Errorf("%w: reported quantity %d must be below the task quantity %d", model.ErrInvalidState, availableQty, task.Quantity)
	}

	exception, err := w.datasource.RecordPickException(ctx, &model.PickException{
		TaskID:       taskID,
		ProductID:    task.ProductID,
		Class:        task.Class,
		SourceUnitID: task.SourceUnitID,
		Reason:       reason,
		RequestedQty: task.Quantity,
		AvailableQty: availableQty,
	})
	if err != nil {
		return nil, logAndRecordError(span, "failed to record pick exception", err)
	}

	logrus.WithFields(logrus.Fields{"task_id": taskID, "source": task.SourceUnitCode, "requested": task.Quantity, "found": availableQty}).Warn("pick exception reported")
	w.emit(ctx, EventTaskException, exception)
	return exception, nil
}

// ReplacementSuggestions lists other units that can cover an exception, nearest first: units in
// the same zone, then by level distance from the original source, then by most available.
func (w *Wharf) ReplacementSuggestions(ctx context.Context, exceptionID string) ([]model.ReplacementSuggestion, error) {
	ctx, span := tracer.Start(ctx, "Suggesting replacements")
	defer span.End()

	exception, err := w.datasource.GetPickException(ctx, exceptionID)
	if err != nil {
		return nil, err
	}
	source, err := w.datasource.GetStorageUnit(ctx, exception.SourceUnitID)
	if err != nil {
		return nil, err
	}

	key := model.ProductKey{Class: exception.Class, ProductID: exception.ProductID}
	rows, err := w.datasource.GetStock(ctx, []model.ProductKey{key})
	if err != nil {
		return nil, logAndRecordError(span, "failed to read stock", err)
	}

	byUnit := make(map[string]*model.ReplacementSuggestion)
	var order []string
	for _, row := range rows {
		if row.StorageUnitID == source.StorageUnitID || !row.Unit.EligibleAsSource() || row.Available() <= 0 {
			continue
		}
		s, ok := byUnit[row.StorageUnitID]
		if !ok {
			s = &model.ReplacementSuggestion{UnitID: row.Unit.StorageUnitID, UnitCode: row.Unit.Code, Zone: row.Unit.Zone, Level: row.Unit.Level}
			byUnit[row.StorageUnitID] = s
			order = append(order, row.StorageUnitID)
		}
		s.AvailableQty += row.Available()
	}

	suggestions := make([]model.ReplacementSuggestion, 0, len(order))
	for _, id := range order {
		suggestions = append(suggestions, *byUnit[id])
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if sameA, sameB := a.Zone == source.Zone, b.Zone == source.Zone; sameA != sameB {
			return sameA
		}
		if da, db := levelDistance(a.Level, source.Level), levelDistance(b.Level, source.Level); da != db {
			return da < db
		}
		if a.AvailableQty != b.AvailableQty {
			return a.AvailableQty > b.AvailableQty
		}
		return a.UnitCode < b.UnitCode
	})
	return suggestions, nil
}

func levelDistance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
