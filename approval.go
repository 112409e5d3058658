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

	"github.com/sirupsen/logrus"

	redlock "github.com/blnkfinance/wharf/internal/lock"
	"github.com/blnkfinance/wharf/model"
)

// ApproveReservation approves a pending transfer after checking that eligible stock, less what
// other approved transfers already hold, covers every item line. Approval writes no ledger rows:
// the hold is derived from the approved lines and honoured by later allocation runs.
func (w *Wharf) ApproveReservation(ctx context.Context, transferID, userID string) (*model.Demand, error) {
	ctx, span := tracer.Start(ctx, "Approving transfer")
	defer span.End()

	held, err := w.acquireLocks(ctx, redlock.DemandKey(transferID))
	if err != nil {
		return nil, logAndRecordError(span, "demand lock error", err)
	}
	defer held.release(ctx)

	transfer, err := w.datasource.GetDemand(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if transfer.Kind != model.DemandTransfer || transfer.Status != model.DemandPending {
		return nil, fmt.Errorf("%w: only pending transfers can be approved", model.ErrInvalidState)
	}

	var order []model.ProductKey
	needs := make(map[model.ProductKey]int64)
	for _, line := range transfer.Lines {
		if line.BoxID != "" || line.Outstanding() == 0 {
			continue
		}
		if _, seen := needs[line.Key()]; !seen {
			order = append(order, line.Key())
		}
		needs[line.Key()] += line.Outstanding()
	}

	stock, err := w.datasource.GetStock(ctx, order)
	if err != nil {
		return nil, err
	}
	available := make(map[model.ProductKey]int64, len(order))
	for _, row := range stock {
		if row.Unit.EligibleAsSource() && row.Available() > 0 {
			available[row.Key()] += row.Available()
		}
	}
	holds, err := w.holdsFor(ctx, order, transferID)
	if err != nil {
		return nil, err
	}

	for _, key := range order {
		free := available[key] - holds[key]
		if needs[key] > free {
			err := &model.InsufficientApprovalError{ProductID: key.ProductID, Needed: needs[key], Available: max(free, 0)}
			logrus.WithFields(logrus.Fields{"demand_id": transferID, "product_id": key.ProductID, "needed": needs[key], "free": free}).Warn(err.Error())
			return nil, err
		}
	}

	if err := w.datasource.ApproveDemand(ctx, transferID, userID, w.now()); err != nil {
		return nil, err
	}
	approved, err := w.datasource.GetDemand(ctx, transferID)
	if err != nil {
		return nil, err
	}
	w.emit(ctx, EventDemandApproved, approved)
	return approved, nil
}
