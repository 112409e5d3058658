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

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/blnkfinance/wharf/model"
)

func (d Datasource) RecordTransaction(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	ctx, span := otel.Tracer("wharf.database").Start(ctx, "Saving transaction to db")
	defer span.End()

	if txn.TransactionID == "" {
		txn.TransactionID = model.GenerateUUIDWithSuffix("txn")
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now()
	}

	_, err := d.q().ExecContext(ctx, `
		INSERT INTO wharf.transactions (transaction_id, type, product_id, class, quantity, from_unit, to_unit, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, txn.TransactionID, txn.Type, txn.ProductID, txn.Class, txn.Quantity, nullString(txn.FromUnit), nullString(txn.ToUnit), txn.ReferenceID, txn.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to record transaction")
	}
	return txn, nil
}

func (d Datasource) GetTransactionsByReference(ctx context.Context, referenceID string) ([]model.Transaction, error) {
	rows, err := d.q().QueryContext(ctx, `
		SELECT transaction_id, type, product_id, class, quantity, COALESCE(from_unit, ''), COALESCE(to_unit, ''), reference_id, created_at
		FROM wharf.transactions
		WHERE reference_id = $1
		ORDER BY id
	`, referenceID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch transactions of %s", referenceID)
	}
	defer func() { _ = rows.Close() }()

	var txns []model.Transaction
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.TransactionID, &t.Type, &t.ProductID, &t.Class, &t.Quantity, &t.FromUnit, &t.ToUnit, &t.ReferenceID, &t.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan transaction")
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func (d Datasource) RecordPickException(ctx context.Context, exception *model.PickException) (*model.PickException, error) {
	exception.ExceptionID = model.GenerateUUIDWithSuffix("exc")
	exception.CreatedAt = time.Now()

	_, err := d.q().ExecContext(ctx, `
		INSERT INTO wharf.pick_exceptions (exception_id, task_id, product_id, class, source_unit_id, reason, requested_qty, available_qty, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, exception.ExceptionID, exception.TaskID, exception.ProductID, exception.Class, exception.SourceUnitID, exception.Reason, exception.RequestedQty, exception.AvailableQty, exception.CreatedAt)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to record exception for task %s", exception.TaskID)
	}
	return exception, nil
}

func (d Datasource) GetPickException(ctx context.Context, id string) (*model.PickException, error) {
	e := &model.PickException{}
	err := d.q().QueryRowContext(ctx, `
		SELECT exception_id, task_id, product_id, class, source_unit_id, reason, requested_qty, available_qty, created_at
		FROM wharf.pick_exceptions
		WHERE exception_id = $1
	`, id).Scan(&e.ExceptionID, &e.TaskID, &e.ProductID, &e.Class, &e.SourceUnitID, &e.Reason, &e.RequestedQty, &e.AvailableQty, &e.CreatedAt)
	if err != nil {
		return nil, notFound(err, "exception %s", id)
	}
	return e, nil
}
