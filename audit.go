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

	"github.com/blnkfinance/wharf/database"
	"github.com/blnkfinance/wharf/model"
)

// AuditEvent is a ledger change worth keeping in the transaction log.
// The concrete types below are the only implementations.
type AuditEvent interface {
	transaction() model.Transaction
}

// ReserveEvent records a reservation taken for a task.
type ReserveEvent struct {
	Key       model.ProductKey
	UnitID    string
	Quantity  int64
	Reference string
}

// ReleaseEvent records a reservation handed back by compensation.
type ReleaseEvent struct {
	Key       model.ProductKey
	UnitID    string
	Quantity  int64
	Reference string
}

// MoveEvent records physical stock leaving one source row for a destination unit.
type MoveEvent struct {
	Key       model.ProductKey
	From      string
	To        string
	Quantity  int64
	Reference string
}

// ReceiveEvent records stock entering the warehouse.
type ReceiveEvent struct {
	Key       model.ProductKey
	UnitID    string
	Quantity  int64
	Reference string
}

func (e ReserveEvent) transaction() model.Transaction {
	return model.Transaction{Type: model.TxnReserve, ProductID: e.Key.ProductID, Class: e.Key.Class,
		Quantity: e.Quantity, FromUnit: e.UnitID, ReferenceID: e.Reference}
}

func (e ReleaseEvent) transaction() model.Transaction {
	return model.Transaction{Type: model.TxnRelease, ProductID: e.Key.ProductID, Class: e.Key.Class,
		Quantity: e.Quantity, FromUnit: e.UnitID, ReferenceID: e.Reference}
}

func (e MoveEvent) transaction() model.Transaction {
	return model.Transaction{Type: model.TxnMove, ProductID: e.Key.ProductID, Class: e.Key.Class,
		Quantity: e.Quantity, FromUnit: e.From, ToUnit: e.To, ReferenceID: e.Reference}
}

func (e ReceiveEvent) transaction() model.Transaction {
	return model.Transaction{Type: model.TxnReceive, ProductID: e.Key.ProductID, Class: e.Key.Class,
		Quantity: e.Quantity, ToUnit: e.UnitID, ReferenceID: e.Reference}
}

// recordTransaction is the single write path into the transaction log.
func recordTransaction(ctx context.Context, ds database.IDataSource, event AuditEvent) error {
	txn := event.transaction()
	_, err := ds.RecordTransaction(ctx, &txn)
	return err
}

// GetTransactions returns the audit trail written under referenceID.
func (w *Wharf) GetTransactions(ctx context.Context, referenceID string) ([]model.Transaction, error) {
	return w.datasource.GetTransactionsByReference(ctx, referenceID)
}
