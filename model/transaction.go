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

package model

import "time"

type TransactionType string

const (
	TxnReserve TransactionType = "RESERVE"
	TxnRelease TransactionType = "RELEASE"
	TxnMove    TransactionType = "MOVE"
	TxnReceive TransactionType = "RECEIVE"
)

// Transaction is an append-only audit record of a ledger change.
type Transaction struct {
	TransactionID string          `json:"transaction_id"`
	Type          TransactionType `json:"type"`
	ProductID     string          `json:"product_id"`
	Class         InventoryClass  `json:"class"`
	Quantity      int64           `json:"quantity"`
	FromUnit      string          `json:"from_unit,omitempty"`
	ToUnit        string          `json:"to_unit,omitempty"`
	ReferenceID   string          `json:"reference_id"`
	CreatedAt     time.Time       `json:"created_at"`
}
