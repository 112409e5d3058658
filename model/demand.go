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

type DemandKind string

const (
	DemandOrder    DemandKind = "ORDER"
	DemandTransfer DemandKind = "TRANSFER"
)

type DemandStatus string

const (
	DemandPending    DemandStatus = "PENDING"
	DemandApproved   DemandStatus = "APPROVED"
	DemandAllocated  DemandStatus = "ALLOCATED"
	DemandInProgress DemandStatus = "IN_PROGRESS"
	DemandCompleted  DemandStatus = "COMPLETED"
	DemandCancelled  DemandStatus = "CANCELLED"
)

// Demand is a sales order or transfer order.
// PriorStatus records the status the demand had before its first job was created,
// so compensation can restore it.
type Demand struct {
	DemandID    string       `json:"demand_id"`
	Kind        DemandKind   `json:"kind"`
	Status      DemandStatus `json:"status"`
	PriorStatus DemandStatus `json:"prior_status,omitempty"`
	ApprovedBy  string       `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time   `json:"approved_at,omitempty"`
	Lines       []DemandLine `json:"lines"`
	Boxes       []string     `json:"boxes,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// DemandLine is a (product, quantity) requirement of a demand.
// Invariant: QuantityPicked <= QuantityReserved <= QuantityRequested.
// BoxID is set on lines produced by whole-box transfers.
type DemandLine struct {
	LineID            string         `json:"line_id"`
	DemandID          string         `json:"demand_id"`
	ProductID         string         `json:"product_id"`
	Class             InventoryClass `json:"class"`
	BoxID             string         `json:"box_id,omitempty"`
	QuantityRequested int64          `json:"quantity_requested"`
	QuantityReserved  int64          `json:"quantity_reserved"`
	QuantityPicked    int64          `json:"quantity_picked"`
}

// Outstanding returns the quantity still to be reserved.
func (l DemandLine) Outstanding() int64 {
	if l.QuantityReserved >= l.QuantityRequested {
		return 0
	}
	return l.QuantityRequested - l.QuantityReserved
}

// Key returns the class/product key for the line.
func (l DemandLine) Key() ProductKey {
	return ProductKey{Class: l.Class, ProductID: l.ProductID}
}

// IsOpen reports whether the demand can still receive allocations.
func (d Demand) IsOpen() bool {
	return d.Status != DemandCompleted && d.Status != DemandCancelled
}

// OutstandingLines returns the item lines that still need reservations, skipping box lines.
func (d Demand) OutstandingLines() []DemandLine {
	var lines []DemandLine
	for _, l := range d.Lines {
		if l.BoxID == "" && l.Outstanding() > 0 {
			lines = append(lines, l)
		}
	}
	return lines
}
