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

type JobKind string

const (
	JobItemPick     JobKind = "ITEM_PICK"
	JobBoxPick      JobKind = "BOX_PICK"
	JobWavePick     JobKind = "WAVE_PICK"
	JobTransferPick JobKind = "TRANSFER_PICK"
)

type JobStatus string

const (
	JobOpen       JobStatus = "OPEN"
	JobInProgress JobStatus = "IN_PROGRESS"
	JobCompleted  JobStatus = "COMPLETED"
	JobCancelled  JobStatus = "CANCELLED"
)

type TaskStatus string

const (
	TaskPending   TaskStatus = "PENDING"
	TaskCompleted TaskStatus = "COMPLETED"
)

// PickingJob groups the tasks one worker executes. DemandID is empty for wave jobs,
// whose tasks each carry their own demand.
type PickingJob struct {
	JobID     string        `json:"job_id"`
	DemandID  string        `json:"demand_id,omitempty"`
	WaveID    string        `json:"wave_id,omitempty"`
	Kind      JobKind       `json:"kind"`
	Status    JobStatus     `json:"status"`
	Zone      string        `json:"zone,omitempty"`
	Tasks     []PickingTask `json:"tasks,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// IsActive reports whether the job still holds reservations or work.
func (j PickingJob) IsActive() bool {
	return j.Status == JobOpen || j.Status == JobInProgress
}

// PickingTask moves Quantity of a product out of SourceUnitID.
// A PENDING task is always backed by a reservation of the same quantity.
type PickingTask struct {
	TaskID            string         `json:"task_id"`
	JobID             string         `json:"job_id"`
	DemandID          string         `json:"demand_id"`
	LineID            string         `json:"line_id"`
	ProductID         string         `json:"product_id"`
	Class             InventoryClass `json:"class"`
	SourceUnitID      string         `json:"source_unit_id"`
	SourceUnitCode    string         `json:"source_unit_code"`
	Quantity          int64          `json:"quantity"`
	Status            TaskStatus     `json:"status"`
	Sequence          int            `json:"sequence"`
	DestinationUnitID string         `json:"destination_unit_id,omitempty"`
	CompletedAt       *time.Time     `json:"completed_at,omitempty"`
}

// PickException is raised by a picker who finds less stock than a task asks for.
type PickException struct {
	ExceptionID  string         `json:"exception_id"`
	TaskID       string         `json:"task_id"`
	ProductID    string         `json:"product_id"`
	Class        InventoryClass `json:"class"`
	SourceUnitID string         `json:"source_unit_id"`
	Reason       string         `json:"reason"`
	RequestedQty int64          `json:"requested_qty"`
	AvailableQty int64          `json:"available_qty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// ReplacementSuggestion is an alternate source for a task that hit a pick exception.
type ReplacementSuggestion struct {
	UnitID       string `json:"unit_id"`
	UnitCode     string `json:"unit_code"`
	Zone         string `json:"zone"`
	Level        int    `json:"level"`
	AvailableQty int64  `json:"available_qty"`
}
