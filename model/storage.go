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

type StorageUnitKind string

const (
	KindStorage StorageUnitKind = "STORAGE"
	KindOutbox  StorageUnitKind = "OUTBOX"
	KindCart    StorageUnitKind = "CART"
)

type StorageUnitStatus string

const (
	UnitStatusOpen   StorageUnitStatus = "OPEN"
	UnitStatusClosed StorageUnitStatus = "CLOSED"
)

// Location is a physical slot on the warehouse floor. Level 0 is ground level.
type Location struct {
	LocationID string    `json:"location_id"`
	Code       string    `json:"code"`
	Zone       string    `json:"zone"`
	Level      int       `json:"level"`
	CreatedAt  time.Time `json:"created_at"`
}

// StorageUnit is a box, cart or bare location that can hold inventory.
// Zone and Level are denormalised from the unit's location.
type StorageUnit struct {
	StorageUnitID string            `json:"storage_unit_id"`
	Code          string            `json:"code"`
	Kind          StorageUnitKind   `json:"kind"`
	LocationID    string            `json:"location_id"`
	LockOwner     string            `json:"lock_owner,omitempty"`
	Status        StorageUnitStatus `json:"status"`
	Zone          string            `json:"zone"`
	Level         int               `json:"level"`
	CreatedAt     time.Time         `json:"created_at"`
}

// IsLocked reports whether some demand holds the unit.
func (s StorageUnit) IsLocked() bool {
	return s.LockOwner != ""
}

// EligibleAsSource reports whether stock in the unit may be allocated to a new demand.
func (s StorageUnit) EligibleAsSource() bool {
	return s.Status == UnitStatusOpen && !s.IsLocked() && s.Kind != KindOutbox
}

// EligibleAsSourceFor is like EligibleAsSource but also accepts a unit already locked to demandID.
func (s StorageUnit) EligibleAsSourceFor(demandID string) bool {
	if s.Status != UnitStatusOpen || s.Kind == KindOutbox {
		return false
	}
	return !s.IsLocked() || s.LockOwner == demandID
}

// EligibleAsDestinationFor reports whether picked stock for demandID may be dropped into the unit.
// Demand-less (wave) confirmations pass an empty demandID and only accept unlocked outboxes.
func (s StorageUnit) EligibleAsDestinationFor(demandID string) bool {
	if s.Kind != KindOutbox || s.Status != UnitStatusOpen {
		return false
	}
	return !s.IsLocked() || (demandID != "" && s.LockOwner == demandID)
}
