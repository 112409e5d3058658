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

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound                  = errors.New("not found")
	ErrInsufficientAvailability  = errors.New("insufficient availability")
	ErrInsufficientPhysicalStock = errors.New("insufficient physical stock")
	ErrJobNotCancellable         = errors.New("not cancellable")
	ErrDestinationInvalid        = errors.New("destination invalid")
	ErrDuplicateActiveJob        = errors.New("an active job already exists for this demand")
	ErrNoBoxesLinked             = errors.New("no boxes linked")
	ErrInvalidState              = errors.New("invalid state")
	ErrSourceIneligible          = errors.New("storage unit is not eligible as a source")
	ErrAlreadyExists             = errors.New("already exists")
)

// IntegrityError reports a confirmation whose source rows hold less physical stock than the
// reserved task. It means the reserved and physical counters diverged and needs manual
// reconciliation.
type IntegrityError struct {
	TaskID       string
	ProductID    string
	SourceUnitID string
	Needed       int64
	Found        int64
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("insufficient physical stock for task %s: product %s at unit %s needs %d, found %d",
		e.TaskID, e.ProductID, e.SourceUnitID, e.Needed, e.Found)
}

func (e *IntegrityError) Unwrap() error {
	return ErrInsufficientPhysicalStock
}

// InsufficientApprovalError is returned when a header-level approval cannot be covered.
type InsufficientApprovalError struct {
	ProductID string
	Needed    int64
	Available int64
}

func (e *InsufficientApprovalError) Error() string {
	return fmt.Sprintf("insufficient available for %s", e.ProductID)
}

func (e *InsufficientApprovalError) Unwrap() error {
	return ErrInsufficientAvailability
}

// DestinationError rejects a confirmation destination. Suggestions lists nearby OUTBOX codes
// when the scanned code did not resolve.
type DestinationError struct {
	Code        string
	Reason      string
	Suggestions []string
}

func (e *DestinationError) Error() string {
	return fmt.Sprintf("destination %s invalid: %s", e.Code, e.Reason)
}

func (e *DestinationError) Unwrap() error {
	return ErrDestinationInvalid
}
