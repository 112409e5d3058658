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

package allocator

import (
	"fmt"

	"github.com/blnkfinance/wharf/model"
)

// BoxContents is a box together with every ledger row it currently holds.
type BoxContents struct {
	Unit model.StorageUnit
	Rows []model.InventoryUnit
}

// PlanBoxes runs the BOX-mode allocation for demandID: every occupied product inside each box
// becomes one candidate for its full physical quantity. A box that is ineligible or already
// partly reserved fails the whole run.
func PlanBoxes(demandID string, boxes []BoxContents) ([]Candidate, error) {
	var candidates []Candidate
	for _, box := range boxes {
		if !box.Unit.EligibleAsSourceFor(demandID) {
			return nil, fmt.Errorf("%w: box %s", model.ErrSourceIneligible, box.Unit.Code)
		}

		held := make(map[model.ProductKey]int64)
		for _, row := range box.Rows {
			if row.ReservedQuantity > 0 {
				return nil, fmt.Errorf("%w: box %s already has %d of %s reserved",
					model.ErrInsufficientAvailability, box.Unit.Code, row.ReservedQuantity, row.ProductID)
			}
			if row.PhysicalQuantity > 0 {
				held[row.Key()] += row.PhysicalQuantity
			}
		}

		for _, key := range SortedKeys(held) {
			candidates = append(candidates, Candidate{
				Key:             key,
				StorageUnitID:   box.Unit.StorageUnitID,
				StorageUnitCode: box.Unit.Code,
				Zone:            box.Unit.Zone,
				Level:           box.Unit.Level,
				Quantity:        held[key],
			})
		}
	}

	if len(candidates) == 0 {
		return nil, ErrEmptyDemand
	}
	return candidates, nil
}
