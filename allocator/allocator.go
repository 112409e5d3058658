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
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/blnkfinance/wharf/model"
)

// ErrEmptyDemand is returned when there is nothing left to allocate. Callers treat it as a no-op.
var ErrEmptyDemand = errors.New("no outstanding demand")

// Need is the outstanding quantity of one product.
type Need struct {
	Key      model.ProductKey
	Quantity int64
}

// Candidate is one planned pick: take Quantity of Key out of a storage unit.
type Candidate struct {
	Key             model.ProductKey
	StorageUnitID   string
	StorageUnitCode string
	Zone            string
	Level           int
	Quantity        int64
}

// ShortageLine describes one product the eligible stock cannot cover.
type ShortageLine struct {
	ProductID string               `json:"product_id"`
	Class     model.InventoryClass `json:"class"`
	Needed    int64                `json:"needed"`
	Available int64                `json:"available"`
	Missing   int64                `json:"missing"`
}

// ShortageError aborts a run before anything is written. It lists every short product.
type ShortageError struct {
	Lines []ShortageLine
}

func (e *ShortageError) Error() string {
	parts := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		parts = append(parts, fmt.Sprintf("%s needed %d available %d missing %d", l.ProductID, l.Needed, l.Available, l.Missing))
	}
	return "shortage: " + strings.Join(parts, "; ")
}

// Planner turns needs and a stock snapshot into an ordered list of pick candidates.
type Planner struct {
	Strategy Strategy
	// Eligible decides whether a storage unit may serve as a source. Defaults to
	// model.StorageUnit.EligibleAsSource.
	Eligible func(model.StorageUnit) bool
	// Holds is stock promised elsewhere without a ledger reservation, such as approved transfers.
	// It is subtracted from availability during the feasibility check.
	Holds map[model.ProductKey]int64
}

// NewPlanner returns a Planner using the given strategy, or the consolidation strategy when nil.
func NewPlanner(strategy Strategy) *Planner {
	if strategy == nil {
		strategy = ConsolidationStrategy{BaseScore: DefaultBaseScore}
	}
	return &Planner{Strategy: strategy}
}

func (p *Planner) eligible(u model.StorageUnit) bool {
	if p.Eligible != nil {
		return p.Eligible(u)
	}
	return u.EligibleAsSource()
}

// Plan runs the ITEM-mode allocation: filter, feasibility pre-check, bucket ranking and the
// greedy walk. It never returns a partial plan: either every need is covered or a
// *ShortageError describes every product that is short.
func (p *Planner) Plan(needs []Need, stock []model.StockRow) ([]Candidate, error) {
	order, remaining := aggregateNeeds(needs)
	if len(order) == 0 {
		return nil, ErrEmptyDemand
	}

	usable := make([]model.StockRow, 0, len(stock))
	for _, row := range stock {
		if _, wanted := remaining[row.Key()]; !wanted {
			continue
		}
		if row.Available() <= 0 || !p.eligible(row.Unit) {
			continue
		}
		usable = append(usable, row)
	}

	if err := CheckFeasibility(order, remaining, usable, p.Holds); err != nil {
		return nil, err
	}

	buckets := buildBuckets(usable)
	p.Strategy.Rank(buckets, remaining)

	var candidates []Candidate
	outstanding := totalOf(remaining)
	for _, b := range buckets {
		if outstanding == 0 {
			break
		}
		for _, key := range order {
			need := remaining[key]
			held := b.Holdings[key]
			if need == 0 || held == 0 {
				continue
			}
			take := min(need, held)
			candidates = append(candidates, Candidate{
				Key:             key,
				StorageUnitID:   b.Unit.StorageUnitID,
				StorageUnitCode: b.Unit.Code,
				Zone:            b.Unit.Zone,
				Level:           b.Unit.Level,
				Quantity:        take,
			})
			remaining[key] = need - take
			outstanding -= take
		}
	}

	return candidates, nil
}

// CheckFeasibility compares the aggregate availability of each needed product, less holds,
// with its demand.
func CheckFeasibility(order []model.ProductKey, needs map[model.ProductKey]int64, stock []model.StockRow, holds map[model.ProductKey]int64) error {
	available := make(map[model.ProductKey]int64, len(needs))
	for _, row := range stock {
		available[row.Key()] += row.Available()
	}
	for key, held := range holds {
		if _, wanted := needs[key]; wanted {
			available[key] = max(available[key]-held, 0)
		}
	}

	var lines []ShortageLine
	for _, key := range order {
		need := needs[key]
		if have := available[key]; have < need {
			lines = append(lines, ShortageLine{
				ProductID: key.ProductID,
				Class:     key.Class,
				Needed:    need,
				Available: have,
				Missing:   need - have,
			})
		}
	}
	if len(lines) > 0 {
		return &ShortageError{Lines: lines}
	}
	return nil
}

// aggregateNeeds sums needs per product, keeping first-seen order and dropping zero quantities.
func aggregateNeeds(needs []Need) ([]model.ProductKey, map[model.ProductKey]int64) {
	var order []model.ProductKey
	totals := make(map[model.ProductKey]int64)
	for _, n := range needs {
		if n.Quantity <= 0 {
			continue
		}
		if _, seen := totals[n.Key]; !seen {
			order = append(order, n.Key)
		}
		totals[n.Key] += n.Quantity
	}
	return order, totals
}

func totalOf(m map[model.ProductKey]int64) int64 {
	var total int64
	for _, q := range m {
		total += q
	}
	return total
}

// SortedKeys returns the keys of m ordered by class then product id.
func SortedKeys(m map[model.ProductKey]int64) []model.ProductKey {
	keys := make([]model.ProductKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Class != keys[j].Class {
			return keys[i].Class < keys[j].Class
		}
		return keys[i].ProductID < keys[j].ProductID
	})
	return keys
}
