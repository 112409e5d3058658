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
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/blnkfinance/wharf/model"
)

// DemandRef is a demand line that candidates can be attributed to.
type DemandRef struct {
	DemandID string
	LineID   string
	Key      model.ProductKey
	Quantity int64
}

// Assignment is a candidate (or a slice of one) attributed to a single demand line.
type Assignment struct {
	Candidate
	DemandID string
	LineID   string
}

// Distribute splits candidates across demand lines first-come first-served: for every product,
// lines are consumed in the order given. Quantities that no line claims are dropped, so
// Distribute(Plan(needs)) attributes exactly the planned quantity when needs were built from refs.
func Distribute(candidates []Candidate, refs []DemandRef) []Assignment {
	queues := make(map[model.ProductKey][]DemandRef)
	for _, r := range refs {
		if r.Quantity > 0 {
			queues[r.Key] = append(queues[r.Key], r)
		}
	}

	var out []Assignment
	for _, c := range candidates {
		left := c.Quantity
		queue := queues[c.Key]
		for left > 0 && len(queue) > 0 {
			head := &queue[0]
			take := min(left, head.Quantity)
			part := c
			part.Quantity = take
			out = append(out, Assignment{Candidate: part, DemandID: head.DemandID, LineID: head.LineID})
			head.Quantity -= take
			left -= take
			if head.Quantity == 0 {
				queue = queue[1:]
			}
		}
		queues[c.Key] = queue
	}
	return out
}

// NeedsFor folds demand refs into allocator needs.
func NeedsFor(refs []DemandRef) []Need {
	needs := make([]Need, 0, len(refs))
	for _, r := range refs {
		needs = append(needs, Need{Key: r.Key, Quantity: r.Quantity})
	}
	return needs
}

// ZoneBatch is the set of assignments that become one wave job.
type ZoneBatch struct {
	Zone        string
	Assignments []Assignment
}

// Sequencer orders picks inside one zone.
type Sequencer interface {
	Less(a, b Candidate) bool
}

// GroundFirstLIFO sequences ground-level units before upper levels, then the most recently
// stocked units first, using the date and sequence embedded in the unit code.
type GroundFirstLIFO struct{}

func (GroundFirstLIFO) Less(a, b Candidate) bool {
	if a.Level != b.Level {
		return a.Level < b.Level
	}
	sa, okA := ParseStockCode(a.StorageUnitCode)
	sb, okB := ParseStockCode(b.StorageUnitCode)
	switch {
	case okA && okB:
		return sa.After(sb)
	case okA != okB:
		return okA
	}
	return false
}

// PartitionByZone groups assignments by the zone of their source unit. Zones come out in
// lexical order and each zone is sorted stably with seq.
func PartitionByZone(assignments []Assignment, seq Sequencer) []ZoneBatch {
	byZone := make(map[string][]Assignment)
	var zones []string
	for _, a := range assignments {
		if _, ok := byZone[a.Zone]; !ok {
			zones = append(zones, a.Zone)
		}
		byZone[a.Zone] = append(byZone[a.Zone], a)
	}
	sort.Strings(zones)

	batches := make([]ZoneBatch, 0, len(zones))
	for _, zone := range zones {
		items := byZone[zone]
		if seq != nil {
			sort.SliceStable(items, func(i, j int) bool {
				return seq.Less(items[i].Candidate, items[j].Candidate)
			})
		}
		batches = append(batches, ZoneBatch{Zone: zone, Assignments: items})
	}
	return batches
}

// StockStamp is the receipt date and sequence encoded in a storage unit code.
type StockStamp struct {
	Date     time.Time
	Sequence int
}

// After reports whether s was stocked after o.
func (s StockStamp) After(o StockStamp) bool {
	if !s.Date.Equal(o.Date) {
		return s.Date.After(o.Date)
	}
	return s.Sequence > o.Sequence
}

var stockCodePattern = regexp.MustCompile(`(?:^|[^0-9])(\d{8}|\d{6})[-_./]?(\d{1,6})(?:[^0-9]|$)`)

// ParseStockCode extracts the receipt stamp from codes like "BX-20240315-0007" or "B240315_12".
func ParseStockCode(code string) (StockStamp, bool) {
	m := stockCodePattern.FindStringSubmatch(code)
	if m == nil {
		return StockStamp{}, false
	}
	layout := "20060102"
	if len(m[1]) == 6 {
		layout = "060102"
	}
	date, err := time.Parse(layout, m[1])
	if err != nil {
		return StockStamp{}, false
	}
	seq, err := strconv.Atoi(m[2])
	if err != nil {
		return StockStamp{}, false
	}
	return StockStamp{Date: date, Sequence: seq}, true
}
