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
	"sort"

	"github.com/blnkfinance/wharf/model"
)

// DefaultBaseScore is the score every bucket starts with before contributions are added.
const DefaultBaseScore int64 = 10

// Bucket aggregates the usable rows of one storage unit.
// Order is the position at which the unit was first seen in the snapshot.
type Bucket struct {
	Unit     model.StorageUnit
	Order    int
	Holdings map[model.ProductKey]int64
	Score    int64
}

// Strategy orders buckets before the greedy walk. Implementations must be deterministic
// for equal inputs.
type Strategy interface {
	Rank(buckets []*Bucket, remaining map[model.ProductKey]int64)
}

// ConsolidationStrategy favours buckets that cover more of the outstanding demand in one stop.
// score = BaseScore + sum over products of min(held, remaining).
type ConsolidationStrategy struct {
	BaseScore int64
}

func (s ConsolidationStrategy) Rank(buckets []*Bucket, remaining map[model.ProductKey]int64) {
	for _, b := range buckets {
		b.Score = s.BaseScore + contribution(b, remaining)
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Score > buckets[j].Score
	})
}

// GroundFirstStrategy ranks ground-level units before upper levels and falls back to
// consolidation score within a level.
type GroundFirstStrategy struct {
	BaseScore int64
}

func (s GroundFirstStrategy) Rank(buckets []*Bucket, remaining map[model.ProductKey]int64) {
	for _, b := range buckets {
		b.Score = s.BaseScore + contribution(b, remaining)
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		if buckets[i].Unit.Level != buckets[j].Unit.Level {
			return buckets[i].Unit.Level < buckets[j].Unit.Level
		}
		return buckets[i].Score > buckets[j].Score
	})
}

// StrategyByName resolves a configured strategy name.
func StrategyByName(name string, base int64) Strategy {
	switch name {
	case "ground_first":
		return GroundFirstStrategy{BaseScore: base}
	default:
		return ConsolidationStrategy{BaseScore: base}
	}
}

func contribution(b *Bucket, remaining map[model.ProductKey]int64) int64 {
	var total int64
	for key, held := range b.Holdings {
		if need := remaining[key]; need > 0 {
			total += min(held, need)
		}
	}
	return total
}

func buildBuckets(rows []model.StockRow) []*Bucket {
	index := make(map[string]*Bucket)
	var buckets []*Bucket
	for _, row := range rows {
		b, ok := index[row.Unit.StorageUnitID]
		if !ok {
			b = &Bucket{
				Unit:     row.Unit,
				Order:    len(buckets),
				Holdings: make(map[model.ProductKey]int64),
			}
			index[row.Unit.StorageUnitID] = b
			buckets = append(buckets, b)
		}
		b.Holdings[row.Key()] += row.Available()
	}
	return buckets
}
