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

// Package memory is an in-process datasource. Every call is serialised behind one mutex and
// WithinTransaction restores a snapshot when the unit of work fails.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/blnkfinance/wharf/database"
	"github.com/blnkfinance/wharf/model"
)

type state struct {
	locations  map[string]model.Location
	units      map[string]model.StorageUnit
	inventory  []model.InventoryUnit
	demands    map[string]model.Demand
	jobs       []model.PickingJob
	txns       []model.Transaction
	exceptions map[string]model.PickException
}

func newState() *state {
	return &state{
		locations:  make(map[string]model.Location),
		units:      make(map[string]model.StorageUnit),
		demands:    make(map[string]model.Demand),
		exceptions: make(map[string]model.PickException),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.locations {
		c.locations[k] = v
	}
	for k, v := range s.units {
		c.units[k] = v
	}
	c.inventory = append([]model.InventoryUnit(nil), s.inventory...)
	for k, v := range s.demands {
		c.demands[k] = copyDemand(v)
	}
	c.jobs = make([]model.PickingJob, len(s.jobs))
	for i, j := range s.jobs {
		c.jobs[i] = copyJob(j)
	}
	c.txns = append([]model.Transaction(nil), s.txns...)
	for k, v := range s.exceptions {
		c.exceptions[k] = v
	}
	return c
}

func copyDemand(d model.Demand) model.Demand {
	d.Lines = append([]model.DemandLine(nil), d.Lines...)
	d.Boxes = append([]string(nil), d.Boxes...)
	return d
}

func copyJob(j model.PickingJob) model.PickingJob {
	j.Tasks = append([]model.PickingTask(nil), j.Tasks...)
	return j
}

// Store implements database.IDataSource in memory.
type Store struct {
	mu   *sync.Mutex
	data *state
	inTx bool
}

var _ database.IDataSource = (*Store)(nil)

func New() *Store {
	return &Store{mu: &sync.Mutex{}, data: newState()}
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// WithinTransaction holds the store for the duration of fn and rolls every change back when
// fn fails.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ds database.IDataSource) error) error {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&Store{mu: s.mu, data: s.data, inTx: true}); err != nil {
		*s.data = *snapshot
		return err
	}
	return nil
}

// Seed appends ledger rows as given, bypassing the merge performed by AddStock.
func (s *Store) Seed(rows ...model.InventoryUnit) {
	defer s.lock()()
	now := time.Now()
	for _, r := range rows {
		if r.InventoryID == "" {
			r.InventoryID = model.GenerateUUIDWithSuffix("inv")
		}
		if r.StockedAt.IsZero() {
			r.StockedAt = now
		}
		r.UpdatedAt = now
		s.data.inventory = append(s.data.inventory, r)
	}
}

func (s *Store) rowIndex(inventoryID string) int {
	for i, r := range s.data.inventory {
		if r.InventoryID == inventoryID {
			return i
		}
	}
	return -1
}

func (s *Store) GetStock(_ context.Context, keys []model.ProductKey) ([]model.StockRow, error) {
	defer s.lock()()
	wanted := make(map[model.ProductKey]bool, len(keys))
	for _, k := range keys {
		wanted[k] = true
	}

	var out []model.StockRow
	for _, r := range s.data.inventory {
		if !wanted[r.Key()] {
			continue
		}
		unit, ok := s.data.units[r.StorageUnitID]
		if !ok {
			continue
		}
		out = append(out, model.StockRow{InventoryUnit: r, Unit: unit})
	}
	return out, nil
}

func (s *Store) GetUnitInventory(_ context.Context, storageUnitID string) ([]model.InventoryUnit, error) {
	defer s.lock()()
	var out []model.InventoryUnit
	for _, r := range s.data.inventory {
		if r.StorageUnitID == storageUnitID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Class != out[j].Class {
			return out[i].Class < out[j].Class
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out, nil
}

func (s *Store) GetInventoryRows(_ context.Context, key model.ProductKey, storageUnitID string) ([]model.InventoryUnit, error) {
	defer s.lock()()
	var out []model.InventoryUnit
	for _, r := range s.data.inventory {
		if r.StorageUnitID == storageUnitID && r.Key() == key {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) ReserveRow(_ context.Context, inventoryID string, qty int64) (bool, error) {
	defer s.lock()()
	i := s.rowIndex(inventoryID)
	if i < 0 {
		return false, nil
	}
	row := &s.data.inventory[i]
	if row.ReservedQuantity+qty > row.PhysicalQuantity {
		return false, nil
	}
	row.ReservedQuantity += qty
	row.UpdatedAt = time.Now()
	return true, nil
}

func (s *Store) ReleaseRow(_ context.Context, inventoryID string, qty int64) error {
	defer s.lock()()
	i := s.rowIndex(inventoryID)
	if i < 0 {
		return errors.Wrapf(model.ErrNotFound, "inventory row %s", inventoryID)
	}
	row := &s.data.inventory[i]
	row.ReservedQuantity = max(row.ReservedQuantity-qty, 0)
	row.UpdatedAt = time.Now()
	return nil
}

func (s *Store) DeductRow(_ context.Context, inventoryID string, qty int64) (model.InventoryUnit, error) {
	defer s.lock()()
	i := s.rowIndex(inventoryID)
	if i < 0 || s.data.inventory[i].PhysicalQuantity < qty {
		return model.InventoryUnit{}, errors.Wrapf(model.ErrInsufficientPhysicalStock, "inventory row %s cannot cover %d", inventoryID, qty)
	}
	row := &s.data.inventory[i]
	row.PhysicalQuantity -= qty
	row.ReservedQuantity = max(row.ReservedQuantity-qty, 0)
	row.UpdatedAt = time.Now()
	left := *row
	if left.PhysicalQuantity == 0 {
		s.data.inventory = append(s.data.inventory[:i], s.data.inventory[i+1:]...)
	}
	return left, nil
}

func (s *Store) AddStock(_ context.Context, add model.InventoryUnit) (model.InventoryUnit, error) {
	defer s.lock()()
	now := time.Now()
	for i := range s.data.inventory {
		row := &s.data.inventory[i]
		if row.StorageUnitID == add.StorageUnitID && row.Key() == add.Key() {
			row.PhysicalQuantity += add.PhysicalQuantity
			row.UpdatedAt = now
			return *row, nil
		}
	}

	add.InventoryID = model.GenerateUUIDWithSuffix("inv")
	add.StockedAt = now
	add.UpdatedAt = now
	s.data.inventory = append(s.data.inventory, add)
	return add, nil
}
