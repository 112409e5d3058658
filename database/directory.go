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

package database

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/blnkfinance/wharf/model"
)

const unitColumns = `s.storage_unit_id, s.code, s.kind, COALESCE(s.location_id, ''), COALESCE(s.lock_owner, ''), s.status, COALESCE(l.zone, ''), COALESCE(l.level, 0), s.created_at`

const unitFrom = `
		FROM wharf.storage_units s
		LEFT JOIN wharf.locations l ON l.location_id = s.location_id`

func unitDest(u *model.StorageUnit) []interface{} {
	return []interface{}{&u.StorageUnitID, &u.Code, &u.Kind, &u.LocationID, &u.LockOwner, &u.Status, &u.Zone, &u.Level, &u.CreatedAt}
}

func (d Datasource) CreateLocation(ctx context.Context, location model.Location) (model.Location, error) {
	location.LocationID = model.GenerateUUIDWithSuffix("loc")
	location.CreatedAt = time.Now()

	_, err := d.q().ExecContext(ctx, `
		INSERT INTO wharf.locations (location_id, code, zone, level, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, location.LocationID, location.Code, location.Zone, location.Level, location.CreatedAt)
	if err != nil {
		return model.Location{}, duplicate(err, "location %s", location.Code)
	}
	return location, nil
}

func (d Datasource) GetLocation(ctx context.Context, id string) (*model.Location, error) {
	location := &model.Location{}
	err := d.q().QueryRowContext(ctx, `
		SELECT location_id, code, zone, level, created_at
		FROM wharf.locations
		WHERE location_id = $1
	`, id).Scan(&location.LocationID, &location.Code, &location.Zone, &location.Level, &location.CreatedAt)
	if err != nil {
		return nil, notFound(err, "location %s", id)
	}
	return location, nil
}

// CreateStorageUnit persists a unit. Zone and level are taken from its location when set.
func (d Datasource) CreateStorageUnit(ctx context.Context, unit model.StorageUnit) (model.StorageUnit, error) {
	unit.StorageUnitID = model.GenerateUUIDWithSuffix("su")
	unit.CreatedAt = time.Now()
	if unit.Status == "" {
		unit.Status = model.UnitStatusOpen
	}

	if unit.LocationID != "" {
		location, err := d.GetLocation(ctx, unit.LocationID)
		if err != nil {
			return model.StorageUnit{}, err
		}
		unit.Zone = location.Zone
		unit.Level = location.Level
	}

	_, err := d.q().ExecContext(ctx, `
		INSERT INTO wharf.storage_units (storage_unit_id, code, kind, location_id, lock_owner, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, unit.StorageUnitID, unit.Code, unit.Kind, nullString(unit.LocationID), nullString(unit.LockOwner), unit.Status, unit.CreatedAt)
	if err != nil {
		return model.StorageUnit{}, duplicate(err, "storage unit %s", unit.Code)
	}
	return unit, nil
}

func (d Datasource) GetStorageUnit(ctx context.Context, id string) (*model.StorageUnit, error) {
	unit := &model.StorageUnit{}
	err := d.q().QueryRowContext(ctx, `SELECT `+unitColumns+unitFrom+`
		WHERE s.storage_unit_id = $1
	`, id).Scan(unitDest(unit)...)
	if err != nil {
		return nil, notFound(err, "storage unit %s", id)
	}
	return unit, nil
}

func (d Datasource) GetStorageUnitByCode(ctx context.Context, code string) (*model.StorageUnit, error) {
	unit := &model.StorageUnit{}
	err := d.q().QueryRowContext(ctx, `SELECT `+unitColumns+unitFrom+`
		WHERE s.code = $1
	`, code).Scan(unitDest(unit)...)
	if err != nil {
		return nil, notFound(err, "storage unit with code %s", code)
	}
	return unit, nil
}

func (d Datasource) ListStorageUnitsByKind(ctx context.Context, kind model.StorageUnitKind) ([]model.StorageUnit, error) {
	rows, err := d.q().QueryContext(ctx, `SELECT `+unitColumns+unitFrom+`
		WHERE s.kind = $1
		ORDER BY s.code
	`, kind)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s units", kind)
	}
	defer func() { _ = rows.Close() }()

	var units []model.StorageUnit
	for rows.Next() {
		var unit model.StorageUnit
		if err := rows.Scan(unitDest(&unit)...); err != nil {
			return nil, errors.Wrap(err, "failed to scan storage unit")
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}

func (d Datasource) SetStorageUnitLock(ctx context.Context, id string, owner string) error {
	result, err := d.q().ExecContext(ctx, `
		UPDATE wharf.storage_units SET lock_owner = $2 WHERE storage_unit_id = $1
	`, id, nullString(owner))
	if err != nil {
		return errors.Wrapf(err, "failed to set lock on %s", id)
	}
	return expectAffected(result, model.ErrNotFound, "storage unit %s", id)
}
