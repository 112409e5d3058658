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
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blnkfinance/wharf/model"
)

var unitRowColumns = []string{"storage_unit_id", "code", "kind", "location_id", "lock_owner", "status", "zone", "level", "created_at"}

func TestCreateStorageUnit_InheritsLocation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ds := Datasource{Conn: db}
	mock.ExpectQuery(regexp.QuoteMeta("FROM wharf.locations")).
		WithArgs("loc_1").
		WillReturnRows(sqlmock.NewRows([]string{"location_id", "code", "zone", "level", "created_at"}).
			AddRow("loc_1", "A-01", "A", 2, time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO wharf.storage_units")).
		WithArgs(sqlmock.AnyArg(), "BX-1", "STORAGE", "loc_1", nil, "OPEN", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	unit, err := ds.CreateStorageUnit(context.Background(), model.StorageUnit{Code: "BX-1", Kind: model.KindStorage, LocationID: "loc_1"})
	require.NoError(t, err)
	assert.Equal(t, "A", unit.Zone)
	assert.Equal(t, 2, unit.Level)
	assert.Equal(t, model.UnitStatusOpen, unit.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateStorageUnit_DuplicateCode(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO wharf.storage_units")).
		WillReturnError(&pq.Error{Code: uniqueViolation})

	_, err = Datasource{Conn: db}.CreateStorageUnit(context.Background(), model.StorageUnit{Code: "OUT-1", Kind: model.KindOutbox})
	assert.ErrorIs(t, err, model.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetStorageUnitByCode(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ds := Datasource{Conn: db}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.code = $1")).
		WithArgs("OUT-1").
		WillReturnRows(sqlmock.NewRows(unitRowColumns).
			AddRow("su_9", "OUT-1", "OUTBOX", "loc_2", "ord_1", "OPEN", "B", 0, time.Now()))

	unit, err := ds.GetStorageUnitByCode(context.Background(), "OUT-1")
	require.NoError(t, err)
	assert.Equal(t, model.KindOutbox, unit.Kind)
	assert.Equal(t, "ord_1", unit.LockOwner)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.code = $1")).
		WithArgs("OUT-404").
		WillReturnRows(sqlmock.NewRows(unitRowColumns))
	_, err = ds.GetStorageUnitByCode(context.Background(), "OUT-404")
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListStorageUnitsByKind(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY s.code")).
		WithArgs("OUTBOX").
		WillReturnRows(sqlmock.NewRows(unitRowColumns).
			AddRow("su_1", "OUT-1", "OUTBOX", "", "", "OPEN", "", 0, now).
			AddRow("su_2", "OUT-2", "OUTBOX", "", "", "CLOSED", "", 0, now))

	units, err := Datasource{Conn: db}.ListStorageUnitsByKind(context.Background(), model.KindOutbox)
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, model.UnitStatusClosed, units[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetStorageUnitLock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ds := Datasource{Conn: db}
	query := regexp.QuoteMeta("UPDATE wharf.storage_units SET lock_owner")

	mock.ExpectExec(query).WithArgs("su_1", "trf_1").WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, ds.SetStorageUnitLock(context.Background(), "su_1", "trf_1"))

	mock.ExpectExec(query).WithArgs("su_1", nil).WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, ds.SetStorageUnitLock(context.Background(), "su_1", ""))

	mock.ExpectExec(query).WithArgs("su_404", "trf_1").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, ds.SetStorageUnitLock(context.Background(), "su_404", "trf_1"), model.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
