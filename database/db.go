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
	"database/sql"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/blnkfinance/wharf/config"
	"github.com/blnkfinance/wharf/model"
)

// Declare a package-level variable to hold the singleton instance.
var instance *Datasource
var once sync.Once

const uniqueViolation = "23505"

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Datasource struct {
	Conn *sql.DB
	tx   *sql.Tx
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

// ConnectDB establishes a database connection with pooling.
func ConnectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	err = db.Ping()
	if err != nil {
		logrus.Errorf("database connection error ❌: %v", err)
		return nil, err
	}

	logrus.Info("database connection established ✅")
	return db, nil
}

func (d Datasource) q() queryer {
	if d.tx != nil {
		return d.tx
	}
	return d.Conn
}

// forUpdate locks selected rows when the datasource is bound to a transaction.
func (d Datasource) forUpdate() string {
	if d.tx != nil {
		return " FOR UPDATE"
	}
	return ""
}

// WithinTransaction runs fn inside a single database transaction. Nested calls reuse the
// outer transaction.
func (d Datasource) WithinTransaction(ctx context.Context, fn func(ds IDataSource) error) error {
	if d.tx != nil {
		return fn(d)
	}

	tx, err := d.Conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if err := fn(Datasource{Conn: d.Conn, tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// notFound maps sql.ErrNoRows to model.ErrNotFound and wraps anything else.
func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrapf(model.ErrNotFound, format, args...)
	}
	return errors.Wrapf(err, "failed to fetch "+format, args...)
}

// duplicate maps a unique violation to model.ErrAlreadyExists.
func duplicate(err error, format string, args ...interface{}) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return errors.Wrapf(model.ErrAlreadyExists, format, args...)
	}
	return errors.Wrapf(err, "failed to create "+format, args...)
}

func expectAffected(result sql.Result, target error, format string, args ...interface{}) error {
	n, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if n == 0 {
		return errors.Wrapf(target, format, args...)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
