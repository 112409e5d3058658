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
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blnkfinance/wharf/model"
)

var jobRowColumns = []string{"job_id", "demand_id", "wave_id", "kind", "status", "zone", "created_at", "updated_at"}
var taskRowColumns = []string{"task_id", "job_id", "demand_id", "line_id", "product_id", "class", "source_unit_id", "source_unit_code", "quantity", "status", "sequence", "destination_unit_id", "completed_at"}

func TestCreateJob_SequencesTasks(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	demandID := "ord_" + gofakeit.UUID()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO wharf.picking_jobs")).
		WithArgs(sqlmock.AnyArg(), demandID, nil, model.JobItemPick, model.JobOpen, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	for i, product := range []string{"P1", "P2"} {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO wharf.picking_tasks")).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), demandID, "line_"+product, product, model.ClassPiece, "su_x", "BX-X", int64(2), model.TaskPending, i+1).
			WillReturnResult(sqlmock.NewResult(int64(i+1), 1))
	}
	mock.ExpectCommit()

	job, err := Datasource{Conn: db}.CreateJob(context.Background(), model.PickingJob{
		DemandID: demandID,
		Kind:     model.JobItemPick,
		Tasks: []model.PickingTask{
			{DemandID: demandID, LineID: "line_P1", ProductID: "P1", Class: model.ClassPiece, SourceUnitID: "su_x", SourceUnitCode: "BX-X", Quantity: 2},
			{DemandID: demandID, LineID: "line_P2", ProductID: "P2", Class: model.ClassPiece, SourceUnitID: "su_x", SourceUnitCode: "BX-X", Quantity: 2},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, model.JobOpen, job.Status)
	assert.Equal(t, 2, job.Tasks[1].Sequence)
	assert.Equal(t, job.JobID, job.Tasks[0].JobID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetJob_WithTasks(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM wharf.picking_jobs j")).
		WithArgs("job_1").
		WillReturnRows(sqlmock.NewRows(jobRowColumns).AddRow("job_1", "", "wave_1", "WAVE_PICK", "OPEN", "A", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM wharf.picking_tasks")).
		WithArgs("job_1").
		WillReturnRows(sqlmock.NewRows(taskRowColumns).
			AddRow("task_1", "job_1", "ord_1", "line_1", "P1", "piece", "su_1", "BX-1", 3, "PENDING", 1, "", nil).
			AddRow("task_2", "job_1", "ord_2", "line_2", "P1", "piece", "su_1", "BX-1", 1, "COMPLETED", 2, "su_out", now))

	job, err := Datasource{Conn: db}.GetJob(context.Background(), "job_1")
	require.NoError(t, err)
	assert.Equal(t, "wave_1", job.WaveID)
	assert.Empty(t, job.DemandID)
	require.Len(t, job.Tasks, 2)
	assert.Nil(t, job.Tasks[0].CompletedAt)
	assert.NotNil(t, job.Tasks[1].CompletedAt)
	assert.Equal(t, "su_out", job.Tasks[1].DestinationUnitID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListJobs_BuildsFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE j.status = $1 AND j.zone = $2 ORDER BY j.created_at DESC, j.id DESC LIMIT $3 OFFSET $4")).
		WithArgs(model.JobOpen, "A", 20, 0).
		WillReturnRows(sqlmock.NewRows(jobRowColumns))

	jobs, err := Datasource{Conn: db}.ListJobs(context.Background(), JobFilter{Status: model.JobOpen, Zone: "A"})
	require.NoError(t, err)
	assert.Empty(t, jobs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteJob_Missing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM wharf.picking_jobs")).
		WithArgs("job_gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = Datasource{Conn: db}.DeleteJob(context.Background(), "job_gone")
	assert.True(t, errors.Is(err, model.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteTask_OnlyPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	at := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wharf.picking_tasks")).
		WithArgs("task_1", model.TaskCompleted, "su_out", at, model.TaskPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = Datasource{Conn: db}.CompleteTask(context.Background(), "task_1", "su_out", at)
	assert.True(t, errors.Is(err, model.ErrInvalidState))
	assert.NoError(t, mock.ExpectationsWereMet())
}
