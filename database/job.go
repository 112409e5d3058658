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
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/blnkfinance/wharf/model"
)

const jobColumns = `j.job_id, COALESCE(j.demand_id, ''), COALESCE(j.wave_id, ''), j.kind, j.status, COALESCE(j.zone, ''), j.created_at, j.updated_at`

const taskColumns = `task_id, job_id, demand_id, line_id, product_id, class, source_unit_id, source_unit_code, quantity, status, sequence, COALESCE(destination_unit_id, ''), completed_at`

func jobDest(j *model.PickingJob) []interface{} {
	return []interface{}{&j.JobID, &j.DemandID, &j.WaveID, &j.Kind, &j.Status, &j.Zone, &j.CreatedAt, &j.UpdatedAt}
}

func scanTask(row rowScanner) (model.PickingTask, error) {
	var t model.PickingTask
	var completedAt sql.NullTime
	err := row.Scan(&t.TaskID, &t.JobID, &t.DemandID, &t.LineID, &t.ProductID, &t.Class, &t.SourceUnitID,
		&t.SourceUnitCode, &t.Quantity, &t.Status, &t.Sequence, &t.DestinationUnitID, &completedAt)
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return t, err
}

// CreateJob persists a job header and its tasks as one unit.
func (d Datasource) CreateJob(ctx context.Context, job model.PickingJob) (model.PickingJob, error) {
	ctx, span := otel.Tracer("wharf.database").Start(ctx, "Saving picking job to db")
	defer span.End()

	if job.JobID == "" {
		job.JobID = model.GenerateUUIDWithSuffix("job")
	}
	if job.Status == "" {
		job.Status = model.JobOpen
	}
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt

	err := d.WithinTransaction(ctx, func(ds IDataSource) error {
		q := ds.(Datasource).q()
		_, err := q.ExecContext(ctx, `
			INSERT INTO wharf.picking_jobs (job_id, demand_id, wave_id, kind, status, zone, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, job.JobID, nullString(job.DemandID), nullString(job.WaveID), job.Kind, job.Status, nullString(job.Zone), job.CreatedAt, job.UpdatedAt)
		if err != nil {
			return duplicate(err, "job %s", job.JobID)
		}

		for i := range job.Tasks {
			task := &job.Tasks[i]
			task.TaskID = model.GenerateUUIDWithSuffix("task")
			task.JobID = job.JobID
			task.Sequence = i + 1
			if task.Status == "" {
				task.Status = model.TaskPending
			}
			_, err := q.ExecContext(ctx, `
				INSERT INTO wharf.picking_tasks (task_id, job_id, demand_id, line_id, product_id, class, source_unit_id, source_unit_code, quantity, status, sequence)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			`, task.TaskID, task.JobID, task.DemandID, task.LineID, task.ProductID, task.Class, task.SourceUnitID, task.SourceUnitCode, task.Quantity, task.Status, task.Sequence)
			if err != nil {
				return errors.Wrapf(err, "failed to create task for %s", task.ProductID)
			}
		}
		return nil
	})
	if err != nil {
		return model.PickingJob{}, err
	}
	return job, nil
}

func (d Datasource) GetJob(ctx context.Context, id string) (*model.PickingJob, error) {
	job := &model.PickingJob{}
	err := d.q().QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM wharf.picking_jobs j
		WHERE j.job_id = $1
	`+d.forUpdate(), id).Scan(jobDest(job)...)
	if err != nil {
		return nil, notFound(err, "job %s", id)
	}

	tasks, err := d.tasksOf(ctx, job.JobID)
	if err != nil {
		return nil, err
	}
	job.Tasks = tasks
	return job, nil
}

func (d Datasource) tasksOf(ctx context.Context, jobID string) ([]model.PickingTask, error) {
	rows, err := d.q().QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM wharf.picking_tasks
		WHERE job_id = $1
		ORDER BY sequence
	`, jobID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch tasks of %s", jobID)
	}
	defer func() { _ = rows.Close() }()

	var tasks []model.PickingTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan task")
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// ListJobs returns job headers matching the filter, newest first.
func (d Datasource) ListJobs(ctx context.Context, filter JobFilter) ([]model.PickingJob, error) {
	var conditions []string
	var args []interface{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("j.status = $%d", len(args)))
	}
	if filter.Zone != "" {
		args = append(args, filter.Zone)
		conditions = append(conditions, fmt.Sprintf("j.zone = $%d", len(args)))
	}

	var query strings.Builder
	query.WriteString(`SELECT ` + jobColumns + ` FROM wharf.picking_jobs j`)
	if len(conditions) > 0 {
		query.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	query.WriteString(" ORDER BY j.created_at DESC, j.id DESC")

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, filter.Offset)
	query.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args)))

	return d.queryJobs(ctx, query.String(), args...)
}

// ListJobsByDemand returns the demand's own jobs plus wave jobs holding any of its tasks.
func (d Datasource) ListJobsByDemand(ctx context.Context, demandID string) ([]model.PickingJob, error) {
	return d.queryJobs(ctx, `
		SELECT `+jobColumns+`
		FROM wharf.picking_jobs j
		WHERE j.demand_id = $1
		   OR EXISTS (SELECT 1 FROM wharf.picking_tasks t WHERE t.job_id = j.job_id AND t.demand_id = $1)
		ORDER BY j.id
	`, demandID)
}

func (d Datasource) queryJobs(ctx context.Context, query string, args ...interface{}) ([]model.PickingJob, error) {
	rows, err := d.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list jobs")
	}
	defer func() { _ = rows.Close() }()

	var jobs []model.PickingJob
	for rows.Next() {
		var job model.PickingJob
		if err := rows.Scan(jobDest(&job)...); err != nil {
			return nil, errors.Wrap(err, "failed to scan job")
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range jobs {
		tasks, err := d.tasksOf(ctx, jobs[i].JobID)
		if err != nil {
			return nil, err
		}
		jobs[i].Tasks = tasks
	}
	return jobs, nil
}

func (d Datasource) UpdateJobStatus(ctx context.Context, id string, status model.JobStatus) error {
	result, err := d.q().ExecContext(ctx, `
		UPDATE wharf.picking_jobs SET status = $2, updated_at = $3 WHERE job_id = $1
	`, id, status, time.Now())
	if err != nil {
		return errors.Wrapf(err, "failed to update status of job %s", id)
	}
	return expectAffected(result, model.ErrNotFound, "job %s", id)
}

// DeleteJob removes the job. Its tasks go with it through the foreign key cascade.
func (d Datasource) DeleteJob(ctx context.Context, id string) error {
	result, err := d.q().ExecContext(ctx, `DELETE FROM wharf.picking_jobs WHERE job_id = $1`, id)
	if err != nil {
		return errors.Wrapf(err, "failed to delete job %s", id)
	}
	return expectAffected(result, model.ErrNotFound, "job %s", id)
}

func (d Datasource) GetTask(ctx context.Context, id string) (*model.PickingTask, error) {
	row := d.q().QueryRowContext(ctx, `
		SELECT `+taskColumns+`
		FROM wharf.picking_tasks
		WHERE task_id = $1
	`+d.forUpdate(), id)
	task, err := scanTask(row)
	if err != nil {
		return nil, notFound(err, "task %s", id)
	}
	return &task, nil
}

func (d Datasource) CompleteTask(ctx context.Context, id, destinationUnitID string, at time.Time) error {
	result, err := d.q().ExecContext(ctx, `
		UPDATE wharf.picking_tasks
		SET status = $2, destination_unit_id = $3, completed_at = $4
		WHERE task_id = $1 AND status = $5
	`, id, model.TaskCompleted, destinationUnitID, at, model.TaskPending)
	if err != nil {
		return errors.Wrapf(err, "failed to complete task %s", id)
	}
	return expectAffected(result, model.ErrInvalidState, "task %s is not pending", id)
}
