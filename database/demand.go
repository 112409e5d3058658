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
	"time"

	"github.com/pkg/errors"

	"github.com/blnkfinance/wharf/model"
)

const lineColumns = `line_id, demand_id, product_id, class, box_id, quantity_requested, quantity_reserved, quantity_picked`

func lineDest(l *model.DemandLine) []interface{} {
	return []interface{}{&l.LineID, &l.DemandID, &l.ProductID, &l.Class, &l.BoxID, &l.QuantityRequested, &l.QuantityReserved, &l.QuantityPicked}
}

// CreateDemand persists a demand header with its lines.
func (d Datasource) CreateDemand(ctx context.Context, demand model.Demand) (model.Demand, error) {
	if demand.DemandID == "" {
		demand.DemandID = model.GenerateUUIDWithSuffix(prefixFor(demand.Kind))
	}
	if demand.Status == "" {
		demand.Status = model.DemandPending
	}
	demand.CreatedAt = time.Now()
	demand.UpdatedAt = demand.CreatedAt

	err := d.WithinTransaction(ctx, func(ds IDataSource) error {
		q := ds.(Datasource).q()
		_, err := q.ExecContext(ctx, `
			INSERT INTO wharf.demands (demand_id, kind, status, prior_status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, demand.DemandID, demand.Kind, demand.Status, nullString(string(demand.PriorStatus)), demand.CreatedAt, demand.UpdatedAt)
		if err != nil {
			return duplicate(err, "demand %s", demand.DemandID)
		}

		for i := range demand.Lines {
			line := &demand.Lines[i]
			line.LineID = model.GenerateUUIDWithSuffix("line")
			line.DemandID = demand.DemandID
			if err := insertLine(ctx, q, *line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return model.Demand{}, err
	}
	return demand, nil
}

func prefixFor(kind model.DemandKind) string {
	if kind == model.DemandTransfer {
		return "trf"
	}
	return "ord"
}

func insertLine(ctx context.Context, q queryer, line model.DemandLine) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO wharf.demand_lines (`+lineColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, line.LineID, line.DemandID, line.ProductID, line.Class, line.BoxID, line.QuantityRequested, line.QuantityReserved, line.QuantityPicked)
	if err != nil {
		return errors.Wrapf(err, "failed to create line for %s", line.ProductID)
	}
	return nil
}

// GetDemand returns a demand with its lines and linked boxes.
func (d Datasource) GetDemand(ctx context.Context, id string) (*model.Demand, error) {
	demand := &model.Demand{}
	var prior, approvedBy sql.NullString
	var approvedAt sql.NullTime
	err := d.q().QueryRowContext(ctx, `
		SELECT demand_id, kind, status, prior_status, approved_by, approved_at, created_at, updated_at
		FROM wharf.demands
		WHERE demand_id = $1
	`+d.forUpdate(), id).Scan(&demand.DemandID, &demand.Kind, &demand.Status, &prior, &approvedBy, &approvedAt, &demand.CreatedAt, &demand.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "demand %s", id)
	}
	demand.PriorStatus = model.DemandStatus(prior.String)
	demand.ApprovedBy = approvedBy.String
	if approvedAt.Valid {
		demand.ApprovedAt = &approvedAt.Time
	}

	rows, err := d.q().QueryContext(ctx, `
		SELECT `+lineColumns+`
		FROM wharf.demand_lines
		WHERE demand_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch lines of %s", id)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var line model.DemandLine
		if err := rows.Scan(lineDest(&line)...); err != nil {
			return nil, errors.Wrap(err, "failed to scan demand line")
		}
		demand.Lines = append(demand.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	boxRows, err := d.q().QueryContext(ctx, `
		SELECT storage_unit_id FROM wharf.demand_boxes WHERE demand_id = $1 ORDER BY id
	`, id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch boxes of %s", id)
	}
	defer func() { _ = boxRows.Close() }()
	for boxRows.Next() {
		var box string
		if err := boxRows.Scan(&box); err != nil {
			return nil, errors.Wrap(err, "failed to scan demand box")
		}
		demand.Boxes = append(demand.Boxes, box)
	}
	return demand, boxRows.Err()
}

// UpdateDemandStatus sets the status. A non-empty prior replaces the stored pre-allocation status.
func (d Datasource) UpdateDemandStatus(ctx context.Context, id string, status, prior model.DemandStatus) error {
	result, err := d.q().ExecContext(ctx, `
		UPDATE wharf.demands
		SET status = $2, prior_status = COALESCE($3, prior_status), updated_at = $4
		WHERE demand_id = $1
	`, id, status, nullString(string(prior)), time.Now())
	if err != nil {
		return errors.Wrapf(err, "failed to update status of %s", id)
	}
	return expectAffected(result, model.ErrNotFound, "demand %s", id)
}

func (d Datasource) ApproveDemand(ctx context.Context, id string, approvedBy string, at time.Time) error {
	result, err := d.q().ExecContext(ctx, `
		UPDATE wharf.demands
		SET status = $2, approved_by = $3, approved_at = $4, updated_at = $4
		WHERE demand_id = $1 AND status = $5
	`, id, model.DemandApproved, approvedBy, at, model.DemandPending)
	if err != nil {
		return errors.Wrapf(err, "failed to approve %s", id)
	}
	return expectAffected(result, model.ErrInvalidState, "demand %s is not pending", id)
}

func (d Datasource) AdjustLineReserved(ctx context.Context, lineID string, delta int64) error {
	result, err := d.q().ExecContext(ctx, `
		UPDATE wharf.demand_lines
		SET quantity_reserved = quantity_reserved + $2
		WHERE line_id = $1
		  AND quantity_reserved + $2 >= quantity_picked
		  AND quantity_reserved + $2 <= quantity_requested
	`, lineID, delta)
	if err != nil {
		return errors.Wrapf(err, "failed to adjust reserved on %s", lineID)
	}
	return expectAffected(result, model.ErrInvalidState, "line %s cannot move reserved by %d", lineID, delta)
}

func (d Datasource) AdjustLinePicked(ctx context.Context, lineID string, delta int64) error {
	result, err := d.q().ExecContext(ctx, `
		UPDATE wharf.demand_lines
		SET quantity_picked = quantity_picked + $2
		WHERE line_id = $1
		  AND quantity_picked + $2 >= 0
		  AND quantity_picked + $2 <= quantity_reserved
	`, lineID, delta)
	if err != nil {
		return errors.Wrapf(err, "failed to adjust picked on %s", lineID)
	}
	return expectAffected(result, model.ErrInvalidState, "line %s cannot move picked by %d", lineID, delta)
}

// UpsertBoxLine writes the line for one product of one box, replacing its requested and
// reserved quantities when the line already exists.
func (d Datasource) UpsertBoxLine(ctx context.Context, line model.DemandLine) (model.DemandLine, error) {
	line.LineID = model.GenerateUUIDWithSuffix("line")
	err := d.q().QueryRowContext(ctx, `
		INSERT INTO wharf.demand_lines (`+lineColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (demand_id, box_id, class, product_id) WHERE box_id <> ''
		DO UPDATE SET quantity_requested = EXCLUDED.quantity_requested, quantity_reserved = EXCLUDED.quantity_reserved
		RETURNING line_id
	`, line.LineID, line.DemandID, line.ProductID, line.Class, line.BoxID, line.QuantityRequested, line.QuantityReserved, line.QuantityPicked).Scan(&line.LineID)
	if err != nil {
		return model.DemandLine{}, errors.Wrapf(err, "failed to upsert box line %s/%s", line.BoxID, line.ProductID)
	}
	return line, nil
}

func (d Datasource) LinkBox(ctx context.Context, demandID, boxID string) error {
	_, err := d.q().ExecContext(ctx, `
		INSERT INTO wharf.demand_boxes (demand_id, storage_unit_id) VALUES ($1, $2)
	`, demandID, boxID)
	if err != nil {
		return duplicate(err, "box %s on %s", boxID, demandID)
	}
	return nil
}

// GetApprovedHolds sums what other approved transfers still expect to take of a product
// beyond what they already reserved.
func (d Datasource) GetApprovedHolds(ctx context.Context, key model.ProductKey, excludeDemandID string) (int64, error) {
	var held int64
	err := d.q().QueryRowContext(ctx, `
		SELECT COALESCE(SUM(l.quantity_requested - l.quantity_reserved), 0)
		FROM wharf.demand_lines l
		JOIN wharf.demands dm ON dm.demand_id = l.demand_id
		WHERE dm.kind = $1 AND dm.status = $2 AND dm.demand_id <> $3
		  AND l.box_id = '' AND l.class = $4 AND l.product_id = $5
	`, model.DemandTransfer, model.DemandApproved, excludeDemandID, key.Class, key.ProductID).Scan(&held)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to sum approved holds of %s", key)
	}
	return held, nil
}
