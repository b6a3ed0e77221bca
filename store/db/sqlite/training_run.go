package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/subjectindex/store"
)

const trainingRunColumns = "id, project_id, backend_id, state, documents, error, created_ts, updated_ts"

func scanTrainingRun(row rowScanner) (*store.TrainingRun, error) {
	var run store.TrainingRun
	if err := row.Scan(&run.ID, &run.ProjectID, &run.BackendID, &run.State, &run.Documents, &run.Error, &run.CreatedTs, &run.UpdatedTs); err != nil {
		return nil, err
	}
	return &run, nil
}

func (d *DB) CreateTrainingRun(ctx context.Context, create *store.TrainingRun) (*store.TrainingRun, error) {
	if create == nil {
		return nil, errors.New("create parameter cannot be nil")
	}
	if create.ID == "" {
		return nil, errors.New("training run id is required")
	}
	state := create.State
	if state == "" {
		state = store.TrainingRunRunning
	}
	now := time.Now().Unix()

	row := d.db.QueryRowContext(ctx, `
		INSERT INTO training_run (id, project_id, backend_id, state, documents, error, created_ts, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+trainingRunColumns,
		create.ID, create.ProjectID, create.BackendID, state, create.Documents, create.Error, now, now,
	)
	run, err := scanTrainingRun(row)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create training run")
	}
	return run, nil
}

func (d *DB) UpdateTrainingRun(ctx context.Context, update *store.UpdateTrainingRun) (*store.TrainingRun, error) {
	if update == nil {
		return nil, errors.New("update parameter cannot be nil")
	}

	set, args := []string{"updated_ts = ?"}, []any{time.Now().Unix()}
	if v := update.State; v != nil {
		set, args = append(set, "state = ?"), append(args, *v)
	}
	if v := update.Documents; v != nil {
		set, args = append(set, "documents = ?"), append(args, *v)
	}
	if v := update.Error; v != nil {
		set, args = append(set, "error = ?"), append(args, *v)
	}
	args = append(args, update.ID)

	row := d.db.QueryRowContext(ctx,
		"UPDATE training_run SET "+strings.Join(set, ", ")+" WHERE id = ? RETURNING "+trainingRunColumns,
		args...,
	)
	run, err := scanTrainingRun(row)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to update training run %s", update.ID)
	}
	return run, nil
}

func (d *DB) ListTrainingRuns(ctx context.Context, find *store.FindTrainingRun) ([]*store.TrainingRun, error) {
	if find == nil {
		return nil, errors.New("find parameter cannot be nil")
	}

	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "id = ?"), append(args, *v)
	}
	if v := find.ProjectID; v != nil {
		where, args = append(where, "project_id = ?"), append(args, *v)
	}
	if v := find.BackendID; v != nil {
		where, args = append(where, "backend_id = ?"), append(args, *v)
	}

	query := "SELECT " + trainingRunColumns + " FROM training_run WHERE " + strings.Join(where, " AND ") + " ORDER BY created_ts DESC, rowid DESC"
	if find.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list training runs")
	}
	defer rows.Close()

	var runs []*store.TrainingRun
	for rows.Next() {
		run, err := scanTrainingRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan training run")
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
