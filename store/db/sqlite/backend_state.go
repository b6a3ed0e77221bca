package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/subjectindex/store"
)

const backendStateColumns = "project_id, backend_id, name, data, updated_ts"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBackendState(row rowScanner) (*store.BackendState, error) {
	var state store.BackendState
	if err := row.Scan(&state.ProjectID, &state.BackendID, &state.Name, &state.Data, &state.UpdatedTs); err != nil {
		return nil, err
	}
	return &state, nil
}

func (d *DB) GetBackendState(ctx context.Context, find *store.FindBackendState) (*store.BackendState, error) {
	if find == nil {
		return nil, errors.New("find parameter cannot be nil")
	}
	return getBackendState(ctx, d.db, find)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getBackendState(ctx context.Context, q queryer, find *store.FindBackendState) (*store.BackendState, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+backendStateColumns+" FROM backend_state WHERE project_id = ? AND backend_id = ? AND name = ?",
		find.ProjectID, find.BackendID, find.Name,
	)
	state, err := scanBackendState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get backend state")
	}
	return state, nil
}

func (d *DB) ListBackendStates(ctx context.Context, find *store.FindBackendState) ([]*store.BackendState, error) {
	if find == nil {
		return nil, errors.New("find parameter cannot be nil")
	}

	query := "SELECT " + backendStateColumns + " FROM backend_state WHERE project_id = ? AND backend_id = ?"
	args := []any{find.ProjectID, find.BackendID}
	if find.Name != "" {
		query += " AND name = ?"
		args = append(args, find.Name)
	}
	query += " ORDER BY name ASC"

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list backend states")
	}
	defer rows.Close()

	var states []*store.BackendState
	for rows.Next() {
		state, err := scanBackendState(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan backend state")
		}
		states = append(states, state)
	}
	return states, rows.Err()
}

func upsertBackendState(ctx context.Context, q queryer, upsert *store.BackendState) (*store.BackendState, error) {
	if upsert.Data == nil {
		upsert.Data = []byte{}
	}
	row := q.QueryRowContext(ctx, `
		INSERT INTO backend_state (project_id, backend_id, name, data, updated_ts)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (project_id, backend_id, name) DO UPDATE SET
			data = excluded.data,
			updated_ts = excluded.updated_ts
		RETURNING `+backendStateColumns,
		upsert.ProjectID, upsert.BackendID, upsert.Name, upsert.Data, time.Now().Unix(),
	)
	state, err := scanBackendState(row)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert backend state")
	}
	return state, nil
}

func (d *DB) UpsertBackendState(ctx context.Context, upsert *store.BackendState) (*store.BackendState, error) {
	if upsert == nil {
		return nil, errors.New("upsert parameter cannot be nil")
	}
	return upsertBackendState(ctx, d.db, upsert)
}

func (d *DB) UpdateBackendState(ctx context.Context, find *store.FindBackendState, fn store.BackendStateUpdateFunc) (*store.BackendState, error) {
	if find == nil || fn == nil {
		return nil, errors.New("find and update function are required")
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	current, err := getBackendState(ctx, tx, find)
	if err != nil {
		return nil, err
	}
	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return current, nil
	}
	next.ProjectID, next.BackendID, next.Name = find.ProjectID, find.BackendID, find.Name

	state, err := upsertBackendState(ctx, tx, next)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit backend state")
	}
	return state, nil
}

func (d *DB) DeleteBackendState(ctx context.Context, delete *store.DeleteBackendState) error {
	if delete == nil {
		return errors.New("delete parameter cannot be nil")
	}

	query := "DELETE FROM backend_state WHERE project_id = ? AND backend_id = ?"
	args := []any{delete.ProjectID, delete.BackendID}
	if delete.Name != "" {
		query += " AND name = ?"
		args = append(args, delete.Name)
	}
	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "failed to delete backend state")
	}
	return nil
}
