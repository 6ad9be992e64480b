package db

import (
	"context"
	"database/sql"
	"time"
)

type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Run struct {
	ID           string
	Model        string
	Query        string
	Servers      string
	ResponseJson sql.NullString
	Error        sql.NullString
	StartedAt    time.Time
	FinishedAt   time.Time
}

const insertRun = `INSERT INTO runs (id, model, query, servers, response_json, error, started_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

type InsertRunParams struct {
	ID           string
	Model        string
	Query        string
	Servers      string
	ResponseJson sql.NullString
	Error        sql.NullString
	StartedAt    time.Time
	FinishedAt   time.Time
}

func (q *Queries) InsertRun(ctx context.Context, arg InsertRunParams) error {
	_, err := q.db.ExecContext(ctx, insertRun,
		arg.ID,
		arg.Model,
		arg.Query,
		arg.Servers,
		arg.ResponseJson,
		arg.Error,
		arg.StartedAt,
		arg.FinishedAt,
	)
	return err
}

const getRun = `SELECT id, model, query, servers, response_json, error, started_at, finished_at
FROM runs WHERE id = ?`

func (q *Queries) GetRun(ctx context.Context, id string) (Run, error) {
	row := q.db.QueryRowContext(ctx, getRun, id)
	var r Run
	err := row.Scan(&r.ID, &r.Model, &r.Query, &r.Servers, &r.ResponseJson, &r.Error, &r.StartedAt, &r.FinishedAt)
	return r, err
}

const listRuns = `SELECT id, model, query, servers, response_json, error, started_at, finished_at
FROM runs ORDER BY started_at DESC, id LIMIT ?`

func (q *Queries) ListRuns(ctx context.Context, limit int64) ([]Run, error) {
	rows, err := q.db.QueryContext(ctx, listRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Model, &r.Query, &r.Servers, &r.ResponseJson, &r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
