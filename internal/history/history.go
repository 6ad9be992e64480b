// Package history records Runner runs in the sqlite database. Runs only
// write to it; it is read by the runs command and the gateway.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sentiomcp/internal/db"
)

var ErrNotFound = errors.New("run not found")

type Run struct {
	ID         string          `json:"id"`
	Model      string          `json:"model"`
	Query      string          `json:"query"`
	Servers    []string        `json:"servers"`
	Response   json.RawMessage `json:"response,omitempty"`
	Error      string          `json:"error,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

type Store struct {
	q *db.Queries
}

func NewStore(database *db.DB) *Store {
	return &Store{q: database.Queries()}
}

// Record stores a finished run. An empty ID is replaced with a new UUID,
// which is written back to run.
func (s *Store) Record(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	servers, err := json.Marshal(run.Servers)
	if err != nil {
		return fmt.Errorf("encoding servers: %w", err)
	}
	if run.Servers == nil {
		servers = []byte("[]")
	}

	err = s.q.InsertRun(ctx, db.InsertRunParams{
		ID:           run.ID,
		Model:        run.Model,
		Query:        run.Query,
		Servers:      string(servers),
		ResponseJson: sql.NullString{String: string(run.Response), Valid: len(run.Response) > 0},
		Error:        sql.NullString{String: run.Error, Valid: run.Error != ""},
		StartedAt:    run.StartedAt.UTC(),
		FinishedAt:   run.FinishedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("recording run %s: %w", run.ID, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row, err := s.q.GetRun(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", id, err)
	}
	run := fromRow(row)
	return &run, nil
}

// List returns up to limit runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.q.ListRuns(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	runs := make([]Run, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, fromRow(row))
	}
	return runs, nil
}

func fromRow(row db.Run) Run {
	run := Run{
		ID:         row.ID,
		Model:      row.Model,
		Query:      row.Query,
		Error:      row.Error.String,
		StartedAt:  row.StartedAt,
		FinishedAt: row.FinishedAt,
	}
	if row.ResponseJson.Valid {
		run.Response = json.RawMessage(row.ResponseJson.String)
	}
	if err := json.Unmarshal([]byte(row.Servers), &run.Servers); err != nil {
		slog.Warn("run has invalid servers column", "run_id", row.ID, "error", err)
	}
	return run
}
