package failure

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

var _ Backend = (*SQLBackend)(nil)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

var schemas = map[string]string{
	DriverPostgres: `
CREATE TABLE IF NOT EXISTS resque_failures (
	id            BIGSERIAL PRIMARY KEY,
	failed_at     TEXT NOT NULL,
	payload       TEXT NOT NULL,
	exception     TEXT NOT NULL,
	error_message TEXT NOT NULL,
	backtrace     TEXT NOT NULL,
	worker        TEXT NOT NULL,
	queue         TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	DriverSQLite: `
CREATE TABLE IF NOT EXISTS resque_failures (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	failed_at     TEXT NOT NULL,
	payload       TEXT NOT NULL,
	exception     TEXT NOT NULL,
	error_message TEXT NOT NULL,
	backtrace     TEXT NOT NULL,
	worker        TEXT NOT NULL,
	queue         TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
}

// failureRow is the database representation of a Failure.
type failureRow struct {
	ID        int64  `db:"id"`
	FailedAt  string `db:"failed_at"`
	Payload   string `db:"payload"`
	Exception string `db:"exception"`
	Error     string `db:"error_message"`
	Backtrace string `db:"backtrace"`
	Worker    string `db:"worker"`
	Queue     string `db:"queue"`
}

func (r *failureRow) toFailure() (*Failure, error) {
	var backtrace []string
	if err := json.Unmarshal([]byte(r.Backtrace), &backtrace); err != nil {
		return nil, fmt.Errorf("failed to unmarshal backtrace of failure %d: %w", r.ID, err)
	}
	return &Failure{
		FailedAt:  r.FailedAt,
		Payload:   json.RawMessage(r.Payload),
		Exception: r.Exception,
		Error:     r.Error,
		Backtrace: backtrace,
		Worker:    r.Worker,
		Queue:     r.Queue,
	}, nil
}

// SQLBackend stores failures in a resque_failures table on Postgres or
// SQLite. Rows are only ever inserted by Save.
type SQLBackend struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewSQLBackend wraps an open database. The driver must be postgres or
// sqlite3.
func NewSQLBackend(db *sqlx.DB, logger *slog.Logger) (*SQLBackend, error) {
	if _, ok := schemas[db.DriverName()]; !ok {
		return nil, fmt.Errorf("unsupported failure backend driver: %s", db.DriverName())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLBackend{db: db, logger: logger}, nil
}

// EnsureSchema creates the failures table when it does not exist.
func (b *SQLBackend) EnsureSchema(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, schemas[b.db.DriverName()]); err != nil {
		return fmt.Errorf("failed to create failures table: %w", err)
	}
	b.logger.Info("Failure table ready", slog.String("driver", b.db.DriverName()))
	return nil
}

func (b *SQLBackend) Save(ctx context.Context, f *Failure) error {
	backtrace, err := json.Marshal(f.Backtrace)
	if err != nil {
		return fmt.Errorf("failed to marshal backtrace: %w", err)
	}

	row := failureRow{
		FailedAt:  f.FailedAt,
		Payload:   string(f.Payload),
		Exception: f.Exception,
		Error:     f.Error,
		Backtrace: string(backtrace),
		Worker:    f.Worker,
		Queue:     f.Queue,
	}

	query := `
		INSERT INTO resque_failures (failed_at, payload, exception, error_message, backtrace, worker, queue)
		VALUES (:failed_at, :payload, :exception, :error_message, :backtrace, :worker, :queue)
	`
	if _, err := b.db.NamedExecContext(ctx, query, row); err != nil {
		b.logger.Error("Failed to insert failure",
			slog.Any("error", err),
			slog.String("queue", f.Queue),
		)
		return fmt.Errorf("failed to insert failure: %w", err)
	}
	return nil
}

func (b *SQLBackend) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := b.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM resque_failures`); err != nil {
		return 0, fmt.Errorf("failed to count failures: %w", err)
	}
	return n, nil
}

// All returns up to limit failures starting at offset, oldest first. A
// non-positive limit returns everything from offset.
func (b *SQLBackend) All(ctx context.Context, offset, limit int64) ([]*Failure, error) {
	if limit <= 0 {
		limit = -1
		if b.db.DriverName() == DriverPostgres {
			limit = 1<<63 - 1
		}
	}

	query := b.db.Rebind(`
		SELECT id, failed_at, payload, exception, error_message, backtrace, worker, queue
		FROM resque_failures
		ORDER BY id ASC
		LIMIT ? OFFSET ?
	`)

	var rows []failureRow
	if err := b.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list failures: %w", err)
	}

	out := make([]*Failure, 0, len(rows))
	for i := range rows {
		f, err := rows[i].toFailure()
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (b *SQLBackend) Clear(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM resque_failures`); err != nil {
		return fmt.Errorf("failed to clear failures: %w", err)
	}
	return nil
}
