package repository

import (
	"context"
	"fmt"

	"github.com/fekuna/omnipos-catalog-gate/internal/model"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    tenant TEXT NOT NULL,
    status TEXT NOT NULL,
    error TEXT NOT NULL DEFAULT '',
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP,
    pages INTEGER NOT NULL DEFAULT 0,
    scanned INTEGER NOT NULL DEFAULT 0,
    skipped INTEGER NOT NULL DEFAULT 0,
    checked INTEGER NOT NULL DEFAULT 0,
    passed INTEGER NOT NULL DEFAULT 0,
    failed INTEGER NOT NULL DEFAULT 0,
    errored INTEGER NOT NULL DEFAULT 0,
    activated INTEGER NOT NULL DEFAULT 0,
    drafted INTEGER NOT NULL DEFAULT 0,
    api_calls INTEGER NOT NULL DEFAULT 0,
    throttled INTEGER NOT NULL DEFAULT 0,
    requested_cost REAL NOT NULL DEFAULT 0,
    actual_cost REAL NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS product_outcomes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES runs(id),
    product_id TEXT NOT NULL,
    title TEXT NOT NULL,
    status_before TEXT NOT NULL,
    status_after TEXT NOT NULL,
    verdict TEXT NOT NULL,
    labels_before TEXT NOT NULL,
    labels_after TEXT NOT NULL,
    report TEXT NOT NULL,
    error TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_product_outcomes_run ON product_outcomes(run_id);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    tenant TEXT NOT NULL,
    status TEXT NOT NULL,
    error TEXT NOT NULL DEFAULT '',
    started_at TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ,
    pages INTEGER NOT NULL DEFAULT 0,
    scanned INTEGER NOT NULL DEFAULT 0,
    skipped INTEGER NOT NULL DEFAULT 0,
    checked INTEGER NOT NULL DEFAULT 0,
    passed INTEGER NOT NULL DEFAULT 0,
    failed INTEGER NOT NULL DEFAULT 0,
    errored INTEGER NOT NULL DEFAULT 0,
    activated INTEGER NOT NULL DEFAULT 0,
    drafted INTEGER NOT NULL DEFAULT 0,
    api_calls INTEGER NOT NULL DEFAULT 0,
    throttled INTEGER NOT NULL DEFAULT 0,
    requested_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
    actual_cost DOUBLE PRECISION NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS product_outcomes (
    id BIGSERIAL PRIMARY KEY,
    run_id TEXT NOT NULL REFERENCES runs(id),
    product_id TEXT NOT NULL,
    title TEXT NOT NULL,
    status_before TEXT NOT NULL,
    status_after TEXT NOT NULL,
    verdict TEXT NOT NULL,
    labels_before TEXT NOT NULL,
    labels_after TEXT NOT NULL,
    report TEXT NOT NULL,
    error TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_product_outcomes_run ON product_outcomes(run_id);
`

type SQLRepository struct {
	DB *sqlx.DB
}

// Open connects with driver ("sqlite" or "pgx") and creates the schema if needed.
func Open(ctx context.Context, driver, dsn string) (*SQLRepository, error) {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = sqliteSchema
	case DriverPostgres:
		schema = postgresSchema
	default:
		return nil, fmt.Errorf("ledger: unsupported driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: open: %w", err)
	}
	if driver == DriverSQLite {
		// one writer; also keeps a :memory: database alive across calls
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: create schema: %w", err)
	}
	return &SQLRepository{DB: db}, nil
}

func (r *SQLRepository) StartRun(ctx context.Context, run *model.Run) error {
	query := `
        INSERT INTO runs (id, tenant, status, error, started_at)
        VALUES (:id, :tenant, :status, :error, :started_at)
    `
	_, err := r.DB.NamedExecContext(ctx, query, run)
	return err
}

func (r *SQLRepository) FinishRun(ctx context.Context, run *model.Run) error {
	query := `
        UPDATE runs SET
            status = :status, error = :error, finished_at = :finished_at,
            pages = :pages, scanned = :scanned, skipped = :skipped, checked = :checked,
            passed = :passed, failed = :failed, errored = :errored,
            activated = :activated, drafted = :drafted,
            api_calls = :api_calls, throttled = :throttled,
            requested_cost = :requested_cost, actual_cost = :actual_cost
        WHERE id = :id
    `
	res, err := r.DB.NamedExecContext(ctx, query, run)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("ledger: run %s not found", run.ID)
	}
	return nil
}

func (r *SQLRepository) RecentRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	runs := []model.Run{}
	query := r.DB.Rebind(`SELECT * FROM runs ORDER BY started_at DESC LIMIT ?`)
	if err := r.DB.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *SQLRepository) RecordOutcome(ctx context.Context, o *model.ProductOutcome) error {
	query := `
        INSERT INTO product_outcomes (
            run_id, product_id, title, status_before, status_after, verdict,
            labels_before, labels_after, report, error, created_at
        )
        VALUES (
            :run_id, :product_id, :title, :status_before, :status_after, :verdict,
            :labels_before, :labels_after, :report, :error, :created_at
        )
    `
	_, err := r.DB.NamedExecContext(ctx, query, o)
	return err
}

func (r *SQLRepository) Outcomes(ctx context.Context, runID string) ([]model.ProductOutcome, error) {
	outcomes := []model.ProductOutcome{}
	query := r.DB.Rebind(`SELECT * FROM product_outcomes WHERE run_id = ? ORDER BY id`)
	if err := r.DB.SelectContext(ctx, &outcomes, query, runID); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (r *SQLRepository) Close() error {
	return r.DB.Close()
}
