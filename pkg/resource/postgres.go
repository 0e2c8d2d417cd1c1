package resource

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrations returns the goose migrations for the resources table.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

const recordColumns = `id::text AS id, package_id, name, url, url_type, created_at, updated_at`

// PostgresStore is a Store backed by the resources table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store on pool. The schema must be migrated.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	rows, _ := s.pool.Query(ctx, `SELECT `+recordColumns+` FROM resources WHERE id = $1`, id)
	return collectOne(rows, id)
}

func (s *PostgresStore) Create(ctx context.Context, rec Record) (Record, error) {
	if _, err := uuid.Parse(rec.ID); err != nil {
		return Record{}, fmt.Errorf("%w: id must be a UUID", ErrInvalidInput)
	}

	rows, _ := s.pool.Query(ctx, `
		INSERT INTO resources (id, package_id, name, url, url_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+recordColumns,
		rec.ID, rec.PackageID, rec.Name, rec.URL, rec.URLType,
	)
	return collectOne(rows, rec.ID)
}

func (s *PostgresStore) Update(ctx context.Context, rec Record) (Record, error) {
	if _, err := uuid.Parse(rec.ID); err != nil {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, rec.ID)
	}

	rows, _ := s.pool.Query(ctx, `
		UPDATE resources
		SET package_id = $2, name = $3, url = $4, url_type = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+recordColumns,
		rec.ID, rec.PackageID, rec.Name, rec.URL, rec.URLType,
	)
	return collectOne(rows, rec.ID)
}

func (s *PostgresStore) ListUploads(ctx context.Context, after string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}

	var (
		rows pgx.Rows
		err  error
	)
	if after == "" {
		rows, err = s.pool.Query(ctx, `
			SELECT `+recordColumns+` FROM resources
			WHERE url_type = $1 ORDER BY id LIMIT $2`, URLTypeUpload, limit)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT `+recordColumns+` FROM resources
			WHERE url_type = $1 AND id > $2::uuid ORDER BY id LIMIT $3`, URLTypeUpload, after, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("resource: list uploads: %w", err)
	}

	recs, err := pgx.CollectRows(rows, pgx.RowToStructByName[Record])
	if err != nil {
		return nil, fmt.Errorf("resource: list uploads: %w", err)
	}
	return recs, nil
}

func collectOne(rows pgx.Rows, id string) (Record, error) {
	rec, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[Record])
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("resource: %w", err)
	}
	return rec, nil
}

var _ Store = (*PostgresStore)(nil)
