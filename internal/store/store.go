// Package store exports loaded shape records to PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"

	_ "github.com/lib/pq"

	"github.com/beetlebugorg/shapefile/pkg/shapefile"
)

// DefaultTable receives exports when no table is named.
const DefaultTable = "shape_records"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Store holds the connection pool.
type Store struct {
	db *sql.DB
}

// Attach wraps an existing pool.
func Attach(db *sql.DB) *Store { return &Store{db: db} }

// Open opens a pool for dsn. The connection is not checked until first use.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	maxOpen, maxIdle := 50, 25
	if v := os.Getenv("PG_MAX_OPEN_CONNS"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			maxOpen = n
		}
	}
	if v := os.Getenv("PG_MAX_IDLE_CONNS"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			maxIdle = n
		}
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	return &Store{db: db}, nil
}

// BuildDSNFromEnv assembles a DSN from PG_HOST, PG_PORT, PG_USER,
// PG_PASSWORD, PG_DB and PG_SSLMODE.
func BuildDSNFromEnv() string {
	env := func(k, def string) string {
		if v := os.Getenv(k); v != "" {
			return v
		}
		return def
	}
	dsn := "postgres://" + env("PG_USER", "postgres")
	if pass := os.Getenv("PG_PASSWORD"); pass != "" {
		dsn += ":" + pass
	}
	dsn += "@" + env("PG_HOST", "localhost") + ":" + env("PG_PORT", "5432") +
		"/" + env("PG_DB", "shpgeo") + "?sslmode=" + env("PG_SSLMODE", "disable")
	return dsn
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// ValidateTable rejects names that are not plain SQL identifiers.
func ValidateTable(table string) error {
	if !tableName.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	return nil
}

// EnsureSchema creates the export table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context, table string) error {
	if err := ValidateTable(table); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+table+` (
	source        TEXT NOT NULL,
	record_index  INTEGER NOT NULL,
	record_number INTEGER NOT NULL,
	name          TEXT NOT NULL DEFAULT '',
	shape_type    TEXT NOT NULL,
	min_x         DOUBLE PRECISION,
	min_y         DOUBLE PRECISION,
	max_x         DOUBLE PRECISION,
	max_y         DOUBLE PRECISION,
	center_x      DOUBLE PRECISION,
	center_y      DOUBLE PRECISION,
	attributes    JSONB NOT NULL DEFAULT '{}',
	PRIMARY KEY (source, record_index)
)`)
	return err
}

// Row is one exported record.
type Row struct {
	Index      int
	Number     int32
	Name       string
	ShapeType  string
	MinX       float64
	MinY       float64
	MaxX       float64
	MaxY       float64
	CenterX    float64
	CenterY    float64
	Attributes []byte
}

// RowFor flattens a record. Null shapes export with a zero box.
func RowFor(rec *shapefile.ShapeRecord, nameField string) (Row, error) {
	attrs, err := AttributesJSON(rec)
	if err != nil {
		return Row{}, err
	}
	b := rec.Bounds()
	c := b.Center()
	return Row{
		Index:      rec.Index,
		Number:     rec.Number,
		Name:       rec.StringAttr(nameField),
		ShapeType:  rec.ShapeTypeName(),
		MinX:       b.MinX,
		MinY:       b.MinY,
		MaxX:       b.MaxX,
		MaxY:       b.MaxY,
		CenterX:    c.X,
		CenterY:    c.Y,
		Attributes: attrs,
	}, nil
}

// AttributesJSON encodes a record's attributes with their native types.
func AttributesJSON(rec *shapefile.ShapeRecord) ([]byte, error) {
	return json.Marshal(rec.AttributeMap())
}

// ExportRecords replaces every row of source in table with records inside a
// single transaction. Deleted records are skipped. It returns the number
// of rows written.
func (s *Store) ExportRecords(ctx context.Context, table, source string, records []*shapefile.ShapeRecord, nameField string) (int, error) {
	if err := ValidateTable(table); err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE source = $1`, source); err != nil {
		return 0, fmt.Errorf("clear %s: %w", source, err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+table+` (source, record_index, record_number, name, shape_type,
	min_x, min_y, max_x, max_y, center_x, center_y, attributes)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	n := 0
	for _, rec := range records {
		if rec == nil || rec.Deleted {
			continue
		}
		row, err := RowFor(rec, nameField)
		if err != nil {
			return 0, fmt.Errorf("record %d: %w", rec.Index, err)
		}
		if _, err := stmt.ExecContext(ctx, source, row.Index, row.Number, row.Name, row.ShapeType,
			row.MinX, row.MinY, row.MaxX, row.MaxY, row.CenterX, row.CenterY, string(row.Attributes)); err != nil {
			return 0, fmt.Errorf("insert record %d: %w", rec.Index, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

// Count returns the number of rows exported for source.
func (s *Store) Count(ctx context.Context, table, source string) (int, error) {
	if err := ValidateTable(table); err != nil {
		return 0, err
	}
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE source = $1`, source).Scan(&n)
	return n, err
}
