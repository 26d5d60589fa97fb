// Package duckdb loads stored time series from a DuckDB database. Dataset
// storage is a collaborator concern; the prediction engine itself performs
// no I/O.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/marcboeker/go-duckdb"
)

type Reader struct {
	dataSourceName string
	db             *sql.DB
}

func NewReader(dataSourceName string) *Reader {
	return &Reader{
		dataSourceName: dataSourceName,
	}
}

func (r *Reader) Connect() error {
	db, err := sql.Open("duckdb", r.dataSourceName)
	if err != nil {
		return fmt.Errorf("sql.Open: %w", err)
	}
	r.db = db
	return nil
}

func (r *Reader) Close() {
	_ = r.db.Close()
}

// LoadSeries streams the observations of one series between from and to,
// ordered by timestamp ascending, into the handler.
func (r *Reader) LoadSeries(ctx context.Context, table string, from, to time.Time, handler func(ts time.Time, value float64) error) error {

	query := fmt.Sprintf(`SELECT ts, value FROM %s WHERE ts BETWEEN ? AND ? ORDER BY ts`, table)

	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return fmt.Errorf("error preparing query: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	for rows.Next() {
		var ts time.Time
		var value float64
		if err := rows.Scan(&ts, &value); err != nil {
			return fmt.Errorf("error scanning row: %w", err)
		}
		if err := handler(ts, value); err != nil {
			return fmt.Errorf("error processing observation: %w", err)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error scanning rows: %w", err)
	}

	return nil
}
