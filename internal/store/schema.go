package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"
)

// BookingLocationColumns are the bookings columns live tracking writes to.
var BookingLocationColumns = []string{"current_lat", "current_lng", "eta_minutes", "status", "updated_at"}

// Schema is a column catalog read from information_schema.
type Schema struct {
	tables map[string][]string // "schema.table" -> ordered column names
}

// LoadSchema reads the columns of every table in schemas, or of every
// non-system schema when schemas is empty.
func LoadSchema(ctx context.Context, db *sql.DB, schemas []string) (*Schema, error) {
	query := `
		SELECT table_schema, table_name, column_name
		FROM information_schema.columns
		WHERE table_schema NOT IN ('pg_catalog', 'information_schema')`
	var args []any
	if len(schemas) > 0 {
		query += ` AND table_schema = ANY($1)`
		args = append(args, pq.Array(schemas))
	}
	query += `
		ORDER BY table_schema, table_name, ordinal_position`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query information_schema: %w", err)
	}
	defer func() { _ = rows.Close() }()

	s := &Schema{tables: make(map[string][]string)}
	for rows.Next() {
		var schema, tbl, col string
		if err := rows.Scan(&schema, &tbl, &col); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		key := schema + "." + tbl
		s.tables[key] = append(s.tables[key], col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return s, nil
}

// Columns looks up a table by qualified name, falling back to a bare table
// name match.
func (s *Schema) Columns(table string) ([]string, bool) {
	if cols, ok := s.tables[table]; ok {
		return cols, true
	}
	for k, v := range s.tables {
		if strings.HasSuffix(k, "."+table) {
			return v, true
		}
	}
	return nil, false
}

func (s *Schema) HasColumn(table, column string) bool {
	cols, ok := s.Columns(table)
	if !ok {
		return false
	}
	for _, c := range cols {
		if c == column {
			return true
		}
	}
	return false
}

// RequireColumns reports every column of table that is missing.
func (s *Schema) RequireColumns(table string, columns ...string) error {
	if _, ok := s.Columns(table); !ok {
		return fmt.Errorf("table %s does not exist", table)
	}
	var missing []string
	for _, c := range columns {
		if !s.HasColumn(table, c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("table %s is missing columns: %s", table, strings.Join(missing, ", "))
	}
	return nil
}

// Tables returns the qualified table names in sorted order.
func (s *Schema) Tables() []string {
	keys := make([]string, 0, len(s.tables))
	for k := range s.tables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
