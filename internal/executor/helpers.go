package executor

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const queryTimeout = 30 * time.Second

// listStrings runs a single-column query and collects the values.
func listStrings(db *sql.DB, query string, args ...any) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// collectRows drains a result set into a QueryResult. Byte slices are
// converted to strings so the values survive JSON serialization to the UI.
func collectRows(rows *sql.Rows) (QueryResult, error) {
	cols, err := rows.Columns()
	if err != nil {
		return QueryResult{}, err
	}

	res := QueryResult{Columns: cols, TotalRows: -1}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return QueryResult{}, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		res.Rows = append(res.Rows, values)
	}
	return res, rows.Err()
}

// runQuery executes a statement and collects its result set.
func runQuery(db *sql.DB, query string, args ...any) (QueryResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return QueryResult{}, err
	}
	defer rows.Close()
	return collectRows(rows)
}

// countRows returns the row count of quotedTable.
func countRows(db *sql.DB, quotedTable string) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var n int64
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quotedTable).Scan(&n)
	return n, err
}

// pagedTableData fetches one page of quotedTable plus its total row count.
// pageSQL must embed the dialect's limit/offset clause with the two
// placeholders already applied.
func pagedTableData(db *sql.DB, quotedTable, pageSQL string, args ...any) (QueryResult, error) {
	res, err := runQuery(db, pageSQL, args...)
	if err != nil {
		return QueryResult{}, fmt.Errorf("querying table data: %w", err)
	}
	total, err := countRows(db, quotedTable)
	if err != nil {
		return QueryResult{}, fmt.Errorf("counting rows: %w", err)
	}
	res.TotalRows = total
	return res, nil
}

// structureColumns queries INFORMATION_SCHEMA.COLUMNS for one table. ph
// adapts placeholder syntax to the dialect.
func structureColumns(db *sql.DB, schemaExpr, table string, ph func(int) string) ([]Column, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT column_name, data_type, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = %s AND table_name = %s
		ORDER BY ordinal_position`, schemaExpr, ph(1))

	rows, err := db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("querying table structure: %w", err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var c Column
		var nullable string
		var def sql.NullString
		if err := rows.Scan(&c.Name, &c.DataType, &nullable, &def); err != nil {
			return nil, err
		}
		c.Nullable = nullable == "YES" || nullable == "yes"
		if def.Valid {
			c.Default = &def.String
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}
