package executor

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"
)

// MSSQLBackend implements Backend for SQL Server.
type MSSQLBackend struct {
	db *sql.DB
}

func (m *MSSQLBackend) Connect(cfg Config) error {
	port := cfg.Port
	if port == 0 {
		port = 1433
	}
	encrypt := "true"
	if cfg.SSLMode == "disable" || cfg.SSLMode == "none" {
		encrypt = "disable"
	}
	dsn := fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s&encrypt=%s&TrustServerCertificate=true",
		cfg.Username, cfg.Password, cfg.Host, port, cfg.Database, encrypt)

	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return fmt.Errorf("mssql connect: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("mssql ping: %w", err)
	}
	m.db = db
	return nil
}

func (m *MSSQLBackend) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

func (m *MSSQLBackend) ListDatabases() ([]string, error) {
	dbs, err := listStrings(m.db,
		"SELECT name FROM sys.databases WHERE database_id > 4 ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing mssql databases: %w", err)
	}
	return dbs, nil
}

func (m *MSSQLBackend) ListTables() ([]string, error) {
	tables, err := listStrings(m.db,
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema = 'dbo' AND table_type = 'BASE TABLE'
		 ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("listing mssql tables: %w", err)
	}
	return tables, nil
}

// mssqlQuoteIdent bracket-quotes an identifier.
func mssqlQuoteIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (m *MSSQLBackend) TableData(table string, limit, offset int64) (QueryResult, error) {
	quoted := mssqlQuoteIdent(table)
	pageSQL := fmt.Sprintf(
		"SELECT * FROM %s ORDER BY (SELECT NULL) OFFSET @p1 ROWS FETCH NEXT @p2 ROWS ONLY", quoted)
	return pagedTableData(m.db, quoted, pageSQL, offset, limit)
}

func (m *MSSQLBackend) TableStructure(table string) ([]Column, error) {
	return structureColumns(m.db, "'dbo'", table, mssqlPlaceholder)
}

func (m *MSSQLBackend) Query(query string) (QueryResult, error) {
	res, err := runQuery(m.db, query)
	if err != nil {
		return QueryResult{}, fmt.Errorf("mssql query: %w", err)
	}
	return res, nil
}

func mssqlPlaceholder(n int) string { return fmt.Sprintf("@p%d", n) }
