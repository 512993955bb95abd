package executor

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresBackend implements Backend for PostgreSQL.
type PostgresBackend struct {
	db *sql.DB
}

func (p *PostgresBackend) Connect(cfg Config) error {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, port, cfg.Username, cfg.Password, cfg.Database, sslMode)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("postgres connect: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("postgres ping: %w", err)
	}
	p.db = db
	return nil
}

func (p *PostgresBackend) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

func (p *PostgresBackend) ListDatabases() ([]string, error) {
	dbs, err := listStrings(p.db,
		"SELECT datname FROM pg_database WHERE datistemplate = false ORDER BY datname")
	if err != nil {
		return nil, fmt.Errorf("listing postgres databases: %w", err)
	}
	return dbs, nil
}

func (p *PostgresBackend) ListTables() ([]string, error) {
	tables, err := listStrings(p.db,
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		 ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("listing postgres tables: %w", err)
	}
	return tables, nil
}

// pgQuoteIdent double-quotes an identifier, escaping embedded quotes.
func pgQuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (p *PostgresBackend) TableData(table string, limit, offset int64) (QueryResult, error) {
	quoted := pgQuoteIdent(table)
	pageSQL := fmt.Sprintf("SELECT * FROM %s LIMIT $1 OFFSET $2", quoted)
	return pagedTableData(p.db, quoted, pageSQL, limit, offset)
}

func (p *PostgresBackend) TableStructure(table string) ([]Column, error) {
	return structureColumns(p.db, "'public'", table, pgPlaceholder)
}

func (p *PostgresBackend) Query(query string) (QueryResult, error) {
	res, err := runQuery(p.db, query)
	if err != nil {
		return QueryResult{}, fmt.Errorf("postgres query: %w", err)
	}
	return res, nil
}

// pgPlaceholder returns $1, $2, ... style placeholders for PostgreSQL.
func pgPlaceholder(n int) string {
	return fmt.Sprintf("$%d", n)
}
