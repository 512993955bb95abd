package executor

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLBackend implements Backend for MySQL / MariaDB.
type MySQLBackend struct {
	db *sql.DB
}

func (m *MySQLBackend) Connect(cfg Config) error {
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	// DSN: user:password@tcp(host:port)/dbname?parseTime=true&tls=preferred
	tls := "preferred"
	if cfg.SSLMode == "disable" || cfg.SSLMode == "none" {
		tls = "false"
	} else if cfg.SSLMode == "require" {
		tls = "true"
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&tls=%s",
		cfg.Username, cfg.Password, cfg.Host, port, cfg.Database, tls)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("mysql connect: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("mysql ping: %w", err)
	}
	m.db = db
	return nil
}

func (m *MySQLBackend) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

var mysqlSystemSchemas = []string{
	"information_schema", "mysql", "performance_schema", "sys",
}

func (m *MySQLBackend) ListDatabases() ([]string, error) {
	all, err := listStrings(m.db,
		"SELECT schema_name FROM information_schema.schemata ORDER BY schema_name")
	if err != nil {
		return nil, fmt.Errorf("listing mysql databases: %w", err)
	}
	var dbs []string
	for _, name := range all {
		system := false
		for _, s := range mysqlSystemSchemas {
			if strings.EqualFold(name, s) {
				system = true
				break
			}
		}
		if !system {
			dbs = append(dbs, name)
		}
	}
	return dbs, nil
}

func (m *MySQLBackend) ListTables() ([]string, error) {
	tables, err := listStrings(m.db,
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
		 ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("listing mysql tables: %w", err)
	}
	return tables, nil
}

// mysqlQuoteIdent backtick-quotes an identifier.
func mysqlQuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (m *MySQLBackend) TableData(table string, limit, offset int64) (QueryResult, error) {
	quoted := mysqlQuoteIdent(table)
	pageSQL := fmt.Sprintf("SELECT * FROM %s LIMIT ? OFFSET ?", quoted)
	return pagedTableData(m.db, quoted, pageSQL, limit, offset)
}

func (m *MySQLBackend) TableStructure(table string) ([]Column, error) {
	return structureColumns(m.db, "DATABASE()", table, mysqlPlaceholder)
}

func (m *MySQLBackend) Query(query string) (QueryResult, error) {
	res, err := runQuery(m.db, query)
	if err != nil {
		return QueryResult{}, fmt.Errorf("mysql query: %w", err)
	}
	return res, nil
}

func mysqlPlaceholder(int) string { return "?" }
