// Package executor implements the native query side of the application:
// driver backends for PostgreSQL, MySQL, SQL Server, and BigQuery, and a
// service that owns the live connections the session layer addresses by
// workspace id.
package executor

import "fmt"

// Config holds the parameters a backend needs to connect. For tunneled
// profiles the service rewrites Host/Port to the tunnel's loopback endpoint
// before handing the config to the backend.
type Config struct {
	Driver   string `json:"driver"` // postgres, mysql, mssql, bigquery
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	Username string `json:"username"`
	Password string `json:"password"`
	SSLMode  string `json:"sslMode,omitempty"`

	// BigQuery-specific
	Project         string `json:"project,omitempty"`
	Dataset         string `json:"dataset,omitempty"`
	CredentialsFile string `json:"credentialsFile,omitempty"`
	// BigQuery auth mode: "service_account" or "user_oauth"
	BigQueryAuthMode string `json:"bigqueryAuthMode,omitempty"`
}

// Column describes one column of a table structure listing.
type Column struct {
	Name     string  `json:"name"`
	DataType string  `json:"dataType"`
	Nullable bool    `json:"nullable"`
	Default  *string `json:"default,omitempty"`
	Comment  string  `json:"comment,omitempty"`
}

// QueryResult is a fetched page of rows. TotalRows is -1 when the backend
// cannot count (free-form queries).
type QueryResult struct {
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	TotalRows int64    `json:"totalRows"`
}

// Backend is the common interface for database access.
type Backend interface {
	// Connect establishes a connection to the database.
	Connect(cfg Config) error
	// Close closes the connection.
	Close() error
	// ListDatabases returns the database names visible on the server
	// (datasets for BigQuery).
	ListDatabases() ([]string, error)
	// ListTables returns the table names in the connected database.
	ListTables() ([]string, error)
	// TableData returns one page of a table's rows plus the total count.
	TableData(table string, limit, offset int64) (QueryResult, error)
	// TableStructure returns the table's column definitions.
	TableStructure(table string) ([]Column, error)
	// Query executes a free-form statement and returns its result set.
	Query(query string) (QueryResult, error)
}

// NewBackend creates a Backend for the given driver name.
func NewBackend(driver string) (Backend, error) {
	switch driver {
	case "postgres":
		return &PostgresBackend{}, nil
	case "mysql":
		return &MySQLBackend{}, nil
	case "mssql":
		return &MSSQLBackend{}, nil
	case "bigquery":
		return &BigQueryBackend{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}
