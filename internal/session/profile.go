// Package session implements the workspace/tab coordination layer of the
// application: live connection state, tab lifecycle, tunnel coordination,
// and debounced persistence of the session graph.
package session

// SSHConfig holds SSH tunnel connection details for a profile.
type SSHConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password,omitempty"`
	KeyPath  string `json:"keyPath,omitempty"`
}

// Profile describes how to reach a database. It is supplied by the profile
// store or the connection dialog and treated as a value: the session layer
// never mutates it.
type Profile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Driver   string `json:"driver"` // postgres, mysql, mssql, bigquery
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
	Database string `json:"database"`
	SSLMode  string `json:"sslMode,omitempty"`

	// BigQuery-specific
	Project          string `json:"project,omitempty"`
	Dataset          string `json:"dataset,omitempty"`
	CredentialsFile  string `json:"credentialsFile,omitempty"`
	BigQueryAuthMode string `json:"bigqueryAuthMode,omitempty"`

	SSHEnabled bool      `json:"sshEnabled"`
	SSH        SSHConfig `json:"ssh"`
}
