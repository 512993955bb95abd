package executor

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// BigQueryBackend implements Backend for Google BigQuery. Datasets play the
// role of databases; the connected dataset comes from the profile.
type BigQueryBackend struct {
	client  *bigquery.Client
	project string
	dataset string
}

func (b *BigQueryBackend) Connect(cfg Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var opts []option.ClientOption

	switch cfg.BigQueryAuthMode {
	case "service_account":
		if cfg.CredentialsFile == "" {
			return fmt.Errorf("bigquery service account: credentials file is required")
		}
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	case "user_oauth":
		// The token is expected to have been obtained and cached already via
		// the OAuth sign-in flow.
		ts, err := loadCachedTokenSource(cfg.Project)
		if err != nil {
			return fmt.Errorf("bigquery user oauth: no cached credentials found, please sign in first: %w", err)
		}
		opts = append(opts, option.WithTokenSource(ts))
	default:
		// Default: try Application Default Credentials (no extra options needed)
		if cfg.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		}
	}

	if cfg.Project == "" {
		return fmt.Errorf("bigquery: project is required")
	}

	client, err := bigquery.NewClient(ctx, cfg.Project, opts...)
	if err != nil {
		return fmt.Errorf("bigquery connect: %w", err)
	}
	b.client = client
	b.project = cfg.Project
	b.dataset = cfg.Dataset
	return nil
}

func (b *BigQueryBackend) Close() error {
	if b.client != nil {
		return b.client.Close()
	}
	return nil
}

// ListDatabases returns the dataset IDs in the project.
func (b *BigQueryBackend) ListDatabases() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var datasets []string
	it := b.client.Datasets(ctx)
	for {
		ds, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing bigquery datasets: %w", err)
		}
		datasets = append(datasets, ds.DatasetID)
	}
	sort.Strings(datasets)
	return datasets, nil
}

// ListTables returns the table IDs in the connected dataset.
func (b *BigQueryBackend) ListTables() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var tables []string
	it := b.client.Dataset(b.dataset).Tables(ctx)
	for {
		tbl, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing bigquery tables: %w", err)
		}
		tables = append(tables, tbl.TableID)
	}
	sort.Strings(tables)
	return tables, nil
}

func (b *BigQueryBackend) tableRef(table string) string {
	return fmt.Sprintf("`%s.%s.%s`", b.project, b.dataset, table)
}

func (b *BigQueryBackend) TableData(table string, limit, offset int64) (QueryResult, error) {
	res, err := b.Query(fmt.Sprintf("SELECT * FROM %s LIMIT %d OFFSET %d",
		b.tableRef(table), limit, offset))
	if err != nil {
		return QueryResult{}, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	md, err := b.client.Dataset(b.dataset).Table(table).Metadata(ctx)
	if err != nil {
		return QueryResult{}, fmt.Errorf("bigquery table metadata: %w", err)
	}
	res.TotalRows = int64(md.NumRows)
	return res, nil
}

func (b *BigQueryBackend) TableStructure(table string) ([]Column, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	md, err := b.client.Dataset(b.dataset).Table(table).Metadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("inspecting bigquery table %s: %w", table, err)
	}

	var cols []Column
	for _, fs := range md.Schema {
		cols = append(cols, Column{
			Name:     fs.Name,
			DataType: strings.ToLower(string(fs.Type)),
			Nullable: !fs.Required,
			Comment:  fs.Description,
		})
	}
	return cols, nil
}

func (b *BigQueryBackend) Query(query string) (QueryResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout*2) // BQ can be slower
	defer cancel()

	it, err := b.client.Query(query).Read(ctx)
	if err != nil {
		return QueryResult{}, fmt.Errorf("bigquery query: %w", err)
	}

	res := QueryResult{TotalRows: -1}
	for {
		var row []bigquery.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return QueryResult{}, fmt.Errorf("bigquery query rows: %w", err)
		}
		values := make([]any, len(row))
		for i, v := range row {
			values[i] = v
		}
		res.Rows = append(res.Rows, values)
	}
	for _, fs := range it.Schema {
		res.Columns = append(res.Columns, fs.Name)
	}
	return res, nil
}
