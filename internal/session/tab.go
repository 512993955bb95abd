package session

// TabType discriminates the tab variants.
type TabType string

const (
	TabData      TabType = "data"
	TabStructure TabType = "structure"
	TabQuery     TabType = "query"
)

// Tab is a view opened inside a workspace: a paged table view (data or
// structure) or a free-form query editor. Type tags the variant; the
// table/paging fields are meaningful for data and structure tabs, Query for
// query tabs. WorkspaceID is a lookup key into the store, not an ownership
// edge.
type Tab struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	WorkspaceID string  `json:"workspaceId"`
	Database    string  `json:"database"`
	Type        TabType `json:"type"`

	// Data / Structure
	Table     string `json:"table,omitempty"`
	Page      int    `json:"page,omitempty"` // 1-based
	PageSize  int    `json:"pageSize,omitempty"`
	TotalRows int64  `json:"totalRows,omitempty"`

	// Query
	Query string `json:"query,omitempty"`

	// Fetched result cache. Held in memory only, never persisted.
	Columns []string `json:"columns,omitempty"`
	Rows    [][]any  `json:"rows,omitempty"`
}

// matches reports whether an existing tab makes the requested one redundant:
// one query editor per workspace, one table view per workspace and table.
func (t *Tab) matches(req Tab) bool {
	if t.WorkspaceID != req.WorkspaceID {
		return false
	}
	if req.Type == TabQuery {
		return t.Type == TabQuery
	}
	return t.Type != TabQuery && t.Table == req.Table
}
