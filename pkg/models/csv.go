package models

import (
	"time"
)

// ImportRecord describes one completed CSV import.
type ImportRecord struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	TableName  string    `json:"table_name"`
	Rows       int64     `json:"rows"`
	Created    bool      `json:"created"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS float64   `json:"duration_ms"`
}

type ColumnInfo struct {
	CID        int    `json:"cid"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	NotNull    bool   `json:"notnull"`
	DefaultVal any    `json:"dflt_value"`
	PK         bool   `json:"pk"`
}

// SchemaSnapshot maps table names to their ordered column descriptors.
type SchemaSnapshot map[string][]ColumnInfo

type ErrorResponse struct {
	Timestamp string `json:"timestamp"`
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	Message   string `json:"message"`
}

type ConnectResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

type ExecuteResponse struct {
	OK        bool  `json:"ok"`
	LastRowID int64 `json:"last_row_id"`
}

type ExecuteManyResponse struct {
	OK   bool `json:"ok"`
	Sets int  `json:"sets"`
}

type ExecuteManyRequest struct {
	ParamSets [][]any `json:"param_sets"`
}

type DataResponseBase struct {
	OK      bool     `json:"ok"`
	QueryMS float64  `json:"query_ms"`
	Columns []string `json:"columns"`
	Total   int      `json:"total,omitempty"`
}

// DataResponse carries query rows as arrays or as column-keyed objects,
// depending on Shape.
type DataResponse struct {
	DataResponseBase
	Shape string `json:"shape"`
	Rows  []any  `json:"rows"`
}

type SchemaResponse struct {
	OK     bool           `json:"ok"`
	Tables SchemaSnapshot `json:"tables"`
}

type ExportResponse struct {
	OK        bool   `json:"ok"`
	TableName string `json:"table_name"`
	CreatedAt string `json:"created_at"`
}

type ImportResponse struct {
	OK     bool         `json:"ok"`
	Import ImportRecord `json:"import"`
}

type DeleteResponse struct {
	OK      bool   `json:"ok"`
	Path    string `json:"path"`
	Deleted bool   `json:"deleted"`
}
