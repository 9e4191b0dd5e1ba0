package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
)

// ConnectParams defines parameters for Connect.
type ConnectParams struct {
	DBPath string `form:"db_path" json:"db_path"`
}

// DeleteDatabaseParams defines parameters for DeleteDatabase.
type DeleteDatabaseParams struct {
	DBPath string `form:"db_path" json:"db_path"`
}

// ExecuteParams defines parameters for Execute.
type ExecuteParams struct {
	SQL    string    `form:"sql" json:"sql"`
	Params *[]string `form:"params,omitempty" json:"params,omitempty"`
}

// ExecuteManyParams defines parameters for ExecuteMany.
type ExecuteManyParams struct {
	SQL string `form:"sql" json:"sql"`
}

// QueryParams defines parameters for Query.
type QueryParams struct {
	SQL    string    `form:"sql" json:"sql"`
	Params *[]string `form:"params,omitempty" json:"params,omitempty"`
	Shape  *string   `form:"_shape,omitempty" json:"_shape,omitempty"`
}

// ExportTableParams defines parameters for ExportTable.
type ExportTableParams struct {
	TableName  string `form:"table_name" json:"table_name"`
	CSVPath    string `form:"csv_path" json:"csv_path"`
	UseHeaders *bool  `form:"use_headers,omitempty" json:"use_headers,omitempty"`
}

// ImportCSVParams defines parameters for ImportCSV.
type ImportCSVParams struct {
	CSVPath         *string `form:"csv_path,omitempty" json:"csv_path,omitempty"`
	URL             *string `form:"url,omitempty" json:"url,omitempty"`
	TableName       string  `form:"table_name" json:"table_name"`
	CreateIfMissing *bool   `form:"create_if_missing,omitempty" json:"create_if_missing,omitempty"`
	Replace         *bool   `form:"replace,omitempty" json:"replace,omitempty"`
	CheckTypes      *bool   `form:"check_types,omitempty" json:"check_types,omitempty"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// Connect to a database, creating the file if needed
	// (POST /database)
	Connect(ctx echo.Context, params ConnectParams) error
	// Delete a database file
	// (DELETE /dropdatabase)
	DeleteDatabase(ctx echo.Context, params DeleteDatabaseParams) error
	// Execute a write statement
	// (POST /database/execute)
	Execute(ctx echo.Context, params ExecuteParams) error
	// Execute a statement once per parameter set in one transaction
	// (POST /database/execute/many)
	ExecuteMany(ctx echo.Context, params ExecuteManyParams) error
	// Run a read query and return every row
	// (GET /database/query)
	Query(ctx echo.Context, params QueryParams) error
	// Describe every table and its columns
	// (GET /database/getschemas)
	GetSchemas(ctx echo.Context) error
	// Export a table to a CSV file
	// (PUT /database/toCSV)
	ExportTable(ctx echo.Context, params ExportTableParams) error
	// Import a CSV file, or a CSV downloaded from a URL, into a table
	// (PUT /database/importCSV)
	ImportCSV(ctx echo.Context, params ImportCSVParams) error
}

// ServerInterfaceWrapper converts echo contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

func bindQuery(ctx echo.Context, name string, required bool, dest any) error {
	err := runtime.BindQueryParameter("form", true, required, name, ctx.QueryParams(), dest)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter %s: %s", name, err))
	}
	return nil
}

// Connect converts echo context to params.
func (w *ServerInterfaceWrapper) Connect(ctx echo.Context) error {
	var params ConnectParams
	if err := bindQuery(ctx, "db_path", true, &params.DBPath); err != nil {
		return err
	}
	return w.Handler.Connect(ctx, params)
}

// DeleteDatabase converts echo context to params.
func (w *ServerInterfaceWrapper) DeleteDatabase(ctx echo.Context) error {
	var params DeleteDatabaseParams
	if err := bindQuery(ctx, "db_path", true, &params.DBPath); err != nil {
		return err
	}
	return w.Handler.DeleteDatabase(ctx, params)
}

// Execute converts echo context to params.
func (w *ServerInterfaceWrapper) Execute(ctx echo.Context) error {
	var params ExecuteParams
	if err := bindQuery(ctx, "sql", true, &params.SQL); err != nil {
		return err
	}
	if err := bindQuery(ctx, "params", false, &params.Params); err != nil {
		return err
	}
	return w.Handler.Execute(ctx, params)
}

// ExecuteMany converts echo context to params.
func (w *ServerInterfaceWrapper) ExecuteMany(ctx echo.Context) error {
	var params ExecuteManyParams
	if err := bindQuery(ctx, "sql", true, &params.SQL); err != nil {
		return err
	}
	return w.Handler.ExecuteMany(ctx, params)
}

// Query converts echo context to params.
func (w *ServerInterfaceWrapper) Query(ctx echo.Context) error {
	var params QueryParams
	if err := bindQuery(ctx, "sql", true, &params.SQL); err != nil {
		return err
	}
	if err := bindQuery(ctx, "params", false, &params.Params); err != nil {
		return err
	}
	if err := bindQuery(ctx, "_shape", false, &params.Shape); err != nil {
		return err
	}
	return w.Handler.Query(ctx, params)
}

// GetSchemas converts echo context to params.
func (w *ServerInterfaceWrapper) GetSchemas(ctx echo.Context) error {
	return w.Handler.GetSchemas(ctx)
}

// ExportTable converts echo context to params.
func (w *ServerInterfaceWrapper) ExportTable(ctx echo.Context) error {
	var params ExportTableParams
	if err := bindQuery(ctx, "table_name", true, &params.TableName); err != nil {
		return err
	}
	if err := bindQuery(ctx, "csv_path", true, &params.CSVPath); err != nil {
		return err
	}
	if err := bindQuery(ctx, "use_headers", false, &params.UseHeaders); err != nil {
		return err
	}
	return w.Handler.ExportTable(ctx, params)
}

// ImportCSV converts echo context to params.
func (w *ServerInterfaceWrapper) ImportCSV(ctx echo.Context) error {
	var params ImportCSVParams
	if err := bindQuery(ctx, "csv_path", false, &params.CSVPath); err != nil {
		return err
	}
	if err := bindQuery(ctx, "url", false, &params.URL); err != nil {
		return err
	}
	if err := bindQuery(ctx, "table_name", true, &params.TableName); err != nil {
		return err
	}
	if err := bindQuery(ctx, "create_if_missing", false, &params.CreateIfMissing); err != nil {
		return err
	}
	if err := bindQuery(ctx, "replace", false, &params.Replace); err != nil {
		return err
	}
	if err := bindQuery(ctx, "check_types", false, &params.CheckTypes); err != nil {
		return err
	}
	return w.Handler.ImportCSV(ctx, params)
}

// EchoRouter is satisfied by both *echo.Echo and *echo.Group.
type EchoRouter interface {
	DELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	PUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// RegisterHandlers adds each server route to the EchoRouter.
func RegisterHandlers(router EchoRouter, si ServerInterface) {
	wrapper := ServerInterfaceWrapper{Handler: si}

	router.POST("/database", wrapper.Connect)
	router.DELETE("/dropdatabase", wrapper.DeleteDatabase)
	router.POST("/database/execute", wrapper.Execute)
	router.POST("/database/execute/many", wrapper.ExecuteMany)
	router.GET("/database/query", wrapper.Query)
	router.GET("/database/getschemas", wrapper.GetSchemas)
	router.PUT("/database/toCSV", wrapper.ExportTable)
	router.PUT("/database/importCSV", wrapper.ImportCSV)
}
