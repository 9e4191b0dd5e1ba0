package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/JayJamieson/csv-warehouse/pkg/db"
	"github.com/JayJamieson/csv-warehouse/pkg/logging"
	"github.com/JayJamieson/csv-warehouse/pkg/models"
	"github.com/JayJamieson/csv-warehouse/pkg/utils"
	"github.com/JayJamieson/csv-warehouse/pkg/warehouse"
	"github.com/labstack/echo/v4"
)

var _ ServerInterface = (*Server)(nil)

// Connect implements ServerInterface.
func (s *Server) Connect(ctx echo.Context, params ConnectParams) error {
	if params.DBPath == "" {
		return createErrorResponse(ctx, http.StatusBadRequest, "Missing parameter", kindInvalidRequest, "db_path is required")
	}

	session, err := s.connect(params.DBPath)
	if err != nil {
		return respondError(ctx, err)
	}

	addr := session.Address()
	logging.FromContext(ctx.Request().Context()).Info("database connected", "address", addr.Raw, "kind", addr.Kind.String())

	return ctx.JSON(http.StatusOK, models.ConnectResponse{
		OK:      true,
		Message: fmt.Sprintf("Connected to %s", params.DBPath),
		Kind:    addr.Kind.String(),
	})
}

// DeleteDatabase implements ServerInterface. An active session on the same
// file is closed first.
func (s *Server) DeleteDatabase(ctx echo.Context, params DeleteDatabaseParams) error {
	if params.DBPath == "" {
		return createErrorResponse(ctx, http.StatusBadRequest, "Missing parameter", kindInvalidRequest, "db_path is required")
	}

	s.mu.Lock()
	if s.session != nil && sameFile(s.session.Address(), params.DBPath) {
		if err := s.session.Close(); err != nil {
			s.mu.Unlock()
			return respondError(ctx, err)
		}
		s.session = nil
	}
	s.mu.Unlock()

	deleted, err := warehouse.DeleteDatabaseFile(params.DBPath)
	if err != nil {
		return respondError(ctx, err)
	}

	logging.FromContext(ctx.Request().Context()).Info("database delete requested", "path", params.DBPath, "deleted", deleted)

	return ctx.JSON(http.StatusOK, models.DeleteResponse{
		OK:      true,
		Path:    params.DBPath,
		Deleted: deleted,
	})
}

func sameFile(addr db.Address, path string) bool {
	if !addr.FileBacked() {
		return false
	}
	a, err := filepath.Abs(addr.Raw)
	if err != nil {
		return false
	}
	b, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return a == b
}

// Execute implements ServerInterface.
func (s *Server) Execute(ctx echo.Context, params ExecuteParams) error {
	reqCtx := ctx.Request().Context()

	var lastRowID int64
	err := s.withSession(func(session *warehouse.Session) error {
		var err error
		lastRowID, err = session.Execute(reqCtx, params.SQL, stringArgs(params.Params)...)
		return err
	})
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, models.ExecuteResponse{
		OK:        true,
		LastRowID: lastRowID,
	})
}

// ExecuteMany implements ServerInterface.
func (s *Server) ExecuteMany(ctx echo.Context, params ExecuteManyParams) error {
	reqCtx := ctx.Request().Context()

	var body models.ExecuteManyRequest
	dec := json.NewDecoder(ctx.Request().Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return createErrorResponse(ctx, http.StatusBadRequest, "Invalid body", kindInvalidRequest, err.Error())
	}

	argSets := make([][]any, len(body.ParamSets))
	for i, set := range body.ParamSets {
		args, err := jsonArgs(set)
		if err != nil {
			return createErrorResponse(ctx, http.StatusBadRequest, "Invalid body",
				kindInvalidRequest, fmt.Sprintf("param_sets[%d]: %s", i, err))
		}
		argSets[i] = args
	}

	err := s.withSession(func(session *warehouse.Session) error {
		return session.ExecuteMany(reqCtx, params.SQL, argSets)
	})
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, models.ExecuteManyResponse{
		OK:   true,
		Sets: len(argSets),
	})
}

// Query implements ServerInterface.
func (s *Server) Query(ctx echo.Context, params QueryParams) error {
	reqCtx := ctx.Request().Context()

	shape := "objects"
	if params.Shape != nil && *params.Shape != "" {
		shape = *params.Shape
	}

	var res *db.Result
	err := s.withSession(func(session *warehouse.Session) error {
		var err error
		res, err = session.Query(reqCtx, params.SQL, stringArgs(params.Params)...)
		return err
	})
	if err != nil {
		return respondError(ctx, err)
	}

	rows, err := res.Shape(shape)
	if err != nil {
		return createErrorResponse(ctx, http.StatusBadRequest, "Invalid parameter", kindInvalidRequest, err.Error())
	}

	return ctx.JSON(http.StatusOK, models.DataResponse{
		DataResponseBase: models.DataResponseBase{
			OK:      true,
			QueryMS: float64(res.Elapsed.Microseconds()) / 1000.0,
			Columns: res.Names(),
			Total:   len(rows),
		},
		Shape: shape,
		Rows:  rows,
	})
}

// GetSchemas implements ServerInterface.
func (s *Server) GetSchemas(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	var snapshot models.SchemaSnapshot
	err := s.withSession(func(session *warehouse.Session) error {
		var err error
		snapshot, err = session.Schemas(reqCtx)
		return err
	})
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, models.SchemaResponse{
		OK:     true,
		Tables: snapshot,
	})
}

// ExportTable implements ServerInterface.
func (s *Server) ExportTable(ctx echo.Context, params ExportTableParams) error {
	reqCtx := ctx.Request().Context()

	includeHeader := true
	if params.UseHeaders != nil {
		includeHeader = *params.UseHeaders
	}

	err := s.withSession(func(session *warehouse.Session) error {
		return session.ExportTable(reqCtx, params.TableName, params.CSVPath, includeHeader)
	})
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, models.ExportResponse{
		OK:        true,
		TableName: params.TableName,
		CreatedAt: params.CSVPath,
	})
}

// ImportCSV implements ServerInterface.
func (s *Server) ImportCSV(ctx echo.Context, params ImportCSVParams) error {
	reqCtx := ctx.Request().Context()

	opts := warehouse.ImportOptions{
		CreateIfMissing: boolValue(params.CreateIfMissing),
		Replace:         boolValue(params.Replace),
		CheckTypes:      boolValue(params.CheckTypes),
	}

	var csvPath string
	switch {
	case params.URL != nil && *params.URL != "":
		path, cleanup, err := utils.DownloadToTemp(reqCtx, *params.URL, s.config.DownloadTimeout)
		if err != nil {
			return createErrorResponse(ctx, http.StatusBadRequest, "URL fetch error", kindDownloadFailed, err.Error())
		}
		defer cleanup()
		csvPath = path
		opts.Filename = utils.FilenameFromURL(*params.URL)
	case params.CSVPath != nil && *params.CSVPath != "":
		csvPath = *params.CSVPath
	default:
		return createErrorResponse(ctx, http.StatusBadRequest, "Missing import parameters",
			kindInvalidRequest, "Either 'csv_path' or 'url' parameter must be provided")
	}

	var record *models.ImportRecord
	err := s.withSession(func(session *warehouse.Session) error {
		var err error
		record, err = session.ImportCSV(reqCtx, csvPath, params.TableName, opts)
		return err
	})
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, models.ImportResponse{
		OK:     true,
		Import: *record,
	})
}

func boolValue(b *bool) bool {
	return b != nil && *b
}

func stringArgs(params *[]string) []any {
	if params == nil {
		return nil
	}
	args := make([]any, len(*params))
	for i, p := range *params {
		args[i] = p
	}
	return args
}

// jsonArgs converts decoded JSON values to statement arguments. Numbers
// become int64 when they are integral and float64 otherwise.
func jsonArgs(values []any) ([]any, error) {
	args := make([]any, len(values))
	for i, v := range values {
		switch val := v.(type) {
		case json.Number:
			if n, err := val.Int64(); err == nil {
				args[i] = n
				continue
			}
			f, err := val.Float64()
			if err != nil {
				return nil, fmt.Errorf("invalid number %s", val)
			}
			args[i] = f
		case nil, string, bool:
			args[i] = val
		default:
			return nil, fmt.Errorf("unsupported parameter type %T at position %d", v, i)
		}
	}
	return args, nil
}
