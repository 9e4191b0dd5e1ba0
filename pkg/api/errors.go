package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/JayJamieson/csv-warehouse/pkg/db"
	"github.com/JayJamieson/csv-warehouse/pkg/infer"
	"github.com/JayJamieson/csv-warehouse/pkg/logging"
	"github.com/JayJamieson/csv-warehouse/pkg/models"
	"github.com/JayJamieson/csv-warehouse/pkg/warehouse"
	"github.com/labstack/echo/v4"
)

var ErrNotConnected = errors.New("database connection not initialized, connect with POST /database first")

const (
	kindInvalidRequest = "InvalidRequest"
	kindDownloadFailed = "DownloadFailed"
	kindInternal       = "Internal"
)

type errorMapping struct {
	target error
	status int
	title  string
	kind   string
}

// Checked in order; an export of a missing table carries both
// ErrTableMissing and ErrStoreOperation and must report the former.
var errorMappings = []errorMapping{
	{ErrNotConnected, http.StatusBadRequest, "Not connected", "NotConnected"},
	{warehouse.ErrFileNotFound, http.StatusNotFound, "File not found", "FileNotFound"},
	{warehouse.ErrTableMissing, http.StatusNotFound, "Table missing", "TableMissing"},
	{warehouse.ErrColumnMismatch, http.StatusConflict, "Column mismatch", "ColumnMismatch"},
	{warehouse.ErrDuplicateColumn, http.StatusConflict, "Duplicate column", "DuplicateColumn"},
	{warehouse.ErrInferenceLengthMismatch, http.StatusBadGateway, "Type inference error", "InferenceLengthMismatch"},
	{infer.ErrHelperNotFound, http.StatusInternalServerError, "Type inference error", "HelperNotFound"},
	{infer.ErrHelperProcessFailed, http.StatusBadGateway, "Type inference error", "HelperProcessFailed"},
	{infer.ErrHelperOutputInvalid, http.StatusBadGateway, "Type inference error", "HelperOutputInvalid"},
	{db.ErrStoreOperation, http.StatusInternalServerError, "Database error", "StoreOperationFailed"},
}

func classify(err error) errorMapping {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m
		}
	}
	return errorMapping{status: http.StatusInternalServerError, title: "Internal error", kind: kindInternal}
}

func createErrorResponse(c echo.Context, status int, error string, kind string, message string) error {
	resp := models.ErrorResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Error:     error,
		Kind:      kind,
		Message:   message,
	}
	return c.JSON(status, resp)
}

// respondError reports a core operation failure using the status and kind
// its error chain maps to.
func respondError(c echo.Context, err error) error {
	m := classify(err)

	logger := logging.FromContext(c.Request().Context())
	if m.status >= http.StatusInternalServerError {
		logger.Error("request failed", "kind", m.kind, "error", err)
	} else {
		logger.Warn("request rejected", "kind", m.kind, "error", err)
	}

	return createErrorResponse(c, m.status, m.title, m.kind, err.Error())
}

// httpErrorHandler renders echo's own errors (binding failures, unknown
// routes, panics recovered by middleware) in the same envelope.
func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	title := "Internal error"
	kind := kindInternal
	message := err.Error()

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		title = http.StatusText(he.Code)
		message = fmt.Sprint(he.Message)
		if status < http.StatusInternalServerError {
			kind = kindInvalidRequest
		}
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = createErrorResponse(c, status, title, kind, message)
	}
	if err != nil {
		c.Logger().Error(err)
	}
}
