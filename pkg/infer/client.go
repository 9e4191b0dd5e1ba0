// Package infer obtains proposed column types for a CSV file from an
// external helper process and validates what the helper returns.
//
// The helper is invoked as `<helper> <csv_path>` and must exit 0 after
// printing a single JSON object:
//
//	{"columns": ["id", "price"], "types": ["INTEGER", "REAL"]}
//
// Its output is untrusted: a Result is only returned once the whole
// document has been validated.
package infer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/JayJamieson/csv-warehouse/pkg/ident"
)

// DefaultTimeout bounds a single helper run.
const DefaultTimeout = 5 * time.Second

// DefaultHelperPath is where the bundled helper is expected.
const DefaultHelperPath = "bin/csv_type_infer"

var (
	// ErrHelperNotFound is returned when the helper cannot be located or
	// launched.
	ErrHelperNotFound = errors.New("type inference helper not found")
	// ErrHelperProcessFailed is returned when the helper exits non-zero or
	// runs past its timeout.
	ErrHelperProcessFailed = errors.New("type inference helper failed")
	// ErrHelperOutputInvalid is returned when the helper output is not the
	// expected document.
	ErrHelperOutputInvalid = errors.New("type inference helper output invalid")
)

// Result is the validated helper answer: normalized column names and their
// proposed types, index for index.
type Result struct {
	Columns []string `json:"columns"`
	Types   []string `json:"types"`
}

// Client runs the helper process.
type Client struct {
	path    string
	timeout time.Duration
}

// NewClient returns a Client for the helper at path. Empty values fall back
// to DefaultHelperPath and DefaultTimeout.
func NewClient(path string, timeout time.Duration) *Client {
	if path == "" {
		path = DefaultHelperPath
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{path: path, timeout: timeout}
}

// Path returns the helper executable path.
func (c *Client) Path() string {
	return c.path
}

// Infer runs the helper on csvPath and returns its validated result with
// every column name normalized.
func (c *Client) Infer(ctx context.Context, csvPath string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.path, csvPath)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("%w: %s timed out after %v", ErrHelperProcessFailed, c.path, c.timeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: %s exited with status %d: %s",
				ErrHelperProcessFailed, c.path, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		if isLaunchError(err) {
			return nil, fmt.Errorf("%w at %q: %v", ErrHelperNotFound, c.path, err)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrHelperProcessFailed, c.path, err)
	}

	return ParseOutput(stdout.Bytes())
}

func isLaunchError(err error) bool {
	var execErr *exec.Error
	return errors.As(err, &execErr) ||
		errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, fs.ErrPermission)
}

type helperOutput struct {
	Columns json.RawMessage `json:"columns"`
	Types   json.RawMessage `json:"types"`
}

// sqlType accepts plain type names such as TEXT, VARCHAR(20) or
// DOUBLE PRECISION. The type is spliced into CREATE TABLE.
var sqlType = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_ ]*(\(\s*\d+\s*(,\s*\d+\s*)?\))?$`)

// ParseOutput validates a helper document and returns its normalized
// result.
func ParseOutput(data []byte) (*Result, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: output is not valid UTF-8", ErrHelperOutputInvalid)
	}

	dec := json.NewDecoder(bytes.NewReader(data))

	var out helperOutput
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: not a JSON object: %v", ErrHelperOutputInvalid, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after JSON object", ErrHelperOutputInvalid)
	}

	columns, err := stringList("columns", out.Columns)
	if err != nil {
		return nil, err
	}
	types, err := stringList("types", out.Types)
	if err != nil {
		return nil, err
	}

	if len(columns) != len(types) {
		return nil, fmt.Errorf("%w: mismatched columns/types length: %d vs %d",
			ErrHelperOutputInvalid, len(columns), len(types))
	}

	for i, t := range types {
		if !sqlType.MatchString(strings.TrimSpace(t)) {
			return nil, fmt.Errorf("%w: type %d (%q) is not a SQL type name", ErrHelperOutputInvalid, i, t)
		}
		types[i] = strings.TrimSpace(t)
	}

	return &Result{Columns: ident.NormalizeAll(columns), Types: types}, nil
}

func stringList(field string, raw json.RawMessage) ([]string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("%w: missing required %q", ErrHelperOutputInvalid, field)
	}

	var list []string
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, fmt.Errorf("%w: %q must be a list of strings", ErrHelperOutputInvalid, field)
	}
	return list, nil
}
