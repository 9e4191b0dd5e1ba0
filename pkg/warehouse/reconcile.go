package warehouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/JayJamieson/csv-warehouse/pkg/ident"
	"github.com/JayJamieson/csv-warehouse/pkg/infer"
)

// TextType is the store's generic text type.
const TextType = "TEXT"

// Inferrer proposes column names and types for a CSV file.
type Inferrer interface {
	Infer(ctx context.Context, csvPath string) (*infer.Result, error)
}

// Action is what an import does with the destination table.
type Action int

const (
	// ActionCreate creates the table from the plan's column definitions.
	ActionCreate Action = iota
	// ActionUseExisting appends to the table as it is.
	ActionUseExisting
)

func (a Action) String() string {
	if a == ActionCreate {
		return "create"
	}
	return "use_existing"
}

// ColumnDef is one column of a plan. Type is empty for existing tables.
type ColumnDef struct {
	Name string
	Type string
}

// Plan is the reconciled outcome for importing a CSV into a table.
// Failures are returned as errors instead of plans.
type Plan struct {
	Action  Action
	Columns []ColumnDef
}

// Names returns the plan's column names in order.
func (p Plan) Names() []string {
	names := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		names[i] = c.Name
	}
	return names
}

// ReconcileInput is everything the reconciler needs to decide a plan.
type ReconcileInput struct {
	Table string
	// CSVPath is handed to the inferrer when UseInference is set.
	CSVPath string
	// Headers are the raw CSV header cells.
	Headers []string
	// Existing are the destination table's current columns, empty when the
	// table is absent or is being replaced.
	Existing        []string
	CreateIfMissing bool
	UseInference    bool
}

// Reconciler decides between creating the table, appending to it, or
// failing.
type Reconciler struct {
	inferrer Inferrer
}

// NewReconciler returns a Reconciler. inferrer may be nil when inference is
// never requested.
func NewReconciler(inferrer Inferrer) *Reconciler {
	return &Reconciler{inferrer: inferrer}
}

// Reconcile normalizes the headers and decides the plan.
//
// An existing table must match the normalized headers position by position,
// ignoring case. A missing table is created with TEXT columns, or with
// inferred types when UseInference is set. When the inferred names differ
// from the headers, the CSV's names are kept and the inferred types are
// used only if there is exactly one per header.
func (r *Reconciler) Reconcile(ctx context.Context, in ReconcileInput) (Plan, error) {
	headers := ident.NormalizeAll(in.Headers)

	if len(in.Existing) > 0 {
		if !ident.EqualFold(in.Existing, headers) {
			return Plan{}, &MismatchError{Table: in.Table, Existing: in.Existing, Headers: headers}
		}
		return existingPlan(in.Existing), nil
	}

	if !in.CreateIfMissing {
		return Plan{}, fmt.Errorf("%w: %q and create_if_missing is false", ErrTableMissing, in.Table)
	}

	if err := checkDuplicates(headers); err != nil {
		return Plan{}, err
	}

	if !in.UseInference {
		return createPlan(headers, nil), nil
	}

	if r.inferrer == nil {
		return Plan{}, fmt.Errorf("%w: no inference backend configured", infer.ErrHelperNotFound)
	}

	inferred, err := r.inferrer.Infer(ctx, in.CSVPath)
	if err != nil {
		return Plan{}, err
	}

	if len(inferred.Types) != len(headers) {
		return Plan{}, fmt.Errorf("%w: %d types for %d headers",
			ErrInferenceLengthMismatch, len(inferred.Types), len(headers))
	}

	if ident.EqualFold(inferred.Columns, headers) {
		return createPlan(inferred.Columns, inferred.Types), nil
	}

	// Labels disagree: keep the CSV's names, salvage the inferred types.
	return createPlan(headers, inferred.Types), nil
}

func existingPlan(columns []string) Plan {
	defs := make([]ColumnDef, len(columns))
	for i, c := range columns {
		defs[i] = ColumnDef{Name: c}
	}
	return Plan{Action: ActionUseExisting, Columns: defs}
}

// createPlan pairs names with types; nil types means TEXT everywhere.
func createPlan(names, types []string) Plan {
	defs := make([]ColumnDef, len(names))
	for i, n := range names {
		t := TextType
		if types != nil {
			t = types[i]
		}
		defs[i] = ColumnDef{Name: n, Type: t}
	}
	return Plan{Action: ActionCreate, Columns: defs}
}

// checkDuplicates rejects names that collide ignoring case, as the store
// treats column names case-insensitively.
func checkDuplicates(names []string) error {
	seen := make(map[string]int, len(names))
	for i, n := range names {
		key := strings.ToLower(n)
		if j, ok := seen[key]; ok {
			return fmt.Errorf("%w: %q (column %d) and %q (column %d)", ErrDuplicateColumn, names[j], j+1, n, i+1)
		}
		seen[key] = i
	}
	return nil
}

// CreateTableSQL renders the CREATE TABLE statement for a create plan.
func CreateTableSQL(table string, plan Plan) string {
	parts := make([]string, len(plan.Columns))
	for i, c := range plan.Columns {
		parts[i] = ident.Quote(c.Name) + " " + c.Type
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", ident.Quote(table), strings.Join(parts, ", "))
}

// InsertSQL renders the parameterized INSERT for the given columns.
func InsertSQL(table string, columns []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", ident.Quote(table), ident.QuoteAll(columns), placeholders)
}
