package rowstream

import (
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
)

const dialectPostgres = "postgres"

// ComparisonOperator is the operator of one selection condition.
type ComparisonOperator int

const (
	Equals ComparisonOperator = iota
	NotEquals
	GreaterThan
	GreaterThanOrEqual
	LessThan
	LessThanOrEqual
)

/***** Condition *****/

// Condition is one column comparison of a Selection's where clause.
type Condition struct {
	column   string
	operator ComparisonOperator
	value    any
}

// C creates a Condition comparing a column against a value.
func C(column string, operator ComparisonOperator, value any) Condition {
	return Condition{column: column, operator: operator, value: value}
}

func (c Condition) Column() string {
	return c.column
}

func (c Condition) Operator() ComparisonOperator {
	return c.operator
}

func (c Condition) Value() any {
	return c.value
}

/***** Selection *****/

// Selection describes one read query: a table, a projection, optional
// conditions and an ordering. It is a value object; the SQL it renders to is
// deterministic, which makes two equal selections carry the same
// QuerySignature.
type Selection struct {
	table      string
	columns    []string
	conditions []Condition
	orderBy    []string
}

func (s Selection) Table() string {
	return s.table
}

func (s Selection) SelectedColumns() []string {
	return s.columns
}

func (s Selection) Conditions() []Condition {
	return s.conditions
}

func (s Selection) OrderBy() []string {
	return s.orderBy
}

// ToSQL renders the selection to executable SQL with interpolated values.
func (s Selection) ToSQL() (string, error) {
	dataset, buildErr := s.dataset()
	if buildErr != nil {
		return "", buildErr
	}

	sqlQuery, _, toSQLErr := dataset.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

// ToSQLWithRange renders the selection bounded by LIMIT/OFFSET for one page
// fetch. OFFSET is omitted for the first page so the rendered SQL stays
// stable. Deterministic paging needs an ordering; callers should set one via
// OrderedBy.
func (s Selection) ToSQLWithRange(limit uint, offset uint) (string, error) {
	dataset, buildErr := s.dataset()
	if buildErr != nil {
		return "", buildErr
	}

	dataset = dataset.Limit(limit)
	if offset > 0 {
		dataset = dataset.Offset(offset)
	}

	sqlQuery, _, toSQLErr := dataset.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

// Signature derives the cache key for this selection from the prepared query
// text and its bound parameters. Two equal selections yield equal signatures.
func (s Selection) Signature() (QuerySignature, error) {
	dataset, buildErr := s.dataset()
	if buildErr != nil {
		return "", buildErr
	}

	sqlQuery, boundArgs, toSQLErr := dataset.Prepared(true).ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	return Signature(sqlQuery, boundArgs...)
}

func (s Selection) dataset() (*goqu.SelectDataset, error) {
	if s.table == "" {
		return nil, errors.Join(ErrValidation, errors.New("selection has no table"))
	}

	dataset := goqu.Dialect(dialectPostgres).From(s.table)

	if len(s.columns) > 0 {
		selected := make([]any, len(s.columns))
		for i, column := range s.columns {
			selected[i] = column
		}
		dataset = dataset.Select(selected...)
	}

	for _, condition := range s.conditions {
		expression, exprErr := condition.expression()
		if exprErr != nil {
			return nil, exprErr
		}
		dataset = dataset.Where(expression)
	}

	for _, column := range s.orderBy {
		dataset = dataset.Order(goqu.I(column).Asc())
	}

	return dataset, nil
}

func (c Condition) expression() (goqu.Expression, error) {
	identifier := goqu.C(c.column)

	switch c.operator {
	case Equals:
		return identifier.Eq(c.value), nil
	case NotEquals:
		return identifier.Neq(c.value), nil
	case GreaterThan:
		return identifier.Gt(c.value), nil
	case GreaterThanOrEqual:
		return identifier.Gte(c.value), nil
	case LessThan:
		return identifier.Lt(c.value), nil
	case LessThanOrEqual:
		return identifier.Lte(c.value), nil
	default:
		return nil, errors.Join(ErrValidation, fmt.Errorf("unknown comparison operator %d", c.operator))
	}
}

/***** SelectionBuilder *****/

// SelectionBuilder builds a Selection fluently.
type SelectionBuilder struct {
	selection Selection
}

// BuildSelection starts a selection over the given table.
func BuildSelection(table string) *SelectionBuilder {
	return &SelectionBuilder{selection: Selection{table: table}}
}

// WithColumns sets the projection. Without it the selection reads all columns.
func (b *SelectionBuilder) WithColumns(columns ...string) *SelectionBuilder {
	b.selection.columns = columns
	return b
}

// Where adds conditions; all of them must match.
func (b *SelectionBuilder) Where(conditions ...Condition) *SelectionBuilder {
	b.selection.conditions = append(b.selection.conditions, conditions...)
	return b
}

// OrderedBy sets an ascending ordering over the given columns.
func (b *SelectionBuilder) OrderedBy(columns ...string) *SelectionBuilder {
	b.selection.orderBy = columns
	return b
}

// Finalize returns the built Selection.
func (b *SelectionBuilder) Finalize() Selection {
	return b.selection
}
