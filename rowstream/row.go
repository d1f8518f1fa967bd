package rowstream

import (
	"errors"
	"fmt"
	"strconv"
)

// Row is one record as an ordered mapping from column name to value. The
// column order is fixed by the query's projection and a Row is immutable once
// produced by a stream.
type Row struct {
	columns []string
	values  []any
}

// Page is an ordered sequence of rows fetched via one bounded offset query.
// An empty Page is the pagination terminator.
type Page = []Row

// Batch is an ordered sequence of rows chunked from one open cursor.
type Batch = []Row

// BuildRow creates a Row from a column projection and the matching values.
// The columns slice is shared between all rows of one result and must not be
// mutated by the caller.
func BuildRow(columns []string, values []any) (Row, error) {
	if len(columns) != len(values) {
		return Row{}, errors.Join(
			ErrValidation,
			fmt.Errorf("row has %d columns but %d values", len(columns), len(values)),
		)
	}

	return Row{columns: columns, values: values}, nil
}

// Columns returns the column names in projection order.
func (r Row) Columns() []string {
	return r.columns
}

// Get returns the value of the named column and whether the column is part of
// the row's projection.
func (r Row) Get(column string) (any, bool) {
	for i, name := range r.columns {
		if name == column {
			return r.values[i], true
		}
	}

	return nil, false
}

// Float64 returns the named column coerced to float64. Drivers surface
// numeric columns as differing Go types (int64, float64, or textual numerics
// for DECIMAL), so all of those are accepted.
func (r Row) Float64(column string) (float64, error) {
	value, ok := r.Get(column)
	if !ok {
		return 0, errors.Join(ErrValidation, fmt.Errorf("column %q is not part of the projection", column))
	}

	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case string:
		return parseFloatColumn(column, v)
	case []byte:
		return parseFloatColumn(column, string(v))
	default:
		return 0, errors.Join(ErrValidation, fmt.Errorf("column %q has non-numeric type %T", column, value))
	}
}

func parseFloatColumn(column string, raw string) (float64, error) {
	parsed, parseErr := strconv.ParseFloat(raw, 64)
	if parseErr != nil {
		return 0, errors.Join(ErrValidation, fmt.Errorf("column %q is not numeric: %w", column, parseErr))
	}

	return parsed, nil
}
