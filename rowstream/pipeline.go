package rowstream

// Fold consumes the source exactly once and folds its rows into an
// accumulator, keeping only the fixed-size accumulator in memory. The source
// is closed on every exit path, so a fold over a connection-backed stream
// never leaves the connection dangling.
func Fold[A any](source RowIterator, initial A, fold func(A, Row) (A, error)) (result A, retErr error) {
	defer func() {
		if closeErr := source.Close(); closeErr != nil && retErr == nil {
			retErr = closeErr
		}
	}()

	accumulator := initial

	for source.Next() {
		next, foldErr := fold(accumulator, source.Row())
		if foldErr != nil {
			var empty A
			return empty, foldErr
		}

		accumulator = next
	}

	if sourceErr := source.Err(); sourceErr != nil {
		var empty A
		return empty, sourceErr
	}

	return accumulator, nil
}

// Mean computes the average of a numeric projection over the source in one
// pass, maintaining only a running sum and count. An empty sequence yields 0
// by policy instead of a division error.
func Mean(source RowIterator, project func(Row) (float64, error)) (float64, error) {
	type runningMean struct {
		sum   float64
		count int
	}

	state, foldErr := Fold(source, runningMean{}, func(acc runningMean, row Row) (runningMean, error) {
		value, projectErr := project(row)
		if projectErr != nil {
			return runningMean{}, projectErr
		}

		return runningMean{sum: acc.sum + value, count: acc.count + 1}, nil
	})
	if foldErr != nil {
		return 0, foldErr
	}

	if state.count == 0 {
		return 0, nil
	}

	return state.sum / float64(state.count), nil
}

// ColumnAsFloat64 projects the named column of each row as float64, for use
// with Mean and Fold.
func ColumnAsFloat64(column string) func(Row) (float64, error) {
	return func(row Row) (float64, error) {
		return row.Float64(column)
	}
}
