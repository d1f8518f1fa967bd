package rowstream

import (
	"errors"
	"fmt"
)

// RowIterator is a pull-based, forward-only row sequence with an explicit
// exhaustion signal. It follows the shape of sql.Rows: Next advances and
// reports whether a row is available, Row returns the current element, Err
// reports the first failure, and Close releases whatever resource backs the
// sequence. A sequence is single-pass and not restartable.
type RowIterator interface {
	Next() bool
	Row() Row
	Err() error
	Close() error
}

/***** PageStream *****/

// PageFetchFunc fetches one bounded page of rows at the given offset. An empty
// page terminates the stream.
type PageFetchFunc func(offset uint) (Page, error)

// PageStream is a lazy sequence of pages produced by repeatedly invoking a
// page fetch until an empty page is returned. No resource is held between
// pulls, so consumers may pause arbitrarily long between pages.
type PageStream struct {
	fetch    PageFetchFunc
	pageSize uint
	offset   uint
	current  Page
	err      error
	done     bool
}

// NewPageStream creates a PageStream over the given fetch function. Each
// stream is independent and starts at offset zero.
func NewPageStream(pageSize uint, fetch PageFetchFunc) (*PageStream, error) {
	if pageSize == 0 {
		return nil, errors.Join(ErrValidation, errors.New("page size must be positive"))
	}

	return &PageStream{fetch: fetch, pageSize: pageSize}, nil
}

// Next fetches the next page and reports whether one is available.
func (s *PageStream) Next() bool {
	if s.done {
		return false
	}

	page, fetchErr := s.fetch(s.offset)
	if fetchErr != nil {
		s.err = fetchErr
		s.done = true
		return false
	}

	if len(page) == 0 {
		s.done = true
		return false
	}

	s.current = page
	s.offset += s.pageSize

	return true
}

// Page returns the page fetched by the last successful Next.
func (s *PageStream) Page() Page {
	return s.current
}

// Err returns the first error encountered while fetching pages.
func (s *PageStream) Err() error {
	return s.err
}

// Close terminates the stream. PageStream holds no connection between pulls,
// so Close only marks the stream exhausted.
func (s *PageStream) Close() error {
	s.done = true
	return nil
}

/***** BatchStream *****/

// BatchStream is a lazy sequence of fixed-size batches chunked from one open
// row cursor. Unlike PageStream it holds its source, and the connection
// behind it, for the whole traversal; the source is released as soon as the
// stream is exhausted, fails, or is closed early.
type BatchStream struct {
	source    RowIterator
	batchSize int
	current   Batch
	err       error
	done      bool
	closed    bool
}

// ChunkRows chunks the source iterator into batches of at most batchSize rows.
// Ownership of the source passes to the returned stream.
func ChunkRows(source RowIterator, batchSize int) (*BatchStream, error) {
	if batchSize <= 0 {
		closeQuietly(source)
		return nil, errors.Join(ErrValidation, fmt.Errorf("batch size must be positive, got %d", batchSize))
	}

	return &BatchStream{source: source, batchSize: batchSize}, nil
}

// Next pulls up to batchSize rows from the open cursor and reports whether at
// least one row was pulled. A pull yielding zero rows terminates the stream
// and releases the source.
func (s *BatchStream) Next() bool {
	if s.done {
		return false
	}

	batch := make(Batch, 0, s.batchSize)
	for len(batch) < s.batchSize && s.source.Next() {
		batch = append(batch, s.source.Row())
	}

	if sourceErr := s.source.Err(); sourceErr != nil {
		s.err = sourceErr
		s.finish()
		return false
	}

	if len(batch) == 0 {
		s.finish()
		return false
	}

	s.current = batch

	return true
}

// Batch returns the batch pulled by the last successful Next.
func (s *BatchStream) Batch() Batch {
	return s.current
}

// Err returns the first error encountered while pulling rows.
func (s *BatchStream) Err() error {
	return s.err
}

// Close releases the underlying source. It is safe to call at any point of
// the traversal and more than once; abandoning a stream early must go through
// Close so that no connection is left dangling.
func (s *BatchStream) Close() error {
	s.done = true

	if s.closed {
		return nil
	}
	s.closed = true

	return s.source.Close()
}

// Rows flattens the batch sequence into a lazy row sequence, preserving the
// original order. No batch is pulled until the previous one's rows have been
// consumed.
func (s *BatchStream) Rows() RowIterator {
	return &batchRows{stream: s}
}

func (s *BatchStream) finish() {
	s.done = true

	if s.closed {
		return
	}
	s.closed = true

	if closeErr := s.source.Close(); closeErr != nil && s.err == nil {
		s.err = closeErr
	}
}

/***** flattening and filtering *****/

type batchRows struct {
	stream *BatchStream
	index  int
}

func (r *batchRows) Next() bool {
	if r.index < len(r.stream.Batch()) {
		r.index++
		return true
	}

	if !r.stream.Next() {
		return false
	}

	r.index = 1

	return true
}

func (r *batchRows) Row() Row {
	return r.stream.Batch()[r.index-1]
}

func (r *batchRows) Err() error {
	return r.stream.Err()
}

func (r *batchRows) Close() error {
	return r.stream.Close()
}

// FilterRows lazily yields the source rows matching the predicate, in their
// original order. Ownership of the source passes to the returned iterator.
func FilterRows(source RowIterator, predicate func(Row) bool) RowIterator {
	return &filteredRows{source: source, predicate: predicate}
}

type filteredRows struct {
	source    RowIterator
	predicate func(Row) bool
	current   Row
}

func (f *filteredRows) Next() bool {
	for f.source.Next() {
		row := f.source.Row()
		if f.predicate(row) {
			f.current = row
			return true
		}
	}

	return false
}

func (f *filteredRows) Row() Row {
	return f.current
}

func (f *filteredRows) Err() error {
	return f.source.Err()
}

func (f *filteredRows) Close() error {
	return f.source.Close()
}

/***** in-memory source *****/

// SliceRows adapts an in-memory row slice to a RowIterator. It is mainly
// useful for tests and for feeding the pipeline from non-database sources.
func SliceRows(rows ...Row) RowIterator {
	return &sliceRows{rows: rows}
}

type sliceRows struct {
	rows  []Row
	index int
}

func (s *sliceRows) Next() bool {
	if s.index >= len(s.rows) {
		return false
	}

	s.index++

	return true
}

func (s *sliceRows) Row() Row {
	return s.rows[s.index-1]
}

func (s *sliceRows) Err() error {
	return nil
}

func (s *sliceRows) Close() error {
	s.rows = nil
	s.index = 0
	return nil
}

func closeQuietly(source RowIterator) {
	if source != nil {
		_ = source.Close()
	}
}
