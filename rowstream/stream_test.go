package rowstream_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prodevtools/lazy-rowstream-go/rowstream"
	"github.com/prodevtools/lazy-rowstream-go/testutil/fixtures"
)

// pageSource serves pages of a fixed in-memory dataset and counts fetches.
func pageSource(dataset []rowstream.Row, fetchCount *int) rowstream.PageFetchFunc {
	return func(offset uint) (rowstream.Page, error) {
		*fetchCount++

		if int(offset) >= len(dataset) {
			return rowstream.Page{}, nil
		}

		end := min(len(dataset), int(offset)+2)

		return dataset[offset:end], nil
	}
}

func Test_PageStream_TerminatesAfterEmptyPage(t *testing.T) {
	dataset := fixtures.ManyUsers(5)
	fetchCount := 0

	stream, err := rowstream.NewPageStream(2, pageSource(dataset, &fetchCount))
	require.NoError(t, err)

	var pages []rowstream.Page
	for stream.Next() {
		pages = append(pages, stream.Page())
	}

	require.NoError(t, stream.Err())
	require.Len(t, pages, 3) // ceil(5/2)
	assert.Len(t, pages[0], 2)
	assert.Len(t, pages[1], 2)
	assert.Len(t, pages[2], 1)
	assert.Equal(t, 4, fetchCount) // three pages plus the empty terminator
	assert.False(t, stream.Next(), "an exhausted stream must not restart")
	assert.Equal(t, 4, fetchCount, "the empty terminator must not be fetched again")
}

func Test_PageStream_EmptyDataset(t *testing.T) {
	fetchCount := 0

	stream, err := rowstream.NewPageStream(2, pageSource(nil, &fetchCount))
	require.NoError(t, err)

	assert.False(t, stream.Next())
	assert.NoError(t, stream.Err())
	assert.Equal(t, 1, fetchCount)
}

func Test_PageStream_ZeroPageSizeIsRejected(t *testing.T) {
	_, err := rowstream.NewPageStream(0, func(uint) (rowstream.Page, error) { return nil, nil })

	assert.ErrorIs(t, err, rowstream.ErrValidation)
}

func Test_PageStream_FetchErrorSurfaces(t *testing.T) {
	fetchErr := errors.New("boom")

	stream, err := rowstream.NewPageStream(2, func(uint) (rowstream.Page, error) {
		return nil, fetchErr
	})
	require.NoError(t, err)

	assert.False(t, stream.Next())
	assert.ErrorIs(t, stream.Err(), fetchErr)
	assert.False(t, stream.Next(), "a failed stream stays terminated")
}

func Test_BatchStream_ChunksPreserveOrderAndSize(t *testing.T) {
	dataset := fixtures.ManyUsers(5)

	stream, err := rowstream.ChunkRows(rowstream.SliceRows(dataset...), 2)
	require.NoError(t, err)

	var collected []rowstream.Row
	var batchSizes []int
	for stream.Next() {
		batchSizes = append(batchSizes, len(stream.Batch()))
		collected = append(collected, stream.Batch()...)
	}

	require.NoError(t, stream.Err())
	assert.Equal(t, []int{2, 2, 1}, batchSizes)
	assert.Equal(t, dataset, collected, "concatenated batches must yield all rows in original order")
}

func Test_BatchStream_InvalidBatchSizeIsRejected(t *testing.T) {
	_, err := rowstream.ChunkRows(rowstream.SliceRows(), 0)

	assert.ErrorIs(t, err, rowstream.ErrValidation)
}

func Test_BatchStream_ClosesSourceOnExhaustion(t *testing.T) {
	source := &closeSpyIterator{inner: rowstream.SliceRows(fixtures.SampleUsers()...)}

	stream, err := rowstream.ChunkRows(source, 2)
	require.NoError(t, err)

	for stream.Next() {
		_ = stream.Batch()
	}

	assert.True(t, source.closed, "exhaustion must release the source")
}

func Test_BatchStream_EarlyCloseReleasesSource(t *testing.T) {
	source := &closeSpyIterator{inner: rowstream.SliceRows(fixtures.ManyUsers(10)...)}

	stream, err := rowstream.ChunkRows(source, 2)
	require.NoError(t, err)

	require.True(t, stream.Next())
	require.NoError(t, stream.Close())

	assert.True(t, source.closed)
	assert.False(t, stream.Next(), "a closed stream must not yield further batches")
	require.NoError(t, stream.Close(), "closing twice is safe")
}

func Test_FilterRows_OverBatches_AdultsOnly(t *testing.T) {
	// dataset [{id:1,age:30},{id:2,age:20},{id:3,age:40}], batches of 2,
	// filtered on age > 25, must yield ids 1 and 3 in that order.
	stream, err := rowstream.ChunkRows(rowstream.SliceRows(fixtures.SampleUsers()...), 2)
	require.NoError(t, err)

	adults := rowstream.FilterRows(stream.Rows(), func(row rowstream.Row) bool {
		age, ageErr := row.Float64("age")
		return ageErr == nil && age > 25
	})

	var ids []int64
	for adults.Next() {
		id, found := adults.Row().Get("user_id")
		require.True(t, found)
		ids = append(ids, id.(int64))
	}

	require.NoError(t, adults.Err())
	assert.Equal(t, []int64{1, 3}, ids)
}

func Test_FilterRows_LazyPulling(t *testing.T) {
	source := &pullCountingIterator{rows: fixtures.ManyUsers(6)}

	filtered := rowstream.FilterRows(source, func(rowstream.Row) bool { return true })

	require.True(t, filtered.Next())
	assert.Equal(t, 1, source.pulls, "no row may be pulled before the consumer asks for it")
}

func Test_SliceRows_ExhaustsAndStaysExhausted(t *testing.T) {
	it := rowstream.SliceRows(fixtures.SampleUsers()...)

	count := 0
	for it.Next() {
		count++
	}

	assert.Equal(t, 3, count)
	assert.False(t, it.Next())
	assert.NoError(t, it.Err())
}

/***** test doubles *****/

type closeSpyIterator struct {
	inner  rowstream.RowIterator
	closed bool
}

func (s *closeSpyIterator) Next() bool         { return s.inner.Next() }
func (s *closeSpyIterator) Row() rowstream.Row { return s.inner.Row() }
func (s *closeSpyIterator) Err() error         { return s.inner.Err() }

func (s *closeSpyIterator) Close() error {
	s.closed = true
	return s.inner.Close()
}

type pullCountingIterator struct {
	rows  []rowstream.Row
	pulls int
}

func (p *pullCountingIterator) Next() bool {
	if p.pulls >= len(p.rows) {
		return false
	}

	p.pulls++

	return true
}

func (p *pullCountingIterator) Row() rowstream.Row { return p.rows[p.pulls-1] }
func (p *pullCountingIterator) Err() error         { return nil }
func (p *pullCountingIterator) Close() error       { return nil }
