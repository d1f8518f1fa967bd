package postgresengine

import (
	"errors"

	"github.com/prodevtools/lazy-rowstream-go/rowstream"
	"github.com/prodevtools/lazy-rowstream-go/rowstream/postgresengine/internal/adapters"
)

// cursorRows adapts one open database cursor plus its owning connection to a
// rowstream.RowIterator. The connection is released exactly once: on
// exhaustion, on the first error, or on Close, whichever comes first.
type cursorRows struct {
	store   RowStore
	rows    adapters.DBRows
	conn    adapters.DBConn
	columns []string
	current rowstream.Row
	err     error
	closed  bool
}

func (c *cursorRows) Next() bool {
	if c.closed || c.err != nil {
		return false
	}

	if !c.rows.Next() {
		if iterationErr := c.rows.Err(); iterationErr != nil {
			c.store.logError(logMsgScanRowFailed, iterationErr)
			c.err = classifyStoreError(rowstream.ErrQueryingRowsFailed, iterationErr)
		}

		c.release()

		return false
	}

	if c.columns == nil {
		columns, columnsErr := c.rows.Columns()
		if columnsErr != nil {
			c.store.logError(logMsgReadColumnsFailed, columnsErr)
			c.err = errors.Join(rowstream.ErrScanningRowFailed, columnsErr)
			c.release()
			return false
		}

		c.columns = columns
	}

	row, scanErr := c.store.scanRow(c.rows, c.columns)
	if scanErr != nil {
		c.err = scanErr
		c.release()
		return false
	}

	c.current = row

	return true
}

func (c *cursorRows) Row() rowstream.Row {
	return c.current
}

func (c *cursorRows) Err() error {
	return c.err
}

// Close releases the cursor and its connection. Safe to call more than once
// and at any point of the traversal.
func (c *cursorRows) Close() error {
	c.release()
	return nil
}

func (c *cursorRows) release() {
	if c.closed {
		return
	}
	c.closed = true

	c.store.closeRows(c.rows)
	c.store.releaseConnection(c.conn)
}
