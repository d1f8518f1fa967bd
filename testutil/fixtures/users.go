// Package fixtures provides sample user rows for tests of the streaming
// pipeline and the middlewares.
package fixtures

import (
	"fmt"

	"github.com/prodevtools/lazy-rowstream-go/rowstream"
)

var userColumns = []string{"user_id", "name", "email", "age"}

// UserRow builds one sample user row and panics on projection mismatch.
func UserRow(id int, name string, email string, age float64) rowstream.Row {
	row, err := rowstream.BuildRow(userColumns, []any{int64(id), name, email, age})
	if err != nil {
		panic(fmt.Sprintf("building fixture row: %v", err))
	}

	return row
}

// SampleUsers returns three users with ages 30, 20 and 40, in that order.
func SampleUsers() []rowstream.Row {
	return []rowstream.Row{
		UserRow(1, "Ada", "ada@example.com", 30),
		UserRow(2, "Ben", "ben@example.com", 20),
		UserRow(3, "Cleo", "cleo@example.com", 40),
	}
}

// ManyUsers returns n generated user rows with ascending ids and ages.
func ManyUsers(n int) []rowstream.Row {
	rows := make([]rowstream.Row, 0, n)
	for i := 1; i <= n; i++ {
		rows = append(rows, UserRow(i, fmt.Sprintf("user-%d", i), fmt.Sprintf("user-%d@example.com", i), float64(20+i)))
	}

	return rows
}
