// Command import-users bulk-loads a delimited user dataset into the user_data
// table. Rows whose primary key already exists are skipped, so re-running the
// import is idempotent. The whole load runs inside one transaction.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	"github.com/google/uuid"

	"github.com/prodevtools/lazy-rowstream-go/config"
	"github.com/prodevtools/lazy-rowstream-go/rowstream/postgresengine"
)

const usersTableName = "user_data"

const createUsersTableSQL = `
CREATE TABLE IF NOT EXISTS user_data (
	user_id UUID PRIMARY KEY,
	name    TEXT NOT NULL,
	email   TEXT NOT NULL,
	age     NUMERIC(5,2) NOT NULL
)`

type userRecord struct {
	userID string
	name   string
	email  string
	age    float64
}

func main() {
	csvPath := flag.String("csv", "user_data.csv", "path to the CSV file to import")
	flag.Parse()

	if err := importUsers(*csvPath); err != nil {
		log.Fatalf("Error importing CSV data: %v", err)
	}
}

func importUsers(csvPath string) error {
	startTime := time.Now()
	ctx := context.Background()

	cfg := config.MustLoad()

	pool, poolErr := cfg.OpenPGXPool(ctx)
	if poolErr != nil {
		return fmt.Errorf("connecting to database: %w", poolErr)
	}
	defer pool.Close()

	store, storeErr := postgresengine.NewRowStoreFromPGXPool(pool, postgresengine.WithLogger(slog.Default()))
	if storeErr != nil {
		return storeErr
	}

	if _, execErr := store.Exec(ctx, createUsersTableSQL); execErr != nil {
		return fmt.Errorf("creating table: %w", execErr)
	}

	records, readErr := readUserRecords(csvPath)
	if readErr != nil {
		return readErr
	}

	inserted := int64(0)

	txErr := store.WithinTransaction(ctx, func(ctx context.Context, q postgresengine.Querier) error {
		for _, record := range records {
			insertSQL, buildErr := buildInsertSQL(record)
			if buildErr != nil {
				return buildErr
			}

			affected, insertErr := q.Exec(ctx, insertSQL)
			if insertErr != nil {
				return insertErr
			}

			inserted += affected
		}

		return nil
	})
	if txErr != nil {
		return fmt.Errorf("importing records: %w", txErr)
	}

	slog.Info("import finished",
		"records_read", len(records),
		"records_inserted", inserted,
		"records_skipped", int64(len(records))-inserted,
		"duration", time.Since(startTime).Round(time.Millisecond).String(),
	)

	return nil
}

// readUserRecords parses and validates the CSV file.
// Expected header: user_id,name,email,age.
func readUserRecords(csvPath string) ([]userRecord, error) {
	file, openErr := os.Open(csvPath)
	if openErr != nil {
		return nil, fmt.Errorf("opening CSV file: %w", openErr)
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 4

	if _, headerErr := reader.Read(); headerErr != nil {
		return nil, fmt.Errorf("reading CSV header: %w", headerErr)
	}

	var records []userRecord

	for line := 2; ; line++ {
		fields, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("reading CSV line %d: %w", line, readErr)
		}

		record, parseErr := parseUserRecord(fields)
		if parseErr != nil {
			return nil, fmt.Errorf("CSV line %d: %w", line, parseErr)
		}

		records = append(records, record)
	}

	return records, nil
}

func parseUserRecord(fields []string) (userRecord, error) {
	id, idErr := uuid.Parse(fields[0])
	if idErr != nil {
		return userRecord{}, fmt.Errorf("invalid user_id %q: %w", fields[0], idErr)
	}

	age, ageErr := strconv.ParseFloat(fields[3], 64)
	if ageErr != nil {
		return userRecord{}, fmt.Errorf("invalid age %q: %w", fields[3], ageErr)
	}

	return userRecord{
		userID: id.String(),
		name:   fields[1],
		email:  fields[2],
		age:    age,
	}, nil
}

// buildInsertSQL renders one idempotent insert: an existing primary key makes
// the statement a no-op.
func buildInsertSQL(record userRecord) (string, error) {
	insertStmt := goqu.Dialect("postgres").
		Insert(usersTableName).
		Rows(goqu.Record{
			"user_id": record.userID,
			"name":    record.name,
			"email":   record.email,
			"age":     record.age,
		}).
		OnConflict(goqu.DoNothing())

	insertSQL, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return "", fmt.Errorf("building insert statement: %w", toSQLErr)
	}

	return insertSQL, nil
}
