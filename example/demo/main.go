// Command demo walks through the streaming pipeline end to end against a live
// user_data table: page-wise pagination, batch-wise cursor streaming with
// filtering, one-pass aggregation, and composed retry/cache/transaction
// middleware. Load the table first with cmd/import-users.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/prodevtools/lazy-rowstream-go/config"
	"github.com/prodevtools/lazy-rowstream-go/rowstream"
	"github.com/prodevtools/lazy-rowstream-go/rowstream/middleware"
	"github.com/prodevtools/lazy-rowstream-go/rowstream/postgresengine"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("demo failed: %v", err)
	}
}

func run() error {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		return cfgErr
	}

	pool, poolErr := cfg.OpenPGXPool(ctx)
	if poolErr != nil {
		return poolErr
	}
	defer pool.Close()

	store, storeErr := postgresengine.NewRowStoreFromPGXPool(pool, postgresengine.WithLogger(logger))
	if storeErr != nil {
		return storeErr
	}

	allUsers := rowstream.BuildSelection("user_data").
		WithColumns("user_id", "name", "email", "age").
		OrderedBy("user_id").
		Finalize()

	if err := paginateUsers(ctx, store, allUsers, cfg.Stream.PageSize); err != nil {
		return err
	}

	if err := streamAdultsInBatches(ctx, store, allUsers, cfg.Stream.BatchSize); err != nil {
		return err
	}

	if err := averageAgeWithMiddleware(ctx, store, allUsers, cfg.Retry); err != nil {
		return err
	}

	if err := raiseAgesTransactionally(ctx, store); err != nil {
		return err
	}

	return concurrentAggregates(ctx, store, allUsers)
}

// paginateUsers walks the table one bounded page at a time. Each page fetch
// runs on its own short-lived connection, so nothing is held between pages.
func paginateUsers(
	ctx context.Context,
	store postgresengine.RowStore,
	selection rowstream.Selection,
	pageSize uint,
) error {

	pages, streamErr := store.StreamPages(ctx, selection, pageSize)
	if streamErr != nil {
		return streamErr
	}

	pageCount := 0
	rowCount := 0

	for pages.Next() {
		pageCount++
		rowCount += len(pages.Page())
	}

	if pagesErr := pages.Err(); pagesErr != nil {
		return pagesErr
	}

	fmt.Printf("paginated %d rows in %d pages of up to %d\n", rowCount, pageCount, pageSize)

	return nil
}

// streamAdultsInBatches streams the whole table through one cursor, chunked
// into batches, and lazily filters for users over 25.
func streamAdultsInBatches(
	ctx context.Context,
	store postgresengine.RowStore,
	selection rowstream.Selection,
	batchSize int,
) error {

	batches, streamErr := store.StreamBatches(ctx, selection, batchSize)
	if streamErr != nil {
		return streamErr
	}

	adults := rowstream.FilterRows(batches.Rows(), func(row rowstream.Row) bool {
		age, ageErr := row.Float64("age")
		return ageErr == nil && age > 25
	})
	defer func() { _ = adults.Close() }()

	adultCount := 0
	for adults.Next() {
		adultCount++
	}

	if adultsErr := adults.Err(); adultsErr != nil {
		return adultsErr
	}

	fmt.Printf("streamed %d users over 25 in batches of %d\n", adultCount, batchSize)

	return nil
}

// averageAgeWithMiddleware computes the mean age with the full middleware
// chain: the retry wraps the cache lookup, the cache memoizes by query
// signature, so the second call never reaches the database.
func averageAgeWithMiddleware(
	ctx context.Context,
	store postgresengine.RowStore,
	selection rowstream.Selection,
	retryCfg config.RetryConfig,
) error {

	signature, signatureErr := selection.Signature()
	if signatureErr != nil {
		return signatureErr
	}

	cache := middleware.NewQueryCache()

	averageAge := middleware.Chain(
		func(ctx context.Context) (float64, error) {
			cursor, cursorErr := store.StreamRows(ctx, selection)
			if cursorErr != nil {
				return 0, cursorErr
			}

			return rowstream.Mean(cursor, rowstream.ColumnAsFloat64("age"))
		},
		middleware.Retrying[float64](
			middleware.WithMaxAttempts(retryCfg.MaxAttempts),
			middleware.WithDelay(retryCfg.Delay),
		),
		middleware.Caching[float64](cache, signature),
	)

	first, firstErr := averageAge(ctx)
	if firstErr != nil {
		return firstErr
	}

	second, secondErr := averageAge(ctx) // served from the cache
	if secondErr != nil {
		return secondErr
	}

	fmt.Printf("average age %.2f (cached second call: %.2f, cache entries: %d)\n", first, second, cache.Len())

	return nil
}

// raiseAgesTransactionally bumps every age inside one transaction and reports
// how many rows the statement touched.
func raiseAgesTransactionally(ctx context.Context, store postgresengine.RowStore) error {
	bumpAges := middleware.InTransaction(store,
		func(ctx context.Context, q postgresengine.Querier) (int64, error) {
			return q.Exec(ctx, `UPDATE user_data SET age = age + 1`)
		},
	)

	affected, txErr := bumpAges(ctx)
	if txErr != nil {
		return txErr
	}

	fmt.Printf("raised the age of %d users inside one transaction\n", affected)

	return nil
}

// concurrentAggregates runs two independent one-pass aggregations at the same
// time, each on its own connection, and waits for both at one barrier.
func concurrentAggregates(ctx context.Context, store postgresengine.RowStore, selection rowstream.Selection) error {
	var meanAge float64
	var totalRows int

	gatherErr := rowstream.Gather(ctx,
		func(ctx context.Context) error {
			cursor, cursorErr := store.StreamRows(ctx, selection)
			if cursorErr != nil {
				return cursorErr
			}

			mean, meanErr := rowstream.Mean(cursor, rowstream.ColumnAsFloat64("age"))
			if meanErr != nil {
				return meanErr
			}

			meanAge = mean

			return nil
		},
		func(ctx context.Context) error {
			cursor, cursorErr := store.StreamRows(ctx, selection)
			if cursorErr != nil {
				return cursorErr
			}

			count, countErr := rowstream.Fold(cursor, 0, func(count int, _ rowstream.Row) (int, error) {
				return count + 1, nil
			})
			if countErr != nil {
				return countErr
			}

			totalRows = count

			return nil
		},
	)
	if gatherErr != nil {
		return gatherErr
	}

	fmt.Printf("gathered concurrently: %d rows, mean age %.2f\n", totalRows, meanAge)

	return nil
}
