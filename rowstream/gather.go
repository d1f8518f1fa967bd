package rowstream

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Gather runs independent read tasks concurrently and waits for all of them
// at one synchronization barrier. The tasks must not share a connection or a
// stream; each should own its own. There is no ordering guarantee between
// tasks, only that all have completed, or one failure has surfaced, before
// Gather returns. The first failing task cancels the context passed to the
// others.
func Gather(ctx context.Context, tasks ...func(ctx context.Context) error) error {
	group, groupCtx := errgroup.WithContext(ctx)

	for _, task := range tasks {
		task := task
		group.Go(func() error {
			return task(groupCtx)
		})
	}

	return group.Wait()
}
