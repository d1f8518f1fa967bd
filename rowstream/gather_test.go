package rowstream_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prodevtools/lazy-rowstream-go/rowstream"
)

func Test_Gather_RunsAllTasks(t *testing.T) {
	var completed atomic.Int32
	task := func(context.Context) error {
		completed.Add(1)
		return nil
	}

	err := rowstream.Gather(context.Background(), task, task, task)

	require.NoError(t, err)
	assert.Equal(t, int32(3), completed.Load())
}

func Test_Gather_SurfacesFirstFailure(t *testing.T) {
	taskErr := errors.New("task blew up")

	err := rowstream.Gather(
		context.Background(),
		func(context.Context) error { return nil },
		func(context.Context) error { return taskErr },
	)

	assert.ErrorIs(t, err, taskErr)
}

func Test_Gather_FailureCancelsSiblings(t *testing.T) {
	taskErr := errors.New("task blew up")
	release := make(chan struct{})
	var siblingCtxErr error

	err := rowstream.Gather(
		context.Background(),
		func(ctx context.Context) error {
			defer close(release)
			return taskErr
		},
		func(ctx context.Context) error {
			<-release
			<-ctx.Done()
			siblingCtxErr = ctx.Err()
			return nil
		},
	)

	assert.ErrorIs(t, err, taskErr)
	assert.ErrorIs(t, siblingCtxErr, context.Canceled)
}

func Test_Gather_NoTasks(t *testing.T) {
	assert.NoError(t, rowstream.Gather(context.Background()))
}
