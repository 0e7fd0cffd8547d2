package container_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-injecting/framework/container"
)

func TestFuture_ResolvedAndRejected(t *testing.T) {
	ctx := context.Background()

	f := container.Resolved("v")
	assert.True(t, f.Settled())
	v, err := f.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	boom := errors.New("boom")
	assert.ErrorIs(t, container.Rejected(boom).Err(ctx), boom)
}

func TestFuture_GoSettlesOnce(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	f := container.Go(func() (any, error) {
		<-release
		return 7, nil
	})

	assert.False(t, f.Settled())
	close(release)
	<-f.Done()

	got, err := container.Await[int](ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestFuture_GoRecoversPanic(t *testing.T) {
	err := container.Go(func() (any, error) { panic("kaboom") }).Err(context.Background())

	require.ErrorIs(t, err, container.ErrFactoryPanic)
	assert.EqualError(t, err, "container: factory panicked: kaboom")
}

func TestFuture_AwaitHonorsContext(t *testing.T) {
	f := container.Go(func() (any, error) {
		time.Sleep(time.Second)
		return nil, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFuture_SettledBeatsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v, err := container.Resolved(1).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestAwait_TypeMismatch(t *testing.T) {
	_, err := container.Await[int](context.Background(), container.Resolved("nope"))

	require.ErrorIs(t, err, container.ErrArgType)
	assert.EqualError(t, err, "container: value is string, want int")
}

func TestAwait_NilIsZero(t *testing.T) {
	v, err := container.Await[*int](context.Background(), container.Resolved(nil))
	require.NoError(t, err)
	assert.Nil(t, v)
}
