package closer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloser_CloseAll(t *testing.T) {
	closer := NewWithLogger(noopLogger{})

	var order []string
	closer.AddNamed("first", func(context.Context) error {
		order = append(order, "first")
		return nil
	})
	closer.AddNamed("second", func(context.Context) error {
		order = append(order, "second")
		return errors.New("boom")
	})
	closer.AddNamed("third", func(context.Context) error {
		order = append(order, "third")
		panic("oops")
	})

	err := closer.CloseAll(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "second: boom")
	assert.ErrorContains(t, err, "third: panic in close function: oops")
	assert.Equal(t, []string{"third", "second", "first"}, order)

	select {
	case <-closer.Done():
	default:
		t.Fatal("done channel must be closed")
	}

	assert.NoError(t, closer.CloseAll(context.Background()))
}

func TestCloser_CancelledContext(t *testing.T) {
	closer := NewWithLogger(noopLogger{})

	called := false
	closer.AddNamed("db", func(context.Context) error {
		called = true
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := closer.CloseAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
