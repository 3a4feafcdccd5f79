package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShutdownRunsFuncsInOrder(t *testing.T) {
	sm := NewShutdownManager(NewNopLogger(), nil, 0)

	var order []int
	sm.RegisterShutdownFunc(func(ctx context.Context) error { order = append(order, 1); return nil })
	sm.RegisterShutdownFunc(func(ctx context.Context) error { order = append(order, 2); return nil })

	assert.NoError(t, sm.Shutdown())
	assert.Equal(t, []int{1, 2}, order)
}

func TestShutdownCollectsErrors(t *testing.T) {
	sm := NewShutdownManager(NewNopLogger(), nil, 0)
	boom := errors.New("close failed")
	sm.RegisterShutdownFunc(func(ctx context.Context) error { return boom })
	sm.RegisterShutdownFunc(func(ctx context.Context) error { return nil })

	err := sm.Shutdown()
	assert.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
