package tx

import (
	"context"
	"sync"
)

type undoKey struct{}

type undoLog struct {
	steps []func()
}

// Memory gives in-memory stores all-or-nothing units of work. Units are
// serialized, and callers register compensating steps with OnRollback that
// run in reverse order when fn fails.
type Memory struct {
	mu sync.Mutex
}

func NewMemory() *Memory {
	return &Memory{}
}

// RunInTx runs fn as one unit. Nested calls join the outer unit.
func (m *Memory) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(undoKey{}).(*undoLog); ok {
		return fn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	log := &undoLog{}
	if err := fn(context.WithValue(ctx, undoKey{}, log)); err != nil {
		for i := len(log.steps) - 1; i >= 0; i-- {
			log.steps[i]()
		}
		return err
	}
	return nil
}

// OnRollback registers undo to run if the surrounding Memory unit fails.
// Outside a Memory unit it does nothing; SQL transactions roll back on their own.
func OnRollback(ctx context.Context, undo func()) {
	if log, ok := ctx.Value(undoKey{}).(*undoLog); ok {
		log.steps = append(log.steps, undo)
	}
}
