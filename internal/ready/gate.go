package ready

import (
	"context"
	"sync"
)

// Gate is resolved once when startup work has finished. Callers block on Wait
// instead of polling a shared flag.
type Gate struct {
	once sync.Once
	done chan struct{}
}

func NewGate() *Gate {
	return &Gate{done: make(chan struct{})}
}

// Resolved returns a gate that is already open.
func Resolved() *Gate {
	g := NewGate()
	g.Resolve()
	return g
}

// Resolve opens the gate. Calls after the first are no-ops.
func (g *Gate) Resolve() {
	g.once.Do(func() { close(g.done) })
}

// Wait blocks until the gate is resolved or ctx is done. A nil gate never blocks.
func (g *Gate) Wait(ctx context.Context) error {
	if g == nil {
		return nil
	}
	select {
	case <-g.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
