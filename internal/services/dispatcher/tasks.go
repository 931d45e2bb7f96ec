package dispatcher

import (
	"context"
	"sync"
)

type tasksKey struct{}

// Tasks collects the detached work scheduled while one request is handled.
// It is drained exactly once, after the handler returns.
type Tasks struct {
	mu     sync.Mutex
	items  []task
	sealed bool
}

func WithTasks(ctx context.Context) (context.Context, *Tasks) {
	t := &Tasks{}
	return context.WithValue(ctx, tasksKey{}, t), t
}

func tasksFrom(ctx context.Context) *Tasks {
	t, _ := ctx.Value(tasksKey{}).(*Tasks)
	return t
}

func (t *Tasks) add(item task) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sealed {
		return false
	}
	t.items = append(t.items, item)
	return true
}

func (t *Tasks) drain() []task {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sealed = true
	items := t.items
	t.items = nil
	return items
}

func (t *Tasks) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}
