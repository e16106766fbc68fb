package session

import (
	"context"

	"github.com/dunamismax/pixeledit/internal/domain"
)

// LoadTask is a load running in the background. It resolves exactly once.
type LoadTask struct {
	done   chan struct{}
	source domain.PixelSource
	err    error
}

// LoadAsync starts a load and returns immediately. The processing guard is
// claimed before returning, so a second call made before this one resolves
// yields a task that fails with domain.ErrBusy. A started load always runs to
// completion; cancelling ctx only stops Wait.
func (s *Session) LoadAsync(ctx context.Context, file domain.File) *LoadTask {
	task := &LoadTask{done: make(chan struct{})}

	if !s.processing.CompareAndSwap(false, true) {
		task.err = domain.ErrBusy
		close(task.done)
		return task
	}

	detached := context.WithoutCancel(ctx)
	go func() {
		defer close(task.done)
		defer s.processing.Store(false)
		task.source, task.err = s.load(detached, file)
	}()
	return task
}

func (t *LoadTask) Done() <-chan struct{} {
	return t.done
}

func (t *LoadTask) Wait(ctx context.Context) (domain.PixelSource, error) {
	select {
	case <-t.done:
		return t.source, t.err
	case <-ctx.Done():
		return domain.PixelSource{}, ctx.Err()
	}
}
