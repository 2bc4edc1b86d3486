// Package session provides the single ordered task queue each POS session
// runs on. Cart mutations and checkout completions are posted here as tasks;
// a task runs to completion before the next one starts, so the cart and the
// orchestrator need no locking of their own.
package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrLoopClosed = errors.New("session loop is closed")

type task struct {
	fn   func()
	done chan struct{}
}

type Loop struct {
	mu     sync.Mutex
	tasks  chan task
	closed bool
	wg     sync.WaitGroup
}

func NewLoop() *Loop {
	l := &Loop{
		tasks: make(chan task, 64),
	}
	l.wg.Add(1)
	go l.run()
	return l
}

func (l *Loop) run() {
	defer l.wg.Done()
	for t := range l.tasks {
		t.fn()
		close(t.done)
	}
}

// Do posts fn to the queue and waits for it to finish. If ctx expires first,
// Do returns early but the task still runs in its turn; there is no
// cancellation of queued work, only abandonment of the wait.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	t := task{fn: fn, done: make(chan struct{})}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLoopClosed
	}
	l.tasks <- t
	l.mu.Unlock()

	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Schedule posts fn to the queue after the given delay. Used for the
// post-verification reset; a loop closed before the timer fires drops it.
func (l *Loop) Schedule(delay time.Duration, fn func()) *time.Timer {
	return time.AfterFunc(delay, func() {
		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			return
		}
		l.tasks <- task{fn: fn, done: make(chan struct{})}
		l.mu.Unlock()
	})
}

// Close drains queued tasks and stops the loop.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	close(l.tasks)
	l.mu.Unlock()
	l.wg.Wait()
}
