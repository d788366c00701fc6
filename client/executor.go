package client

import (
	"sync"
)

// Executor runs callbacks. Implementations must run every submitted func
// exactly once.
type Executor interface {
	Execute(fn func())
}

// ExecutorFunc adapts a func to the [Executor] interface.
type ExecutorFunc func(fn func())

func (f ExecutorFunc) Execute(fn func()) { f(fn) }

// GoExecutor runs every callback on its own goroutine.
var GoExecutor Executor = ExecutorFunc(func(fn func()) { go fn() })

// execute runs fn on e, or inline when e is nil.
func execute(e Executor, fn func()) {
	if e == nil {
		fn()
		return
	}

	e.Execute(fn)
}

// Loop is an [Executor] running callbacks one at a time, in submission
// order, on a single goroutine. It suits callers that need all results on
// one owner goroutine, like a UI or event loop.
//
// The queue is unbounded, so Execute never blocks. Callbacks running on
// the loop may post further work to it.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

// NewLoop starts a loop whose queue initially has room for capacity
// callbacks. The queue grows as needed.
func NewLoop(capacity int) *Loop {
	if capacity < 0 {
		capacity = 0
	}

	l := &Loop{
		queue: make([]func(), 0, capacity),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}

	go l.run()

	return l
}

// Execute queues fn. After Close, fn runs inline on the caller so that no
// callback is ever dropped.
func (l *Loop) Execute(fn func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		fn()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	l.signal()
}

// Close stops accepting work and waits for queued callbacks to finish,
// including those they queue themselves. It must not be called from a
// callback running on the loop.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	l.signal()
	<-l.done
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) run() {
	defer close(l.done)

	for {
		l.mu.Lock()
		for len(l.queue) == 0 {
			if l.closed {
				l.mu.Unlock()
				return
			}
			l.mu.Unlock()
			<-l.wake
			l.mu.Lock()
		}

		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		fn()
	}
}
