// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Message is a control request delivered to the worker.
type Message uint32

const (
	// MsgExit asks the worker to stop. The worker acknowledges it before
	// returning.
	MsgExit Message = iota + 1
)

const (
	replyUnknown = 0
	replyOK      = 1
)

type call struct {
	msg   Message
	reply chan int
}

// Worker repeatedly runs an update pass on its own goroutine until it
// receives MsgExit.
type Worker struct {
	name   string
	update func() int
	idle   time.Duration
	logger *slog.Logger

	// onExit runs on the worker goroutine right before MsgExit is
	// acknowledged.
	onExit func()

	mu    sync.Mutex
	calls chan call
	done  chan struct{}
	alive atomic.Bool
}

// NewWorker returns a stopped worker. update returns how many samples it
// advanced; when it reports zero the worker sleeps for idle, or only yields
// when idle is zero.
func NewWorker(name string, update func() int, idle time.Duration, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		name:   name,
		update: update,
		idle:   idle,
		logger: logger.With("worker", name),
	}
}

// Alive reports whether the worker goroutine is running.
func (w *Worker) Alive() bool { return w.alive.Load() }

// Start launches the worker goroutine. It does nothing when the worker is
// already running.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.alive.Load() {
		return
	}

	w.calls = make(chan call)
	w.done = make(chan struct{})
	w.alive.Store(true)

	go w.run(w.calls, w.done)

	w.logger.Debug("worker started")
}

// Call delivers msg and blocks until the worker replies. There is no
// timeout. Calling a stopped worker returns replyUnknown immediately.
func (w *Worker) Call(msg Message) int {
	w.mu.Lock()
	calls, done := w.calls, w.done
	w.mu.Unlock()

	if calls == nil || !w.alive.Load() {
		return replyUnknown
	}

	c := call{msg: msg, reply: make(chan int, 1)}
	select {
	case calls <- c:
	case <-done:
		return replyUnknown
	}

	return <-c.reply
}

// Stop sends MsgExit and waits for the goroutine to return.
func (w *Worker) Stop() bool {
	if !w.alive.Load() {
		return false
	}

	w.mu.Lock()
	done := w.done
	w.mu.Unlock()

	ok := w.Call(MsgExit) == replyOK
	<-done

	return ok
}

func (w *Worker) run(calls <-chan call, done chan<- struct{}) {
	defer close(done)

	var timer *time.Timer
	if w.idle > 0 {
		timer = time.NewTimer(w.idle)
		defer timer.Stop()
	}

	for {
		// Peek for a pending request without blocking the update loop.
		select {
		case c := <-calls:
			if w.handle(c) {
				return
			}
		default:
		}

		if w.update() > 0 {
			continue
		}

		if timer == nil {
			runtime.Gosched()
			continue
		}

		timer.Reset(w.idle)
		select {
		case c := <-calls:
			if w.handle(c) {
				return
			}
		case <-timer.C:
		}
	}
}

// handle answers c and reports whether the worker must stop.
func (w *Worker) handle(c call) bool {
	if c.msg != MsgExit {
		w.logger.Warn("unknown worker message", "message", c.msg)
		c.reply <- replyUnknown
		return false
	}

	w.alive.Store(false)
	if w.onExit != nil {
		w.onExit()
	}
	c.reply <- replyOK

	w.logger.Debug("worker exited")

	return true
}
