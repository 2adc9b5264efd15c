package sequence

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MinTick is the shortest interval a Loop timer fires at.
const MinTick = time.Millisecond

// Loop runs posted work on a single goroutine, so player dispatch, typing
// ticks and input signals never overlap. It implements Scheduler.
type Loop struct {
	queue chan func()
	done  chan struct{}
	once  sync.Once
}

// NewLoop returns a Loop whose queue holds depth pending calls.
func NewLoop(depth int) *Loop {
	if depth <= 0 {
		depth = 64
	}
	return &Loop{
		queue: make(chan func(), depth),
		done:  make(chan struct{}),
	}
}

// Run processes posted work until ctx is done. Timers created by Every stop
// with it.
func (l *Loop) Run(ctx context.Context) {
	defer l.stop()
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.queue:
			fn()
		}
	}
}

func (l *Loop) stop() { l.once.Do(func() { close(l.done) }) }

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Post queues fn. It reports false if the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.queue <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Call posts fn and waits for it to run.
func (l *Loop) Call(fn func()) bool {
	ran := make(chan struct{})
	if !l.Post(func() { fn(); close(ran) }) {
		return false
	}
	select {
	case <-ran:
		return true
	case <-l.done:
		return false
	}
}

type loopTimer struct {
	stopped atomic.Bool
	stopCh  chan struct{}
	once    sync.Once
}

func (t *loopTimer) Stop() {
	t.once.Do(func() {
		t.stopped.Store(true)
		close(t.stopCh)
	})
}

// Every posts fn to the loop every d. A tick already queued when the timer
// is stopped does not run fn.
func (l *Loop) Every(d time.Duration, fn func()) Timer {
	if d < MinTick {
		d = MinTick
	}
	t := &loopTimer{stopCh: make(chan struct{})}
	go func() {
		tick := time.NewTicker(d)
		defer tick.Stop()
		for {
			select {
			case <-t.stopCh:
				return
			case <-l.done:
				return
			case <-tick.C:
				ok := l.Post(func() {
					if !t.stopped.Load() {
						fn()
					}
				})
				if !ok {
					return
				}
			}
		}
	}()
	return t
}
