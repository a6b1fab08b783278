package dispatch

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Loop is a single-goroutine executor. Every continuation handed to it runs,
// in submission order, on the goroutine that called Run.
type Loop struct {
	taskQueue  chan func()
	shutdownCh chan struct{}
	sealedCh   chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	stopped    bool
	logger     *zap.Logger
}

func NewLoop(queueSize int, logger *zap.Logger) *Loop {
	if queueSize <= 0 {
		queueSize = 16
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		taskQueue:  make(chan func(), queueSize),
		shutdownCh: make(chan struct{}),
		sealedCh:   make(chan struct{}),
		logger:     logger,
	}
}

// Execute queues fn. It blocks while the queue is full and drops fn once the
// loop has been stopped.
func (l *Loop) Execute(fn func()) {
	if !l.TryExecute(fn) {
		l.logger.Warn("Loop stopped, dropping continuation")
	}
}

// TryExecute queues fn and reports whether it was accepted.
func (l *Loop) TryExecute(fn func()) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.stopped {
		return false
	}

	select {
	case l.taskQueue <- fn:
		return true
	case <-l.shutdownCh:
		return false
	}
}

// Run processes continuations until Stop is called or ctx is done. On Stop,
// continuations already queued are run before Run returns. When ctx ends the
// loop is stopped without draining and later submissions are dropped.
func (l *Loop) Run(ctx context.Context) {
	l.logger.Debug("Loop started")

	for {
		select {
		case fn := <-l.taskQueue:
			l.run(fn)

		case <-l.shutdownCh:
			<-l.sealedCh
			l.drain()
			l.logger.Debug("Shutdown signal received, loop stopping")
			return
		case <-ctx.Done():
			l.logger.Debug("Context cancelled, loop stopping")
			l.Stop()
			return
		}
	}
}

// Stop makes Run return after draining the queue. It is safe to call more than once.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.shutdownCh)

		// Once sealed no sender can enqueue, so the drain in Run sees everything.
		l.mu.Lock()
		l.stopped = true
		l.mu.Unlock()
		close(l.sealedCh)
	})
}

func (l *Loop) drain() {
	for {
		select {
		case fn := <-l.taskQueue:
			l.run(fn)
		default:
			return
		}
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Continuation panicked", zap.Any("recovered", r), zap.Stack("stack"))
		}
	}()
	fn()
}
