// Package dispatch decides on which goroutine a continuation runs.
package dispatch

// Executor runs continuations on the context it owns.
type Executor interface {
	Execute(fn func())
}

// Inline runs continuations directly on the calling goroutine.
type Inline struct{}

func (Inline) Execute(fn func()) {
	fn()
}

// ExecutorFunc adapts a plain function to Executor.
type ExecutorFunc func(fn func())

func (f ExecutorFunc) Execute(fn func()) {
	f(fn)
}
