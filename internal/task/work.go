package task

import (
	"context"
	"maps"
	"slices"
)

// Work is the unit of work carried by a task. Any arguments it needs are
// bound when the Work value is built, so the processing loop only ever calls
// Execute.
type Work interface {
	// Execute runs the work and returns its result.
	// A returned error marks the task as failed.
	Execute(ctx context.Context) (any, error)
}

// WorkFunc adapts an ordinary function to the Work interface.
type WorkFunc func(ctx context.Context) (any, error)

// Execute calls f(ctx).
func (f WorkFunc) Execute(ctx context.Context) (any, error) {
	return f(ctx)
}

// CallFunc is a function taking positional and named arguments.
type CallFunc func(ctx context.Context, args []any, kwargs map[string]any) (any, error)

// Call binds a CallFunc to its arguments. A Task built around a Call records
// the same arguments on the task record.
type Call struct {
	Fn     CallFunc
	Args   []any
	Kwargs map[string]any
}

// Execute invokes Fn with copies of the bound arguments.
func (c Call) Execute(ctx context.Context) (any, error) {
	return c.Fn(ctx, slices.Clone(c.Args), maps.Clone(c.Kwargs))
}

// NewCall is shorthand for a Call with positional arguments only.
func NewCall(fn CallFunc, args ...any) Call {
	return Call{Fn: fn, Args: args}
}
