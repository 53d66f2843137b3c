package work

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/phrazzld/taskqueue/internal/task"
	"github.com/spf13/cast"
)

// Built-in kinds
const (
	KindSum   = "sum"
	KindEcho  = "echo"
	KindSleep = "sleep"
	KindFail  = "fail"
)

// ErrUnknownKind is returned when no unit of work is registered under a kind.
var ErrUnknownKind = errors.New("unknown work kind")

// Catalog maps kind names to functions.
type Catalog struct {
	mu    sync.RWMutex
	funcs map[string]task.CallFunc
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{funcs: make(map[string]task.CallFunc)}
}

// DefaultCatalog returns a catalog holding the built-in kinds.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	c.Register(KindSum, Sum)
	c.Register(KindEcho, Echo)
	c.Register(KindSleep, Sleep)
	c.Register(KindFail, Fail)
	return c
}

// Register adds or replaces the function for kind.
func (c *Catalog) Register(kind string, fn task.CallFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.funcs[kind] = fn
}

// Has reports whether kind is registered.
func (c *Catalog) Has(kind string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.funcs[kind]
	return ok
}

// Kinds returns the registered kind names in sorted order.
func (c *Catalog) Kinds() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.funcs))
}

// Build binds args and kwargs to the function registered under kind.
func (c *Catalog) Build(kind string, args []any, kwargs map[string]any) (task.Work, error) {
	c.mu.RLock()
	fn, ok := c.funcs[kind]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return task.Call{Fn: fn, Args: args, Kwargs: kwargs}, nil
}

// Sum adds its positional arguments. The result is an int when every
// argument is an integer and the total fits in an int64, and a float64
// otherwise. A total that is not a finite number is an error.
func Sum(_ context.Context, args []any, _ map[string]any) (any, error) {
	var (
		ints    int64
		floats  float64
		isFloat bool
	)
	addInt := func(n int64) {
		if s, ok := addInt64(ints, n); ok {
			ints = s
			return
		}
		floats += float64(n)
		isFloat = true
	}
	for i, arg := range args {
		switch v := arg.(type) {
		case int:
			addInt(int64(v))
		case int32:
			addInt(int64(v))
		case int64:
			addInt(v)
		case float32:
			floats += float64(v)
			isFloat = true
		case float64:
			if isWholeInt64(v) {
				addInt(int64(v))
			} else {
				floats += v
				isFloat = true
			}
		default:
			return nil, fmt.Errorf("argument %d is not a number: %v", i, arg)
		}
	}
	if !isFloat {
		return int(ints), nil
	}
	total := float64(ints) + floats
	if math.IsInf(total, 0) || math.IsNaN(total) {
		return nil, fmt.Errorf("sum is not a finite number: %v", total)
	}
	return total, nil
}

// addInt64 returns a+b and false if the addition overflows.
func addInt64(a, b int64) (int64, bool) {
	s := a + b
	if (b > 0 && s < a) || (b < 0 && s > a) {
		return 0, false
	}
	return s, true
}

// isWholeInt64 reports whether v is a whole number inside the int64 range.
func isWholeInt64(v float64) bool {
	return v == math.Trunc(v) && v >= math.MinInt64 && v < math.MaxInt64
}

// Echo returns its arguments unchanged.
func Echo(_ context.Context, args []any, kwargs map[string]any) (any, error) {
	return map[string]any{"args": args, "kwargs": kwargs}, nil
}

// MaxSleep bounds the duration accepted by Sleep.
const MaxSleep = 24 * time.Hour

// Sleep waits for kwargs["seconds"] (default 1, at most MaxSleep) or until
// ctx is done.
func Sleep(ctx context.Context, _ []any, kwargs map[string]any) (any, error) {
	seconds := 1.0
	if raw, ok := kwargs["seconds"]; ok {
		s, err := cast.ToFloat64E(raw)
		if err != nil {
			return nil, fmt.Errorf("seconds: %w", err)
		}
		if math.IsNaN(s) || s < 0 {
			return nil, fmt.Errorf("seconds must not be negative, got %v", s)
		}
		if s > MaxSleep.Seconds() {
			return nil, fmt.Errorf("seconds must be at most %v, got %v", MaxSleep.Seconds(), s)
		}
		seconds = s
	}

	timer := time.NewTimer(time.Duration(seconds * float64(time.Second)))
	defer timer.Stop()

	select {
	case <-timer.C:
		return seconds, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Fail always returns an error, with kwargs["message"] as its text.
func Fail(_ context.Context, _ []any, kwargs map[string]any) (any, error) {
	msg := "boom"
	if m, ok := kwargs["message"].(string); ok && m != "" {
		msg = m
	}
	return nil, errors.New(msg)
}
