package work

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	t.Parallel()

	c := DefaultCatalog()
	assert.Equal(t, []string{"echo", "fail", "sleep", "sum"}, c.Kinds())
	assert.True(t, c.Has(KindSum))
	assert.False(t, c.Has("reticulate"))
}

func TestCatalog_Build(t *testing.T) {
	t.Parallel()

	c := DefaultCatalog()

	t.Run("known kind", func(t *testing.T) {
		w, err := c.Build(KindSum, []any{1, 2}, nil)
		require.NoError(t, err)

		got, err := w.Execute(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, got)
	})

	t.Run("unknown kind", func(t *testing.T) {
		w, err := c.Build("reticulate", nil, nil)
		assert.Nil(t, w)
		assert.ErrorIs(t, err, ErrUnknownKind)
	})

	t.Run("custom kind", func(t *testing.T) {
		custom := NewCatalog()
		custom.Register("answer", func(context.Context, []any, map[string]any) (any, error) {
			return 42, nil
		})
		w, err := custom.Build("answer", nil, nil)
		require.NoError(t, err)
		got, err := w.Execute(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 42, got)
	})
}

func TestSum(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []any
		want    any
		wantErr bool
	}{
		{name: "ints", args: []any{1, 2}, want: 3},
		{name: "empty", args: nil, want: 0},
		{name: "json whole numbers", args: []any{float64(1), float64(2)}, want: 3},
		{name: "fractions", args: []any{1.5, 2}, want: 3.5},
		{name: "not a number", args: []any{1, "two"}, wantErr: true},
		{name: "int overflow falls back to float", args: []any{9e18, 9e18}, want: 1.8e19},
		{name: "int64 overflow", args: []any{int64(math.MaxInt64), 1}, want: math.Exp2(63)},
		{name: "negative overflow", args: []any{int64(math.MinInt64), -1}, want: -math.Exp2(63)},
		{name: "beyond int64 range", args: []any{1e19, 1}, want: 1e19},
		{name: "infinite", args: []any{1.5e308, 1.5e308}, wantErr: true},
		{name: "not a finite number", args: []any{math.Inf(1), 1.5}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Sum(context.Background(), tc.args, nil)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEcho(t *testing.T) {
	t.Parallel()

	got, err := Echo(context.Background(), []any{"a"}, map[string]any{"k": 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"args":   []any{"a"},
		"kwargs": map[string]any{"k": 1},
	}, got)
}

func TestSleep(t *testing.T) {
	t.Parallel()

	t.Run("sleeps", func(t *testing.T) {
		got, err := Sleep(context.Background(), nil, map[string]any{"seconds": 0.01})
		require.NoError(t, err)
		assert.Equal(t, 0.01, got)
	})

	t.Run("honours cancellation", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := Sleep(ctx, nil, map[string]any{"seconds": 30})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("bad seconds", func(t *testing.T) {
		_, err := Sleep(context.Background(), nil, map[string]any{"seconds": "soon"})
		assert.Error(t, err)

		_, err = Sleep(context.Background(), nil, map[string]any{"seconds": -1})
		assert.Error(t, err)
	})

	t.Run("too long", func(t *testing.T) {
		start := time.Now()
		_, err := Sleep(context.Background(), nil, map[string]any{"seconds": 1e30})
		assert.ErrorContains(t, err, "at most")
		assert.Less(t, time.Since(start), time.Second)

		_, err = Sleep(context.Background(), nil, map[string]any{"seconds": MaxSleep.Seconds() + 1})
		assert.Error(t, err)
	})
}

func TestFail(t *testing.T) {
	t.Parallel()

	_, err := Fail(context.Background(), nil, nil)
	assert.EqualError(t, err, "boom")

	_, err = Fail(context.Background(), nil, map[string]any{"message": "out of cheese"})
	assert.EqualError(t, err, "out of cheese")
}
