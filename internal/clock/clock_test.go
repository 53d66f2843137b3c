package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewZoned(t *testing.T) {
	t.Parallel()

	t.Run("default timezone", func(t *testing.T) {
		t.Parallel()

		c, err := NewZoned("")
		require.NoError(t, err)
		assert.Equal(t, DefaultTimezone, c.Location().String())
		assert.Equal(t, DefaultTimezone, c.Now().Location().String())
	})

	t.Run("explicit timezone", func(t *testing.T) {
		t.Parallel()

		c, err := NewZoned("UTC")
		require.NoError(t, err)
		assert.Equal(t, time.UTC.String(), c.Now().Location().String())
	})

	t.Run("unknown timezone", func(t *testing.T) {
		t.Parallel()

		c, err := NewZoned("Mars/Olympus_Mons")
		assert.Error(t, err)
		assert.Nil(t, c)
		assert.Contains(t, err.Error(), "Mars/Olympus_Mons")
	})
}

func TestZonedNowIsCurrent(t *testing.T) {
	c, err := NewZoned("UTC")
	require.NoError(t, err)

	before := time.Now()
	now := c.Now()
	after := time.Now()

	assert.False(t, now.Before(before))
	assert.False(t, now.After(after))
}

func TestFunc(t *testing.T) {
	fixed := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	var c Clock = Func(func() time.Time { return fixed })
	assert.Equal(t, fixed, c.Now())
}
