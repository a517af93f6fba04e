package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveWindowDateOnly(t *testing.T) {
	w, err := ResolveWindow("2025-01-10", "", "")
	require.NoError(t, err)

	assert.Equal(t, "2025-01-10 00:00:00", w.BeginString())
	assert.Equal(t, "2025-01-11 00:00:00", w.EndString())
}

func TestResolveWindowWithTimes(t *testing.T) {
	w, err := ResolveWindow("2025-01-10", "09:30", "17:45")
	require.NoError(t, err)

	assert.Equal(t, "2025-01-10 09:30:00", w.BeginString())
	assert.Equal(t, "2025-01-10 17:45:00", w.EndString())
}

func TestResolveWindowStartOnly(t *testing.T) {
	w, err := ResolveWindow("2025-01-10", "09:00", "")
	require.NoError(t, err)

	assert.Equal(t, "2025-01-10 09:00:00", w.BeginString())
	assert.Equal(t, "2025-01-10 23:59:00", w.EndString())
}

func TestResolveWindowInvalid(t *testing.T) {
	_, err := ResolveWindow("10-01-2025", "", "")
	assert.Error(t, err)

	_, err = ResolveWindow("2025-01-10", "9am", "")
	assert.Error(t, err)
}

func TestWindowWidened(t *testing.T) {
	w, err := ResolveWindow("2025-01-10", "09:00", "10:00")
	require.NoError(t, err)

	wide := w.Widened(time.Minute)
	assert.Equal(t, "2025-01-10 08:59:00", wide.BeginString())
	assert.Equal(t, "2025-01-10 10:01:00", wide.EndString())
}

func TestDayGap(t *testing.T) {
	now := time.Date(2025, 1, 12, 15, 30, 0, 0, time.Local)

	assert.Equal(t, 0, DayGap(now, "2025-01-12"), "today")
	assert.Equal(t, 1, DayGap(now, "2025-01-11"), "yesterday")
	assert.Equal(t, 2, DayGap(now, "2025-01-10"))
	assert.Equal(t, 0, DayGap(now, "2025-01-20"), "future dates stay filtered")
	assert.Equal(t, 0, DayGap(now, "garbage"))
}
