package clock

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateOf_UsesBusinessZone(t *testing.T) {
	manila, err := time.LoadLocation("Asia/Manila")
	require.NoError(t, err)

	// 2026-03-01 18:30 UTC is already 2026-03-02 in Manila (UTC+8).
	instant := time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), DateOf(instant, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), DateOf(instant, manila))
}

func TestFake_TodayFollowsAdvance(t *testing.T) {
	c := NewFake(time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC), nil)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), c.Today())

	c.Advance(2 * time.Hour)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), c.Today())
	assert.Equal(t, time.UTC, c.Location())
}
