package scheduling

import (
	"math/rand"
	"testing"
	"time"

	"meetsync/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(h, m int) time.Time {
	return time.Date(2026, 3, 10, h, m, 0, 0, time.UTC)
}

func iv(sh, sm, eh, em int) models.TimeInterval {
	return models.MustInterval(at(sh, sm), at(eh, em))
}

func TestBuildAvailabilityViewMerges(t *testing.T) {
	raw := []models.TimeInterval{
		iv(9, 0, 10, 0),
		iv(9, 30, 10, 30), // overlaps the first
		iv(10, 30, 11, 0), // touches the merged block
		iv(14, 0, 15, 0),
	}
	v := BuildAvailabilityView(raw, at(9, 0), at(18, 0))

	require.Len(t, v.Busy, 2)
	assert.Equal(t, iv(9, 0, 11, 0), v.Busy[0], "overlapping and touching events coalesce")
	assert.Equal(t, iv(14, 0, 15, 0), v.Busy[1])
}

func TestBuildAvailabilityViewClipsToRange(t *testing.T) {
	raw := []models.TimeInterval{
		iv(7, 0, 9, 30),                    // spills in from before
		iv(17, 30, 19, 0),                  // spills out after
		iv(6, 0, 7, 0),                     // entirely outside
		{Start: at(12, 0), End: at(11, 0)}, // malformed, tolerated
	}
	v := BuildAvailabilityView(raw, at(9, 0), at(18, 0))

	require.Len(t, v.Busy, 2)
	assert.Equal(t, iv(9, 0, 9, 30), v.Busy[0])
	assert.Equal(t, iv(17, 30, 18, 0), v.Busy[1])
}

func TestBuildAvailabilityViewOrderIndependent(t *testing.T) {
	raw := []models.TimeInterval{
		iv(9, 0, 10, 0),
		iv(11, 0, 12, 0),
		iv(11, 30, 13, 0),
		iv(15, 0, 16, 0),
		iv(16, 0, 16, 30),
	}
	want := BuildAvailabilityView(raw, at(9, 0), at(18, 0))

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := append([]models.TimeInterval(nil), raw...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := BuildAvailabilityView(shuffled, at(9, 0), at(18, 0))
		assert.Equal(t, want.Busy, got.Busy)
	}
}

func TestFreeWithin(t *testing.T) {
	v := BuildAvailabilityView([]models.TimeInterval{
		iv(10, 0, 11, 0),
		iv(14, 0, 15, 30),
	}, at(9, 0), at(18, 0))

	free := v.FreeWithin(iv(9, 0, 18, 0))
	require.Len(t, free, 3)
	assert.Equal(t, iv(9, 0, 10, 0), free[0])
	assert.Equal(t, iv(11, 0, 14, 0), free[1])
	assert.Equal(t, iv(15, 30, 18, 0), free[2])
}

func TestFreeWithinEmptyAndFullDays(t *testing.T) {
	empty := BuildAvailabilityView(nil, at(9, 0), at(18, 0))
	free := empty.FreeWithin(iv(9, 0, 18, 0))
	require.Len(t, free, 1)
	assert.Equal(t, iv(9, 0, 18, 0), free[0])

	full := BuildAvailabilityView([]models.TimeInterval{iv(9, 0, 18, 0)}, at(9, 0), at(18, 0))
	assert.Empty(t, full.FreeWithin(iv(9, 0, 18, 0)))
}
