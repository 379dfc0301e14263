package utils

import (
	"testing"
	"time"

	"meetsync/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Monday, March 9 2026.
var monday = time.Date(2026, 3, 9, 15, 30, 0, 0, time.UTC)

func mar(d int) time.Time {
	return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDatePhrase(t *testing.T) {
	cases := []struct {
		text string
		want time.Time
	}{
		{"let's meet tomorrow", mar(10)},
		{"the day after tomorrow works", mar(11)},
		{"today if possible", mar(9)},
		{"on 2026-03-20", mar(20)},
		{"sometime next week", mar(16)},
		{"early next week", mar(17)},
		{"late next week", mar(19)},
		{"this friday", mar(13)},
		{"next friday", mar(20)},
		{"friday", mar(13)},
		{"monday", mar(16)}, // same weekday rolls to next week
		{"in 3 days", mar(12)},
		{"5 days from now", mar(14)},
	}
	for _, tc := range cases {
		got, ok := ParseDatePhrase(tc.text, monday)
		require.True(t, ok, "text: %q", tc.text)
		assert.Equal(t, tc.want, got, "text: %q", tc.text)
	}
}

func TestParseDatePhraseNoMatch(t *testing.T) {
	for _, text := range []string{"a meeting with sam", "30 minutes", ""} {
		_, ok := ParseDatePhrase(text, monday)
		assert.False(t, ok, "text: %q", text)
	}
}

func TestTimeRangeForPhrase(t *testing.T) {
	cases := []struct {
		text string
		want models.TimeRange
		ok   bool
	}{
		{"tomorrow morning", models.TimeRange{StartMin: 540, EndMin: 720}, true},
		{"around lunch", models.TimeRange{StartMin: 720, EndMin: 840}, true},
		{"in the afternoon", models.TimeRange{StartMin: 720, EndMin: 1080}, true},
		{"early evening", models.TimeRange{StartMin: 960, EndMin: 1080}, true},
		{"end of day", models.TimeRange{StartMin: 960, EndMin: 1080}, true},
		{"whenever", models.TimeRange{}, false},
	}
	for _, tc := range cases {
		got, ok := TimeRangeForPhrase(tc.text)
		assert.Equal(t, tc.ok, ok, "text: %q", tc.text)
		if tc.ok {
			assert.Equal(t, tc.want, got, "text: %q", tc.text)
		}
	}
}
