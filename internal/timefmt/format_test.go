package timefmt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	now := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		v := now.Add(d)
		return &v
	}

	tests := []struct {
		name string
		t    *time.Time
		want string
	}{
		{"Nil", nil, ""},
		{"SameDay", at(-2 * time.Hour), "12:30"},
		{"SameDayMidnight", at(-14*time.Hour - 30*time.Minute), "00:00"},
		{"ExactlyOneDay", at(-24 * time.Hour), "Yesterday"},
		{"OneAndAHalfDays", at(-36 * time.Hour), "Yesterday"},
		{"ThreeDays", at(-72 * time.Hour), "12/03/2024"},
		{"PreviousDayUnderADay", at(-15 * time.Hour), "14/03/2024"},
		{"PreviousYear", at(-400 * 24 * time.Hour), "09/02/2023"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.t, now))
		})
	}
}

func TestFormatUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	now := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)
	// 08:05 local on the 16th is 22:05 UTC on the 15th.
	local := time.Date(2024, 3, 16, 8, 5, 0, 0, loc)

	assert.Equal(t, "22:05", Format(&local, now))
}

func TestClock24(t *testing.T) {
	assert.Equal(t, "09:07", Clock24(time.Date(2024, 1, 2, 9, 7, 59, 0, time.UTC)))
}
