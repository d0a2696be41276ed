package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartOfDay(t *testing.T) {
	in := time.Date(2024, 3, 14, 17, 45, 3, 99, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), StartOfDay(in))
}

func TestPreviousWeek(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
	}{
		{"monday midnight", time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC)},
		{"wednesday", time.Date(2024, 3, 20, 13, 0, 0, 0, time.UTC)},
		{"sunday night", time.Date(2024, 3, 24, 23, 59, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := PreviousWeek(tt.now)
			assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), start)
			assert.Equal(t, time.Monday, start.Weekday())
			assert.Equal(t, time.Sunday, end.Weekday())
			assert.Equal(t, time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC), end.Add(time.Nanosecond))
		})
	}
}
