package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchedule_IsOpen(t *testing.T) {
	start := time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.March, 15, 17, 0, 0, 0, time.UTC)
	s := Schedule{StartDate: start, EndDate: end}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{name: "before start", now: start.Add(-time.Second), want: false},
		{name: "at start", now: start, want: true},
		{name: "within", now: start.Add(72 * time.Hour), want: true},
		{name: "at end", now: end, want: true},
		{name: "after end", now: end.Add(time.Second), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.IsOpen(tt.now))
		})
	}
}

func TestNewStatus(t *testing.T) {
	start := time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.March, 15, 17, 0, 0, 0, time.UTC)
	s := &Schedule{StartDate: start, EndDate: end}

	tests := []struct {
		name     string
		schedule *Schedule
		now      time.Time
		wantOpen bool
		wantMsg  string
	}{
		{name: "not set", now: start, wantMsg: "The evaluation schedule has not been set."},
		{name: "upcoming", schedule: s, now: start.Add(-time.Hour), wantMsg: "Evaluations open on Mar 1, 2024 08:00 UTC."},
		{name: "open", schedule: s, now: start.Add(time.Hour), wantOpen: true, wantMsg: "Evaluations are open until Mar 15, 2024 17:00 UTC."},
		{name: "ended", schedule: s, now: end.Add(time.Hour), wantMsg: "The evaluation period ended on Mar 15, 2024 17:00 UTC."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewStatus(tt.schedule, tt.now)
			assert.Equal(t, tt.wantOpen, got.IsOpen)
			assert.Equal(t, tt.wantMsg, got.Message)
			if tt.schedule == nil {
				assert.Nil(t, got.StartDate)
				assert.Nil(t, got.EndDate)
			} else {
				assert.Equal(t, start, *got.StartDate)
				assert.Equal(t, end, *got.EndDate)
			}
		})
	}
}
