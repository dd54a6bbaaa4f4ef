package courses

import (
	"testing"
	"time"
)

func TestScheduleOpen(t *testing.T) {
	now := time.Unix(1700000000, 0)

	cases := []struct {
		name          string
		availableFrom time.Time
		want          bool
	}{
		{"opened in the past", now.Add(-time.Hour), true},
		{"opens exactly now", now, true},
		{"opens in the future", now.Add(time.Minute), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sched := Schedule{AvailableFrom: tc.availableFrom}
			if got := sched.Open(now); got != tc.want {
				t.Fatalf("Open = %v, want %v", got, tc.want)
			}
		})
	}
}
