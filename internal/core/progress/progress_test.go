package progress

import "testing"

func TestPercent(t *testing.T) {
	cases := []struct {
		name     string
		watched  int
		duration int
		want     int
	}{
		{"zero duration", 100, 0, 0},
		{"halfway", 300, 600, 50},
		{"complete", 600, 600, 100},
		{"overshoot capped", 700, 600, 100},
		{"nothing watched", 0, 600, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := Progress{VideoProgress: tc.watched}
			if got := p.Percent(tc.duration); got != tc.want {
				t.Fatalf("Percent = %d, want %d", got, tc.want)
			}
		})
	}
}
