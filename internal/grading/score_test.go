package grading

import "testing"

func TestPercentage(t *testing.T) {
	tests := []struct {
		score, total int
		want         float64
	}{
		{3, 7, 42.86},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{1, 8, 12.5},
		{1, 800, 0.13}, // exactly 0.125: half rounds up
		{0, 5, 0},
		{5, 5, 100},
		{0, 0, 0},
	}
	for _, tc := range tests {
		if got := Percentage(tc.score, tc.total); got != tc.want {
			t.Fatalf("Percentage(%d, %d) = %v, want %v", tc.score, tc.total, got, tc.want)
		}
	}
}
