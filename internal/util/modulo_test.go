package util

import "testing"

func TestPositiveMod(t *testing.T) {
	cases := []struct {
		x, d, want int
	}{
		{5, 3, 2},
		{-5, 3, 1},
		{0, 3, 0},
		{-1, 5, 4},
	}
	for _, tc := range cases {
		got := PositiveMod(tc.x, tc.d)
		if got != tc.want {
			t.Errorf("PositiveMod(%d, %d) = %d, want %d", tc.x, tc.d, got, tc.want)
		}
	}
}
