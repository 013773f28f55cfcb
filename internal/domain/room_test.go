package domain

import "testing"

func TestClampMaxUsers(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{0, DefaultRoomUsers},
		{-5, DefaultRoomUsers},
		{1, MinRoomUsers},
		{2, 2},
		{10, 10},
		{50, 50},
		{51, MaxRoomUsers},
		{1000, MaxRoomUsers},
	}
	for _, c := range cases {
		if got := ClampMaxUsers(c.in); got != c.want {
			t.Errorf("ClampMaxUsers(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}
