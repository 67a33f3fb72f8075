package window

import (
	"testing"
	"time"
)

func at(hour int) time.Time {
	return time.Date(2024, 1, 10, hour, 30, 0, 0, time.UTC)
}

func TestIsOpenWrapping(t *testing.T) {
	w := Window{StartHour: 7, EndHour: 1}
	for h := 0; h < 24; h++ {
		want := h >= 7 || h <= 1
		if got := IsOpen(at(h), w); got != want {
			t.Errorf("IsOpen(%02d:30, 7-1) = %v, want %v", h, got, want)
		}
	}
	for h := 2; h <= 6; h++ {
		if IsOpen(at(h), w) {
			t.Errorf("hour %d should be in quiet hours", h)
		}
	}
}

func TestIsOpenNonWrapping(t *testing.T) {
	w := Window{StartHour: 9, EndHour: 18}
	tests := []struct {
		hour int
		want bool
	}{
		{8, false},
		{9, true},
		{12, true},
		{18, true},
		{19, false},
		{0, false},
	}
	for _, tt := range tests {
		if got := IsOpen(at(tt.hour), w); got != tt.want {
			t.Errorf("IsOpen(%d, 9-18) = %v, want %v", tt.hour, got, tt.want)
		}
	}
}

func TestIsOpenSingleHour(t *testing.T) {
	w := Window{StartHour: 5, EndHour: 5}
	if !IsOpen(at(5), w) {
		t.Error("expected hour 5 open")
	}
	if IsOpen(at(6), w) || IsOpen(at(4), w) {
		t.Error("expected only hour 5 open")
	}
}

func TestIsOpenUsesLocation(t *testing.T) {
	kst := time.FixedZone("KST", 9*60*60)
	// 18:00 UTC is 03:00 KST next day
	now := time.Date(2024, 1, 9, 18, 0, 0, 0, time.UTC).In(kst)
	if IsOpen(now, Window{StartHour: 7, EndHour: 1}) {
		t.Error("03:00 KST should be closed")
	}
}

func TestString(t *testing.T) {
	if got := (Window{StartHour: 7, EndHour: 1}).String(); got != "07:00-01:59" {
		t.Errorf("String = %q", got)
	}
}
