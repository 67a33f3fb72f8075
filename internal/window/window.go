// Package window decides whether the current hour falls inside the operating window.
package window

import (
	"fmt"
	"time"
)

// Window is an inclusive range of hours-of-day. When StartHour > EndHour the
// range wraps past midnight, e.g. {7, 1} covers 07:00 through 01:59.
type Window struct {
	StartHour int
	EndHour   int
}

// Wraps reports whether the window crosses midnight.
func (w Window) Wraps() bool {
	return w.StartHour > w.EndHour
}

// IsOpen reports whether now's hour, in now's own location, is inside w.
func IsOpen(now time.Time, w Window) bool {
	h := now.Hour()
	if w.Wraps() {
		return h >= w.StartHour || h <= w.EndHour
	}
	return h >= w.StartHour && h <= w.EndHour
}

func (w Window) String() string {
	return fmt.Sprintf("%02d:00-%02d:59", w.StartHour, w.EndHour)
}
