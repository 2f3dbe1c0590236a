package notify

import "time"

// InQuietHours reports whether now falls inside the [start, end] quiet-hours
// window given as 24-hour "HH:MM" strings. A missing bound means never
// suppress, as does a malformed one: a broken preference must not silently
// block delivery.
func InQuietHours(start, end string, now time.Time) bool {
	if start == "" || end == "" {
		return false
	}

	startT, err := time.Parse("15:04", start)
	if err != nil {
		return false
	}
	endT, err := time.Parse("15:04", end)
	if err != nil {
		return false
	}

	startMin := startT.Hour()*60 + startT.Minute()
	endMin := endT.Hour()*60 + endT.Minute()
	nowMin := now.Hour()*60 + now.Minute()

	if startMin <= endMin {
		return startMin <= nowMin && nowMin <= endMin
	}
	// Window spans midnight.
	return nowMin >= startMin || nowMin <= endMin
}
