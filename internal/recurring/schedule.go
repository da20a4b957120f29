package recurring

import "time"

// NextAfter advances a date by exactly one frequency step. Calendar
// steps clamp the day to the target month's last valid day, so Jan 31
// plus one month lands on Feb 28 (29 in leap years).
func NextAfter(from time.Time, freq Frequency) time.Time {
	switch freq {
	case Weekly:
		return from.AddDate(0, 0, 7)
	case Quarterly:
		return addMonthsClamped(from, 3)
	case Yearly:
		return addMonthsClamped(from, 12)
	default:
		return addMonthsClamped(from, 1)
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	firstOfTarget := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
