package core

import (
	"fmt"
	"time"
)

// MinYear is the earliest year a transaction or window may fall in.
const MinYear = 1970

// MonthWindow selects every transaction dated within one calendar month (UTC).
type MonthWindow struct {
	Year  int
	Month time.Month
}

// MonthFromIndex builds a window from a zero-based month index (0 = January).
func MonthFromIndex(index, year int) (MonthWindow, error) {
	if index < 0 || index > 11 {
		return MonthWindow{}, fmt.Errorf("month index %d out of range", index)
	}
	return MonthWindow{Year: year, Month: time.Month(index + 1)}, nil
}

// MonthOf returns the window containing t.
func MonthOf(t time.Time) MonthWindow {
	t = t.UTC()
	return MonthWindow{Year: t.Year(), Month: t.Month()}
}

func (w MonthWindow) Validate() error {
	if w.Month < time.January || w.Month > time.December {
		return fmt.Errorf("invalid month %d", w.Month)
	}
	if w.Year < MinYear || w.Year > 9999 {
		return fmt.Errorf("invalid year %d", w.Year)
	}
	return nil
}

// Bounds returns the [start, end) range of the window in epoch seconds.
func (w MonthWindow) Bounds() (start, end int64) {
	first := time.Date(w.Year, w.Month, 1, 0, 0, 0, 0, time.UTC)
	return first.Unix(), first.AddDate(0, 1, 0).Unix()
}

// Contains reports whether an epoch date falls in the window's month and year.
func (w MonthWindow) Contains(date int64) bool {
	t := time.Unix(date, 0).UTC()
	return t.Year() == w.Year && t.Month() == w.Month
}

// HasPrev reports whether the previous month is still a valid window.
func (w MonthWindow) HasPrev() bool {
	return w.Year > MinYear || (w.Year == MinYear && w.Month > time.January)
}

func (w MonthWindow) Prev() MonthWindow {
	return MonthOf(time.Date(w.Year, w.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0))
}

func (w MonthWindow) Next() MonthWindow {
	return MonthOf(time.Date(w.Year, w.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0))
}

// Key is a stable cache key such as "2024-03".
func (w MonthWindow) Key() string {
	return fmt.Sprintf("%04d-%02d", w.Year, int(w.Month))
}

func (w MonthWindow) String() string {
	return fmt.Sprintf("%s %d", w.Month, w.Year)
}
