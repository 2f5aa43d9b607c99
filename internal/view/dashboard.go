package view

import "fintrack/internal/core"

// Bar is one category total in the dashboard chart, either its income or
// its expenses. Width is a percentage of the largest total.
type Bar struct {
	Name   string
	Kind   string
	Amount string
	Width  int
}

type Dashboard struct {
	Year       int
	Month      int
	Title      string
	Income     string
	Expenses   string
	NetSavings string
	Negative   bool
	Count      int
	Bars       []Bar
	HasPrev    bool
	Prev       core.MonthWindow
	Next       core.MonthWindow
}

func NewDashboard(s core.Summary, w core.MonthWindow) Dashboard {
	d := Dashboard{
		Year:       w.Year,
		Month:      int(w.Month),
		Title:      w.String(),
		Income:     FormatAmount(s.Income),
		Expenses:   FormatAmount(s.Expenses),
		NetSavings: FormatAmount(s.NetSavings),
		Negative:   s.NetSavings.Cents < 0,
		Count:      s.Count,
		HasPrev:    w.HasPrev(),
		Prev:       w.Prev(),
		Next:       w.Next(),
	}

	var maxCents int64
	for _, c := range s.ByCategory {
		if c.Amount.Cents > maxCents {
			maxCents = c.Amount.Cents
		}
	}
	for _, c := range s.ByCategory {
		d.Bars = append(d.Bars, Bar{
			Name:   Capitalize(string(c.Category)),
			Kind:   string(c.Type),
			Amount: FormatAmount(c.Amount),
			Width:  barWidth(c.Amount.Cents, maxCents),
		})
	}
	return d
}

// barWidth is a rounded percentage, at least 2 so small values stay visible.
func barWidth(cents, maxCents int64) int {
	if maxCents <= 0 || cents <= 0 {
		return 0
	}
	width := int((cents*100 + maxCents/2) / maxCents)
	if width < 2 {
		width = 2
	}
	if width > 100 {
		width = 100
	}
	return width
}
