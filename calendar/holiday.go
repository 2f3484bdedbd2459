// Package calendar marks holidays that fall inside a forecast view so the accuracy chart can call
// out dates where a model is expected to struggle.
package calendar

import (
	"sort"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

// Mark is an observed holiday on a calendar date.
type Mark struct {
	Name string    `json:"name"`
	Date time.Time `json:"date"`
}

// Holidays returns the US federal holidays marked by default.
func Holidays() []*cal.Holiday {
	return []*cal.Holiday{
		us.NewYear,
		us.MlkDay,
		us.PresidentsDay,
		us.MemorialDay,
		us.Juneteenth,
		us.IndependenceDay,
		us.LaborDay,
		us.ColumbusDay,
		us.VeteransDay,
		us.ThanksgivingDay,
		us.ChristmasDay,
	}
}

// Holiday returns the observed dates of hol between start and end inclusive as UTC midnights.
func Holiday(hol *cal.Holiday, start, end time.Time) []Mark {
	var marks []Mark
	for i := start.Year(); i <= end.Year(); i++ {
		_, observed := hol.Calc(i)
		if observed.IsZero() {
			continue
		}
		y, m, d := observed.Date()
		date := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		if date.Before(start) || date.After(end) {
			continue
		}
		marks = append(marks, Mark{
			Name: strings.ReplaceAll(hol.Name, " ", "_"),
			Date: date,
		})
	}
	return marks
}

// Annotate returns the holidays observed on any of the given dates, sorted by date. The dates are
// expected to be truncated to UTC midnight.
func Annotate(t []time.Time, holidays ...*cal.Holiday) []Mark {
	if len(t) == 0 {
		return nil
	}
	if len(holidays) == 0 {
		holidays = Holidays()
	}

	days := make(map[time.Time]struct{}, len(t))
	start, end := t[0], t[0]
	for _, tPnt := range t {
		days[tPnt] = struct{}{}
		if tPnt.Before(start) {
			start = tPnt
		}
		if tPnt.After(end) {
			end = tPnt
		}
	}

	var marks []Mark
	for _, hol := range holidays {
		for _, mark := range Holiday(hol, start, end) {
			if _, exists := days[mark.Date]; exists {
				marks = append(marks, mark)
			}
		}
	}
	sort.SliceStable(marks, func(i, j int) bool {
		return marks[i].Date.Before(marks[j].Date)
	})
	return marks
}
