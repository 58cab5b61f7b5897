// Package forecast collapses 3-hour forecast samples into daily summaries.
package forecast

import (
	"sort"
	"time"
)

const dayFormat = "2006-01-02"

// Sample is one 3-hour-step observation from the forecast provider.
// Temp is nil when the provider omitted a numeric temperature.
type Sample struct {
	Time        time.Time
	Temp        *float64
	Icon        *string
	Description *string
}

// Day is the per-calendar-day summary returned to clients.
// Min/Max are nil when no sample that day carried a numeric temperature.
type Day struct {
	Day         string   `json:"day"`
	Min         *float64 `json:"min"`
	Max         *float64 `json:"max"`
	Icon        *string  `json:"icon"`
	Description *string  `json:"description"`
}

// AggregateDaily groups samples by UTC calendar date, computes min/max over the
// numeric temperatures of each day, and keeps only days inside the inclusive
// [startDate, endDate] range. Icon and description come from the first sample
// of the day, not an aggregate. Dates are "YYYY-MM-DD" strings, so string
// comparison orders them chronologically.
func AggregateDaily(samples []Sample, startDate, endDate string) []Day {
	byDay := make(map[string][]Sample)
	for _, s := range samples {
		key := s.Time.UTC().Format(dayFormat)
		byDay[key] = append(byDay[key], s)
	}

	days := make([]Day, 0, len(byDay))
	for key, group := range byDay {
		if key < startDate || key > endDate {
			continue
		}

		d := Day{
			Day:         key,
			Icon:        group[0].Icon,
			Description: group[0].Description,
		}
		for _, s := range group {
			if s.Temp == nil {
				continue
			}
			if d.Min == nil || *s.Temp < *d.Min {
				v := *s.Temp
				d.Min = &v
			}
			if d.Max == nil || *s.Temp > *d.Max {
				v := *s.Temp
				d.Max = &v
			}
		}
		days = append(days, d)
	}

	sort.Slice(days, func(i, j int) bool { return days[i].Day < days[j].Day })
	return days
}
