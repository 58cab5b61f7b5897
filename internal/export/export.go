// Package export renders the request listing as CSV or Markdown.
// JSON export is a pass-through marshal handled by the HTTP layer.
package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tripcast/weather-advisor/internal/store"
)

// csvHeaders is the fixed CSV column set. JSON-valued fields are excluded.
var csvHeaders = []string{"id", "locationRaw", "locationName", "lat", "lon", "startDate", "endDate", "createdAt"}

// CSV renders one header line plus one line per record. Values containing a
// comma, quote or newline are wrapped in double quotes with inner quotes
// doubled.
func CSV(items []store.WeatherRequest) string {
	lines := make([]string, 0, len(items)+1)
	lines = append(lines, strings.Join(csvHeaders, ","))

	for _, it := range items {
		fields := []string{
			it.ID,
			it.LocationRaw,
			it.LocationName,
			strconv.FormatFloat(it.Lat, 'f', -1, 64),
			strconv.FormatFloat(it.Lon, 'f', -1, 64),
			it.StartDate,
			it.EndDate,
			it.CreatedAt.UTC().Format(time.RFC3339),
		}
		for i, f := range fields {
			fields[i] = escapeCSV(f)
		}
		lines = append(lines, strings.Join(fields, ","))
	}
	return strings.Join(lines, "\n")
}

func escapeCSV(v string) string {
	if !strings.ContainsAny(v, ",\"\n") {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

// Markdown renders one heading per record with its id, date range, coordinates
// and advice when present.
func Markdown(items []store.WeatherRequest) string {
	lines := []string{"# Weather Requests", ""}
	for _, it := range items {
		title := it.LocationName
		if title == "" {
			title = it.LocationRaw
		}
		lines = append(lines,
			"## "+title,
			"- id: "+it.ID,
			fmt.Sprintf("- range: %s ~ %s", it.StartDate, it.EndDate),
			fmt.Sprintf("- lat/lon: %g, %g", it.Lat, it.Lon),
		)
		if it.AIAdvice != nil && *it.AIAdvice != "" {
			lines = append(lines, "- aiAdvice: "+*it.AIAdvice)
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
