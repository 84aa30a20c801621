package analytics

import (
	"strconv"
	"strings"
)

// ExportToCSV flattens a report into comma-separated rows: a Metric,Value block followed
// by one section per ranked list. Values are not quoted, so a page name containing a
// comma shifts its row.
func ExportToCSV(r Report) string {
	rows := [][]string{
		{"Metric", "Value"},
		{"Period", r.Period},
		{"Unique Visitors", strconv.Itoa(r.UniqueVisitors)},
		{"Page Views", strconv.Itoa(r.PageViews)},
		{"Sessions", strconv.Itoa(r.Sessions)},
		{"Avg Session Duration (s)", formatFloat(r.AvgSessionDuration)},
		{"Bounce Rate", formatFloat(r.BounceRate) + "%"},
		{"Conversion Rate", formatFloat(r.ConversionRate) + "%"},
		{},
		{"Top Pages"},
		{"Page", "Views"},
	}
	for _, p := range r.TopPages {
		rows = append(rows, []string{p.Page, strconv.Itoa(p.Views)})
	}

	rows = append(rows, []string{}, []string{"Traffic Sources"}, []string{"Source", "Visitors", "Percentage"})
	for _, s := range r.TrafficSources {
		rows = append(rows, []string{s.Source, strconv.Itoa(s.Visitors), formatFloat(s.Percentage) + "%"})
	}

	rows = append(rows, []string{}, []string{"Device Breakdown"}, []string{"Device", "Count", "Percentage"})
	for _, d := range r.DeviceBreakdown {
		rows = append(rows, []string{d.Device, strconv.Itoa(d.Count), formatFloat(d.Percentage) + "%"})
	}

	rows = append(rows, []string{}, []string{"User Flow"}, []string{"From", "To", "Count"})
	for _, f := range r.UserFlow {
		rows = append(rows, []string{f.From, f.To, strconv.Itoa(f.Count)})
	}

	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = strings.Join(row, ",")
	}
	return strings.Join(lines, "\n") + "\n"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
