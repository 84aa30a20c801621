// Package analytics aggregates the recorded page view and event log into reports.
// Everything here is pure: inputs are never mutated and nothing is persisted.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/aimd54/engagement-engine/internal/models"
)

// DefaultTopN bounds the ranked lists of a report.
const DefaultTopN = 10

// PageCount is one entry of the top pages ranking.
type PageCount struct {
	Page  string `json:"page"`
	Views int    `json:"views"`
}

// SourceShare is one traffic source with its share of page views.
type SourceShare struct {
	Source     string  `json:"source"`
	Visitors   int     `json:"visitors"`
	Percentage float64 `json:"percentage"`
}

// DeviceShare is one device type with its share of page views.
type DeviceShare struct {
	Device     string  `json:"device"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// FlowStep counts a page-to-page transition within sessions.
type FlowStep struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
}

// Report is the derived statistical summary of the record log.
// AvgSessionDuration is in seconds; rates are percentages with one decimal.
type Report struct {
	Period             string        `json:"period"`
	GeneratedAt        time.Time     `json:"generatedAt"`
	UniqueVisitors     int           `json:"uniqueVisitors"`
	PageViews          int           `json:"pageViews"`
	Sessions           int           `json:"sessions"`
	AvgSessionDuration float64       `json:"avgSessionDuration"`
	BounceRate         float64       `json:"bounceRate"`
	ConversionRate     float64       `json:"conversionRate"`
	TopPages           []PageCount   `json:"topPages"`
	TrafficSources     []SourceShare `json:"trafficSources"`
	DeviceBreakdown    []DeviceShare `json:"deviceBreakdown"`
	UserFlow           []FlowStep    `json:"userFlow"`
}

// Aggregator generates reports. The zero value uses DefaultTopN and time.Now.
type Aggregator struct {
	TopN int
	Now  func() time.Time
}

// GenerateReport builds a report with default settings.
func GenerateReport(records []models.AnalyticsRecord, period string) Report {
	return Aggregator{}.Generate(records, period)
}

// Generate builds a report from records. Records with an unknown endpoint are ignored;
// page views without a session id count toward page-level metrics only.
func (a Aggregator) Generate(records []models.AnalyticsRecord, period string) Report {
	topN := a.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}

	var pageViews, events []models.AnalyticsRecord
	for _, r := range records {
		switch r.Endpoint {
		case models.EndpointPageView:
			pageViews = append(pageViews, r)
		case models.EndpointEvent:
			events = append(events, r)
		}
	}

	sessions := groupSessions(pageViews)

	report := Report{
		Period:          period,
		GeneratedAt:     now(),
		UniqueVisitors:  len(sessions),
		PageViews:       len(pageViews),
		Sessions:        len(sessions),
		TopPages:        topPages(pageViews, topN),
		TrafficSources:  trafficSources(pageViews),
		DeviceBreakdown: deviceBreakdown(pageViews),
		UserFlow:        userFlow(sessions, topN),
	}

	var durationTotal float64
	var multiPage, bounces int
	for _, s := range sessions {
		if len(s.views) == 1 {
			bounces++
			continue
		}
		first := s.views[0].ClientTimestamp
		last := s.views[len(s.views)-1].ClientTimestamp
		durationTotal += float64(last-first) / 1000
		multiPage++
	}
	if multiPage > 0 {
		report.AvgSessionDuration = durationTotal / float64(multiPage)
	}
	report.BounceRate = percentage(bounces, len(sessions))

	conversions := 0
	for _, e := range events {
		if ClassifyEvent(e.EventCategory, e.EventAction).IsConversion() {
			conversions++
		}
	}
	report.ConversionRate = percentage(conversions, report.UniqueVisitors)

	return report
}

type session struct {
	id    string
	views []models.AnalyticsRecord
}

// groupSessions groups page views by session id in order of first appearance, each
// session's views sorted by client timestamp.
func groupSessions(pageViews []models.AnalyticsRecord) []*session {
	index := make(map[string]*session)
	var out []*session
	for _, pv := range pageViews {
		if pv.SessionID == "" {
			continue
		}
		s, ok := index[pv.SessionID]
		if !ok {
			s = &session{id: pv.SessionID}
			index[pv.SessionID] = s
			out = append(out, s)
		}
		s.views = append(s.views, pv)
	}
	for _, s := range out {
		sort.SliceStable(s.views, func(i, j int) bool {
			return s.views[i].ClientTimestamp < s.views[j].ClientTimestamp
		})
	}
	return out
}

// counter counts string keys and remembers first-seen order for stable ranking.
type counter struct {
	order  []string
	counts map[string]int
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(key string) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

// ranked returns keys by count descending, ties in first-seen order.
func (c *counter) ranked() []string {
	keys := append([]string(nil), c.order...)
	sort.SliceStable(keys, func(i, j int) bool {
		return c.counts[keys[i]] > c.counts[keys[j]]
	})
	return keys
}

func topPages(pageViews []models.AnalyticsRecord, n int) []PageCount {
	c := newCounter()
	for _, pv := range pageViews {
		if pv.Page == "" {
			continue
		}
		c.add(pv.Page)
	}

	out := make([]PageCount, 0, n)
	for _, page := range c.ranked() {
		if len(out) == n {
			break
		}
		out = append(out, PageCount{Page: page, Views: c.counts[page]})
	}
	return out
}

func trafficSources(pageViews []models.AnalyticsRecord) []SourceShare {
	c := newCounter()
	for _, pv := range pageViews {
		c.add(ClassifyReferrer(pv.Referrer))
	}

	out := make([]SourceShare, 0, len(c.order))
	for _, source := range c.ranked() {
		out = append(out, SourceShare{
			Source:     source,
			Visitors:   c.counts[source],
			Percentage: percentage(c.counts[source], len(pageViews)),
		})
	}
	return out
}

func deviceBreakdown(pageViews []models.AnalyticsRecord) []DeviceShare {
	c := newCounter()
	for _, pv := range pageViews {
		c.add(CapitalizeDevice(pv.DeviceType))
	}

	out := make([]DeviceShare, 0, len(c.order))
	for _, device := range c.ranked() {
		out = append(out, DeviceShare{
			Device:     device,
			Count:      c.counts[device],
			Percentage: percentage(c.counts[device], len(pageViews)),
		})
	}
	return out
}

func userFlow(sessions []*session, n int) []FlowStep {
	type edge struct{ from, to string }

	var order []edge
	counts := make(map[edge]int)
	for _, s := range sessions {
		for i := 1; i < len(s.views); i++ {
			e := edge{from: s.views[i-1].Page, to: s.views[i].Page}
			if _, ok := counts[e]; !ok {
				order = append(order, e)
			}
			counts[e]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	out := make([]FlowStep, 0, n)
	for _, e := range order {
		if len(out) == n {
			break
		}
		out = append(out, FlowStep{From: e.from, To: e.to, Count: counts[e]})
	}
	return out
}

// percentage returns part/total*100 rounded to one decimal, or 0 when total is 0.
func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(part) / float64(total) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
