// Package analytics computes rolled-up click summaries per alias, topic,
// or owner. Rollups are derived data: always recomputable from the click
// and link records, cached only as a performance optimization.
package analytics

import (
	"sort"
	"time"

	"github.com/linklytics/linklytics/internal/click"
	"github.com/linklytics/linklytics/internal/shortlink"
)

// timeSeriesDays is the length of the clicksByDate series: the trailing
// UTC days ending today, zero-filled, oldest first.
const timeSeriesDays = 7

// DateCount is one day's click count in a rollup time series.
type DateCount struct {
	Date  string `json:"date"` // YYYY-MM-DD, UTC day boundary
	Count int    `json:"count"`
}

// CategoryStat is a per-category breakdown entry. UniqueVisitors counts
// distinct client addresses within the category, not raw events.
type CategoryStat struct {
	Name           string `json:"name"`
	Clicks         int    `json:"clicks"`
	UniqueVisitors int    `json:"uniqueVisitors"`
}

// LinkStat is a per-alias entry in a topic- or owner-scoped rollup.
type LinkStat struct {
	Alias          string `json:"alias"`
	ShortURL       string `json:"shortUrl"`
	TotalClicks    int    `json:"totalClicks"`
	UniqueVisitors int    `json:"uniqueVisitors"`
}

// AliasRollup is the summary for a single alias.
type AliasRollup struct {
	TotalClicks     int            `json:"totalClicks"`
	UniqueVisitors  int            `json:"uniqueVisitors"`
	ClicksByDate    []DateCount    `json:"clicksByDate"`
	OSBreakdown     []CategoryStat `json:"osType"`
	DeviceBreakdown []CategoryStat `json:"deviceType"`
}

// TopicRollup is the summary for all aliases sharing a topic.
type TopicRollup struct {
	TotalClicks    int         `json:"totalClicks"`
	UniqueVisitors int         `json:"uniqueVisitors"`
	ClicksByDate   []DateCount `json:"clicksByDate"`
	URLs           []LinkStat  `json:"urls"`
}

// OwnerRollup is the summary across every alias an owner has created.
type OwnerRollup struct {
	TotalURLs       int            `json:"totalUrls"`
	TotalClicks     int            `json:"totalClicks"`
	UniqueVisitors  int            `json:"uniqueVisitors"`
	ClicksByDate    []DateCount    `json:"clicksByDate"`
	OSBreakdown     []CategoryStat `json:"osType"`
	DeviceBreakdown []CategoryStat `json:"deviceType"`
	URLs            []LinkStat     `json:"urls"`
}

func computeAliasRollup(events []click.Event, today time.Time) AliasRollup {
	return AliasRollup{
		TotalClicks:     len(events),
		UniqueVisitors:  uniqueVisitors(events),
		ClicksByDate:    clicksByDate(events, today),
		OSBreakdown:     breakdown(events, func(e click.Event) string { return e.OSType }),
		DeviceBreakdown: breakdown(events, func(e click.Event) string { return e.DeviceType }),
	}
}

func computeTopicRollup(links []shortlink.ShortLink, events []click.Event, baseURL string, today time.Time) TopicRollup {
	return TopicRollup{
		TotalClicks:    len(events),
		UniqueVisitors: uniqueVisitors(events),
		ClicksByDate:   clicksByDate(events, today),
		URLs:           linkStats(links, events, baseURL),
	}
}

func computeOwnerRollup(links []shortlink.ShortLink, events []click.Event, baseURL string, today time.Time) OwnerRollup {
	return OwnerRollup{
		TotalURLs:       len(links),
		TotalClicks:     len(events),
		UniqueVisitors:  uniqueVisitors(events),
		ClicksByDate:    clicksByDate(events, today),
		OSBreakdown:     breakdown(events, func(e click.Event) string { return e.OSType }),
		DeviceBreakdown: breakdown(events, func(e click.Event) string { return e.DeviceType }),
		URLs:            linkStats(links, events, baseURL),
	}
}

// uniqueVisitors counts distinct client addresses across the events.
func uniqueVisitors(events []click.Event) int {
	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		seen[e.ClientAddress] = struct{}{}
	}
	return len(seen)
}

// clicksByDate buckets events by UTC calendar day over the trailing
// window ending at today. Days without events are zero-filled; events
// outside the window are excluded from the series but still count toward
// totals elsewhere.
func clicksByDate(events []click.Event, today time.Time) []DateCount {
	today = today.UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -(timeSeriesDays - 1))

	counts := make(map[string]int, timeSeriesDays)
	for _, e := range events {
		day := e.Timestamp.UTC().Truncate(24 * time.Hour)
		if day.Before(start) || day.After(today) {
			continue
		}
		counts[day.Format(time.DateOnly)]++
	}

	series := make([]DateCount, 0, timeSeriesDays)
	for i := range timeSeriesDays {
		date := start.AddDate(0, 0, i).Format(time.DateOnly)
		series = append(series, DateCount{Date: date, Count: counts[date]})
	}
	return series
}

// breakdown groups events by a category key and reports raw clicks plus
// distinct client addresses per category, sorted by category name so the
// output is deterministic.
func breakdown(events []click.Event, key func(click.Event) string) []CategoryStat {
	type group struct {
		clicks   int
		visitors map[string]struct{}
	}

	groups := make(map[string]*group)
	for _, e := range events {
		name := key(e)
		g, ok := groups[name]
		if !ok {
			g = &group{visitors: make(map[string]struct{})}
			groups[name] = g
		}
		g.clicks++
		g.visitors[e.ClientAddress] = struct{}{}
	}

	stats := make([]CategoryStat, 0, len(groups))
	for name, g := range groups {
		stats = append(stats, CategoryStat{
			Name:           name,
			Clicks:         g.clicks,
			UniqueVisitors: len(g.visitors),
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

// linkStats computes per-alias totals, keeping zero-click links so a
// freshly created alias shows up in aggregate views. Sorted by alias.
func linkStats(links []shortlink.ShortLink, events []click.Event, baseURL string) []LinkStat {
	byAlias := make(map[string][]click.Event)
	for _, e := range events {
		byAlias[e.Alias] = append(byAlias[e.Alias], e)
	}

	stats := make([]LinkStat, 0, len(links))
	for _, link := range links {
		aliasEvents := byAlias[link.Alias]
		stats = append(stats, LinkStat{
			Alias:          link.Alias,
			ShortURL:       baseURL + "/" + link.Alias,
			TotalClicks:    len(aliasEvents),
			UniqueVisitors: uniqueVisitors(aliasEvents),
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Alias < stats[j].Alias })
	return stats
}
