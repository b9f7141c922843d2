package analytics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Summary is the pre-aggregated view of a report that seeds the model
// prompt.
type Summary struct {
	TotalSessions      int
	TotalUsers         int
	AvgSessionDuration float64
	TopTrafficSources  []TrafficSource
}

// TrafficSource is a source/medium pair with its summed session count.
type TrafficSource struct {
	Source   string
	Sessions int
}

// Summarize aggregates the merged table: total sessions, total users,
// average session duration and the top three traffic sources by summed
// sessions (ties keep first-seen order). Values arrive as strings;
// anything missing or non-numeric is skipped, never fatal.
func Summarize(report *Report) Summary {
	s := Summary{}
	if report == nil || len(report.Rows) == 0 {
		return s
	}

	sessionsIdx := indexOf(report.MetricHeaders, "sessions")
	usersIdx := indexOf(report.MetricHeaders, "totalUsers")
	durationIdx := indexOf(report.MetricHeaders, "averageSessionDuration")
	sourceIdx := indexOf(report.DimensionHeaders, "sessionSourceMedium")

	var durationSum float64
	sourceTotals := map[string]int{}
	var sourceOrder []string

	for _, row := range report.Rows {
		if v, ok := intAt(row.Metrics, sessionsIdx); ok {
			s.TotalSessions += v
		}
		if v, ok := intAt(row.Metrics, usersIdx); ok {
			s.TotalUsers += v
		}
		if v, ok := floatAt(row.Metrics, durationIdx); ok {
			durationSum += v
		}
		if sourceIdx >= 0 && sourceIdx < len(row.Dimensions) {
			source := row.Dimensions[sourceIdx]
			if source != "" {
				if sessions, ok := intAt(row.Metrics, sessionsIdx); ok {
					if _, seen := sourceTotals[source]; !seen {
						sourceOrder = append(sourceOrder, source)
					}
					sourceTotals[source] += sessions
				}
			}
		}
	}

	s.AvgSessionDuration = durationSum / float64(len(report.Rows))

	sources := make([]TrafficSource, 0, len(sourceOrder))
	for _, name := range sourceOrder {
		sources = append(sources, TrafficSource{Source: name, Sessions: sourceTotals[name]})
	}
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Sessions > sources[j].Sessions
	})
	if len(sources) > 3 {
		sources = sources[:3]
	}
	s.TopTrafficSources = sources
	return s
}

// Text renders the summary as prompt input.
func (s Summary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total Sessions: %d, Total Users: %d, Average Session Duration: %.2f seconds", s.TotalSessions, s.TotalUsers, s.AvgSessionDuration)
	if len(s.TopTrafficSources) > 0 {
		names := make([]string, 0, len(s.TopTrafficSources))
		for _, ts := range s.TopTrafficSources {
			names = append(names, ts.Source)
		}
		fmt.Fprintf(&b, ", Top Traffic Sources: %s", strings.Join(names, ", "))
	}
	return b.String()
}

func indexOf(headers []string, name string) int {
	for i, h := range headers {
		if h == name {
			return i
		}
	}
	return -1
}

func intAt(values []string, idx int) (int, bool) {
	if idx < 0 || idx >= len(values) {
		return 0, false
	}
	v, err := strconv.Atoi(values[idx])
	if err != nil {
		// Metric values may come back as floats ("12.0").
		if f, ferr := strconv.ParseFloat(values[idx], 64); ferr == nil {
			return int(f), true
		}
		return 0, false
	}
	return v, true
}

func floatAt(values []string, idx int) (float64, bool) {
	if idx < 0 || idx >= len(values) {
		return 0, false
	}
	v, err := strconv.ParseFloat(values[idx], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
