package analytics

import (
	"testing"
)

func trafficReport() *Report {
	return &Report{
		DimensionHeaders: []string{"sessionSourceMedium", "sessionCampaignId", "deviceCategory", "eventName"},
		MetricHeaders:    []string{"sessions", "engagedSessions", "averageSessionDuration", "newUsers", "totalUsers"},
		Rows: []Row{
			{Dimensions: []string{"google / organic", "(not set)", "mobile", "page_view"}, Metrics: []string{"100", "80", "120.5", "20", "90"}},
			{Dimensions: []string{"direct / none", "(not set)", "desktop", "page_view"}, Metrics: []string{"50", "30", "60.5", "10", "45"}},
			{Dimensions: []string{"bing / cpc", "(not set)", "mobile", "page_view"}, Metrics: []string{"25", "10", "30.0", "5", "20"}},
			{Dimensions: []string{"google / organic", "(not set)", "desktop", "page_view"}, Metrics: []string{"75", "55", "89.0", "12", "60"}},
		},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(trafficReport())

	if s.TotalSessions != 250 {
		t.Errorf("TotalSessions = %d, want 250", s.TotalSessions)
	}
	if s.TotalUsers != 215 {
		t.Errorf("TotalUsers = %d, want 215", s.TotalUsers)
	}
	if want := (120.5 + 60.5 + 30.0 + 89.0) / 4; s.AvgSessionDuration != want {
		t.Errorf("AvgSessionDuration = %v, want %v", s.AvgSessionDuration, want)
	}
	if len(s.TopTrafficSources) != 3 {
		t.Fatalf("TopTrafficSources = %v", s.TopTrafficSources)
	}
	if s.TopTrafficSources[0].Source != "google / organic" || s.TopTrafficSources[0].Sessions != 175 {
		t.Errorf("top source = %+v", s.TopTrafficSources[0])
	}
}

func TestSummarize_TiesKeepFirstSeenOrder(t *testing.T) {
	r := &Report{
		DimensionHeaders: []string{"sessionSourceMedium"},
		MetricHeaders:    []string{"sessions"},
		Rows: []Row{
			{Dimensions: []string{"alpha"}, Metrics: []string{"10"}},
			{Dimensions: []string{"beta"}, Metrics: []string{"10"}},
			{Dimensions: []string{"gamma"}, Metrics: []string{"10"}},
			{Dimensions: []string{"delta"}, Metrics: []string{"10"}},
		},
	}
	s := Summarize(r)
	want := []string{"alpha", "beta", "gamma"}
	for i, ts := range s.TopTrafficSources {
		if ts.Source != want[i] {
			t.Errorf("source[%d] = %q, want %q", i, ts.Source, want[i])
		}
	}
}

func TestSummarize_TolerantOfMalformedValues(t *testing.T) {
	r := &Report{
		DimensionHeaders: []string{"sessionSourceMedium"},
		MetricHeaders:    []string{"sessions", "totalUsers", "averageSessionDuration"},
		Rows: []Row{
			{Dimensions: []string{"google / organic"}, Metrics: []string{"abc", "", "xyz"}},
			{Dimensions: []string{}, Metrics: []string{}},
			{Dimensions: []string{"direct / none"}, Metrics: []string{"7", "5", "12.5"}},
		},
	}
	s := Summarize(r)
	if s.TotalSessions != 7 || s.TotalUsers != 5 {
		t.Errorf("summary = %+v", s)
	}
}

func TestSummarize_EmptyReport(t *testing.T) {
	if s := Summarize(&Report{}); s.TotalSessions != 0 || len(s.TopTrafficSources) != 0 {
		t.Errorf("empty report summary = %+v", s)
	}
	if s := Summarize(nil); s.TotalSessions != 0 {
		t.Errorf("nil report summary = %+v", s)
	}
}

func TestSummaryText(t *testing.T) {
	s := Summary{
		TotalSessions:      250,
		TotalUsers:         215,
		AvgSessionDuration: 75.0,
		TopTrafficSources: []TrafficSource{
			{Source: "google / organic", Sessions: 175},
			{Source: "direct / none", Sessions: 50},
		},
	}
	text := s.Text()
	for _, want := range []string{"Total Sessions: 250", "Total Users: 215", "75.00 seconds", "google / organic, direct / none"} {
		if !containsStr(text, want) {
			t.Errorf("summary text missing %q: %s", want, text)
		}
	}
}

func containsStr(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
