package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const dataBaseURL = "https://analyticsdata.googleapis.com/v1beta"

// DateRange bounds a report. Values use the Data API's relative form
// ("30daysAgo", "today") or YYYY-MM-DD.
type DateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// DefaultDateRange covers the trailing 30 days.
func DefaultDateRange() DateRange {
	return DateRange{StartDate: "30daysAgo", EndDate: "today"}
}

// Row is one report row; dimension and metric values are parallel to
// the report's header sequences and always arrive as strings. Type
// coercion is the consumer's job.
type Row struct {
	Dimensions []string `json:"dimensions"`
	Metrics    []string `json:"metrics"`
}

// Report is the merged table across all batches. Headers are
// concatenated in batch order without deduplication, so a name shared
// by two batches appears twice. That juxtaposition is the observed
// upstream behavior and is preserved deliberately.
type Report struct {
	DimensionHeaders []string `json:"dimension_headers"`
	MetricHeaders    []string `json:"metric_headers"`
	Rows             []Row    `json:"rows"`
}

// BatchError records one failed batch without aborting the others.
type BatchError struct {
	Batch string
	Err   error
}

func (e BatchError) Error() string {
	return fmt.Sprintf("batch %s: %v", e.Batch, e.Err)
}

// DataClient runs batched report queries against the Data API.
type DataClient struct {
	baseURL string
	batches []Batch
}

// NewDataClient returns a Data API client using the given batch catalog.
func NewDataClient(batches []Batch) *DataClient {
	return &DataClient{baseURL: dataBaseURL, batches: batches}
}

// runReportResponse mirrors the fields of the Data API response we
// consume.
type runReportResponse struct {
	DimensionHeaders []struct {
		Name string `json:"name"`
	} `json:"dimensionHeaders"`
	MetricHeaders []struct {
		Name string `json:"name"`
	} `json:"metricHeaders"`
	Rows []struct {
		DimensionValues []struct {
			Value string `json:"value"`
		} `json:"dimensionValues"`
		MetricValues []struct {
			Value string `json:"value"`
		} `json:"metricValues"`
	} `json:"rows"`
}

// FetchReport issues every batch for the property over the date range
// and merges the results append-only. Batches fail independently:
// failures are collected and the partial report is still returned so
// the caller can decide whether partial data is acceptable.
func (c *DataClient) FetchReport(ctx context.Context, client *http.Client, propertyID string, dr DateRange) (*Report, []BatchError) {
	report := &Report{}
	var failures []BatchError

	for _, batch := range c.batches {
		resp, err := c.runReport(ctx, client, propertyID, batch, dr)
		if err != nil {
			log.Printf("report batch %s failed for %s: %v", batch.Name, propertyID, err)
			failures = append(failures, BatchError{Batch: batch.Name, Err: err})
			continue
		}
		mergeResponse(report, resp)
	}
	return report, failures
}

// runReport executes a single batch query.
func (c *DataClient) runReport(ctx context.Context, client *http.Client, propertyID string, batch Batch, dr DateRange) (*runReportResponse, error) {
	type nameRef struct {
		Name string `json:"name"`
	}
	body := struct {
		DateRanges []DateRange `json:"dateRanges"`
		Dimensions []nameRef   `json:"dimensions"`
		Metrics    []nameRef   `json:"metrics"`
	}{
		DateRanges: []DateRange{dr},
	}
	for _, d := range batch.Dimensions {
		body.Dimensions = append(body.Dimensions, nameRef{Name: d})
	}
	for _, m := range batch.Metrics {
		body.Metrics = append(body.Metrics, nameRef{Name: m})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s:runReport", c.baseURL, propertyID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("runReport status %d: %s", resp.StatusCode, snippet)
	}

	var out runReportResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode runReport response: %w", err)
	}
	log.Printf("report batch %s: %d rows in %s", batch.Name, len(out.Rows), time.Since(start).Round(time.Millisecond))
	return &out, nil
}

// mergeResponse appends one batch into the combined report. Header
// sequences concatenate as-is; rows keep their positional value order.
func mergeResponse(report *Report, resp *runReportResponse) {
	for _, dh := range resp.DimensionHeaders {
		report.DimensionHeaders = append(report.DimensionHeaders, dh.Name)
	}
	for _, mh := range resp.MetricHeaders {
		report.MetricHeaders = append(report.MetricHeaders, mh.Name)
	}
	for _, row := range resp.Rows {
		merged := Row{
			Dimensions: make([]string, 0, len(row.DimensionValues)),
			Metrics:    make([]string, 0, len(row.MetricValues)),
		}
		for _, dv := range row.DimensionValues {
			merged.Dimensions = append(merged.Dimensions, dv.Value)
		}
		for _, mv := range row.MetricValues {
			merged.Metrics = append(merged.Metrics, mv.Value)
		}
		report.Rows = append(report.Rows, merged)
	}
}
