package analytics

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Batch is one fixed-shape dimension/metric query against the Data
// API. Several batches run per report and their results are
// concatenated into one working table.
type Batch struct {
	Name       string   `yaml:"name"`
	Dimensions []string `yaml:"dimensions"`
	Metrics    []string `yaml:"metrics"`
}

// DefaultBatches are the four standing queries: traffic, events,
// page performance, e-commerce.
func DefaultBatches() []Batch {
	return []Batch{
		{
			Name: "traffic",
			Dimensions: []string{
				"sessionSourceMedium",
				"sessionCampaignId",
				"deviceCategory",
				"eventName",
			},
			Metrics: []string{
				"sessions",
				"engagedSessions",
				"averageSessionDuration",
				"newUsers",
				"totalUsers",
				"purchaseRevenue",
				"transactions",
			},
		},
		{
			Name: "events",
			Dimensions: []string{
				"deviceCategory",
				"linkUrl",
				"pagePath",
				"eventName",
			},
			Metrics: []string{
				"addToCarts",
				"checkouts",
				"ecommercePurchases",
				"itemListViews",
				"itemListClicks",
				"itemViews",
				"purchaseRevenue",
				"totalRevenue",
			},
		},
		{
			Name: "pages",
			Dimensions: []string{
				"fullPageUrl",
				"eventName",
			},
			Metrics: []string{
				"screenPageViews",
				"totalUsers",
				"userEngagementDuration",
				"engagedSessions",
			},
		},
		{
			Name: "ecommerce",
			Dimensions: []string{
				"transactionId",
				"sessionDefaultChannelGrouping",
			},
			Metrics: []string{
				"purchaseRevenue",
				"transactions",
				"totalRevenue",
				"checkouts",
				"addToCarts",
				"ecommercePurchases",
			},
		},
	}
}

type batchFile struct {
	Batches []Batch `yaml:"batches"`
}

// LoadBatches returns the batch catalog, reading a YAML override file
// when path is non-empty and falling back to the built-in defaults.
func LoadBatches(path string) ([]Batch, error) {
	if path == "" {
		return DefaultBatches(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch catalog: %w", err)
	}
	var f batchFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse batch catalog: %w", err)
	}
	if len(f.Batches) == 0 {
		return nil, fmt.Errorf("batch catalog %s declares no batches", path)
	}
	for i, b := range f.Batches {
		if b.Name == "" {
			return nil, fmt.Errorf("batch %d has no name", i)
		}
		if len(b.Dimensions) == 0 && len(b.Metrics) == 0 {
			return nil, fmt.Errorf("batch %q has no dimensions or metrics", b.Name)
		}
	}
	return f.Batches, nil
}
