// Package analytics talks to the Google Analytics Admin and Data APIs
// over REST with an OAuth2-authorized HTTP client, and reshapes the
// batched report responses into one working table.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const adminBaseURL = "https://analyticsadmin.googleapis.com/v1beta"

// PropertyKind distinguishes current GA4 properties from legacy ones.
type PropertyKind string

const (
	KindCurrent PropertyKind = "GA4"
	KindLegacy  PropertyKind = "UA"
)

// KindFor classifies a property by its identifier. Universal Analytics
// tracking IDs carry a "UA-" marker; everything else is GA4.
func KindFor(propertyID string) PropertyKind {
	if strings.Contains(propertyID, "UA-") {
		return KindLegacy
	}
	return KindCurrent
}

// Property is one tracked site/app the authenticated identity can read.
type Property struct {
	Account     string       `json:"account"`
	ID          string       `json:"id"` // "properties/123"
	DisplayName string       `json:"display_name"`
	Kind        PropertyKind `json:"kind"`
}

// FormattedName renders the selection label shown to the user.
func (p Property) FormattedName() string {
	return fmt.Sprintf("%s - %s (%s)", p.DisplayName, p.Kind, p.NumericID())
}

// NumericID strips the "properties/" prefix.
func (p Property) NumericID() string {
	if i := strings.LastIndex(p.ID, "/"); i >= 0 {
		return p.ID[i+1:]
	}
	return p.ID
}

// AdminClient lists account summaries from the Admin API.
type AdminClient struct {
	baseURL string
}

// NewAdminClient returns an Admin API client.
func NewAdminClient() *AdminClient {
	return &AdminClient{baseURL: adminBaseURL}
}

// ListProperties flattens account summaries into one property list,
// preserving provider response order. On any provider error it returns
// an empty list plus the error for display; callers never see a panic
// or a partial page.
func (c *AdminClient) ListProperties(ctx context.Context, client *http.Client) ([]Property, error) {
	var all []Property
	pageToken := ""
	for {
		url := c.baseURL + "/accountSummaries?pageSize=200"
		if pageToken != "" {
			url += "&pageToken=" + pageToken
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("list account summaries: %w", err)
		}

		var page struct {
			AccountSummaries []struct {
				Account           string `json:"account"`
				PropertySummaries []struct {
					Property    string `json:"property"`
					DisplayName string `json:"displayName"`
				} `json:"propertySummaries"`
			} `json:"accountSummaries"`
			NextPageToken string `json:"nextPageToken"`
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("list account summaries: status %d", resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("decode account summaries: %w", err)
		}
		resp.Body.Close()

		for _, acct := range page.AccountSummaries {
			for _, ps := range acct.PropertySummaries {
				all = append(all, Property{
					Account:     acct.Account,
					ID:          ps.Property,
					DisplayName: ps.DisplayName,
					Kind:        KindFor(ps.Property),
				})
			}
		}

		if page.NextPageToken == "" {
			return all, nil
		}
		pageToken = page.NextPageToken
	}
}
