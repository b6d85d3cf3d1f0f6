package product

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Pulkitg-senkusha/Products-Cart/pkg/common/logger"
	"github.com/Pulkitg-senkusha/Products-Cart/pkg/observability/metrics"
)

type searchResponse struct {
	Data struct {
		Products json.RawMessage `json:"products"`
	} `json:"data"`
}

// SourceClient queries the external product search API.
type SourceClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	apiHost    string
	metrics    *metrics.Metrics
}

func NewSourceClient(client *http.Client, baseURL, apiKey, apiHost string, m *metrics.Metrics) *SourceClient {
	return &SourceClient{
		httpClient: client,
		baseURL:    baseURL,
		apiKey:     apiKey,
		apiHost:    apiHost,
		metrics:    m,
	}
}

// Search issues one GET to the search endpoint and returns the raw listings
// found at data.products, in the order the source ranked them.
func (c *SourceClient) Search(ctx context.Context, query string) ([]Listing, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	u = u.JoinPath("search")
	q := u.Query()
	q.Set("query", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.apiHost)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveSourceDuration(time.Since(start))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		logger.Log.WithFields(map[string]interface{}{
			"status": resp.StatusCode,
			"query":  query,
		}).Error("Product source returned non-success status")
		return nil, SourceError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	products := bytes.TrimSpace(sr.Data.Products)
	if len(products) == 0 || products[0] != '[' {
		logger.Log.WithField("query", query).Error("Unexpected response format: 'products' is not a list")
		return nil, MalformedResponseError{Reason: "response JSON missing 'products' list"}
	}

	var listings []Listing
	if err := json.Unmarshal(products, &listings); err != nil {
		return nil, MalformedResponseError{Reason: "'products' entries have unexpected shape"}
	}

	return listings, nil
}
