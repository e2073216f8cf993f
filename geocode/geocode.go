package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"danang-green/metrics"
	"danang-green/models"

	"github.com/apex/log"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	// UserAgent is required by the Nominatim usage policy
	UserAgent = "DaNangGreen/1.0"
	// one request per second for Nominatim
	minRequestInterval = time.Second
)

// Result is the first match for a query. Found is false when the provider has no match.
type Result struct {
	Found       bool               `json:"found"`
	Position    models.GeoPosition `json:"position"`
	DisplayName string             `json:"displayName,omitempty"`
}

// Client searches place names inside a fixed region
type Client struct {
	baseURL    string
	region     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a Nominatim client that appends region to every query
func NewClient(baseURL, region string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		region:     region,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(minRequestInterval), 1),
	}
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Search returns the first match for query. A blank query is not sent.
func (c *Client) Search(ctx context.Context, query string) (Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{}, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		metrics.GeocodeRequestsTotal.WithLabelValues("error").Inc()
		return Result{}, err
	}

	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", fmt.Sprintf("%s, %s", query, c.region))
	params.Set("limit", "1")
	reqURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.GeocodeRequestsTotal.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		metrics.GeocodeRequestsTotal.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("nominatim returned status %d: %s", resp.StatusCode, string(body))
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		metrics.GeocodeRequestsTotal.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(results) == 0 {
		metrics.GeocodeRequestsTotal.WithLabelValues("not_found").Inc()
		log.Infof("No place found for %q", query)
		return Result{}, nil
	}

	pos, err := parsePosition(results[0].Lat, results[0].Lon)
	if err != nil {
		metrics.GeocodeRequestsTotal.WithLabelValues("error").Inc()
		return Result{}, err
	}
	metrics.GeocodeRequestsTotal.WithLabelValues("found").Inc()
	return Result{Found: true, Position: pos, DisplayName: results[0].DisplayName}, nil
}

// parsePosition reads the string coordinates Nominatim returns
func parsePosition(lat, lon string) (models.GeoPosition, error) {
	dLat, err := decimal.NewFromString(lat)
	if err != nil {
		return models.GeoPosition{}, fmt.Errorf("invalid latitude %q: %w", lat, err)
	}
	dLon, err := decimal.NewFromString(lon)
	if err != nil {
		return models.GeoPosition{}, fmt.Errorf("invalid longitude %q: %w", lon, err)
	}
	pos := models.GeoPosition{Latitude: dLat.InexactFloat64(), Longitude: dLon.InexactFloat64()}
	if err := pos.Validate(); err != nil {
		return models.GeoPosition{}, err
	}
	return pos, nil
}
