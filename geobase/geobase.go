// Package geobase resolves network addresses and place names to denormalized
// location records via an external geocoding provider.  Lookups are
// best-effort: callers are expected to log failures and carry on.
package geobase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Location is a denormalized location record.  (Country, Province, Locality)
// is the uniqueness triple; Province may be empty for city-states and
// federal cities.
type Location struct {
	ID        int64   `json:"id,omitempty"`
	Country   string  `json:"country"`
	Province  string  `json:"province,omitempty"`
	Locality  string  `json:"locality"`
	Timezone  string  `json:"timezone"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (l *Location) String() string {
	if l.Province == "" {
		return fmt.Sprintf("%s, %s", l.Country, l.Locality)
	}
	return fmt.Sprintf("%s, %s, %s", l.Country, l.Province, l.Locality)
}

// Store persists location records keyed by the uniqueness triple
type Store interface {
	// Ensure finds an existing record matching (country, province, locality)
	// or creates one, and returns it with its ID populated
	Ensure(loc *Location) (*Location, error)

	// GetById retrieves a location by its ID
	GetById(id int64) (*Location, error)
}

// Client talks to the geocoding provider's JSON API
type Client struct {
	// Geocoding endpoint (place name -> location)
	BaseURL string

	// IP-geolocation endpoint (network address -> location)
	IPBaseURL string

	APIKey string

	HTTPClient *http.Client
}

func NewClient(baseURL, ipBaseURL, apiKey string) *Client {
	return &Client{
		BaseURL:    baseURL,
		IPBaseURL:  ipBaseURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type apiResponse struct {
	Country   string  `json:"country"`
	Province  string  `json:"province"`
	Locality  string  `json:"locality"`
	Timezone  string  `json:"timezone"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Geocode resolves a free-form place name ("Moscow", "Chelyabinsk") to a
// location
func (c *Client) Geocode(ctx context.Context, query string) (*Location, error) {
	if c.BaseURL == "" {
		return nil, fmt.Errorf("geocoder not configured")
	}
	u := fmt.Sprintf("%s?geocode=%s&key=%s", c.BaseURL, url.QueryEscape(query), url.QueryEscape(c.APIKey))
	return c.fetch(ctx, u)
}

// DetectByIP resolves a client network address to a location
func (c *Client) DetectByIP(ctx context.Context, ip string) (*Location, error) {
	if c.IPBaseURL == "" {
		return nil, fmt.Errorf("ip geolocation not configured")
	}
	u := fmt.Sprintf("%s?ip=%s&key=%s", c.IPBaseURL, url.QueryEscape(ip), url.QueryEscape(c.APIKey))
	return c.fetch(ctx, u)
}

func (c *Client) fetch(ctx context.Context, u string) (*Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geobase request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geobase provider returned %d", resp.StatusCode)
	}

	var data apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("error decoding geobase response: %w", err)
	}
	if data.Country == "" || data.Locality == "" {
		return nil, fmt.Errorf("geobase provider returned no match")
	}

	return &Location{
		Country:   data.Country,
		Province:  data.Province,
		Locality:  data.Locality,
		Timezone:  data.Timezone,
		Latitude:  data.Latitude,
		Longitude: data.Longitude,
	}, nil
}
