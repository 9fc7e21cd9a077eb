// Package geo maps IP literals to locations via the ipinfo API, memoized
// in a process-local LRU.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dnsdig/pkg/logging"

	lru "github.com/hashicorp/golang-lru/v2"
)

// lruCapacity bounds the memoization window; within it each distinct IP
// hits the provider at most once.
const lruCapacity = 8192

// Point is a GeoJSON point, coordinates ordered [lon, lat].
type Point struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// Location is the enrichment result for one IP. Every field except IP
// and TTL is optional: a failed lookup yields just those two.
type Location struct {
	IP             string `json:"ip"`
	CountryISOCode string `json:"countryIsoCode,omitempty"`
	Province       string `json:"province,omitempty"`
	City           string `json:"city,omitempty"`
	Geo            *Point `json:"geo,omitempty"`
	TTL            uint32 `json:"ttl"`
}

// ipinfoResponse is the subset of the provider reply we consume.
type ipinfoResponse struct {
	IP      string `json:"ip"`
	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country"`
	Loc     string `json:"loc"`
}

// Enricher performs geolocation lookups with LRU memoization keyed by IP
// alone; the ttl argument travels through to the returned record but is
// not part of the cache key.
type Enricher struct {
	host   string
	token  string
	client *http.Client
	cache  *lru.Cache[string, Location]
	logger *logging.Logger
}

// New creates an enricher against the given provider host.
func New(host, token string, logger *logging.Logger) (*Enricher, error) {
	cache, err := lru.New[string, Location](lruCapacity)
	if err != nil {
		return nil, fmt.Errorf("geo: creating lru: %w", err)
	}

	return &Enricher{
		host:  strings.TrimSuffix(host, "/"),
		token: token,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		cache:  cache,
		logger: logger,
	}, nil
}

// Lookup resolves ip to a location. Provider failures degrade to a
// minimal Location carrying only the IP and TTL.
func (e *Enricher) Lookup(ctx context.Context, ip string, ttl uint32) Location {
	if loc, ok := e.cache.Get(ip); ok {
		loc.TTL = ttl
		return loc
	}

	loc := e.fetch(ctx, ip)
	e.cache.Add(ip, loc)

	loc.TTL = ttl
	return loc
}

func (e *Enricher) fetch(ctx context.Context, ip string) Location {
	minimal := Location{IP: ip}

	url := fmt.Sprintf("%s/%s/json", e.host, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		e.logger.Warn("Geo lookup request failed", "ip", ip, "error", err)
		return minimal
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token)

	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.Warn("Geo lookup failed", "ip", ip, "error", err)
		return minimal
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		e.logger.Warn("Geo lookup returned non-200", "ip", ip, "status", resp.StatusCode)
		return minimal
	}

	var info ipinfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		e.logger.Warn("Geo lookup returned malformed JSON", "ip", ip, "error", err)
		return minimal
	}

	loc := Location{
		IP:             ip,
		CountryISOCode: info.Country,
		Province:       info.Region,
		City:           info.City,
	}

	// loc is "lat,lon"; GeoJSON points carry [lon, lat].
	if parts := strings.Split(info.Loc, ","); len(parts) == 2 {
		lat, latErr := strconv.ParseFloat(parts[0], 64)
		lon, lonErr := strconv.ParseFloat(parts[1], 64)
		if latErr == nil && lonErr == nil {
			loc.Geo = &Point{Type: "Point", Coordinates: [2]float64{lon, lat}}
		}
	}

	return loc
}
