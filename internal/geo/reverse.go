// Package geo turns coordinates into a city name for the search form.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Fallback is the city name used when no better one is known.
const Fallback = "Current Location"

// Geocoder calls a Nominatim compatible reverse endpoint.
type Geocoder struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

func NewGeocoder(baseURL string, log *zap.Logger) *Geocoder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Geocoder{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: log,
	}
}

type reverseResponse struct {
	Address struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
	} `json:"address"`
}

// City names the place at lat/lon. Lookup failures are logged and yield
// Fallback; the caller never sees an error.
func (g *Geocoder) City(ctx context.Context, lat, lon float64) string {
	name, err := g.lookup(ctx, lat, lon)
	if err != nil {
		g.log.Warn("reverse geocode failed", zap.Float64("lat", lat), zap.Float64("lon", lon), zap.Error(err))
		return Fallback
	}
	return name
}

func (g *Geocoder) lookup(ctx context.Context, lat, lon float64) (string, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	// Nominatim's usage policy asks for an identifying agent
	req.Header.Set("User-Agent", "foodguide/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocoder status %d", resp.StatusCode)
	}

	var body reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode geocoder response: %w", err)
	}

	for _, name := range []string{body.Address.City, body.Address.Town, body.Address.Village} {
		if name != "" {
			return name, nil
		}
	}
	return Fallback, nil
}
