package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	ErrGeocodingUnavailable = errors.New("geocoding service unavailable")
	ErrLocationNotFound     = errors.New("location not found")
)

// Location is a resolved coordinate with its display address.
type Location struct {
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	FormattedAddress string  `json:"formattedAddress"`
}

// Geocoder resolves coordinates against a Nominatim compatible API.
type Geocoder struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

func NewGeocoder(baseURL, userAgent string, timeout time.Duration) *Geocoder {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Geocoder{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

type nominatimReverse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// nominatimPlace is one /search hit.  Coordinates arrive as strings.
type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (g *Geocoder) get(ctx context.Context, path string, q url.Values, out any) error {
	q.Set("format", "json")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	// Nominatim's usage policy rejects requests without an identifying agent.
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGeocodingUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrGeocodingUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrGeocodingUnavailable, err)
	}
	return nil
}

// Reverse returns a human readable address for lat/lng.
func (g *Geocoder) Reverse(ctx context.Context, lat, lng float64) (Location, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))

	var body nominatimReverse
	if err := g.get(ctx, "/reverse", q, &body); err != nil {
		return Location{}, err
	}
	if body.Error != "" || body.DisplayName == "" {
		return Location{}, fmt.Errorf("%w: no address for %v,%v", ErrGeocodingUnavailable, lat, lng)
	}
	return Location{Lat: lat, Lng: lng, FormattedAddress: body.DisplayName}, nil
}

// Search resolves a free text place such as a city name to its best
// match.
func (g *Geocoder) Search(ctx context.Context, query string) (Location, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", "1")

	var places []nominatimPlace
	if err := g.get(ctx, "/search", q, &places); err != nil {
		return Location{}, err
	}
	if len(places) == 0 {
		return Location{}, fmt.Errorf("%w: %q", ErrLocationNotFound, query)
	}
	lat, err1 := strconv.ParseFloat(places[0].Lat, 64)
	lng, err2 := strconv.ParseFloat(places[0].Lon, 64)
	if err := errors.Join(err1, err2); err != nil {
		return Location{}, fmt.Errorf("%w: bad coordinates: %v", ErrGeocodingUnavailable, err)
	}
	return Location{Lat: lat, Lng: lng, FormattedAddress: places[0].DisplayName}, nil
}
