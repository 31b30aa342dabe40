package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReverseGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "booking-test", r.Header.Get("User-Agent"))
		if r.URL.Query().Get("lat") == "0" {
			_, _ = w.Write([]byte(`{"error":"Unable to geocode"}`))
			return
		}
		assert.Equal(t, "12.97", r.URL.Query().Get("lat"))
		assert.Equal(t, "77.59", r.URL.Query().Get("lon"))
		_, _ = w.Write([]byte(`{"display_name":"MG Road, Bengaluru"}`))
	}))
	defer srv.Close()

	g := NewGeocoder(srv.URL+"/", "booking-test", time.Second)
	defer g.client.CloseIdleConnections()

	res, err := g.Reverse(context.Background(), 12.97, 77.59)
	require.NoError(t, err)
	assert.Equal(t, "MG Road, Bengaluru", res.FormattedAddress)

	_, err = g.Reverse(context.Background(), 0, 0)
	assert.ErrorIs(t, err, ErrGeocodingUnavailable)
}

func TestReverseGeocodeUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewGeocoder(srv.URL, "booking-test", time.Second)
	defer g.client.CloseIdleConnections()

	_, err := g.Reverse(context.Background(), 12.97, 77.59)
	assert.ErrorIs(t, err, ErrGeocodingUnavailable)
}

func TestSearchGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		switch r.URL.Query().Get("q") {
		case "Bengaluru":
			_, _ = w.Write([]byte(`[{"lat":"12.9767936","lon":"77.590082","display_name":"Bengaluru, Karnataka, India"}]`))
		case "garbled":
			_, _ = w.Write([]byte(`[{"lat":"north","lon":"77.5","display_name":"?"}]`))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	g := NewGeocoder(srv.URL, "booking-test", time.Second)
	defer g.client.CloseIdleConnections()
	ctx := context.Background()

	loc, err := g.Search(ctx, "Bengaluru")
	require.NoError(t, err)
	assert.InDelta(t, 12.9767936, loc.Lat, 1e-9)
	assert.InDelta(t, 77.590082, loc.Lng, 1e-9)
	assert.Equal(t, "Bengaluru, Karnataka, India", loc.FormattedAddress)

	_, err = g.Search(ctx, "Atlantis")
	assert.ErrorIs(t, err, ErrLocationNotFound)

	_, err = g.Search(ctx, "garbled")
	assert.ErrorIs(t, err, ErrGeocodingUnavailable)
}
