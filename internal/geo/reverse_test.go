package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, body string) *Geocoder {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "30.2672", r.URL.Query().Get("lat"))
		assert.Equal(t, "-97.7431", r.URL.Query().Get("lon"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewGeocoder(srv.URL+"/", nil)
}

func TestCity(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"city", 200, `{"address":{"city":"Austin","town":"x","village":"y"}}`, "Austin"},
		{"town", 200, `{"address":{"town":"Lockhart","village":"y"}}`, "Lockhart"},
		{"village", 200, `{"address":{"village":"Luling"}}`, "Luling"},
		{"no name", 200, `{"address":{"state":"Texas"}}`, Fallback},
		{"no address", 200, `{"error":"Unable to geocode"}`, Fallback},
		{"bad json", 200, `<html>`, Fallback},
		{"server error", 500, `oops`, Fallback},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := serve(t, tc.status, tc.body)
			assert.Equal(t, tc.want, g.City(context.Background(), 30.2672, -97.7431))
		})
	}
}

func TestCity_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	g := NewGeocoder(url, nil)
	require.Equal(t, Fallback, g.City(context.Background(), 1, 2))
}
