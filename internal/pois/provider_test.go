package pois

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverpassProvider(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		form, err := url.ParseQuery(string(body))
		assert.NoError(t, err)
		query = form.Get("data")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"elements":[
			{"type":"node","id":1,"lat":40.71,"lon":-74.0,"tags":{"name":"Blue Bar","amenity":"bar"}},
			{"type":"node","id":2,"lat":40.72,"lon":-74.01,"tags":{"amenity":"bench"}},
			{"type":"node","id":3,"tags":{"name":"No Coordinates","shop":"clothes"}},
			{"type":"node","id":4,"lat":40.73,"lon":-74.02,"tags":{"name":"Corner Shop","shop":"convenience","tourism":"attraction"}}
		]}`))
	}))
	defer srv.Close()

	p := NewOverpassProvider(srv.URL, time.Second)
	assert.Equal(t, SourceOpenStreetMap, p.Source())

	places, err := p.Nearby(context.Background(), 40.7128, -74.006, 300)
	require.NoError(t, err)
	require.Len(t, places, 2)

	assert.Contains(t, query, "[out:json][timeout:25]")
	assert.Contains(t, query, `node["name"]["leisure"](around:300,40.712800,-74.006000);`)

	assert.Equal(t, "osm:node/1", places[0].ExternalID)
	assert.Equal(t, "Blue Bar", places[0].Name)
	assert.Equal(t, []string{"bar"}, places[0].Types)
	assert.ElementsMatch(t, []string{"bar", "Blue Bar"}, places[0].ClassifyOn)

	assert.Equal(t, []string{"convenience", "attraction"}, places[1].Types)
}

func TestOverpassProviderHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewOverpassProvider(srv.URL, time.Second).Nearby(context.Background(), 1, 1, 100)
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusTooManyRequests, perr.StatusCode)
}

func TestGooglePlacesProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		assert.Contains(t, r.Header.Get("X-Goog-FieldMask"), "places.primaryTypeDisplayName")
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"radius":250`)
		assert.Contains(t, string(body), `"night_club"`)

		_, _ = w.Write([]byte(`{"places":[
			{"id":"g1","displayName":{"text":"Night Owl"},"types":["bar","restaurant"],"primaryType":"bar",
			 "primaryTypeDisplayName":{"text":"Bar"},"location":{"latitude":40.71,"longitude":-74.0},
			 "photos":[{"name":"places/g1/photos/a"}],"iconMaskBaseUri":"https://icons/bar","iconBackgroundColor":"#FF9E67"},
			{"id":"g2","displayName":{"text":"Nowhere"},"types":["cafe"]}
		]}`))
	}))
	defer srv.Close()

	p := NewGooglePlacesProvider("test-key", time.Second).WithURL(srv.URL)
	places, err := p.Nearby(context.Background(), 40.71, -74.0, 250)
	require.NoError(t, err)
	require.Len(t, places, 1)

	got := places[0]
	assert.Equal(t, "g1", got.ExternalID)
	assert.Equal(t, "Night Owl", got.Name)
	assert.Equal(t, "Bar", got.PrimaryTypeDisplayName)
	assert.Equal(t, []string{"places/g1/photos/a"}, got.Photos)
	assert.Equal(t, []string{"bar", "restaurant"}, got.ClassifyOn)
}

func TestProviderTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewOverpassProvider(srv.URL, 5*time.Second).Nearby(ctx, 1, 1, 100)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
