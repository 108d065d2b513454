package pois

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/zfogg/hushmap/internal/logger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Provider sources, stored on each POI row
const (
	SourceOpenStreetMap = "openstreetmap"
	SourceGooglePlaces  = "google_places"
)

const userAgent = "hushmap-poi/1.0"

// Place is a provider result before it is classified and stored
type Place struct {
	ExternalID             string
	Name                   string
	Lat                    float64
	Lng                    float64
	Types                  []string
	PrimaryType            string
	PrimaryTypeDisplayName string
	Photos                 []string
	IconMaskBaseURI        string
	IconBackgroundColor    string
	// ClassifyOn holds the strings the category rules are matched against
	ClassifyOn []string
}

// PlacesProvider fetches named places around a point from an external source
type PlacesProvider interface {
	Source() string
	Nearby(ctx context.Context, lat, lng, radiusMeters float64) ([]Place, error)
}

// ProviderError is returned for non-2xx provider responses
type ProviderError struct {
	Source     string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d: %s", e.Source, e.StatusCode, e.Body)
}

// newHTTPClient builds the resty client shared by the providers: traced
// transport, a user agent and debug logging of each round trip
func newHTTPClient(timeout time.Duration) *resty.Client {
	client := resty.New()
	client.SetTransport(otelhttp.NewTransport(http.DefaultTransport))
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", userAgent)

	client.OnBeforeRequest(func(c *resty.Client, req *resty.Request) error {
		logger.Log.Debug("POI provider request", zap.String("method", req.Method), zap.String("url", req.URL))
		return nil
	})
	client.OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
		logger.Log.Debug("POI provider response",
			zap.Int("status", resp.StatusCode()),
			logger.WithDuration(resp.Time()),
		)
		return nil
	})
	return client
}

func checkResponse(source string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s request failed: %w", source, err)
	}
	if !resp.IsSuccess() {
		body := resp.String()
		if len(body) > 200 {
			body = body[:200]
		}
		return &ProviderError{Source: source, StatusCode: resp.StatusCode(), Body: body}
	}
	return nil
}
