package pois

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	json "github.com/json-iterator/go"
)

// DefaultGooglePlacesURL is the Places API (New) nearby search endpoint
const DefaultGooglePlacesURL = "https://places.googleapis.com/v1/places:searchNearby"

var googleFieldMask = strings.Join([]string{
	"places.displayName",
	"places.id",
	"places.types",
	"places.primaryType",
	"places.primaryTypeDisplayName",
	"places.location",
	"places.photos",
	"places.iconMaskBaseUri",
	"places.iconBackgroundColor",
}, ",")

var googleIncludedTypes = []string{
	"restaurant", "bar", "cafe", "night_club", "movie_theater", "park",
	"shopping_mall", "gym", "tourist_attraction", "store", "airport", "internet_cafe",
}

// GooglePlacesProvider queries the Google Places nearby search
type GooglePlacesProvider struct {
	client *resty.Client
	url    string
	apiKey string
}

// NewGooglePlacesProvider creates a Places client
func NewGooglePlacesProvider(apiKey string, timeout time.Duration) *GooglePlacesProvider {
	return &GooglePlacesProvider{
		client: newHTTPClient(timeout),
		url:    DefaultGooglePlacesURL,
		apiKey: apiKey,
	}
}

// WithURL points the provider at another endpoint
func (p *GooglePlacesProvider) WithURL(url string) *GooglePlacesProvider {
	p.url = url
	return p
}

func (p *GooglePlacesProvider) Source() string { return SourceGooglePlaces }

type googleLatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type googleSearchRequest struct {
	IncludedTypes       []string `json:"includedTypes"`
	LocationRestriction struct {
		Circle struct {
			Center googleLatLng `json:"center"`
			Radius float64      `json:"radius"`
		} `json:"circle"`
	} `json:"locationRestriction"`
}

type googleText struct {
	Text string `json:"text"`
}

type googlePlace struct {
	ID                     string        `json:"id"`
	DisplayName            googleText    `json:"displayName"`
	Types                  []string      `json:"types"`
	PrimaryType            string        `json:"primaryType"`
	PrimaryTypeDisplayName googleText    `json:"primaryTypeDisplayName"`
	Location               *googleLatLng `json:"location"`
	Photos                 []struct {
		Name string `json:"name"`
	} `json:"photos"`
	IconMaskBaseURI     string `json:"iconMaskBaseUri"`
	IconBackgroundColor string `json:"iconBackgroundColor"`
}

type googleSearchResponse struct {
	Places []googlePlace `json:"places"`
}

// Nearby runs one searchNearby call
func (p *GooglePlacesProvider) Nearby(ctx context.Context, lat, lng, radiusMeters float64) ([]Place, error) {
	var reqBody googleSearchRequest
	reqBody.IncludedTypes = googleIncludedTypes
	reqBody.LocationRestriction.Circle.Center = googleLatLng{Latitude: lat, Longitude: lng}
	reqBody.LocationRestriction.Circle.Radius = radiusMeters

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Goog-Api-Key", p.apiKey).
		SetHeader("X-Goog-FieldMask", googleFieldMask).
		SetBody(payload).
		Post(p.url)
	if err := checkResponse(SourceGooglePlaces, resp, err); err != nil {
		return nil, err
	}

	var body googleSearchResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("decode places response: %w", err)
	}

	places := make([]Place, 0, len(body.Places))
	for _, gp := range body.Places {
		if gp.Location == nil || gp.DisplayName.Text == "" {
			continue
		}
		photos := make([]string, 0, len(gp.Photos))
		for _, ph := range gp.Photos {
			if ph.Name != "" {
				photos = append(photos, ph.Name)
			}
		}
		places = append(places, Place{
			ExternalID:             gp.ID,
			Name:                   gp.DisplayName.Text,
			Lat:                    gp.Location.Latitude,
			Lng:                    gp.Location.Longitude,
			Types:                  gp.Types,
			PrimaryType:            gp.PrimaryType,
			PrimaryTypeDisplayName: gp.PrimaryTypeDisplayName.Text,
			Photos:                 photos,
			IconMaskBaseURI:        gp.IconMaskBaseURI,
			IconBackgroundColor:    gp.IconBackgroundColor,
			ClassifyOn:             gp.Types,
		})
	}
	return places, nil
}
