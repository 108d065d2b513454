package pois

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	json "github.com/json-iterator/go"
)

// DefaultOverpassURL is the public Overpass API interpreter
const DefaultOverpassURL = "https://overpass-api.de/api/interpreter"

// osmTypeTags are the tags whose values become a place's types
var osmTypeTags = []string{"amenity", "shop", "tourism", "leisure"}

// OverpassProvider queries OpenStreetMap through the Overpass API
type OverpassProvider struct {
	client *resty.Client
	url    string
}

// NewOverpassProvider creates an Overpass client. An empty url uses the public endpoint.
func NewOverpassProvider(url string, timeout time.Duration) *OverpassProvider {
	if url == "" {
		url = DefaultOverpassURL
	}
	return &OverpassProvider{client: newHTTPClient(timeout), url: url}
}

func (p *OverpassProvider) Source() string { return SourceOpenStreetMap }

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type string            `json:"type"`
	ID   int64             `json:"id"`
	Lat  *float64          `json:"lat"`
	Lon  *float64          `json:"lon"`
	Tags map[string]string `json:"tags"`
}

// Nearby returns named amenity/shop/tourism/leisure nodes around the point
func (p *OverpassProvider) Nearby(ctx context.Context, lat, lng, radiusMeters float64) ([]Place, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{"data": overpassQuery(lat, lng, radiusMeters)}).
		Post(p.url)
	if err := checkResponse(SourceOpenStreetMap, resp, err); err != nil {
		return nil, err
	}

	var body overpassResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("decode overpass response: %w", err)
	}

	places := make([]Place, 0, len(body.Elements))
	for _, el := range body.Elements {
		name := el.Tags["name"]
		if el.Lat == nil || el.Lon == nil || name == "" {
			continue
		}
		places = append(places, Place{
			ExternalID: "osm:" + el.Type + "/" + strconv.FormatInt(el.ID, 10),
			Name:       name,
			Lat:        *el.Lat,
			Lng:        *el.Lon,
			Types:      osmTypes(el.Tags),
			ClassifyOn: tagValues(el.Tags),
		})
	}
	return places, nil
}

func overpassQuery(lat, lng, radiusMeters float64) string {
	around := fmt.Sprintf("(around:%d,%f,%f)", int(radiusMeters), lat, lng)
	q := "[out:json][timeout:25];\n(\n"
	for _, tag := range osmTypeTags {
		q += fmt.Sprintf("  node[\"name\"][\"%s\"]%s;\n", tag, around)
	}
	return q + ");\nout body;"
}

func osmTypes(tags map[string]string) []string {
	var types []string
	for _, key := range osmTypeTags {
		if v := tags[key]; v != "" {
			types = append(types, v)
		}
	}
	return types
}

// tagValues returns every tag value, name included, in a stable order
func tagValues(tags map[string]string) []string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make([]string, 0, len(keys))
	for _, k := range keys {
		values = append(values, tags[k])
	}
	return values
}
