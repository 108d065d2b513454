// Package feed turns list-endpoint query parameters into validated
// viewport, radius, sort and page predicates, and builds page metadata.
package feed

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/zfogg/hushmap/internal/geo"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100

	// MaxRadiusKm bounds radius queries
	MaxRadiusKm = 500.0
	// DefaultRadiusKm is used when a radius query omits radius_km
	DefaultRadiusKm = 5.0
)

// Params reads a query parameter by name. gin's c.Query satisfies it.
type Params func(key string) string

// FieldError is a malformed or missing query parameter
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func fieldErr(field, format string, args ...interface{}) *FieldError {
	return &FieldError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Page is an offset window. Number is 1-based and derived from Offset when
// the caller paged by offset.
type Page struct {
	Number int
	Limit  int
	Offset int
}

// Sort columns
const (
	SortCreatedAt = "created_at"
	SortViews     = "views"
)

// Sort is a whitelisted ORDER BY column and direction
type Sort struct {
	Column string
	Desc   bool
}

// Viewport is a map viewport
type Viewport struct {
	Bounds geo.Bounds
}

// Radius is a circle around a point
type Radius struct {
	Lat      float64
	Lng      float64
	RadiusKm float64
}

// Meters returns the radius in meters
func (r Radius) Meters() float64 {
	return r.RadiusKm * 1000
}

// ParsePage reads page/limit. Accepted aliases: pageSize and limit_count for
// limit, offset_count for an explicit offset.
func ParsePage(q Params, defaultLimit int) (Page, error) {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}

	limit := defaultLimit
	for _, key := range []string{"limit", "pageSize", "limit_count"} {
		raw := q(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return Page{}, fieldErr(key, "must be a positive integer")
		}
		limit = n
		break
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	if raw := q("offset_count"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return Page{}, fieldErr("offset_count", "must be a non-negative integer")
		}
		return Page{Number: offset/limit + 1, Limit: limit, Offset: offset}, nil
	}

	number := 1
	if raw := q("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return Page{}, fieldErr("page", "must be a positive integer")
		}
		if n-1 > math.MaxInt/limit {
			return Page{}, fieldErr("page", "is too large")
		}
		number = n
	}
	return Page{Number: number, Limit: limit, Offset: (number - 1) * limit}, nil
}

// ParseSort reads sort_by and sort_direction. Default is newest first.
func ParseSort(q Params) (Sort, error) {
	s := Sort{Column: SortCreatedAt, Desc: true}

	switch strings.ToLower(q("sort_by")) {
	case "", SortCreatedAt:
	case SortViews:
		s.Column = SortViews
	default:
		return Sort{}, fieldErr("sort_by", "must be created_at or views")
	}

	switch strings.ToLower(q("sort_direction")) {
	case "", "desc":
	case "asc":
		s.Desc = false
	default:
		return Sort{}, fieldErr("sort_direction", "must be asc or desc")
	}
	return s, nil
}

// ParseViewport reads north_lat, south_lat, east_lng and west_lng. A west edge
// greater than the east edge means the viewport crosses the antimeridian.
func ParseViewport(q Params) (Viewport, error) {
	keys := []string{"north_lat", "south_lat", "east_lng", "west_lng"}
	values := make([]float64, len(keys))
	for i, key := range keys {
		v, err := parseFloat(q, key)
		if err != nil {
			return Viewport{}, err
		}
		values[i] = v
	}
	north, south, east, west := values[0], values[1], values[2], values[3]

	for _, lat := range []float64{north, south} {
		if lat < -90 || lat > 90 {
			return Viewport{}, fieldErr("north_lat", "latitudes must be between -90 and 90")
		}
	}
	for _, lng := range []float64{east, west} {
		if lng < -180 || lng > 180 {
			return Viewport{}, fieldErr("east_lng", "longitudes must be between -180 and 180")
		}
	}
	if south > north {
		return Viewport{}, fieldErr("south_lat", "must not exceed north_lat")
	}

	return Viewport{Bounds: geo.Bounds{North: north, South: south, East: east, West: west}}, nil
}

// ParseRadius reads lat, lng and radius_km
func ParseRadius(q Params) (Radius, error) {
	lat, err := parseFloat(q, "lat")
	if err != nil {
		return Radius{}, err
	}
	lng, err := parseFloat(q, "lng")
	if err != nil {
		return Radius{}, err
	}
	if lat < -90 || lat > 90 {
		return Radius{}, fieldErr("lat", "must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return Radius{}, fieldErr("lng", "must be between -180 and 180")
	}

	r := Radius{Lat: lat, Lng: lng, RadiusKm: DefaultRadiusKm}
	if q("radius_km") != "" {
		km, err := parseFloat(q, "radius_km")
		if err != nil {
			return Radius{}, err
		}
		if km <= 0 || km > MaxRadiusKm {
			return Radius{}, fieldErr("radius_km", "must be greater than 0 and at most %g", MaxRadiusKm)
		}
		r.RadiusKm = km
	}
	return r, nil
}

func parseFloat(q Params, key string) (float64, error) {
	raw := strings.TrimSpace(q(key))
	if raw == "" {
		return 0, fieldErr(key, "is required")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fieldErr(key, "must be a valid number")
	}
	return v, nil
}

// PageMeta is the pagination block returned by list endpoints
type PageMeta struct {
	Page            int   `json:"page"`
	Limit           int   `json:"limit"`
	Total           int64 `json:"total"`
	TotalPages      int   `json:"totalPages"`
	HasNextPage     bool  `json:"hasNextPage"`
	HasPreviousPage bool  `json:"hasPreviousPage"`
}

// NewPageMeta computes metadata for a page of a result set of size total
func NewPageMeta(p Page, total int64) PageMeta {
	totalPages := 0
	if p.Limit > 0 {
		totalPages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return PageMeta{
		Page:            p.Number,
		Limit:           p.Limit,
		Total:           total,
		TotalPages:      totalPages,
		HasNextPage:     int64(p.Offset+p.Limit) < total,
		HasPreviousPage: p.Offset > 0,
	}
}
