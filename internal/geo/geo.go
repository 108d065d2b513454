// Package geo hides a poster's exact location behind a random point inside a
// fixed radius, and carries the distance helpers the feed queries use.
package geo

import (
	"math"
	"math/rand/v2"
)

const (
	// EarthRadiusMeters is the mean Earth radius used for every distance here
	EarthRadiusMeters = 6371008.8

	// MetersPerDegree is the length of one degree of latitude on that sphere
	MetersPerDegree = EarthRadiusMeters * math.Pi / 180

	// DefaultRadiusMeters is how far a post may land from its author
	DefaultRadiusMeters = 200.0

	// cosines are taken no closer to a pole than this
	maxCosLatitude = 89.9
)

// Anonymizer randomizes coordinates within RadiusMeters. A zero Rand uses the
// global source.
type Anonymizer struct {
	RadiusMeters float64
	Rand         *rand.Rand
}

// NewAnonymizer returns an Anonymizer with the given radius
func NewAnonymizer(radiusMeters float64) *Anonymizer {
	if radiusMeters <= 0 {
		radiusMeters = DefaultRadiusMeters
	}
	return &Anonymizer{RadiusMeters: radiusMeters}
}

// Randomize returns a point within the configured radius of (lat, lng)
func (a *Anonymizer) Randomize(lat, lng float64) (float64, float64) {
	return randomize(a.float64, lat, lng, a.RadiusMeters)
}

func (a *Anonymizer) float64() float64 {
	if a == nil || a.Rand == nil {
		return rand.Float64()
	}
	return a.Rand.Float64()
}

// Randomize returns a point at most radiusMeters from (lat, lng). The angle is
// uniform and so is the distance, which biases results toward the center.
func Randomize(lat, lng, radiusMeters float64) (float64, float64) {
	return randomize(rand.Float64, lat, lng, radiusMeters)
}

func randomize(next func() float64, lat, lng, radiusMeters float64) (float64, float64) {
	if radiusMeters <= 0 {
		return lat, lng
	}

	theta := next() * 2 * math.Pi
	d := next() * radiusMeters / MetersPerDegree

	cosLat := math.Cos(toRadians(clamp(lat, -maxCosLatitude, maxCosLatitude)))

	outLat := lat + d*math.Cos(theta)
	outLng := lng + d*math.Sin(theta)/cosLat

	return clamp(outLat, -90, 90), NormalizeLongitude(outLng)
}

// Distance returns the great-circle distance in meters (haversine)
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Bounds is a lat/lng bounding box. West may exceed East when the box
// crosses the antimeridian.
type Bounds struct {
	North float64
	South float64
	East  float64
	West  float64
}

// Contains reports whether the point lies in the box
func (b Bounds) Contains(lat, lng float64) bool {
	if lat < b.South || lat > b.North {
		return false
	}
	if b.West <= b.East {
		return lng >= b.West && lng <= b.East
	}
	return lng >= b.West || lng <= b.East
}

// CrossesAntimeridian reports whether the box wraps around ±180
func (b Bounds) CrossesAntimeridian() bool {
	return b.West > b.East
}

// BoundsAround returns a box that contains every point within radiusMeters
func BoundsAround(lat, lng, radiusMeters float64) Bounds {
	dLat := radiusMeters / MetersPerDegree
	north := math.Min(90, lat+dLat)
	south := math.Max(-90, lat-dLat)

	cosLat := math.Cos(toRadians(clamp(math.Max(math.Abs(north), math.Abs(south)), 0, maxCosLatitude)))
	dLng := radiusMeters / (MetersPerDegree * cosLat)
	if dLng >= 180 || north >= 90 || south <= -90 {
		return Bounds{North: north, South: south, East: 180, West: -180}
	}

	return Bounds{
		North: north,
		South: south,
		East:  NormalizeLongitude(lng + dLng),
		West:  NormalizeLongitude(lng - dLng),
	}
}

// NormalizeLongitude wraps lng into [-180, 180)
func NormalizeLongitude(lng float64) float64 {
	lng = math.Mod(lng+180, 360)
	if lng < 0 {
		lng += 360
	}
	return lng - 180
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
