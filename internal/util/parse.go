package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseInt parses a string to an integer, returning defaultValue if parsing fails
func ParseInt(s string, defaultValue int) int {
	if val, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return val
	}
	return defaultValue
}

// ParseFloat parses a string to a float64, returning defaultValue if parsing fails
func ParseFloat(s string, defaultValue float64) float64 {
	if val, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return val
	}
	return defaultValue
}

// ParseLatLng parses a coordinate pair and checks it is on the globe
func ParseLatLng(latStr, lngStr string) (float64, float64, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude %q", latStr)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude %q", lngStr)
	}
	if err := CheckLatLng(lat, lng); err != nil {
		return 0, 0, err
	}
	return lat, lng, nil
}

// CheckLatLng rejects NaN and out-of-range coordinates
func CheckLatLng(lat, lng float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90")
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return fmt.Errorf("longitude must be between -180 and 180")
	}
	return nil
}
