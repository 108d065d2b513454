package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/hushmap/internal/feed"
	"github.com/zfogg/hushmap/internal/models"
	"github.com/zfogg/hushmap/internal/util"
)

const (
	defaultSearchDistanceKm = 50.0
	defaultSearchLimit      = 50
	maxSearchLimit          = 100

	defaultTrailLimit = 100
	// trailPoints is how many recent locations make up a user's trail
	trailPoints = 20
)

// GetPOIs returns cached places near lat/lng (or the caller's stored
// location). A stale area is refreshed without holding up the response.
// GET /api/v2/pois
func (h *Handlers) GetPOIs(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	lat, lng, ok := h.queryOrStoredLocation(c, userID)
	if !ok {
		return
	}

	places, err := h.pois.GetPOIs(c.Request.Context(), lat, lng)
	if err != nil {
		respondError(c, err, "pois")
		return
	}
	if places == nil {
		places = []models.POI{}
	}
	c.JSON(http.StatusOK, gin.H{"data": places})
}

// SearchPOIs finds cached places by name within max_distance_km
// GET /api/v2/pois/search?name=&max_distance_km=&limit_count=
func (h *Handlers) SearchPOIs(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	maxKm := util.ParseFloat(c.Query("max_distance_km"), defaultSearchDistanceKm)
	if maxKm <= 0 || maxKm > feed.MaxRadiusKm {
		util.RespondValidationError(c, "max_distance_km", "must be greater than 0 and at most 500")
		return
	}
	limit := util.ParseInt(c.Query("limit_count"), defaultSearchLimit)
	if limit < 1 || limit > maxSearchLimit {
		util.RespondValidationError(c, "limit_count", "must be between 1 and 100")
		return
	}

	lat, lng, ok := h.queryOrStoredLocation(c, userID)
	if !ok {
		return
	}

	places, err := h.pois.Search(c.Request.Context(), lat, lng, c.Query("name"), maxKm, limit)
	if err != nil {
		respondError(c, err, "pois")
		return
	}
	if places == nil {
		places = []models.POI{}
	}
	c.JSON(http.StatusOK, gin.H{"data": places})
}

// POIsInUserTrail returns cached places near the caller's recent locations
// GET /api/v2/pois-in-user-trail?limit_count=
func (h *Handlers) POIsInUserTrail(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	limit := util.ParseInt(c.Query("limit_count"), defaultTrailLimit)
	if limit < 1 || limit > maxSearchLimit {
		util.RespondValidationError(c, "limit_count", "must be between 1 and 100")
		return
	}
	ctx := c.Request.Context()

	trail, err := h.users.Trail(ctx, userID, trailPoints)
	if err != nil {
		respondError(c, err, "pois")
		return
	}
	places, err := h.pois.AlongTrail(ctx, trail, limit)
	if err != nil {
		respondError(c, err, "pois")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": places})
}

// queryOrStoredLocation reads lat/lng from the query, falling back to the
// caller's stored location
func (h *Handlers) queryOrStoredLocation(c *gin.Context, userID string) (float64, float64, bool) {
	if c.Query("lat") != "" || c.Query("lng") != "" {
		lat, lng, err := util.ParseLatLng(c.Query("lat"), c.Query("lng"))
		if err != nil {
			util.RespondValidationError(c, "lat", err.Error())
			return 0, 0, false
		}
		return lat, lng, true
	}

	user, err := h.users.GetUser(c.Request.Context(), userID)
	if err == nil && user.HasLocation() {
		return *user.Lat, *user.Lng, true
	}
	if err != nil && !isNotFound(err) {
		respondError(c, err, "user")
		return 0, 0, false
	}
	util.RespondValidationError(c, "lat", "lat and lng are required when no location is stored")
	return 0, 0, false
}
