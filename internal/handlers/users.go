package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/hushmap/internal/logger"
	"github.com/zfogg/hushmap/internal/util"
)

type updateLocationRequest struct {
	Lat         *float64 `json:"lat" binding:"required,latitude"`
	Lng         *float64 `json:"lng" binding:"required,longitude"`
	CountryCode string   `json:"country_code" binding:"omitempty,len=2"`
}

// UpdateLocation stores the caller's current location and makes sure they
// have a default viewing circle
// PUT /api/v2/users/location
func (h *Handlers) UpdateLocation(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req updateLocationRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := util.CheckLatLng(*req.Lat, *req.Lng); err != nil {
		util.RespondValidationError(c, "lat", err.Error())
		return
	}
	ctx := c.Request.Context()

	user, err := h.users.UpsertLocation(ctx, userID, *req.Lat, *req.Lng, strings.ToUpper(req.CountryCode))
	if err != nil {
		respondError(c, err, "user")
		return
	}
	if _, err := h.circles.EnsureDefaultCircle(ctx, userID); err != nil {
		logger.ErrorWithFields("Failed to ensure default circle for user "+userID, err)
	}

	c.JSON(http.StatusOK, gin.H{"data": user})
}
