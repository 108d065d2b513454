package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/hushmap/internal/logger"
	"github.com/zfogg/hushmap/internal/models"
	"github.com/zfogg/hushmap/internal/repository"
	"github.com/zfogg/hushmap/internal/util"
)

// GetProfile returns the caller's profile, creating an empty one on first use
// GET /api/v2/users/profile
func (h *Handlers) GetProfile(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	user, err := h.users.EnsureUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": user})
}

type updateProfileRequest struct {
	BranchParams  models.JSONMap `json:"branch_params"`
	ExpoPushToken *string        `json:"expo_push_token" binding:"omitempty,max=255"`
	Lat           *float64       `json:"lat" binding:"omitempty,latitude"`
	Lng           *float64       `json:"lng" binding:"omitempty,longitude"`
	Gender        *string        `json:"gender" binding:"omitempty,oneof=male female other"`
}

// UpdateProfile changes the provided profile fields. Blank strings and a
// lone coordinate are ignored.
// POST /api/v2/users/profile/update
func (h *Handlers) UpdateProfile(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req updateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	update := repository.ProfileUpdate{BranchData: req.BranchParams}
	if req.ExpoPushToken != nil && strings.TrimSpace(*req.ExpoPushToken) != "" {
		update.ExpoPushToken = req.ExpoPushToken
	}
	if req.Gender != nil && *req.Gender != "" {
		update.Gender = req.Gender
	}
	if req.Lat != nil && req.Lng != nil {
		if err := util.CheckLatLng(*req.Lat, *req.Lng); err != nil {
			util.RespondValidationError(c, "lat", err.Error())
			return
		}
		update.Lat, update.Lng = req.Lat, req.Lng
	}
	if update.Empty() {
		util.RespondBadRequest(c, "no valid data provided for update")
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), userID, update)
	if err != nil {
		respondError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": user})
}

// DeleteAccount removes the caller's account and private data. Deleting an
// account that has no row succeeds.
// DELETE /api/v2/users/delete
func (h *Handlers) DeleteAccount(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	if err := h.users.DeleteUser(c.Request.Context(), userID); err != nil {
		respondError(c, err, "user")
		return
	}
	logger.Log.Info("User deleted", logger.WithUserID(userID))
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}
