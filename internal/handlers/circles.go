package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/hushmap/internal/circles"
	"github.com/zfogg/hushmap/internal/models"
	"github.com/zfogg/hushmap/internal/util"
)

// MyCircles lists the caller's viewing circles
// GET /api/v2/my-circles
func (h *Handlers) MyCircles(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	views, err := h.circles.ListCircles(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "circles")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": views})
}

type claimCircleRequest struct {
	RewardID     string   `json:"reward_id" binding:"required,uuid"`
	Type         string   `json:"type" binding:"required,claim_circle_type"`
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`
	FriendUserID string   `json:"friend_user_id" binding:"omitempty,uuid"`
}

// ClaimCircleReward turns a pending circle reward into a new viewing circle
// POST /api/v2/claim-circle-reward
func (h *Handlers) ClaimCircleReward(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req claimCircleRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.circles.ClaimReward(c.Request.Context(), userID, circles.ClaimRequest{
		RewardID:     req.RewardID,
		Type:         req.Type,
		Lat:          req.Lat,
		Lng:          req.Lng,
		FriendUserID: req.FriendUserID,
	})
	if err != nil {
		respondError(c, err, "reward")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"circle": circles.CircleView{ViewingCircle: *result.Circle},
		"reward": result.Reward,
	}})
}

// MyRewards lists the caller's rewards
// GET /api/v2/rewards
func (h *Handlers) MyRewards(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	rewards, err := h.rewards.ListUserRewards(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "rewards")
		return
	}
	if rewards == nil {
		rewards = []models.UserReward{}
	}
	c.JSON(http.StatusOK, gin.H{"data": rewards})
}
