package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/hushmap/internal/util"
)

// CreateReferralCode mints an invite code for the caller
// POST /api/v2/referral-codes/create
func (h *Handlers) CreateReferralCode(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	code, err := h.referrals.CreateCode(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "referral code")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": code})
}

type claimReferralRequest struct {
	ReferralCode string `json:"referral_code" binding:"required,max=16"`
}

// ClaimReferralCode redeems someone else's invite code. Both sides get a
// pending circle reward; only the caller's is returned.
// POST /api/v2/claim-referral-code
func (h *Handlers) ClaimReferralCode(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req claimReferralRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.referrals.Claim(c.Request.Context(), userID, req.ReferralCode)
	if err != nil {
		respondError(c, err, "referral code")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"reward": result.InviteeReward}})
}
