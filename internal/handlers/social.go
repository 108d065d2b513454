package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/hushmap/internal/logger"
	"github.com/zfogg/hushmap/internal/models"
	"github.com/zfogg/hushmap/internal/repository"
	"github.com/zfogg/hushmap/internal/util"
	"go.uber.org/zap"
)

type reactionRequest struct {
	targetRequest
	ReactionType string `json:"reaction_type" binding:"required,reaction_type"`
}

// CreateReaction toggles a like or dislike on a post or a reply
// POST /api/v2/reactions/create
func (h *Handlers) CreateReaction(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req reactionRequest
	if !bindJSON(c, &req) {
		return
	}
	if !h.targetExists(c, req.targetRequest) {
		return
	}

	result, err := h.reactions.Toggle(c.Request.Context(), userID, repository.ReactionTarget{
		PostID:  req.PostID,
		ReplyID: req.ReplyID,
	}, req.ReactionType)
	if err != nil {
		respondError(c, err, "reaction")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

// MyReactions lists the caller's reactions
// GET /api/v2/reactions/my-reactions
func (h *Handlers) MyReactions(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	reactions, err := h.reactions.ListUserReactions(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "reactions")
		return
	}
	if reactions == nil {
		reactions = []models.Reaction{}
	}
	c.JSON(http.StatusOK, gin.H{"data": reactions})
}

type reportRequest struct {
	targetRequest
	Reason  string `json:"reason" binding:"required,max=200"`
	Details string `json:"details" binding:"max=2000"`
}

// CreateReport flags a post or a reply for moderation
// POST /api/v2/reports/create
func (h *Handlers) CreateReport(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req reportRequest
	if !bindJSON(c, &req) {
		return
	}
	if !h.targetExists(c, req.targetRequest) {
		return
	}

	report := models.Report{
		ReporterID: userID,
		Reason:     req.Reason,
		Details:    req.Details,
	}
	if req.PostID != "" {
		report.PostID = &req.PostID
	} else {
		report.ReplyID = &req.ReplyID
	}
	if err := h.reports.CreateReport(c.Request.Context(), &report); err != nil {
		respondError(c, err, "report")
		return
	}

	logger.Log.Info("Content reported", zap.String("report_id", report.ID), zap.String("reason", report.Reason))
	c.JSON(http.StatusCreated, gin.H{"data": report})
}

func (h *Handlers) targetExists(c *gin.Context, t targetRequest) bool {
	ctx := c.Request.Context()
	if t.PostID != "" {
		if _, err := h.posts.GetPost(ctx, t.PostID); err != nil {
			respondError(c, err, "post")
			return false
		}
		return true
	}
	if _, err := h.replies.GetReply(ctx, t.ReplyID); err != nil {
		respondError(c, err, "reply")
		return false
	}
	return true
}
