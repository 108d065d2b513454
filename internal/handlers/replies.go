package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/hushmap/internal/feed"
	"github.com/zfogg/hushmap/internal/logger"
	"github.com/zfogg/hushmap/internal/metrics"
	"github.com/zfogg/hushmap/internal/models"
	"github.com/zfogg/hushmap/internal/telemetry"
	"github.com/zfogg/hushmap/internal/threads"
	"github.com/zfogg/hushmap/internal/util"
	"github.com/zfogg/hushmap/internal/validation"
	"go.uber.org/zap"
)

type createReplyRequest struct {
	Content string `json:"content" binding:"required"`
}

// CreateReply adds a reply under the caller's thread id for the post
// POST /api/v2/posts/:id/replies/create
func (h *Handlers) CreateReply(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	postID, ok := idParam(c, "post")
	if !ok {
		return
	}

	var req createReplyRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := validation.Validate(req.Content); err != nil {
		var rejection *validation.Rejection
		if errors.As(err, &rejection) {
			metrics.Get().ContentRejectionsTotal.WithLabelValues(rejection.Reason).Inc()
		}
		respondError(c, err, "reply")
		return
	}

	ctx := c.Request.Context()
	post, err := h.posts.GetPost(ctx, postID)
	if err != nil {
		respondError(c, err, "post")
		return
	}

	threadID, err := h.allocateThreadID(c, postID, userID)
	if err != nil {
		respondError(c, err, "reply")
		return
	}

	reply := models.Reply{
		PostID:   postID,
		UserID:   &userID,
		Content:  req.Content,
		ThreadID: threadID,
		IsAuthor: post.UserID != nil && *post.UserID == userID,
	}
	if err := h.replies.CreateReply(ctx, &reply); err != nil {
		respondError(c, err, "reply")
		return
	}
	metrics.Get().RepliesCreatedTotal.Inc()

	logger.Log.Info("Reply created",
		logger.WithPostID(postID),
		zap.Int("thread_id", threadID),
		zap.Bool("is_author", reply.IsAuthor))
	c.JSON(http.StatusCreated, gin.H{"data": reply})
}

func (h *Handlers) allocateThreadID(c *gin.Context, postID, userID string) (threadID int, err error) {
	ctx, span := telemetry.TraceThreadAllocation(c.Request.Context(), postID, userID == "")
	defer func() { telemetry.EndSpan(span, err) }()

	threadID, err = h.allocator.Allocate(ctx, postID, userID)
	outcome := "assigned"
	switch {
	case errors.Is(err, threads.ErrExhausted):
		outcome = "exhausted"
	case err != nil:
		outcome = "error"
	}
	metrics.Get().ThreadAllocationsTotal.WithLabelValues(outcome).Inc()
	return threadID, err
}

// GetReplies lists a post's replies oldest first
// GET /api/v2/posts/:id/replies
func (h *Handlers) GetReplies(c *gin.Context) {
	postID, ok := idParam(c, "post")
	if !ok {
		return
	}
	page, err := feed.ParsePage(c.Query, feed.DefaultLimit)
	if err != nil {
		respondError(c, err, "replies")
		return
	}
	ctx := c.Request.Context()

	if _, err := h.posts.GetPost(ctx, postID); err != nil {
		respondError(c, err, "post")
		return
	}

	replies, total, err := h.replies.ListReplies(ctx, postID, page)
	if err != nil {
		respondError(c, err, "replies")
		return
	}
	if replies == nil {
		replies = []models.Reply{}
	}
	c.JSON(http.StatusOK, gin.H{"data": replies, "pagination": feed.NewPageMeta(page, total)})
}
