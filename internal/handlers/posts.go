package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/hushmap/internal/feed"
	"github.com/zfogg/hushmap/internal/logger"
	"github.com/zfogg/hushmap/internal/metrics"
	"github.com/zfogg/hushmap/internal/models"
	"github.com/zfogg/hushmap/internal/repository"
	"github.com/zfogg/hushmap/internal/util"
	"github.com/zfogg/hushmap/internal/validation"
)

// latestRepliesPerPost is how many replies /my-posts inlines per post
const latestRepliesPerPost = 4

// defaultRepliedLimit is the page size of /replied-to-list
const defaultRepliedLimit = 10

// postView is a post as returned by the API. The author is never exposed.
type postView struct {
	models.Post
	DistanceMeters *float64       `json:"distance_meters,omitempty"`
	ReplyCount     int64          `json:"reply_count"`
	Replies        []models.Reply `json:"replies,omitempty"`
}

type createPostRequest struct {
	Content string   `json:"content" binding:"required"`
	Lat     *float64 `json:"lat" binding:"omitempty,latitude"`
	Lng     *float64 `json:"lng" binding:"omitempty,longitude"`
	POIID   *string  `json:"poi_id" binding:"omitempty,uuid"`
}

// CreatePost publishes a post at a randomized point near the author
// POST /api/v2/posts/create
func (h *Handlers) CreatePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req createPostRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := validation.Validate(req.Content); err != nil {
		var rejection *validation.Rejection
		if errors.As(err, &rejection) {
			metrics.Get().ContentRejectionsTotal.WithLabelValues(rejection.Reason).Inc()
		}
		respondError(c, err, "post")
		return
	}

	lat, lng, ok := h.authorLocation(c, userID, req.Lat, req.Lng)
	if !ok {
		return
	}
	lat, lng = h.anonymizer.Randomize(lat, lng)

	post := models.Post{
		CountryCode:   h.authorCountry(c.Request.Context(), userID),
		Content:       req.Content,
		Lat:           lat,
		Lng:           lng,
		UserID:        &userID,
		POIID:         req.POIID,
		PostedFromPOI: req.POIID != nil,
	}
	if err := h.posts.CreatePost(c.Request.Context(), &post); err != nil {
		respondError(c, err, "post")
		return
	}
	metrics.Get().PostsCreatedTotal.Inc()

	logger.Log.Info("Post created", logger.WithPostID(post.ID))
	c.JSON(http.StatusCreated, gin.H{"data": postView{Post: post}})
}

// authorLocation returns the coordinates a new post is anchored to: the ones
// in the request, else the author's stored location
func (h *Handlers) authorLocation(c *gin.Context, userID string, lat, lng *float64) (float64, float64, bool) {
	if (lat == nil) != (lng == nil) {
		util.RespondValidationError(c, "lat", "lat and lng must be sent together")
		return 0, 0, false
	}
	if lat != nil {
		if err := util.CheckLatLng(*lat, *lng); err != nil {
			util.RespondValidationError(c, "lat", err.Error())
			return 0, 0, false
		}
		return *lat, *lng, true
	}

	user, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		respondError(c, err, "user")
		return 0, 0, false
	}
	if !user.HasLocation() {
		util.RespondValidationError(c, "lat", "no location provided and none stored for this user")
		return 0, 0, false
	}
	return *user.Lat, *user.Lng, true
}

// authorCountry returns the author's stored country code, empty when unknown
func (h *Handlers) authorCountry(ctx context.Context, userID string) string {
	user, err := h.users.GetUser(ctx, userID)
	if err != nil {
		if !isNotFound(err) {
			logger.WarnWithFields("Failed to load author country for user "+userID, err)
		}
		return ""
	}
	return user.CountryCode
}

// GetPost returns one post with its reply count
// GET /api/v2/posts/:id
func (h *Handlers) GetPost(c *gin.Context) {
	postID, ok := idParam(c, "post")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	post, err := h.posts.GetPost(ctx, postID)
	if err != nil {
		respondError(c, err, "post")
		return
	}
	counts, err := h.replies.CountReplies(ctx, []string{postID})
	if err != nil {
		respondError(c, err, "post")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": postView{Post: *post, ReplyCount: counts[postID]}})
}

// DeletePost removes one of the caller's posts
// DELETE /api/v2/posts/:id
func (h *Handlers) DeletePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	postID, ok := idParam(c, "post")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	post, err := h.posts.GetPost(ctx, postID)
	if err != nil {
		respondError(c, err, "post")
		return
	}
	if post.UserID == nil || *post.UserID != userID {
		util.RespondForbidden(c, "you can only delete your own posts")
		return
	}

	if err := h.posts.DeletePost(ctx, postID); err != nil {
		respondError(c, err, "post")
		return
	}
	logger.Log.Info("Post deleted", logger.WithPostID(postID), logger.WithUserID(userID))
	c.JSON(http.StatusOK, gin.H{"message": "post deleted"})
}

// IncrementView bumps a post's view counter
// POST /api/v2/posts/:id/increment-view
func (h *Handlers) IncrementView(c *gin.Context) {
	postID, ok := idParam(c, "post")
	if !ok {
		return
	}
	views, err := h.posts.IncrementViews(c.Request.Context(), postID)
	if err != nil {
		respondError(c, err, "post")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": postID, "views": views}})
}

// MyPosts lists the caller's posts, newest first, each with its latest replies
// GET /api/v2/my-posts
func (h *Handlers) MyPosts(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	page, err := feed.ParsePage(c.Query, feed.DefaultLimit)
	if err != nil {
		respondError(c, err, "posts")
		return
	}
	ctx := c.Request.Context()

	posts, total, err := h.posts.ListByUser(ctx, userID, page)
	if err != nil {
		respondError(c, err, "posts")
		return
	}
	views, err := h.decorate(ctx, posts, nil, true)
	if err != nil {
		respondError(c, err, "posts")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": views, "pagination": feed.NewPageMeta(page, total)})
}

// repliedView is a post the caller replied to, with their newest reply on it
type repliedView struct {
	postView
	MyLatestReply *models.Reply `json:"my_latest_reply,omitempty"`
}

// RepliedTo lists posts the caller replied to, most recently replied first
// GET /api/v2/replied-to-list
func (h *Handlers) RepliedTo(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	page, err := feed.ParsePage(c.Query, defaultRepliedLimit)
	if err != nil {
		respondError(c, err, "posts")
		return
	}
	ctx := c.Request.Context()

	posts, total, err := h.posts.ListRepliedTo(ctx, userID, page)
	if err != nil {
		respondError(c, err, "posts")
		return
	}
	views, err := h.decorate(ctx, posts, nil, true)
	if err != nil {
		respondError(c, err, "posts")
		return
	}

	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	mine, err := h.replies.LatestByUser(ctx, userID, ids)
	if err != nil {
		respondError(c, err, "posts")
		return
	}

	out := make([]repliedView, len(views))
	for i, v := range views {
		out[i] = repliedView{postView: v}
		if r, ok := mine[v.ID]; ok {
			out[i].MyLatestReply = &r
		}
	}
	c.JSON(http.StatusOK, gin.H{"data": out, "pagination": feed.NewPageMeta(page, total)})
}

// MyPostStats summarizes the caller's posts and replies
// GET /api/v2/user-posts-count-stats
func (h *Handlers) MyPostStats(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	stats, err := h.posts.UserStats(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "stats")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}

// decorate attaches reply counts, and optionally the latest replies, to posts.
// distances, when given, is parallel to posts.
func (h *Handlers) decorate(ctx context.Context, posts []models.Post, distances []float64, withReplies bool) ([]postView, error) {
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	counts, err := h.replies.CountReplies(ctx, ids)
	if err != nil {
		return nil, err
	}
	var latest map[string][]models.Reply
	if withReplies {
		if latest, err = h.replies.LatestReplies(ctx, ids, latestRepliesPerPost); err != nil {
			return nil, err
		}
	}

	views := make([]postView, len(posts))
	for i, p := range posts {
		views[i] = postView{Post: p, ReplyCount: counts[p.ID]}
		if distances != nil {
			d := distances[i]
			views[i].DistanceMeters = &d
		}
		if withReplies {
			views[i].Replies = latest[p.ID]
		}
	}
	return views, nil
}
