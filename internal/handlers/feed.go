package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/zfogg/hushmap/internal/feed"
	"github.com/zfogg/hushmap/internal/models"
	"github.com/zfogg/hushmap/internal/repository"
	"github.com/zfogg/hushmap/internal/util"
)

// listParams parses the page and sort shared by every feed endpoint
func listParams(c *gin.Context) (feed.Page, feed.Sort, bool) {
	page, err := feed.ParsePage(c.Query, feed.DefaultLimit)
	if err != nil {
		respondError(c, err, "posts")
		return page, feed.Sort{}, false
	}
	order, err := feed.ParseSort(c.Query)
	if err != nil {
		respondError(c, err, "posts")
		return page, order, false
	}
	return page, order, true
}

// PostsInViewport lists posts inside a map viewport
// GET /api/v2/posts-in-viewport
func (h *Handlers) PostsInViewport(c *gin.Context) {
	viewport, err := feed.ParseViewport(c.Query)
	if err != nil {
		respondError(c, err, "posts")
		return
	}
	page, order, ok := listParams(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	posts, total, err := h.posts.ListInBounds(ctx, viewport.Bounds, page, order)
	if err != nil {
		respondError(c, err, "posts")
		return
	}
	views, err := h.decorate(ctx, posts, nil, false)
	if err != nil {
		respondError(c, err, "posts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": views, "pagination": feed.NewPageMeta(page, total)})
}

// PostsInViewportCountry lists viewport posts made in the caller's country
// GET /api/v2/posts-in-viewport-country-filtered
func (h *Handlers) PostsInViewportCountry(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	viewport, err := feed.ParseViewport(c.Query)
	if err != nil {
		respondError(c, err, "posts")
		return
	}
	page, order, ok := listParams(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	user, err := h.users.GetUser(ctx, userID)
	if err != nil && !isNotFound(err) {
		respondError(c, err, "user")
		return
	}
	if user == nil || user.CountryCode == "" {
		util.RespondValidationError(c, "country_code", "no country stored for this user, update your location with a country_code")
		return
	}

	posts, total, err := h.posts.ListInBoundsInCountry(ctx, viewport.Bounds, user.CountryCode, page, order)
	if err != nil {
		respondError(c, err, "posts")
		return
	}
	views, err := h.decorate(ctx, posts, nil, false)
	if err != nil {
		respondError(c, err, "posts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": views, "pagination": feed.NewPageMeta(page, total)})
}

// PostsNearby lists posts within radius_km of lat/lng
// GET /api/v2/posts-nearby
func (h *Handlers) PostsNearby(c *gin.Context) {
	area, err := feed.ParseRadius(c.Query)
	if err != nil {
		respondError(c, err, "posts")
		return
	}
	h.respondAreas(c, []feed.Radius{area})
}

// PostsInCircle lists posts around one of the caller's viewing circles
// GET /api/v2/posts-in-circle?circle_id=
func (h *Handlers) PostsInCircle(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	circleID := c.Query("circle_id")
	if circleID == "" {
		util.RespondValidationError(c, "circle_id", "is required")
		return
	}
	if _, err := uuid.Parse(circleID); err != nil {
		util.RespondNotFound(c, "circle")
		return
	}
	ctx := c.Request.Context()

	circle, err := h.circles.GetCircle(ctx, userID, circleID)
	if err != nil {
		respondError(c, err, "circle")
		return
	}
	area, err := h.circles.ResolveCenter(ctx, userID, circle)
	if err != nil {
		respondError(c, err, "circle")
		return
	}
	h.respondAreas(c, []feed.Radius{area})
}

// PostsInAllCircles lists posts inside any of the caller's circles, each post once
// GET /api/v2/posts-in-all-viewing-circles
func (h *Handlers) PostsInAllCircles(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	areas, err := h.circles.ResolveAll(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "circles")
		return
	}
	h.respondAreas(c, areas)
}

func (h *Handlers) respondAreas(c *gin.Context, areas []feed.Radius) {
	page, order, ok := listParams(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var (
		rows  []repository.PostWithDistance
		total int64
		err   error
	)
	switch len(areas) {
	case 0:
	case 1:
		a := areas[0]
		rows, total, err = h.posts.ListNearby(ctx, a.Lat, a.Lng, a.Meters(), page, order)
	default:
		rows, total, err = h.posts.ListInAreas(ctx, areas, page, order)
	}
	if err != nil {
		respondError(c, err, "posts")
		return
	}

	posts := make([]models.Post, len(rows))
	distances := make([]float64, len(rows))
	for i, r := range rows {
		posts[i], distances[i] = r.Post, r.DistanceMeters
	}
	views, err := h.decorate(ctx, posts, distances, false)
	if err != nil {
		respondError(c, err, "posts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": views, "pagination": feed.NewPageMeta(page, total)})
}
