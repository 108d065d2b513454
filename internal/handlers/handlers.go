// Package handlers holds the gin handlers of the /api/v2 surface. Handlers
// parse and authorize; the domain packages do the work.
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/zfogg/hushmap/internal/circles"
	"github.com/zfogg/hushmap/internal/geo"
	"github.com/zfogg/hushmap/internal/kernel"
	"github.com/zfogg/hushmap/internal/logger"
	"github.com/zfogg/hushmap/internal/pois"
	"github.com/zfogg/hushmap/internal/referrals"
	"github.com/zfogg/hushmap/internal/repository"
	"github.com/zfogg/hushmap/internal/screenshots"
	"github.com/zfogg/hushmap/internal/threads"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	posts     repository.PostRepository
	replies   repository.ReplyRepository
	users     repository.UserRepository
	reactions repository.ReactionRepository
	reports   repository.ReportRepository
	rewards   repository.RewardRepository

	anonymizer  *geo.Anonymizer
	allocator   *threads.Allocator
	pois        *pois.Service
	circles     *circles.Service
	referrals   *referrals.Service
	screenshots *screenshots.Service
}

// NewHandlers creates handlers over the kernel's services
func NewHandlers(k *kernel.Kernel) *Handlers {
	if err := RegisterValidators(); err != nil {
		logger.WarnWithFields("Custom request validators not registered", err)
	}
	repos := k.Repos()
	return &Handlers{
		posts:       repos.Posts,
		replies:     repos.Replies,
		users:       repos.Users,
		reactions:   repos.Reactions,
		reports:     repos.Reports,
		rewards:     repos.Rewards,
		anonymizer:  k.Anonymizer(),
		allocator:   k.Allocator(),
		pois:        k.POIs(),
		circles:     k.Circles(),
		referrals:   k.Referrals(),
		screenshots: k.Screenshots(),
	}
}

// RegisterRoutes mounts every endpoint on api. Authentication is applied by the caller.
func (h *Handlers) RegisterRoutes(api *gin.RouterGroup) {
	posts := api.Group("/posts")
	{
		posts.POST("/create", h.CreatePost)
		posts.GET("/:id", h.GetPost)
		posts.DELETE("/:id", h.DeletePost)
		posts.POST("/:id/increment-view", h.IncrementView)
		posts.POST("/:id/replies/create", h.CreateReply)
		posts.GET("/:id/replies", h.GetReplies)
	}

	api.GET("/posts-in-viewport", h.PostsInViewport)
	api.GET("/posts-in-viewport-country-filtered", h.PostsInViewportCountry)
	api.GET("/posts-nearby", h.PostsNearby)
	api.GET("/posts-in-circle", h.PostsInCircle)
	api.GET("/posts-in-all-viewing-circles", h.PostsInAllCircles)
	api.GET("/my-posts", h.MyPosts)
	api.GET("/replied-to-list", h.RepliedTo)
	api.GET("/user-posts-count-stats", h.MyPostStats)

	api.GET("/pois", h.GetPOIs)
	api.GET("/pois/search", h.SearchPOIs)
	api.GET("/pois-in-user-trail", h.POIsInUserTrail)

	api.GET("/my-circles", h.MyCircles)
	api.POST("/claim-circle-reward", h.ClaimCircleReward)
	api.GET("/rewards", h.MyRewards)
	api.POST("/referral-codes/create", h.CreateReferralCode)
	api.POST("/claim-referral-code", h.ClaimReferralCode)

	api.POST("/reactions/create", h.CreateReaction)
	api.GET("/reactions/my-reactions", h.MyReactions)
	api.POST("/reports/create", h.CreateReport)

	api.POST("/screenshot/log", h.LogScreenshot)
	api.GET("/screenshot/status", h.ScreenshotStatus)

	users := api.Group("/users")
	{
		users.PUT("/location", h.UpdateLocation)
		users.GET("/profile", h.GetProfile)
		users.POST("/profile/update", h.UpdateProfile)
		users.DELETE("/delete", h.DeleteAccount)
	}
}
