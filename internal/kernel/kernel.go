// Package kernel holds the application's dependencies and their lifecycle.
package kernel

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/zfogg/hushmap/internal/auth"
	"github.com/zfogg/hushmap/internal/cache"
	"github.com/zfogg/hushmap/internal/circles"
	"github.com/zfogg/hushmap/internal/config"
	"github.com/zfogg/hushmap/internal/geo"
	"github.com/zfogg/hushmap/internal/logger"
	"github.com/zfogg/hushmap/internal/middleware"
	"github.com/zfogg/hushmap/internal/pois"
	"github.com/zfogg/hushmap/internal/referrals"
	"github.com/zfogg/hushmap/internal/repository"
	"github.com/zfogg/hushmap/internal/screenshots"
	"github.com/zfogg/hushmap/internal/threads"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repositories groups the typed data access objects
type Repositories struct {
	Posts     repository.PostRepository
	Replies   repository.ReplyRepository
	Users     repository.UserRepository
	Reactions repository.ReactionRepository
	Reports   repository.ReportRepository
	Rewards   repository.RewardRepository
}

// NewRepositories builds every repository over db
func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Posts:     repository.NewPostRepository(db),
		Replies:   repository.NewReplyRepository(db),
		Users:     repository.NewUserRepository(db),
		Reactions: repository.NewReactionRepository(db),
		Reports:   repository.NewReportRepository(db),
		Rewards:   repository.NewRewardRepository(db),
	}
}

// Kernel holds all application dependencies
type Kernel struct {
	config *config.Config
	db     *gorm.DB
	cache  *cache.RedisClient

	repos      Repositories
	anonymizer *geo.Anonymizer
	allocator  *threads.Allocator
	pois       *pois.Service
	circles    *circles.Service
	referrals  *referrals.Service
	shots      *screenshots.Service
	verifier   auth.TokenVerifier
	counter    middleware.WindowCounter

	cleanupFuncs []func(context.Context) error
	mu           sync.RWMutex
}

// New creates an empty kernel for cfg. Dependencies are registered with Set* methods.
func New(cfg *config.Config) *Kernel {
	return &Kernel{config: cfg}
}

// Config returns the configuration the kernel was built from
func (k *Kernel) Config() *config.Config {
	return k.config
}

// SetDB registers the database connection and builds the repositories and
// services that sit directly on it
func (k *Kernel) SetDB(db *gorm.DB) *Kernel {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.db = db
	k.repos = NewRepositories(db)
	k.allocator = threads.NewAllocator(repository.NewThreadRepository(db), threads.Config{
		Min:         k.config.Threads.Min,
		Max:         k.config.Threads.Max,
		RetryBudget: k.config.Threads.RetryBudget,
	})
	k.circles = circles.NewService(db)
	k.referrals = referrals.NewService(db)
	k.shots = screenshots.NewService(db, k.config.Screens)
	k.anonymizer = geo.NewAnonymizer(k.config.Posts.RadiusMeters)
	return k
}

// DB returns the database connection
func (k *Kernel) DB() *gorm.DB {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.db
}

// Repos returns the repositories
func (k *Kernel) Repos() Repositories {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.repos
}

// SetCache registers the Redis client
func (k *Kernel) SetCache(client *cache.RedisClient) *Kernel {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.cache = client
	return k
}

// Cache returns the Redis client, nil when redis is disabled
func (k *Kernel) Cache() *cache.RedisClient {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.cache
}

// Anonymizer returns the post location anonymizer
func (k *Kernel) Anonymizer() *geo.Anonymizer {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.anonymizer
}

// Allocator returns the reply thread id allocator
func (k *Kernel) Allocator() *threads.Allocator {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.allocator
}

// SetPOIService registers the POI cache
func (k *Kernel) SetPOIService(svc *pois.Service) *Kernel {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pois = svc
	return k
}

// POIs returns the POI cache
func (k *Kernel) POIs() *pois.Service {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.pois
}

// Circles returns the viewing circle service
func (k *Kernel) Circles() *circles.Service {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.circles
}

// Referrals returns the referral code service
func (k *Kernel) Referrals() *referrals.Service {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.referrals
}

// Screenshots returns the screenshot policy service
func (k *Kernel) Screenshots() *screenshots.Service {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.shots
}

// SetVerifier registers the bearer token verifier
func (k *Kernel) SetVerifier(v auth.TokenVerifier) *Kernel {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.verifier = v
	return k
}

// Verifier returns the bearer token verifier
func (k *Kernel) Verifier() auth.TokenVerifier {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.verifier
}

// SetWindowCounter registers the rate limit counter
func (k *Kernel) SetWindowCounter(c middleware.WindowCounter) *Kernel {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.counter = c
	return k
}

// WindowCounter returns the rate limit counter
func (k *Kernel) WindowCounter() middleware.WindowCounter {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.counter
}

// OnCleanup registers a cleanup function. Cleanups run in reverse order of registration.
func (k *Kernel) OnCleanup(fn func(context.Context) error) *Kernel {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.cleanupFuncs = append(k.cleanupFuncs, fn)
	return k
}

// Cleanup runs every registered cleanup, logging failures and continuing
func (k *Kernel) Cleanup(ctx context.Context) error {
	k.mu.Lock()
	funcs := k.cleanupFuncs
	k.cleanupFuncs = nil
	k.mu.Unlock()

	var failed int
	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](ctx); err != nil {
			failed++
			logger.Log.Error("Cleanup function failed", zap.Int("index", i), zap.Error(err))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d cleanup functions failed", failed)
	}
	return nil
}

// InitializationError lists dependencies missing at startup
type InitializationError struct {
	Message     string
	MissingDeps []string
}

func (e *InitializationError) Error() string {
	if len(e.MissingDeps) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.MissingDeps, ", "))
}

// Validate checks that all required dependencies are registered
func (k *Kernel) Validate() error {
	k.mu.RLock()
	defer k.mu.RUnlock()

	var missing []string
	if k.db == nil {
		missing = append(missing, "database")
	}
	if k.pois == nil {
		missing = append(missing, "POI service")
	}
	if k.verifier == nil {
		missing = append(missing, "token verifier")
	}
	if k.counter == nil {
		missing = append(missing, "rate limit counter")
	}
	if len(missing) > 0 {
		return &InitializationError{Message: "missing required dependencies", MissingDeps: missing}
	}
	return nil
}
