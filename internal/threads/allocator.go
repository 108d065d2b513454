// Package threads hands out the small per-post numbers that group every reply
// from one author without revealing who they are.
package threads

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/zfogg/hushmap/internal/logger"
	"go.uber.org/zap"
)

var (
	// ErrExhausted means every candidate within the retry budget was taken
	ErrExhausted = errors.New("thread id allocation exhausted")

	// ErrClaimConflict is returned by a Store when a claim loses to a concurrent one
	ErrClaimConflict = errors.New("thread id already claimed")
)

// Store persists thread assignments. Uniqueness of (post, thread id) and of
// (post, user) must be enforced by the store itself.
type Store interface {
	// FindThreadID returns the thread id userID already holds on postID
	FindThreadID(ctx context.Context, postID, userID string) (int, bool, error)
	// ThreadIDTaken reports whether anyone holds threadID on postID
	ThreadIDTaken(ctx context.Context, postID string, threadID int) (bool, error)
	// ClaimThreadID records the assignment or returns ErrClaimConflict
	ClaimThreadID(ctx context.Context, postID string, userID *string, threadID int) error
}

// Config bounds the id space and the number of attempts
type Config struct {
	Min         int
	Max         int
	RetryBudget int
}

// DefaultConfig is the four-digit space with five attempts
func DefaultConfig() Config {
	return Config{Min: 1000, Max: 9999, RetryBudget: 5}
}

// Allocator assigns thread ids
type Allocator struct {
	store  Store
	config Config
	intN   func(n int) int
}

// NewAllocator creates an allocator over store
func NewAllocator(store Store, config Config) *Allocator {
	if config.Max <= config.Min {
		config.Min, config.Max = DefaultConfig().Min, DefaultConfig().Max
	}
	if config.RetryBudget < 1 {
		config.RetryBudget = DefaultConfig().RetryBudget
	}
	return &Allocator{store: store, config: config, intN: rand.IntN}
}

// Allocate returns userID's thread id on postID, assigning one on first use.
// An empty userID is anonymous: it gets a random id every time.
func (a *Allocator) Allocate(ctx context.Context, postID, userID string) (int, error) {
	var owner *string
	if userID != "" {
		owner = &userID
		if id, ok, err := a.store.FindThreadID(ctx, postID, userID); err != nil {
			return 0, fmt.Errorf("looking up thread id: %w", err)
		} else if ok {
			return id, nil
		}
	}

	for attempt := 0; attempt < a.config.RetryBudget; attempt++ {
		candidate := a.randomCandidate()
		if owner != nil {
			candidate = Candidate(postID, userID, attempt, a.config)
		}

		taken, err := a.store.ThreadIDTaken(ctx, postID, candidate)
		if err != nil {
			return 0, fmt.Errorf("checking thread id: %w", err)
		}
		if taken {
			logger.Log.Debug("Thread id collision",
				logger.WithPostID(postID),
				zap.Int("candidate", candidate),
				zap.Int("attempt", attempt),
			)
			continue
		}

		err = a.store.ClaimThreadID(ctx, postID, owner, candidate)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, ErrClaimConflict) {
			return 0, fmt.Errorf("claiming thread id: %w", err)
		}

		// Lost a race. If it was this same user in a parallel request, their
		// id is ours too.
		if owner != nil {
			if id, ok, err := a.store.FindThreadID(ctx, postID, userID); err != nil {
				return 0, fmt.Errorf("looking up thread id: %w", err)
			} else if ok {
				return id, nil
			}
		}
	}

	logger.Log.Warn("Thread id allocation exhausted",
		logger.WithPostID(postID),
		zap.Int("retry_budget", a.config.RetryBudget),
	)
	return 0, ErrExhausted
}

// Preview lists the first n deterministic candidates for (postID, userID)
func (a *Allocator) Preview(postID, userID string, n int) []int {
	out := make([]int, 0, n)
	for attempt := 0; attempt < n; attempt++ {
		out = append(out, Candidate(postID, userID, attempt, a.config))
	}
	return out
}

// Candidate derives the attempt'th candidate id from a hash of post and user
func Candidate(postID, userID string, attempt int, config Config) int {
	input := postID + "-" + userID
	if attempt > 0 {
		input = fmt.Sprintf("%s#%d", input, attempt)
	}
	sum := sha256.Sum256([]byte(input))
	span := uint32(config.Max - config.Min + 1)
	return int(binary.BigEndian.Uint32(sum[:4])%span) + config.Min
}

func (a *Allocator) randomCandidate() int {
	return a.config.Min + a.intN(a.config.Max-a.config.Min+1)
}
