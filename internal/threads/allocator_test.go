package threads

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu     sync.Mutex
	byUser map[string]int
	taken  map[int]string
	claims int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{byUser: map[string]int{}, taken: map[int]string{}}
}

func (s *memoryStore) FindThreadID(_ context.Context, postID, userID string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byUser[postID+"/"+userID]
	return id, ok, nil
}

func (s *memoryStore) ThreadIDTaken(_ context.Context, postID string, threadID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.taken[threadID]
	return ok, nil
}

func (s *memoryStore) ClaimThreadID(_ context.Context, postID string, userID *string, threadID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims++
	if _, ok := s.taken[threadID]; ok {
		return ErrClaimConflict
	}
	owner := ""
	if userID != nil {
		owner = *userID
		if _, ok := s.byUser[postID+"/"+owner]; ok {
			return ErrClaimConflict
		}
		s.byUser[postID+"/"+owner] = threadID
	}
	s.taken[threadID] = owner
	return nil
}

func TestAllocateIsStable(t *testing.T) {
	a := NewAllocator(newMemoryStore(), DefaultConfig())
	ctx := context.Background()

	first, err := a.Allocate(ctx, "post-1", "user-1")
	require.NoError(t, err)
	second, err := a.Allocate(ctx, "post-1", "user-1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.GreaterOrEqual(t, first, 1000)
	assert.LessOrEqual(t, first, 9999)
}

func TestAllocateIsUniqueAcrossUsers(t *testing.T) {
	a := NewAllocator(newMemoryStore(), DefaultConfig())
	ctx := context.Background()

	seen := map[int]string{}
	for i := 0; i < 200; i++ {
		user := fmt.Sprintf("user-%d", i)
		id, err := a.Allocate(ctx, "post-1", user)
		require.NoError(t, err)
		if other, dup := seen[id]; dup {
			t.Fatalf("thread id %d given to both %s and %s", id, other, user)
		}
		seen[id] = user
	}
}

func TestFirstCandidateMatchesHash(t *testing.T) {
	store := newMemoryStore()
	a := NewAllocator(store, DefaultConfig())

	id, err := a.Allocate(context.Background(), "post-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, Candidate("post-1", "user-1", 0, DefaultConfig()), id)
	assert.Equal(t, a.Preview("post-1", "user-1", 3)[0], id)
}

func TestAllocateSkipsTakenCandidates(t *testing.T) {
	store := newMemoryStore()
	cfg := DefaultConfig()
	first := Candidate("post-1", "user-1", 0, cfg)
	store.taken[first] = "someone-else"

	a := NewAllocator(store, cfg)
	id, err := a.Allocate(context.Background(), "post-1", "user-1")
	require.NoError(t, err)
	assert.NotEqual(t, first, id)
	assert.Equal(t, Candidate("post-1", "user-1", 1, cfg), id)
}

func TestAllocateExhausted(t *testing.T) {
	store := newMemoryStore()
	cfg := DefaultConfig()
	a := NewAllocator(store, cfg)
	for _, c := range a.Preview("post-1", "user-1", cfg.RetryBudget) {
		store.taken[c] = "someone-else"
	}

	_, err := a.Allocate(context.Background(), "post-1", "user-1")
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Zero(t, store.claims)
}

// raceStore makes the first claim lose to a concurrent request
type raceStore struct {
	*memoryStore
	winner *string
	lost   bool
}

func (s *raceStore) ClaimThreadID(ctx context.Context, postID string, userID *string, threadID int) error {
	if !s.lost {
		s.lost = true
		if err := s.memoryStore.ClaimThreadID(ctx, postID, s.winner, threadID); err != nil {
			return err
		}
		return ErrClaimConflict
	}
	return s.memoryStore.ClaimThreadID(ctx, postID, userID, threadID)
}

func TestAllocateLosesRaceToAnotherUser(t *testing.T) {
	other := "user-2"
	store := &raceStore{memoryStore: newMemoryStore(), winner: &other}
	a := NewAllocator(store, DefaultConfig())

	id, err := a.Allocate(context.Background(), "post-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, Candidate("post-1", "user-1", 1, DefaultConfig()), id)
}

func TestAllocateLosesRaceToSameUser(t *testing.T) {
	self := "user-1"
	store := &raceStore{memoryStore: newMemoryStore(), winner: &self}
	a := NewAllocator(store, DefaultConfig())

	id, err := a.Allocate(context.Background(), "post-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, Candidate("post-1", "user-1", 0, DefaultConfig()), id)
}

func TestAllocateAnonymous(t *testing.T) {
	store := newMemoryStore()
	a := NewAllocator(store, DefaultConfig())
	values := []int{42, 42, 7}
	a.intN = func(n int) int {
		v := values[0]
		values = values[1:]
		return v
	}

	first, err := a.Allocate(context.Background(), "post-1", "")
	require.NoError(t, err)
	assert.Equal(t, 1042, first)

	// Same random draw is taken now, so the next attempt is used
	second, err := a.Allocate(context.Background(), "post-1", "")
	require.NoError(t, err)
	assert.Equal(t, 1007, second)
}

type failingStore struct{ *memoryStore }

func (s *failingStore) ThreadIDTaken(context.Context, string, int) (bool, error) {
	return false, errors.New("connection reset")
}

func TestAllocateStoreErrorIsNotExhaustion(t *testing.T) {
	a := NewAllocator(&failingStore{newMemoryStore()}, DefaultConfig())
	_, err := a.Allocate(context.Background(), "post-1", "user-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrExhausted)
}

func TestCandidateRange(t *testing.T) {
	cfg := Config{Min: 1000, Max: 1009, RetryBudget: 5}
	for i := 0; i < 100; i++ {
		c := Candidate("p", fmt.Sprintf("u%d", i), i%5, cfg)
		assert.GreaterOrEqual(t, c, 1000)
		assert.LessOrEqual(t, c, 1009)
	}
}
