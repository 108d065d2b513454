package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/zfogg/hushmap/internal/database"
	"github.com/zfogg/hushmap/internal/feed"
	"github.com/zfogg/hushmap/internal/geo"
	"github.com/zfogg/hushmap/internal/models"
	"github.com/zfogg/hushmap/internal/threads"
	"gorm.io/gorm"
)

type RepositoryTestSuite struct {
	suite.Suite
	db  *gorm.DB
	ctx context.Context
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func (s *RepositoryTestSuite) SetupTest() {
	s.db = database.NewTestDB(s.T())
	s.ctx = context.Background()
}

func strPtr(v string) *string { return &v }

func (s *RepositoryTestSuite) createPost(lat, lng float64, userID string, createdAt time.Time) *models.Post {
	post := &models.Post{Content: "a secret worth telling", Lat: lat, Lng: lng, UserID: strPtr(userID), CreatedAt: createdAt.UTC()}
	s.Require().NoError(NewPostRepository(s.db).CreatePost(s.ctx, post))
	return post
}

func (s *RepositoryTestSuite) TestGetPostHidesModerated() {
	repo := NewPostRepository(s.db)
	post := s.createPost(40.7, -74, "u1", time.Now())

	got, err := repo.GetPost(s.ctx, post.ID)
	s.Require().NoError(err)
	s.Equal(post.Content, got.Content)

	s.Require().NoError(s.db.Model(&models.Post{}).Where("id = ?", post.ID).Update("hidden", true).Error)
	_, err = repo.GetPost(s.ctx, post.ID)
	s.ErrorIs(err, ErrNotFound)

	_, err = repo.GetPost(s.ctx, "missing")
	s.ErrorIs(err, ErrNotFound)
}

func (s *RepositoryTestSuite) TestIncrementViews() {
	repo := NewPostRepository(s.db)
	post := s.createPost(40.7, -74, "u1", time.Now())

	views, err := repo.IncrementViews(s.ctx, post.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), views)
	views, err = repo.IncrementViews(s.ctx, post.ID)
	s.Require().NoError(err)
	s.Equal(int64(2), views)

	_, err = repo.IncrementViews(s.ctx, "missing")
	s.ErrorIs(err, ErrNotFound)
}

func (s *RepositoryTestSuite) TestDeletePostCascades() {
	repo := NewPostRepository(s.db)
	post := s.createPost(40.7, -74, "u1", time.Now())
	reply := &models.Reply{PostID: post.ID, Content: "reply content here", ThreadID: 1234, UserID: strPtr("u2")}
	s.Require().NoError(NewReplyRepository(s.db).CreateReply(s.ctx, reply))
	s.Require().NoError(NewThreadRepository(s.db).ClaimThreadID(s.ctx, post.ID, strPtr("u2"), 1234))
	_, err := NewReactionRepository(s.db).Toggle(s.ctx, "u3", ReactionTarget{ReplyID: reply.ID}, models.ReactionLike)
	s.Require().NoError(err)

	s.Require().NoError(repo.DeletePost(s.ctx, post.ID))

	var count int64
	s.db.Model(&models.Reply{}).Count(&count)
	s.Zero(count)
	s.db.Model(&models.ThreadAssignment{}).Count(&count)
	s.Zero(count)
	s.db.Model(&models.Reaction{}).Count(&count)
	s.Zero(count)

	s.ErrorIs(repo.DeletePost(s.ctx, post.ID), ErrNotFound)
}

func (s *RepositoryTestSuite) TestListInBoundsPaginatesAndSorts() {
	repo := NewPostRepository(s.db)
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		s.createPost(40.7+float64(i)*0.001, -74, "u1", base.Add(time.Duration(i)*time.Minute))
	}
	s.createPost(10, 10, "u1", base) // outside

	bounds := geo.Bounds{North: 41, South: 40, East: -73, West: -75}
	page := feed.Page{Number: 1, Limit: 2, Offset: 0}

	posts, total, err := repo.ListInBounds(s.ctx, bounds, page, feed.Sort{Column: feed.SortCreatedAt, Desc: true})
	s.Require().NoError(err)
	s.Equal(int64(5), total)
	s.Require().Len(posts, 2)
	s.True(posts[0].CreatedAt.After(posts[1].CreatedAt))

	posts, _, err = repo.ListInBounds(s.ctx, bounds, feed.Page{Number: 3, Limit: 2, Offset: 4}, feed.Sort{Column: feed.SortCreatedAt})
	s.Require().NoError(err)
	s.Len(posts, 1)
}

func (s *RepositoryTestSuite) TestListInBoundsAcrossAntimeridian() {
	repo := NewPostRepository(s.db)
	s.createPost(0, 179.5, "u1", time.Now())
	s.createPost(0, -179.5, "u1", time.Now())
	s.createPost(0, 0, "u1", time.Now())

	_, total, err := repo.ListInBounds(s.ctx, geo.Bounds{North: 1, South: -1, East: -179, West: 179}, feed.Page{Number: 1, Limit: 10}, feed.Sort{Column: feed.SortCreatedAt, Desc: true})
	s.Require().NoError(err)
	s.Equal(int64(2), total)
}

func (s *RepositoryTestSuite) TestListNearbyFiltersByDistance() {
	repo := NewPostRepository(s.db)
	s.createPost(40.7128, -74.0060, "u1", time.Now())
	s.createPost(40.7200, -74.0060, "u1", time.Now()) // ~800m north
	s.createPost(40.8000, -74.0060, "u1", time.Now()) // ~9.7km north

	posts, total, err := repo.ListNearby(s.ctx, 40.7128, -74.0060, 1000, feed.Page{Number: 1, Limit: 10}, feed.Sort{Column: feed.SortCreatedAt, Desc: true})
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	for _, p := range posts {
		s.LessOrEqual(p.DistanceMeters, 1000.0)
	}
}

func (s *RepositoryTestSuite) TestRepliesOrderAndCounts() {
	replyRepo := NewReplyRepository(s.db)
	post := s.createPost(1, 1, "u1", time.Now())
	other := s.createPost(2, 2, "u1", time.Now())

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 6; i++ {
		r := &models.Reply{PostID: post.ID, Content: fmt.Sprintf("reply number %d", i), ThreadID: 1000 + i, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		s.Require().NoError(replyRepo.CreateReply(s.ctx, r))
	}

	replies, total, err := replyRepo.ListReplies(s.ctx, post.ID, feed.Page{Number: 1, Limit: 10})
	s.Require().NoError(err)
	s.Equal(int64(6), total)
	for i := 1; i < len(replies); i++ {
		s.False(replies[i].CreatedAt.Before(replies[i-1].CreatedAt))
	}

	latest, err := replyRepo.LatestReplies(s.ctx, []string{post.ID, other.ID}, 4)
	s.Require().NoError(err)
	s.Len(latest[post.ID], 4)
	s.Equal("reply number 5", latest[post.ID][0].Content)
	s.Empty(latest[other.ID])

	counts, err := replyRepo.CountReplies(s.ctx, []string{post.ID, other.ID})
	s.Require().NoError(err)
	s.Equal(int64(6), counts[post.ID])
	s.Zero(counts[other.ID])
}

func (s *RepositoryTestSuite) TestThreadStoreWithAllocator() {
	alloc := threads.NewAllocator(NewThreadRepository(s.db), threads.DefaultConfig())

	first, err := alloc.Allocate(s.ctx, "post-1", "user-1")
	s.Require().NoError(err)
	again, err := alloc.Allocate(s.ctx, "post-1", "user-1")
	s.Require().NoError(err)
	s.Equal(first, again)

	seen := map[int]bool{first: true}
	for i := 2; i <= 20; i++ {
		id, err := alloc.Allocate(s.ctx, "post-1", fmt.Sprintf("user-%d", i))
		s.Require().NoError(err)
		s.False(seen[id])
		seen[id] = true
	}
}

func (s *RepositoryTestSuite) TestThreadClaimConflict() {
	store := NewThreadRepository(s.db)
	s.Require().NoError(store.ClaimThreadID(s.ctx, "p", strPtr("a"), 5000))
	s.ErrorIs(store.ClaimThreadID(s.ctx, "p", strPtr("b"), 5000), threads.ErrClaimConflict)

	taken, err := store.ThreadIDTaken(s.ctx, "p", 5000)
	s.Require().NoError(err)
	s.True(taken)

	id, ok, err := store.FindThreadID(s.ctx, "p", "a")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(5000, id)
}

func (s *RepositoryTestSuite) TestPOIUpsert() {
	repo := NewPOIRepository(s.db)

	batch := []models.POI{
		{ExternalPlaceID: strPtr("g1"), Source: "google_places", Name: "Old Name", Category: "other", Lat: 40.7128, Lng: -74.0060},
		{Source: "openstreetmap", Name: "Corner Pub", Category: "nightlife", Lat: 40.7130, Lng: -74.0061},
	}
	s.Require().NoError(repo.UpsertPOIs(s.ctx, batch))

	// Same external id merges; same name+coordinate is ignored
	again := []models.POI{
		{ExternalPlaceID: strPtr("g1"), Source: "google_places", Name: "New Name", Category: "food_drinks", Lat: 40.7128, Lng: -74.0060},
		{Source: "openstreetmap", Name: "Corner Pub", Category: "nightlife", Lat: 40.7130, Lng: -74.0061},
	}
	s.Require().NoError(repo.UpsertPOIs(s.ctx, again))

	var all []models.POI
	s.Require().NoError(s.db.Order("name").Find(&all).Error)
	s.Require().Len(all, 2)
	s.Equal("Corner Pub", all[0].Name)
	s.Equal("New Name", all[1].Name)
	s.Equal("food_drinks", all[1].Category)

	inserted, err := repo.InsertPOI(s.ctx, &models.POI{Source: "openstreetmap", Name: "Corner Pub", Category: "nightlife", Lat: 40.7130, Lng: -74.0061})
	s.Require().NoError(err)
	s.False(inserted)
}

func (s *RepositoryTestSuite) TestPOINearbyAndSearch() {
	repo := NewPOIRepository(s.db)
	s.Require().NoError(repo.UpsertPOIs(s.ctx, []models.POI{
		{Source: "openstreetmap", Name: "Far Cafe", Category: "food_drinks", Lat: 40.7150, Lng: -74.0060},
		{Source: "openstreetmap", Name: "Near Cafe", Category: "food_drinks", Lat: 40.7129, Lng: -74.0060},
		{Source: "openstreetmap", Name: "Library", Category: "education_school", Lat: 40.7135, Lng: -74.0060},
		{Source: "openstreetmap", Name: "Elsewhere Cafe", Category: "food_drinks", Lat: 41.5, Lng: -74.0060},
	}))

	pois, err := repo.Nearby(s.ctx, 40.7128, -74.0060, 300, 10)
	s.Require().NoError(err)
	s.Require().Len(pois, 3)
	s.Equal("Near Cafe", pois[0].Name)
	s.Equal("Far Cafe", pois[2].Name)

	found, err := repo.SearchByName(s.ctx, 40.7128, -74.0060, "CAFE", 1000, 10)
	s.Require().NoError(err)
	s.Len(found, 2)
}

func (s *RepositoryTestSuite) TestCandidateCapKeepsClosestAndNewest() {
	saved := maxRadiusCandidates
	maxRadiusCandidates = 2
	defer func() { maxRadiusCandidates = saved }()

	poiRepo := NewPOIRepository(s.db)
	s.Require().NoError(poiRepo.UpsertPOIs(s.ctx, []models.POI{
		{Source: "openstreetmap", Name: "Edge Bar", Category: "nightlife", Lat: 40.7150, Lng: -74.0060},
		{Source: "openstreetmap", Name: "Middle Bar", Category: "nightlife", Lat: 40.7140, Lng: -74.0060},
		{Source: "openstreetmap", Name: "Next Door Bar", Category: "nightlife", Lat: 40.7129, Lng: -74.0060},
	}))
	pois, err := poiRepo.Nearby(s.ctx, 40.7128, -74.0060, 300, 1)
	s.Require().NoError(err)
	s.Require().Len(pois, 1)
	s.Equal("Next Door Bar", pois[0].Name)

	postRepo := NewPostRepository(s.db)
	now := time.Now()
	s.createPost(40.7128, -74.0060, "u1", now.Add(-3*time.Hour))
	s.createPost(40.7128, -74.0060, "u1", now.Add(-2*time.Hour))
	newest := s.createPost(40.7128, -74.0060, "u1", now.Add(-time.Hour))

	areas := []feed.Radius{{Lat: 40.7128, Lng: -74.0060, RadiusKm: 1}}
	posts, _, err := postRepo.ListInAreas(s.ctx, areas, feed.Page{Number: 1, Limit: 1}, feed.Sort{Column: feed.SortCreatedAt, Desc: true})
	s.Require().NoError(err)
	s.Require().Len(posts, 1)
	s.Equal(newest.ID, posts[0].ID)
}

func (s *RepositoryTestSuite) TestOutOfRangeOffsetPagesEmpty() {
	repo := NewPostRepository(s.db)
	s.createPost(40.7128, -74.0060, "u1", time.Now())

	s.NotPanics(func() {
		posts, total, err := repo.ListNearby(s.ctx, 40.7128, -74.0060, 1000, feed.Page{Number: 2, Limit: 10, Offset: -20}, feed.Sort{Column: feed.SortCreatedAt, Desc: true})
		s.NoError(err)
		s.Equal(int64(1), total)
		s.Empty(posts)
	})
}

func (s *RepositoryTestSuite) TestFetchHistoryWindow() {
	repo := NewFetchHistoryRepository(s.db)
	now := time.Now().UTC()
	s.Require().NoError(repo.Record(s.ctx, &models.POIFetchHistory{Lat: 40.7128, Lng: -74.0060, Radius: 300, Source: "openstreetmap", FetchedAt: now.Add(-29 * 24 * time.Hour)}))

	fresh, err := repo.HasFetchSince(s.ctx, 40.7128, -74.0060, 300, now.Add(-30*24*time.Hour))
	s.Require().NoError(err)
	s.True(fresh)

	fresh, err = repo.HasFetchSince(s.ctx, 40.7128, -74.0060, 300, now.Add(-28*24*time.Hour))
	s.Require().NoError(err)
	s.False(fresh)

	// Outside the radius
	fresh, err = repo.HasFetchSince(s.ctx, 40.7228, -74.0060, 300, now.Add(-30*24*time.Hour))
	s.Require().NoError(err)
	s.False(fresh)
}

func (s *RepositoryTestSuite) TestReactionToggle() {
	repo := NewReactionRepository(s.db)
	target := ReactionTarget{PostID: "post-1"}

	res, err := repo.Toggle(s.ctx, "u1", target, models.ReactionLike)
	s.Require().NoError(err)
	s.Equal(ReactionAdded, res.Action)
	s.Equal(int64(1), res.Likes)

	res, err = repo.Toggle(s.ctx, "u1", target, models.ReactionDislike)
	s.Require().NoError(err)
	s.Equal(ReactionUpdated, res.Action)
	s.Zero(res.Likes)
	s.Equal(int64(1), res.Dislikes)

	res, err = repo.Toggle(s.ctx, "u1", target, models.ReactionDislike)
	s.Require().NoError(err)
	s.Equal(ReactionRemoved, res.Action)
	s.Zero(res.Dislikes)

	_, err = repo.Toggle(s.ctx, "u1", ReactionTarget{PostID: "a", ReplyID: "b"}, models.ReactionLike)
	s.ErrorIs(err, ErrInvalidInput)
}

func (s *RepositoryTestSuite) TestUserLocationUpsert() {
	repo := NewUserRepository(s.db)

	_, err := repo.GetUser(s.ctx, "u1")
	s.ErrorIs(err, ErrNotFound)

	u, err := repo.UpsertLocation(s.ctx, "u1", 1, 2, "US")
	s.Require().NoError(err)
	s.True(u.HasLocation())

	u, err = repo.UpsertLocation(s.ctx, "u1", 3, 4, "")
	s.Require().NoError(err)
	s.Equal(3.0, *u.Lat)
	s.Equal("US", u.CountryCode)
	s.NotNil(u.LastLocationUpdate)

	trail, err := repo.Trail(s.ctx, "u1", 10)
	s.Require().NoError(err)
	s.Require().Len(trail, 2)
	s.Equal(3.0, trail[0].Lat)
	s.Equal(1.0, trail[1].Lat)
}

func (s *RepositoryTestSuite) TestProfileUpdate() {
	repo := NewUserRepository(s.db)

	u, err := repo.EnsureUser(s.ctx, "u1")
	s.Require().NoError(err)
	s.False(u.HasLocation())

	again, err := repo.EnsureUser(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(u.CreatedAt.Unix(), again.CreatedAt.Unix())

	_, err = repo.UpdateProfile(s.ctx, "u1", ProfileUpdate{})
	s.ErrorIs(err, ErrInvalidInput)

	gender, token := models.GenderOther, "ExponentPushToken[abc]"
	lat, lng := 40.7, -74.0
	u, err = repo.UpdateProfile(s.ctx, "u1", ProfileUpdate{
		Gender:        &gender,
		ExpoPushToken: &token,
		BranchData:    models.JSONMap{"campaign": "launch"},
		Lat:           &lat,
		Lng:           &lng,
	})
	s.Require().NoError(err)
	s.Equal(gender, u.Gender)
	s.Equal(token, u.ExpoPushToken)
	s.Equal("launch", u.BranchData["campaign"])
	s.True(u.HasLocation())

	trail, err := repo.Trail(s.ctx, "u1", 10)
	s.Require().NoError(err)
	s.Len(trail, 1)
}

func (s *RepositoryTestSuite) TestDeleteUserDetachesContent() {
	users := NewUserRepository(s.db)
	_, err := users.UpsertLocation(s.ctx, "u1", 1, 2, "US")
	s.Require().NoError(err)

	post := s.createPost(1, 2, "u1", time.Now())
	s.Require().NoError(NewReplyRepository(s.db).CreateReply(s.ctx, &models.Reply{PostID: post.ID, UserID: strPtr("u1"), Content: "replying to myself", ThreadID: 1000}))
	s.Require().NoError(NewCircleRepository(s.db).CreateCircle(s.ctx, &models.ViewingCircle{UserID: "u1", Type: models.CircleTypeDefault, RadiusKm: 5}))
	s.Require().NoError(NewReferralRepository(s.db).CreateCode(s.ctx, &models.ReferralCode{Code: "AAAA-AAAA", InviterID: "u1", ExpiresAt: time.Now().Add(time.Hour)}))

	s.Require().NoError(users.DeleteUser(s.ctx, "u1"))
	s.Require().NoError(users.DeleteUser(s.ctx, "u1"))

	_, err = users.GetUser(s.ctx, "u1")
	s.ErrorIs(err, ErrNotFound)

	got, err := NewPostRepository(s.db).GetPost(s.ctx, post.ID)
	s.Require().NoError(err)
	s.Nil(got.UserID)

	for _, m := range []interface{}{&models.ViewingCircle{}, &models.UserLocation{}, &models.ReferralCode{}} {
		var n int64
		s.Require().NoError(s.db.Model(m).Count(&n).Error)
		s.Zero(n)
	}
	var owned int64
	s.Require().NoError(s.db.Model(&models.Reply{}).Where("user_id = ?", "u1").Count(&owned).Error)
	s.Zero(owned)
}

func (s *RepositoryTestSuite) TestListRepliedTo() {
	posts := NewPostRepository(s.db)
	replies := NewReplyRepository(s.db)
	older := s.createPost(1, 1, "author", time.Now())
	newer := s.createPost(2, 2, "author", time.Now())
	untouched := s.createPost(3, 3, "author", time.Now())

	base := time.Now().UTC().Add(-time.Hour)
	add := func(postID, userID string, at time.Time) {
		s.Require().NoError(replies.CreateReply(s.ctx, &models.Reply{PostID: postID, UserID: strPtr(userID), Content: "me too honestly", ThreadID: 1000, CreatedAt: at}))
	}
	add(older.ID, "u1", base)
	add(newer.ID, "u1", base.Add(time.Minute))
	add(older.ID, "u1", base.Add(2*time.Minute))
	add(newer.ID, "u2", base.Add(3*time.Minute))

	list, total, err := posts.ListRepliedTo(s.ctx, "u1", feed.Page{Number: 1, Limit: 10})
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Require().Len(list, 2)
	s.Equal(older.ID, list[0].ID)
	s.Equal(newer.ID, list[1].ID)

	latest, err := replies.LatestByUser(s.ctx, "u1", []string{older.ID, newer.ID, untouched.ID})
	s.Require().NoError(err)
	s.Len(latest, 2)
	s.Equal(base.Add(2*time.Minute).Unix(), latest[older.ID].CreatedAt.Unix())
}

func (s *RepositoryTestSuite) TestUserStats() {
	posts := NewPostRepository(s.db)
	replies := NewReplyRepository(s.db)
	mine := s.createPost(1, 1, "u1", time.Now())
	s.createPost(1, 1, "u1", time.Now())
	theirs := s.createPost(1, 1, "u2", time.Now())
	_, err := posts.IncrementViews(s.ctx, mine.ID)
	s.Require().NoError(err)

	for _, r := range []*models.Reply{
		{PostID: mine.ID, UserID: strPtr("u2"), Content: "nice one", ThreadID: 1000},
		{PostID: mine.ID, Content: "anonymous hello", ThreadID: 1001},
		{PostID: mine.ID, UserID: strPtr("u1"), Content: "thanks all", ThreadID: 1002, IsAuthor: true},
		{PostID: theirs.ID, UserID: strPtr("u1"), Content: "same here", ThreadID: 1000},
	} {
		s.Require().NoError(replies.CreateReply(s.ctx, r))
	}

	stats, err := posts.UserStats(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(&UserPostStats{PostCount: 2, TotalViews: 1, RepliesReceived: 2, RepliesWritten: 2}, stats)

	empty, err := posts.UserStats(s.ctx, "nobody")
	s.Require().NoError(err)
	s.Equal(&UserPostStats{}, empty)
}

func (s *RepositoryTestSuite) TestListInBoundsInCountry() {
	repo := NewPostRepository(s.db)
	for _, cc := range []string{"US", "US", "CA", ""} {
		s.Require().NoError(repo.CreatePost(s.ctx, &models.Post{Content: "border town secrets", Lat: 45, Lng: -75, CountryCode: cc}))
	}

	bounds := geo.Bounds{North: 46, South: 44, East: -74, West: -76}
	posts, total, err := repo.ListInBoundsInCountry(s.ctx, bounds, "US", feed.Page{Number: 1, Limit: 10}, feed.Sort{Column: feed.SortCreatedAt, Desc: true})
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	for _, p := range posts {
		s.Equal("US", p.CountryCode)
	}
}

func (s *RepositoryTestSuite) TestReferralCodeRedeemsOnce() {
	repo := NewReferralRepository(s.db)
	now := time.Now().UTC()
	code := &models.ReferralCode{Code: "CODE-0001", InviterID: "u1", ExpiresAt: now.Add(time.Hour)}
	s.Require().NoError(repo.CreateCode(s.ctx, code))
	s.ErrorIs(repo.CreateCode(s.ctx, &models.ReferralCode{Code: "CODE-0001", InviterID: "u2", ExpiresAt: now.Add(time.Hour)}), ErrDuplicate)

	got, err := repo.GetRedeemableForUpdate(s.ctx, "CODE-0001", now)
	s.Require().NoError(err)
	s.Require().NoError(repo.MarkUsed(s.ctx, got.ID, "u2", now))
	s.ErrorIs(repo.MarkUsed(s.ctx, got.ID, "u3", now), ErrNotFound)

	_, err = repo.GetRedeemableForUpdate(s.ctx, "CODE-0001", now)
	s.ErrorIs(err, ErrNotFound)
}

func (s *RepositoryTestSuite) TestExpirePendingRewards() {
	repo := NewRewardRepository(s.db)
	now := time.Now().UTC()
	past, future := now.Add(-time.Hour), now.Add(time.Hour)

	s.Require().NoError(repo.CreateReward(s.ctx, &models.UserReward{UserID: "u1", RewardType: models.RewardTypeGiftCircle, RewardStatus: models.RewardStatusPending, ExpiresAt: &past}))
	s.Require().NoError(repo.CreateReward(s.ctx, &models.UserReward{UserID: "u1", RewardType: models.RewardTypeGiftCircle, RewardStatus: models.RewardStatusPending, ExpiresAt: &future}))
	s.Require().NoError(repo.CreateReward(s.ctx, &models.UserReward{UserID: "u1", RewardType: models.RewardTypeGiftCircle, RewardStatus: models.RewardStatusPending}))

	n, err := repo.ExpirePending(s.ctx, now)
	s.Require().NoError(err)
	s.Equal(int64(1), n)
}

func TestReportRequiresExactlyOneTarget(t *testing.T) {
	repo := NewReportRepository(database.NewTestDB(t))
	ctx := context.Background()

	err := repo.CreateReport(ctx, &models.Report{ReporterID: "u1", Reason: "spam"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	report := &models.Report{ReporterID: "u1", Reason: "spam", PostID: strPtr("p1")}
	require.NoError(t, repo.CreateReport(ctx, report))
	assert.Equal(t, models.ReportStatusPending, report.Status)
}
