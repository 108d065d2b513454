// Package seed fills a development database with fake users, posts, replies
// and circles.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/zfogg/hushmap/internal/geo"
	"github.com/zfogg/hushmap/internal/logger"
	"github.com/zfogg/hushmap/internal/models"
	"github.com/zfogg/hushmap/internal/repository"
	"github.com/zfogg/hushmap/internal/threads"
	"github.com/zfogg/hushmap/internal/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// City is a seeding hotspot
type City struct {
	Name string
	Lat  float64
	Lng  float64
}

// DefaultCities are the hotspots seeded by SeedDev
var DefaultCities = []City{
	{"New York", 40.7128, -74.0060},
	{"San Francisco", 37.7749, -122.4194},
	{"London", 51.5074, -0.1278},
	{"Berlin", 52.5200, 13.4050},
	{"Tokyo", 35.6762, 139.6503},
}

// Counts sizes one seeding run
type Counts struct {
	Users          int
	PostsPerUser   int
	RepliesPerPost int
}

// Seeder handles database seeding operations
type Seeder struct {
	db         *gorm.DB
	faker      *gofakeit.Faker
	anonymizer *geo.Anonymizer
	allocator  *threads.Allocator
	cities     []City
}

// NewSeeder creates a seeder. A zero seed picks a random one.
func NewSeeder(db *gorm.DB, seed uint64) *Seeder {
	return &Seeder{
		db:         db,
		faker:      gofakeit.New(seed),
		anonymizer: geo.NewAnonymizer(geo.DefaultRadiusMeters),
		allocator:  threads.NewAllocator(repository.NewThreadRepository(db), threads.DefaultConfig()),
		cities:     DefaultCities,
	}
}

// SeedDev seeds the development database with realistic data
func (s *Seeder) SeedDev(ctx context.Context) error {
	return s.Seed(ctx, Counts{Users: 50, PostsPerUser: 4, RepliesPerPost: 3})
}

// SeedTest seeds a handful of rows
func (s *Seeder) SeedTest(ctx context.Context) error {
	return s.Seed(ctx, Counts{Users: 5, PostsPerUser: 2, RepliesPerPost: 2})
}

// Seed creates users spread over the hotspots, their posts and replies from
// other users, and one pending circle reward per user
func (s *Seeder) Seed(ctx context.Context, counts Counts) error {
	logger.Log.Info("Creating users...", zap.Int("count", counts.Users))
	users, err := s.seedUsers(ctx, counts.Users)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	logger.Log.Info("Creating posts...")
	posts, err := s.seedPosts(ctx, users, counts.PostsPerUser)
	if err != nil {
		return fmt.Errorf("failed to seed posts: %w", err)
	}

	logger.Log.Info("Creating replies...")
	if err := s.seedReplies(ctx, users, posts, counts.RepliesPerPost); err != nil {
		return fmt.Errorf("failed to seed replies: %w", err)
	}

	logger.Log.Info("Creating circles and rewards...")
	if err := s.seedCircles(ctx, users); err != nil {
		return fmt.Errorf("failed to seed circles: %w", err)
	}

	logger.Log.Info("Seeding complete",
		zap.Int("users", len(users)),
		zap.Int("posts", len(posts)))
	return nil
}

func (s *Seeder) seedUsers(ctx context.Context, n int) ([]models.User, error) {
	users := make([]models.User, 0, n)
	for i := 0; i < n; i++ {
		city := s.cities[i%len(s.cities)]
		lat, lng := geo.Randomize(city.Lat, city.Lng, 3000)
		user := models.User{ID: s.faker.UUID(), Lat: &lat, Lng: &lng}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) seedPosts(ctx context.Context, users []models.User, perUser int) ([]models.Post, error) {
	posts := make([]models.Post, 0, len(users)*perUser)
	repo := repository.NewPostRepository(s.db)

	for _, u := range users {
		for i := 0; i < perUser; i++ {
			lat, lng := s.anonymizer.Randomize(*u.Lat, *u.Lng)
			userID := u.ID
			post := models.Post{
				Content:   s.confession(),
				Lat:       lat,
				Lng:       lng,
				UserID:    &userID,
				Views:     int64(s.faker.IntRange(0, 500)),
				CreatedAt: s.faker.DateRange(time.Now().AddDate(0, -1, 0), time.Now()).UTC(),
			}
			if err := repo.CreatePost(ctx, &post); err != nil {
				return nil, err
			}
			posts = append(posts, post)
		}
	}
	return posts, nil
}

func (s *Seeder) seedReplies(ctx context.Context, users []models.User, posts []models.Post, perPost int) error {
	if len(users) < 2 {
		return nil
	}
	repo := repository.NewReplyRepository(s.db)

	for _, post := range posts {
		for i := 0; i < perPost; i++ {
			replier := users[s.faker.IntRange(0, len(users)-1)]
			threadID, err := s.allocator.Allocate(ctx, post.ID, replier.ID)
			if err != nil {
				logger.Log.Warn("Skipping seeded reply", zap.String("post_id", post.ID), zap.Error(err))
				continue
			}
			replierID := replier.ID
			reply := models.Reply{
				PostID:    post.ID,
				UserID:    &replierID,
				Content:   s.confession(),
				ThreadID:  threadID,
				IsAuthor:  post.UserID != nil && *post.UserID == replier.ID,
				CreatedAt: post.CreatedAt.Add(time.Duration(s.faker.IntRange(1, 600)) * time.Minute),
			}
			if err := repo.CreateReply(ctx, &reply); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Seeder) seedCircles(ctx context.Context, users []models.User) error {
	circles := repository.NewCircleRepository(s.db)
	rewards := repository.NewRewardRepository(s.db)

	for _, u := range users {
		circle := &models.ViewingCircle{UserID: u.ID, Type: models.CircleTypeDefault, RadiusKm: 5}
		if err := circles.CreateCircle(ctx, circle); err != nil {
			return err
		}

		expires := time.Now().UTC().AddDate(0, 0, 14)
		reward := &models.UserReward{
			UserID:       u.ID,
			RewardType:   models.RewardTypeGiftCircle,
			RewardStatus: models.RewardStatusPending,
			RewardData:   models.JSONMap{"radius": float64(s.faker.IntRange(1, 5))},
			Title:        "A new viewing circle",
			Description:  "Pin a circle anywhere and browse secrets from there",
			ExpiresAt:    &expires,
		}
		if err := rewards.CreateReward(ctx, reward); err != nil {
			return err
		}
	}
	return nil
}

// confession returns fake text that passes content validation
func (s *Seeder) confession() string {
	for {
		text := s.faker.HipsterSentence()
		if s.faker.Bool() {
			text += " " + s.faker.HipsterSentence()
		}
		text = strings.ReplaceAll(text, "@", "")
		if validation.Validate(text) == nil {
			return text
		}
	}
}

// Clean removes every row the seeder can create, children first
func (s *Seeder) Clean(ctx context.Context) error {
	tables := []interface{}{
		&models.Reaction{},
		&models.Report{},
		&models.Reply{},
		&models.ThreadAssignment{},
		&models.Post{},
		&models.UserReward{},
		&models.ViewingCircle{},
		&models.User{},
	}
	for _, table := range tables {
		if err := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(table).Error; err != nil {
			return fmt.Errorf("failed to clean %T: %w", table, err)
		}
	}
	return nil
}
