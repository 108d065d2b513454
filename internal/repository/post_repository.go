package repository

import (
	"context"
	"sort"
	"time"

	"github.com/zfogg/hushmap/internal/feed"
	"github.com/zfogg/hushmap/internal/geo"
	"github.com/zfogg/hushmap/internal/models"
	"gorm.io/gorm"
)

// PostWithDistance is a post plus its distance from the query center
type PostWithDistance struct {
	models.Post
	DistanceMeters float64 `json:"distance_meters"`
}

// Location is a bare coordinate
type Location struct {
	Lat float64
	Lng float64
}

// UserPostStats summarizes a user's activity
type UserPostStats struct {
	PostCount       int64 `json:"post_count"`
	TotalViews      int64 `json:"total_views"`
	RepliesReceived int64 `json:"replies_received"`
	RepliesWritten  int64 `json:"replies_written"`
}

// PostRepository handles all database operations for posts
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, postID string) (*models.Post, error)
	DeletePost(ctx context.Context, postID string) error
	IncrementViews(ctx context.Context, postID string) (int64, error)

	// Feed queries. Hidden posts are never returned.
	ListInBounds(ctx context.Context, bounds geo.Bounds, page feed.Page, order feed.Sort) ([]models.Post, int64, error)
	// ListInBoundsInCountry is ListInBounds restricted to posts made in one country
	ListInBoundsInCountry(ctx context.Context, bounds geo.Bounds, countryCode string, page feed.Page, order feed.Sort) ([]models.Post, int64, error)
	ListNearby(ctx context.Context, lat, lng, radiusMeters float64, page feed.Page, order feed.Sort) ([]PostWithDistance, int64, error)
	ListByUser(ctx context.Context, userID string, page feed.Page) ([]models.Post, int64, error)
	// ListRepliedTo lists posts the user replied to, most recently replied first
	ListRepliedTo(ctx context.Context, userID string, page feed.Page) ([]models.Post, int64, error)
	UserStats(ctx context.Context, userID string) (*UserPostStats, error)
	// ListInAreas lists posts inside any of the areas; DistanceMeters is to the nearest center
	ListInAreas(ctx context.Context, areas []feed.Radius, page feed.Page, order feed.Sort) ([]PostWithDistance, int64, error)

	// RecentLocations returns where posts were made since the given time
	RecentLocations(ctx context.Context, since time.Time, limit int) ([]Location, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// CreatePost inserts a post
func (r *postRepository) CreatePost(ctx context.Context, post *models.Post) error {
	if post == nil {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(post).Error
}

// GetPost gets a visible post by ID
func (r *postRepository) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Where("id = ? AND hidden = ?", postID, false).
		First(&post).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &post, nil
}

// DeletePost removes a post and everything hanging off it
func (r *postRepository) DeletePost(ctx context.Context, postID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var replyIDs []string
		if err := tx.Model(&models.Reply{}).Where("post_id = ?", postID).Pluck("id", &replyIDs).Error; err != nil {
			return err
		}
		if len(replyIDs) > 0 {
			if err := tx.Where("reply_id IN ?", replyIDs).Delete(&models.Reaction{}).Error; err != nil {
				return err
			}
			if err := tx.Where("reply_id IN ?", replyIDs).Delete(&models.Report{}).Error; err != nil {
				return err
			}
		}
		for _, m := range []interface{}{&models.Reaction{}, &models.Report{}, &models.Reply{}, &models.ThreadAssignment{}} {
			if err := tx.Where("post_id = ?", postID).Delete(m).Error; err != nil {
				return err
			}
		}

		res := tx.Where("id = ?", postID).Delete(&models.Post{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// IncrementViews bumps the view counter and returns the new value
func (r *postRepository) IncrementViews(ctx context.Context, postID string) (int64, error) {
	var views int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Post{}).
			Where("id = ? AND hidden = ?", postID, false).
			UpdateColumn("views", gorm.Expr("views + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Model(&models.Post{}).Where("id = ?", postID).Pluck("views", &views).Error
	})
	return views, err
}

func (r *postRepository) visible(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Post{}).Where("hidden = ?", false)
}

// ListInBounds lists posts inside a viewport
func (r *postRepository) ListInBounds(ctx context.Context, bounds geo.Bounds, page feed.Page, order feed.Sort) ([]models.Post, int64, error) {
	return r.listInBounds(func() *gorm.DB { return withinBounds(r.visible(ctx), bounds) }, page, order)
}

func (r *postRepository) ListInBoundsInCountry(ctx context.Context, bounds geo.Bounds, countryCode string, page feed.Page, order feed.Sort) ([]models.Post, int64, error) {
	return r.listInBounds(func() *gorm.DB {
		return withinBounds(r.visible(ctx), bounds).Where("country_code = ?", countryCode)
	}, page, order)
}

func (r *postRepository) listInBounds(query func() *gorm.DB, page feed.Page, order feed.Sort) ([]models.Post, int64, error) {
	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []models.Post
	err := orderBy(query(), order).
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&posts).Error
	return posts, total, err
}

// ListNearby lists posts within radiusMeters of a point. The bounding box is
// applied in SQL; the exact distance filter, ordering and paging run here.
func (r *postRepository) ListNearby(ctx context.Context, lat, lng, radiusMeters float64, page feed.Page, order feed.Sort) ([]PostWithDistance, int64, error) {
	var candidates []models.Post
	err := orderBy(withinBounds(r.visible(ctx), geo.BoundsAround(lat, lng, radiusMeters)), order).
		Limit(maxRadiusCandidates).
		Find(&candidates).Error
	if err != nil {
		return nil, 0, err
	}

	within := make([]PostWithDistance, 0, len(candidates))
	for _, p := range candidates {
		d := geo.Distance(lat, lng, p.Lat, p.Lng)
		if d <= radiusMeters {
			within = append(within, PostWithDistance{Post: p, DistanceMeters: d})
		}
	}
	return paginate(within, page)
}

// ListInAreas merges the posts of several radius areas, each post once
func (r *postRepository) ListInAreas(ctx context.Context, areas []feed.Radius, page feed.Page, order feed.Sort) ([]PostWithDistance, int64, error) {
	byID := make(map[string]int)
	var merged []PostWithDistance

	for _, area := range areas {
		var candidates []models.Post
		err := orderBy(withinBounds(r.visible(ctx), geo.BoundsAround(area.Lat, area.Lng, area.Meters())), order).
			Limit(maxRadiusCandidates).
			Find(&candidates).Error
		if err != nil {
			return nil, 0, err
		}
		for _, p := range candidates {
			d := geo.Distance(area.Lat, area.Lng, p.Lat, p.Lng)
			if d > area.Meters() {
				continue
			}
			if i, seen := byID[p.ID]; seen {
				if d < merged[i].DistanceMeters {
					merged[i].DistanceMeters = d
				}
				continue
			}
			byID[p.ID] = len(merged)
			merged = append(merged, PostWithDistance{Post: p, DistanceMeters: d})
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i].Post, merged[j].Post
		if order.Column == feed.SortViews && a.Views != b.Views {
			if order.Desc {
				return a.Views > b.Views
			}
			return a.Views < b.Views
		}
		if order.Column == feed.SortViews || order.Desc {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return paginate(merged, page)
}

func paginate(rows []PostWithDistance, page feed.Page) ([]PostWithDistance, int64, error) {
	total := int64(len(rows))
	if page.Offset < 0 || page.Offset >= len(rows) {
		return []PostWithDistance{}, total, nil
	}
	end := page.Offset + page.Limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[page.Offset:end], total, nil
}

// ListByUser lists a user's own posts, newest first
func (r *postRepository) ListByUser(ctx context.Context, userID string, page feed.Page) ([]models.Post, int64, error) {
	var total int64
	q := r.db.WithContext(ctx).Model(&models.Post{}).Where("user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []models.Post
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&posts).Error
	return posts, total, err
}

// RecentLocations returns post coordinates created since the given time
func (r *postRepository) RecentLocations(ctx context.Context, since time.Time, limit int) ([]Location, error) {
	var locations []Location
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Select("lat, lng").
		Where("created_at >= ?", since).
		Order("created_at DESC").
		Limit(limit).
		Scan(&locations).Error
	return locations, err
}

func (r *postRepository) ListRepliedTo(ctx context.Context, userID string, page feed.Page) ([]models.Post, int64, error) {
	query := func() *gorm.DB {
		mine := r.db.WithContext(ctx).
			Model(&models.Reply{}).
			Select("post_id, MAX(created_at) AS last_reply_at").
			Where("user_id = ?", userID).
			Group("post_id")
		return r.visible(ctx).Joins("JOIN (?) AS mine ON mine.post_id = posts.id", mine)
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []models.Post
	err := query().
		Order("mine.last_reply_at DESC").
		Order("posts.id").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&posts).Error
	return posts, total, err
}

func (r *postRepository) UserStats(ctx context.Context, userID string) (*UserPostStats, error) {
	var stats UserPostStats
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Select("COUNT(*) AS post_count, COALESCE(SUM(views), 0) AS total_views").
		Where("user_id = ?", userID).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}

	mine := r.db.WithContext(ctx).Model(&models.Post{}).Select("id").Where("user_id = ?", userID)
	err = r.db.WithContext(ctx).
		Model(&models.Reply{}).
		Where("post_id IN (?)", mine).
		Where("(user_id IS NULL OR user_id <> ?)", userID).
		Count(&stats.RepliesReceived).Error
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).
		Model(&models.Reply{}).
		Where("user_id = ?", userID).
		Count(&stats.RepliesWritten).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
