package repository

import (
	"context"

	"github.com/zfogg/hushmap/internal/feed"
	"github.com/zfogg/hushmap/internal/models"
	"gorm.io/gorm"
)

// ReplyRepository handles all database operations for replies
type ReplyRepository interface {
	CreateReply(ctx context.Context, reply *models.Reply) error
	GetReply(ctx context.Context, replyID string) (*models.Reply, error)
	// ListReplies returns a post's replies oldest first
	ListReplies(ctx context.Context, postID string, page feed.Page) ([]models.Reply, int64, error)
	// LatestReplies returns up to perPost newest replies for each post
	LatestReplies(ctx context.Context, postIDs []string, perPost int) (map[string][]models.Reply, error)
	CountReplies(ctx context.Context, postIDs []string) (map[string]int64, error)
	// LatestByUser returns the user's newest reply on each of the posts
	LatestByUser(ctx context.Context, userID string, postIDs []string) (map[string]models.Reply, error)
}

type replyRepository struct {
	db *gorm.DB
}

// NewReplyRepository creates a new reply repository
func NewReplyRepository(db *gorm.DB) ReplyRepository {
	return &replyRepository{db: db}
}

// CreateReply inserts a reply
func (r *replyRepository) CreateReply(ctx context.Context, reply *models.Reply) error {
	if reply == nil || reply.PostID == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(reply).Error
}

// GetReply gets a reply by ID
func (r *replyRepository) GetReply(ctx context.Context, replyID string) (*models.Reply, error) {
	var reply models.Reply
	if err := r.db.WithContext(ctx).Where("id = ?", replyID).First(&reply).Error; err != nil {
		return nil, notFound(err)
	}
	return &reply, nil
}

// ListReplies lists replies in creation order
func (r *replyRepository) ListReplies(ctx context.Context, postID string, page feed.Page) ([]models.Reply, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Reply{}).Where("post_id = ?", postID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var replies []models.Reply
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Order("id ASC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&replies).Error
	return replies, total, err
}

// LatestReplies loads the newest perPost replies of each post
func (r *replyRepository) LatestReplies(ctx context.Context, postIDs []string, perPost int) (map[string][]models.Reply, error) {
	out := make(map[string][]models.Reply, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}

	for _, postID := range postIDs {
		var replies []models.Reply
		err := r.db.WithContext(ctx).
			Where("post_id = ?", postID).
			Order("created_at DESC").
			Limit(perPost).
			Find(&replies).Error
		if err != nil {
			return nil, err
		}
		out[postID] = replies
	}
	return out, nil
}

// CountReplies returns reply counts keyed by post ID
func (r *replyRepository) CountReplies(ctx context.Context, postIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		PostID string
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Reply{}).
		Select("post_id, COUNT(*) AS count").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.PostID] = row.Count
	}
	return out, nil
}

func (r *replyRepository) LatestByUser(ctx context.Context, userID string, postIDs []string) (map[string]models.Reply, error) {
	out := make(map[string]models.Reply, len(postIDs))
	for _, postID := range postIDs {
		var replies []models.Reply
		err := r.db.WithContext(ctx).
			Where("post_id = ? AND user_id = ?", postID, userID).
			Order("created_at DESC").
			Limit(1).
			Find(&replies).Error
		if err != nil {
			return nil, err
		}
		if len(replies) > 0 {
			out[postID] = replies[0]
		}
	}
	return out, nil
}
