package repository

import (
	"context"
	"errors"

	"github.com/zfogg/hushmap/internal/models"
	"gorm.io/gorm"
)

// Toggle outcomes
const (
	ReactionAdded   = "added"
	ReactionRemoved = "removed"
	ReactionUpdated = "updated"
)

// ReactionTarget is exactly one of a post or a reply
type ReactionTarget struct {
	PostID  string
	ReplyID string
}

func (t ReactionTarget) column() (string, string) {
	if t.PostID != "" {
		return "post_id", t.PostID
	}
	return "reply_id", t.ReplyID
}

// ReactionResult is what a toggle did and the counts afterwards
type ReactionResult struct {
	Action       string `json:"action"`
	ReactionType string `json:"reaction_type,omitempty"`
	Likes        int64  `json:"like_count"`
	Dislikes     int64  `json:"dislike_count"`
}

// ReactionRepository handles likes and dislikes
type ReactionRepository interface {
	// Toggle adds the reaction, removes it if already present, or switches type
	Toggle(ctx context.Context, userID string, target ReactionTarget, reactionType string) (*ReactionResult, error)
	ListUserReactions(ctx context.Context, userID string) ([]models.Reaction, error)
}

type reactionRepository struct {
	db *gorm.DB
}

// NewReactionRepository creates a new reaction repository
func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

func (r *reactionRepository) Toggle(ctx context.Context, userID string, target ReactionTarget, reactionType string) (*ReactionResult, error) {
	if (target.PostID == "") == (target.ReplyID == "") {
		return nil, ErrInvalidInput
	}
	column, id := target.column()
	result := &ReactionResult{}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Reaction
		err := tx.Where("user_id = ? AND "+column+" = ?", userID, id).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			reaction := models.Reaction{UserID: userID, ReactionType: reactionType}
			if target.PostID != "" {
				reaction.PostID = &target.PostID
			} else {
				reaction.ReplyID = &target.ReplyID
			}
			if err := tx.Create(&reaction).Error; err != nil {
				return err
			}
			result.Action, result.ReactionType = ReactionAdded, reactionType
		case err != nil:
			return err
		case existing.ReactionType == reactionType:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			result.Action = ReactionRemoved
		default:
			if err := tx.Model(&existing).Update("reaction_type", reactionType).Error; err != nil {
				return err
			}
			result.Action, result.ReactionType = ReactionUpdated, reactionType
		}

		var counts []struct {
			ReactionType string
			Count        int64
		}
		err = tx.Model(&models.Reaction{}).
			Select("reaction_type, COUNT(*) AS count").
			Where(column+" = ?", id).
			Group("reaction_type").
			Scan(&counts).Error
		if err != nil {
			return err
		}
		for _, c := range counts {
			switch c.ReactionType {
			case models.ReactionLike:
				result.Likes = c.Count
			case models.ReactionDislike:
				result.Dislikes = c.Count
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *reactionRepository) ListUserReactions(ctx context.Context, userID string) ([]models.Reaction, error) {
	var reactions []models.Reaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&reactions).Error
	return reactions, err
}
