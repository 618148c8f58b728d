package repository

import (
	"context"

	"backend/internal/models"

	"gorm.io/gorm"
)

// FeedRepository handles PostgreSQL operations for feed content and its
// denormalized counters
type FeedRepository struct {
	db *gorm.DB
}

// NewFeedRepository creates a new feed repository
func NewFeedRepository(db *gorm.DB) *FeedRepository {
	return &FeedRepository{
		db: db,
	}
}

// CreatePost inserts a new post
func (r *FeedRepository) CreatePost(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

// GetPost retrieves a post by ID
func (r *FeedRepository) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// DeactivatePost soft-deletes a post
func (r *FeedRepository) DeactivatePost(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}

// CreateComment inserts a new comment
func (r *FeedRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// GetComment retrieves a comment by ID
func (r *FeedRepository) GetComment(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// GetReplies retrieves the direct replies of a comment
func (r *FeedRepository) GetReplies(ctx context.Context, parentID uint) ([]models.Comment, error) {
	var replies []models.Comment
	err := r.db.WithContext(ctx).Where("parent_id = ?", parentID).Find(&replies).Error
	return replies, err
}

// DeleteComment hard-deletes a single comment row
func (r *FeedRepository) DeleteComment(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Comment{}, id).Error
}

// ActiveCommentCount counts the live, active comments on a post
func (r *FeedRepository) ActiveCommentCount(ctx context.Context, postID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("post_id = ? AND is_active = ?", postID, true).
		Count(&count).Error
	return count, err
}

// ActiveReplyCount counts the live, active replies of a comment
func (r *FeedRepository) ActiveReplyCount(ctx context.Context, parentID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("parent_id = ? AND is_active = ?", parentID, true).
		Count(&count).Error
	return count, err
}

// SetPostCommentsCount writes the recomputed comment count onto the post.
// Returns gorm.ErrRecordNotFound if the post is gone (cascade-deleted).
func (r *FeedRepository) SetPostCommentsCount(ctx context.Context, postID uint, count int64) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", postID).
		Update("comments_count", count)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetCommentRepliesCount writes the recomputed reply count onto the parent.
// Returns gorm.ErrRecordNotFound if the parent is gone (cascade-deleted).
func (r *FeedRepository) SetCommentRepliesCount(ctx context.Context, commentID uint, count int64) error {
	res := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ?", commentID).
		Update("replies_count", count)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetReaction retrieves a user's reaction on a post, if any
func (r *FeedRepository) GetReaction(ctx context.Context, postID, userID uint) (*models.PostReaction, error) {
	var reaction models.PostReaction
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		First(&reaction).Error
	if err != nil {
		return nil, err
	}
	return &reaction, nil
}

// CreateReaction inserts a new reaction
func (r *FeedRepository) CreateReaction(ctx context.Context, reaction *models.PostReaction) error {
	return r.db.WithContext(ctx).Create(reaction).Error
}

// UpdateReactionType changes the type of an existing reaction in place
func (r *FeedRepository) UpdateReactionType(ctx context.Context, id uint, reactionType string) error {
	return r.db.WithContext(ctx).Model(&models.PostReaction{}).
		Where("id = ?", id).
		Update("reaction_type", reactionType).Error
}

// DeleteReaction removes a reaction row
func (r *FeedRepository) DeleteReaction(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.PostReaction{}, id).Error
}

// ReactionCount counts the live reactions on a post
func (r *FeedRepository) ReactionCount(ctx context.Context, postID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PostReaction{}).
		Where("post_id = ?", postID).
		Count(&count).Error
	return count, err
}

// SetPostReactionsCount writes the recomputed reaction count onto the post.
// Returns gorm.ErrRecordNotFound if the post is gone (cascade-deleted).
func (r *FeedRepository) SetPostReactionsCount(ctx context.Context, postID uint, count int64) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", postID).
		Update("reactions_count", count)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreatePoll inserts a poll and its options in one transaction
func (r *FeedRepository) CreatePoll(ctx context.Context, poll *models.Poll, options []models.PollOption) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(poll).Error; err != nil {
			return err
		}
		for i := range options {
			options[i].PollID = poll.ID
		}
		return tx.Create(&options).Error
	})
}

// GetPoll retrieves a poll by ID
func (r *FeedRepository) GetPoll(ctx context.Context, id uint) (*models.Poll, error) {
	var poll models.Poll
	if err := r.db.WithContext(ctx).First(&poll, id).Error; err != nil {
		return nil, err
	}
	return &poll, nil
}

// GetPollOption retrieves a poll option by ID
func (r *FeedRepository) GetPollOption(ctx context.Context, id uint) (*models.PollOption, error) {
	var option models.PollOption
	if err := r.db.WithContext(ctx).First(&option, id).Error; err != nil {
		return nil, err
	}
	return &option, nil
}

// GetVote retrieves a user's vote on a poll, if any
func (r *FeedRepository) GetVote(ctx context.Context, pollID, userID uint) (*models.PollVote, error) {
	var vote models.PollVote
	err := r.db.WithContext(ctx).
		Where("poll_id = ? AND user_id = ?", pollID, userID).
		First(&vote).Error
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

// CreateVote inserts a new poll vote
func (r *FeedRepository) CreateVote(ctx context.Context, vote *models.PollVote) error {
	return r.db.WithContext(ctx).Create(vote).Error
}

// DeleteVote removes a poll vote row
func (r *FeedRepository) DeleteVote(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.PollVote{}, id).Error
}

// AdjustPollVoteCounts shifts the denormalized vote counters on a poll and
// one of its options by delta (+1 on vote, -1 on retraction)
func (r *FeedRepository) AdjustPollVoteCounts(ctx context.Context, pollID, optionID uint, delta int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Poll{}).
			Where("id = ?", pollID).
			Update("total_votes", gorm.Expr("total_votes + ?", delta))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		res = tx.Model(&models.PollOption{}).
			Where("id = ?", optionID).
			Update("votes_count", gorm.Expr("votes_count + ?", delta))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
