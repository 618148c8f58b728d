package models

import (
	"time"
)

// ReactionType enumerates the supported post reactions
const (
	ReactionLove  = "love"
	ReactionHaha  = "haha"
	ReactionSad   = "sad"
	ReactionAngry = "angry"
)

// Post is a feed post. ReactionsCount and CommentsCount are denormalized
// for read performance and recomputed from live counts by the activity hooks.
type Post struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	AuthorID       uint      `gorm:"not null;index" json:"author_id"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	ReactionsCount int       `gorm:"not null;default:0" json:"reactions_count"`
	CommentsCount  int       `gorm:"not null;default:0" json:"comments_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Post) TableName() string {
	return "posts"
}

// Comment belongs to a post and optionally to a parent comment.
// Nesting is limited to two levels (a reply cannot itself have replies).
type Comment struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	PostID       uint      `gorm:"not null;index" json:"post_id"`
	AuthorID     uint      `gorm:"not null;index" json:"author_id"`
	ParentID     *uint     `gorm:"index" json:"parent_id,omitempty"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	RepliesCount int       `gorm:"not null;default:0" json:"replies_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Comment) TableName() string {
	return "comments"
}

// PostReaction is one reaction per user per post
type PostReaction struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	PostID       uint      `gorm:"not null;uniqueIndex:idx_reaction_post_user" json:"post_id"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_reaction_post_user" json:"user_id"`
	ReactionType string    `gorm:"size:10;not null" json:"reaction_type"`
	CreatedAt    time.Time `json:"created_at"`
}

func (PostReaction) TableName() string {
	return "post_reactions"
}

// Poll is a question with options users vote on. TotalVotes is denormalized
// and adjusted by the activity hooks alongside PollOption.VotesCount.
type Poll struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	AuthorID   uint      `gorm:"not null;index" json:"author_id"`
	Question   string    `gorm:"type:text;not null" json:"question"`
	IsActive   bool      `gorm:"not null;default:true" json:"is_active"`
	TotalVotes int       `gorm:"not null;default:0" json:"total_votes"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Poll) TableName() string {
	return "polls"
}

// PollOption is a single answer choice on a poll
type PollOption struct {
	ID         uint   `gorm:"primarykey" json:"id"`
	PollID     uint   `gorm:"not null;index" json:"poll_id"`
	Text       string `gorm:"not null" json:"text"`
	VotesCount int    `gorm:"not null;default:0" json:"votes_count"`
}

func (PollOption) TableName() string {
	return "poll_options"
}

// PollVote is one vote per user per poll
type PollVote struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	PollID    uint      `gorm:"not null;uniqueIndex:idx_vote_poll_user" json:"poll_id"`
	OptionID  uint      `gorm:"not null;index" json:"option_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_vote_poll_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (PollVote) TableName() string {
	return "poll_votes"
}

// CreatePostRequest is the payload for creating a post
type CreatePostRequest struct {
	AuthorID uint   `json:"author_id" validate:"required"`
	Content  string `json:"content" validate:"required,min=1,max=2000"`
}

// CreateCommentRequest is the payload for commenting on a post
type CreateCommentRequest struct {
	AuthorID uint   `json:"author_id" validate:"required"`
	ParentID *uint  `json:"parent_id,omitempty"`
	Content  string `json:"content" validate:"required,min=1,max=1000"`
}

// ReactionRequest is the payload for adding or removing a reaction
type ReactionRequest struct {
	UserID       uint   `json:"user_id" validate:"required"`
	ReactionType string `json:"reaction_type" validate:"omitempty,oneof=love haha sad angry"`
}

// CreatePollRequest is the payload for creating a poll with its options
type CreatePollRequest struct {
	AuthorID uint     `json:"author_id" validate:"required"`
	Question string   `json:"question" validate:"required,min=1,max=500"`
	Options  []string `json:"options" validate:"required,min=2,max=10,dive,required,max=200"`
}

// VoteRequest is the payload for casting or retracting a poll vote
type VoteRequest struct {
	UserID   uint `json:"user_id" validate:"required"`
	OptionID uint `json:"option_id,omitempty"`
}
