package service

import (
	"context"
	"errors"
	"fmt"

	"backend/internal/models"
	"backend/internal/repository"

	"gorm.io/gorm"
)

// Content command errors surfaced to the HTTP layer
var (
	ErrNotFound       = errors.New("record not found")
	ErrTooDeep        = errors.New("comments can only be nested 2 levels deep")
	ErrAlreadyVoted   = errors.New("user has already voted on this poll")
	ErrOptionMismatch = errors.New("option does not belong to this poll")
	ErrInactive       = errors.New("content is no longer active")
)

// FeedService executes content mutations and fires the matching activity
// hook after each committed change
type FeedService struct {
	feed  *repository.FeedRepository
	hooks *ActivityService
}

// NewFeedService creates a new feed service
func NewFeedService(feed *repository.FeedRepository, hooks *ActivityService) *FeedService {
	return &FeedService{
		feed:  feed,
		hooks: hooks,
	}
}

// CreatePost creates a new feed post
func (f *FeedService) CreatePost(ctx context.Context, req models.CreatePostRequest) (*models.Post, error) {
	post := &models.Post{
		AuthorID: req.AuthorID,
		Content:  req.Content,
		IsActive: true,
	}
	if err := f.feed.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	return post, nil
}

// DeletePost soft-deletes a post. Scoring is untouched: only comments,
// reactions and poll votes carry points.
func (f *FeedService) DeletePost(ctx context.Context, postID uint) error {
	if _, err := f.getActivePost(ctx, postID); err != nil {
		return err
	}
	return f.feed.DeactivatePost(ctx, postID)
}

// CreateComment adds a comment (or a reply) to a post and fires the
// comment-created hook
func (f *FeedService) CreateComment(ctx context.Context, postID uint, req models.CreateCommentRequest) (*models.Comment, error) {
	if _, err := f.getActivePost(ctx, postID); err != nil {
		return nil, err
	}

	if req.ParentID != nil {
		parent, err := f.feed.GetComment(ctx, *req.ParentID)
		if err != nil {
			return nil, f.wrapNotFound(err, "parent comment")
		}
		if parent.PostID != postID {
			return nil, ErrNotFound
		}
		if parent.ParentID != nil {
			return nil, ErrTooDeep
		}
	}

	comment := &models.Comment{
		PostID:   postID,
		AuthorID: req.AuthorID,
		ParentID: req.ParentID,
		Content:  req.Content,
		IsActive: true,
	}
	if err := f.feed.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	f.hooks.CommentCreated(ctx, comment)
	return comment, nil
}

// DeleteComment hard-deletes a comment and its replies. Every removed
// comment fires the deletion hook, so reply authors lose their points too.
func (f *FeedService) DeleteComment(ctx context.Context, commentID uint) error {
	comment, err := f.feed.GetComment(ctx, commentID)
	if err != nil {
		return f.wrapNotFound(err, "comment")
	}

	replies, err := f.feed.GetReplies(ctx, commentID)
	if err != nil {
		return fmt.Errorf("failed to load replies: %w", err)
	}

	for i := range replies {
		if err := f.feed.DeleteComment(ctx, replies[i].ID); err != nil {
			return fmt.Errorf("failed to delete reply %d: %w", replies[i].ID, err)
		}
		f.hooks.CommentDeleted(ctx, &replies[i])
	}

	if err := f.feed.DeleteComment(ctx, commentID); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	f.hooks.CommentDeleted(ctx, comment)
	return nil
}

// AddReaction records a user's reaction on a post. Re-reacting with a
// different type replaces the stored type without re-scoring; only a fresh
// reaction fires the creation hook.
func (f *FeedService) AddReaction(ctx context.Context, postID uint, req models.ReactionRequest) (*models.PostReaction, error) {
	if _, err := f.getActivePost(ctx, postID); err != nil {
		return nil, err
	}

	reactionType := req.ReactionType
	if reactionType == "" {
		reactionType = models.ReactionLove
	}

	existing, err := f.feed.GetReaction(ctx, postID, req.UserID)
	if err == nil {
		if existing.ReactionType != reactionType {
			if err := f.feed.UpdateReactionType(ctx, existing.ID, reactionType); err != nil {
				return nil, fmt.Errorf("failed to update reaction: %w", err)
			}
			existing.ReactionType = reactionType
		}
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	reaction := &models.PostReaction{
		PostID:       postID,
		UserID:       req.UserID,
		ReactionType: reactionType,
	}
	if err := f.feed.CreateReaction(ctx, reaction); err != nil {
		return nil, fmt.Errorf("failed to create reaction: %w", err)
	}

	f.hooks.ReactionCreated(ctx, reaction)
	return reaction, nil
}

// RemoveReaction deletes a user's reaction on a post and fires the
// deletion hook
func (f *FeedService) RemoveReaction(ctx context.Context, postID, userID uint) error {
	reaction, err := f.feed.GetReaction(ctx, postID, userID)
	if err != nil {
		return f.wrapNotFound(err, "reaction")
	}

	if err := f.feed.DeleteReaction(ctx, reaction.ID); err != nil {
		return fmt.Errorf("failed to delete reaction: %w", err)
	}

	f.hooks.ReactionDeleted(ctx, reaction)
	return nil
}

// CreatePoll creates a poll with its options
func (f *FeedService) CreatePoll(ctx context.Context, req models.CreatePollRequest) (*models.Poll, []models.PollOption, error) {
	poll := &models.Poll{
		AuthorID: req.AuthorID,
		Question: req.Question,
		IsActive: true,
	}
	options := make([]models.PollOption, len(req.Options))
	for i, text := range req.Options {
		options[i] = models.PollOption{Text: text}
	}

	if err := f.feed.CreatePoll(ctx, poll, options); err != nil {
		return nil, nil, fmt.Errorf("failed to create poll: %w", err)
	}
	return poll, options, nil
}

// CastVote records a user's vote on a poll and fires the vote-created hook.
// One vote per user per poll.
func (f *FeedService) CastVote(ctx context.Context, pollID uint, req models.VoteRequest) (*models.PollVote, error) {
	poll, err := f.feed.GetPoll(ctx, pollID)
	if err != nil {
		return nil, f.wrapNotFound(err, "poll")
	}
	if !poll.IsActive {
		return nil, ErrInactive
	}

	option, err := f.feed.GetPollOption(ctx, req.OptionID)
	if err != nil {
		return nil, f.wrapNotFound(err, "poll option")
	}
	if option.PollID != pollID {
		return nil, ErrOptionMismatch
	}

	if _, err := f.feed.GetVote(ctx, pollID, req.UserID); err == nil {
		return nil, ErrAlreadyVoted
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	vote := &models.PollVote{
		PollID:   pollID,
		OptionID: req.OptionID,
		UserID:   req.UserID,
	}
	if err := f.feed.CreateVote(ctx, vote); err != nil {
		return nil, fmt.Errorf("failed to cast vote: %w", err)
	}

	f.hooks.PollVoteCreated(ctx, vote)
	return vote, nil
}

// RetractVote deletes a user's vote on a poll and fires the deletion hook
func (f *FeedService) RetractVote(ctx context.Context, pollID, userID uint) error {
	vote, err := f.feed.GetVote(ctx, pollID, userID)
	if err != nil {
		return f.wrapNotFound(err, "vote")
	}

	if err := f.feed.DeleteVote(ctx, vote.ID); err != nil {
		return fmt.Errorf("failed to delete vote: %w", err)
	}

	f.hooks.PollVoteDeleted(ctx, vote)
	return nil
}

func (f *FeedService) getActivePost(ctx context.Context, postID uint) (*models.Post, error) {
	post, err := f.feed.GetPost(ctx, postID)
	if err != nil {
		return nil, f.wrapNotFound(err, "post")
	}
	if !post.IsActive {
		return nil, ErrInactive
	}
	return post, nil
}

func (f *FeedService) wrapNotFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}
