package service

import (
	"context"
	"errors"
	"log"

	"backend/internal/models"
	"backend/internal/repository"
	"backend/internal/worker"

	"gorm.io/gorm"
)

// ActivityService reacts to committed content mutations: it adjusts the
// score ledger and keeps the denormalized content counters in sync. The two
// halves are independent: a failure in one is logged and never prevents the
// other, and neither aborts the content mutation that triggered the hook.
type ActivityService struct {
	scores *ScoreService
	feed   *repository.FeedRepository
	pool   *worker.WorkerPool
}

// NewActivityService creates a new activity service. pool may be nil; cache
// re-warming is then skipped.
func NewActivityService(scores *ScoreService, feed *repository.FeedRepository, pool *worker.WorkerPool) *ActivityService {
	return &ActivityService{
		scores: scores,
		feed:   feed,
		pool:   pool,
	}
}

// CommentCreated handles a committed comment creation
func (a *ActivityService) CommentCreated(ctx context.Context, comment *models.Comment) {
	a.refreshCommentCounters(ctx, comment)

	if err := a.scores.AddCommentPoints(ctx, comment.AuthorID); err != nil {
		log.Printf("Failed to add comment points for user %d: %v", comment.AuthorID, err)
	}
	a.refreshLeaderboards()
}

// CommentDeleted handles a committed comment deletion
func (a *ActivityService) CommentDeleted(ctx context.Context, comment *models.Comment) {
	a.refreshCommentCounters(ctx, comment)

	if err := a.scores.RemoveCommentPoints(ctx, comment.AuthorID); err != nil {
		log.Printf("Failed to remove comment points for user %d: %v", comment.AuthorID, err)
	}
	a.refreshLeaderboards()
}

// ReactionCreated handles a committed reaction creation
func (a *ActivityService) ReactionCreated(ctx context.Context, reaction *models.PostReaction) {
	a.refreshReactionCounter(ctx, reaction.PostID)

	if err := a.scores.AddReactionPoints(ctx, reaction.UserID); err != nil {
		log.Printf("Failed to add reaction points for user %d: %v", reaction.UserID, err)
	}
	a.refreshLeaderboards()
}

// ReactionDeleted handles a committed reaction deletion
func (a *ActivityService) ReactionDeleted(ctx context.Context, reaction *models.PostReaction) {
	a.refreshReactionCounter(ctx, reaction.PostID)

	if err := a.scores.RemoveReactionPoints(ctx, reaction.UserID); err != nil {
		log.Printf("Failed to remove reaction points for user %d: %v", reaction.UserID, err)
	}
	a.refreshLeaderboards()
}

// PollVoteCreated handles a committed poll vote
func (a *ActivityService) PollVoteCreated(ctx context.Context, vote *models.PollVote) {
	a.adjustVoteCounters(ctx, vote, +1)

	if err := a.scores.AddPollVotePoints(ctx, vote.UserID); err != nil {
		log.Printf("Failed to add poll vote points for user %d: %v", vote.UserID, err)
	}
	a.refreshLeaderboards()
}

// PollVoteDeleted handles a committed poll vote retraction
func (a *ActivityService) PollVoteDeleted(ctx context.Context, vote *models.PollVote) {
	a.adjustVoteCounters(ctx, vote, -1)

	if err := a.scores.RemovePollVotePoints(ctx, vote.UserID); err != nil {
		log.Printf("Failed to remove poll vote points for user %d: %v", vote.UserID, err)
	}
	a.refreshLeaderboards()
}

// refreshCommentCounters recomputes post.comments_count and, for replies,
// parent.replies_count from live counts of active comments. Recomputing
// instead of incrementing keeps counters drift-free across soft deletes and
// partial failures. A post or parent already gone (cascade-deleted) is
// tolerated.
func (a *ActivityService) refreshCommentCounters(ctx context.Context, comment *models.Comment) {
	count, err := a.feed.ActiveCommentCount(ctx, comment.PostID)
	if err != nil {
		log.Printf("Failed to count comments on post %d: %v", comment.PostID, err)
	} else if err := a.feed.SetPostCommentsCount(ctx, comment.PostID, count); err != nil {
		a.logCounterError("comments_count", comment.PostID, err)
	}

	if comment.ParentID == nil {
		return
	}

	replies, err := a.feed.ActiveReplyCount(ctx, *comment.ParentID)
	if err != nil {
		log.Printf("Failed to count replies of comment %d: %v", *comment.ParentID, err)
		return
	}
	if err := a.feed.SetCommentRepliesCount(ctx, *comment.ParentID, replies); err != nil {
		a.logCounterError("replies_count", *comment.ParentID, err)
	}
}

// refreshReactionCounter recomputes post.reactions_count from the live
// reaction count
func (a *ActivityService) refreshReactionCounter(ctx context.Context, postID uint) {
	count, err := a.feed.ReactionCount(ctx, postID)
	if err != nil {
		log.Printf("Failed to count reactions on post %d: %v", postID, err)
		return
	}
	if err := a.feed.SetPostReactionsCount(ctx, postID, count); err != nil {
		a.logCounterError("reactions_count", postID, err)
	}
}

// adjustVoteCounters shifts poll.total_votes and option.votes_count
func (a *ActivityService) adjustVoteCounters(ctx context.Context, vote *models.PollVote, delta int) {
	if err := a.feed.AdjustPollVoteCounts(ctx, vote.PollID, vote.OptionID, delta); err != nil {
		a.logCounterError("poll vote counters", vote.PollID, err)
	}
}

func (a *ActivityService) logCounterError(counter string, id uint, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Target already cascade-deleted; the recompute is moot
		log.Printf("Skipping %s update for deleted record %d", counter, id)
		return
	}
	log.Printf("Failed to update %s for record %d: %v", counter, id, err)
}

// refreshLeaderboards queues cache re-warms for all three windows
func (a *ActivityService) refreshLeaderboards() {
	if a.pool == nil {
		return
	}
	for _, period := range []models.PeriodType{models.PeriodAllTime, models.PeriodWeekly, models.PeriodMonthly} {
		if err := a.pool.Submit(worker.RefreshTask{Period: period}); err != nil {
			// Dropped under backpressure; the cache TTL bounds staleness
			return
		}
	}
}
