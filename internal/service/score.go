package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"backend/internal/models"
	"backend/internal/repository"

	"gorm.io/gorm"
)

// activityKind selects which ledger counters a mutation touches
type activityKind int

const (
	kindReaction activityKind = iota
	kindComment
	kindPollVote
)

// ScoreService owns the per-user score ledger: point mutations, lazy window
// rollover, ranking, live leaderboards and historical snapshots
type ScoreService struct {
	scores         *repository.ScoreRepository
	cache          *repository.RedisRepository
	pollVotePoints int
	cacheTTL       time.Duration
}

// NewScoreService creates a new score service. cache may be nil (tests,
// seeder); the service then runs uncached.
func NewScoreService(scores *repository.ScoreRepository, cache *repository.RedisRepository, pollVotePoints int, cacheTTL time.Duration) *ScoreService {
	if pollVotePoints <= 0 {
		pollVotePoints = ReactionPoints
	}
	return &ScoreService{
		scores:         scores,
		cache:          cache,
		pollVotePoints: pollVotePoints,
		cacheTTL:       cacheTTL,
	}
}

// GetOrCreate returns the user's ledger entry, creating it on first use and
// rolling stale windows over before returning it
func (s *ScoreService) GetOrCreate(ctx context.Context, userID uint) (*models.UserScore, error) {
	now := time.Now().UTC()

	var entry *models.UserScore
	err := s.scores.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		entry, err = s.scores.GetOrCreate(ctx, tx, userID, WeekStart(now), MonthStart(now))
		if err != nil {
			return err
		}

		weeklyReset := resetWeeklyIfNeeded(entry, now)
		monthlyReset := resetMonthlyIfNeeded(entry, now)
		if weeklyReset || monthlyReset {
			return s.scores.Save(ctx, tx, entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get or create ledger entry: %w", err)
	}
	return entry, nil
}

// AddReactionPoints credits one reaction to the user's ledger
func (s *ScoreService) AddReactionPoints(ctx context.Context, userID uint) error {
	return s.mutate(ctx, userID, kindReaction, +1)
}

// RemoveReactionPoints debits one reaction from the user's ledger
func (s *ScoreService) RemoveReactionPoints(ctx context.Context, userID uint) error {
	return s.mutate(ctx, userID, kindReaction, -1)
}

// AddCommentPoints credits one comment to the user's ledger
func (s *ScoreService) AddCommentPoints(ctx context.Context, userID uint) error {
	return s.mutate(ctx, userID, kindComment, +1)
}

// RemoveCommentPoints debits one comment from the user's ledger
func (s *ScoreService) RemoveCommentPoints(ctx context.Context, userID uint) error {
	return s.mutate(ctx, userID, kindComment, -1)
}

// AddPollVotePoints credits one poll vote to the user's ledger
func (s *ScoreService) AddPollVotePoints(ctx context.Context, userID uint) error {
	return s.mutate(ctx, userID, kindPollVote, +1)
}

// RemovePollVotePoints debits one poll vote from the user's ledger
func (s *ScoreService) RemovePollVotePoints(ctx context.Context, userID uint) error {
	return s.mutate(ctx, userID, kindPollVote, -1)
}

// mutate applies one activity unit to the ledger inside a transaction:
// get-or-create the entry, roll stale windows over, then shift points and
// counters together so points stay derived from counts.
func (s *ScoreService) mutate(ctx context.Context, userID uint, kind activityKind, delta int) error {
	now := time.Now().UTC()
	weight := s.weightOf(kind)

	err := s.scores.Transaction(ctx, func(tx *gorm.DB) error {
		entry, err := s.scores.GetOrCreate(ctx, tx, userID, WeekStart(now), MonthStart(now))
		if err != nil {
			return err
		}

		resetWeeklyIfNeeded(entry, now)
		resetMonthlyIfNeeded(entry, now)

		if delta > 0 {
			entry.TotalPoints += weight
			entry.WeeklyPoints += weight
			entry.MonthlyPoints += weight
			s.shiftCounters(entry, kind, +1)
		} else {
			// Each field clamps at zero independently
			entry.TotalPoints = clamp(entry.TotalPoints - weight)
			entry.WeeklyPoints = clamp(entry.WeeklyPoints - weight)
			entry.MonthlyPoints = clamp(entry.MonthlyPoints - weight)
			s.shiftCounters(entry, kind, -1)
		}

		return s.scores.Save(ctx, tx, entry)
	})
	if err != nil {
		return fmt.Errorf("failed to update ledger for user %d: %w", userID, err)
	}

	s.invalidateCache(ctx)
	return nil
}

// shiftCounters moves the activity counters for one kind across all three
// windows, clamping at zero on decrement
func (s *ScoreService) shiftCounters(entry *models.UserScore, kind activityKind, delta int) {
	apply := func(field *int) {
		if delta > 0 {
			*field += delta
		} else {
			*field = clamp(*field + delta)
		}
	}

	switch kind {
	case kindReaction:
		apply(&entry.TotalReactions)
		apply(&entry.WeeklyReactions)
		apply(&entry.MonthlyReactions)
	case kindComment:
		apply(&entry.TotalComments)
		apply(&entry.WeeklyComments)
		apply(&entry.MonthlyComments)
	case kindPollVote:
		apply(&entry.TotalPollVotes)
		apply(&entry.WeeklyPollVotes)
		apply(&entry.MonthlyPollVotes)
	}
}

func (s *ScoreService) weightOf(kind activityKind) int {
	switch kind {
	case kindComment:
		return CommentPoints
	case kindPollVote:
		return s.pollVotePoints
	default:
		return ReactionPoints
	}
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// invalidateCache drops cached leaderboards and bumps the change-detection
// version. Best-effort: the database already holds the truth.
func (s *ScoreService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		log.Printf("Failed to invalidate leaderboard cache: %v", err)
	}
}

// HealthCheck checks the health of PostgreSQL and, when configured, Redis
func (s *ScoreService) HealthCheck(ctx context.Context) error {
	if err := s.scores.Ping(ctx); err != nil {
		return fmt.Errorf("PostgreSQL health check failed: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			return fmt.Errorf("Redis health check failed: %w", err)
		}
	}
	return nil
}
