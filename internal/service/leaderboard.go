package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"backend/internal/models"
)

// Rank returns the user's 1-based standing in a window: one more than the
// number of ledger entries with strictly greater points. Ties therefore
// share a rank here, which can diverge from the positional ranks the
// leaderboard listing assigns.
func (s *ScoreService) Rank(ctx context.Context, userID uint, period models.PeriodType) (*models.RankResponse, error) {
	now := time.Now().UTC()
	if err := s.scores.RolloverStale(ctx, WeekStart(now), MonthStart(now)); err != nil {
		return nil, fmt.Errorf("failed to roll windows over: %w", err)
	}

	entry, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	points := entry.PointsFor(period)
	greater, err := s.scores.CountGreater(ctx, period, points)
	if err != nil {
		return nil, fmt.Errorf("failed to count higher-scoring entries: %w", err)
	}

	return &models.RankResponse{
		UserID: userID,
		Period: period,
		Rank:   int(greater) + 1,
		Points: points,
	}, nil
}

// Leaderboard returns the top entries for a window, ordered by points
// descending with most-recently-updated first on ties. Ranks are assigned
// by position in this ordering. Every stale ledger row is rolled over first.
func (s *ScoreService) Leaderboard(ctx context.Context, period models.PeriodType, limit int) (*models.LeaderboardResponse, error) {
	if limit <= 0 || limit > models.MaxLeaderboardLimit {
		limit = models.DefaultLeaderboardLimit
	}

	now := time.Now().UTC()
	if err := s.scores.RolloverStale(ctx, WeekStart(now), MonthStart(now)); err != nil {
		return nil, fmt.Errorf("failed to roll windows over: %w", err)
	}

	entries, err := s.scores.Top(ctx, period, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load top entries: %w", err)
	}

	userIDs := make([]uint, len(entries))
	for i, entry := range entries {
		userIDs[i] = entry.UserID
	}
	usernames, err := s.scores.GetUsernames(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve usernames: %w", err)
	}

	rows := make([]models.LeaderboardRow, 0, len(entries))
	for i, entry := range entries {
		rows = append(rows, models.LeaderboardRow{
			Rank:     i + 1,
			UserID:   entry.UserID,
			Username: usernames[entry.UserID],
			Points:   entry.PointsFor(period),
		})
	}

	return &models.LeaderboardResponse{
		Period: period,
		Limit:  limit,
		Data:   rows,
	}, nil
}

// CachedLeaderboard serves the leaderboard from Redis when possible and
// falls back to the database, re-warming the cache on a miss. Only the
// default-sized listing is cached.
func (s *ScoreService) CachedLeaderboard(ctx context.Context, period models.PeriodType, limit int) (*models.LeaderboardResponse, error) {
	if limit <= 0 || limit > models.MaxLeaderboardLimit {
		limit = models.DefaultLeaderboardLimit
	}

	if s.cache == nil || limit != models.DefaultLeaderboardLimit {
		return s.Leaderboard(ctx, period, limit)
	}

	if payload, err := s.cache.GetLeaderboard(ctx, period); err == nil {
		var cached models.LeaderboardResponse
		if err := json.Unmarshal(payload, &cached); err == nil {
			return &cached, nil
		}
		log.Printf("Discarding malformed cached leaderboard for %s", period)
	}

	response, err := s.Leaderboard(ctx, period, limit)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(response); err == nil {
		if err := s.cache.StoreLeaderboard(ctx, period, payload, s.cacheTTL); err != nil {
			log.Printf("Failed to cache leaderboard for %s: %v", period, err)
		}
	}

	return response, nil
}

// SaveSnapshot materializes the current weekly or monthly leaderboard into
// historical records keyed by calendar period. Top entries with zero points
// are skipped; re-running within the same period overwrites prior rows.
// Rows from an earlier run for users who have since dropped out of the top
// are left in place.
func (s *ScoreService) SaveSnapshot(ctx context.Context, period models.PeriodType) (int, error) {
	if period != models.PeriodWeekly && period != models.PeriodMonthly {
		return 0, fmt.Errorf("snapshots cover weekly and monthly periods, got %q", period)
	}

	now := time.Now().UTC()
	if err := s.scores.RolloverStale(ctx, WeekStart(now), MonthStart(now)); err != nil {
		return 0, fmt.Errorf("failed to roll windows over: %w", err)
	}

	entries, err := s.scores.Top(ctx, period, models.SnapshotSize)
	if err != nil {
		return 0, fmt.Errorf("failed to load top entries: %w", err)
	}

	year, number := PeriodKey(period, now)

	saved := 0
	for i, entry := range entries {
		points := entry.PointsFor(period)
		if points <= 0 {
			continue
		}

		record := models.LeaderboardEntry{
			UserID:       entry.UserID,
			PeriodType:   period,
			Year:         year,
			PeriodNumber: number,
			Points:       points,
			Rank:         i + 1,
		}
		if period == models.PeriodWeekly {
			record.Reactions = entry.WeeklyReactions
			record.Comments = entry.WeeklyComments
			record.PollVotes = entry.WeeklyPollVotes
		} else {
			record.Reactions = entry.MonthlyReactions
			record.Comments = entry.MonthlyComments
			record.PollVotes = entry.MonthlyPollVotes
		}

		if err := s.scores.UpsertLeaderboardEntry(ctx, &record); err != nil {
			return saved, fmt.Errorf("failed to save snapshot row for user %d: %w", entry.UserID, err)
		}
		saved++
	}

	log.Printf("Saved %s snapshot for period %d/%d: %d entries", period, year, number, saved)
	return saved, nil
}

// History returns the stored snapshot rows for one calendar period,
// ordered by rank
func (s *ScoreService) History(ctx context.Context, period models.PeriodType, year, number int) ([]models.LeaderboardEntry, error) {
	if period != models.PeriodWeekly && period != models.PeriodMonthly {
		return nil, fmt.Errorf("history covers weekly and monthly periods, got %q", period)
	}
	return s.scores.GetLeaderboardEntries(ctx, period, year, number)
}
