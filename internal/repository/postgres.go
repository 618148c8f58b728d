package repository

import (
	"context"
	"time"

	"backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ScoreRepository handles all PostgreSQL operations for the score ledger
// and the historical leaderboard records
type ScoreRepository struct {
	db *gorm.DB
}

// NewScoreRepository creates a new score repository
func NewScoreRepository(db *gorm.DB) *ScoreRepository {
	return &ScoreRepository{
		db: db,
	}
}

// DB exposes the underlying handle for transaction composition
func (r *ScoreRepository) DB() *gorm.DB {
	return r.db
}

// pointsColumn maps a period to its ledger column. Unrecognized periods
// fall back to the all-time column.
func pointsColumn(period models.PeriodType) string {
	switch period {
	case models.PeriodWeekly:
		return "weekly_points"
	case models.PeriodMonthly:
		return "monthly_points"
	default:
		return "total_points"
	}
}

// GetOrCreate returns the ledger entry for the user, creating it with the
// given window starts if it does not exist yet
func (r *ScoreRepository) GetOrCreate(ctx context.Context, tx *gorm.DB, userID uint, weekStart, monthStart time.Time) (*models.UserScore, error) {
	if tx == nil {
		tx = r.db
	}
	entry := models.UserScore{
		UserID:           userID,
		LastWeeklyReset:  weekStart,
		LastMonthlyReset: monthStart,
	}
	err := tx.WithContext(ctx).
		Where(models.UserScore{UserID: userID}).
		Attrs(entry).
		FirstOrCreate(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Save persists a fully materialized ledger entry
func (r *ScoreRepository) Save(ctx context.Context, tx *gorm.DB, entry *models.UserScore) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Save(entry).Error
}

// Transaction runs fn inside a database transaction
func (r *ScoreRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// RolloverStale applies the lazy window reset to every stale ledger row in
// two bulk conditional updates. Per-entry semantics are identical to
// resetting each entry on access: only rows whose last reset precedes the
// current window start are touched.
func (r *ScoreRepository) RolloverStale(ctx context.Context, weekStart, monthStart time.Time) error {
	err := r.db.WithContext(ctx).Model(&models.UserScore{}).
		Where("last_weekly_reset < ?", weekStart).
		Updates(map[string]interface{}{
			"weekly_points":     0,
			"weekly_reactions":  0,
			"weekly_comments":   0,
			"weekly_poll_votes": 0,
			"last_weekly_reset": weekStart,
		}).Error
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Model(&models.UserScore{}).
		Where("last_monthly_reset < ?", monthStart).
		Updates(map[string]interface{}{
			"monthly_points":     0,
			"monthly_reactions":  0,
			"monthly_comments":   0,
			"monthly_poll_votes": 0,
			"last_monthly_reset": monthStart,
		}).Error
}

// CountGreater counts ledger entries with strictly more points than the
// given value in the period's window
func (r *ScoreRepository) CountGreater(ctx context.Context, period models.PeriodType, points int) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UserScore{}).
		Where(pointsColumn(period)+" > ?", points).
		Count(&count).Error
	return count, err
}

// Top returns the highest-scoring ledger entries for the period, ordered by
// points descending and most-recently-updated first on ties
func (r *ScoreRepository) Top(ctx context.Context, period models.PeriodType, limit int) ([]models.UserScore, error) {
	var entries []models.UserScore
	err := r.db.WithContext(ctx).
		Order(pointsColumn(period) + " DESC").
		Order("updated_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// UpsertLeaderboardEntry writes a historical snapshot row, overwriting any
// prior row for the same (user, period type, year, period number)
func (r *ScoreRepository) UpsertLeaderboardEntry(ctx context.Context, entry *models.LeaderboardEntry) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"}, {Name: "period_type"}, {Name: "year"}, {Name: "period_number"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"points", "rank", "reactions", "comments", "poll_votes", "updated_at",
		}),
	}).Create(entry).Error
}

// GetLeaderboardEntries reads the stored snapshot for one calendar period,
// ordered by rank
func (r *ScoreRepository) GetLeaderboardEntries(ctx context.Context, period models.PeriodType, year, number int) ([]models.LeaderboardEntry, error) {
	var entries []models.LeaderboardEntry
	err := r.db.WithContext(ctx).
		Where("period_type = ? AND year = ? AND period_number = ?", period, year, number).
		Order("rank ASC").
		Find(&entries).Error
	return entries, err
}

// GetUsernames resolves user IDs to usernames for leaderboard rendering
func (r *ScoreRepository) GetUsernames(ctx context.Context, userIDs []uint) (map[uint]string, error) {
	if len(userIDs) == 0 {
		return map[uint]string{}, nil
	}
	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}
	return names, nil
}

// Ping checks if database is reachable
func (r *ScoreRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (r *ScoreRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate runs database migrations for all models
func (r *ScoreRepository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.PostReaction{},
		&models.Poll{},
		&models.PollOption{},
		&models.PollVote{},
		&models.UserScore{},
		&models.LeaderboardEntry{},
	)
}
