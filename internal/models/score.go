package models

import (
	"time"
)

// PeriodType selects one of the three accumulation windows
type PeriodType string

const (
	PeriodAllTime PeriodType = "all_time"
	PeriodWeekly  PeriodType = "weekly"
	PeriodMonthly PeriodType = "monthly"
)

// Leaderboard sizing shared by handlers, the cache-refresh workers and the
// snapshot writer
const (
	DefaultLeaderboardLimit = 50
	MaxLeaderboardLimit     = 100
	SnapshotSize            = 100
)

// UserScore is the per-user score ledger: points and activity counts
// across the all-time, current-week and current-month windows.
// Weekly and monthly fields are zeroed lazily when their window boundary
// is crossed; LastWeeklyReset/LastMonthlyReset record the start of the
// window last applied.
type UserScore struct {
	ID     uint `gorm:"primarykey" json:"id"`
	UserID uint `gorm:"uniqueIndex;not null" json:"user_id"`

	TotalPoints   int `gorm:"not null;default:0;index" json:"total_points"`
	WeeklyPoints  int `gorm:"not null;default:0;index" json:"weekly_points"`
	MonthlyPoints int `gorm:"not null;default:0;index" json:"monthly_points"`

	TotalReactions int `gorm:"not null;default:0" json:"total_reactions"`
	TotalComments  int `gorm:"not null;default:0" json:"total_comments"`
	TotalPollVotes int `gorm:"not null;default:0" json:"total_poll_votes"`

	WeeklyReactions int `gorm:"not null;default:0" json:"weekly_reactions"`
	WeeklyComments  int `gorm:"not null;default:0" json:"weekly_comments"`
	WeeklyPollVotes int `gorm:"not null;default:0" json:"weekly_poll_votes"`

	MonthlyReactions int `gorm:"not null;default:0" json:"monthly_reactions"`
	MonthlyComments  int `gorm:"not null;default:0" json:"monthly_comments"`
	MonthlyPollVotes int `gorm:"not null;default:0" json:"monthly_poll_votes"`

	LastWeeklyReset  time.Time `gorm:"not null" json:"last_weekly_reset"`
	LastMonthlyReset time.Time `gorm:"not null" json:"last_monthly_reset"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UserScore) TableName() string {
	return "user_scores"
}

// PointsFor returns the ledger's points for the given window.
// Unrecognized periods fall back to the all-time window.
func (s *UserScore) PointsFor(period PeriodType) int {
	switch period {
	case PeriodWeekly:
		return s.WeeklyPoints
	case PeriodMonthly:
		return s.MonthlyPoints
	default:
		return s.TotalPoints
	}
}

// LeaderboardEntry is an immutable-once-written historical snapshot of a
// user's standing for one calendar period. Uniquely keyed by
// (user, period type, year, period number); re-running a snapshot for the
// same period upserts the row.
type LeaderboardEntry struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	UserID       uint       `gorm:"not null;uniqueIndex:idx_lb_user_period" json:"user_id"`
	PeriodType   PeriodType `gorm:"size:10;not null;uniqueIndex:idx_lb_user_period" json:"period_type"`
	Year         int        `gorm:"not null;uniqueIndex:idx_lb_user_period" json:"year"`
	PeriodNumber int        `gorm:"not null;uniqueIndex:idx_lb_user_period" json:"period_number"`

	Points    int `gorm:"not null" json:"points"`
	Rank      int `gorm:"not null" json:"rank"`
	Reactions int `gorm:"not null;default:0" json:"reactions"`
	Comments  int `gorm:"not null;default:0" json:"comments"`
	PollVotes int `gorm:"not null;default:0" json:"poll_votes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (LeaderboardEntry) TableName() string {
	return "leaderboard_entries"
}

// LeaderboardRow is a single row of a live leaderboard response
type LeaderboardRow struct {
	Rank     int    `json:"rank"`
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Points   int    `json:"points"`
}

// LeaderboardResponse is the live leaderboard payload
type LeaderboardResponse struct {
	Period PeriodType       `json:"period"`
	Limit  int              `json:"limit"`
	Data   []LeaderboardRow `json:"data"`
}

// RankResponse reports a single user's standing in a window
type RankResponse struct {
	UserID uint       `json:"user_id"`
	Period PeriodType `json:"period"`
	Rank   int        `json:"rank"`
	Points int        `json:"points"`
}
