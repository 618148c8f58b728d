package service

import (
	"time"

	"backend/internal/models"
)

// Point weights per activity. The poll-vote weight is configurable
// (ScoringConfig.PollVotePoints); these two are fixed.
const (
	ReactionPoints = 10
	CommentPoints  = 30
)

// WeekStart returns the most recent Monday 00:00 UTC at or before t
// (ISO weekday numbering, Monday is the first day of the week).
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	weekday := int(t.Weekday())
	if weekday == 0 { // Sunday
		weekday = 7
	}
	start := t.AddDate(0, 0, -(weekday - 1))
	return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthStart returns the 1st of t's month, 00:00 UTC
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// PeriodKey returns the calendar identifier of the window containing t:
// ISO year and week number for weekly, year and month number for monthly.
func PeriodKey(period models.PeriodType, t time.Time) (year, number int) {
	t = t.UTC()
	switch period {
	case models.PeriodWeekly:
		return t.ISOWeek()
	default:
		return t.Year(), int(t.Month())
	}
}

// resetWeeklyIfNeeded zeroes the weekly window on entry if its boundary has
// been crossed. The boundary is inclusive of the new window start: an entry
// last reset exactly at WeekStart(now) is already current. Idempotent.
// Reports whether a reset was applied.
func resetWeeklyIfNeeded(entry *models.UserScore, now time.Time) bool {
	start := WeekStart(now)
	if !entry.LastWeeklyReset.Before(start) {
		return false
	}
	entry.WeeklyPoints = 0
	entry.WeeklyReactions = 0
	entry.WeeklyComments = 0
	entry.WeeklyPollVotes = 0
	entry.LastWeeklyReset = start
	return true
}

// resetMonthlyIfNeeded is the month-boundary analogue of resetWeeklyIfNeeded
func resetMonthlyIfNeeded(entry *models.UserScore, now time.Time) bool {
	start := MonthStart(now)
	if !entry.LastMonthlyReset.Before(start) {
		return false
	}
	entry.MonthlyPoints = 0
	entry.MonthlyReactions = 0
	entry.MonthlyComments = 0
	entry.MonthlyPollVotes = 0
	entry.LastMonthlyReset = start
	return true
}
