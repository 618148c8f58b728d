package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"backend/internal/models"
	"backend/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testEnv wires the scoring stack over an in-memory SQLite database
type testEnv struct {
	db     *gorm.DB
	scores *ScoreService
	hooks  *ActivityService
	feed   *FeedService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// A fresh pool connection would see an empty in-memory database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	scoreRepo := repository.NewScoreRepository(db)
	if err := scoreRepo.AutoMigrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	feedRepo := repository.NewFeedRepository(db)
	scores := NewScoreService(scoreRepo, nil, 10, 0)
	hooks := NewActivityService(scores, feedRepo, nil)
	feed := NewFeedService(feedRepo, hooks)

	return &testEnv{
		db:     db,
		scores: scores,
		hooks:  hooks,
		feed:   feed,
	}
}

func (e *testEnv) createUser(t *testing.T, name string) *models.User {
	t.Helper()
	user := &models.User{
		Username: name,
		Email:    name + "@example.com",
	}
	if err := e.db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", name, err)
	}
	return user
}

func (e *testEnv) ledger(t *testing.T, userID uint) *models.UserScore {
	t.Helper()
	var entry models.UserScore
	if err := e.db.Where("user_id = ?", userID).First(&entry).Error; err != nil {
		t.Fatalf("failed to load ledger for user %d: %v", userID, err)
	}
	return &entry
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "alice")

	first, err := env.scores.GetOrCreate(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	second, err := env.scores.GetOrCreate(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetOrCreate again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("GetOrCreate created a second ledger row: %d != %d", first.ID, second.ID)
	}

	var count int64
	env.db.Model(&models.UserScore{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 ledger row, got %d", count)
	}

	now := time.Now().UTC()
	if !first.LastWeeklyReset.Equal(WeekStart(now)) {
		t.Errorf("LastWeeklyReset = %v, want %v", first.LastWeeklyReset, WeekStart(now))
	}
	if !first.LastMonthlyReset.Equal(MonthStart(now)) {
		t.Errorf("LastMonthlyReset = %v, want %v", first.LastMonthlyReset, MonthStart(now))
	}
}

func TestCommentAwardsThirtyPoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "alice")

	if err := env.scores.AddCommentPoints(ctx, user.ID); err != nil {
		t.Fatalf("AddCommentPoints: %v", err)
	}

	entry := env.ledger(t, user.ID)
	if entry.TotalPoints != 30 || entry.TotalComments != 1 {
		t.Errorf("totals = (%d points, %d comments), want (30, 1)", entry.TotalPoints, entry.TotalComments)
	}
	if entry.WeeklyPoints != 30 || entry.WeeklyComments != 1 {
		t.Errorf("weekly = (%d points, %d comments), want (30, 1)", entry.WeeklyPoints, entry.WeeklyComments)
	}
	if entry.MonthlyPoints != 30 || entry.MonthlyComments != 1 {
		t.Errorf("monthly = (%d points, %d comments), want (30, 1)", entry.MonthlyPoints, entry.MonthlyComments)
	}
}

func TestReactionRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "alice")

	// Some prior history so the round trip is not just zeros
	if err := env.scores.AddCommentPoints(ctx, user.ID); err != nil {
		t.Fatalf("AddCommentPoints: %v", err)
	}
	before := env.ledger(t, user.ID)

	if err := env.scores.AddReactionPoints(ctx, user.ID); err != nil {
		t.Fatalf("AddReactionPoints: %v", err)
	}
	if err := env.scores.RemoveReactionPoints(ctx, user.ID); err != nil {
		t.Fatalf("RemoveReactionPoints: %v", err)
	}

	after := env.ledger(t, user.ID)
	assertSameCounts(t, before, after)
}

func TestPollVoteUsesConfiguredWeight(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "alice")

	if err := env.scores.AddPollVotePoints(ctx, user.ID); err != nil {
		t.Fatalf("AddPollVotePoints: %v", err)
	}

	entry := env.ledger(t, user.ID)
	if entry.TotalPoints != 10 || entry.TotalPollVotes != 1 {
		t.Errorf("totals = (%d points, %d votes), want (10, 1)", entry.TotalPoints, entry.TotalPollVotes)
	}
}

func TestDecrementClampsEachFieldAtZero(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "alice")

	// Removing from an empty ledger must not go negative anywhere
	if err := env.scores.RemoveCommentPoints(ctx, user.ID); err != nil {
		t.Fatalf("RemoveCommentPoints: %v", err)
	}
	if err := env.scores.RemoveReactionPoints(ctx, user.ID); err != nil {
		t.Fatalf("RemoveReactionPoints: %v", err)
	}

	entry := env.ledger(t, user.ID)
	assertNonNegative(t, entry)
	if entry.TotalPoints != 0 || entry.TotalComments != 0 || entry.TotalReactions != 0 {
		t.Errorf("fields not clamped at zero: %+v", entry)
	}
}

func TestPointsStayDerivedFromCounts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "alice")

	ops := []func(context.Context, uint) error{
		env.scores.AddReactionPoints,
		env.scores.AddCommentPoints,
		env.scores.AddCommentPoints,
		env.scores.AddPollVotePoints,
		env.scores.RemoveReactionPoints,
		env.scores.AddReactionPoints,
		env.scores.RemoveCommentPoints,
	}
	for i, op := range ops {
		if err := op(ctx, user.ID); err != nil {
			t.Fatalf("op %d: %v", i, err)
		}
		entry := env.ledger(t, user.ID)
		assertDerived(t, entry, 10)
		assertNonNegative(t, entry)
	}
}

func TestRankReordersWhenPointsChange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	// alice: 100 points, bob: 50
	for i := 0; i < 10; i++ {
		if err := env.scores.AddReactionPoints(ctx, alice.ID); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 5; i++ {
		if err := env.scores.AddReactionPoints(ctx, bob.ID); err != nil {
			t.Fatal(err)
		}
	}

	assertRank(t, env, alice.ID, models.PeriodAllTime, 1)
	assertRank(t, env, bob.ID, models.PeriodAllTime, 2)

	// bob overtakes: 50 -> 150
	for i := 0; i < 10; i++ {
		if err := env.scores.AddReactionPoints(ctx, bob.ID); err != nil {
			t.Fatal(err)
		}
	}

	assertRank(t, env, alice.ID, models.PeriodAllTime, 2)
	assertRank(t, env, bob.ID, models.PeriodAllTime, 1)
}

func TestRankSharedOnTies(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	for _, id := range []uint{alice.ID, bob.ID} {
		if err := env.scores.AddCommentPoints(ctx, id); err != nil {
			t.Fatal(err)
		}
	}

	// Neither has strictly more points, so both rank first
	assertRank(t, env, alice.ID, models.PeriodAllTime, 1)
	assertRank(t, env, bob.ID, models.PeriodAllTime, 1)
}

func TestMonthBoundaryResetsMonthlyOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "alice")

	if err := env.scores.AddCommentPoints(ctx, user.ID); err != nil {
		t.Fatal(err)
	}

	// Backdate the monthly window to last month, as if the entry was last
	// touched on Jan 31 and is now being read on Feb 1
	lastMonth := MonthStart(time.Now().UTC()).AddDate(0, -1, 0)
	if err := env.db.Model(&models.UserScore{}).
		Where("user_id = ?", user.ID).
		Update("last_monthly_reset", lastMonth).Error; err != nil {
		t.Fatal(err)
	}

	entry, err := env.scores.GetOrCreate(ctx, user.ID)
	if err != nil {
		t.Fatal(err)
	}

	if entry.MonthlyPoints != 0 || entry.MonthlyComments != 0 {
		t.Errorf("monthly window not reset: %+v", entry)
	}
	if entry.WeeklyPoints != 30 || entry.WeeklyComments != 1 {
		t.Errorf("weekly window was disturbed: %+v", entry)
	}
	if entry.TotalPoints != 30 || entry.TotalComments != 1 {
		t.Errorf("all-time window was disturbed: %+v", entry)
	}
}

func TestLeaderboardRollsStaleEntriesOver(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	if err := env.scores.AddCommentPoints(ctx, alice.ID); err != nil {
		t.Fatal(err)
	}
	if err := env.scores.AddReactionPoints(ctx, bob.ID); err != nil {
		t.Fatal(err)
	}

	// alice's weekly window belongs to a previous week
	staleWeek := WeekStart(time.Now().UTC()).AddDate(0, 0, -7)
	if err := env.db.Model(&models.UserScore{}).
		Where("user_id = ?", alice.ID).
		Update("last_weekly_reset", staleWeek).Error; err != nil {
		t.Fatal(err)
	}

	board, err := env.scores.Leaderboard(ctx, models.PeriodWeekly, 10)
	if err != nil {
		t.Fatal(err)
	}

	if len(board.Data) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(board.Data))
	}
	if board.Data[0].UserID != bob.ID || board.Data[0].Points != 10 {
		t.Errorf("top row = %+v, want bob with 10 weekly points", board.Data[0])
	}
	if board.Data[1].UserID != alice.ID || board.Data[1].Points != 0 {
		t.Errorf("second row = %+v, want alice rolled over to 0", board.Data[1])
	}

	// The reset is persisted, not just reflected in the response
	entry := env.ledger(t, alice.ID)
	if entry.WeeklyPoints != 0 || entry.WeeklyComments != 0 {
		t.Errorf("stale entry not persisted as reset: %+v", entry)
	}
	if entry.TotalPoints != 30 {
		t.Errorf("all-time points were disturbed: %d", entry.TotalPoints)
	}
}

func TestLeaderboardAssignsPositionalRanks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		user := env.createUser(t, fmt.Sprintf("user_%d", i))
		for j := 0; j <= i; j++ {
			if err := env.scores.AddReactionPoints(ctx, user.ID); err != nil {
				t.Fatal(err)
			}
		}
	}

	board, err := env.scores.Leaderboard(ctx, models.PeriodAllTime, 3)
	if err != nil {
		t.Fatal(err)
	}

	if len(board.Data) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(board.Data))
	}
	for i, row := range board.Data {
		if row.Rank != i+1 {
			t.Errorf("row %d has rank %d", i, row.Rank)
		}
	}
	if board.Data[0].Points != 50 || board.Data[0].Username != "user_4" {
		t.Errorf("top row = %+v, want user_4 with 50 points", board.Data[0])
	}
}

func assertRank(t *testing.T, env *testEnv, userID uint, period models.PeriodType, want int) {
	t.Helper()
	rank, err := env.scores.Rank(context.Background(), userID, period)
	if err != nil {
		t.Fatalf("Rank(%d): %v", userID, err)
	}
	if rank.Rank != want {
		t.Errorf("rank of user %d = %d, want %d", userID, rank.Rank, want)
	}
}

func assertDerived(t *testing.T, entry *models.UserScore, pollWeight int) {
	t.Helper()
	windows := []struct {
		name      string
		points    int
		reactions int
		comments  int
		votes     int
	}{
		{"total", entry.TotalPoints, entry.TotalReactions, entry.TotalComments, entry.TotalPollVotes},
		{"weekly", entry.WeeklyPoints, entry.WeeklyReactions, entry.WeeklyComments, entry.WeeklyPollVotes},
		{"monthly", entry.MonthlyPoints, entry.MonthlyReactions, entry.MonthlyComments, entry.MonthlyPollVotes},
	}
	for _, w := range windows {
		want := ReactionPoints*w.reactions + CommentPoints*w.comments + pollWeight*w.votes
		if w.points != want {
			t.Errorf("%s points = %d, want %d (r=%d c=%d v=%d)", w.name, w.points, want, w.reactions, w.comments, w.votes)
		}
	}
}

func assertNonNegative(t *testing.T, entry *models.UserScore) {
	t.Helper()
	fields := map[string]int{
		"total_points":       entry.TotalPoints,
		"weekly_points":      entry.WeeklyPoints,
		"monthly_points":     entry.MonthlyPoints,
		"total_reactions":    entry.TotalReactions,
		"total_comments":     entry.TotalComments,
		"total_poll_votes":   entry.TotalPollVotes,
		"weekly_reactions":   entry.WeeklyReactions,
		"weekly_comments":    entry.WeeklyComments,
		"weekly_poll_votes":  entry.WeeklyPollVotes,
		"monthly_reactions":  entry.MonthlyReactions,
		"monthly_comments":   entry.MonthlyComments,
		"monthly_poll_votes": entry.MonthlyPollVotes,
	}
	for name, value := range fields {
		if value < 0 {
			t.Errorf("%s is negative: %d", name, value)
		}
	}
}

func assertSameCounts(t *testing.T, before, after *models.UserScore) {
	t.Helper()
	type counts struct {
		tp, wp, mp, tr, tc, tv, wr, wc, wv, mr, mc, mv int
	}
	extract := func(e *models.UserScore) counts {
		return counts{
			e.TotalPoints, e.WeeklyPoints, e.MonthlyPoints,
			e.TotalReactions, e.TotalComments, e.TotalPollVotes,
			e.WeeklyReactions, e.WeeklyComments, e.WeeklyPollVotes,
			e.MonthlyReactions, e.MonthlyComments, e.MonthlyPollVotes,
		}
	}
	if extract(before) != extract(after) {
		t.Errorf("ledger did not round-trip:\nbefore: %+v\nafter:  %+v", extract(before), extract(after))
	}
}
