package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"backend/internal/config"
	"backend/internal/models"
	"backend/internal/repository"
	"backend/internal/service"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	TotalUsers     = 50
	PostsPerUser   = 2
	TotalPolls     = 10
	ActivityRounds = 500
)

var reactionTypes = []string{
	models.ReactionLove,
	models.ReactionHaha,
	models.ReactionSad,
	models.ReactionAngry,
}

func main() {
	log.Println("Starting seeder for the social feed scoring engine...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := initPostgres(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	log.Println("✓ Connected to PostgreSQL")

	scoreRepo := repository.NewScoreRepository(db)
	feedRepo := repository.NewFeedRepository(db)

	if err := scoreRepo.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("✓ Database migrations completed")

	// Seed without Redis: the cache is best-effort and re-warms on demand
	scoreService := service.NewScoreService(scoreRepo, nil, cfg.Scoring.PollVotePoints, cfg.Scoring.CacheTTL)
	activityService := service.NewActivityService(scoreService, feedRepo, nil)
	feedService := service.NewFeedService(feedRepo, activityService)

	ctx := context.Background()

	log.Printf("Seeding %d users...", TotalUsers)
	users := seedUsers(db)

	log.Println("Seeding posts and polls...")
	posts, polls := seedContent(ctx, feedService, users)

	log.Printf("Driving %d rounds of activity through the feed...", ActivityRounds)
	simulateActivity(ctx, feedService, users, posts, polls)

	log.Println("Saving initial leaderboard snapshots...")
	for _, period := range []models.PeriodType{models.PeriodWeekly, models.PeriodMonthly} {
		saved, err := scoreService.SaveSnapshot(ctx, period)
		if err != nil {
			log.Fatalf("Failed to save %s snapshot: %v", period, err)
		}
		log.Printf("   ✓ %s snapshot: %d entries", period, saved)
	}

	// Show the resulting top 10
	leaderboard, err := scoreService.Leaderboard(ctx, models.PeriodAllTime, 10)
	if err != nil {
		log.Fatalf("Failed to load leaderboard: %v", err)
	}
	log.Println("Top 10 users:")
	for _, row := range leaderboard.Data {
		log.Printf("   %d. %s - %d points", row.Rank, row.Username, row.Points)
	}

	scoreRepo.Close()
	log.Println("Seeder finished")
}

// seedUsers inserts demo users directly
func seedUsers(db *gorm.DB) []models.User {
	users := make([]models.User, TotalUsers)
	for i := 0; i < TotalUsers; i++ {
		users[i] = models.User{
			Username: fmt.Sprintf("user_%d", i+1),
			Email:    fmt.Sprintf("user_%d@example.com", i+1),
		}
	}
	if err := db.CreateInBatches(users, 100).Error; err != nil {
		log.Fatalf("Failed to seed users: %v", err)
	}
	return users
}

// seedContent creates posts and polls through the feed service
func seedContent(ctx context.Context, feed *service.FeedService, users []models.User) ([]models.Post, []pollWithOptions) {
	var posts []models.Post
	for _, user := range users {
		for i := 0; i < PostsPerUser; i++ {
			post, err := feed.CreatePost(ctx, models.CreatePostRequest{
				AuthorID: user.ID,
				Content:  fmt.Sprintf("Post %d by %s", i+1, user.Username),
			})
			if err != nil {
				log.Fatalf("Failed to create post: %v", err)
			}
			posts = append(posts, *post)
		}
	}

	var polls []pollWithOptions
	for i := 0; i < TotalPolls; i++ {
		author := users[rand.Intn(len(users))]
		poll, options, err := feed.CreatePoll(ctx, models.CreatePollRequest{
			AuthorID: author.ID,
			Question: fmt.Sprintf("Poll question %d?", i+1),
			Options:  []string{"Yes", "No", "Maybe"},
		})
		if err != nil {
			log.Fatalf("Failed to create poll: %v", err)
		}
		polls = append(polls, pollWithOptions{poll: *poll, options: options})
	}

	return posts, polls
}

type pollWithOptions struct {
	poll    models.Poll
	options []models.PollOption
}

// simulateActivity drives random comments, reactions and votes through the
// feed service so the hooks populate ledgers and counters end-to-end
func simulateActivity(ctx context.Context, feed *service.FeedService, users []models.User, posts []models.Post, polls []pollWithOptions) {
	comments := 0
	reactions := 0
	votes := 0

	for round := 0; round < ActivityRounds; round++ {
		user := users[rand.Intn(len(users))]

		switch rand.Intn(3) {
		case 0:
			post := posts[rand.Intn(len(posts))]
			_, err := feed.CreateComment(ctx, post.ID, models.CreateCommentRequest{
				AuthorID: user.ID,
				Content:  fmt.Sprintf("Comment in round %d", round),
			})
			if err != nil {
				log.Printf("Comment failed: %v", err)
				continue
			}
			comments++

		case 1:
			post := posts[rand.Intn(len(posts))]
			_, err := feed.AddReaction(ctx, post.ID, models.ReactionRequest{
				UserID:       user.ID,
				ReactionType: reactionTypes[rand.Intn(len(reactionTypes))],
			})
			if err != nil {
				log.Printf("Reaction failed: %v", err)
				continue
			}
			reactions++

		case 2:
			p := polls[rand.Intn(len(polls))]
			option := p.options[rand.Intn(len(p.options))]
			_, err := feed.CastVote(ctx, p.poll.ID, models.VoteRequest{
				UserID:   user.ID,
				OptionID: option.ID,
			})
			if err != nil {
				// Duplicate votes are expected; skip quietly
				continue
			}
			votes++
		}
	}

	log.Printf("   ✓ Activity: %d comments, %d reactions, %d votes", comments, reactions, votes)
}

// initPostgres initializes PostgreSQL connection
func initPostgres(cfg *config.Config) (*gorm.DB, error) {
	dsn := cfg.GetDSN()

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, err
	}

	return db, nil
}
