package service

import (
	"context"
	"testing"

	"backend/internal/models"
)

func (e *testEnv) createPost(t *testing.T, authorID uint) *models.Post {
	t.Helper()
	post, err := e.feed.CreatePost(context.Background(), models.CreatePostRequest{
		AuthorID: authorID,
		Content:  "a post",
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	return post
}

func (e *testEnv) reloadPost(t *testing.T, id uint) *models.Post {
	t.Helper()
	var post models.Post
	if err := e.db.First(&post, id).Error; err != nil {
		t.Fatalf("failed to reload post %d: %v", id, err)
	}
	return &post
}

func TestCommentHookUpdatesCountersAndLedger(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.createUser(t, "alice")
	commenter := env.createUser(t, "bob")
	post := env.createPost(t, author.ID)

	comment, err := env.feed.CreateComment(ctx, post.ID, models.CreateCommentRequest{
		AuthorID: commenter.ID,
		Content:  "first!",
	})
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}

	if got := env.reloadPost(t, post.ID).CommentsCount; got != 1 {
		t.Errorf("comments_count = %d, want 1", got)
	}
	entry := env.ledger(t, commenter.ID)
	if entry.TotalPoints != 30 || entry.TotalComments != 1 {
		t.Errorf("commenter ledger = (%d, %d), want (30, 1)", entry.TotalPoints, entry.TotalComments)
	}

	// A reply bumps both the post count and the parent's reply count
	if _, err := env.feed.CreateComment(ctx, post.ID, models.CreateCommentRequest{
		AuthorID: author.ID,
		ParentID: &comment.ID,
		Content:  "thanks",
	}); err != nil {
		t.Fatalf("reply: %v", err)
	}

	if got := env.reloadPost(t, post.ID).CommentsCount; got != 2 {
		t.Errorf("comments_count after reply = %d, want 2", got)
	}
	var parent models.Comment
	if err := env.db.First(&parent, comment.ID).Error; err != nil {
		t.Fatal(err)
	}
	if parent.RepliesCount != 1 {
		t.Errorf("replies_count = %d, want 1", parent.RepliesCount)
	}
}

func TestCommentNestingLimitedToTwoLevels(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "alice")
	post := env.createPost(t, user.ID)

	top, err := env.feed.CreateComment(ctx, post.ID, models.CreateCommentRequest{
		AuthorID: user.ID, Content: "top",
	})
	if err != nil {
		t.Fatal(err)
	}
	reply, err := env.feed.CreateComment(ctx, post.ID, models.CreateCommentRequest{
		AuthorID: user.ID, ParentID: &top.ID, Content: "reply",
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = env.feed.CreateComment(ctx, post.ID, models.CreateCommentRequest{
		AuthorID: user.ID, ParentID: &reply.ID, Content: "too deep",
	})
	if err != ErrTooDeep {
		t.Fatalf("expected ErrTooDeep, got %v", err)
	}
}

func TestDeleteCommentCascadesAndRescores(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	post := env.createPost(t, alice.ID)

	parent, err := env.feed.CreateComment(ctx, post.ID, models.CreateCommentRequest{
		AuthorID: alice.ID, Content: "parent",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.feed.CreateComment(ctx, post.ID, models.CreateCommentRequest{
		AuthorID: bob.ID, ParentID: &parent.ID, Content: "reply",
	}); err != nil {
		t.Fatal(err)
	}

	if err := env.feed.DeleteComment(ctx, parent.ID); err != nil {
		t.Fatalf("DeleteComment: %v", err)
	}

	if got := env.reloadPost(t, post.ID).CommentsCount; got != 0 {
		t.Errorf("comments_count after cascade delete = %d, want 0", got)
	}

	// Both the parent author and the reply author lose their points
	for _, userID := range []uint{alice.ID, bob.ID} {
		entry := env.ledger(t, userID)
		if entry.TotalPoints != 0 || entry.TotalComments != 0 {
			t.Errorf("user %d ledger = (%d, %d), want (0, 0)", userID, entry.TotalPoints, entry.TotalComments)
		}
	}

	var remaining int64
	env.db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&remaining)
	if remaining != 0 {
		t.Errorf("%d comments left after cascade delete", remaining)
	}
}

func TestReactionHookScoresOncePerUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	post := env.createPost(t, alice.ID)

	if _, err := env.feed.AddReaction(ctx, post.ID, models.ReactionRequest{
		UserID: bob.ID, ReactionType: models.ReactionLove,
	}); err != nil {
		t.Fatal(err)
	}

	if got := env.reloadPost(t, post.ID).ReactionsCount; got != 1 {
		t.Errorf("reactions_count = %d, want 1", got)
	}
	if entry := env.ledger(t, bob.ID); entry.TotalPoints != 10 {
		t.Errorf("points after reaction = %d, want 10", entry.TotalPoints)
	}

	// Re-reacting with a different type replaces it without re-scoring
	if _, err := env.feed.AddReaction(ctx, post.ID, models.ReactionRequest{
		UserID: bob.ID, ReactionType: models.ReactionHaha,
	}); err != nil {
		t.Fatal(err)
	}
	if entry := env.ledger(t, bob.ID); entry.TotalPoints != 10 || entry.TotalReactions != 1 {
		t.Errorf("re-reaction double-scored: %d points, %d reactions", entry.TotalPoints, entry.TotalReactions)
	}

	if err := env.feed.RemoveReaction(ctx, post.ID, bob.ID); err != nil {
		t.Fatal(err)
	}
	if got := env.reloadPost(t, post.ID).ReactionsCount; got != 0 {
		t.Errorf("reactions_count after removal = %d, want 0", got)
	}
	if entry := env.ledger(t, bob.ID); entry.TotalPoints != 0 {
		t.Errorf("points after removal = %d, want 0", entry.TotalPoints)
	}
}

func TestPollVoteHookAdjustsCounters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	poll, options, err := env.feed.CreatePoll(ctx, models.CreatePollRequest{
		AuthorID: alice.ID,
		Question: "tabs or spaces?",
		Options:  []string{"tabs", "spaces"},
	})
	if err != nil {
		t.Fatalf("CreatePoll: %v", err)
	}

	if _, err := env.feed.CastVote(ctx, poll.ID, models.VoteRequest{
		UserID: bob.ID, OptionID: options[0].ID,
	}); err != nil {
		t.Fatalf("CastVote: %v", err)
	}

	var reloaded models.Poll
	if err := env.db.First(&reloaded, poll.ID).Error; err != nil {
		t.Fatal(err)
	}
	if reloaded.TotalVotes != 1 {
		t.Errorf("total_votes = %d, want 1", reloaded.TotalVotes)
	}
	var option models.PollOption
	if err := env.db.First(&option, options[0].ID).Error; err != nil {
		t.Fatal(err)
	}
	if option.VotesCount != 1 {
		t.Errorf("votes_count = %d, want 1", option.VotesCount)
	}
	if entry := env.ledger(t, bob.ID); entry.TotalPoints != 10 || entry.TotalPollVotes != 1 {
		t.Errorf("voter ledger = (%d, %d), want (10, 1)", entry.TotalPoints, entry.TotalPollVotes)
	}

	// One vote per user per poll
	if _, err := env.feed.CastVote(ctx, poll.ID, models.VoteRequest{
		UserID: bob.ID, OptionID: options[1].ID,
	}); err != ErrAlreadyVoted {
		t.Fatalf("expected ErrAlreadyVoted, got %v", err)
	}

	if err := env.feed.RetractVote(ctx, poll.ID, bob.ID); err != nil {
		t.Fatalf("RetractVote: %v", err)
	}
	if err := env.db.First(&reloaded, poll.ID).Error; err != nil {
		t.Fatal(err)
	}
	if reloaded.TotalVotes != 0 {
		t.Errorf("total_votes after retraction = %d, want 0", reloaded.TotalVotes)
	}
	if entry := env.ledger(t, bob.ID); entry.TotalPoints != 0 || entry.TotalPollVotes != 0 {
		t.Errorf("voter ledger after retraction = (%d, %d), want (0, 0)", entry.TotalPoints, entry.TotalPollVotes)
	}
}

func TestVoteRejectsOptionFromOtherPoll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "alice")

	pollA, _, err := env.feed.CreatePoll(ctx, models.CreatePollRequest{
		AuthorID: user.ID, Question: "a?", Options: []string{"x", "y"},
	})
	if err != nil {
		t.Fatal(err)
	}
	_, optionsB, err := env.feed.CreatePoll(ctx, models.CreatePollRequest{
		AuthorID: user.ID, Question: "b?", Options: []string{"x", "y"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := env.feed.CastVote(ctx, pollA.ID, models.VoteRequest{
		UserID: user.ID, OptionID: optionsB[0].ID,
	}); err != ErrOptionMismatch {
		t.Fatalf("expected ErrOptionMismatch, got %v", err)
	}
}

func TestHookToleratesMissingPost(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "alice")

	// The post is already gone (cascade-deleted); the counter half is a
	// no-op but the ledger half still lands
	env.hooks.CommentCreated(ctx, &models.Comment{
		PostID:   9999,
		AuthorID: user.ID,
	})

	entry := env.ledger(t, user.ID)
	if entry.TotalPoints != 30 || entry.TotalComments != 1 {
		t.Errorf("ledger = (%d, %d), want (30, 1) despite missing post", entry.TotalPoints, entry.TotalComments)
	}
}

func TestHookToleratesMissingParent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "alice")
	post := env.createPost(t, user.ID)

	missingParent := uint(9999)
	env.hooks.CommentDeleted(ctx, &models.Comment{
		PostID:   post.ID,
		AuthorID: user.ID,
		ParentID: &missingParent,
	})

	// The post-level recount still happened and nothing blew up
	if got := env.reloadPost(t, post.ID).CommentsCount; got != 0 {
		t.Errorf("comments_count = %d, want 0", got)
	}
}
