package handlers

import (
	"errors"

	"backend/internal/models"
	"backend/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// FeedHandler handles HTTP requests for feed content mutations
type FeedHandler struct {
	service   *service.FeedService
	validator *validator.Validate
}

// NewFeedHandler creates a new feed handler
func NewFeedHandler(service *service.FeedService) *FeedHandler {
	return &FeedHandler{
		service:   service,
		validator: validator.New(),
	}
}

// CreatePost handles POST /api/v1/posts
func (h *FeedHandler) CreatePost(c *fiber.Ctx) error {
	var req models.CreatePostRequest
	if err := h.parse(c, &req); err != nil {
		return err
	}

	post, err := h.service.CreatePost(c.Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// DeletePost handles DELETE /api/v1/posts/:id
func (h *FeedHandler) DeletePost(c *fiber.Ctx) error {
	postID, err := c.ParamsInt("id")
	if err != nil || postID <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid post id")
	}

	if err := h.service.DeletePost(c.Context(), uint(postID)); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CreateComment handles POST /api/v1/posts/:id/comments
func (h *FeedHandler) CreateComment(c *fiber.Ctx) error {
	postID, err := c.ParamsInt("id")
	if err != nil || postID <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid post id")
	}

	var req models.CreateCommentRequest
	if err := h.parse(c, &req); err != nil {
		return err
	}

	comment, err := h.service.CreateComment(c.Context(), uint(postID), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// DeleteComment handles DELETE /api/v1/comments/:id
func (h *FeedHandler) DeleteComment(c *fiber.Ctx) error {
	commentID, err := c.ParamsInt("id")
	if err != nil || commentID <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid comment id")
	}

	if err := h.service.DeleteComment(c.Context(), uint(commentID)); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddReaction handles POST /api/v1/posts/:id/reactions
func (h *FeedHandler) AddReaction(c *fiber.Ctx) error {
	postID, err := c.ParamsInt("id")
	if err != nil || postID <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid post id")
	}

	var req models.ReactionRequest
	if err := h.parse(c, &req); err != nil {
		return err
	}

	reaction, err := h.service.AddReaction(c.Context(), uint(postID), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(reaction)
}

// RemoveReaction handles DELETE /api/v1/posts/:id/reactions
func (h *FeedHandler) RemoveReaction(c *fiber.Ctx) error {
	postID, err := c.ParamsInt("id")
	if err != nil || postID <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid post id")
	}

	var req models.ReactionRequest
	if err := h.parse(c, &req); err != nil {
		return err
	}

	if err := h.service.RemoveReaction(c.Context(), uint(postID), req.UserID); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CreatePoll handles POST /api/v1/polls
func (h *FeedHandler) CreatePoll(c *fiber.Ctx) error {
	var req models.CreatePollRequest
	if err := h.parse(c, &req); err != nil {
		return err
	}

	poll, options, err := h.service.CreatePoll(c.Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"poll":    poll,
		"options": options,
	})
}

// CastVote handles POST /api/v1/polls/:id/votes
func (h *FeedHandler) CastVote(c *fiber.Ctx) error {
	pollID, err := c.ParamsInt("id")
	if err != nil || pollID <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid poll id")
	}

	var req models.VoteRequest
	if err := h.parse(c, &req); err != nil {
		return err
	}
	if req.OptionID == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "option_id is required")
	}

	vote, err := h.service.CastVote(c.Context(), uint(pollID), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(vote)
}

// RetractVote handles DELETE /api/v1/polls/:id/votes
func (h *FeedHandler) RetractVote(c *fiber.Ctx) error {
	pollID, err := c.ParamsInt("id")
	if err != nil || pollID <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid poll id")
	}

	var req models.VoteRequest
	if err := h.parse(c, &req); err != nil {
		return err
	}

	if err := h.service.RetractVote(c.Context(), uint(pollID), req.UserID); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// parse decodes and validates a JSON request body. Errors are rendered by
// the global Fiber error handler.
func (h *FeedHandler) parse(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if err := h.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "validation failed: "+err.Error())
	}
	return nil
}

// fail maps service errors to HTTP responses
func (h *FeedHandler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error:   "Not found",
			Message: err.Error(),
		})
	case errors.Is(err, service.ErrTooDeep),
		errors.Is(err, service.ErrAlreadyVoted),
		errors.Is(err, service.ErrOptionMismatch),
		errors.Is(err, service.ErrInactive):
		return c.Status(fiber.StatusConflict).JSON(models.ErrorResponse{
			Error:   "Invalid operation",
			Message: err.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Error:   "Request failed",
			Message: err.Error(),
		})
	}
}
