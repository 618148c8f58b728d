package handlers

import (
	"strconv"
	"time"

	"backend/internal/models"
	"backend/internal/service"

	"github.com/gofiber/fiber/v2"
)

// LeaderboardHandler handles HTTP requests for scores and leaderboards
type LeaderboardHandler struct {
	service *service.ScoreService
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(service *service.ScoreService) *LeaderboardHandler {
	return &LeaderboardHandler{
		service: service,
	}
}

// parsePeriod validates the period query parameter. An absent period means
// the all-time window; an unknown one is a client error.
func parsePeriod(c *fiber.Ctx) (models.PeriodType, error) {
	switch raw := c.Query("period", string(models.PeriodAllTime)); models.PeriodType(raw) {
	case models.PeriodAllTime:
		return models.PeriodAllTime, nil
	case models.PeriodWeekly:
		return models.PeriodWeekly, nil
	case models.PeriodMonthly:
		return models.PeriodMonthly, nil
	default:
		return "", fiber.NewError(fiber.StatusBadRequest, "period must be one of all_time, weekly, monthly")
	}
}

// GetLeaderboard handles GET /api/v1/leaderboard
func (h *LeaderboardHandler) GetLeaderboard(c *fiber.Ctx) error {
	period, err := parsePeriod(c)
	if err != nil {
		return err
	}

	limit, err := strconv.Atoi(c.Query("limit", strconv.Itoa(models.DefaultLeaderboardLimit)))
	if err != nil || limit <= 0 {
		limit = models.DefaultLeaderboardLimit
	}
	if limit > models.MaxLeaderboardLimit {
		limit = models.MaxLeaderboardLimit
	}

	leaderboard, err := h.service.CachedLeaderboard(c.Context(), period, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Error:   "Failed to retrieve leaderboard",
			Message: err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(leaderboard)
}

// GetUserRank handles GET /api/v1/users/:id/rank
func (h *LeaderboardHandler) GetUserRank(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil || userID <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}

	period, err := parsePeriod(c)
	if err != nil {
		return err
	}

	rank, err := h.service.Rank(c.Context(), uint(userID), period)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Error:   "Failed to compute rank",
			Message: err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(rank)
}

// GetUserScore handles GET /api/v1/users/:id/score
func (h *LeaderboardHandler) GetUserScore(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil || userID <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}

	entry, err := h.service.GetOrCreate(c.Context(), uint(userID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Error:   "Failed to load score ledger",
			Message: err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(entry)
}

// GetHistory handles GET /api/v1/leaderboard/history
func (h *LeaderboardHandler) GetHistory(c *fiber.Ctx) error {
	period := models.PeriodType(c.Query("period", string(models.PeriodWeekly)))
	if period != models.PeriodWeekly && period != models.PeriodMonthly {
		return fiber.NewError(fiber.StatusBadRequest, "period must be weekly or monthly")
	}

	// Default to the current calendar period
	defYear, defNumber := service.PeriodKey(period, time.Now().UTC())
	year, err := strconv.Atoi(c.Query("year", strconv.Itoa(defYear)))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid year")
	}
	number, err := strconv.Atoi(c.Query("number", strconv.Itoa(defNumber)))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid period number")
	}

	entries, err := h.service.History(c.Context(), period, year, number)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Error:   "Failed to load leaderboard history",
			Message: err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"period": period,
		"year":   year,
		"number": number,
		"data":   entries,
	})
}

// SaveSnapshot handles POST /api/v1/leaderboard/snapshot
func (h *LeaderboardHandler) SaveSnapshot(c *fiber.Ctx) error {
	period := models.PeriodType(c.Query("period", string(models.PeriodWeekly)))

	saved, err := h.service.SaveSnapshot(c.Context(), period)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error:   "Failed to save snapshot",
			Message: err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Snapshot saved",
		"period":  period,
		"entries": saved,
	})
}

// HealthCheck handles GET /api/v1/health
func (h *LeaderboardHandler) HealthCheck(c *fiber.Ctx) error {
	if err := h.service.HealthCheck(c.Context()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
			Error:   "Health check failed",
			Message: err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "healthy",
		"message": "All systems operational",
	})
}
