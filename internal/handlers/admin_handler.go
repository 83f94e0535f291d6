package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"miningpad/internal/models"
	"miningpad/internal/services"
	"miningpad/pkg/apperr"
)

// AdminHandler handles catalog authoring and platform stats
type AdminHandler struct {
	db                 *gorm.DB
	taskService        *services.TaskService
	achievementService *services.AchievementService
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(db *gorm.DB, taskService *services.TaskService, achievementService *services.AchievementService) *AdminHandler {
	return &AdminHandler{
		db:                 db,
		taskService:        taskService,
		achievementService: achievementService,
	}
}

// CreateTask adds a catalog task.
// POST /api/admin/tasks
func (h *AdminHandler) CreateTask(c *gin.Context) {
	var req struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
		Category    string `json:"category"`
		MaxProgress int    `json:"maxProgress" binding:"required,min=1"`
		Reward      string `json:"reward" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	reward, err := decimal.NewFromString(req.Reward)
	if err != nil || !reward.IsPositive() {
		respondServiceError(c, apperr.ErrInvalidAmount)
		return
	}

	task := models.Task{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		MaxProgress: req.MaxProgress,
		Reward:      reward,
		IsActive:    true,
	}

	if err := h.taskService.CreateTask(&task); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to create task")
		return
	}

	respondCreated(c, "Task created", gin.H{"task": task})
}

// CreateAchievement adds a catalog achievement.
// POST /api/admin/achievements
func (h *AdminHandler) CreateAchievement(c *gin.Context) {
	var req struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
		Category    string `json:"category"`
		MaxProgress int    `json:"maxProgress" binding:"required,min=1"`
		Reward      string `json:"reward" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	reward, err := decimal.NewFromString(req.Reward)
	if err != nil || !reward.IsPositive() {
		respondServiceError(c, apperr.ErrInvalidAmount)
		return
	}

	achievement := models.Achievement{
		Title:       req.Title,
		Description: req.Description,
		Icon:        req.Icon,
		Category:    req.Category,
		MaxProgress: req.MaxProgress,
		Reward:      reward,
		IsActive:    true,
	}

	if err := h.achievementService.CreateAchievement(&achievement); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to create achievement")
		return
	}

	respondCreated(c, "Achievement created", gin.H{"achievement": achievement})
}

// GetStats returns platform-wide counters.
// GET /api/admin/stats
func (h *AdminHandler) GetStats(c *gin.Context) {
	var userCount, txCount, activeSessions int64

	if err := h.db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load stats")
		return
	}
	if err := h.db.Model(&models.Transaction{}).Count(&txCount).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load stats")
		return
	}
	if err := h.db.Model(&models.MiningSession{}).
		Where("status = ?", models.MiningStatusActive).
		Count(&activeSessions).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load stats")
		return
	}

	var totalVolume decimal.Decimal
	row := h.db.Model(&models.Transaction{}).
		Where("type = ?", models.TxTypeSend).
		Select("COALESCE(SUM(amount), 0)").Row()
	if err := row.Scan(&totalVolume); err != nil {
		totalVolume = decimal.Zero
	}

	respondOK(c, "OK", gin.H{
		"users":                userCount,
		"transactions":         txCount,
		"transferVolume":       totalVolume,
		"activeMiningSessions": activeSessions,
	})
}
