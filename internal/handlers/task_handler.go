package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"miningpad/internal/auth"
	"miningpad/internal/services"
)

// TaskHandler handles task listing, progress and claim endpoints
type TaskHandler struct {
	taskService   *services.TaskService
	walletService *services.WalletService
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(taskService *services.TaskService, walletService *services.WalletService) *TaskHandler {
	return &TaskHandler{taskService: taskService, walletService: walletService}
}

// ListTasks returns all active tasks with the caller's progress.
// GET /api/tasks
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	tasks, err := h.taskService.ListTasksWithProgress(userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, "OK", gin.H{"tasks": tasks, "count": len(tasks)})
}

// UpdateProgress reports the caller's progress on a task.
// POST /api/tasks/:taskId/progress
func (h *TaskHandler) UpdateProgress(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	taskID, err := strconv.ParseUint(c.Param("taskId"), 10, 32)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid task id")
		return
	}

	var req struct {
		Progress int    `json:"progress" binding:"required,min=1"`
		Source   string `json:"source"`
		Details  string `json:"details"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if req.Source == "" {
		req.Source = "manual"
	}

	userTask, err := h.taskService.UpdateProgress(userID, uint(taskID), req.Progress, req.Source, req.Details)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, "Progress updated", gin.H{"task": userTask})
}

// ClaimReward claims a completed task's reward.
// POST /api/tasks/:taskId/claim
func (h *TaskHandler) ClaimReward(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	taskID, err := strconv.ParseUint(c.Param("taskId"), 10, 32)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid task id")
		return
	}

	transaction, err := h.taskService.ClaimReward(userID, uint(taskID), h.walletService)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, "Reward claimed", gin.H{
		"reward":      transaction.Amount,
		"transaction": transaction,
	})
}

// GetProgressHistory returns the caller's progress history for a task.
// GET /api/tasks/:taskId/history
func (h *TaskHandler) GetProgressHistory(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	taskID, err := strconv.ParseUint(c.Param("taskId"), 10, 32)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid task id")
		return
	}

	entries, err := h.taskService.GetProgressHistory(userID, uint(taskID))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, "OK", gin.H{"history": entries, "count": len(entries)})
}
