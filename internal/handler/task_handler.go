package handler

import (
	"net/http"
	"strconv"

	"task_manager/internal/model"
	"task_manager/internal/service"

	"github.com/gin-gonic/gin"
)

// TaskHandler handles task related requests
type TaskHandler struct {
	service service.TaskService
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(s service.TaskService) *TaskHandler {
	return &TaskHandler{service: s}
}

// authContext pulls the caller's id and role, replying 401 when missing
func authContext(c *gin.Context) (int64, string, bool) {
	userID, err := getAuthUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return 0, "", false
	}
	userRole, err := getAuthUserRole(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User role not found"})
		return 0, "", false
	}
	return userID, userRole, true
}

func taskIDParam(c *gin.Context) (int64, bool) {
	taskID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || taskID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": service.ErrInvalidTaskID.Error()})
		return 0, false
	}
	return taskID, true
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, _, ok := authContext(c)
	if !ok {
		return
	}

	var req model.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	task, err := h.service.CreateTask(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err, "Failed to create task")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": task})
}

// ListTasks returns tasks the caller created or is assigned to, filtered by
// the optional priority, status and due_date query parameters.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, _, ok := authContext(c)
	if !ok {
		return
	}

	filters, err := service.ParseTaskFilters(c.Query("priority"), c.Query("status"), c.Query("due_date"))
	if err != nil {
		respondError(c, err, "Failed to retrieve tasks")
		return
	}

	tasks, err := h.service.ListTasks(c.Request.Context(), userID, filters)
	if err != nil {
		respondError(c, err, "Failed to retrieve tasks")
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	userID, userRole, ok := authContext(c)
	if !ok {
		return
	}
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	task, err := h.service.GetTask(c.Request.Context(), taskID, userID, userRole)
	if err != nil {
		respondError(c, err, "Failed to retrieve task")
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, userRole, ok := authContext(c)
	if !ok {
		return
	}
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	var req model.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	task, err := h.service.UpdateTask(c.Request.Context(), taskID, userID, userRole, req)
	if err != nil {
		respondError(c, err, "Failed to update task")
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Task modified", "task": task})
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, userRole, ok := authContext(c)
	if !ok {
		return
	}
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	if _, err := h.service.DeleteTask(c.Request.Context(), taskID, userID, userRole); err != nil {
		respondError(c, err, "Failed to delete task")
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Task deleted"})
}

// RegisterTaskRoutes registers task routes
func (h *TaskHandler) RegisterTaskRoutes(rg *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	taskGroup := rg.Group("/tasks")
	taskGroup.Use(authMW)
	{
		taskGroup.POST("", h.CreateTask)
		taskGroup.GET("", h.ListTasks)
		taskGroup.GET("/:id", h.GetTask)
		taskGroup.PATCH("/:id", h.UpdateTask)
		taskGroup.DELETE("/:id", adminMW, h.DeleteTask)
	}
}
