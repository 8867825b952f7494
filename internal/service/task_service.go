package service

import (
	"context"
	"fmt"
	"strings"

	"task_manager/internal/logging"
	"task_manager/internal/model"
	"task_manager/internal/notify"
	"task_manager/internal/repository"
)

// Notifier delivers task events to connected users
type Notifier interface {
	NotifyUser(userID int64, event string, payload any)
	Broadcast(event string, payload any)
}

// TaskAssignedPayload is sent to a user when a task is assigned to them
type TaskAssignedPayload struct {
	Message string      `json:"message"`
	Task    *model.Task `json:"task"`
}

// TaskService defines operations for tasks
type TaskService interface {
	CreateTask(ctx context.Context, creatorID int64, req model.CreateTaskRequest) (*model.Task, error)
	ListTasks(ctx context.Context, userID int64, filters model.TaskFilters) ([]model.Task, error)
	GetTask(ctx context.Context, taskID, userID int64, userRole string) (*model.Task, error)
	UpdateTask(ctx context.Context, taskID, userID int64, userRole string, req model.UpdateTaskRequest) (*model.Task, error)
	DeleteTask(ctx context.Context, taskID, userID int64, userRole string) (*model.Task, error)
}

type taskService struct {
	repo            repository.TaskRepository
	users           repository.UserRepository
	notifier        Notifier
	strictOwnership bool
}

// NewTaskService creates a new TaskService. With strictOwnership, reading or
// updating a task requires being its creator, its assignee or an admin.
func NewTaskService(repo repository.TaskRepository, users repository.UserRepository, notifier Notifier, strictOwnership bool) TaskService {
	return &taskService{repo: repo, users: users, notifier: notifier, strictOwnership: strictOwnership}
}

// ParseTaskFilters validates raw query values. Empty values are ignored.
func ParseTaskFilters(priority, status, dueDate string) (model.TaskFilters, error) {
	var f model.TaskFilters
	if priority != "" {
		if !model.IsValidPriority(priority) {
			return f, fmt.Errorf("%w: unknown priority %q", ErrInvalidFilter, priority)
		}
		f.Priority = &priority
	}
	if status != "" {
		if !model.IsValidStatus(status) {
			return f, fmt.Errorf("%w: unknown status %q", ErrInvalidFilter, status)
		}
		f.Status = &status
	}
	if dueDate != "" {
		d, err := model.ParseDueDate(dueDate)
		if err != nil {
			return f, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
		f.DueDate = &d
	}
	return f, nil
}

func (s *taskService) CreateTask(ctx context.Context, creatorID int64, req model.CreateTaskRequest) (*model.Task, error) {
	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)
	if title == "" || description == "" {
		return nil, ErrInvalidTask
	}

	due, err := model.ParseDueDate(req.DueDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDueDate, err)
	}

	assignee, err := s.requireAssignee(ctx, req.AssignedTo)
	if err != nil {
		return nil, err
	}

	task := &model.Task{
		Title:       title,
		Description: description,
		DueDate:     due,
		Priority:    req.Priority,
		Status:      req.Status,
		AssignedTo:  assignee.ID,
		CreatedBy:   creatorID,
	}
	if task.Priority == "" {
		task.Priority = model.PriorityMedium
	}
	if task.Status == "" {
		task.Status = model.StatusPending
	}
	if err := validateEnums(&task.Priority, &task.Status); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task in repo: %w", err)
	}
	task.Assignee = &model.UserSummary{ID: assignee.ID, Username: assignee.Username}

	logging.FromContext(ctx).Info("task created", "task_id", task.ID, "assigned_to", task.AssignedTo)
	s.notifyAssigned(task)
	return task, nil
}

func (s *taskService) ListTasks(ctx context.Context, userID int64, filters model.TaskFilters) ([]model.Task, error) {
	tasks, err := s.repo.FindForUser(ctx, userID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

func (s *taskService) GetTask(ctx context.Context, taskID, userID int64, userRole string) (*model.Task, error) {
	task, err := s.repo.FindByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	if !s.canAccess(task, userID, userRole) {
		return nil, ErrForbidden
	}
	return task, nil
}

func (s *taskService) UpdateTask(ctx context.Context, taskID, userID int64, userRole string, req model.UpdateTaskRequest) (*model.Task, error) {
	existing, err := s.GetTask(ctx, taskID, userID, userRole)
	if err != nil {
		return nil, err
	}

	patch := model.TaskPatch{
		Priority: req.Priority,
		Status:   req.Status,
	}
	if err := validateEnums(patch.Priority, patch.Status); err != nil {
		return nil, err
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, ErrInvalidTask
		}
		patch.Title = &title
	}
	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		if description == "" {
			return nil, ErrInvalidTask
		}
		patch.Description = &description
	}
	if req.DueDate != nil {
		due, err := model.ParseDueDate(*req.DueDate)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDueDate, err)
		}
		patch.DueDate = &due
	}
	if req.AssignedTo != nil {
		assignee, err := s.requireAssignee(ctx, *req.AssignedTo)
		if err != nil {
			return nil, err
		}
		patch.AssignedTo = &assignee.ID
	}

	updated, err := s.repo.Update(ctx, taskID, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update task in repo: %w", err)
	}
	if updated == nil {
		// Deleted between the ownership check and the update
		return nil, ErrTaskNotFound
	}

	logging.FromContext(ctx).Info("task updated", "task_id", updated.ID)
	s.notifier.Broadcast(notify.EventTaskUpdated, updated)
	if updated.AssignedTo != existing.AssignedTo {
		s.notifyAssigned(updated)
	}
	return updated, nil
}

// DeleteTask removes a task. Only admins may delete.
func (s *taskService) DeleteTask(ctx context.Context, taskID, userID int64, userRole string) (*model.Task, error) {
	if userRole != model.RoleAdmin {
		return nil, ErrForbidden
	}

	removed, err := s.repo.Delete(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete task in repo: %w", err)
	}
	if removed == nil {
		return nil, ErrTaskNotFound
	}

	logging.FromContext(ctx).Info("task deleted", "task_id", removed.ID, "deleted_by", userID)
	s.notifier.Broadcast(notify.EventTaskDeleted, removed)
	return removed, nil
}

func (s *taskService) requireAssignee(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up assignee: %w", err)
	}
	if user == nil {
		return nil, ErrAssigneeNotFound
	}
	return user, nil
}

// validateEnums checks the priority and status when present
func validateEnums(priority, status *string) error {
	if priority != nil && !model.IsValidPriority(*priority) {
		return ErrInvalidPriority
	}
	if status != nil && !model.IsValidStatus(*status) {
		return ErrInvalidStatus
	}
	return nil
}

func (s *taskService) canAccess(task *model.Task, userID int64, userRole string) bool {
	if !s.strictOwnership || userRole == model.RoleAdmin {
		return true
	}
	return task.VisibleTo(userID)
}

func (s *taskService) notifyAssigned(task *model.Task) {
	s.notifier.NotifyUser(task.AssignedTo, notify.EventTaskAssigned, TaskAssignedPayload{
		Message: "You have been assigned a new task: " + task.Title,
		Task:    task,
	})
}
