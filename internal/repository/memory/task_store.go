package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"task_manager/internal/model"
	"task_manager/internal/repository"
)

// TaskStore keeps tasks in memory. Assignee usernames are resolved from the
// UserStore it was created with.
type TaskStore struct {
	mu     sync.RWMutex
	tasks  map[int64]model.Task
	nextID int64
	users  *UserStore
}

func NewTaskStore(users *UserStore) *TaskStore {
	return &TaskStore{tasks: make(map[int64]model.Task), users: users}
}

var _ repository.TaskRepository = (*TaskStore)(nil)

func (s *TaskStore) Create(_ context.Context, t *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := time.Now().UTC()
	t.ID = s.nextID
	t.CreatedAt = now
	t.UpdatedAt = now
	t.Assignee = nil
	s.tasks[t.ID] = *t
	return nil
}

func (s *TaskStore) FindByID(_ context.Context, id int64) (*model.Task, error) {
	s.mu.RLock()
	t, ok := s.tasks[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return s.withAssignee(t), nil
}

func (s *TaskStore) FindForUser(_ context.Context, userID int64, f model.TaskFilters) ([]model.Task, error) {
	s.mu.RLock()
	matched := make([]model.Task, 0)
	for _, t := range s.tasks {
		if !t.VisibleTo(userID) {
			continue
		}
		if f.Priority != nil && *f.Priority != "" && t.Priority != *f.Priority {
			continue
		}
		if f.Status != nil && *f.Status != "" && t.Status != *f.Status {
			continue
		}
		if f.DueDate != nil && !t.DueDate.Equal(*f.DueDate) {
			continue
		}
		matched = append(matched, t)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].DueDate.Equal(matched[j].DueDate) {
			return matched[i].DueDate.Before(matched[j].DueDate)
		}
		return matched[i].ID < matched[j].ID
	})

	tasks := make([]model.Task, 0, len(matched))
	for _, t := range matched {
		tasks = append(tasks, *s.withAssignee(t))
	}
	return tasks, nil
}

func (s *TaskStore) Update(_ context.Context, id int64, p model.TaskPatch) (*model.Task, error) {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return nil, nil
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.AssignedTo != nil {
		t.AssignedTo = *p.AssignedTo
	}
	t.UpdatedAt = time.Now().UTC()
	s.tasks[id] = t
	s.mu.Unlock()

	return s.withAssignee(t), nil
}

func (s *TaskStore) Delete(_ context.Context, id int64) (*model.Task, error) {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if ok {
		delete(s.tasks, id)
	}
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}
	return s.withAssignee(t), nil
}

func (s *TaskStore) withAssignee(t model.Task) *model.Task {
	t.Assignee = &model.UserSummary{ID: t.AssignedTo, Username: s.users.usernameOf(t.AssignedTo)}
	return &t
}
