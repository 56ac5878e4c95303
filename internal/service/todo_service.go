package service

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/denny0223/todo-api/internal/domain"
	"github.com/denny0223/todo-api/internal/storage"
)

// CreateTodoRequest holds the data needed to create a new todo.
type CreateTodoRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Completed   bool    `json:"completed"`
}

// UpdateTodoRequest holds the data for updating an existing todo.
// Pointers distinguish a field being omitted from a field being set to its
// zero value (e.g. setting Completed to false), so omitted fields keep
// their previous values.
type UpdateTodoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

// TodoService defines the operations for managing per-user todos.
type TodoService interface {
	// CreateTodo appends a new todo to the user's bucket, creating the
	// bucket if the username has never been seen.
	CreateTodo(ctx context.Context, username string, req CreateTodoRequest) (*domain.Todo, error)

	// ListTodos returns the user's bucket in insertion order. A username
	// absent from the dataset is ErrUserNotFound; a bucket that exists
	// but is empty returns an empty (non-nil) slice.
	ListTodos(ctx context.Context, username string) ([]domain.Todo, error)

	// GetTodo retrieves a single todo by id within the user's bucket.
	GetTodo(ctx context.Context, username, id string) (*domain.Todo, error)

	// UpdateTodo merges the supplied fields into the existing todo and
	// returns the merged record.
	UpdateTodo(ctx context.Context, username, id string, req UpdateTodoRequest) (*domain.Todo, error)

	// DeleteTodo removes exactly the matching todo, preserving the order
	// of the remaining items. The bucket key stays even when emptied.
	DeleteTodo(ctx context.Context, username, id string) error

	// RenameUser moves the whole bucket from oldUsername to newUsername.
	RenameUser(ctx context.Context, oldUsername, newUsername string) error
}

// todoService implements TodoService on top of the file-backed store.
//
// Every operation is one load -> mutate -> save cycle over the whole
// dataset. The mutex serializes those cycles so two concurrent mutations
// cannot silently drop each other's write; single-request behavior is
// unchanged by the lock.
type todoService struct {
	store storage.Service
	mu    sync.Mutex
}

// NewTodoService creates a new instance of todoService.
func NewTodoService(store storage.Service) TodoService {
	return &todoService{store: store}
}

func (s *todoService) CreateTodo(ctx context.Context, username string, req CreateTodoRequest) (*domain.Todo, error) {
	if req.Title == "" {
		return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ds := s.store.Load()
	todo := domain.Todo{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	}
	ds[username] = append(ds[username], todo)

	if err := s.store.Save(ds); err != nil {
		return nil, err
	}
	return &todo, nil
}

func (s *todoService) ListTodos(ctx context.Context, username string) ([]domain.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds := s.store.Load()
	todos, ok := ds[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	if todos == nil {
		todos = []domain.Todo{}
	}
	return todos, nil
}

func (s *todoService) GetTodo(ctx context.Context, username, id string) (*domain.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds := s.store.Load()
	todos, ok := ds[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	for i := range todos {
		if todos[i].ID == id {
			todo := todos[i]
			return &todo, nil
		}
	}
	return nil, ErrTodoNotFound
}

func (s *todoService) UpdateTodo(ctx context.Context, username, id string, req UpdateTodoRequest) (*domain.Todo, error) {
	// Title may be omitted entirely, but a supplied title must be usable:
	// an update is not allowed to erase the required field.
	if req.Title != nil && *req.Title == "" {
		return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ds := s.store.Load()
	todos, ok := ds[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	for i := range todos {
		if todos[i].ID != id {
			continue
		}
		if req.Title != nil {
			todos[i].Title = *req.Title
		}
		if req.Description != nil {
			todos[i].Description = req.Description
		}
		if req.Completed != nil {
			todos[i].Completed = *req.Completed
		}
		if err := s.store.Save(ds); err != nil {
			return nil, err
		}
		todo := todos[i]
		return &todo, nil
	}
	return nil, ErrTodoNotFound
}

func (s *todoService) DeleteTodo(ctx context.Context, username, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds := s.store.Load()
	todos, ok := ds[username]
	if !ok {
		return ErrUserNotFound
	}
	for i := range todos {
		if todos[i].ID == id {
			ds[username] = append(todos[:i:i], todos[i+1:]...)
			return s.store.Save(ds)
		}
	}
	return ErrTodoNotFound
}

func (s *todoService) RenameUser(ctx context.Context, oldUsername, newUsername string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds := s.store.Load()
	bucket, ok := ds[oldUsername]
	if !ok {
		return ErrUserNotFound
	}
	if _, exists := ds[newUsername]; exists {
		return ErrUsernameExists
	}
	ds[newUsername] = bucket
	delete(ds, oldUsername)
	return s.store.Save(ds)
}
