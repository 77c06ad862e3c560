// Package models defines the wire-level data structures exchanged with the
// study-tracking backend, together with the request payloads the client sends.
package models

import "errors"

// User represents a backend user account as returned by the auth endpoints.
type User struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	GithubID string `json:"githubId,omitempty"`
}

// Module represents a study subject grouping tasks. The User field holds the
// owner's ID.
type Module struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	User        string `json:"user"`
}

// TaskStatus is the backend task state enumeration.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusDone       TaskStatus = "done"
)

// ErrUnknownTaskStatus is returned when a status string is outside the
// todo/in-progress/done set.
var ErrUnknownTaskStatus = errors.New("unknown task status")

// ParseTaskStatus converts a raw string into a TaskStatus.
func ParseTaskStatus(raw string) (TaskStatus, error) {
	switch TaskStatus(raw) {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return TaskStatus(raw), nil
	}

	return "", ErrUnknownTaskStatus
}

// Task is a unit of work belonging to a module.
type Task struct {
	ID          string     `json:"_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	DueDate     string     `json:"dueDate,omitempty"`
	Module      string     `json:"module,omitempty"`
}

// RegisterRequest is the body of POST /api/users/register.
type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest is the body of POST /api/users/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is the payload of a successful login. The registration
// endpoint gives no such guarantee, see the session package.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// ModuleRequest is the body of module create/update calls.
type ModuleRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// CreateTaskRequest is the body of POST /api/modules/:id/tasks.
type CreateTaskRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	DueDate     string `json:"dueDate,omitempty"`
}

// UpdateTaskRequest is the body of PUT /api/tasks/:id. Nil fields are
// omitted so the backend applies a partial update.
type UpdateTaskRequest struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	Status      *TaskStatus `json:"status,omitempty"`
	DueDate     *string     `json:"dueDate,omitempty"`
}

// APIErrorResponse is the error body the backend returns for rejected
// requests.
type APIErrorResponse struct {
	Message string `json:"message"`
}
