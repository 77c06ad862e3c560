// Package apiclient is the HTTP surface of the study-tracking backend. It
// wraps a resty client that attaches the persisted credential token to every
// outgoing request and exposes typed calls for the documented endpoints.
package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/patric-chuzhbe/studytrack/internal/logger"
	"github.com/patric-chuzhbe/studytrack/internal/models"
	"github.com/patric-chuzhbe/studytrack/internal/sessionfile"
)

// ErrNetwork marks failures where the backend could not be reached at all,
// as opposed to the backend answering with an error status.
var ErrNetwork = errors.New("backend unreachable")

// APIError is the backend's answer for a rejected request.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

type tokenLoader interface {
	Load(key string, value interface{}) bool
}

// Option customizes a Client.
type Option func(*Client)

// WithUnauthorizedHandler registers a callback fired whenever an
// authenticated request comes back with 401 Unauthorized. The app wires it
// to the session manager's Logout so a revoked token cannot linger.
func WithUnauthorizedHandler(handler func()) Option {
	return func(c *Client) {
		c.onUnauthorized = handler
	}
}

// Client calls the study-tracking backend. The token is read from the
// persisted session store right before each request, so the client needs no
// reference to the in-memory session.
type Client struct {
	http           *resty.Client
	onUnauthorized func()
}

// New builds a Client for the given base URL. Requests time out after
// requestTimeout; tokens come from the given store at call time.
func New(baseURL string, requestTimeout time.Duration, tokens tokenLoader, options ...Option) *Client {
	client := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(requestTimeout),
	}

	for _, option := range options {
		option(client)
	}

	client.http.OnBeforeRequest(func(_ *resty.Client, request *resty.Request) error {
		request.SetHeader("X-Request-Id", uuid.New().String())

		token := ""
		if tokens.Load(sessionfile.TokenKey, &token) && token != "" {
			request.SetHeader("Authorization", "Bearer "+token)
		}

		return nil
	})

	client.http.OnAfterResponse(func(_ *resty.Client, response *resty.Response) error {
		if response.StatusCode() == http.StatusUnauthorized &&
			response.Request.Header.Get("Authorization") != "" &&
			client.onUnauthorized != nil {
			logger.Log.Debugln("The backend rejected the token, resetting the session")
			client.onUnauthorized()
		}

		return nil
	})

	logger.WithRequestLogging(client.http)

	return client
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	request := c.http.R().
		SetContext(ctx).
		SetError(&models.APIErrorResponse{})

	if body != nil {
		request.SetHeader("Content-Type", "application/json")
		request.SetBody(body)
	}
	if result != nil {
		request.SetResult(result)
	}

	response, err := request.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	if response.IsError() {
		message := http.StatusText(response.StatusCode())
		if errorResponse, ok := response.Error().(*models.APIErrorResponse); ok && errorResponse.Message != "" {
			message = errorResponse.Message
		}

		return &APIError{
			StatusCode: response.StatusCode(),
			Message:    message,
		}
	}

	return nil
}

// Register calls POST /api/users/register. The response body carries no
// guaranteed session payload and is ignored.
func (c *Client) Register(ctx context.Context, request models.RegisterRequest) error {
	return c.do(ctx, http.MethodPost, "/api/users/register", request, nil)
}

// Login calls POST /api/users/login and returns the issued token and user.
func (c *Client) Login(ctx context.Context, request models.LoginRequest) (*models.LoginResponse, error) {
	result := &models.LoginResponse{}
	err := c.do(ctx, http.MethodPost, "/api/users/login", request, result)
	if err != nil {
		return nil, err
	}

	return result, nil
}

// ListModules calls GET /api/modules.
func (c *Client) ListModules(ctx context.Context) ([]models.Module, error) {
	result := []models.Module{}
	err := c.do(ctx, http.MethodGet, "/api/modules", nil, &result)
	if err != nil {
		return nil, err
	}

	return result, nil
}

// CreateModule calls POST /api/modules.
func (c *Client) CreateModule(ctx context.Context, request models.ModuleRequest) (*models.Module, error) {
	result := &models.Module{}
	err := c.do(ctx, http.MethodPost, "/api/modules", request, result)
	if err != nil {
		return nil, err
	}

	return result, nil
}

// GetModule calls GET /api/modules/:id.
func (c *Client) GetModule(ctx context.Context, moduleID string) (*models.Module, error) {
	result := &models.Module{}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/modules/%s", moduleID), nil, result)
	if err != nil {
		return nil, err
	}

	return result, nil
}

// UpdateModule calls PUT /api/modules/:id.
func (c *Client) UpdateModule(ctx context.Context, moduleID string, request models.ModuleRequest) (*models.Module, error) {
	result := &models.Module{}
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/modules/%s", moduleID), request, result)
	if err != nil {
		return nil, err
	}

	return result, nil
}

// DeleteModule calls DELETE /api/modules/:id.
func (c *Client) DeleteModule(ctx context.Context, moduleID string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/modules/%s", moduleID), nil, nil)
}

// ListTasks calls GET /api/modules/:id/tasks.
func (c *Client) ListTasks(ctx context.Context, moduleID string) ([]models.Task, error) {
	result := []models.Task{}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/modules/%s/tasks", moduleID), nil, &result)
	if err != nil {
		return nil, err
	}

	return result, nil
}

// CreateTask calls POST /api/modules/:id/tasks.
func (c *Client) CreateTask(ctx context.Context, moduleID string, request models.CreateTaskRequest) (*models.Task, error) {
	result := &models.Task{}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/modules/%s/tasks", moduleID), request, result)
	if err != nil {
		return nil, err
	}

	return result, nil
}

// UpdateTask calls PUT /api/tasks/:id with a partial update body.
func (c *Client) UpdateTask(ctx context.Context, taskID string, request models.UpdateTaskRequest) (*models.Task, error) {
	result := &models.Task{}
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/tasks/%s", taskID), request, result)
	if err != nil {
		return nil, err
	}

	return result, nil
}

// DeleteTask calls DELETE /api/tasks/:id.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/tasks/%s", taskID), nil, nil)
}
