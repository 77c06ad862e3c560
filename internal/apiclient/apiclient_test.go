package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/studytrack/internal/apitest"
	"github.com/patric-chuzhbe/studytrack/internal/logger"
	"github.com/patric-chuzhbe/studytrack/internal/models"
	"github.com/patric-chuzhbe/studytrack/internal/sessionfile"
)

const testTimeout = 5 * time.Second

func newTestStore(t *testing.T) *sessionfile.SessionFile {
	t.Helper()

	err := logger.Init("debug")
	require.NoError(t, err)

	store, err := sessionfile.New(t.TempDir() + "/session_test.json")
	require.NoError(t, err)

	return store
}

func TestBearerHeaderAttached(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(sessionfile.TokenKey, "T1"))

	var seenAuthorization, seenRequestID string
	backend := httptest.NewServer(http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		seenAuthorization = request.Header.Get("Authorization")
		seenRequestID = request.Header.Get("X-Request-Id")
		response.Header().Set("Content-Type", "application/json")
		_, _ = response.Write([]byte(`[]`))
	}))
	defer backend.Close()

	client := New(backend.URL, testTimeout, store)

	_, err := client.ListModules(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer T1", seenAuthorization, "The persisted token should be attached as a Bearer header")
	assert.NotEmpty(t, seenRequestID)
}

func TestNoBearerHeaderWithoutToken(t *testing.T) {
	store := newTestStore(t)

	var seenAuthorization string
	backend := httptest.NewServer(http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		seenAuthorization = request.Header.Get("Authorization")
		response.Header().Set("Content-Type", "application/json")
		_, _ = response.Write([]byte(`[]`))
	}))
	defer backend.Close()

	client := New(backend.URL, testTimeout, store)

	_, err := client.ListModules(context.Background())
	require.NoError(t, err)

	assert.Empty(t, seenAuthorization, "Without a persisted token the request should go out unauthenticated")
}

func TestUnauthorizedHandler(t *testing.T) {
	store := newTestStore(t)

	backend := httptest.NewServer(http.HandlerFunc(func(response http.ResponseWriter, _ *http.Request) {
		response.Header().Set("Content-Type", "application/json")
		response.WriteHeader(http.StatusUnauthorized)
		_, _ = response.Write([]byte(`{"message": "token expired"}`))
	}))
	defer backend.Close()

	handlerCalls := 0
	client := New(backend.URL, testTimeout, store, WithUnauthorizedHandler(func() {
		handlerCalls++
	}))

	_, err := client.ListModules(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 0, handlerCalls, "A 401 on an unauthenticated request should not fire the handler")

	require.NoError(t, store.Save(sessionfile.TokenKey, "T1"))

	_, err = client.ListModules(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, handlerCalls, "A 401 on an authenticated request should fire the handler")
}

func TestAPIErrorCarriesBackendMessage(t *testing.T) {
	store := newTestStore(t)

	backend := apitest.New()
	defer backend.Close()

	client := New(backend.URL, testTimeout, store)

	_, err := client.Login(context.Background(), models.LoginRequest{
		Email:    "nobody@example.com",
		Password: "wrong",
	})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "invalid credentials", apiErr.Message)
}

func TestNetworkErrorIsMarked(t *testing.T) {
	store := newTestStore(t)

	backend := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	backend.Close() // nothing listens anymore

	client := New(backend.URL, testTimeout, store)

	_, err := client.ListModules(context.Background())
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestModuleAndTaskRoundtrip(t *testing.T) {
	store := newTestStore(t)

	backend := apitest.New()
	defer backend.Close()

	client := New(backend.URL, testTimeout, store)
	ctx := context.Background()

	err := client.Register(ctx, models.RegisterRequest{
		Username: "a",
		Email:    "a@b.com",
		Password: "pw",
	})
	require.NoError(t, err)

	loginResponse, err := client.Login(ctx, models.LoginRequest{
		Email:    "a@b.com",
		Password: "pw",
	})
	require.NoError(t, err)
	require.NotEmpty(t, loginResponse.Token)

	require.NoError(t, store.Save(sessionfile.TokenKey, loginResponse.Token))

	module, err := client.CreateModule(ctx, models.ModuleRequest{
		Name:        "Algebra",
		Description: "linear algebra basics",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, module.ID)
	assert.Equal(t, loginResponse.User.ID, module.User)

	modules, err := client.ListModules(ctx)
	require.NoError(t, err)
	require.Len(t, modules, 1)
	assert.Equal(t, "Algebra", modules[0].Name)

	updated, err := client.UpdateModule(ctx, module.ID, models.ModuleRequest{
		Name:        "Algebra II",
		Description: "vector spaces",
	})
	require.NoError(t, err)
	assert.Equal(t, "Algebra II", updated.Name)

	task, err := client.CreateTask(ctx, module.ID, models.CreateTaskRequest{
		Title:   "read chapter 1",
		DueDate: "2026-09-15",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusTodo, task.Status)

	statusDone := models.TaskStatusDone
	task, err = client.UpdateTask(ctx, task.ID, models.UpdateTaskRequest{
		Status: &statusDone,
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusDone, task.Status)
	assert.Equal(t, "read chapter 1", task.Title, "A partial update should leave other fields alone")

	tasks, err := client.ListTasks(ctx, module.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	require.NoError(t, client.DeleteTask(ctx, task.ID))

	tasks, err = client.ListTasks(ctx, module.ID)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	require.NoError(t, client.DeleteModule(ctx, module.ID))

	modules, err = client.ListModules(ctx)
	require.NoError(t, err)
	assert.Empty(t, modules)
}
