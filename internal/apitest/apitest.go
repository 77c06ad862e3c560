// Package apitest provides an in-memory stand-in for the study-tracking
// backend REST API. It implements the documented endpoints over an
// httptest.Server so client packages can be tested end to end without a
// real backend.
package apitest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/thoas/go-funk"
	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/studytrack/internal/models"
)

// Claims represents the JWT claims issued by the fake backend.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

type contextKey string

const userIDKey contextKey = "userID"

func requestWithUserID(request *http.Request, userID string) *http.Request {
	ctx := context.WithValue(request.Context(), userIDKey, userID)

	return request.WithContext(ctx)
}

func userIDFromRequest(request *http.Request) string {
	userID, _ := request.Context().Value(userIDKey).(string)

	return userID
}

type account struct {
	user         models.User
	passwordHash []byte
}

// Server is the fake backend. URL points at the underlying test server.
type Server struct {
	URL string

	httpServer   *httptest.Server
	signingKey   []byte
	mu           sync.Mutex
	usersByEmail map[string]*account
	modules      map[string]*models.Module
	tasks        map[string]*models.Task
}

// New starts a fake backend listening on a random local port.
func New() *Server {
	server := &Server{
		signingKey:   []byte("apitest signing key"),
		usersByEmail: map[string]*account{},
		modules:      map[string]*models.Module{},
		tasks:        map[string]*models.Task{},
	}

	router := chi.NewRouter()
	router.Post(`/api/users/register`, server.postRegister)
	router.Post(`/api/users/login`, server.postLogin)
	router.Group(func(router chi.Router) {
		router.Use(server.authenticateUser)
		router.Get(`/api/modules`, server.getModules)
		router.Post(`/api/modules`, server.postModules)
		router.Get(`/api/modules/{moduleID}`, server.getModule)
		router.Put(`/api/modules/{moduleID}`, server.putModule)
		router.Delete(`/api/modules/{moduleID}`, server.deleteModule)
		router.Get(`/api/modules/{moduleID}/tasks`, server.getTasks)
		router.Post(`/api/modules/{moduleID}/tasks`, server.postTasks)
		router.Put(`/api/tasks/{taskID}`, server.putTask)
		router.Delete(`/api/tasks/{taskID}`, server.deleteTask)
	})

	server.httpServer = httptest.NewServer(router)
	server.URL = server.httpServer.URL

	return server
}

// Close shuts the fake backend down.
func (s *Server) Close() {
	s.httpServer.Close()
}

func writeJSON(response http.ResponseWriter, status int, value interface{}) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)
	_ = json.NewEncoder(response).Encode(value)
}

func writeMessage(response http.ResponseWriter, status int, message string) {
	writeJSON(response, status, models.APIErrorResponse{Message: message})
}

func (s *Server) buildJWTString(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, *claims)

	tokenString, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func (s *Server) getUserIDFromAuthorizationHeader(request *http.Request) string {
	tokenString := request.Header.Get("Authorization")
	if len(tokenString) <= len("Bearer ") {
		return ""
	}
	tokenString = tokenString[len("Bearer "):]

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.signingKey, nil
		},
	)
	if err != nil || !token.Valid {
		return ""
	}

	return claims.UserID
}

func (s *Server) authenticateUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		userID := s.getUserIDFromAuthorizationHeader(request)
		if userID == "" {
			writeMessage(response, http.StatusUnauthorized, "missing or invalid token")
			return
		}

		h.ServeHTTP(response, requestWithUserID(request, userID))
	}

	return http.HandlerFunc(middleware)
}

func (s *Server) postRegister(response http.ResponseWriter, request *http.Request) {
	registerRequest := models.RegisterRequest{}
	if err := json.NewDecoder(request.Body).Decode(&registerRequest); err != nil {
		writeMessage(response, http.StatusBadRequest, "malformed request body")
		return
	}
	if registerRequest.Username == "" || registerRequest.Email == "" || registerRequest.Password == "" {
		writeMessage(response, http.StatusBadRequest, "username, email and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByEmail[registerRequest.Email]; exists {
		writeMessage(response, http.StatusConflict, "email already registered")
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(registerRequest.Password), bcrypt.MinCost)
	if err != nil {
		writeMessage(response, http.StatusInternalServerError, "password hashing failed")
		return
	}

	s.usersByEmail[registerRequest.Email] = &account{
		user: models.User{
			ID:       uuid.New().String(),
			Username: registerRequest.Username,
			Email:    registerRequest.Email,
		},
		passwordHash: passwordHash,
	}

	// The registration response intentionally carries no session payload.
	writeJSON(response, http.StatusCreated, map[string]string{"message": "registered"})
}

func (s *Server) postLogin(response http.ResponseWriter, request *http.Request) {
	loginRequest := models.LoginRequest{}
	if err := json.NewDecoder(request.Body).Decode(&loginRequest); err != nil {
		writeMessage(response, http.StatusBadRequest, "malformed request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, found := s.usersByEmail[loginRequest.Email]
	if !found {
		writeMessage(response, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(loginRequest.Password)) != nil {
		writeMessage(response, http.StatusUnauthorized, "invalid credentials")
		return
	}

	tokenString, err := s.buildJWTString(&Claims{UserID: acc.user.ID})
	if err != nil {
		writeMessage(response, http.StatusInternalServerError, "token signing failed")
		return
	}

	writeJSON(response, http.StatusOK, models.LoginResponse{
		Token: tokenString,
		User:  acc.user,
	})
}

func (s *Server) getModules(response http.ResponseWriter, request *http.Request) {
	userID := userIDFromRequest(request)

	s.mu.Lock()
	allModules := funk.Map(s.modules, func(_ string, module *models.Module) models.Module {
		return *module
	}).([]models.Module)
	s.mu.Unlock()

	owned := funk.Filter(allModules, func(module models.Module) bool {
		return module.User == userID
	}).([]models.Module)

	writeJSON(response, http.StatusOK, owned)
}

func (s *Server) postModules(response http.ResponseWriter, request *http.Request) {
	moduleRequest := models.ModuleRequest{}
	if err := json.NewDecoder(request.Body).Decode(&moduleRequest); err != nil {
		writeMessage(response, http.StatusBadRequest, "malformed request body")
		return
	}
	if moduleRequest.Name == "" {
		writeMessage(response, http.StatusBadRequest, "name is required")
		return
	}

	module := models.Module{
		ID:          uuid.New().String(),
		Name:        moduleRequest.Name,
		Description: moduleRequest.Description,
		User:        userIDFromRequest(request),
	}

	s.mu.Lock()
	s.modules[module.ID] = &module
	s.mu.Unlock()

	writeJSON(response, http.StatusCreated, module)
}

func (s *Server) findOwnedModule(request *http.Request) (*models.Module, bool) {
	module, found := s.modules[chi.URLParam(request, "moduleID")]
	if !found || module.User != userIDFromRequest(request) {
		return nil, false
	}

	return module, true
}

func (s *Server) getModule(response http.ResponseWriter, request *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	module, found := s.findOwnedModule(request)
	if !found {
		writeMessage(response, http.StatusNotFound, "module not found")
		return
	}

	writeJSON(response, http.StatusOK, *module)
}

func (s *Server) putModule(response http.ResponseWriter, request *http.Request) {
	moduleRequest := models.ModuleRequest{}
	if err := json.NewDecoder(request.Body).Decode(&moduleRequest); err != nil {
		writeMessage(response, http.StatusBadRequest, "malformed request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	module, found := s.findOwnedModule(request)
	if !found {
		writeMessage(response, http.StatusNotFound, "module not found")
		return
	}

	module.Name = moduleRequest.Name
	module.Description = moduleRequest.Description

	writeJSON(response, http.StatusOK, *module)
}

func (s *Server) deleteModule(response http.ResponseWriter, request *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	module, found := s.findOwnedModule(request)
	if !found {
		writeMessage(response, http.StatusNotFound, "module not found")
		return
	}

	delete(s.modules, module.ID)
	for taskID, task := range s.tasks {
		if task.Module == module.ID {
			delete(s.tasks, taskID)
		}
	}

	response.WriteHeader(http.StatusNoContent)
}

func (s *Server) getTasks(response http.ResponseWriter, request *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	module, found := s.findOwnedModule(request)
	if !found {
		writeMessage(response, http.StatusNotFound, "module not found")
		return
	}

	tasks := []models.Task{}
	for _, task := range s.tasks {
		if task.Module == module.ID {
			tasks = append(tasks, *task)
		}
	}

	writeJSON(response, http.StatusOK, tasks)
}

func (s *Server) postTasks(response http.ResponseWriter, request *http.Request) {
	taskRequest := models.CreateTaskRequest{}
	if err := json.NewDecoder(request.Body).Decode(&taskRequest); err != nil {
		writeMessage(response, http.StatusBadRequest, "malformed request body")
		return
	}
	if taskRequest.Title == "" {
		writeMessage(response, http.StatusBadRequest, "title is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	module, found := s.findOwnedModule(request)
	if !found {
		writeMessage(response, http.StatusNotFound, "module not found")
		return
	}

	task := models.Task{
		ID:          uuid.New().String(),
		Title:       taskRequest.Title,
		Description: taskRequest.Description,
		Status:      models.TaskStatusTodo,
		DueDate:     taskRequest.DueDate,
		Module:      module.ID,
	}
	s.tasks[task.ID] = &task

	writeJSON(response, http.StatusCreated, task)
}

func (s *Server) findOwnedTask(request *http.Request) (*models.Task, bool) {
	task, found := s.tasks[chi.URLParam(request, "taskID")]
	if !found {
		return nil, false
	}

	module, found := s.modules[task.Module]
	if !found || module.User != userIDFromRequest(request) {
		return nil, false
	}

	return task, true
}

func (s *Server) putTask(response http.ResponseWriter, request *http.Request) {
	taskRequest := models.UpdateTaskRequest{}
	if err := json.NewDecoder(request.Body).Decode(&taskRequest); err != nil {
		writeMessage(response, http.StatusBadRequest, "malformed request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task, found := s.findOwnedTask(request)
	if !found {
		writeMessage(response, http.StatusNotFound, "task not found")
		return
	}

	if taskRequest.Title != nil {
		task.Title = *taskRequest.Title
	}
	if taskRequest.Description != nil {
		task.Description = *taskRequest.Description
	}
	if taskRequest.Status != nil {
		if _, err := models.ParseTaskStatus(string(*taskRequest.Status)); err != nil {
			writeMessage(response, http.StatusBadRequest, "unknown task status")
			return
		}
		task.Status = *taskRequest.Status
	}
	if taskRequest.DueDate != nil {
		task.DueDate = *taskRequest.DueDate
	}

	writeJSON(response, http.StatusOK, *task)
}

func (s *Server) deleteTask(response http.ResponseWriter, request *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.findOwnedTask(request); !found {
		writeMessage(response, http.StatusNotFound, "task not found")
		return
	}

	delete(s.tasks, chi.URLParam(request, "taskID"))

	response.WriteHeader(http.StatusNoContent)
}
