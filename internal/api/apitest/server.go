// Package apitest provides an in-memory implementation of the task API for
// tests. It follows the upstream server's behaviour: activity entries on
// every change, 404 for unknown ids, 422 for empty titles, bearer auth.
package apitest

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dori/taskdeck/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	Username = "admin"
	Password = "password"
)

var signingKey = []byte("apitest-signing-key")

// Server is a fake task API backed by maps
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	tasks    map[string]model.Task
	order    []string
	activity map[string][]model.ActivityLogEntry
	clock    time.Time
	failures map[string][]int
	gates    map[string]chan struct{}
	calls    map[string]int
}

// NewServer starts a fake API that is shut down when the test ends
func NewServer(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{
		tasks:    make(map[string]model.Task),
		activity: make(map[string][]model.ActivityLogEntry),
		clock:    time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
		failures: make(map[string][]int),
		gates:    make(map[string]chan struct{}),
		calls:    make(map[string]int),
	}

	r := gin.New()
	r.Use(s.track)
	r.POST("/auth/login", s.login)

	tasks := r.Group("/tasks", s.requireAuth)
	tasks.GET("", s.listTasks)
	tasks.POST("", s.createTask)
	tasks.GET("/stats", s.stats)
	tasks.GET("/:id", s.getTask)
	tasks.PATCH("/:id", s.updateTask)
	tasks.PUT("/:id/complete", s.completeTask)
	tasks.DELETE("/:id", s.deleteTask)
	tasks.GET("/:id/activity", s.taskActivity)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Token returns a valid bearer token
func (s *Server) Token() string {
	token, err := issueToken(Username, time.Hour)
	if err != nil {
		panic(err)
	}
	return token
}

// Seed creates tasks directly, bypassing HTTP
func (s *Server) Seed(titles ...string) []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Task, 0, len(titles))
	for _, title := range titles {
		out = append(out, s.create(title))
	}
	return out
}

// FailNext makes the next n requests to route answer with status.
// Routes are written as "METHOD /path/:param", e.g. "GET /tasks/:id/activity".
func (s *Server) FailNext(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = append(s.failures[route], status)
}

// Hold blocks requests to route until the returned release func is called
func (s *Server) Hold(route string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gates[route] = ch
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.gates, route)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Calls returns how many requests hit route
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// Task returns the stored copy of a task
func (s *Server) Task(id string) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	return t, ok
}

// Len returns the number of stored tasks
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *Server) track(c *gin.Context) {
	route := c.Request.Method + " " + c.FullPath()

	s.mu.Lock()
	s.calls[route]++
	gate := s.gates[route]
	var status int
	if queue := s.failures[route]; len(queue) > 0 {
		status = queue[0]
		s.failures[route] = queue[1:]
	}
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if status != 0 {
		c.AbortWithStatusJSON(status, gin.H{"detail": "injected failure"})
		return
	}
	c.Next()
}

func (s *Server) requireAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
		return
	}
	if _, err := validateToken(raw); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid or expired token"})
		return
	}
	c.Next()
}

func (s *Server) login(c *gin.Context) {
	var creds model.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil || creds.Username == "" || creds.Password == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{
			{"loc": []string{"body", "username"}, "msg": "Field required"},
		}})
		return
	}
	if creds.Username != Username || creds.Password != Password {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid username or password"})
		return
	}
	token, err := issueToken(creds.Username, time.Hour)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, model.LoginResponse{Token: token, Message: "Login successful"})
}

func (s *Server) listTasks(c *gin.Context) {
	s.mu.Lock()
	out := make([]model.Task, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.tasks[id])
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, out)
}

func (s *Server) createTask(c *gin.Context) {
	var body struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Title) == "" {
		unprocessable(c, "title", "Value error, title must not be empty")
		return
	}

	s.mu.Lock()
	t := s.create(strings.TrimSpace(body.Title))
	s.mu.Unlock()
	c.JSON(http.StatusCreated, t)
}

func (s *Server) stats(c *gin.Context) {
	s.mu.Lock()
	var st model.TaskStats
	for _, t := range s.tasks {
		st.Total++
		if t.Completed {
			st.Completed++
		}
	}
	s.mu.Unlock()
	st.Pending = st.Total - st.Completed
	c.JSON(http.StatusOK, st)
}

func (s *Server) getTask(c *gin.Context) {
	s.mu.Lock()
	t, ok := s.tasks[c.Param("id")]
	s.mu.Unlock()
	if !ok {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) updateTask(c *gin.Context) {
	var update model.TaskUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		unprocessable(c, "body", err.Error())
		return
	}
	if update.Title != nil {
		trimmed := strings.TrimSpace(*update.Title)
		if trimmed == "" {
			unprocessable(c, "title", "Value error, title must not be empty")
			return
		}
		update.Title = &trimmed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := c.Param("id")
	t, ok := s.tasks[id]
	if !ok {
		notFound(c)
		return
	}

	if update.Title != nil && *update.Title != t.Title {
		s.log(id, model.ActionUpdated, strPtr(t.Title), strPtr(*update.Title))
		t.Title = *update.Title
	}
	if update.Completed != nil && *update.Completed != t.Completed {
		oldStatus := t.Status()
		t.Completed = *update.Completed
		s.log(id, model.ActionStatusChanged, strPtr(oldStatus), strPtr(t.Status()))
	}
	t.UpdatedAt = s.tick()
	s.tasks[id] = t
	c.JSON(http.StatusOK, t)
}

func (s *Server) completeTask(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := c.Param("id")
	t, ok := s.tasks[id]
	if !ok {
		notFound(c)
		return
	}
	oldStatus := t.Status()
	t.Completed = true
	t.UpdatedAt = s.tick()
	s.tasks[id] = t
	s.log(id, model.ActionCompleted, strPtr(oldStatus), strPtr("completed"))
	c.JSON(http.StatusOK, t)
}

func (s *Server) deleteTask(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := c.Param("id")
	if _, ok := s.tasks[id]; !ok {
		notFound(c)
		return
	}
	s.log(id, model.ActionDeleted, nil, nil)
	delete(s.tasks, id)
	delete(s.activity, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) taskActivity(c *gin.Context) {
	s.mu.Lock()
	id := c.Param("id")
	_, ok := s.tasks[id]
	entries := append([]model.ActivityLogEntry{}, s.activity[id]...)
	s.mu.Unlock()
	if !ok {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// create must be called with s.mu held
func (s *Server) create(title string) model.Task {
	now := s.tick()
	t := model.Task{
		ID:        uuid.New().String(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.tasks[t.ID] = t
	s.order = append(s.order, t.ID)
	s.log(t.ID, model.ActionCreated, nil, nil)
	return t
}

// log must be called with s.mu held
func (s *Server) log(taskID string, action model.Action, oldValue, newValue *string) {
	s.activity[taskID] = append(s.activity[taskID], model.ActivityLogEntry{
		ID:        uuid.New().String(),
		TaskID:    taskID,
		Action:    action,
		Timestamp: s.clock,
		OldValue:  oldValue,
		NewValue:  newValue,
	})
}

// tick advances the fake clock so updated_at strictly increases
func (s *Server) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"detail": "Task with id '" + c.Param("id") + "' not found"})
}

func unprocessable(c *gin.Context, field, msg string) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{
		{"loc": []string{"body", field}, "msg": msg},
	}})
}

func strPtr(s string) *string {
	return &s
}

func issueToken(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    "apitest",
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
}

func validateToken(raw string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return signingKey, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
