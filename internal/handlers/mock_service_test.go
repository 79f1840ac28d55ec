package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fan_controller"
	"fan_controller/internal/models"
	"fan_controller/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockControl struct {
	state     fan_controller.NodeState
	err       error
	calls     []string
	lastSpeed int
}

func (m *mockControl) record(name string) (fan_controller.NodeState, error) {
	m.calls = append(m.calls, name)
	return m.state, m.err
}

func (m *mockControl) Increase(ctx context.Context) (fan_controller.NodeState, error) {
	return m.record("increase")
}
func (m *mockControl) Decrease(ctx context.Context) (fan_controller.NodeState, error) {
	return m.record("decrease")
}
func (m *mockControl) SetSpeed(ctx context.Context, speed int) (fan_controller.NodeState, error) {
	m.lastSpeed = speed
	return m.record("set")
}
func (m *mockControl) Auto(ctx context.Context) (fan_controller.NodeState, error) {
	return m.record("auto")
}

type mockMonitoring struct {
	mu    sync.Mutex
	state fan_controller.NodeState
	err   error
}

func (m *mockMonitoring) GetState(ctx context.Context) (fan_controller.NodeState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.err
}

func (m *mockMonitoring) set(st fan_controller.NodeState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = st
}

type mockEventLog struct {
	resp         []models.LogEntry
	err          error
	lastFrom     time.Time
	lastTo       time.Time
	lastCategory string
	calls        int
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.LogEntry, error) {
	m.calls++
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastCategory = f.Category
	return m.resp, m.err
}

type mockMeasurements struct {
	resp     []models.Measurement
	err      error
	lastFrom time.Time
	lastTo   time.Time
}

func (m *mockMeasurements) List(ctx context.Context, f service.MeasurementFilter) ([]models.Measurement, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func withAuth(req *http.Request) *http.Request {
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	return req
}
