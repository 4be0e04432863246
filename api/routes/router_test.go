package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/sitecompliance-backend/internal/clients"
	"github.com/angelmondragon/sitecompliance-backend/internal/conditionals"
	"github.com/angelmondragon/sitecompliance-backend/internal/residues"
	"github.com/angelmondragon/sitecompliance-backend/pkg/config"
	"github.com/angelmondragon/sitecompliance-backend/pkg/db/models"
	"github.com/angelmondragon/sitecompliance-backend/pkg/enums"
	"github.com/angelmondragon/sitecompliance-backend/pkg/logger"
	"github.com/angelmondragon/sitecompliance-backend/pkg/metrics"
	"github.com/angelmondragon/sitecompliance-backend/pkg/pagination"
)

type stubClients struct {
	client *models.Client
}

func (s stubClients) CreateClient(context.Context, clients.CreateClientInput) (*models.Client, error) {
	return s.client, nil
}

func (s stubClients) GetClient(_ context.Context, id uuid.UUID) (*models.Client, error) {
	if s.client == nil || s.client.ID != id {
		return nil, fmt.Errorf("unexpected id %s", id)
	}
	return s.client, nil
}

func (s stubClients) ListClients(context.Context, pagination.Params) (*pagination.Page[models.Client], error) {
	return &pagination.Page[models.Client]{Items: []models.Client{*s.client}}, nil
}

type stubConditionals struct {
	conditionals.Service
	recorded int
}

func (s *stubConditionals) RecordExecution(_ context.Context, id uuid.UUID, input conditionals.RecordExecutionInput) (*conditionals.ExecutionResult, error) {
	s.recorded++
	return &conditionals.ExecutionResult{
		Execution: conditionals.ExecutionView{ID: uuid.New(), ConditionalID: id, ExecutedBy: input.ExecutedBy},
	}, nil
}

type memoryRedis struct {
	data   map[string]string
	counts map[string]int64
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{data: map[string]string{}, counts: map[string]int64{}}
}

func (m *memoryRedis) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key], _ = value.(string)
	return true, nil
}

func (m *memoryRedis) IdempotencyKey(scope, id string) string { return scope + ":" + id }

func (m *memoryRedis) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryRedis) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.counts[key]++
	return m.counts[key], nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:       config.AppConfig{Env: "test"},
		RateLimit: config.RateLimitConfig{Window: time.Minute, WriteLimit: 100},
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestHealthLive(t *testing.T) {
	router := NewRouter(Dependencies{Config: testConfig(), Logger: testLogger()})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Header().Get("X-SiteCompliance-Env") != "test" {
		t.Fatalf("missing env header")
	}
	if resp.Header().Get("X-Request-Id") == "" {
		t.Fatalf("missing request id header")
	}
}

func TestMetricsEndpointExposesHTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	router := NewRouter(Dependencies{
		Config:   testConfig(),
		Logger:   testLogger(),
		Registry: reg,
		Metrics:  metrics.NewHTTPMetrics(reg),
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `route="/health/live"`) {
		t.Fatalf("expected route label in metrics output")
	}
}

func TestClientRoutesDispatch(t *testing.T) {
	client := &models.Client{ID: uuid.New(), Name: "Construtora Alfa"}
	router := NewRouter(Dependencies{Config: testConfig(), Logger: testLogger(), Clients: stubClients{client: client}})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/clients/"+client.ID.String(), nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.Name != client.Name || envelope.Data.ID != client.ID.String() {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}

	list := httptest.NewRecorder()
	router.ServeHTTP(list, httptest.NewRequest(http.MethodGet, "/api/v1/clients?limit=10", nil))
	if list.Code != http.StatusOK {
		t.Fatalf("expected list 200 got %d", list.Code)
	}
}

type stubResidues struct {
	residues.Service
	roles []enums.WasteHandlerRole
}

func (s *stubResidues) Get(_ context.Context, role enums.WasteHandlerRole, id uuid.UUID) (*residues.HandlerView, error) {
	s.roles = append(s.roles, role)
	return &residues.HandlerView{ID: id, Role: role}, nil
}

func TestResidueRoutesBindRole(t *testing.T) {
	svc := &stubResidues{}
	router := NewRouter(Dependencies{Config: testConfig(), Logger: testLogger(), Residues: svc})

	for _, path := range []string{"/api/v1/residues/transporters/", "/api/v1/residues/recipients/"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path+uuid.NewString(), nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
	want := []enums.WasteHandlerRole{enums.WasteHandlerTransporter, enums.WasteHandlerRecipient}
	if len(svc.roles) != 2 || svc.roles[0] != want[0] || svc.roles[1] != want[1] {
		t.Fatalf("unexpected roles %v", svc.roles)
	}
}

func TestInvalidIDIsValidationError(t *testing.T) {
	router := NewRouter(Dependencies{Config: testConfig(), Logger: testLogger(), Clients: stubClients{}})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/clients/not-a-uuid", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestMissingServiceIsInternalError(t *testing.T) {
	router := NewRouter(Dependencies{Config: testConfig(), Logger: testLogger()})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}

func TestExecutionsRequireIdempotencyKey(t *testing.T) {
	svc := &stubConditionals{}
	router := NewRouter(Dependencies{
		Config:       testConfig(),
		Logger:       testLogger(),
		Redis:        newMemoryRedis(),
		Conditionals: svc,
	})
	path := "/api/v1/conditionals/" + uuid.NewString() + "/executions"
	body := `{"executed_by":"ana","executed_at":"2024-06-01"}`

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without key got %d", resp.Code)
	}
	if svc.recorded != 0 {
		t.Fatalf("service must not run without a key")
	}

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Idempotency-Key", "exec-1")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusCreated {
			t.Fatalf("attempt %d: expected 201 got %d: %s", i, resp.Code, resp.Body.String())
		}
	}
	if svc.recorded != 1 {
		t.Fatalf("expected a single recorded execution, got %d", svc.recorded)
	}
}
