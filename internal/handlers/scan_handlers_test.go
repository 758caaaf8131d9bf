package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"github.com/AnomFIN/AnomRadar/internal/models"
	"github.com/AnomFIN/AnomRadar/pkg/engine"
	apperrors "github.com/AnomFIN/AnomRadar/pkg/errors"
	"github.com/AnomFIN/AnomRadar/pkg/probes"
)

type MockScanService struct {
	mock.Mock
}

func (m *MockScanService) StartScan(scan *models.Scan) (string, error) {
	args := m.Called(scan)
	return args.String(0), args.Error(1)
}

func (m *MockScanService) ListScans() ([]models.Scan, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Scan), args.Error(1)
}

func (m *MockScanService) ListScansWithPagination(page, limit int) ([]models.Scan, int64, error) {
	args := m.Called(page, limit)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]models.Scan), args.Get(1).(int64), args.Error(2)
}

func (m *MockScanService) GetScanByUUID(id string) (*models.Scan, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Scan), args.Error(1)
}

func (m *MockScanService) DeleteScan(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockScanService) Close() {}

func TestStartScan(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		requestBody    string
		setupMock      func(*MockScanService)
		expectedStatus int
		expectedBody   string
		validateMock   func(*testing.T, *MockScanService)
	}{
		{
			name:        "Valid Request - Success",
			requestBody: `{"seed":"example.fi","plan":"default"}`,
			setupMock: func(m *MockScanService) {
				m.On("StartScan", mock.MatchedBy(func(scan *models.Scan) bool {
					return scan.Seed == "example.fi" &&
						scan.Plan == "default"
				})).Return("123e4567-e89b-12d3-a456-426614174000", nil)
			},
			expectedStatus: 200,
			expectedBody:   `{"scan_id":"123e4567-e89b-12d3-a456-426614174000"}`,
			validateMock: func(t *testing.T, m *MockScanService) {
				m.AssertNumberOfCalls(t, "StartScan", 1)
			},
		},
		{
			name:           "Invalid JSON - Malformed",
			requestBody:    `{"seed":"example.fi","plan":}`,
			setupMock:      func(m *MockScanService) {},
			expectedStatus: 400,
			expectedBody:   `{"error":"Invalid request payload"}`,
			validateMock: func(t *testing.T, m *MockScanService) {
				m.AssertNumberOfCalls(t, "StartScan", 0)
			},
		},
		{
			name:           "Missing Required Field - seed",
			requestBody:    `{"plan":"default"}`,
			setupMock:      func(m *MockScanService) {},
			expectedStatus: 400,
			expectedBody:   `{"error":"Invalid request payload"}`,
		},
		{
			name:        "Unknown Plan - Config Error",
			requestBody: `{"seed":"example.fi","plan":"bogus"}`,
			setupMock: func(m *MockScanService) {
				m.On("StartScan", mock.AnythingOfType("*models.Scan")).
					Return("", apperrors.NewConfigError("plan", "bogus", "unknown scan plan"))
			},
			expectedStatus: 400,
			expectedBody:   `{"error":"config error for field plan (value: bogus): unknown scan plan"}`,
		},
		{
			name:        "Service Error - Internal Error",
			requestBody: `{"seed":"example.fi"}`,
			setupMock: func(m *MockScanService) {
				m.On("StartScan", mock.AnythingOfType("*models.Scan")).
					Return("", errors.New("database connection failed"))
			},
			expectedStatus: 500,
			expectedBody:   `{"error":"Failed to start scan"}`,
		},
		{
			name:           "Empty Request Body",
			requestBody:    `{}`,
			setupMock:      func(m *MockScanService) {},
			expectedStatus: 400,
			expectedBody:   `{"error":"Invalid request payload"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockScanService)

			tt.setupMock(mockService)

			handler := NewScanHandler(mockService)

			router := gin.New() // Use gin.New() instead of Default() to avoid middleware
			router.POST("/api/scans", handler.StartScan)

			req, err := http.NewRequest("POST", "/api/scans", strings.NewReader(tt.requestBody))
			assert.NoError(t, err, "Failed to create request")
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code,
				"Expected status %d, got %d. Response: %s",
				tt.expectedStatus, w.Code, w.Body.String())

			assert.JSONEq(t, tt.expectedBody, w.Body.String(),
				"Response body doesn't match expected JSON")

			if tt.validateMock != nil {
				tt.validateMock(t, mockService)
			}

			mockService.AssertExpectations(t)
		})
	}
}

func TestGetScanByUUID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		scanID         string
		setupMock      func(*MockScanService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "Valid ID - Scan Found",
			scanID: "123e4567-e89b-12d3-a456-426614174000",
			setupMock: func(m *MockScanService) {
				scan := &models.Scan{
					UUID:   "123e4567-e89b-12d3-a456-426614174000",
					Seed:   "example.fi",
					Plan:   "default",
					Status: "running",
				}
				m.On("GetScanByUUID", "123e4567-e89b-12d3-a456-426614174000").
					Return(scan, nil)
			},
			expectedStatus: 200,
		},
		{
			name:   "Valid ID - Scan Not Found",
			scanID: "non-existent-id",
			setupMock: func(m *MockScanService) {
				m.On("GetScanByUUID", "non-existent-id").
					Return(nil, gorm.ErrRecordNotFound)
			},
			expectedStatus: 404,
			expectedBody:   `{"error":"Scan not found"}`,
		},
		{
			name:   "Service Returns Nil Scan",
			scanID: "some-id",
			setupMock: func(m *MockScanService) {
				m.On("GetScanByUUID", "some-id").
					Return((*models.Scan)(nil), nil) // Explicit nil pointer
			},
			expectedStatus: 404,
			expectedBody:   `{"error":"Scan not found"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockScanService)
			tt.setupMock(mockService)

			handler := NewScanHandler(mockService)
			router := gin.New()
			router.GET("/api/scans/:id", handler.GetScanByUUID)

			url := fmt.Sprintf("/api/scans/%s", tt.scanID)
			req, _ := http.NewRequest("GET", url, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, w.Body.String())
			}

			mockService.AssertExpectations(t)
		})
	}
}

func TestListScans(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("Plain List", func(t *testing.T) {
		mockService := new(MockScanService)
		mockService.On("ListScans").Return([]models.Scan{
			{UUID: "id-1", Seed: "example.fi", Status: "completed"},
			{UUID: "id-2", Seed: "testi.fi", Status: "running"},
		}, nil)

		handler := NewScanHandler(mockService)
		router := gin.New()
		router.GET("/api/scans", handler.ListScans)

		req, _ := http.NewRequest("GET", "/api/scans", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, 200, w.Code)

		var scans []models.Scan
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &scans))
		assert.Len(t, scans, 2)
		assert.Equal(t, "id-1", scans[0].UUID)

		mockService.AssertExpectations(t)
	})

	t.Run("Paginated List", func(t *testing.T) {
		mockService := new(MockScanService)
		mockService.On("ListScansWithPagination", 2, 5).Return([]models.Scan{
			{UUID: "id-6", Seed: "example.fi", Status: "completed"},
		}, int64(6), nil)

		handler := NewScanHandler(mockService)
		router := gin.New()
		router.GET("/api/scans", handler.ListScans)

		req, _ := http.NewRequest("GET", "/api/scans?page=2&limit=5", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, 200, w.Code)

		var resp ScanListResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, int64(6), resp.Total)
		assert.Equal(t, 2, resp.Page)
		assert.Len(t, resp.Scans, 1)

		mockService.AssertExpectations(t)
	})

	t.Run("Service Error", func(t *testing.T) {
		mockService := new(MockScanService)
		mockService.On("ListScans").Return(nil, errors.New("db down"))

		handler := NewScanHandler(mockService)
		router := gin.New()
		router.GET("/api/scans", handler.ListScans)

		req, _ := http.NewRequest("GET", "/api/scans", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, 500, w.Code)
		assert.JSONEq(t, `{"error":"Failed to list scans"}`, w.Body.String())

		mockService.AssertExpectations(t)
	})
}

func TestDeleteScan(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		scanID         string
		setupMock      func(*MockScanService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "Successful Deletion",
			scanID: "uuid-123",
			setupMock: func(m *MockScanService) {
				m.On("DeleteScan", "uuid-123").Return(nil)
			},
			expectedStatus: 204,
			expectedBody:   "",
		},
		{
			name:   "Scan Not Found",
			scanID: "missing-id",
			setupMock: func(m *MockScanService) {
				m.On("DeleteScan", "missing-id").Return(gorm.ErrRecordNotFound)
			},
			expectedStatus: 404,
			expectedBody:   `{"error":"Scan not found"}`,
		},
		{
			name:   "Service Error",
			scanID: "uuid-987",
			setupMock: func(m *MockScanService) {
				m.On("DeleteScan", "uuid-987").Return(errors.New("db error"))
			},
			expectedStatus: 500,
			expectedBody:   `{"error":"Failed to delete scan"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockScanService)
			tt.setupMock(mockService)

			handler := NewScanHandler(mockService)
			router := gin.New()
			router.DELETE("/api/scans/:id", handler.DeleteScan)

			url := fmt.Sprintf("/api/scans/%s", tt.scanID)
			req, _ := http.NewRequest("DELETE", url, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, w.Body.String())
			} else {
				assert.Equal(t, "", w.Body.String())
			}

			mockService.AssertExpectations(t)
		})
	}
}

func TestGetScanReport(t *testing.T) {
	gin.SetMode(gin.TestMode)

	scanWithResult := func(t *testing.T) *models.Scan {
		t.Helper()
		result := &engine.ScanResult{
			ScanID: "report-id",
			Seed:   "example.fi",
			Domains: []engine.Domain{
				{Name: "example.fi", Source: engine.SourceSeed},
			},
			Findings:    []probes.Finding{},
			Outcomes:    []engine.Outcome{},
			RiskScore:   12,
			RiskLevel:   engine.RiskInfo,
			StartedAt:   time.Now().UTC(),
			CompletedAt: time.Now().UTC(),
			Status:      engine.StatusCompleted,
		}
		scan := &models.Scan{UUID: "report-id", Seed: "example.fi", Status: "completed"}
		if err := scan.ApplyResult(result); err != nil {
			t.Fatalf("ApplyResult() error = %v", err)
		}
		return scan
	}

	t.Run("JSON Report", func(t *testing.T) {
		mockService := new(MockScanService)
		mockService.On("GetScanByUUID", "report-id").Return(scanWithResult(t), nil)

		handler := NewScanHandler(mockService)
		router := gin.New()
		router.GET("/api/scans/:id/report", handler.GetScanReport)

		req, _ := http.NewRequest("GET", "/api/scans/report-id/report", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, 200, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Body.String(), `"example.fi"`)
		assert.Contains(t, w.Body.String(), `"scan_results"`)

		mockService.AssertExpectations(t)
	})

	t.Run("HTML Report", func(t *testing.T) {
		mockService := new(MockScanService)
		mockService.On("GetScanByUUID", "report-id").Return(scanWithResult(t), nil)

		handler := NewScanHandler(mockService)
		router := gin.New()
		router.GET("/api/scans/:id/report", handler.GetScanReport)

		req, _ := http.NewRequest("GET", "/api/scans/report-id/report?format=html", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, 200, w.Code)
		assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Body.String(), "example.fi")

		mockService.AssertExpectations(t)
	})

	t.Run("Invalid Format", func(t *testing.T) {
		mockService := new(MockScanService)

		handler := NewScanHandler(mockService)
		router := gin.New()
		router.GET("/api/scans/:id/report", handler.GetScanReport)

		req, _ := http.NewRequest("GET", "/api/scans/report-id/report?format=pdf", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, 400, w.Code)
		assert.JSONEq(t, `{"error":"Invalid report format"}`, w.Body.String())

		mockService.AssertNumberOfCalls(t, "GetScanByUUID", 0)
	})

	t.Run("No Result Yet", func(t *testing.T) {
		mockService := new(MockScanService)
		mockService.On("GetScanByUUID", "pending-id").
			Return(&models.Scan{UUID: "pending-id", Seed: "example.fi", Status: "running"}, nil)

		handler := NewScanHandler(mockService)
		router := gin.New()
		router.GET("/api/scans/:id/report", handler.GetScanReport)

		req, _ := http.NewRequest("GET", "/api/scans/pending-id/report", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, 404, w.Code)
		assert.JSONEq(t, `{"error":"Scan has no result yet"}`, w.Body.String())

		mockService.AssertExpectations(t)
	})
}

func TestGetScanFindings(t *testing.T) {
	gin.SetMode(gin.TestMode)

	scanWithFindings := func(t *testing.T) *models.Scan {
		t.Helper()
		result := &engine.ScanResult{
			ScanID: "findings-id",
			Seed:   "example.fi",
			Domains: []engine.Domain{
				{Name: "example.fi", Source: engine.SourceSeed},
			},
			Findings: []probes.Finding{
				{Type: "missing_spf", Severity: probes.SeverityHigh, Domain: "example.fi", Title: "SPF record missing", SourceProbe: "dns"},
				{Type: "server_version_exposed", Severity: probes.SeverityLow, Domain: "example.fi", Title: "Server version exposed", SourceProbe: "http"},
			},
			Outcomes:    []engine.Outcome{},
			RiskScore:   44,
			RiskLevel:   engine.RiskMedium,
			StartedAt:   time.Now().UTC(),
			CompletedAt: time.Now().UTC(),
			Status:      engine.StatusCompleted,
		}
		scan := &models.Scan{UUID: "findings-id", Seed: "example.fi", Status: "completed"}
		if err := scan.ApplyResult(result); err != nil {
			t.Fatalf("ApplyResult() error = %v", err)
		}
		return scan
	}

	t.Run("Findings Returned", func(t *testing.T) {
		mockService := new(MockScanService)
		mockService.On("GetScanByUUID", "findings-id").Return(scanWithFindings(t), nil)

		handler := NewScanHandler(mockService)
		router := gin.New()
		router.GET("/api/scans/:id/findings", handler.GetScanFindings)

		req, _ := http.NewRequest("GET", "/api/scans/findings-id/findings", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, 200, w.Code)

		var resp FindingsResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "findings-id", resp.ScanID)
		assert.Equal(t, 44, resp.RiskScore)
		assert.Equal(t, engine.RiskMedium, resp.RiskLevel)
		assert.Len(t, resp.Findings, 2)
		assert.Equal(t, 1, resp.Severities[probes.SeverityHigh])
		assert.Equal(t, 1, resp.Severities[probes.SeverityLow])

		mockService.AssertExpectations(t)
	})

	t.Run("No Result Yet", func(t *testing.T) {
		mockService := new(MockScanService)
		mockService.On("GetScanByUUID", "pending-id").
			Return(&models.Scan{UUID: "pending-id", Seed: "example.fi", Status: "running"}, nil)

		handler := NewScanHandler(mockService)
		router := gin.New()
		router.GET("/api/scans/:id/findings", handler.GetScanFindings)

		req, _ := http.NewRequest("GET", "/api/scans/pending-id/findings", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, 404, w.Code)
		assert.JSONEq(t, `{"error":"Scan has no result yet"}`, w.Body.String())

		mockService.AssertExpectations(t)
	})

	t.Run("Scan Not Found", func(t *testing.T) {
		mockService := new(MockScanService)
		mockService.On("GetScanByUUID", "missing-id").
			Return(nil, apperrors.ErrScanNotFound)

		handler := NewScanHandler(mockService)
		router := gin.New()
		router.GET("/api/scans/:id/findings", handler.GetScanFindings)

		req, _ := http.NewRequest("GET", "/api/scans/missing-id/findings", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, 404, w.Code)
		assert.JSONEq(t, `{"error":"Scan not found"}`, w.Body.String())

		mockService.AssertExpectations(t)
	})
}

// Helper function to create a valid scan request body
func createScanRequestBody(seed, plan string) string {
	req := ScanRequest{
		Seed: seed,
		Plan: plan,
	}
	body, _ := json.Marshal(req)
	return string(body)
}

// Benchmark test to measure handler performance
func BenchmarkStartScan(b *testing.B) {
	gin.SetMode(gin.TestMode)

	mockService := new(MockScanService)
	mockService.On("StartScan", mock.AnythingOfType("*models.Scan")).
		Return("test-id", nil)

	handler := NewScanHandler(mockService)
	router := gin.New()
	router.POST("/api/scans", handler.StartScan)

	requestBody := createScanRequestBody("example.fi", "default")

	b.ResetTimer() // Don't count setup time

	for i := 0; i < b.N; i++ {
		req, _ := http.NewRequest("POST", "/api/scans", strings.NewReader(requestBody))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
	}
}
