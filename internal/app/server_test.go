// File: internal/app/server_test.go
package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/AryanBhardwaj123/placement-tracker/internal/company"
	"github.com/AryanBhardwaj123/placement-tracker/internal/config"
	"github.com/AryanBhardwaj123/placement-tracker/internal/jobs"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{GinMode: gin.TestMode, ServerHost: "127.0.0.1", ServerPort: "0"}
	logger := zap.NewNop()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{})
	require.NoError(t, err, "Failed to connect to test database")
	repo, err := company.NewGORMRepository(db)
	require.NoError(t, err, "Failed to migrate test database")
	service := company.NewService(repo, logger)
	handler := company.NewHandler(service, logger)
	job := jobs.NewDeadlineReminderJob(service, logger, cfg)

	srv, err := NewServer(cfg, logger, handler, job)
	require.NoError(t, err)
	return srv
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "success", body["status"])
}

func TestUnknownRouteRendersErrorEnvelope(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/no/such/route", nil))

	require.Equal(t, http.StatusNotFound, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "NOT_FOUND", body["code"])
	assert.Contains(t, body["details"], "/no/such/route")
}
