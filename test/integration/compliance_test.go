// Package integration runs the compliance API end to end against a PostgreSQL
// container.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heirclark/dataguard/internal/app"
	auditDTO "github.com/heirclark/dataguard/internal/audit/http/dto"
	complianceDTO "github.com/heirclark/dataguard/internal/compliance/http/dto"
	"github.com/heirclark/dataguard/internal/config"
	cryptoDomain "github.com/heirclark/dataguard/internal/crypto/domain"
	"github.com/heirclark/dataguard/internal/testutil"
)

const (
	testUserID     = "user-42"
	otherUserID    = "user-7"
	testAPIToken   = "integration-operator-token"
	testMasterKeyB = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY=" // 32 ASCII bytes
)

// integrationTestContext holds all dependencies and state for integration testing.
type integrationTestContext struct {
	container *app.Container
	server    *httptest.Server
	dsn       string
}

func setupIntegrationTest(t *testing.T) (*integrationTestContext, func()) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	dsn := testutil.StartPostgresContainer(t)
	db := testutil.OpenPostgresDB(t, dsn)
	testutil.TeardownDB(t, db)

	bootstrap := app.NewContainer(&config.Config{LogLevel: "error"})
	tokenHash, err := bootstrap.APITokenService().HashToken(testAPIToken)
	require.NoError(t, err)

	cfg := &config.Config{
		LogLevel:               "error",
		ServerHost:             "localhost",
		ServerPort:             8080,
		DBDriver:               "postgres",
		DBConnectionString:     dsn,
		DBMaxOpenConnections:   10,
		DBMaxIdleConnections:   5,
		DBConnMaxLifetime:      time.Hour,
		DBStatementTimeout:     30 * time.Second,
		EncryptionMasterKey:    testMasterKeyB,
		EncryptionKeyVersion:   1,
		AuditBatchSize:         100,
		AuditFlushInterval:     time.Hour,
		AuditFlushTimeout:      5 * time.Second,
		AuditMaxQueueSize:      1000,
		AuditBreakerFailures:   5,
		AuditRetentionDays:     365,
		ComplianceAPITokenHash: tokenHash,
		MetricsNamespace:       "dataguard",
	}

	container := app.NewContainer(cfg)

	httpSrv, err := container.HTTPServer(context.Background())
	require.NoError(t, err, "failed to get HTTP server")

	handler := httpSrv.GetHandler()
	require.NotNil(t, handler)

	itc := &integrationTestContext{
		container: container,
		server:    httptest.NewServer(handler),
		dsn:       dsn,
	}

	return itc, func() {
		itc.server.Close()
		if err := container.Shutdown(context.Background()); err != nil {
			t.Logf("Warning: container shutdown error: %v", err)
		}
	}
}

// makeRequest performs an authenticated HTTP request and returns the status and body.
func (ctx *integrationTestContext) makeRequest(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		require.NoError(t, err)
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, ctx.server.URL+path, bodyReader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testAPIToken)

	client := &http.Client{Timeout: 30 * time.Second}
	//nolint:gosec // controlled test environment with localhost URLs
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, respBody
}

// flushAudit writes every queued audit entry.
func (ctx *integrationTestContext) flushAudit(t *testing.T) {
	t.Helper()

	sink, err := ctx.container.AuditSink()
	require.NoError(t, err)
	require.NoError(t, sink.Drain(context.Background()))
}

func (ctx *integrationTestContext) listAuditLogs(t *testing.T, query string) auditDTO.ListAuditLogsResponse {
	t.Helper()

	status, body := ctx.makeRequest(t, http.MethodGet, "/v1/audit-logs?"+query, nil)
	require.Equal(t, http.StatusOK, status, string(body))

	var response auditDTO.ListAuditLogsResponse
	require.NoError(t, json.Unmarshal(body, &response))
	return response
}

func TestComplianceExportAndErase(t *testing.T) {
	itc, teardown := setupIntegrationTest(t)
	defer teardown()

	db, err := itc.container.DB()
	require.NoError(t, err)

	cipher, err := itc.container.FieldCipher()
	require.NoError(t, err)

	notesEnvelope, err := cipher.Encrypt("porridge with berries", cryptoDomain.NutritionData)
	require.NoError(t, err)
	legacyNotes := "two eggs"

	// An envelope sealed under another context never opens as weight data.
	foreignEnvelope, err := cipher.Encrypt("80.1", cryptoDomain.NutritionData)
	require.NoError(t, err)
	legacyWeight := "72.5"

	testutil.CreateTestMeal(t, db, "postgres", testUserID, &notesEnvelope, nil)
	testutil.CreateTestMeal(t, db, "postgres", testUserID, nil, &legacyNotes)
	testutil.CreateTestWeightLog(t, db, "postgres", testUserID, &foreignEnvelope, &legacyWeight)
	testutil.CreateTestMeal(t, db, "postgres", otherUserID, &notesEnvelope, nil)

	t.Run("export", func(t *testing.T) {
		status, body := itc.makeRequest(t, http.MethodPost, "/v1/compliance/export",
			map[string]string{"user_id": testUserID})
		require.Equal(t, http.StatusOK, status, string(body))

		var response complianceDTO.ExportResponse
		require.NoError(t, json.Unmarshal(body, &response))

		assert.Equal(t, complianceDTO.StatusCompleted, response.Status)
		assert.Equal(t, testUserID, response.UserID)
		assert.Empty(t, response.Errors)

		statuses := map[string]string{}
		for _, record := range response.Domains["meals"] {
			field := record.Fields["notes_encrypted"]
			statuses[*field.Value] = field.Status
		}
		assert.Equal(t, map[string]string{
			"porridge with berries": "decrypted",
			"two eggs":              "plaintext",
		}, statuses)

		require.Len(t, response.Domains["weight"], 1)
		weight := response.Domains["weight"][0].Fields["weight_encrypted"]
		assert.Equal(t, "plaintext_fallback", weight.Status)
		assert.Equal(t, legacyWeight, *weight.Value)

		assert.Empty(t, response.Domains["hydration"])
	})

	t.Run("export-audited", func(t *testing.T) {
		itc.flushAudit(t)

		logs := itc.listAuditLogs(t, "user_id="+testUserID)
		actions := make([]string, 0, len(logs.Data))
		for _, entry := range logs.Data {
			actions = append(actions, entry.Action)
		}
		assert.Contains(t, actions, "compliance.export.started")
		assert.Contains(t, actions, "compliance.export.completed")
	})

	t.Run("erase", func(t *testing.T) {
		status, body := itc.makeRequest(t, http.MethodPost, "/v1/compliance/erase",
			map[string]string{"user_id": testUserID})
		require.Equal(t, http.StatusOK, status, string(body))

		var response complianceDTO.EraseResponse
		require.NoError(t, json.Unmarshal(body, &response))
		assert.Equal(t, map[string]int64{"meals": 2, "weight": 1}, response.Deleted)
		assert.GreaterOrEqual(t, response.AnonymizedAuditRows, int64(2))

		itc.flushAudit(t)

		assert.Zero(t, testutil.CountUserRows(t, db, "postgres", "meals", testUserID))
		assert.Zero(t, testutil.CountUserRows(t, db, "postgres", "weight_logs", testUserID))
		assert.Equal(t, 1, testutil.CountUserRows(t, db, "postgres", "meals", otherUserID))
	})

	t.Run("audit-trail-anonymized", func(t *testing.T) {
		assert.Empty(t, itc.listAuditLogs(t, "user_id="+testUserID).Data)

		status, body := itc.makeRequest(t, http.MethodGet, "/v1/audit-logs?limit=100", nil)
		require.Equal(t, http.StatusOK, status)
		assert.NotContains(t, string(body), testUserID)

		completed := itc.listAuditLogs(t, "action=compliance.erase.completed")
		require.Len(t, completed.Data, 1)
		assert.NotEmpty(t, completed.Data[0].Metadata["subject_ref"])
	})

	t.Run("erase-is-idempotent", func(t *testing.T) {
		status, body := itc.makeRequest(t, http.MethodPost, "/v1/compliance/erase",
			map[string]string{"user_id": testUserID})
		require.Equal(t, http.StatusOK, status, string(body))

		var response complianceDTO.EraseResponse
		require.NoError(t, json.Unmarshal(body, &response))
		assert.Empty(t, response.Deleted)
	})
}
