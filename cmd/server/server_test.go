package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polimap/vote-latent/internal/analysis"
	"github.com/polimap/vote-latent/internal/cache"
	"github.com/polimap/vote-latent/internal/compute"
	"github.com/polimap/vote-latent/internal/database"
	"github.com/polimap/vote-latent/internal/monitoring"
	"github.com/polimap/vote-latent/internal/ratelimit"
)

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := database.NewRepository(db)
	appMetrics := monitoring.NewMetrics()
	appLogger := monitoring.NewLogger()
	computeService := compute.NewService(repo, analysis.DefaultOptions(), 2, appMetrics, appLogger)

	redisClient, err := ratelimit.NewRedisClient("", "", 0)
	require.NoError(t, err)
	rateLimiter := ratelimit.NewRateLimiter(redisClient, ratelimit.DefaultConfig(), appMetrics)

	appCache := cache.NewCache(5 * time.Minute)

	return setupRouter(db, repo, computeService, rateLimiter, appCache, appMetrics, appLogger)
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func ingestFixture() map[string]interface{} {
	return map[string]interface{}{
		"bills": []map[string]interface{}{
			{"id": 10, "passed": true, "title": "Budget Act"},
			{"id": 20, "deliberationCompleted": true, "title": "Transit Reform"},
		},
		"votes": []map[string]interface{}{
			{
				"billId": 10,
				"memberScores": []map[string]interface{}{
					{"memberId": 1, "memberName": "Alice", "score": 6.0},
					{"memberId": 2, "memberName": "Bob", "score": -2.0},
				},
			},
			{
				"billId": 20,
				"memberScores": []map[string]interface{}{
					{"memberId": 1, "memberName": "Alice", "score": 4.0},
					{"memberId": 2, "memberName": "Bob", "score": 1.0},
				},
			},
		},
		"assignments": []map[string]interface{}{
			{"clusterId": 7, "billId": 10, "label": 0},
			{"clusterId": 7, "billId": 20, "label": 0},
		},
	}
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestServer(t)

	w := doJSON(t, r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "metrics")
}

func TestIngestComputeAndFetch(t *testing.T) {
	r := newTestServer(t)

	w := doJSON(t, r, http.MethodPost, "/api/ingest", ingestFixture())
	require.Equal(t, http.StatusOK, w.Code)

	var ingested map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ingested))
	assert.EqualValues(t, 2, ingested["bills"])
	assert.EqualValues(t, 4, ingested["votes"])
	assert.EqualValues(t, 2, ingested["assignments"])

	w = doJSON(t, r, http.MethodPost, "/api/compute/7", map[string]interface{}{"nComponents": 2})
	require.Equal(t, http.StatusOK, w.Code)

	var run struct {
		ClusterID   int    `json:"clusterId"`
		NComponents int    `json:"nComponents"`
		Clusters    map[string]struct {
			MemberVectors map[string][]float64 `json:"memberVectors"`
			Dimensions    int                  `json:"dimensions"`
			MemberCount   int                  `json:"memberCount"`
			BillCount     int                  `json:"billCount"`
			BillIDs       []int                `json:"billIds"`
		} `json:"clusters"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.Equal(t, 7, run.ClusterID)
	assert.Equal(t, 2, run.NComponents)
	require.Contains(t, run.Clusters, "0")
	label0 := run.Clusters["0"]
	assert.Equal(t, 2, label0.Dimensions)
	assert.Equal(t, 2, label0.MemberCount)
	assert.Equal(t, 2, label0.BillCount)
	assert.Equal(t, []int{10, 20}, label0.BillIDs)
	assert.Len(t, label0.MemberVectors["1"], 2)

	w = doJSON(t, r, http.MethodGet, "/api/vectors/7", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/vectors/7/0", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var single struct {
		MemberVectors map[string][]float64 `json:"memberVectors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &single))
	assert.Len(t, single.MemberVectors, 2)
}

func TestVectorsCached(t *testing.T) {
	r := newTestServer(t)

	doJSON(t, r, http.MethodPost, "/api/ingest", ingestFixture())
	doJSON(t, r, http.MethodPost, "/api/compute/7", nil)

	first := doJSON(t, r, http.MethodGet, "/api/vectors/7", nil)
	require.Equal(t, http.StatusOK, first.Code)

	second := doJSON(t, r, http.MethodGet, "/api/vectors/7", nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
}

func TestVectorsNotFound(t *testing.T) {
	r := newTestServer(t)

	w := doJSON(t, r, http.MethodGet, "/api/vectors/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/vectors/999/0", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestComputeInvalidClusterID(t *testing.T) {
	r := newTestServer(t)

	w := doJSON(t, r, http.MethodPost, "/api/compute/not-a-number", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestComputeEmptyCluster(t *testing.T) {
	r := newTestServer(t)

	w := doJSON(t, r, http.MethodPost, "/api/compute/42", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var run struct {
		Clusters map[string]interface{} `json:"clusters"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.Empty(t, run.Clusters)
}

func TestIngestRejectsMissingBillID(t *testing.T) {
	r := newTestServer(t)

	w := doJSON(t, r, http.MethodPost, "/api/ingest", map[string]interface{}{
		"bills": []map[string]interface{}{{"title": "No ID"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimitStatus(t *testing.T) {
	r := newTestServer(t)

	w := doJSON(t, r, http.MethodGet, "/ratelimit/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["redis_enabled"])
	assert.Contains(t, body, "limits")
}

func TestGetEnvIntOrDefault(t *testing.T) {
	t.Setenv("TEST_INT_VAL", "12")
	assert.Equal(t, 12, getEnvIntOrDefault("TEST_INT_VAL", 3))

	t.Setenv("TEST_INT_VAL", "not-a-number")
	assert.Equal(t, 3, getEnvIntOrDefault("TEST_INT_VAL", 3))

	assert.Equal(t, 5, getEnvIntOrDefault("TEST_INT_MISSING", 5))
}
