package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"jobmatch-go/internal/config"
	"jobmatch-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeApifyServer 模拟Apify平台的三个端点：启动运行、查询运行、拉取数据集
// pollStatuses 依次作为每次查询运行时返回的状态
func fakeApifyServer(t *testing.T, pollStatuses []string, items []map[string]any) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var pollCount atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/v2/acts/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NotEmpty(t, r.URL.Query().Get("token"))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"id":               "run-1",
				"status":           "RUNNING",
				"defaultDatasetId": "ds-1",
			},
		})
	})
	mux.HandleFunc("/v2/actor-runs/run-1", func(w http.ResponseWriter, r *http.Request) {
		idx := int(pollCount.Add(1)) - 1
		if idx >= len(pollStatuses) {
			idx = len(pollStatuses) - 1
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"id":               "run-1",
				"status":           pollStatuses[idx],
				"defaultDatasetId": "ds-1",
			},
		})
	})
	mux.HandleFunc("/v2/datasets/ds-1/items", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(items)
	})

	return httptest.NewServer(mux), &pollCount
}

func testApifyConfig(baseURL string) *config.ApifyConfig {
	return &config.ApifyConfig{
		BaseURL:             baseURL,
		Token:               "test-token",
		Actor:               "acme~job-scraper",
		MaxItemsCap:         100,
		PollIntervalSeconds: 5,
		PollTimeoutSeconds:  300,
	}
}

// TestFetchListings 测试完整的启动-轮询-拉取流程
// 前两次轮询返回RUNNING，第三次SUCCEEDED后才拉取数据集
func TestFetchListings(t *testing.T) {
	items := []map[string]any{
		{"title": "Backend Engineer", "companyName": "Acme"},
		{"title": "SRE", "companyName": "Globex"},
	}
	server, pollCount := fakeApifyServer(t, []string{"RUNNING", "RUNNING", "SUCCEEDED"}, items)
	defer server.Close()

	client := NewApifyClient(testApifyConfig(server.URL), WithPollInterval(5*time.Millisecond))

	listings, err := client.FetchListings(context.Background(), "https://example.com/jobs?q=go", 10, types.SourceCredentials{})
	require.NoError(t, err)

	assert.Len(t, listings, 2)
	assert.Equal(t, "Backend Engineer", listings[0]["title"])
	assert.Equal(t, int32(3), pollCount.Load())
}

// TestFetchListingsPollDelays 测试启动后立即查询状态，间隔只发生在两次查询之间
// RUNNING,RUNNING,SUCCEEDED共三次查询，总耗时应恰好两个轮询间隔
func TestFetchListingsPollDelays(t *testing.T) {
	server, pollCount := fakeApifyServer(t, []string{"RUNNING", "RUNNING", "SUCCEEDED"}, nil)
	defer server.Close()

	interval := 80 * time.Millisecond
	client := NewApifyClient(testApifyConfig(server.URL), WithPollInterval(interval))

	start := time.Now()
	_, err := client.FetchListings(context.Background(), "https://example.com/jobs", 10, types.SourceCredentials{})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, int32(3), pollCount.Load())
	assert.GreaterOrEqual(t, elapsed, 2*interval)
	assert.Less(t, elapsed, 3*interval)
}

// TestFetchListingsRunFailed 测试运行进入失败终态时返回错误
func TestFetchListingsRunFailed(t *testing.T) {
	server, _ := fakeApifyServer(t, []string{"RUNNING", "FAILED"}, nil)
	defer server.Close()

	client := NewApifyClient(testApifyConfig(server.URL), WithPollInterval(5*time.Millisecond))

	_, err := client.FetchListings(context.Background(), "https://example.com/jobs", 10, types.SourceCredentials{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceRunFailed))
	assert.Contains(t, err.Error(), "FAILED")
}

// TestFetchListingsStartFailure 测试启动返回非2xx时报错并附带截断后的响应体
func TestFetchListingsStartFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/acts/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(strings.Repeat("x", 2000)))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewApifyClient(testApifyConfig(server.URL))

	_, err := client.FetchListings(context.Background(), "https://example.com/jobs", 10, types.SourceCredentials{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceStartFailed))
	assert.Contains(t, err.Error(), "500")
	assert.Less(t, len(err.Error()), 700)
}

// TestFetchListingsTimeout 测试运行始终不终态时按时限返回超时错误
func TestFetchListingsTimeout(t *testing.T) {
	server, _ := fakeApifyServer(t, []string{"RUNNING"}, nil)
	defer server.Close()

	client := NewApifyClient(testApifyConfig(server.URL),
		WithPollInterval(5*time.Millisecond),
		WithPollTimeout(30*time.Millisecond))

	_, err := client.FetchListings(context.Background(), "https://example.com/jobs", 10, types.SourceCredentials{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceTimeout))
}

// TestFetchListingsMissingCredential 测试无凭证时直接拒绝
func TestFetchListingsMissingCredential(t *testing.T) {
	cfg := testApifyConfig("http://unused")
	cfg.Token = ""

	client := NewApifyClient(cfg)

	_, err := client.FetchListings(context.Background(), "https://example.com/jobs", 10, types.SourceCredentials{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingCredential))
}

// TestFetchListingsCredentialOverride 测试请求携带的凭证覆盖配置默认值
func TestFetchListingsCredentialOverride(t *testing.T) {
	var seenToken, seenActor string
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/acts/", func(w http.ResponseWriter, r *http.Request) {
		seenToken = r.URL.Query().Get("token")
		seenActor = strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v2/acts/"), "/runs")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": "run-1", "status": "RUNNING", "defaultDatasetId": "ds-1"},
		})
	})
	mux.HandleFunc("/v2/actor-runs/run-1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": "run-1", "status": "SUCCEEDED", "defaultDatasetId": "ds-1"},
		})
	})
	mux.HandleFunc("/v2/datasets/ds-1/items", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewApifyClient(testApifyConfig(server.URL), WithPollInterval(5*time.Millisecond))

	_, err := client.FetchListings(context.Background(), "https://example.com/jobs", 10, types.SourceCredentials{
		Token: "override-token",
		Actor: "custom~actor",
	})
	require.NoError(t, err)
	assert.Equal(t, "override-token", seenToken)
	assert.Equal(t, "custom~actor", seenActor)
}

// TestFetchListingsItemCap 测试请求数量在发送给服务端之前就被截断到硬上限
func TestFetchListingsItemCap(t *testing.T) {
	var sentMaxItems atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/acts/", func(w http.ResponseWriter, r *http.Request) {
		var input struct {
			MaxItems int `json:"maxItems"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&input))
		sentMaxItems.Store(int32(input.MaxItems))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": "run-1", "status": "SUCCEEDED", "defaultDatasetId": "ds-1"},
		})
	})
	mux.HandleFunc("/v2/actor-runs/run-1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": "run-1", "status": "SUCCEEDED", "defaultDatasetId": "ds-1"},
		})
	})
	mux.HandleFunc("/v2/datasets/ds-1/items", func(w http.ResponseWriter, r *http.Request) {
		// 服务端无视limit、超量返回时，客户端也要截断
		items := make([]map[string]any, 150)
		for i := range items {
			items[i] = map[string]any{"title": fmt.Sprintf("Job %d", i)}
		}
		_ = json.NewEncoder(w).Encode(items)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewApifyClient(testApifyConfig(server.URL), WithPollInterval(5*time.Millisecond))

	listings, err := client.FetchListings(context.Background(), "https://example.com/jobs", 500, types.SourceCredentials{})
	require.NoError(t, err)
	assert.Equal(t, int32(100), sentMaxItems.Load())
	assert.Len(t, listings, 100)
}
