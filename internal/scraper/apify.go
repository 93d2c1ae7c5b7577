package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"jobmatch-go/internal/config"
	"jobmatch-go/internal/logger"
	"jobmatch-go/internal/tracing"
	"jobmatch-go/internal/types"
)

// 非终态的运行状态，处于这些状态时继续轮询
var nonTerminalStatuses = map[string]bool{
	"RUNNING": true,
	"READY":   true,
}

// ApifyClient Apify平台的职位抓取客户端
// 负责启动actor运行、轮询运行状态、拉取数据集结果三步流程
type ApifyClient struct {
	baseURL      string
	token        string
	actor        string
	maxItemsCap  int
	pollInterval time.Duration
	pollTimeout  time.Duration
	httpClient   *http.Client
}

// ApifyOption ApifyClient的配置选项
type ApifyOption func(*ApifyClient)

// WithHTTPClient 配置自定义HTTP客户端
func WithHTTPClient(client *http.Client) ApifyOption {
	return func(c *ApifyClient) {
		c.httpClient = client
	}
}

// WithPollInterval 配置轮询间隔
func WithPollInterval(interval time.Duration) ApifyOption {
	return func(c *ApifyClient) {
		c.pollInterval = interval
	}
}

// WithPollTimeout 配置轮询总时长上限
func WithPollTimeout(timeout time.Duration) ApifyOption {
	return func(c *ApifyClient) {
		c.pollTimeout = timeout
	}
}

// NewApifyClient 创建一个新的Apify客户端
func NewApifyClient(cfg *config.ApifyConfig, options ...ApifyOption) *ApifyClient {
	client := &ApifyClient{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		token:        cfg.Token,
		actor:        cfg.Actor,
		maxItemsCap:  cfg.MaxItemsCap,
		pollInterval: cfg.PollInterval(),
		pollTimeout:  cfg.PollTimeout(),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// actorRunData Apify运行记录的关键字段
type actorRunData struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

type actorRunResponse struct {
	Data actorRunData `json:"data"`
}

// actorInput 启动actor时提交的输入
type actorInput struct {
	StartUrls []startURL `json:"startUrls"`
	MaxItems  int        `json:"maxItems"`
}

type startURL struct {
	URL string `json:"url"`
}

// FetchListings 抓取职位列表：启动actor运行并轮询至终态，然后拉取数据集
// 请求携带的凭证优先于配置中的默认凭证；maxJobs会被硬上限截断
func (c *ApifyClient) FetchListings(ctx context.Context, searchURL string, maxJobs int, creds types.SourceCredentials) ([]types.RawListing, error) {
	token, actor, err := c.resolveCredentials(creds)
	if err != nil {
		return nil, err
	}

	if maxJobs <= 0 || maxJobs > c.maxItemsCap {
		maxJobs = c.maxItemsCap
	}

	run, err := c.startRun(ctx, token, actor, searchURL, maxJobs)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("run_id", run.ID).
		Str("actor", actor).
		Int("max_jobs", maxJobs).
		Msg("抓取任务已启动")

	finished, err := c.waitForRun(ctx, token, run.ID)
	if err != nil {
		return nil, err
	}

	listings, err := c.fetchDataset(ctx, token, finished.DefaultDatasetID, maxJobs)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("run_id", run.ID).
		Int("listing_count", len(listings)).
		Msg("抓取任务完成")

	return listings, nil
}

// resolveCredentials 解析最终使用的凭证：请求携带的优先，否则回退到配置
func (c *ApifyClient) resolveCredentials(creds types.SourceCredentials) (token string, actor string, err error) {
	token = strings.TrimSpace(creds.Token)
	if token == "" {
		token = c.token
	}
	actor = strings.TrimSpace(creds.Actor)
	if actor == "" {
		actor = c.actor
	}

	if token == "" {
		return "", "", fmt.Errorf("%w: token未提供且未配置默认值", ErrMissingCredential)
	}
	if actor == "" {
		return "", "", fmt.Errorf("%w: actor未提供且未配置默认值", ErrMissingCredential)
	}
	return token, actor, nil
}

// startRun 启动actor运行
func (c *ApifyClient) startRun(ctx context.Context, token, actor, searchURL string, maxItems int) (*actorRunData, error) {
	input := actorInput{
		StartUrls: []startURL{{URL: searchURL}},
		MaxItems:  maxItems,
	}
	body, err := json.Marshal(input)
	if err != nil {
		return nil, NewStartError(fmt.Sprintf("序列化actor输入失败: %v", err))
	}

	runURL := fmt.Sprintf("%s/v2/acts/%s/runs?token=%s", c.baseURL, url.PathEscape(actor), url.QueryEscape(token))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, runURL, bytes.NewReader(body))
	if err != nil {
		return nil, NewStartError(fmt.Sprintf("创建HTTP请求失败: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NewStartError(fmt.Sprintf("请求失败: %v", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewStartError(fmt.Sprintf("读取响应失败: %v", err))
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, NewStartError(fmt.Sprintf("状态码 %d: %s", resp.StatusCode, tracing.SafeProviderBody(string(respBody))))
	}

	var runResp actorRunResponse
	if err := json.Unmarshal(respBody, &runResp); err != nil {
		return nil, NewStartError(fmt.Sprintf("解析运行记录失败: %v", err))
	}
	if runResp.Data.ID == "" {
		return nil, NewStartError(fmt.Sprintf("运行记录缺少ID: %s", tracing.SafeProviderBody(string(respBody))))
	}

	return &runResp.Data, nil
}

// waitForRun 轮询运行状态直至终态
// 启动后立即查询一次，之后每pollInterval查询一次；
// RUNNING/READY视为进行中，超出pollTimeout仍未终态则返回超时错误
func (c *ApifyClient) waitForRun(ctx context.Context, token, runID string) (*actorRunData, error) {
	deadline := time.Now().Add(c.pollTimeout)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		run, err := c.getRun(ctx, token, runID)
		if err != nil {
			return nil, err
		}

		logger.Debug().
			Str("run_id", runID).
			Str("status", run.Status).
			Msg("轮询抓取任务状态")

		if !nonTerminalStatuses[run.Status] {
			if run.Status == "SUCCEEDED" {
				return run, nil
			}
			return nil, NewRunFailedError(runID, run.Status)
		}

		if time.Now().After(deadline) {
			return nil, NewTimeoutError(runID, fmt.Sprintf("超过 %s 仍未完成", c.pollTimeout))
		}

		select {
		case <-ctx.Done():
			return nil, NewTimeoutError(runID, fmt.Sprintf("上下文已取消: %v", ctx.Err()))
		case <-ticker.C:
		}
	}
}

// getRun 获取运行记录
func (c *ApifyClient) getRun(ctx context.Context, token, runID string) (*actorRunData, error) {
	runURL := fmt.Sprintf("%s/v2/actor-runs/%s?token=%s", c.baseURL, url.PathEscape(runID), url.QueryEscape(token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, runURL, nil)
	if err != nil {
		return nil, NewRunFailedError(runID, fmt.Sprintf("创建HTTP请求失败: %v", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NewRunFailedError(runID, fmt.Sprintf("请求失败: %v", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewRunFailedError(runID, fmt.Sprintf("读取响应失败: %v", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, NewRunFailedError(runID, fmt.Sprintf("状态码 %d: %s", resp.StatusCode, string(respBody)))
	}

	var runResp actorRunResponse
	if err := json.Unmarshal(respBody, &runResp); err != nil {
		return nil, NewRunFailedError(runID, fmt.Sprintf("解析运行记录失败: %v", err))
	}

	return &runResp.Data, nil
}

// fetchDataset 拉取运行产出的数据集条目
func (c *ApifyClient) fetchDataset(ctx context.Context, token, datasetID string, limit int) ([]types.RawListing, error) {
	itemsURL := fmt.Sprintf("%s/v2/datasets/%s/items?token=%s&format=json&limit=%d",
		c.baseURL, url.PathEscape(datasetID), url.QueryEscape(token), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, itemsURL, nil)
	if err != nil {
		return nil, NewDatasetError(datasetID, fmt.Sprintf("创建HTTP请求失败: %v", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NewDatasetError(datasetID, fmt.Sprintf("请求失败: %v", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewDatasetError(datasetID, fmt.Sprintf("读取响应失败: %v", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, NewDatasetError(datasetID, fmt.Sprintf("状态码 %d: %s", resp.StatusCode, string(respBody)))
	}

	var listings []types.RawListing
	if err := json.Unmarshal(respBody, &listings); err != nil {
		return nil, NewDatasetError(datasetID, fmt.Sprintf("解析数据集失败: %v", err))
	}

	// 上游偶尔忽略limit参数，这里再截一次
	if len(listings) > limit {
		listings = listings[:limit]
	}

	return listings, nil
}
