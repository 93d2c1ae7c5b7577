package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 应用程序配置
type Config struct {
	// 服务器配置
	Server ServerConfig `yaml:"server"`

	// 补全服务（OpenAI兼容接口）配置
	LLM LLMConfig `yaml:"llm"`

	// 岗位抓取渠道（Apify）配置
	Apify ApifyConfig `yaml:"apify"`

	// 评分策略配置
	Scorer ScorerConfig `yaml:"scorer"`

	// 文本提取配置
	Extractor ExtractorConfig `yaml:"extractor"`

	// MinIO对象存储配置（求职信产物）
	MinIO MinIOConfig `yaml:"minio"`

	// HTML转PDF渲染配置
	PDF PDFConfig `yaml:"pdf"`

	// 链路追踪配置
	Tracing TracingConfig `yaml:"tracing"`

	// 日志配置
	Logger LoggerConfig `yaml:"logger"`
}

// ServerConfig 定义服务器配置
type ServerConfig struct {
	Address string `yaml:"address"` // 例如 ":8080" or "0.0.0.0:8080"
}

// LLMConfig 补全服务配置
type LLMConfig struct {
	APIKey         string `yaml:"api_key"`
	APIURL         string `yaml:"api_url"` // OpenAI兼容的chat/completions地址
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"` // 单次补全请求超时(秒)
}

// ApifyConfig 抓取渠道配置
// Token/Actor 为进程级默认值，可被单次请求的显式凭证覆盖
type ApifyConfig struct {
	BaseURL             string `yaml:"base_url"` // 默认 https://api.apify.com
	Token               string `yaml:"token"`
	Actor               string `yaml:"actor"`
	MaxItemsCap         int    `yaml:"max_items_cap"`         // 单次抓取条数硬上限
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"` // 运行状态轮询间隔(秒)
	PollTimeoutSeconds  int    `yaml:"poll_timeout_seconds"`  // 轮询总时长上限(秒)
}

// PollInterval 返回轮询间隔
func (c ApifyConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// PollTimeout 返回轮询墙钟上限
func (c ApifyConfig) PollTimeout() time.Duration {
	return time.Duration(c.PollTimeoutSeconds) * time.Second
}

// ScorerConfig 评分策略配置
type ScorerConfig struct {
	Concurrency      int `yaml:"concurrency"`       // 并发出站补全请求上限
	DefaultThreshold int `yaml:"default_threshold"` // 未指定时的分数阈值
	DefaultMaxJobs   int `yaml:"default_max_jobs"`  // 未指定时的抓取条数
}

// ExtractorConfig 文本提取配置
// Word类文档走Tika服务器提取；为空则该类格式提取直接失败
type ExtractorConfig struct {
	TikaServerURL  string `yaml:"tika_server_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// MinIOConfig MinIO配置结构
type MinIOConfig struct {
	Endpoint          string `yaml:"endpoint"`
	AccessKeyID       string `yaml:"accessKeyID"`
	SecretAccessKey   string `yaml:"secretAccessKey"`
	UseSSL            bool   `yaml:"useSSL"`
	ArtifactBucket    string `yaml:"artifactBucket"` // 求职信PDF存储桶
	Location          string `yaml:"location"`
	ArtifactTTLSecond int    `yaml:"artifact_ttl_seconds"` // 产物可下载时长(秒)
}

// ArtifactTTL 返回产物生存时长
func (c MinIOConfig) ArtifactTTL() time.Duration {
	return time.Duration(c.ArtifactTTLSecond) * time.Second
}

// PDFConfig HTML转PDF配置
type PDFConfig struct {
	ChromeWebSocketURL string `yaml:"chrome_ws_url"` // 远程Chrome的WebSocket地址
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
}

// TracingConfig 链路追踪配置
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"` // OTLP gRPC端点
	ServiceName string `yaml:"service_name"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level        string `yaml:"level"`         // debug, info, warn, error
	Format       string `yaml:"format"`        // json, pretty
	TimeFormat   string `yaml:"time_format"`   // 时间格式
	ReportCaller bool   `yaml:"report_caller"` // 是否报告调用位置
}

// LoadConfig 从文件加载配置
// configPath为空时在常见位置查找；找不到时返回默认配置（便于测试环境运行）
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		searchPaths := []string{
			"config.yaml",
			"./config.yaml",
			"../config.yaml",
		}
		if execPath, err := os.Executable(); err == nil {
			searchPaths = append(searchPaths, filepath.Join(filepath.Dir(execPath), "config.yaml"))
		}
		for _, path := range searchPaths {
			if _, err := os.Stat(path); err == nil {
				configPath = path
				break
			}
		}
		if configPath == "" {
			return DefaultConfig(), nil
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	return cfg, nil
}

// DefaultConfig 返回内置默认配置
func DefaultConfig() *Config {
	cfg := &Config{
		Server: ServerConfig{Address: ":8080"},
		LLM: LLMConfig{
			APIURL:         "https://api.openai.com/v1/chat/completions",
			Model:          "gpt-4o-mini",
			TimeoutSeconds: 60,
		},
		Apify: ApifyConfig{
			BaseURL:             "https://api.apify.com",
			MaxItemsCap:         100,
			PollIntervalSeconds: 5,
			PollTimeoutSeconds:  300,
		},
		Scorer: ScorerConfig{
			Concurrency:      5,
			DefaultThreshold: 60,
			DefaultMaxJobs:   50,
		},
		Extractor: ExtractorConfig{TimeoutSeconds: 30},
		MinIO: MinIOConfig{
			ArtifactBucket:    "cover-letters",
			ArtifactTTLSecond: 3600,
		},
		PDF: PDFConfig{TimeoutSeconds: 60},
		Tracing: TracingConfig{
			ServiceName: "jobmatch",
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "json",
		},
	}
	cfg.applyEnvOverrides()
	return cfg
}

// applyEnvOverrides 环境变量覆盖敏感配置项
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("APIFY_TOKEN"); v != "" {
		c.Apify.Token = v
	}
	if v := os.Getenv("APIFY_ACTOR"); v != "" {
		c.Apify.Actor = v
	}
	if v := os.Getenv("ARTIFACT_TTL_SECONDS"); v != "" {
		var ttl int
		if _, err := fmt.Sscanf(v, "%d", &ttl); err == nil && ttl > 0 {
			c.MinIO.ArtifactTTLSecond = ttl
		}
	}
}

// applyDefaults 补齐零值字段，防止配置文件遗漏关键项
func (c *Config) applyDefaults() {
	if c.Apify.MaxItemsCap <= 0 {
		c.Apify.MaxItemsCap = 100
	}
	if c.Apify.PollIntervalSeconds <= 0 {
		c.Apify.PollIntervalSeconds = 5
	}
	if c.Apify.PollTimeoutSeconds <= 0 {
		c.Apify.PollTimeoutSeconds = 300
	}
	if c.Scorer.Concurrency <= 0 {
		c.Scorer.Concurrency = 5
	}
	if c.Scorer.DefaultThreshold <= 0 {
		c.Scorer.DefaultThreshold = 60
	}
	if c.Scorer.DefaultMaxJobs <= 0 {
		c.Scorer.DefaultMaxJobs = 50
	}
	if c.MinIO.ArtifactTTLSecond <= 0 {
		c.MinIO.ArtifactTTLSecond = 3600
	}
}
