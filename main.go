package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jobmatch-go/internal/agent"
	"jobmatch-go/internal/api/handler"
	"jobmatch-go/internal/api/router"
	"jobmatch-go/internal/config"
	"jobmatch-go/internal/logger"
	"jobmatch-go/internal/parser"
	"jobmatch-go/internal/pdf"
	"jobmatch-go/internal/processor"
	"jobmatch-go/internal/scraper"
	"jobmatch-go/internal/storage"
	"jobmatch-go/internal/tracing"

	"github.com/cloudwego/hertz/pkg/app/server"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.String("config", "", "配置文件路径")
	pflag.Parse()

	// 1. 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("加载配置文件失败: %v", err)
	}

	// 2. 初始化日志系统
	logger.Init(cfg.Logger)
	logger.Info().Str("address", cfg.Server.Address).Msg("配置加载成功")

	ctx := context.Background()

	// 3. 初始化链路追踪
	shutdownTracing, err := tracing.InitTracerProvider(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化链路追踪失败")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("关闭链路追踪失败")
		}
	}()

	// 4. 初始化LLM客户端
	llm, err := agent.NewOpenAIChatModel(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.APIURL,
		time.Duration(cfg.LLM.TimeoutSeconds)*time.Second,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化LLM客户端失败")
	}
	logger.Info().Str("model", cfg.LLM.Model).Msg("LLM客户端初始化成功")

	// 5. 初始化简历文本提取器
	extractorOpts := []parser.CvExtractorOption{}
	if cfg.Extractor.TikaServerURL != "" {
		extractorOpts = append(extractorOpts, parser.WithTikaServer(cfg.Extractor.TikaServerURL))
	}
	if cfg.Extractor.TimeoutSeconds > 0 {
		extractorOpts = append(extractorOpts, parser.WithTikaTimeout(time.Duration(cfg.Extractor.TimeoutSeconds)*time.Second))
	}
	extractor, err := parser.NewCvTextExtractor(ctx, extractorOpts...)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化简历提取器失败")
	}

	// 6. 初始化LLM组件
	profiler := parser.NewLLMCvProfiler(llm, nil)
	scorer := parser.NewLLMJobScorer(llm, nil)
	letterWriter := parser.NewLLMCoverLetterWriter(llm, nil)

	// 7. 初始化职位抓取客户端
	fetcher := scraper.NewApifyClient(&cfg.Apify)

	// 8. 初始化MinIO产物存储
	artifactStore, err := storage.NewMinIO(&cfg.MinIO, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化MinIO失败")
	}
	logger.Info().Str("endpoint", cfg.MinIO.Endpoint).Msg("MinIO初始化成功")

	// 9. 初始化PDF转换器
	converter := pdf.NewChromeDPConverter(
		cfg.PDF.ChromeWebSocketURL,
		time.Duration(cfg.PDF.TimeoutSeconds)*time.Second,
	)

	// 10. 组装业务服务
	analyzeService, err := processor.NewAnalyzeService(extractor, profiler, fetcher, scorer, &cfg.Scorer, &logger.Logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化分析服务失败")
	}
	coverLetterService, err := processor.NewCoverLetterService(letterWriter, converter, artifactStore, &logger.Logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化求职信服务失败")
	}

	analyzeHandler := handler.NewAnalyzeHandler(analyzeService)
	coverLetterHandler := handler.NewCoverLetterHandler(coverLetterService)

	// 11. 创建HTTP服务器
	serverTracer, serverTracerCfg := hertztracing.NewServerTracer()
	h := server.Default(
		server.WithHostPorts(cfg.Server.Address),
		serverTracer,
	)
	h.Use(hertztracing.ServerMiddleware(serverTracerCfg))

	router.RegisterRoutes(h, analyzeHandler, coverLetterHandler)

	// 12. 优雅关停
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		logger.Info().Msg("收到退出信号，开始优雅关停")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := h.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("服务器关停失败")
		}
	}()

	logger.Info().Str("address", cfg.Server.Address).Msg("服务启动")
	h.Spin()
}
