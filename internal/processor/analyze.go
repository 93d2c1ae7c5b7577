package processor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"jobmatch-go/internal/config"
	"jobmatch-go/internal/scraper"
	"jobmatch-go/internal/tracing"
	"jobmatch-go/internal/types"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/semaphore"
)

// 定义公共错误类型，用于整个服务
var (
	ErrExtractorNotInit = errors.New("extractor is not initialized") // 提取器未初始化错误
	ErrProfilerNotInit  = errors.New("profiler is not initialized")  // 画像器未初始化错误
	ErrFetcherNotInit   = errors.New("fetcher is not initialized")   // 抓取器未初始化错误
	ErrScorerNotInit    = errors.New("scorer is not initialized")    // 评分器未初始化错误
)

// 定义tracer
var tracer = otel.Tracer("processor")

// AnalyzeRequest 一次职位分析的全部输入
type AnalyzeRequest struct {
	CvFilePath     string                  // 简历临时文件路径
	CvMimeType     string                  // 简历MIME类型
	SearchURL      string                  // 职位搜索页URL
	MaxJobs        int                     // 抓取条数，0表示使用默认值
	ScoreThreshold int                     // 分数阈值，0表示使用默认值
	Credentials    types.SourceCredentials // 请求级抓取凭证，可为空
}

// AnalyzeService 定义职位分析服务的接口
// 提供统一的服务层接口，隐藏内部实现细节
type AnalyzeService interface {
	// Analyze 执行完整的分析流程：提取简历、画像、抓取职位、逐个评分、过滤排序
	Analyze(ctx context.Context, req AnalyzeRequest) (*types.AnalyzedResponse, error)
}

// analyzeServiceImpl 是AnalyzeService的实现
// 采用Facade模式，内部持有所有需要的组件，但不暴露给外部
type analyzeServiceImpl struct {
	extractor TextExtractor
	profiler  CvProfiler
	fetcher   ListingFetcher
	scorer    JobScorer
	cfg       *config.ScorerConfig
	logger    *zerolog.Logger
}

// NewAnalyzeService 创建新的职位分析服务实例
func NewAnalyzeService(
	extractor TextExtractor,
	profiler CvProfiler,
	fetcher ListingFetcher,
	scorer JobScorer,
	cfg *config.ScorerConfig,
	logger *zerolog.Logger,
) (AnalyzeService, error) {
	if extractor == nil {
		return nil, ErrExtractorNotInit
	}
	if profiler == nil {
		return nil, ErrProfilerNotInit
	}
	if fetcher == nil {
		return nil, ErrFetcherNotInit
	}
	if scorer == nil {
		return nil, ErrScorerNotInit
	}
	if cfg == nil {
		return nil, fmt.Errorf("scorer config is nil")
	}
	if logger == nil {
		defaultLogger := zerolog.Nop()
		logger = &defaultLogger
	}

	return &analyzeServiceImpl{
		extractor: extractor,
		profiler:  profiler,
		fetcher:   fetcher,
		scorer:    scorer,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// Analyze 执行完整的分析流程
// 单个职位评分失败只丢弃该职位，不影响整体响应；
// 结果按分数降序排列，同分保持抓取顺序
func (s *analyzeServiceImpl) Analyze(ctx context.Context, req AnalyzeRequest) (*types.AnalyzedResponse, error) {
	ctx, span := tracer.Start(ctx, "Analyze")
	defer span.End()

	span.SetAttributes(
		attribute.String("search_url", tracing.SafeAttributeValue("search_url", req.SearchURL, tracing.DefaultMaxLength)),
		attribute.Int("max_jobs", req.MaxJobs),
		attribute.Int("score_threshold", req.ScoreThreshold),
	)

	maxJobs := req.MaxJobs
	if maxJobs <= 0 {
		maxJobs = s.cfg.DefaultMaxJobs
	}
	threshold := req.ScoreThreshold
	if threshold <= 0 {
		threshold = s.cfg.DefaultThreshold
	}

	// 1. 提取简历文本
	cvText, err := s.extractor.ExtractText(ctx, req.CvFilePath, req.CvMimeType)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeExtraction)
		return nil, err
	}
	span.SetAttributes(attribute.Int("cv_text_length", len(cvText)))
	span.AddEvent("cv_text_extracted")

	// 2. 抽取候选人画像
	profile, err := s.profiler.Profile(ctx, cvText)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return nil, fmt.Errorf("提取候选人画像失败: %w", err)
	}
	span.AddEvent("cv_profile_ready")

	// 3. 抓取职位列表
	listings, err := s.fetcher.FetchListings(ctx, req.SearchURL, maxJobs, req.Credentials)
	if err != nil {
		errType := tracing.ErrorTypeSource
		if errors.Is(err, scraper.ErrSourceTimeout) {
			errType = tracing.ErrorTypeTimeout
		}
		tracing.RecordErrorWithInfo(span, err, errType, attribute.Int("requested_jobs", maxJobs))
		return nil, err
	}
	span.SetAttributes(attribute.Int("listing_count", len(listings)))

	// 4. 归一化
	jobs := scraper.NormalizeListings(listings)

	// 5. 并发评分
	scored := s.scoreJobs(ctx, profile, jobs)

	// 6. 过滤并按分数降序排列
	result := filterAndSort(scored, threshold)

	s.logger.Info().
		Int("fetched", len(jobs)).
		Int("scored", len(scored)).
		Int("matched", len(result)).
		Int("threshold", threshold).
		Msg("职位分析完成")

	span.SetAttributes(attribute.Int("matched_count", len(result)))
	span.SetStatus(codes.Ok, "分析完成")

	return &types.AnalyzedResponse{
		CvProfile: profile,
		Jobs:      result,
	}, nil
}

// scoreJobs 用带权重的信号量限制并发出站补全请求数
// 单个职位失败记录日志后丢弃，保证其余职位正常返回
func (s *analyzeServiceImpl) scoreJobs(ctx context.Context, profile *types.CvProfile, jobs []types.Job) []types.Job {
	ctx, span := tracer.Start(ctx, "ScoreJobs")
	defer span.End()
	span.SetAttributes(attribute.Int("job_count", len(jobs)))

	concurrency := int64(s.cfg.Concurrency)
	if concurrency <= 0 {
		concurrency = 5
	}
	sem := semaphore.NewWeighted(concurrency)

	var wg sync.WaitGroup
	scored := make([]*types.Job, len(jobs))

	for i := range jobs {
		if err := sem.Acquire(ctx, 1); err != nil {
			// 上下文取消，剩余职位不再评分
			s.logger.Warn().Err(err).Msg("评分并发信号量获取失败")
			break
		}

		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer sem.Release(1)

			job := jobs[idx]
			result, err := s.scorer.Score(ctx, profile, &job)
			if err != nil {
				s.logger.Error().
					Err(err).
					Str("job_id", job.JobID).
					Str("job_title", job.JobTitle).
					Msg("职位评分失败，丢弃该职位")
				return
			}

			score := result.Score
			job.Score = &score
			job.Verdict = result.Verdict
			scored[idx] = &job
		}(i)
	}

	wg.Wait()

	// 压缩掉失败槽位，保持抓取顺序
	out := make([]types.Job, 0, len(jobs))
	for _, j := range scored {
		if j != nil {
			out = append(out, *j)
		}
	}
	span.SetAttributes(attribute.Int("scored_count", len(out)))
	return out
}

// filterAndSort 过滤低于阈值的职位并按分数降序稳定排序
func filterAndSort(jobs []types.Job, threshold int) []types.Job {
	result := make([]types.Job, 0, len(jobs))
	for _, job := range jobs {
		if job.Score != nil && *job.Score >= threshold {
			result = append(result, job)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return *result[i].Score > *result[j].Score
	})
	return result
}
