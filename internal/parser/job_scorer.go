package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"unicode/utf8"

	"jobmatch-go/internal/types"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
)

// maxDescriptionPromptChars 注入评分prompt的职位描述上限
const maxDescriptionPromptChars = 3000

// JobFitScore 定义LLM评分结果的结构体
type JobFitScore struct {
	Score   int    `json:"score"`
	Verdict string `json:"verdict"`
}

// LLMJobScorer 结构体 (封装LLM客户端和人岗匹配Prompt逻辑)
// 对单个职位与候选人画像的匹配度打分，输出0-100分数和一句话结论
type LLMJobScorer struct {
	llmModel       model.ToolCallingChatModel
	promptTemplate string
	logger         *log.Logger
}

// JobScorerOption 是评分器的配置选项
type JobScorerOption func(*LLMJobScorer)

// WithScorerPromptTemplate 设置自定义提示词模板
func WithScorerPromptTemplate(template string) JobScorerOption {
	return func(s *LLMJobScorer) {
		s.promptTemplate = template
	}
}

// WithScorerLogger 配置自定义日志记录器
func WithScorerLogger(logger *log.Logger) JobScorerOption {
	return func(s *LLMJobScorer) {
		s.logger = logger
	}
}

// NewLLMJobScorer 创建一个新的评分器实例
func NewLLMJobScorer(llmModel model.ToolCallingChatModel, logger *log.Logger, options ...JobScorerOption) *LLMJobScorer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	scorer := &LLMJobScorer{
		llmModel: llmModel,
		logger:   logger,
	}

	scorer.generatePromptTemplate()

	for _, opt := range options {
		opt(scorer)
	}

	return scorer
}

func (s *LLMJobScorer) generatePromptTemplate() {
	s.promptTemplate = `你是一位极其资深的AI招聘专家，具备精准识别人岗匹配度的火眼金睛。你的核心任务是基于下面提供的【职位信息】和【候选人画像】，进行深度对比分析，并严格按照指定的JSON格式输出匹配度评估。

**请严格遵循以下JSON输出格式规范：**
1.  **"score"**: 整数 (0-100)，反映候选人与该职位的整体匹配程度。
2.  **"verdict"**: 字符串 (1-2句话)，简要说明评分理由，点出最关键的匹配点或差距。

**JSON格式细节要求：**
- 完整输出必须是一个合法的JSON对象。
- 所有字段名和字符串值都必须使用双引号。
- 字符串值内部如果包含双引号(")，必须使用反斜杠(\\")进行转义。
- 禁止在JSON结构之外输出任何额外文本、解释或Markdown标记。

**评分参考区间（目标是提供有区分度的评估）：**
- 90-100分: 极佳匹配，核心技能和经验与职位要求高度吻合。
- 70-89分: 良好匹配，大部分核心要求满足，值得申请。
- 50-69分: 一般匹配，部分要求满足，但存在明显差距。
- 50分以下: 匹配度低，核心要求大多不符。

【职位信息】:
公司: %s
职位: %s
描述:
"""
%s
"""

【候选人画像】:
技能: %s
总结: %s
经历亮点:
%s

请基于以上所有指令，仔细评估并输出JSON结果。`
}

// Score 评估单个职位与候选人画像的匹配度
// 职位描述超过3000字符时截断
func (s *LLMJobScorer) Score(ctx context.Context, profile *types.CvProfile, job *types.Job) (*JobFitScore, error) {
	if s.llmModel == nil {
		return nil, fmt.Errorf("LLMJobScorer: llmModel is not initialized")
	}
	if profile == nil {
		return nil, fmt.Errorf("LLMJobScorer: profile is nil")
	}
	if job == nil {
		return nil, fmt.Errorf("LLMJobScorer: job is nil")
	}

	description := truncateRunes(job.Description, maxDescriptionPromptChars)

	var highlightsSb strings.Builder
	for _, h := range profile.ExperienceHighlights {
		highlightsSb.WriteString("- ")
		highlightsSb.WriteString(h)
		highlightsSb.WriteString("\n")
	}

	userMsgContent := fmt.Sprintf(s.promptTemplate,
		job.CompanyName,
		job.JobTitle,
		description,
		strings.Join(profile.Skills, ", "),
		profile.ProfileSummary,
		highlightsSb.String(),
	)

	systemMsg := einoschema.SystemMessage("你是一位资深的AI招聘助手，专注于分析职位描述和候选人画像的匹配度。")
	userMsg := einoschema.UserMessage(userMsgContent)

	messages := []*einoschema.Message{systemMsg, userMsg}

	s.logger.Printf("[LLMJobScorer] Scoring job %q at %q", job.JobTitle, job.CompanyName)

	response, err := s.llmModel.Generate(ctx, messages)
	if err != nil {
		s.logger.Printf("[LLMJobScorer] LLM call error: %v", err)
		return nil, fmt.Errorf("LLMJobScorer: LLM call failed: %w", err)
	}

	if response == nil || response.Content == "" {
		return nil, fmt.Errorf("LLMJobScorer: LLM returned empty response")
	}
	s.logger.Printf("[LLMJobScorer] LLM Response: %s", response.Content)

	processedContent := strings.TrimPrefix(response.Content, "\uFEFF")

	jsonStr := extractJSON(processedContent)
	if jsonStr == "" {
		return nil, fmt.Errorf("LLMJobScorer: failed to extract JSON from LLM response. Content: %s", processedContent)
	}

	if !utf8.ValidString(jsonStr) {
		jsonStr = strings.ToValidUTF8(jsonStr, "")
	}

	var result JobFitScore
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		fixedJsonStr := sanitizeJSON(jsonStr)
		if jsonErr := json.Unmarshal([]byte(fixedJsonStr), &result); jsonErr != nil {
			return nil, fmt.Errorf("LLMJobScorer: failed to unmarshal LLM JSON response after sanitization. Original error: %w. Sanitization error: %v. JSON string: %s", err, jsonErr, jsonStr)
		}
	}

	if err := validateJobFitScore(&result); err != nil {
		return nil, fmt.Errorf("LLMJobScorer: invalid score result: %w", err)
	}

	return &result, nil
}

// validateJobFitScore 验证评分结果是否符合要求
func validateJobFitScore(result *JobFitScore) error {
	if result.Score < 0 || result.Score > 100 {
		return fmt.Errorf("score must be between 0 and 100, got %d", result.Score)
	}
	if strings.TrimSpace(result.Verdict) == "" {
		return fmt.Errorf("verdict must not be empty")
	}
	return nil
}
