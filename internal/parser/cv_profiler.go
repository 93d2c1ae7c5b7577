package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"unicode/utf8"

	"jobmatch-go/internal/tracing"
	"jobmatch-go/internal/types"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
)

// maxCvPromptChars 注入prompt的简历文本上限，超出部分直接截断
const maxCvPromptChars = 10000

// LLMCvProfiler 结构体 (封装LLM客户端和画像Prompt逻辑)
// 从简历纯文本中抽取结构化候选人画像：技能、总结、经历亮点
type LLMCvProfiler struct {
	llmModel       model.ToolCallingChatModel
	promptTemplate string
	logger         *log.Logger
}

// CvProfilerOption 是画像器的配置选项
type CvProfilerOption func(*LLMCvProfiler)

// WithProfilerPromptTemplate 设置自定义提示词模板
func WithProfilerPromptTemplate(template string) CvProfilerOption {
	return func(p *LLMCvProfiler) {
		p.promptTemplate = template
	}
}

// WithProfilerLogger 配置自定义日志记录器
func WithProfilerLogger(logger *log.Logger) CvProfilerOption {
	return func(p *LLMCvProfiler) {
		p.logger = logger
	}
}

// NewLLMCvProfiler 创建一个新的画像器实例
func NewLLMCvProfiler(llmModel model.ToolCallingChatModel, logger *log.Logger, options ...CvProfilerOption) *LLMCvProfiler {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	profiler := &LLMCvProfiler{
		llmModel: llmModel,
		logger:   logger,
	}

	profiler.generatePromptTemplate()

	for _, opt := range options {
		opt(profiler)
	}

	return profiler
}

func (p *LLMCvProfiler) generatePromptTemplate() {
	p.promptTemplate = `你是一位资深的简历分析专家。你的任务是阅读下面的【候选人简历】全文，提取出结构化的候选人画像，并严格按照指定的JSON格式输出。

**请严格遵循以下JSON输出格式规范：**
1.  **"skills"**: 字符串数组，候选人掌握的技能（编程语言、框架、工具、领域技能），每项一个简短短语。
2.  **"profileSummary"**: 字符串，2-4句话概括候选人的职业定位、资历年限和核心优势。
3.  **"experienceHighlights"**: 字符串数组 (建议3-6项)，候选人最具分量的经历亮点，优先选择有可量化成果的条目。

**JSON格式细节要求：**
- 完整输出必须是一个合法的JSON对象。
- 所有字段名和字符串值都必须使用双引号。
- 字符串值内部如果包含双引号(")，必须使用反斜杠(\\")进行转义。
- 禁止在JSON结构之外输出任何额外文本、解释或Markdown标记。

【候选人简历】:
"""
%s
"""

请基于以上指令，仔细分析并输出JSON结果。`
}

// Profile 从简历文本中抽取候选人画像
// 简历文本超过10000字符时截断，LLM输出解析失败时尝试一次自动修复
func (p *LLMCvProfiler) Profile(ctx context.Context, cvText string) (*types.CvProfile, error) {
	if p.llmModel == nil {
		return nil, fmt.Errorf("LLMCvProfiler: llmModel is not initialized")
	}
	if strings.TrimSpace(cvText) == "" {
		return nil, fmt.Errorf("LLMCvProfiler: cv text is empty")
	}

	truncated := truncateRunes(cvText, maxCvPromptChars)
	userMsgContent := fmt.Sprintf(p.promptTemplate, truncated)

	systemMsg := einoschema.SystemMessage("你是一位资深的简历分析专家，专注于从简历文本中提取结构化的候选人画像。")
	userMsg := einoschema.UserMessage(userMsgContent)

	messages := []*einoschema.Message{systemMsg, userMsg}

	p.logger.Printf("[LLMCvProfiler] CV text: %s", tracing.SafeCvContent(truncated))

	response, err := p.llmModel.Generate(ctx, messages)
	if err != nil {
		p.logger.Printf("[LLMCvProfiler] LLM call error: %v", err)
		return nil, fmt.Errorf("LLMCvProfiler: LLM call failed: %w", err)
	}

	if response == nil || response.Content == "" {
		return nil, fmt.Errorf("LLMCvProfiler: LLM returned empty response")
	}
	p.logger.Printf("[LLMCvProfiler] LLM Response: %s", response.Content)

	// 去掉可能的BOM前缀
	processedContent := strings.TrimPrefix(response.Content, "\uFEFF")

	jsonStr := extractJSON(processedContent)
	if jsonStr == "" {
		return nil, fmt.Errorf("LLMCvProfiler: failed to extract JSON from LLM response. Content: %s", processedContent)
	}

	if !utf8.ValidString(jsonStr) {
		jsonStr = strings.ToValidUTF8(jsonStr, "")
	}

	var profile types.CvProfile
	// ① 正常解析
	if err := json.Unmarshal([]byte(jsonStr), &profile); err != nil {
		// ② 解析失败 -> 自动修复再试一次
		fixedJsonStr := sanitizeJSON(jsonStr)
		if jsonErr := json.Unmarshal([]byte(fixedJsonStr), &profile); jsonErr != nil {
			return nil, fmt.Errorf("LLMCvProfiler: failed to unmarshal LLM JSON response after sanitization. Original error: %w. Sanitization error: %v. JSON string: %s", err, jsonErr, jsonStr)
		}
	}

	if err := validateCvProfile(&profile); err != nil {
		return nil, fmt.Errorf("LLMCvProfiler: invalid profile result: %w", err)
	}

	return &profile, nil
}

// validateCvProfile 验证画像结果是否符合要求
func validateCvProfile(profile *types.CvProfile) error {
	if len(profile.Skills) == 0 {
		return fmt.Errorf("skills must not be empty")
	}
	if strings.TrimSpace(profile.ProfileSummary) == "" {
		return fmt.Errorf("profileSummary must not be empty")
	}
	return nil
}
