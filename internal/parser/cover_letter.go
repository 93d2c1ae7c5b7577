package parser

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"jobmatch-go/internal/types"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
)

// maxCoverLetterDescChars 注入求职信prompt的职位描述上限
const maxCoverLetterDescChars = 1000

// LLMCoverLetterWriter 结构体 (封装LLM客户端和求职信Prompt逻辑)
// 根据职位信息和候选人背景生成自由文本求职信，不做JSON解析
type LLMCoverLetterWriter struct {
	llmModel       model.ToolCallingChatModel
	promptTemplate string
	logger         *log.Logger
}

// CoverLetterOption 是求职信生成器的配置选项
type CoverLetterOption func(*LLMCoverLetterWriter)

// WithCoverLetterPromptTemplate 设置自定义提示词模板
func WithCoverLetterPromptTemplate(template string) CoverLetterOption {
	return func(w *LLMCoverLetterWriter) {
		w.promptTemplate = template
	}
}

// WithCoverLetterLogger 配置自定义日志记录器
func WithCoverLetterLogger(logger *log.Logger) CoverLetterOption {
	return func(w *LLMCoverLetterWriter) {
		w.logger = logger
	}
}

// NewLLMCoverLetterWriter 创建一个新的求职信生成器实例
func NewLLMCoverLetterWriter(llmModel model.ToolCallingChatModel, logger *log.Logger, options ...CoverLetterOption) *LLMCoverLetterWriter {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	writer := &LLMCoverLetterWriter{
		llmModel: llmModel,
		logger:   logger,
	}

	writer.generatePromptTemplate()

	for _, opt := range options {
		opt(writer)
	}

	return writer
}

func (w *LLMCoverLetterWriter) generatePromptTemplate() {
	w.promptTemplate = `You are a professional career writing assistant. Write a compelling cover letter for the position below, on behalf of the candidate whose background follows.

Requirements:
- Open with a strong hook that shows genuine interest in the role and company.
- In the body, connect the candidate's skills and experience to the job's needs with concrete relevance, not generic praise.
- Close with a confident call to action.
- Around 300 words total. Plain paragraphs, no bullet points, no markdown.
- Sign off with the placeholder "[Your Name]" instead of a real name.
- Output only the letter text itself, without any preamble or explanation.

Position:
Company: %s
Title: %s
Description:
"""
%s
"""

Candidate background:
Skills: %s
Experience highlights:
%s`
}

// Write 生成针对指定职位的求职信正文
// 职位描述超过1000字符时截断，返回纯文本段落
func (w *LLMCoverLetterWriter) Write(ctx context.Context, job *types.Job, cvContext *types.CoverLetterContext) (string, error) {
	if w.llmModel == nil {
		return "", fmt.Errorf("LLMCoverLetterWriter: llmModel is not initialized")
	}
	if job == nil {
		return "", fmt.Errorf("LLMCoverLetterWriter: job is nil")
	}
	if cvContext == nil {
		return "", fmt.Errorf("LLMCoverLetterWriter: cvContext is nil")
	}

	description := truncateRunes(job.Description, maxCoverLetterDescChars)

	var highlightsSb strings.Builder
	for _, h := range cvContext.ExperienceHighlights {
		highlightsSb.WriteString("- ")
		highlightsSb.WriteString(h)
		highlightsSb.WriteString("\n")
	}

	userMsgContent := fmt.Sprintf(w.promptTemplate,
		job.CompanyName,
		job.JobTitle,
		description,
		strings.Join(cvContext.Skills, ", "),
		highlightsSb.String(),
	)

	systemMsg := einoschema.SystemMessage("You are a professional career writing assistant who writes persuasive, specific cover letters.")
	userMsg := einoschema.UserMessage(userMsgContent)

	messages := []*einoschema.Message{systemMsg, userMsg}

	w.logger.Printf("[LLMCoverLetterWriter] Writing cover letter for %q at %q", job.JobTitle, job.CompanyName)

	response, err := w.llmModel.Generate(ctx, messages)
	if err != nil {
		w.logger.Printf("[LLMCoverLetterWriter] LLM call error: %v", err)
		return "", fmt.Errorf("LLMCoverLetterWriter: LLM call failed: %w", err)
	}

	if response == nil || strings.TrimSpace(response.Content) == "" {
		return "", fmt.Errorf("LLMCoverLetterWriter: LLM returned empty response")
	}

	letter := strings.TrimSpace(strings.TrimPrefix(response.Content, "\uFEFF"))
	letter = strings.ToValidUTF8(letter, "")

	w.logger.Printf("[LLMCoverLetterWriter] Generated %d characters", len(letter))
	return letter, nil
}
