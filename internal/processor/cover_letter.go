package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"jobmatch-go/internal/pdf"
	"jobmatch-go/internal/tracing"
	"jobmatch-go/internal/types"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrWriterNotInit    = errors.New("cover letter writer is not initialized") // 生成器未初始化错误
	ErrConverterNotInit = errors.New("pdf converter is not initialized")       // 转换器未初始化错误
	ErrStorageNotInit   = errors.New("artifact storage is not initialized")    // 存储未初始化错误
)

// coverLetterTemplate 求职信的打印版式
// 段落由LLM输出的空行分隔，这里只负责排版不改写内容
var coverLetterTemplate = template.Must(template.New("cover-letter").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body {
    font-family: Georgia, "Times New Roman", serif;
    font-size: 12pt;
    line-height: 1.6;
    color: #1a1a1a;
    max-width: 42em;
    margin: 0 auto;
  }
  h1 {
    font-size: 14pt;
    border-bottom: 1px solid #999;
    padding-bottom: 0.3em;
  }
  .meta { color: #555; font-size: 10pt; margin-bottom: 2em; }
  p { margin: 0 0 1em 0; text-align: justify; }
</style>
</head>
<body>
  <h1>Cover Letter</h1>
  <div class="meta">{{.JobTitle}} — {{.CompanyName}}</div>
  {{range .Paragraphs}}<p>{{.}}</p>
  {{end}}
</body>
</html>`))

type coverLetterPage struct {
	JobTitle    string
	CompanyName string
	Paragraphs  []string
}

// CoverLetterService 定义求职信生成服务的接口
type CoverLetterService interface {
	// Generate 生成求职信PDF并返回限时下载URL
	Generate(ctx context.Context, req *types.CoverLetterRequest) (*types.CoverLetterResponse, error)
}

// coverLetterServiceImpl 是CoverLetterService的实现
type coverLetterServiceImpl struct {
	writer    CoverLetterWriter
	converter pdf.Converter
	store     ArtifactUploader
	logger    *zerolog.Logger
}

// NewCoverLetterService 创建新的求职信服务实例
func NewCoverLetterService(
	writer CoverLetterWriter,
	converter pdf.Converter,
	store ArtifactUploader,
	logger *zerolog.Logger,
) (CoverLetterService, error) {
	if writer == nil {
		return nil, ErrWriterNotInit
	}
	if converter == nil {
		return nil, ErrConverterNotInit
	}
	if store == nil {
		return nil, ErrStorageNotInit
	}
	if logger == nil {
		defaultLogger := zerolog.Nop()
		logger = &defaultLogger
	}

	return &coverLetterServiceImpl{
		writer:    writer,
		converter: converter,
		store:     store,
		logger:    logger,
	}, nil
}

// Generate 生成求职信：LLM写信 -> 排版成HTML -> Chrome渲染PDF -> 上传并签发下载URL
func (s *coverLetterServiceImpl) Generate(ctx context.Context, req *types.CoverLetterRequest) (*types.CoverLetterResponse, error) {
	ctx, span := tracer.Start(ctx, "GenerateCoverLetter")
	defer span.End()

	span.SetAttributes(
		attribute.String("job_id", req.Job.JobID),
		attribute.String("company", req.Job.CompanyName),
	)

	// 1. 生成求职信正文
	letter, err := s.writer.Write(ctx, &req.Job, &req.CvContext)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return nil, fmt.Errorf("生成求职信正文失败: %w", err)
	}
	span.AddEvent("letter_text_ready")

	// 2. 排版成HTML
	html, err := renderCoverLetterHTML(&req.Job, letter)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRender)
		return nil, fmt.Errorf("渲染求职信HTML失败: %w", err)
	}

	// 3. 渲染PDF
	pdfData, err := s.converter.ConvertHTMLToPDF(ctx, html,
		pdf.PaperA4,
		pdf.MarginsWide,
		pdf.WithTitle(fmt.Sprintf("Cover Letter - %s", req.Job.CompanyName)),
	)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRender)
		return nil, fmt.Errorf("渲染求职信PDF失败: %w", err)
	}
	span.SetAttributes(attribute.Int("pdf_size_bytes", len(pdfData)))

	// 4. 上传并签发限时下载URL
	url, err := s.store.UploadCoverLetter(ctx, pdfData)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeStorage)
		return nil, fmt.Errorf("上传求职信失败: %w", err)
	}

	s.logger.Info().
		Str("job_id", req.Job.JobID).
		Str("company", req.Job.CompanyName).
		Int("pdf_bytes", len(pdfData)).
		Msg("求职信生成完成")

	span.SetStatus(codes.Ok, "生成完成")
	return &types.CoverLetterResponse{CoverLetterURL: url}, nil
}

// renderCoverLetterHTML 将信件正文逐行拆成段落并套入版式模板，空行跳过
func renderCoverLetterHTML(job *types.Job, letter string) (string, error) {
	var paragraphs []string
	for _, line := range strings.Split(letter, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			paragraphs = append(paragraphs, line)
		}
	}

	var buf bytes.Buffer
	err := coverLetterTemplate.Execute(&buf, coverLetterPage{
		JobTitle:    job.JobTitle,
		CompanyName: job.CompanyName,
		Paragraphs:  paragraphs,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
