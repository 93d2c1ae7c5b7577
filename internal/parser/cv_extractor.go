package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
)

// ErrExtractionFailed 简历文本提取失败的哨兵错误
// 所有提取路径的失败都会包装此错误，handler层据此返回统一的用户提示
var ErrExtractionFailed = errors.New("cv text extraction failed")

// CvTextExtractor 按MIME类型分派的简历文本提取器
// PDF走Eino解析器（本地），Word文档走Tika服务器，其他类型按UTF-8纯文本处理
type CvTextExtractor struct {
	pdfParser     *pdf.PDFParser
	tikaServerURL string
	tikaClient    *http.Client
	logger        *log.Logger
}

// CvExtractorOption 提取器的配置选项
type CvExtractorOption func(*CvTextExtractor)

// WithTikaServer 配置Word文档提取使用的Tika服务器地址
func WithTikaServer(serverURL string) CvExtractorOption {
	return func(e *CvTextExtractor) {
		e.tikaServerURL = serverURL
	}
}

// WithExtractorLogger 配置自定义日志记录器
func WithExtractorLogger(logger *log.Logger) CvExtractorOption {
	return func(e *CvTextExtractor) {
		e.logger = logger
	}
}

// WithTikaTimeout 配置Tika HTTP客户端超时时间
func WithTikaTimeout(timeout time.Duration) CvExtractorOption {
	return func(e *CvTextExtractor) {
		e.tikaClient.Timeout = timeout
	}
}

// NewCvTextExtractor 初始化简历文本提取器
// PDF解析配置为不按页面分割，以获取整个文档的连续文本
func NewCvTextExtractor(ctx context.Context, options ...CvExtractorOption) (*CvTextExtractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{
		ToPages: false, // 整个PDF的文本作为单个字符串
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Eino PDF parser: %w", err)
	}

	extractor := &CvTextExtractor{
		pdfParser: p,
		tikaClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: log.New(os.Stderr, "[简历提取] ", log.LstdFlags),
	}

	for _, option := range options {
		option(extractor)
	}

	return extractor, nil
}

// ExtractText 从上传的简历文件提取纯文本
// 按MIME类型分派：application/pdf 走Eino解析器，
// Word类型（MIME中含 word 或 officedocument）走Tika，其余按UTF-8文本读取
func (e *CvTextExtractor) ExtractText(ctx context.Context, filePath string, mimeType string) (string, error) {
	startTime := time.Now()
	e.logger.Printf("开始提取简历文本: %s (类型: %s)", filePath, mimeType)

	var text string
	var err error

	mt := strings.ToLower(mimeType)
	switch {
	case strings.Contains(mt, "pdf"):
		text, err = e.extractPDF(ctx, filePath)
	case strings.Contains(mt, "word") || strings.Contains(mt, "officedocument"):
		text, err = e.extractWithTika(ctx, filePath, mimeType)
	default:
		text, err = e.extractPlainText(filePath)
	}

	duration := time.Since(startTime)
	if err != nil {
		e.logger.Printf("简历提取失败: %s (用时 %.2f秒)", err, duration.Seconds())
		return "", fmt.Errorf("%w: %s", ErrExtractionFailed, err)
	}

	if strings.TrimSpace(text) == "" {
		e.logger.Printf("简历提取结果为空 (用时 %.2f秒)", duration.Seconds())
		return "", fmt.Errorf("%w: extracted text is empty", ErrExtractionFailed)
	}

	e.logger.Printf("简历提取完成: 提取了 %d 个字符 (用时 %.2f秒)", len(text), duration.Seconds())
	return text, nil
}

// extractPDF 使用Eino PDF解析器从文件提取文本
func (e *CvTextExtractor) extractPDF(ctx context.Context, filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF file %s: %w", filePath, err)
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	extraMeta := map[string]interface{}{
		"source_file_path": filePath,
		"extraction_time":  time.Now().Format(time.RFC3339),
	}

	docs, err := e.pdfParser.Parse(ctx, file,
		einoParser.WithURI(filePath),
		einoParser.WithExtraMeta(extraMeta),
	)
	if err != nil {
		return "", fmt.Errorf("eino PDF parser failed for %s: %w", filePath, err)
	}
	if len(docs) == 0 {
		return "", fmt.Errorf("eino PDF parser returned no documents for %s", filePath)
	}

	// 合并所有文档的内容（以防万一返回了多个）
	var sb strings.Builder
	for i, doc := range docs {
		sb.WriteString(doc.Content)
		if i < len(docs)-1 {
			sb.WriteString("\n\n")
		}
	}
	return sb.String(), nil
}

// extractWithTika 通过Tika服务器提取Word文档文本
func (e *CvTextExtractor) extractWithTika(ctx context.Context, filePath string, mimeType string) (string, error) {
	if e.tikaServerURL == "" {
		return "", fmt.Errorf("tika server not configured, cannot extract %s", mimeType)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("读取文件失败: %w", err)
	}

	url := fmt.Sprintf("%s/tika", e.tikaServerURL)
	req, err := http.NewRequestWithContext(ctx, "PUT", url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", mimeType)
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("X-Tika-Resource-Name", filePath)

	resp, err := e.tikaClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("发送请求到Tika服务器失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tika服务器返回错误状态码: %d", resp.StatusCode)
	}

	textBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取Tika响应失败: %w", err)
	}
	return string(textBytes), nil
}

// extractPlainText 按UTF-8纯文本读取文件内容
func (e *CvTextExtractor) extractPlainText(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("读取文件失败: %w", err)
	}
	// 剔除无效UTF-8序列，保证后续prompt拼接安全
	return strings.ToValidUTF8(string(data), ""), nil
}
