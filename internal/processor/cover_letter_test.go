package processor

import (
	"context"
	"strings"
	"testing"

	"jobmatch-go/internal/pdf"
	"jobmatch-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	letter string
	err    error
}

func (f *fakeWriter) Write(ctx context.Context, job *types.Job, cvContext *types.CoverLetterContext) (string, error) {
	return f.letter, f.err
}

type fakeConverter struct {
	lastHTML string
	err      error
}

func (f *fakeConverter) ConvertHTMLToPDF(ctx context.Context, html string, opts ...pdf.Option) ([]byte, error) {
	f.lastHTML = html
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.4 fake"), nil
}

type fakeStoreUpload struct {
	uploaded []byte
	err      error
}

func (f *fakeStoreUpload) UploadCoverLetter(ctx context.Context, pdfData []byte) (string, error) {
	f.uploaded = pdfData
	if f.err != nil {
		return "", f.err
	}
	return "https://minio.example.com/cover-letters/abc.pdf?signed", nil
}

func coverLetterRequest() *types.CoverLetterRequest {
	return &types.CoverLetterRequest{
		Job: types.Job{
			JobID:       "job-1",
			CompanyName: "Acme",
			JobTitle:    "Backend Engineer",
			Description: "负责后端服务开发。",
		},
		CvContext: types.CoverLetterContext{
			Skills:               []string{"Go"},
			ExperienceHighlights: []string{"主导微服务改造"},
		},
	}
}

// TestCoverLetterGenerate 测试完整的生成-渲染-上传流程
func TestCoverLetterGenerate(t *testing.T) {
	writer := &fakeWriter{letter: "Dear Hiring Manager,\n\nI am excited to apply.\n\nSincerely,\n[Your Name]"}
	converter := &fakeConverter{}
	store := &fakeStoreUpload{}

	svc, err := NewCoverLetterService(writer, converter, store, nil)
	require.NoError(t, err)

	resp, err := svc.Generate(context.Background(), coverLetterRequest())
	require.NoError(t, err)

	assert.Equal(t, "https://minio.example.com/cover-letters/abc.pdf?signed", resp.CoverLetterURL)
	assert.NotEmpty(t, store.uploaded)

	// HTML中应包含职位信息和信件段落
	assert.Contains(t, converter.lastHTML, "Acme")
	assert.Contains(t, converter.lastHTML, "Backend Engineer")
	assert.Contains(t, converter.lastHTML, "Dear Hiring Manager,")
}

// TestCoverLetterWriterError 测试LLM失败时错误向上传播
func TestCoverLetterWriterError(t *testing.T) {
	svc, err := NewCoverLetterService(&fakeWriter{err: assert.AnError}, &fakeConverter{}, &fakeStoreUpload{}, nil)
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), coverLetterRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "生成求职信正文失败")
}

// TestCoverLetterConverterError 测试PDF渲染失败时错误向上传播
func TestCoverLetterConverterError(t *testing.T) {
	writer := &fakeWriter{letter: "A letter."}
	svc, err := NewCoverLetterService(writer, &fakeConverter{err: assert.AnError}, &fakeStoreUpload{}, nil)
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), coverLetterRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "渲染求职信PDF失败")
}

// TestCoverLetterUploadError 测试上传失败时错误向上传播
func TestCoverLetterUploadError(t *testing.T) {
	writer := &fakeWriter{letter: "A letter."}
	svc, err := NewCoverLetterService(writer, &fakeConverter{}, &fakeStoreUpload{err: assert.AnError}, nil)
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), coverLetterRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "上传求职信失败")
}

// TestRenderCoverLetterHTMLEscaping 测试信件内容中的HTML被转义
func TestRenderCoverLetterHTMLEscaping(t *testing.T) {
	job := &types.Job{JobTitle: "Engineer", CompanyName: "Acme"}
	html, err := renderCoverLetterHTML(job, "Paragraph with <script>alert(1)</script> inside.\n\nSecond paragraph.")
	require.NoError(t, err)

	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
	assert.Equal(t, 2, strings.Count(html, "<p>"))
}

// TestRenderCoverLetterHTMLPerLine 测试逐行分段，空行被跳过
func TestRenderCoverLetterHTMLPerLine(t *testing.T) {
	job := &types.Job{JobTitle: "Engineer", CompanyName: "Acme"}
	html, err := renderCoverLetterHTML(job, "Dear Hiring Manager,\nI am writing to apply.\n\n   \nSincerely,")
	require.NoError(t, err)

	assert.Equal(t, 3, strings.Count(html, "<p>"))
	assert.Contains(t, html, "<p>Sincerely,</p>")
}
