package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"testing"

	"jobmatch-go/internal/api/handler"
	"jobmatch-go/internal/parser"
	"jobmatch-go/internal/processor"
	"jobmatch-go/internal/types"

	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAnalyzeService 返回预设结果的分析服务
type fakeAnalyzeService struct {
	resp    *types.AnalyzedResponse
	err     error
	lastReq processor.AnalyzeRequest
}

func (f *fakeAnalyzeService) Analyze(ctx context.Context, req processor.AnalyzeRequest) (*types.AnalyzedResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func newAnalyzeEngine(svc processor.AnalyzeService) *route.Engine {
	engine := route.NewEngine(hertzconfig.NewOptions(nil))
	h := handler.NewAnalyzeHandler(svc)
	engine.POST("/api/analyze", h.HandleAnalyze)
	return engine
}

// buildAnalyzeForm 构造带简历文件的multipart请求体
func buildAnalyzeForm(t *testing.T, fields map[string]string, withFile bool) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	if withFile {
		part, err := writer.CreateFormFile("cvFile", "cv.txt")
		require.NoError(t, err)
		_, err = part.Write([]byte("张伟\n后端开发工程师"))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())
	return buf, writer.FormDataContentType()
}

// TestHandleAnalyze 测试正常分析请求返回200和结果
func TestHandleAnalyze(t *testing.T) {
	score := 88
	svc := &fakeAnalyzeService{
		resp: &types.AnalyzedResponse{
			CvProfile: &types.CvProfile{Skills: []string{"Go"}, ProfileSummary: "后端工程师。"},
			Jobs: []types.Job{
				{JobID: "j1", JobTitle: "Backend Engineer", CompanyName: "Acme", Score: &score, Verdict: "良好匹配"},
			},
		},
	}
	engine := newAnalyzeEngine(svc)

	body, contentType := buildAnalyzeForm(t, map[string]string{
		"searchUrl":      "https://example.com/jobs?q=go",
		"maxJobs":        "20",
		"scoreThreshold": "70",
		"apifyToken":     "tok",
	}, true)

	w := ut.PerformRequest(engine, "POST", "/api/analyze",
		&ut.Body{Body: body, Len: body.Len()},
		ut.Header{Key: "Content-Type", Value: contentType})
	resp := w.Result()

	assert.Equal(t, 200, resp.StatusCode())

	var result types.AnalyzedResponse
	require.NoError(t, json.Unmarshal(resp.Body(), &result))
	require.Len(t, result.Jobs, 1)
	assert.Equal(t, "Backend Engineer", result.Jobs[0].JobTitle)
	assert.Equal(t, 88, *result.Jobs[0].Score)

	// 画像字段在响应顶层展开，不嵌套在子对象里
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(resp.Body(), &raw))
	assert.Contains(t, raw, "skills")
	assert.Contains(t, raw, "profileSummary")
	assert.Contains(t, raw, "jobs")
	assert.NotContains(t, raw, "cvProfile")
	assert.Equal(t, []string{"Go"}, result.Skills)

	// 表单字段应透传到服务层
	assert.Equal(t, "https://example.com/jobs?q=go", svc.lastReq.SearchURL)
	assert.Equal(t, 20, svc.lastReq.MaxJobs)
	assert.Equal(t, 70, svc.lastReq.ScoreThreshold)
	assert.Equal(t, "tok", svc.lastReq.Credentials.Token)
}

// TestHandleAnalyzeNoFile 测试缺少简历文件时返回400
func TestHandleAnalyzeNoFile(t *testing.T) {
	engine := newAnalyzeEngine(&fakeAnalyzeService{})

	body, contentType := buildAnalyzeForm(t, map[string]string{
		"searchUrl": "https://example.com/jobs",
	}, false)

	w := ut.PerformRequest(engine, "POST", "/api/analyze",
		&ut.Body{Body: body, Len: body.Len()},
		ut.Header{Key: "Content-Type", Value: contentType})
	resp := w.Result()

	assert.Equal(t, 400, resp.StatusCode())
}

// TestHandleAnalyzeMissingSearchURL 测试缺少searchUrl时返回400
func TestHandleAnalyzeMissingSearchURL(t *testing.T) {
	engine := newAnalyzeEngine(&fakeAnalyzeService{})

	body, contentType := buildAnalyzeForm(t, nil, true)

	w := ut.PerformRequest(engine, "POST", "/api/analyze",
		&ut.Body{Body: body, Len: body.Len()},
		ut.Header{Key: "Content-Type", Value: contentType})
	resp := w.Result()

	assert.Equal(t, 400, resp.StatusCode())
}

// TestHandleAnalyzeExtractionFailure 测试提取失败返回502和统一提示
func TestHandleAnalyzeExtractionFailure(t *testing.T) {
	svc := &fakeAnalyzeService{
		err: fmt.Errorf("%w: corrupt file", parser.ErrExtractionFailed),
	}
	engine := newAnalyzeEngine(svc)

	body, contentType := buildAnalyzeForm(t, map[string]string{
		"searchUrl": "https://example.com/jobs",
	}, true)

	w := ut.PerformRequest(engine, "POST", "/api/analyze",
		&ut.Body{Body: body, Len: body.Len()},
		ut.Header{Key: "Content-Type", Value: contentType})
	resp := w.Result()

	assert.Equal(t, 502, resp.StatusCode())

	var errBody map[string]string
	require.NoError(t, json.Unmarshal(resp.Body(), &errBody))
	assert.Equal(t, "Failed to parse CV file", errBody["error"])
}

// TestHandleAnalyzePipelineFailure 测试其他管道错误返回502和错误消息
func TestHandleAnalyzePipelineFailure(t *testing.T) {
	svc := &fakeAnalyzeService{err: assert.AnError}
	engine := newAnalyzeEngine(svc)

	body, contentType := buildAnalyzeForm(t, map[string]string{
		"searchUrl": "https://example.com/jobs",
	}, true)

	w := ut.PerformRequest(engine, "POST", "/api/analyze",
		&ut.Body{Body: body, Len: body.Len()},
		ut.Header{Key: "Content-Type", Value: contentType})
	resp := w.Result()

	assert.Equal(t, 502, resp.StatusCode())

	var errBody map[string]string
	require.NoError(t, json.Unmarshal(resp.Body(), &errBody))
	assert.NotEmpty(t, errBody["error"])
}
