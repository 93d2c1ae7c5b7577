package handler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"jobmatch-go/internal/logger"
	"jobmatch-go/internal/parser"
	"jobmatch-go/internal/processor"
	"jobmatch-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"
)

// 提取失败时返回给用户的统一提示，不泄漏内部解析细节
const extractionFailedMessage = "Failed to parse CV file"

// AnalyzeHandler 职位分析处理器
type AnalyzeHandler struct {
	service processor.AnalyzeService
}

// NewAnalyzeHandler 创建一个新的职位分析处理器
func NewAnalyzeHandler(service processor.AnalyzeService) *AnalyzeHandler {
	return &AnalyzeHandler{service: service}
}

// HandleAnalyze 处理职位分析请求
// multipart字段：cvFile(文件)、searchUrl、maxJobs、scoreThreshold、apifyToken、apifyActor
func (h *AnalyzeHandler) HandleAnalyze(c context.Context, ctx *app.RequestContext) {
	fileHeader, err := ctx.FormFile("cvFile")
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "cvFile is required"})
		return
	}

	searchURL := ctx.PostForm("searchUrl")
	if searchURL == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "searchUrl is required"})
		return
	}

	maxJobs := parseIntForm(ctx, "maxJobs")
	scoreThreshold := parseIntForm(ctx, "scoreThreshold")

	// 简历落到临时文件，处理完成后删除
	tmpPath := filepath.Join(os.TempDir(), fmt.Sprintf("cv-%s%s", uuid.NewString(), filepath.Ext(fileHeader.Filename)))
	if err := ctx.SaveUploadedFile(fileHeader, tmpPath); err != nil {
		logger.Error().Err(err).Msg("保存上传简历失败")
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to save uploaded file"})
		return
	}
	defer func() {
		if err := os.Remove(tmpPath); err != nil {
			logger.Warn().Err(err).Str("path", tmpPath).Msg("删除简历临时文件失败")
		}
	}()

	mimeType := fileHeader.Header.Get("Content-Type")

	resp, err := h.service.Analyze(c, processor.AnalyzeRequest{
		CvFilePath:     tmpPath,
		CvMimeType:     mimeType,
		SearchURL:      searchURL,
		MaxJobs:        maxJobs,
		ScoreThreshold: scoreThreshold,
		Credentials: types.SourceCredentials{
			Token: ctx.PostForm("apifyToken"),
			Actor: ctx.PostForm("apifyActor"),
		},
	})
	if err != nil {
		logger.Error().Err(err).Str("search_url", searchURL).Msg("职位分析失败")

		message := err.Error()
		if errors.Is(err, parser.ErrExtractionFailed) {
			message = extractionFailedMessage
		}
		ctx.JSON(consts.StatusBadGateway, utils.H{"error": message})
		return
	}

	ctx.JSON(consts.StatusOK, resp)
}

// parseIntForm 读取表单整数字段，缺失或非法时返回0（由服务层回退到默认值）
func parseIntForm(ctx *app.RequestContext, key string) int {
	raw := ctx.PostForm(key)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
