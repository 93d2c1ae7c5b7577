package handler

import (
	"context"

	"jobmatch-go/internal/logger"
	"jobmatch-go/internal/processor"
	"jobmatch-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// CoverLetterHandler 求职信生成处理器
type CoverLetterHandler struct {
	service processor.CoverLetterService
}

// NewCoverLetterHandler 创建一个新的求职信处理器
func NewCoverLetterHandler(service processor.CoverLetterService) *CoverLetterHandler {
	return &CoverLetterHandler{service: service}
}

// HandleGenerateCover 处理求职信生成请求
// 请求体：{ "job": {...}, "cvContext": { "skills": [...], "experienceHighlights": [...] } }
func (h *CoverLetterHandler) HandleGenerateCover(c context.Context, ctx *app.RequestContext) {
	var req types.CoverLetterRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "invalid request body"})
		return
	}

	if req.Job.JobTitle == "" && req.Job.CompanyName == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "job is required"})
		return
	}

	resp, err := h.service.Generate(c, &req)
	if err != nil {
		logger.Error().
			Err(err).
			Str("job_id", req.Job.JobID).
			Msg("求职信生成失败")
		ctx.JSON(consts.StatusBadGateway, utils.H{"error": "cover letter generation failed"})
		return
	}

	ctx.JSON(consts.StatusOK, resp)
}
