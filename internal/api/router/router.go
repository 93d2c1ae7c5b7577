package router

import (
	"context"

	"jobmatch-go/internal/api/handler"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// RegisterRoutes 注册 API 路由
func RegisterRoutes(h *server.Hertz, analyzeHandler *handler.AnalyzeHandler, coverLetterHandler *handler.CoverLetterHandler) {
	api := h.Group("/api")

	api.POST("/analyze", analyzeHandler.HandleAnalyze)
	api.POST("/generate-cover", coverLetterHandler.HandleGenerateCover)

	// 健康检查
	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})
}
