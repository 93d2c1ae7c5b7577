package processor

import (
	"context"

	"jobmatch-go/internal/parser"
	"jobmatch-go/internal/types"
)

// TextExtractor 简历文本提取接口
type TextExtractor interface {
	// ExtractText 从上传的简历文件提取纯文本
	ExtractText(ctx context.Context, filePath string, mimeType string) (string, error)
}

// CvProfiler 候选人画像抽取接口
type CvProfiler interface {
	// Profile 从简历文本中抽取结构化画像
	Profile(ctx context.Context, cvText string) (*types.CvProfile, error)
}

// ListingFetcher 职位抓取接口
type ListingFetcher interface {
	// FetchListings 抓取职位列表原始条目
	FetchListings(ctx context.Context, searchURL string, maxJobs int, creds types.SourceCredentials) ([]types.RawListing, error)
}

// JobScorer 人岗匹配评分接口
type JobScorer interface {
	// Score 评估单个职位与候选人画像的匹配度
	Score(ctx context.Context, profile *types.CvProfile, job *types.Job) (*parser.JobFitScore, error)
}

// CoverLetterWriter 求职信生成接口
type CoverLetterWriter interface {
	// Write 生成针对指定职位的求职信正文
	Write(ctx context.Context, job *types.Job, cvContext *types.CoverLetterContext) (string, error)
}

// ArtifactUploader 求职信产物上传接口
type ArtifactUploader interface {
	// UploadCoverLetter 上传求职信PDF并返回限时下载URL
	UploadCoverLetter(ctx context.Context, pdfData []byte) (string, error)
}
