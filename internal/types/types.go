package types

// CvProfile 候选人画像，由LLM从简历文本中抽取
type CvProfile struct {
	Skills               []string `json:"skills"`
	ProfileSummary       string   `json:"profileSummary"`
	ExperienceHighlights []string `json:"experienceHighlights"`
}

// RawListing 抓取器原样返回的职位条目，字段结构因actor而异
type RawListing map[string]any

// Job 归一化后的职位，评分字段在打分完成后填充
type Job struct {
	JobID       string `json:"jobId"`
	CompanyName string `json:"companyName"`
	CompanyLogo string `json:"companyLogo,omitempty"`
	JobTitle    string `json:"jobTitle"`
	JobURL      string `json:"jobUrl"`
	ApplyURL    string `json:"applyUrl"`
	Description string `json:"description"`
	ScrapedAt   string `json:"scrapedAt"`
	Score       *int   `json:"score,omitempty"`
	Verdict     string `json:"verdict,omitempty"`
}

// AnalyzedResponse 职位分析接口的响应体
// 画像字段内联展开，响应顶层即为 skills/profileSummary/experienceHighlights/jobs
type AnalyzedResponse struct {
	*CvProfile
	Jobs []Job `json:"jobs"`
}

// CoverLetterContext 求职信生成所需的候选人背景
type CoverLetterContext struct {
	Skills               []string `json:"skills"`
	ExperienceHighlights []string `json:"experienceHighlights"`
}

// CoverLetterRequest 求职信生成接口的请求体
type CoverLetterRequest struct {
	Job       Job                `json:"job"`
	CvContext CoverLetterContext `json:"cvContext"`
}

// CoverLetterResponse 求职信生成接口的响应体
type CoverLetterResponse struct {
	CoverLetterURL string `json:"coverLetterUrl"`
}

// SourceCredentials 请求级别的抓取服务凭证，优先于配置中的默认值
type SourceCredentials struct {
	Token string `json:"token"`
	Actor string `json:"actor"`
}
