package scraper

import (
	"strconv"
	"strings"
	"time"

	"jobmatch-go/internal/logger"
	"jobmatch-go/internal/types"

	"github.com/gofrs/uuid/v5"
)

// 各字段在不同actor产出中的别名，按优先级排列
var (
	idKeys          = []string{"id", "jobId", "job_id"}
	companyKeys     = []string{"companyName", "company", "company_name", "employerName"}
	companyLogoKeys = []string{"companyLogo", "logo", "company_logo", "employerLogo"}
	titleKeys       = []string{"title", "jobTitle", "job_title", "positionName", "position"}
	jobURLKeys      = []string{"url", "jobUrl", "job_url", "link"}
	applyURLKeys    = []string{"applyUrl", "apply_url", "applicationUrl", "externalApplyLink"}
	descriptionKeys = []string{"description", "jobDescription", "job_description", "descriptionText"}
	scrapedAtKeys   = []string{"scrapedAt", "scraped_at", "postedAt", "datePosted"}
)

// 缺失字段的兜底值
const (
	defaultCompanyName = "Unknown Company"
	defaultJobTitle    = "Untitled Role"
)

// NormalizeListings 将原始抓取条目批量归一化为Job
func NormalizeListings(listings []types.RawListing) []types.Job {
	jobs := make([]types.Job, 0, len(listings))
	for _, listing := range listings {
		jobs = append(jobs, NormalizeListing(listing))
	}
	return jobs
}

// NormalizeListing 将单条原始抓取条目归一化为Job
// 不同actor的字段命名差异通过别名表解决，缺失字段给出文档化的兜底值：
// 公司名 "Unknown Company"，职位名 "Untitled Role"，applyUrl回退到jobUrl，
// scrapedAt回退到当天日期，ID缺失时生成UUIDv7
func NormalizeListing(listing types.RawListing) types.Job {
	job := types.Job{
		JobID:       firstString(listing, idKeys),
		CompanyName: firstString(listing, companyKeys),
		CompanyLogo: firstString(listing, companyLogoKeys),
		JobTitle:    firstString(listing, titleKeys),
		JobURL:      firstString(listing, jobURLKeys),
		ApplyURL:    firstString(listing, applyURLKeys),
		Description: firstString(listing, descriptionKeys),
		ScrapedAt:   firstString(listing, scrapedAtKeys),
	}

	if job.JobID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			// NewV7只在读取随机源失败时出错，此时退回V4
			id = uuid.Must(uuid.NewV4())
			logger.Warn().Err(err).Msg("生成UUIDv7失败，退回V4")
		}
		job.JobID = id.String()
	}
	if job.CompanyName == "" {
		job.CompanyName = defaultCompanyName
	}
	if job.JobTitle == "" {
		job.JobTitle = defaultJobTitle
	}
	if job.ApplyURL == "" {
		job.ApplyURL = job.JobURL
	}
	if job.ScrapedAt == "" {
		job.ScrapedAt = time.Now().Format("2006-01-02")
	}

	return job
}

// firstString 按别名优先级取第一个非空字符串值
// 数值型ID也会被转成字符串
func firstString(listing types.RawListing, keys []string) string {
	for _, key := range keys {
		v, ok := listing[key]
		if !ok || v == nil {
			continue
		}
		switch value := v.(type) {
		case string:
			if strings.TrimSpace(value) != "" {
				return strings.TrimSpace(value)
			}
		case float64:
			return strconv.FormatFloat(value, 'f', -1, 64)
		}
	}
	return ""
}
