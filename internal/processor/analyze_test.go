package processor

import (
	"context"
	"fmt"
	"testing"

	"jobmatch-go/internal/config"
	"jobmatch-go/internal/parser"
	"jobmatch-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 测试用假组件

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) ExtractText(ctx context.Context, filePath string, mimeType string) (string, error) {
	return f.text, f.err
}

type fakeProfiler struct {
	profile *types.CvProfile
	err     error
}

func (f *fakeProfiler) Profile(ctx context.Context, cvText string) (*types.CvProfile, error) {
	return f.profile, f.err
}

type fakeFetcher struct {
	listings []types.RawListing
	err      error
}

func (f *fakeFetcher) FetchListings(ctx context.Context, searchURL string, maxJobs int, creds types.SourceCredentials) ([]types.RawListing, error) {
	return f.listings, f.err
}

// fakeScorer 按职位标题查表打分，未配置的标题返回错误
type fakeScorer struct {
	scores map[string]int
}

func (f *fakeScorer) Score(ctx context.Context, profile *types.CvProfile, job *types.Job) (*parser.JobFitScore, error) {
	score, ok := f.scores[job.JobTitle]
	if !ok {
		return nil, fmt.Errorf("scoring failed for %s", job.JobTitle)
	}
	return &parser.JobFitScore{Score: score, Verdict: fmt.Sprintf("verdict for %s", job.JobTitle)}, nil
}

func testScorerConfig() *config.ScorerConfig {
	return &config.ScorerConfig{
		Concurrency:      5,
		DefaultThreshold: 60,
		DefaultMaxJobs:   50,
	}
}

func newTestService(t *testing.T, fetcher ListingFetcher, scorer JobScorer) AnalyzeService {
	t.Helper()
	svc, err := NewAnalyzeService(
		&fakeExtractor{text: "简历文本"},
		&fakeProfiler{profile: &types.CvProfile{
			Skills:         []string{"Go"},
			ProfileSummary: "后端工程师。",
		}},
		fetcher,
		scorer,
		testScorerConfig(),
		nil,
	)
	require.NoError(t, err)
	return svc
}

func listingsOf(titles ...string) []types.RawListing {
	listings := make([]types.RawListing, 0, len(titles))
	for _, title := range titles {
		listings = append(listings, types.RawListing{"title": title, "companyName": "Acme"})
	}
	return listings
}

// TestAnalyzeFilterAndSort 测试阈值过滤和按分数降序排列
func TestAnalyzeFilterAndSort(t *testing.T) {
	fetcher := &fakeFetcher{listings: listingsOf("Low", "High", "Mid", "Below")}
	scorer := &fakeScorer{scores: map[string]int{
		"Low":   62,
		"High":  95,
		"Mid":   80,
		"Below": 40,
	}}
	svc := newTestService(t, fetcher, scorer)

	resp, err := svc.Analyze(context.Background(), AnalyzeRequest{
		CvFilePath:     "/tmp/cv.pdf",
		CvMimeType:     "application/pdf",
		SearchURL:      "https://example.com/jobs",
		ScoreThreshold: 60,
	})
	require.NoError(t, err)

	require.Len(t, resp.Jobs, 3)
	assert.Equal(t, "High", resp.Jobs[0].JobTitle)
	assert.Equal(t, "Mid", resp.Jobs[1].JobTitle)
	assert.Equal(t, "Low", resp.Jobs[2].JobTitle)
	assert.Equal(t, 95, *resp.Jobs[0].Score)
	assert.NotEmpty(t, resp.Jobs[0].Verdict)
}

// TestAnalyzeSingleJobFailureIsolated 测试单个职位评分失败不影响其余职位
func TestAnalyzeSingleJobFailureIsolated(t *testing.T) {
	fetcher := &fakeFetcher{listings: listingsOf("Good", "Broken", "Fine")}
	scorer := &fakeScorer{scores: map[string]int{
		"Good": 90,
		// "Broken" 不在表中，评分返回错误
		"Fine": 75,
	}}
	svc := newTestService(t, fetcher, scorer)

	resp, err := svc.Analyze(context.Background(), AnalyzeRequest{
		CvFilePath: "/tmp/cv.pdf",
		CvMimeType: "application/pdf",
		SearchURL:  "https://example.com/jobs",
	})
	require.NoError(t, err)

	require.Len(t, resp.Jobs, 2)
	assert.Equal(t, "Good", resp.Jobs[0].JobTitle)
	assert.Equal(t, "Fine", resp.Jobs[1].JobTitle)
}

// TestAnalyzeNoMatches 测试所有职位低于阈值时返回空列表而非错误
func TestAnalyzeNoMatches(t *testing.T) {
	fetcher := &fakeFetcher{listings: listingsOf("A", "B")}
	scorer := &fakeScorer{scores: map[string]int{"A": 20, "B": 35}}
	svc := newTestService(t, fetcher, scorer)

	resp, err := svc.Analyze(context.Background(), AnalyzeRequest{
		CvFilePath:     "/tmp/cv.pdf",
		CvMimeType:     "application/pdf",
		SearchURL:      "https://example.com/jobs",
		ScoreThreshold: 60,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Jobs)
	assert.NotNil(t, resp.CvProfile)
}

// TestAnalyzeDefaultThreshold 测试未指定阈值时使用配置默认值
func TestAnalyzeDefaultThreshold(t *testing.T) {
	fetcher := &fakeFetcher{listings: listingsOf("JustBelow", "JustAbove")}
	scorer := &fakeScorer{scores: map[string]int{"JustBelow": 59, "JustAbove": 60}}
	svc := newTestService(t, fetcher, scorer)

	resp, err := svc.Analyze(context.Background(), AnalyzeRequest{
		CvFilePath: "/tmp/cv.pdf",
		CvMimeType: "application/pdf",
		SearchURL:  "https://example.com/jobs",
	})
	require.NoError(t, err)

	require.Len(t, resp.Jobs, 1)
	assert.Equal(t, "JustAbove", resp.Jobs[0].JobTitle)
}

// TestAnalyzeExtractionErrorPropagates 测试简历提取失败时直接返回错误
func TestAnalyzeExtractionErrorPropagates(t *testing.T) {
	svc, err := NewAnalyzeService(
		&fakeExtractor{err: assert.AnError},
		&fakeProfiler{profile: &types.CvProfile{Skills: []string{"Go"}, ProfileSummary: "x"}},
		&fakeFetcher{},
		&fakeScorer{},
		testScorerConfig(),
		nil,
	)
	require.NoError(t, err)

	_, err = svc.Analyze(context.Background(), AnalyzeRequest{
		CvFilePath: "/tmp/cv.pdf",
		CvMimeType: "application/pdf",
		SearchURL:  "https://example.com/jobs",
	})
	require.Error(t, err)
}

// TestAnalyzeFetcherErrorPropagates 测试抓取失败时直接返回错误
func TestAnalyzeFetcherErrorPropagates(t *testing.T) {
	fetcher := &fakeFetcher{err: assert.AnError}
	svc := newTestService(t, fetcher, &fakeScorer{})

	_, err := svc.Analyze(context.Background(), AnalyzeRequest{
		CvFilePath: "/tmp/cv.pdf",
		CvMimeType: "application/pdf",
		SearchURL:  "https://example.com/jobs",
	})
	require.Error(t, err)
}

// TestFilterAndSortStable 测试同分职位保持抓取顺序
func TestFilterAndSortStable(t *testing.T) {
	score := func(v int) *int { return &v }
	jobs := []types.Job{
		{JobTitle: "First", Score: score(80)},
		{JobTitle: "Second", Score: score(80)},
		{JobTitle: "Third", Score: score(90)},
	}

	result := filterAndSort(jobs, 60)

	require.Len(t, result, 3)
	assert.Equal(t, "Third", result[0].JobTitle)
	assert.Equal(t, "First", result[1].JobTitle)
	assert.Equal(t, "Second", result[2].JobTitle)
}
