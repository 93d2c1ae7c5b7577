package pdf

import (
	"context"
	"fmt"
	stdhtml "html"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ChromeDPConverter 使用ChromeDP将HTML转换为PDF
// 配置了远程WebSocket地址时连接远程Chrome，否则启动本地headless实例
type ChromeDPConverter struct {
	// 远程Chrome WebSocket URL，为空时使用本地Chrome
	RemoteWebSocketURL string
	// 默认超时时间
	DefaultTimeout time.Duration
	// 默认PDF选项
	DefaultOptions Options
}

var _ Converter = (*ChromeDPConverter)(nil)

// NewChromeDPConverter 创建一个基于ChromeDP的PDF转换器
func NewChromeDPConverter(remoteWebSocketURL string, timeout time.Duration) *ChromeDPConverter {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ChromeDPConverter{
		RemoteWebSocketURL: remoteWebSocketURL,
		DefaultTimeout:     timeout,
		DefaultOptions: Options{
			PaperWidthInch:   8.27,
			PaperHeightInch:  11.69,
			MarginTopInch:    0.75,
			MarginBottomInch: 0.75,
			MarginLeftInch:   0.75,
			MarginRightInch:  0.75,
			Landscape:        false,
		},
	}
}

// ConvertHTMLToPDF 将HTML内容转换为PDF
func (c *ChromeDPConverter) ConvertHTMLToPDF(ctx context.Context, html string, opts ...Option) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	options := c.DefaultOptions
	for _, opt := range opts {
		opt(&options)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.DefaultTimeout)
	defer cancel()

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if c.RemoteWebSocketURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(timeoutCtx, c.RemoteWebSocketURL)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(timeoutCtx, chromedp.DefaultExecAllocatorOptions[:]...)
	}
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	printToPDFParams := page.PrintToPDF().
		WithPrintBackground(true).
		WithPreferCSSPageSize(true).
		WithMarginTop(options.MarginTopInch).
		WithMarginBottom(options.MarginBottomInch).
		WithMarginLeft(options.MarginLeftInch).
		WithMarginRight(options.MarginRightInch).
		WithLandscape(options.Landscape)

	if options.PaperWidthInch > 0 && options.PaperHeightInch > 0 {
		printToPDFParams = printToPDFParams.
			WithPaperWidth(options.PaperWidthInch).
			WithPaperHeight(options.PaperHeightInch)
	}

	if options.Title != "" {
		titleTag := "<title>" + stdhtml.EscapeString(options.Title) + "</title>"
		// 完整文档的话把<title>插进已有的<head>，片段则包一层文档骨架
		if idx := strings.Index(html, "<head>"); idx >= 0 {
			html = html[:idx+len("<head>")] + titleTag + html[idx+len("<head>"):]
		} else {
			html = fmt.Sprintf("<html><head>%s</head><body>%s</body></html>", titleTag, html)
		}
	}

	var pdfData []byte
	err := chromedp.Run(taskCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfData, _, err = printToPDFParams.Do(ctx)
			return err
		}),
	)

	if err != nil {
		return nil, fmt.Errorf("chromedp PDF生成失败: %w", err)
	}

	return pdfData, nil
}
