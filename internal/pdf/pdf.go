package pdf

import (
	"context"
)

// Converter PDF转换器接口
// 求职信服务依赖此接口，测试时可用假实现替换真实的Chrome渲染
type Converter interface {
	// ConvertHTMLToPDF 将HTML内容转换为PDF
	ConvertHTMLToPDF(ctx context.Context, html string, opts ...Option) ([]byte, error)
}

// Options PDF渲染参数
type Options struct {
	PaperWidthInch   float64
	PaperHeightInch  float64
	MarginTopInch    float64
	MarginBottomInch float64
	MarginLeftInch   float64
	MarginRightInch  float64
	Landscape        bool
	Title            string
}

// Option 配置选项函数类型
type Option func(*Options)
