package pdf

// WithPaperSize 设置纸张尺寸（英寸）
func WithPaperSize(width, height float64) Option {
	return func(o *Options) {
		o.PaperWidthInch = width
		o.PaperHeightInch = height
	}
}

// WithMargins 设置页边距（英寸）
func WithMargins(top, right, bottom, left float64) Option {
	return func(o *Options) {
		o.MarginTopInch = top
		o.MarginRightInch = right
		o.MarginBottomInch = bottom
		o.MarginLeftInch = left
	}
}

// WithTitle 设置PDF标题
func WithTitle(title string) Option {
	return func(o *Options) {
		o.Title = title
	}
}

// 预定义纸张尺寸（英寸）
var (
	// A4纸尺寸（8.27 x 11.69英寸）
	PaperA4 = WithPaperSize(8.27, 11.69)
)

// 预定义边距
var (
	// 求职信用的宽边距（0.75英寸）
	MarginsWide = WithMargins(0.75, 0.75, 0.75, 0.75)
)
