package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// A4 in inches.
const (
	a4WidthInches  = 8.27
	a4HeightInches = 11.69
)

// Printer turns an HTML document into PDF bytes.
type Printer interface {
	PrintPDF(ctx context.Context, documentURL string) ([]byte, error)
}

// ChromeOptions configures the headless browser.
type ChromeOptions struct {
	ExecPath  string
	Headless  bool
	NoSandbox bool
	Timeout   time.Duration
}

// ChromePrinter prints pages with a headless Chrome driven over the
// DevTools protocol. Each call starts its own browser.
type ChromePrinter struct {
	opts   ChromeOptions
	logger *slog.Logger
}

func NewChromePrinter(opts ChromeOptions, logger *slog.Logger) *ChromePrinter {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &ChromePrinter{
		opts:   opts,
		logger: logger.With(slog.String("component", "chrome_printer")),
	}
}

// PrintPDF loads documentURL and prints it on A4 with backgrounds.
func (p *ChromePrinter) PrintPDF(ctx context.Context, documentURL string) ([]byte, error) {
	allocOpts := chromedp.DefaultExecAllocatorOptions[:]
	allocOpts = append(allocOpts, chromedp.Flag("headless", p.opts.Headless))
	if p.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(p.opts.ExecPath))
	}
	if p.opts.NoSandbox {
		allocOpts = append(allocOpts, chromedp.NoSandbox)
	}

	ctx, cancelTimeout := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancelTimeout()

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancel()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	start := time.Now()
	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(documentURL),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(a4WidthInches).
				WithPaperHeight(a4HeightInches).
				WithPreferCSSPageSize(true).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = data
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("chrome print failed: %w", err)
	}

	p.logger.Debug("Printed PDF",
		slog.String("url", documentURL),
		slog.Int("bytes", len(pdf)),
		slog.Duration("duration", time.Since(start)))
	return pdf, nil
}
