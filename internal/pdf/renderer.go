// Package pdf renders HTML documents and web pages to PDF with headless Chrome.
package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const mmPerInch = 25.4

// Options controls page layout. Sizes and margins are in millimetres.
type Options struct {
	PaperWidthMM    float64
	PaperHeightMM   float64
	MarginTopMM     float64
	MarginRightMM   float64
	MarginBottomMM  float64
	MarginLeftMM    float64
	PrintBackground bool
	Landscape       bool

	// FilePath, when set, also writes the PDF there, creating parent directories.
	FilePath string
}

// DefaultOptions is A4 with background graphics and 15/12/15/12mm margins.
func DefaultOptions() Options {
	return Options{
		PaperWidthMM:    210,
		PaperHeightMM:   297,
		MarginTopMM:     15,
		MarginRightMM:   12,
		MarginBottomMM:  15,
		MarginLeftMM:    12,
		PrintBackground: true,
	}
}

type Renderer interface {
	HTMLToPDF(ctx context.Context, html string, opts Options) ([]byte, error)
	URLToPDF(ctx context.Context, url string, opts Options) ([]byte, error)
}

// ChromeRenderer starts a fresh headless browser per render.
type ChromeRenderer struct {
	execPath string
}

// NewChromeRenderer uses the browser at execPath, or looks one up on PATH when empty.
func NewChromeRenderer(execPath string) *ChromeRenderer {
	return &ChromeRenderer{execPath: execPath}
}

func (r *ChromeRenderer) HTMLToPDF(ctx context.Context, html string, opts Options) ([]byte, error) {
	load := chromedp.Tasks{
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body"),
	}
	return r.render(ctx, load, opts)
}

func (r *ChromeRenderer) URLToPDF(ctx context.Context, url string, opts Options) ([]byte, error) {
	load := chromedp.Tasks{
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	}
	return r.render(ctx, load, opts)
}

func (r *ChromeRenderer) render(ctx context.Context, load chromedp.Tasks, opts Options) ([]byte, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
	)
	if r.execPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(r.execPath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var buf []byte
	printTask := chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, _, err = printParams(opts).Do(ctx)
		return err
	})
	if err := chromedp.Run(browserCtx, load, printTask); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}

	if err := save(buf, opts.FilePath); err != nil {
		return nil, err
	}
	return buf, nil
}

func printParams(opts Options) *page.PrintToPDFParams {
	return page.PrintToPDF().
		WithPaperWidth(opts.PaperWidthMM / mmPerInch).
		WithPaperHeight(opts.PaperHeightMM / mmPerInch).
		WithMarginTop(opts.MarginTopMM / mmPerInch).
		WithMarginRight(opts.MarginRightMM / mmPerInch).
		WithMarginBottom(opts.MarginBottomMM / mmPerInch).
		WithMarginLeft(opts.MarginLeftMM / mmPerInch).
		WithPrintBackground(opts.PrintBackground).
		WithLandscape(opts.Landscape)
}

func save(buf []byte, path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create pdf dir: %w", err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
