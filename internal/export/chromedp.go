package export

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ChromedpRasterizer renders HTML in headless Chrome and screenshots one element.
// Requires Chrome/Chromium to be installed on the system.
type ChromedpRasterizer struct {
	ExecPath       string
	Timeout        time.Duration
	ViewportWidth  int64
	ViewportHeight int64
	Verbose        bool
}

// NewChromedpRasterizer creates a rasterizer with an A4-wide viewport.
func NewChromedpRasterizer(execPath string, timeout time.Duration, verbose bool) *ChromedpRasterizer {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ChromedpRasterizer{
		ExecPath:       execPath,
		Timeout:        timeout,
		ViewportWidth:  794,
		ViewportHeight: 1123,
		Verbose:        verbose,
	}
}

// Rasterize loads html into a blank tab and captures selector at scale.
func (r *ChromedpRasterizer) Rasterize(ctx context.Context, html, selector string, scale float64) ([]byte, error) {
	if r.Verbose {
		log.Printf("[EXPORT] Starting headless browser (scale %.1fx)", scale)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if r.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.ExecPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, r.Timeout)
	defer cancel()

	var (
		nodes []*cdp.Node
		buf   []byte
	)

	err := chromedp.Run(browserCtx,
		emulation.SetDeviceMetricsOverride(r.ViewportWidth, r.ViewportHeight, 1, false),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.AtLeast(0)),
	)
	if err != nil {
		return nil, fmt.Errorf("browser rendering failed: %w", err)
	}
	if len(nodes) == 0 {
		return nil, ErrCaptureTargetMissing
	}

	if err := chromedp.Run(browserCtx, chromedp.ScreenshotScale(selector, scale, &buf, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}

	if r.Verbose {
		log.Printf("[EXPORT] Captured %d bytes", len(buf))
	}
	return buf, nil
}
