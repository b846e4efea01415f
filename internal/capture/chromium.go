// Package capture renders a proof image of the publication text with
// headless Chromium.
package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	appLog "gdformat/internal/log"
)

// Default capture parameters: an A5 column at roughly 96 dpi.
const (
	DefaultWidth      = 560
	DefaultHeight     = 794
	DefaultTimeoutSec = 30

	// ReadySelector is set on the preview page once the text is in place.
	ReadySelector = `[data-ready="true"]`
)

// Options defines parameters for a proof capture.
type Options struct {
	// URL of the preview page, e.g. "http://127.0.0.1:8080/preview".
	URL string

	// OutputPath is where the PNG is written.
	OutputPath string

	// Width and Height are the viewport in pixels. Zero uses the defaults.
	// The screenshot covers the full page, so Height is only a minimum.
	Width  int
	Height int

	// Timeout bounds the whole capture. Zero uses DefaultTimeoutSec.
	Timeout time.Duration

	// ExecAllocatorOptions are passed to chromedp when non-empty, e.g. to
	// point at a specific browser binary.
	ExecAllocatorOptions []chromedp.ExecAllocatorOption
}

func (o *Options) validate() error {
	if o.URL == "" {
		return fmt.Errorf("capture: URL is required")
	}
	if o.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}
	return nil
}

// CaptureProofPNG opens opts.URL in headless Chromium, waits until
// ReadySelector is visible and writes a full-page PNG to opts.OutputPath.
func CaptureProofPNG(parentCtx context.Context, opts Options) error {
	if err := opts.validate(); err != nil {
		return err
	}

	allocCtx := parentCtx
	if len(opts.ExecAllocatorOptions) > 0 {
		var cancelAlloc context.CancelFunc
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(parentCtx,
			append(chromedp.DefaultExecAllocatorOptions[:], opts.ExecAllocatorOptions...)...)
		defer cancelAlloc()
	}

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(ReadySelector, chromedp.ByQuery),
		// Web fonts may still be painting.
		chromedp.Sleep(300 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if dir := filepath.Dir(opts.OutputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("capture: %w", err)
		}
	}
	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}

	appLog.Info("proof captured", "output", opts.OutputPath, "bytes", len(png))
	return nil
}
