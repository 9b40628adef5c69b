package export

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/jamiesonbates/trendscout/internal/analysis"
)

const reportCSS = `
body{font-family:Georgia,serif;color:#1c1917;line-height:1.5;}
h1{font-size:1.6rem;border-bottom:2px solid #0f766e;padding-bottom:0.3rem;}
h2{font-size:1.2rem;color:#0f766e;margin-top:1.4rem;}
h3{font-size:1rem;margin-top:1rem;}
table{width:100%;border-collapse:collapse;font-size:0.85rem;}
th,td{border:1px solid #a8a29e;padding:0.35rem 0.45rem;text-align:left;vertical-align:top;}
thead th{background:#f1f5f9;font-weight:700;}
blockquote{border-left:4px solid #b45309;background:#fef3c7;margin:0;padding:0.5rem 0.75rem;}
code{background:#f5f5f4;padding:0 0.2rem;}
.report-meta{color:#44403c;font-size:0.85rem;margin-bottom:1rem;}
.report-badge{display:inline-block;background:#ccfbf1;color:#134e4a;border:1px solid #5eead4;border-radius:4px;padding:0.1rem 0.5rem;font-size:0.8rem;margin-right:0.4rem;}
`

// Renderer turns a stored analysis run into printable HTML or PDF.
// PDF rendering shells out to headless Chromium via chromedp.
type Renderer struct {
	chromePath string
}

func NewRenderer() *Renderer {
	return &Renderer{chromePath: detectChromePath()}
}

// HTML converts the run's markdown report into a standalone HTML document.
func (r *Renderer) HTML(env analysis.ResponseEnvelope) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(env.ReportMarkdown), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}

	var meta strings.Builder
	meta.WriteString("<div><strong>Keyword:</strong> " + html.EscapeString(env.Keyword) + "</div>")
	if ts := env.PipelineMetadata.CompletedAt; !ts.IsZero() {
		meta.WriteString("<div><strong>Date:</strong> " + html.EscapeString(ts.Format("January 2, 2006")) + "</div>")
	}
	badge := "<span class='report-badge'>" + html.EscapeString(string(env.ReportMode)) + "</span>"

	return "<!doctype html><html><head><meta charset='utf-8'><title>Trend Analysis: " +
		html.EscapeString(env.Keyword) + "</title>" +
		"<style>" + reportCSS + "</style></head><body>" +
		"<div class='report-meta'>" + meta.String() + badge + "</div>" +
		content.String() +
		"</body></html>", nil
}

// PDF renders the run to A4 PDF bytes.
func (r *Renderer) PDF(ctx context.Context, env analysis.ResponseEnvelope) ([]byte, error) {
	htmlDoc, err := r.HTML(env)
	if err != nil {
		return nil, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	}
	if r.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.chromePath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(timeoutCtx, append(chromedp.DefaultExecAllocatorOptions[:], opts...)...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	var pdf []byte
	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(htmlDoc))
	if err := chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			footer := `<div style="width:100%;text-align:center;font-size:9px;color:#666;">` +
				`Page <span class="pageNumber"></span> of <span class="totalPages"></span></div>`
			out, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithDisplayHeaderFooter(true).
				WithHeaderTemplate(`<div></div>`).
				WithFooterTemplate(footer).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithMarginTop(0.5).
				WithMarginBottom(0.75).
				WithMarginLeft(0.45).
				WithMarginRight(0.45).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = out
			return nil
		}),
	); err != nil {
		return nil, err
	}
	return pdf, nil
}

func detectChromePath() string {
	candidates := []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
