package extractors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/target/mediafetch/internal/core"
	"github.com/target/mediafetch/internal/domain/model"
)

// fakeTool is a scripted MediaTool.
type fakeTool struct {
	mu        sync.Mutex
	probe     func(url string) ([]byte, error)
	downloads []func(opts DownloadOptions, progress core.ProgressFunc) (*DownloadResult, error)
	calls     []DownloadOptions
}

func (f *fakeTool) Probe(_ context.Context, url string) ([]byte, error) {
	if f.probe == nil {
		return nil, errNotScripted
	}
	return f.probe(url)
}

func (f *fakeTool) Download(_ context.Context, _ string, opts DownloadOptions, progress core.ProgressFunc) (*DownloadResult, error) {
	f.mu.Lock()
	idx := len(f.calls)
	f.calls = append(f.calls, opts)
	f.mu.Unlock()
	if idx >= len(f.downloads) {
		return nil, errNotScripted
	}
	return f.downloads[idx](opts, progress)
}

var errNotScripted = &scriptError{"not scripted"}

type scriptError struct{ msg string }

func (e *scriptError) Error() string { return e.msg }

func writeOutput(ext string, body string) func(DownloadOptions, core.ProgressFunc) (*DownloadResult, error) {
	return func(opts DownloadOptions, progress core.ProgressFunc) (*DownloadResult, error) {
		progress(50)
		if err := os.WriteFile(opts.OutputStem+"."+ext, []byte(body), 0o600); err != nil {
			return nil, err
		}
		return &DownloadResult{Title: "Clip"}, nil
	}
}

func failDownload(msg string) func(DownloadOptions, core.ProgressFunc) (*DownloadResult, error) {
	return func(DownloadOptions, core.ProgressFunc) (*DownloadResult, error) {
		return nil, &scriptError{msg}
	}
}

// newTarget creates a reserved placeholder the way the artifact sink would.
func newTarget(t *testing.T, ext string) model.Target {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test_clip_20240101_120000_0a1b2c3d."+ext)
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	return model.Target{Path: path}
}

// rewriteTransport sends every request to the test server regardless of host.
type rewriteTransport struct {
	target *url.URL
}

func (r rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = r.target.Scheme
	out.URL.Host = r.target.Host
	out.Host = r.target.Host
	resp, err := http.DefaultTransport.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	resp.Request = req
	return resp, nil
}

func routedClient(t *testing.T, srv *httptest.Server) *http.Client {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return &http.Client{Transport: rewriteTransport{target: u}}
}

func scrapingOptions(t *testing.T, tool MediaTool, srv *httptest.Server) Options {
	t.Helper()
	client := routedClient(t, srv)
	return Options{
		Tool:    tool,
		Scraper: NewScraper(ScraperOptions{Client: client}),
		Fetcher: NewFetcher(FetcherOptions{Client: client}),
	}
}

type progressLog struct {
	mu     sync.Mutex
	values []int
}

func (p *progressLog) fn(v int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = append(p.values, v)
}

func (p *progressLog) get() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.values...)
}

func assertIncreasing(t *testing.T, values []int) {
	t.Helper()
	for i := 1; i < len(values); i++ {
		require.Greater(t, values[i], values[i-1], "progress must increase: %v", values)
	}
}
