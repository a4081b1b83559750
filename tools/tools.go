//go:build tools
// +build tools

// Package tools documents development tool dependencies.
// These tools are installed via `go install` and are not tracked in go.mod.
package tools

// Development tools:
//
// mockgen - regenerates internal/mocks (go generate ./internal/mocks)
//   Install: go install go.uber.org/mock/mockgen@v0.6.0
//   Docs: https://github.com/uber-go/mock
//
// yt-dlp - runtime dependency of the extractors, not a Go tool
//   Install: pipx install yt-dlp (or set EXTRACTOR_YTDLP_PATH)
//   Docs: https://github.com/yt-dlp/yt-dlp
