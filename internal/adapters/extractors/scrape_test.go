package extractors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScraper_Fetch(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write([]byte("<html><head>" +
			`<meta name="twitter:title" content="Caf` + "\xe9" + ` time">` +
			`<meta property="og:video:secure_url" content="/v/clip.mp4">` +
			`<script type="application/ld+json">[{"@type":"VideoObject","author":[{"name":"Bob"}],"uploadDate":"2023-05-01","contentUrl":"https://cdn.example/clip.mp4"}]</script>` +
			`<script type="application/ld+json">{not json}</script>` +
			"</head><body>{\"src\":\"https:\\/\\/cdn.example\\/a.jpg?x=1\\u0026y=2\"}</body></html>"))
	}))
	defer srv.Close()

	s := NewScraper(ScraperOptions{Client: srv.Client(), UserAgent: "mediafetch-test"})
	pg, err := s.Fetch(context.Background(), srv.URL+"/post/1")
	require.NoError(t, err)

	assert.Equal(t, "mediafetch-test", gotUA)
	assert.Equal(t, "Café time", pg.meta("og:title", "twitter:title"))
	assert.Equal(t, srv.URL+"/v/clip.mp4", pg.videoURL())
	assert.Empty(t, pg.imageURL())
	assert.Equal(t, "https://cdn.example/a.jpg?x=1&y=2", pg.find(regexp.MustCompile(`https://cdn\.example/a\.jpg[^"]*`)))

	blocks := pg.jsonLD()
	require.Len(t, blocks, 1)

	info := pg.info()
	assert.Equal(t, "Café time", info.Title)
	assert.Equal(t, "Bob", info.Uploader)
	assert.Equal(t, "2023-05-01", info.UploadDate)
	assert.Equal(t, srv.URL+"/v/clip.mp4", info.MediaURL)
	assert.True(t, info.IsVideo)
}

func TestScraper_FetchRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	s := NewScraper(ScraperOptions{Client: srv.Client()})
	_, err := s.Fetch(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "410")

	_, err = s.Fetch(context.Background(), "ftp://example.com/x")
	assert.Error(t, err)
	_, err = s.Fetch(context.Background(), "https:///nohost")
	assert.Error(t, err)
}

func TestScraper_TitleFallsBackToTitleTag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title> Plain page </title><meta property="og:type" content="video.other"></head></html>`))
	}))
	defer srv.Close()

	pg, err := NewScraper(ScraperOptions{Client: srv.Client()}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	info := pg.info()
	assert.Equal(t, "Plain page", info.Title)
	assert.True(t, info.IsVideo)
}
