package artifacts

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mediafetch/internal/domain/model"
	apperrors "github.com/target/mediafetch/internal/errors"
	"github.com/target/mediafetch/internal/testutil"
)

func newSink(t *testing.T) *FSSink {
	t.Helper()
	sink, err := NewFSSink(FSSinkOptions{
		Root: testutil.StorageRoot(t),
		Now:  testutil.FixedTimeFunc(time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)),
	})
	require.NoError(t, err)
	return sink
}

func TestFSSink_ReserveNameFormat(t *testing.T) {
	sink := newSink(t)

	target, err := sink.ReserveName(model.PlatformYouTube, model.ArtifactDescriptor{
		Title: "Never Gonna / Give You Up?",
		Ext:   "mp3",
	})
	require.NoError(t, err)

	name := filepath.Base(target.Path)
	assert.Regexp(t, `^youtube_Never_Gonna_Give_You_Up_20240309_140507_[0-9a-f]{8}\.mp3$`, name)
	assert.Equal(t, sink.Root(), filepath.Dir(target.Path))

	info, err := os.Stat(target.Path)
	require.NoError(t, err)
	assert.Zero(t, info.Size(), "placeholder is empty")
}

func TestFSSink_ReserveNameFallbacks(t *testing.T) {
	sink := newSink(t)

	byID, err := sink.ReserveName(model.PlatformTwitter, model.ArtifactDescriptor{ID: "1234567890", Ext: ".MP4"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(byID.Path), "twitter_1234567890_"))
	assert.Equal(t, "mp4", byID.Ext())

	anon, err := sink.ReserveName(model.PlatformTikTok, model.ArtifactDescriptor{Title: "///", Ext: "../../x"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(anon.Path), "tiktok_media_"))
	assert.True(t, sink.Contains(anon.Path))
}

func TestFSSink_ReserveNameCapsLength(t *testing.T) {
	sink := newSink(t)
	target, err := sink.ReserveName(model.PlatformFacebook, model.ArtifactDescriptor{
		Title: strings.Repeat("ü", 200),
		Ext:   "mp4",
	})
	require.NoError(t, err)

	label := strings.TrimPrefix(filepath.Base(target.Path), "facebook_")
	label = label[:strings.Index(label, "_2024")]
	assert.LessOrEqual(t, len(label), maxStemBytes)
	assert.True(t, strings.HasPrefix(label, "üü"))
}

func TestFSSink_ReserveNameRetriesOnCollision(t *testing.T) {
	sink := newSink(t)
	calls := 0
	sink.random = func(b []byte) (int, error) {
		calls++
		fill := byte(0xaa)
		if calls > 1 {
			fill = 0xbb
		}
		for i := range b {
			b[i] = fill
		}
		return len(b), nil
	}

	first, err := sink.ReserveName(model.PlatformYouTube, model.ArtifactDescriptor{Title: "clip", Ext: "mp4"})
	require.NoError(t, err)
	assert.Contains(t, first.Path, "aaaaaaaa")

	calls = 0
	second, err := sink.ReserveName(model.PlatformYouTube, model.ArtifactDescriptor{Title: "clip", Ext: "mp4"})
	require.NoError(t, err)
	assert.Contains(t, second.Path, "bbbbbbbb")
	assert.Equal(t, 2, calls)
}

func TestFSSink_ConcurrentReservationsAreDistinct(t *testing.T) {
	sink := newSink(t)

	const n = 32
	paths := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			target, err := sink.ReserveName(model.PlatformInstagram, model.ArtifactDescriptor{Title: "same", Ext: "mp4"})
			if err == nil {
				paths[i] = target.Path
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, p := range paths {
		require.NotEmpty(t, p)
		require.False(t, seen[p], "duplicate path %s", p)
		seen[p] = true
	}
}

func TestFSSink_ExistsOpenRemove(t *testing.T) {
	sink := newSink(t)
	target, err := sink.ReserveName(model.PlatformYouTube, model.ArtifactDescriptor{Title: "song", Ext: "mp3"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(target.Path, []byte("ID3 audio"), 0o600))

	assert.True(t, sink.Exists(target.Path))

	rc, size, err := sink.Open(target.Path)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, int64(9), size)
	assert.Equal(t, "ID3 audio", string(body))

	require.NoError(t, sink.Remove(target.Path))
	assert.False(t, sink.Exists(target.Path))
	require.NoError(t, sink.Remove(target.Path), "remove is idempotent")

	_, _, err = sink.Open(target.Path)
	assert.True(t, apperrors.IsMissingArtifact(err))
}

func TestFSSink_RejectsPathsOutsideRoot(t *testing.T) {
	sink := newSink(t)
	outside := testutil.WriteFile(t, t.TempDir(), "secret.txt", []byte("nope"))

	assert.False(t, sink.Contains(outside))
	assert.False(t, sink.Exists(outside))
	assert.False(t, sink.Contains(sink.Root()), "the root itself is not an artifact")
	assert.False(t, sink.Contains(filepath.Join(sink.Root(), "..", "escape.mp4")))
	assert.False(t, sink.Contains(""))

	_, _, err := sink.Open(outside)
	assert.True(t, apperrors.IsInvalidRequest(err))
	assert.True(t, apperrors.IsInvalidRequest(sink.Remove(outside)))

	_, err = os.Stat(outside)
	assert.NoError(t, err, "file outside root untouched")
}

func TestFSSink_ExistsRejectsDirectories(t *testing.T) {
	sink := newSink(t)
	dir := filepath.Join(sink.Root(), "nested")
	require.NoError(t, os.Mkdir(dir, 0o755))
	assert.True(t, sink.Contains(dir))
	assert.False(t, sink.Exists(dir))
}

func TestNewFSSink_RequiresRoot(t *testing.T) {
	_, err := NewFSSink(FSSinkOptions{})
	assert.Error(t, err)
}

func TestSanitizeComponent(t *testing.T) {
	tests := map[string]string{
		"Hello World!":          "Hello_World",
		"../../etc/passwd":      "etc_passwd",
		"a\x00b\nc":             "a_b_c",
		"  __already_clean__  ": "already_clean",
		"Café ☕ time":           "Café_time",
		"":                      "",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeComponent(in), "input %q", in)
	}
}
