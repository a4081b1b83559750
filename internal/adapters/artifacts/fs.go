// Package artifacts stores downloaded media on the local filesystem.
package artifacts

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/target/mediafetch/internal/core"
	"github.com/target/mediafetch/internal/domain/model"
	apperrors "github.com/target/mediafetch/internal/errors"
)

const maxReserveAttempts = 8

var _ core.ArtifactSink = (*FSSink)(nil)

// FSSinkOptions configures a filesystem sink.
type FSSinkOptions struct {
	Root   string           // Required: directory all artifacts live in
	Now    func() time.Time // Optional: clock used in generated names
	Logger *slog.Logger     // Optional
}

// FSSink reserves, serves and removes artifacts under a single root directory.
type FSSink struct {
	root   string
	now    func() time.Time
	logger *slog.Logger
	random func([]byte) (int, error)
}

// NewFSSink creates the root directory when missing and returns a sink rooted there.
func NewFSSink(opts FSSinkOptions) (*FSSink, error) {
	if strings.TrimSpace(opts.Root) == "" {
		return nil, errors.New("artifact root is required")
	}
	abs, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve artifact root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact root %s: %w", abs, err)
	}
	// Symlinked roots are resolved once so containment checks compare real paths.
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &FSSink{
		root:   abs,
		now:    now,
		logger: logger.With("component", "artifact_sink"),
		random: rand.Read,
	}, nil
}

// Root returns the absolute storage root.
func (s *FSSink) Root() string { return s.root }

// ReserveName creates a zero-byte placeholder with a unique name and returns its location.
func (s *FSSink) ReserveName(platform model.PlatformKind, desc model.ArtifactDescriptor) (model.Target, error) {
	label := sanitizeComponent(desc.Title)
	if label == "" {
		label = sanitizeComponent(desc.ID)
	}
	if label == "" {
		label = "media"
	}
	kind := sanitizeComponent(platform.String())
	if kind == "" {
		kind = string(model.PlatformUnknown)
	}
	ext := sanitizeExt(desc.Ext)
	stamp := s.now().UTC().Format("20060102_150405")

	for attempt := 0; attempt < maxReserveAttempts; attempt++ {
		suffix, err := s.randomSuffix()
		if err != nil {
			return model.Target{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "generate artifact suffix")
		}
		name := fmt.Sprintf("%s_%s_%s_%s.%s", kind, label, stamp, suffix, ext)
		path := filepath.Join(s.root, name)

		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, fs.ErrExist) {
			s.logger.Debug("artifact name collision, retrying", "name", name)
			continue
		}
		if err != nil {
			return model.Target{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "reserve artifact")
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(path)
			return model.Target{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "reserve artifact")
		}
		return model.Target{Path: path}, nil
	}
	return model.Target{}, apperrors.Internal("could not reserve a unique artifact name")
}

func (s *FSSink) randomSuffix() (string, error) {
	buf := make([]byte, 4)
	if _, err := s.random(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Contains reports whether path resolves to a location strictly inside the root.
func (s *FSSink) Contains(path string) bool {
	_, ok := s.resolve(path)
	return ok
}

func (s *FSSink) resolve(path string) (string, bool) {
	if strings.TrimSpace(path) == "" {
		return "", false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	} else if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		abs = filepath.Join(dir, filepath.Base(abs))
	}
	rel, err := filepath.Rel(s.root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return abs, true
}

// Exists is true only for a regular file inside the root.
func (s *FSSink) Exists(path string) bool {
	abs, ok := s.resolve(path)
	if !ok {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && info.Mode().IsRegular()
}

// Open returns a reader over the artifact and its size.
func (s *FSSink) Open(path string) (io.ReadSeekCloser, int64, error) {
	abs, ok := s.resolve(path)
	if !ok {
		return nil, 0, apperrors.InvalidRequest("artifact path is outside the storage root")
	}
	f, err := os.Open(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, 0, apperrors.MissingArtifact("artifact file no longer exists")
	}
	if err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.ErrCodeInternal, "open artifact")
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, apperrors.Wrap(err, apperrors.ErrCodeInternal, "stat artifact")
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, 0, apperrors.MissingArtifact("artifact is not a regular file")
	}
	return f, info.Size(), nil
}

// Remove deletes the artifact. Missing files are not an error.
func (s *FSSink) Remove(path string) error {
	abs, ok := s.resolve(path)
	if !ok {
		return apperrors.InvalidRequest("artifact path is outside the storage root")
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "remove artifact")
	}
	return nil
}
