// Package picker selects source videos from the local media library directory.
package picker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/heimdex/heimdex-trim/internal/ffmpeg"
	"github.com/heimdex/heimdex-trim/internal/logging"
)

var (
	ErrNoSourceSelected = errors.New("no source video selected")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotVideo         = errors.New("not a video file")
	ErrOutsideLibrary   = errors.New("path is outside the media library")
	ErrNotFound         = errors.New("video not found")
)

var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".mkv":  true,
	".m4v":  true,
	".webm": true,
	".avi":  true,
}

// Asset is a picked source video. DurationMs is 0 when unknown.
type Asset struct {
	URI        string `json:"uri"`
	Filename   string `json:"filename"`
	Size       int64  `json:"size"`
	DurationMs int64  `json:"duration_ms"`
}

// Path returns the local filesystem path of the asset.
func (a Asset) Path() string {
	return ffmpeg.LocalPath(a.URI)
}

func IsVideoFile(filename string) bool {
	return VideoExtensions[strings.ToLower(filepath.Ext(filename))]
}

type Picker struct {
	root   string
	prober ffmpeg.Prober
	logger *slog.Logger
}

// New returns a picker rooted at the media directory. prober may be nil, in which
// case durations that are not supplied stay unknown.
func New(root string, prober ffmpeg.Prober, logger *slog.Logger) *Picker {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Picker{root: root, prober: prober, logger: logger}
}

func (p *Picker) Root() string {
	return p.root
}

// Pick validates path (relative to the media directory, absolute inside it, or a
// file:// URI) and returns its asset. A durationMs <= 0 is probed.
func (p *Picker) Pick(ctx context.Context, path string, durationMs int64) (*Asset, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrNoSourceSelected
	}

	abs, err := p.resolve(path)
	if err != nil {
		return nil, err
	}
	if !IsVideoFile(abs) {
		return nil, fmt.Errorf("%w: %s", ErrNotVideo, filepath.Base(abs))
	}

	f, err := os.Open(abs)
	if err != nil {
		switch {
		case os.IsPermission(err):
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, filepath.Base(abs))
		case os.IsNotExist(err):
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filepath.Base(abs))
		default:
			return nil, err
		}
	}
	info, err := f.Stat()
	f.Close()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotVideo, filepath.Base(abs))
	}

	asset := &Asset{
		URI:        "file://" + abs,
		Filename:   info.Name(),
		Size:       info.Size(),
		DurationMs: durationMs,
	}

	if asset.DurationMs <= 0 {
		asset.DurationMs = 0
		if p.prober != nil {
			if mi, err := p.prober.Probe(ctx, abs); err != nil {
				p.logger.Warn("duration probe failed", "path", logging.SanitizePath(abs), "error", err)
			} else {
				asset.DurationMs = mi.DurationMs()
			}
		}
	}

	p.logger.Info("video picked",
		"path", logging.SanitizePath(abs),
		"duration_ms", asset.DurationMs,
	)
	return asset, nil
}

// List walks the media directory and returns every video file, hidden directories
// skipped. Durations are not probed.
func (p *Picker) List(ctx context.Context) ([]Asset, error) {
	root, err := filepath.Abs(p.root)
	if err != nil {
		return nil, fmt.Errorf("invalid media dir: %w", err)
	}

	var assets []Asset
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() && path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if d.IsDir() || !IsVideoFile(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		assets = append(assets, Asset{
			URI:      "file://" + path,
			Filename: d.Name(),
			Size:     info.Size(),
		})
		return nil
	})
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, logging.SanitizePath(root))
		}
		return nil, fmt.Errorf("failed to list media dir: %w", err)
	}

	sort.Slice(assets, func(i, j int) bool { return assets[i].URI < assets[j].URI })
	return assets, nil
}

func (p *Picker) resolve(path string) (string, error) {
	root, err := filepath.Abs(p.root)
	if err != nil {
		return "", fmt.Errorf("invalid media dir: %w", err)
	}

	path = ffmpeg.LocalPath(path)
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	abs := filepath.Clean(path)
	if !within(root, abs) {
		return "", ErrOutsideLibrary
	}

	// A symlink inside the library must not lead out of it. Paths that do not
	// resolve are left for Open to report.
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return abs, nil
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return abs, nil
	}
	if !within(realRoot, resolved) {
		p.logger.Warn("symlink leads outside media dir", "path", logging.SanitizePath(abs))
		return "", ErrOutsideLibrary
	}
	return abs, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
