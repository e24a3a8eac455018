package picker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/heimdex/heimdex-trim/internal/ffmpeg"
)

type fakeProber struct {
	calls   int
	probeFn func(ctx context.Context, path string) (*ffmpeg.MediaInfo, error)
}

func (f *fakeProber) Probe(ctx context.Context, path string) (*ffmpeg.MediaInfo, error) {
	f.calls++
	return f.probeFn(ctx, path)
}

func setupLibrary(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := []string{
		"beach.mp4",
		"trips/alps.MOV",
		"notes.txt",
		".hidden/secret.mp4",
	}
	for _, f := range files {
		path := filepath.Join(root, f)
		os.MkdirAll(filepath.Dir(path), 0755)
		if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestIsVideoFile(t *testing.T) {
	tests := map[string]bool{
		"a.mp4":  true,
		"a.MOV":  true,
		"a.webm": true,
		"a.txt":  false,
		"mp4":    false,
		"":       false,
	}
	for name, want := range tests {
		if got := IsVideoFile(name); got != want {
			t.Errorf("IsVideoFile(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestPick_RelativePathWithDuration(t *testing.T) {
	root := setupLibrary(t)
	prober := &fakeProber{}
	p := New(root, prober, nil)

	asset, err := p.Pick(context.Background(), "beach.mp4", 5000)
	if err != nil {
		t.Fatalf("Pick() error = %v", err)
	}
	if asset.URI != "file://"+filepath.Join(root, "beach.mp4") {
		t.Errorf("URI = %q", asset.URI)
	}
	if asset.Path() != filepath.Join(root, "beach.mp4") {
		t.Errorf("Path() = %q", asset.Path())
	}
	if asset.DurationMs != 5000 || asset.Size != 4 || asset.Filename != "beach.mp4" {
		t.Errorf("asset = %+v", asset)
	}
	if prober.calls != 0 {
		t.Error("supplied duration should not be probed")
	}
}

func TestPick_ProbesUnknownDuration(t *testing.T) {
	root := setupLibrary(t)
	prober := &fakeProber{probeFn: func(ctx context.Context, path string) (*ffmpeg.MediaInfo, error) {
		return &ffmpeg.MediaInfo{Path: path, Duration: 4200 * time.Millisecond}, nil
	}}

	asset, err := New(root, prober, nil).Pick(context.Background(), "file://"+filepath.Join(root, "trips", "alps.MOV"), 0)
	if err != nil {
		t.Fatalf("Pick() error = %v", err)
	}
	if asset.DurationMs != 4200 {
		t.Errorf("DurationMs = %d, want 4200", asset.DurationMs)
	}
}

func TestPick_ProbeFailureLeavesDurationUnknown(t *testing.T) {
	root := setupLibrary(t)
	prober := &fakeProber{probeFn: func(ctx context.Context, path string) (*ffmpeg.MediaInfo, error) {
		return nil, errors.New("ffprobe failed")
	}}

	asset, err := New(root, prober, nil).Pick(context.Background(), "beach.mp4", -1)
	if err != nil {
		t.Fatalf("Pick() error = %v", err)
	}
	if asset.DurationMs != 0 {
		t.Errorf("DurationMs = %d, want 0", asset.DurationMs)
	}
}

func TestPick_Errors(t *testing.T) {
	root := setupLibrary(t)
	p := New(root, nil, nil)

	tests := []struct {
		name string
		path string
		want error
	}{
		{"empty", "", ErrNoSourceSelected},
		{"blank", "   ", ErrNoSourceSelected},
		{"not video", "notes.txt", ErrNotVideo},
		{"missing", "gone.mp4", ErrNotFound},
		{"escape", "../outside.mp4", ErrOutsideLibrary},
		{"absolute outside", "/etc/passwd.mp4", ErrOutsideLibrary},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Pick(context.Background(), tt.path, 1000)
			if !errors.Is(err, tt.want) {
				t.Errorf("Pick(%q) error = %v, want %v", tt.path, err, tt.want)
			}
		})
	}
}

func TestPick_Symlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := setupLibrary(t)
	outside := filepath.Join(t.TempDir(), "private.mp4")
	if err := os.WriteFile(outside, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(outside, filepath.Join(root, "escape.mp4")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(t.TempDir(), filepath.Join(root, "elsewhere")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(root, "beach.mp4"), filepath.Join(root, "alias.mp4")); err != nil {
		t.Fatal(err)
	}
	p := New(root, nil, nil)

	if _, err := p.Pick(context.Background(), "escape.mp4", 1000); !errors.Is(err, ErrOutsideLibrary) {
		t.Errorf("Pick(escape.mp4) error = %v, want ErrOutsideLibrary", err)
	}
	if err := os.WriteFile(filepath.Join(root, "elsewhere", "clip.mp4"), []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Pick(context.Background(), "elsewhere/clip.mp4", 1000); !errors.Is(err, ErrOutsideLibrary) {
		t.Errorf("Pick(elsewhere/clip.mp4) error = %v, want ErrOutsideLibrary", err)
	}

	asset, err := p.Pick(context.Background(), "alias.mp4", 1000)
	if err != nil {
		t.Fatalf("Pick(alias.mp4) error = %v", err)
	}
	if asset.URI != "file://"+filepath.Join(root, "alias.mp4") {
		t.Errorf("URI = %q", asset.URI)
	}
}

func TestPick_PermissionDenied(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits not enforced")
	}
	root := setupLibrary(t)
	path := filepath.Join(root, "beach.mp4")
	if err := os.Chmod(path, 0); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(path, 0644) })

	_, err := New(root, nil, nil).Pick(context.Background(), "beach.mp4", 1000)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("Pick() error = %v, want ErrPermissionDenied", err)
	}
}

func TestList(t *testing.T) {
	root := setupLibrary(t)

	assets, err := New(root, nil, nil).List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("len = %d, want 2 (%+v)", len(assets), assets)
	}
	if assets[0].Filename != "beach.mp4" || assets[1].Filename != "alps.MOV" {
		t.Errorf("assets = %+v", assets)
	}
}

func TestList_MissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"), nil, nil).List(context.Background())
	if err == nil {
		t.Fatal("expected error for missing media dir")
	}
}
