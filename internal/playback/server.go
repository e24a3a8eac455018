// Package playback streams local media files over HTTP with byte-range support.
package playback

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/heimdex/heimdex-trim/internal/logging"
)

var ErrForbidden = errors.New("file is outside the served directories")

// Video types are not in every system mime table.
var videoTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".avi":  "video/x-msvideo",
}

type PlaybackService interface {
	ServeFile(w http.ResponseWriter, r *http.Request, filePath string) error
}

// Server serves files found under one of its roots. Anything else is refused
// with 403 so a stored path cannot be used to read arbitrary files.
type Server struct {
	roots  []string
	logger *slog.Logger
}

func NewServer(logger *slog.Logger, roots ...string) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	clean := make([]string, 0, len(roots))
	for _, r := range roots {
		if abs, err := filepath.Abs(r); err == nil {
			clean = append(clean, abs)
		}
	}
	return &Server{roots: clean, logger: logging.WithComponent(logger, "playback")}
}

// Allowed reports whether path lies inside one of the served roots, both as
// written and after symlinks are resolved.
func (s *Server) Allowed(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	if !s.underRoot(abs, false) {
		return false
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		// Missing files are reported by Open.
		return true
	}
	return s.underRoot(resolved, true)
}

func (s *Server) underRoot(path string, resolveRoots bool) bool {
	for _, root := range s.roots {
		if resolveRoots {
			r, err := filepath.EvalSymlinks(root)
			if err != nil {
				continue
			}
			root = r
		}
		if inside(root, path) {
			return true
		}
	}
	return false
}

func inside(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (s *Server) ServeFile(w http.ResponseWriter, r *http.Request, filePath string) error {
	if !s.Allowed(filePath) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return ErrForbidden
	}

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "file not found", http.StatusNotFound)
			return nil
		}
		http.Error(w, "cannot open file", http.StatusInternalServerError)
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		http.Error(w, "cannot open file", http.StatusInternalServerError)
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.IsDir() {
		http.Error(w, "file not found", http.StatusNotFound)
		return nil
	}

	size := stat.Size()
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentType(filePath))

	rng, err := ParseRange(r.Header.Get("Range"), size)
	switch {
	case errors.Is(err, ErrUnsatisfiable):
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	case err != nil:
		// A malformed header is ignored and the whole file is served.
		rng = nil
	}

	status := http.StatusOK
	length := size
	if rng != nil {
		status = http.StatusPartialContent
		length = rng.ContentLength()
		w.Header().Set("Content-Range", rng.ContentRange(size))
		if _, err := file.Seek(rng.Start, io.SeekStart); err != nil {
			return fmt.Errorf("failed to seek: %w", err)
		}
	}
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	w.WriteHeader(status)

	if r.Method == http.MethodHead {
		return nil
	}
	if _, err := io.CopyN(w, file, length); err != nil {
		s.logger.Debug("playback stream ended early",
			"path", logging.SanitizePath(filePath),
			"error", err,
		)
	}
	return nil
}

func contentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := videoTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
