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
	"strings"
)

// MediaServer streams uploaded media (scene images, music tracks,
// rendered outputs) with byte-range support so the preview player can
// seek audio without downloading whole files.
type MediaServer struct {
	root   string
	logger *slog.Logger
}

func NewMediaServer(root string, logger *slog.Logger) *MediaServer {
	return &MediaServer{root: root, logger: logger}
}

// ServeMedia resolves name inside the media root and streams it. Names
// that escape the root are rejected before touching the filesystem.
func (s *MediaServer) ServeMedia(w http.ResponseWriter, r *http.Request, name string) error {
	cleaned := filepath.Clean("/" + name)
	if cleaned == "/" {
		http.Error(w, "file not found", http.StatusNotFound)
		return nil
	}
	path := filepath.Join(s.root, cleaned)
	if !strings.HasPrefix(path, filepath.Clean(s.root)+string(os.PathSeparator)) {
		http.Error(w, "file not found", http.StatusNotFound)
		return nil
	}
	return s.serveFile(w, r, path)
}

func (s *MediaServer) serveFile(w http.ResponseWriter, r *http.Request, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "file not found", http.StatusNotFound)
			return nil
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.IsDir() {
		http.Error(w, "file not found", http.StatusNotFound)
		return nil
	}

	size := stat.Size()
	contentType := mime.TypeByExtension(filepath.Ext(filePath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentType)

	rng, err := parseByteRange(r.Header.Get("Range"), size)
	if errors.Is(err, errRangeUnsatisfiable) {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	}

	// A malformed Range header is ignored and the whole file served.
	if rng == nil || errors.Is(err, errRangeSyntax) {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
		w.WriteHeader(http.StatusOK)
		io.Copy(w, file)
		return nil
	}

	w.Header().Set("Content-Length", fmt.Sprintf("%d", rng.length()))
	w.Header().Set("Content-Range", rng.contentRange(size))
	w.WriteHeader(http.StatusPartialContent)

	if _, err := file.Seek(rng.start, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}

	io.CopyN(w, file, rng.length())
	return nil
}
