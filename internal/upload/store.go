// Package upload stores user media on disk and hands back URLs the
// editor and the media compiler can both reach. Images are downscaled
// and re-encoded before storage; audio is stored as received.
package upload

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // register PNG decoder
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	xdraw "golang.org/x/image/draw"

	"github.com/storyreel/storyreel-agent/internal/config"
	"github.com/storyreel/storyreel-agent/internal/studio"
)

const (
	// Uploaded images are resized to fit inside this box; anything
	// smaller passes through at its own size.
	maxImageWidth  = 1920
	maxImageHeight = 1080

	jpegQuality = 88
)

// Result describes a stored upload.
type Result struct {
	URL  string `json:"url"`
	Size int64  `json:"size"`
	Mime string `json:"mime"`
}

// Store writes media into a flat directory served at /media/.
type Store struct {
	dir    string
	logger *slog.Logger
}

func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the directory uploads are written to.
func (s *Store) Dir() string {
	return s.dir
}

// SaveImage decodes, downscales to fit 1920x1080 and re-encodes the
// image as JPEG. r is read through a size-capped reader; payloads over
// the image cap fail before decoding.
func (s *Store) SaveImage(r io.Reader, origName string) (*Result, error) {
	data, err := readCapped(r, config.MaxImageUploadBytes)
	if err != nil {
		return nil, err
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if format != "jpeg" && format != "png" {
		return nil, fmt.Errorf("unsupported image format %q", format)
	}

	img = downscaleToFit(img, maxImageWidth, maxImageHeight)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	name := studio.NewID() + ".jpg"
	if err := s.write(name, buf.Bytes()); err != nil {
		return nil, err
	}

	s.logger.Info("image stored",
		"name", name,
		"original", origName,
		"bounds", img.Bounds().Size().String(),
		"bytes_in", len(data),
		"bytes_out", buf.Len(),
	)
	return &Result{URL: "/media/" + name, Size: int64(buf.Len()), Mime: "image/jpeg"}, nil
}

// SaveAudio stores an audio file unchanged.
func (s *Store) SaveAudio(r io.Reader, origName string) (*Result, error) {
	data, err := readCapped(r, config.MaxAudioUploadBytes)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(origName))
	mime, ok := audioMimes[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported audio extension %q", ext)
	}

	name := studio.NewID() + ext
	if err := s.write(name, data); err != nil {
		return nil, err
	}

	s.logger.Info("audio stored", "name", name, "original", origName, "bytes", len(data))
	return &Result{URL: "/media/" + name, Size: int64(len(data)), Mime: mime}, nil
}

var audioMimes = map[string]string{
	".mp3": "audio/mpeg",
	".m4a": "audio/mp4",
	".aac": "audio/aac",
	".wav": "audio/wav",
	".ogg": "audio/ogg",
}

func (s *Store) write(name string, data []byte) error {
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write media file: %w", err)
	}
	return nil
}

// readCapped reads at most cap bytes and errors if the payload exceeds
// it.
func readCapped(r io.Reader, capBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, capBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > capBytes {
		return nil, fmt.Errorf("upload exceeds %d byte limit", capBytes)
	}
	return data, nil
}

// downscaleToFit scales img down to fit inside maxW x maxH, preserving
// aspect ratio. Images already inside the box are returned as-is.
func downscaleToFit(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxW && h <= maxH {
		return img
	}

	scale := float64(maxW) / float64(w)
	if s := float64(maxH) / float64(h); s < scale {
		scale = s
	}
	outW := int(float64(w) * scale)
	outH := int(float64(h) * scale)
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, outW, outH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}
