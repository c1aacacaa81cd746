// Package output writes composed frames to disk and serves them over HTTP.
package output

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

// Snapshot formats.
const (
	FormatPNG  = "png"
	FormatJPEG = "jpg"
)

// DefaultJPEGQuality is used when no quality is configured.
const DefaultJPEGQuality = 90

// ErrUnknownFormat is returned for image formats other than png and jpg.
var ErrUnknownFormat = errors.New("unknown image format")

// ParseFormat normalises an image format name.
func ParseFormat(s string) (string, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func encode(w io.Writer, img image.Image, format string, quality int) error {
	if format == FormatPNG {
		return png.Encode(w, img)
	}
	if quality <= 0 {
		quality = DefaultJPEGQuality
	}
	return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
}

func writeImage(path string, img image.Image, format string, quality int) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if err := encode(f, img, format, quality); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}

// Recorder writes composed frames as a numbered image sequence into a
// per-session directory <root>/video-YYYYMMDD-HHMM, suffixed -2, -3 ... when
// several sessions start in the same minute.
type Recorder struct {
	dir     string
	format  string
	quality int
	seq     int

	saved  atomic.Uint64
	failed atomic.Uint64
}

// NewRecorder creates the session directory for a recording started at now.
func NewRecorder(root, format string, quality int, now time.Time) (*Recorder, error) {
	format, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create recording directory: %w", err)
	}
	dir, err := sessionDir(root, "video-"+now.Format("20060102-1504"))
	if err != nil {
		return nil, err
	}
	return &Recorder{dir: dir, format: format, quality: quality}, nil
}

// sessionDir creates root/name, or root/name-2, root/name-3 ... when an
// earlier session of the same minute already owns it.
func sessionDir(root, name string) (string, error) {
	dir := filepath.Join(root, name)
	for n := 2; ; n++ {
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("create recording directory: %w", err)
		}
		dir = filepath.Join(root, fmt.Sprintf("%s-%d", name, n))
	}
}

// Save writes the next frame of the sequence and returns its path.
func (r *Recorder) Save(img image.Image) (string, error) {
	path := filepath.Join(r.dir, fmt.Sprintf("frame_%06d.%s", r.seq, r.format))
	r.seq++
	if err := writeImage(path, img, r.format, r.quality); err != nil {
		r.failed.Add(1)
		return "", err
	}
	r.saved.Add(1)
	return path, nil
}

// Dir returns the session directory.
func (r *Recorder) Dir() string { return r.dir }

// Stats returns how many frames were written and how many failed.
func (r *Recorder) Stats() (saved, failed uint64) {
	return r.saved.Load(), r.failed.Load()
}

// SaveSnapshot writes a single frame as <root>/snapshot-YYYYMMDD-HHMMSS.<ext>.
func SaveSnapshot(root, format string, quality int, img image.Image, now time.Time) (string, error) {
	format, err := ParseFormat(format)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot directory: %w", err)
	}
	path := filepath.Join(root, "snapshot-"+now.Format("20060102-150405")+"."+format)
	if err := writeImage(path, img, format, quality); err != nil {
		return "", err
	}
	return path, nil
}
