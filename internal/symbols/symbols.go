// Package symbols stores the uploaded candidate symbols on disk.
package symbols

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/ccoveille/go-safecast"
	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/jon4hz/evoting/internal/config"
	"github.com/shirou/gopsutil/v3/disk"
)

// URLPrefix is the path stored symbols are served under.
const URLPrefix = "/uploads/"

const tempPrefix = "tmp_"

// maxPixels bounds the dimensions of an upload before it is decoded.
const maxPixels = 25_000_000

var (
	// ErrNotAnImage is returned when an upload can not be decoded as an image.
	ErrNotAnImage = errors.New("uploaded file is not a supported image")
	// ErrTooLarge is returned when an upload exceeds the configured size.
	ErrTooLarge = errors.New("uploaded file is too large")
	// ErrDiskFull is returned when the uploads volume is above the configured usage.
	ErrDiskFull = errors.New("uploads volume is above the configured usage limit")
)

var extensions = map[string]string{
	"jpeg": ".jpg",
	"png":  ".png",
	"gif":  ".gif",
	"bmp":  ".bmp",
	"tiff": ".tiff",
}

// Store keeps uploaded symbols in a single directory.
type Store struct {
	dir          string
	maxWidth     int
	maxHeight    int
	maxBytes     int64
	maxDiskUsage float64
	maxPixels    int
}

// New creates the uploads directory if needed and returns a Store for it.
func New(cfg *config.UploadsConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return &Store{
		dir:          cfg.Dir,
		maxWidth:     cfg.MaxWidth,
		maxHeight:    cfg.MaxHeight,
		maxBytes:     cfg.MaxBytes,
		maxDiskUsage: cfg.MaxDiskUsagePercent,
		maxPixels:    maxPixels,
	}, nil
}

// Dir returns the directory symbols are stored in.
func (s *Store) Dir() string {
	return s.dir
}

// Save decodes the uploaded image, scales it down to the configured bounds
// and stores it under a random name. It returns the reference to store on the candidate.
func (s *Store) Save(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	if s.maxBytes > 0 && fh.Size > s.maxBytes {
		return "", fmt.Errorf("%w: %s exceeds %s", ErrTooLarge, humanBytes(fh.Size), humanBytes(s.maxBytes))
	}
	if err := s.checkDiskUsage(ctx); err != nil {
		return "", err
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close() //nolint:errcheck

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	imgCfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", ErrNotAnImage
	}
	ext, ok := extensions[format]
	if !ok {
		return "", ErrNotAnImage
	}
	if imgCfg.Width <= 0 || imgCfg.Height <= 0 {
		return "", ErrNotAnImage
	}
	if imgCfg.Width > s.maxPixels/imgCfg.Height {
		return "", fmt.Errorf("%w: %dx%d pixels", ErrTooLarge, imgCfg.Width, imgCfg.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", ErrNotAnImage
	}

	bounds := img.Bounds()
	width, height := scaledDimensions(bounds.Dx(), bounds.Dy(), s.maxWidth, s.maxHeight)
	if width != bounds.Dx() || height != bounds.Dy() {
		img = imaging.Resize(img, width, height, imaging.Lanczos)
		log.Debug("Resized symbol", "from", fmt.Sprintf("%dx%d", bounds.Dx(), bounds.Dy()), "to", fmt.Sprintf("%dx%d", width, height))
	}

	name := uuid.NewString() + ext
	finalPath := filepath.Join(s.dir, name)
	tempPath := filepath.Join(s.dir, tempPrefix+name)
	defer os.Remove(tempPath) //nolint:errcheck

	if err := imaging.Save(img, tempPath, imaging.JPEGQuality(90), imaging.PNGCompressionLevel(6)); err != nil {
		return "", fmt.Errorf("failed to save symbol: %w", err)
	}
	if err := os.Rename(tempPath, finalPath); err != nil {
		return "", fmt.Errorf("failed to move symbol into place: %w", err)
	}

	log.Info("Stored candidate symbol", "file", name, "upload", fh.Filename, "size", humanBytes(fh.Size))
	return URLPrefix + name, nil
}

// Remove deletes a stored symbol. References that are not local uploads are ignored.
func (s *Store) Remove(ref string) error {
	name, ok := s.localName(ref)
	if !ok {
		return nil
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove symbol %s: %w", name, err)
	}
	return nil
}

// localName returns the file name of a reference created by Save.
func (s *Store) localName(ref string) (string, bool) {
	name, ok := strings.CutPrefix(ref, URLPrefix)
	if !ok || name == "" || name != filepath.Base(name) {
		return "", false
	}
	return name, true
}

// CleanupOrphans removes stored files that no reference points to and that are older than grace.
// It returns the number of removed files and the bytes freed.
func (s *Store) CleanupOrphans(ctx context.Context, refs []string, grace time.Duration) (int, uint64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read uploads directory: %w", err)
	}

	referenced := make([]string, 0, len(refs))
	for _, ref := range refs {
		if name, ok := s.localName(ref); ok {
			referenced = append(referenced, name)
		}
	}

	cutoff := time.Now().Add(-grace)
	var (
		removed int
		freed   uint64
	)
	for _, entry := range entries {
		if ctx.Err() != nil {
			return removed, freed, ctx.Err()
		}
		if entry.IsDir() || slices.Contains(referenced, entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			log.Warn("Failed to stat upload", "file", entry.Name(), "error", err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			log.Error("Failed to remove orphaned symbol", "file", entry.Name(), "error", err)
			continue
		}
		log.Debug("Removed orphaned symbol", "file", entry.Name())
		removed++
		if size, err := safecast.Convert[uint64](info.Size()); err == nil {
			freed += size
		}
	}
	return removed, freed, nil
}

// DiskUsage returns the used percentage of the volume holding the uploads directory.
func (s *Store) DiskUsage(ctx context.Context) (float64, error) {
	usage, err := disk.UsageWithContext(ctx, s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to get disk usage: %w", err)
	}
	return usage.UsedPercent, nil
}

func (s *Store) checkDiskUsage(ctx context.Context) error {
	if s.maxDiskUsage <= 0 {
		return nil
	}
	used, err := s.DiskUsage(ctx)
	if err != nil {
		// don't block uploads if the usage is unknown
		log.Warn("Could not determine disk usage of uploads directory", "error", err)
		return nil
	}
	if used >= s.maxDiskUsage {
		log.Warn("Refusing upload, disk usage above limit", "used", used, "limit", s.maxDiskUsage)
		return ErrDiskFull
	}
	return nil
}

// scaledDimensions fits width x height into maxWidth x maxHeight keeping the aspect ratio.
func scaledDimensions(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}
	ratio := min(float64(maxWidth)/float64(width), float64(maxHeight)/float64(height))
	return max(1, int(float64(width)*ratio)), max(1, int(float64(height)*ratio))
}

func humanBytes(n int64) string {
	size, err := safecast.Convert[uint64](n)
	if err != nil {
		return "invalid size"
	}
	return humanize.Bytes(size)
}
