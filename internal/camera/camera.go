// Package camera fetches snapshots from the camera and stores them as
// fixed-size frames.
package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/draw"

	"github.com/sweeney/motion-timelapse/internal/logic"
)

// Frame geometry and fetch limits.
const (
	FrameWidth     = 1280
	FrameHeight    = 720
	SnapshotPath   = "/snap.jpeg"
	requestTimeout = 5 * time.Second
	maxSnapshot    = 32 << 20
)

// Capturer captures one frame.
type Capturer interface {
	// Capture stores frame seq and returns its path. A returned error
	// means no file was written for seq.
	Capture(ctx context.Context, seq int) (string, error)
}

// Ensure HTTPCapturer implements Capturer at compile time.
var _ Capturer = (*HTTPCapturer)(nil)

// HTTPCapturer downloads {baseURL}/snap.jpeg and writes it, resized, into Dir.
type HTTPCapturer struct {
	url     string
	Dir     string
	Quality int
	http    *http.Client
}

// NewHTTPCapturer creates a capturer for the camera at baseURL writing into dir.
func NewHTTPCapturer(baseURL, dir string) *HTTPCapturer {
	return &HTTPCapturer{
		url:     strings.TrimRight(baseURL, "/") + SnapshotPath,
		Dir:     dir,
		Quality: jpeg.DefaultQuality,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// URL returns the snapshot URL.
func (c *HTTPCapturer) URL() string {
	return c.url
}

// Capture fetches one snapshot and stores it as frame seq.
func (c *HTTPCapturer) Capture(ctx context.Context, seq int) (string, error) {
	path := filepath.Join(c.Dir, logic.FrameName(seq))
	if err := c.CaptureTo(ctx, path); err != nil {
		return "", err
	}
	return path, nil
}

// CaptureTo fetches one snapshot and writes it to path.
func (c *HTTPCapturer) CaptureTo(ctx context.Context, path string) error {
	data, err := c.fetch(ctx)
	if err != nil {
		return err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	return writeJPEG(path, Resize(img, FrameWidth, FrameHeight), c.Quality)
}

func (c *HTTPCapturer) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get snapshot: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshot))
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

// Resize scales img to exactly width×height, ignoring aspect ratio.
func Resize(img image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// writeJPEG encodes img next to path and renames it into place, so a
// failed capture never leaves a partial frame behind.
func writeJPEG(path string, img image.Image, quality int) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".frame-*")
	if err != nil {
		return fmt.Errorf("create frame: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := jpeg.Encode(tmp, img, &jpeg.Options{Quality: quality}); err != nil {
		tmp.Close()
		return fmt.Errorf("encode frame: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close frame: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("store frame: %w", err)
	}
	return nil
}
