// Package render turns a day of frames into videos and clears the frames
// afterwards.
package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/motion-timelapse/internal/logic"
)

// DefaultFramerate is the output frame rate of both presets.
const DefaultFramerate = 30

// Renderer renders the frames of one day.
type Renderer interface {
	Name() string
	Render(ctx context.Context, day time.Time) error
}

// Preset is one output variant.
type Preset struct {
	Name   string
	CRF    int    // x264 constant rate factor; lower is better quality
	Dir    string // output directory
	Suffix string // appended to the YYYYMMDD stem
}

// FullPreset is the archival, high quality variant.
func FullPreset(dir string, crf int) Preset {
	return Preset{Name: "full", CRF: crf, Dir: dir}
}

// DownsampledPreset is the smaller variant served to the hub dashboard.
func DownsampledPreset(dir string, crf int) Preset {
	return Preset{Name: "downsampled", CRF: crf, Dir: dir, Suffix: "-timelapse-ha"}
}

// runFunc executes a command and returns its combined output.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// FFmpeg renders frames with the ffmpeg binary.
type FFmpeg struct {
	Bin       string
	FrameDir  string
	Framerate int
	Preset    Preset

	run runFunc
}

// Ensure FFmpeg implements Renderer at compile time.
var _ Renderer = (*FFmpeg)(nil)

// NewFFmpeg creates a renderer for frames in frameDir.
func NewFFmpeg(bin, frameDir string, framerate int, preset Preset) *FFmpeg {
	if bin == "" {
		bin = "ffmpeg"
	}
	if framerate <= 0 {
		framerate = DefaultFramerate
	}
	return &FFmpeg{
		Bin:       bin,
		FrameDir:  frameDir,
		Framerate: framerate,
		Preset:    preset,
		run:       execRun,
	}
}

// Name returns the preset name.
func (f *FFmpeg) Name() string {
	return f.Preset.Name
}

// OutputPath returns the video path for day.
func (f *FFmpeg) OutputPath(day time.Time) string {
	return filepath.Join(f.Preset.Dir, logic.DayStamp(day)+f.Preset.Suffix+".mp4")
}

// Args returns the ffmpeg arguments for day.
func (f *FFmpeg) Args(day time.Time) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-framerate", strconv.Itoa(f.Framerate),
		"-start_number", "1",
		"-i", logic.FramePattern(f.FrameDir),
		"-c:v", "libx264",
		"-crf", strconv.Itoa(f.Preset.CRF),
		"-preset", "veryslow",
		f.OutputPath(day),
	}
}

// Render encodes the day's frames. It blocks until ffmpeg exits.
func (f *FFmpeg) Render(ctx context.Context, day time.Time) error {
	if err := os.MkdirAll(f.Preset.Dir, 0o755); err != nil {
		return fmt.Errorf("render %s: create output dir: %w", f.Preset.Name, err)
	}
	out, err := f.run(ctx, f.Bin, f.Args(day)...)
	if err != nil {
		return fmt.Errorf("render %s: %w: %s", f.Preset.Name, err, lastLine(out))
	}
	return nil
}

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

func lastLine(out []byte) string {
	out = bytes.TrimSpace(out)
	if i := bytes.LastIndexByte(out, '\n'); i >= 0 {
		out = out[i+1:]
	}
	return strings.TrimSpace(string(out))
}
