package render

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/sweeney/motion-timelapse/internal/logic"
)

// Cleaner removes the frames of a finished day.
type Cleaner interface {
	Cleanup() (int, error)
}

// FrameCleaner deletes every frame file in Dir.
type FrameCleaner struct {
	Dir string
}

// Cleanup deletes all *.jpeg files in the frame directory and returns how
// many were removed. It keeps going past individual failures.
func (c FrameCleaner) Cleanup() (int, error) {
	matches, err := filepath.Glob(logic.FrameGlob(c.Dir))
	if err != nil {
		return 0, fmt.Errorf("cleanup: %w", err)
	}

	var errs []error
	removed := 0
	for _, path := range matches {
		log.Printf("cleanup: deleting %s", path)
		if err := os.Remove(path); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	if len(errs) > 0 {
		return removed, fmt.Errorf("cleanup errors: %v", errs)
	}
	return removed, nil
}
