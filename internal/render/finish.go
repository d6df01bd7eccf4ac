package render

import (
	"context"
	"errors"
	"log"
	"time"
)

// Finisher runs the end-of-day steps in order: every renderer, then the
// cleaner. Each step runs to completion before the next starts and a
// failing step does not stop the ones after it.
type Finisher struct {
	Renderers []Renderer
	Cleaner   Cleaner
}

// NewFinisher creates a Finisher.
func NewFinisher(cleaner Cleaner, renderers ...Renderer) *Finisher {
	return &Finisher{Renderers: renderers, Cleaner: cleaner}
}

// FinishDay renders day and clears its frames. The returned error joins
// every step failure; all of them have already been logged.
func (f *Finisher) FinishDay(ctx context.Context, day time.Time) error {
	var errs []error

	for _, r := range f.Renderers {
		log.Printf("render: generating %s timelapse for %s", r.Name(), day.Format("2006-01-02"))
		start := time.Now()
		if err := r.Render(ctx, day); err != nil {
			log.Printf("render error: %v", err)
			errs = append(errs, err)
			continue
		}
		log.Printf("render: %s done in %v", r.Name(), time.Since(start).Round(time.Second))
	}

	if f.Cleaner != nil {
		n, err := f.Cleaner.Cleanup()
		if err != nil {
			log.Printf("cleanup error: %v", err)
			errs = append(errs, err)
		}
		log.Printf("cleanup: removed %d frames", n)
	}

	return errors.Join(errs...)
}
