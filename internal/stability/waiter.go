// Package stability waits for the screen to settle after an action by
// polling frames and comparing structural similarity. When frames cannot
// be captured it degrades to a fixed sleep sized by the action class.
package stability

import (
	"context"
	"image"
	"time"

	"deskpilot/internal/logging"
	"deskpilot/internal/plan"
)

// Config tunes the polling loop. The zero value takes the defaults.
type Config struct {
	// Interval between frame captures (default 300ms).
	Interval time.Duration

	// Consecutive is how many similar frame pairs in a row count as
	// stable (default 3).
	Consecutive int

	// Threshold is the SSIM score at or above which two frames count as
	// similar (default 0.985).
	Threshold float64

	// Timeout bounds the whole wait (default 10s).
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval == 0 {
		c.Interval = 300 * time.Millisecond
	}
	if c.Consecutive == 0 {
		c.Consecutive = 3
	}
	if c.Threshold == 0 {
		c.Threshold = 0.985
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	return c
}

// FrameFunc captures the current surface.
type FrameFunc func(ctx context.Context) (image.Image, error)

// Waiter polls frames until the screen is stable.
type Waiter struct {
	Frame  FrameFunc
	Config Config
}

// fallbackSleep sizes the blind wait used when capture keeps failing.
func fallbackSleep(class plan.ActionClass) time.Duration {
	switch class {
	case plan.ClassAppOpen:
		return 3 * time.Second
	case plan.ClassMajorClick:
		return 1500 * time.Millisecond
	case plan.ClassNavKey:
		return time.Second
	default:
		return 500 * time.Millisecond
	}
}

// Wait blocks until the screen has been stable for the configured streak,
// the timeout elapses, or the context is cancelled. Three capture failures
// switch to the fallback sleep for the action class. The error is non-nil
// only on context cancellation.
func (w *Waiter) Wait(ctx context.Context, class plan.ActionClass) error {
	cfg := w.Config.withDefaults()
	log := logging.Get(logging.CategoryStability)

	if w.Frame == nil {
		return sleep(ctx, fallbackSleep(class))
	}

	deadline := time.Now().Add(cfg.Timeout)
	var prev *image.Gray
	streak := 0
	failures := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if time.Now().After(deadline) {
			log.Warn("stability wait timed out after %s", cfg.Timeout)
			return nil
		}

		frame, err := w.Frame(ctx)
		if err != nil {
			failures++
			log.Debug("frame capture failed (%d): %v", failures, err)
			if failures >= 3 {
				d := fallbackSleep(class)
				log.Warn("frame capture unavailable, sleeping %s for %s action", d, class)
				return sleep(ctx, d)
			}
			if err := sleep(ctx, cfg.Interval); err != nil {
				return err
			}
			continue
		}

		plane := grayPlane(frame)
		if prev != nil {
			// A resolution change invalidates the streak; compare from
			// scratch at the new size.
			if !samePlaneSize(prev, plane) {
				streak = 0
			} else if score := ssim(prev, plane); score >= cfg.Threshold {
				streak++
				if streak >= cfg.Consecutive {
					log.Debug("screen stable after %d similar frames", streak)
					return nil
				}
			} else {
				streak = 0
			}
		}
		prev = plane

		if err := sleep(ctx, cfg.Interval); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
