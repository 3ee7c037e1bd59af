package automation

import (
	"context"
	"fmt"
	"image"
	"time"
)

// Rect is an optional capture region in screen pixels.
type Rect struct {
	X, Y, Width, Height int
}

// Shot describes a saved screenshot.
type Shot struct {
	Path   string
	Width  int
	Height int
}

// Driver executes primitives against the real surface. Implementations may
// return errors from any call; the planner records the step as failed and
// keeps going.
type Driver interface {
	MoveTo(ctx context.Context, x, y int) error
	Click(ctx context.Context) error
	DoubleClick(ctx context.Context) error
	RightClick(ctx context.Context) error

	// TypeText receives safe text (see SafeText) and types it literally.
	TypeText(ctx context.Context, text string) error

	// PressKey presses one canonical key (see CanonicalKey).
	PressKey(ctx context.Context, key string) error

	Scroll(ctx context.Context, amount int) error

	// Screenshot captures the surface (or a region of it) to a PNG file.
	Screenshot(ctx context.Context, region *Rect, path string) (Shot, error)

	// Frame returns the current surface as an in-memory image for
	// similarity polling.
	Frame(ctx context.Context) (image.Image, error)
}

// Execute runs the program against the driver in order. Sleeps honor
// context cancellation; the first primitive error aborts and is returned.
// Comments are no-ops.
func Execute(ctx context.Context, d Driver, p Program) error {
	for _, op := range p {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		switch op.Kind {
		case OpMove:
			err = d.MoveTo(ctx, op.X, op.Y)
		case OpClick:
			err = d.Click(ctx)
		case OpDoubleClick:
			err = d.DoubleClick(ctx)
		case OpRightClick:
			err = d.RightClick(ctx)
		case OpType:
			err = d.TypeText(ctx, op.Text)
		case OpPress:
			err = d.PressKey(ctx, op.Key)
		case OpScroll:
			err = d.Scroll(ctx, op.Amount)
		case OpSleep:
			err = sleep(ctx, time.Duration(op.Seconds*float64(time.Second)))
		case OpComment:
			// no-op
		default:
			err = fmt.Errorf("unknown primitive %q", op.Kind)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", op.Kind, err)
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
