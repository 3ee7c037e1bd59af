package stability

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"deskpilot/internal/plan"
)

func solidFrame(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func noiseFrame(w, h int, seed uint32) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	state := seed
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			state = state*1664525 + 1013904223
			v := uint8(state >> 24)
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func TestSSIMIdenticalFrames(t *testing.T) {
	a := grayPlane(noiseFrame(320, 240, 1))
	b := grayPlane(noiseFrame(320, 240, 1))
	if got := ssim(a, b); got < 0.999 {
		t.Errorf("ssim of identical frames = %v, want ~1", got)
	}
}

func TestSSIMDifferentFrames(t *testing.T) {
	a := grayPlane(noiseFrame(320, 240, 1))
	b := grayPlane(noiseFrame(320, 240, 99))
	if got := ssim(a, b); got > 0.9 {
		t.Errorf("ssim of unrelated frames = %v, want well below threshold", got)
	}
}

func TestGrayPlaneDownscales(t *testing.T) {
	p := grayPlane(solidFrame(1920, 1080, color.White))
	if p.Bounds().Dx() != compareWidth {
		t.Errorf("plane width = %d, want %d", p.Bounds().Dx(), compareWidth)
	}
}

func TestWaitReturnsWhenStable(t *testing.T) {
	frame := solidFrame(320, 240, color.White)
	calls := 0
	w := &Waiter{
		Frame: func(ctx context.Context) (image.Image, error) {
			calls++
			return frame, nil
		},
		Config: Config{Interval: time.Millisecond, Consecutive: 3, Timeout: 2 * time.Second},
	}
	if err := w.Wait(context.Background(), plan.ClassMinor); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	// Initial frame plus three stable comparisons.
	if calls < 4 {
		t.Errorf("captured %d frames, want at least 4", calls)
	}
}

func TestWaitTimesOutOnConstantChange(t *testing.T) {
	seed := uint32(0)
	w := &Waiter{
		Frame: func(ctx context.Context) (image.Image, error) {
			seed++
			return noiseFrame(320, 240, seed), nil
		},
		Config: Config{Interval: time.Millisecond, Consecutive: 3, Timeout: 50 * time.Millisecond},
	}
	start := time.Now()
	if err := w.Wait(context.Background(), plan.ClassMinor); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if time.Since(start) < 50*time.Millisecond {
		t.Error("returned before the timeout on a busy screen")
	}
}

func TestWaitFallsBackOnCaptureFailure(t *testing.T) {
	w := &Waiter{
		Frame: func(ctx context.Context) (image.Image, error) {
			return nil, errors.New("no display")
		},
		Config: Config{Interval: time.Millisecond, Timeout: 10 * time.Second},
	}
	start := time.Now()
	if err := w.Wait(context.Background(), plan.ClassMinor); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	elapsed := time.Since(start)
	if elapsed < 400*time.Millisecond {
		t.Errorf("returned after %v, want the fixed fallback sleep", elapsed)
	}
}

func TestWaitHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := &Waiter{
		Frame: func(ctx context.Context) (image.Image, error) {
			return solidFrame(10, 10, color.White), nil
		},
	}
	if err := w.Wait(ctx, plan.ClassMinor); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait = %v, want context.Canceled", err)
	}
}

func TestFallbackSleepTable(t *testing.T) {
	cases := []struct {
		class plan.ActionClass
		want  time.Duration
	}{
		{plan.ClassAppOpen, 3 * time.Second},
		{plan.ClassMajorClick, 1500 * time.Millisecond},
		{plan.ClassNavKey, time.Second},
		{plan.ClassMinor, 500 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := fallbackSleep(tc.class); got != tc.want {
			t.Errorf("fallbackSleep(%s) = %v, want %v", tc.class, got, tc.want)
		}
	}
}
