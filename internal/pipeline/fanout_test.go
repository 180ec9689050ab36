package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestFanOut_KeepsItemOrder(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6}
	double := func(ctx context.Context, n int) (int, error) {
		// later items finish first
		time.Sleep(time.Duration(len(items)-n) * 5 * time.Millisecond)
		return n * 2, nil
	}

	results, err := fanOut(context.Background(), 3, items, double, nil)
	if err != nil {
		t.Fatalf("fanOut: %v", err)
	}
	for i, r := range results {
		if r.err != nil || r.value != items[i]*2 {
			t.Errorf("results[%d] = %+v, want %d", i, r, items[i]*2)
		}
	}
}

func TestFanOut_RespectsWorkerLimit(t *testing.T) {
	var running, peak int32
	work := func(ctx context.Context, n int) (int, error) {
		cur := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return n, nil
	}

	if _, err := fanOut(context.Background(), 2, make([]int, 10), work, nil); err != nil {
		t.Fatalf("fanOut: %v", err)
	}
	if peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestFanOut_FatalError(t *testing.T) {
	fatalErr := errors.New("fatal")
	softErr := errors.New("soft")

	work := func(ctx context.Context, n int) (int, error) {
		switch n {
		case 1:
			return 0, softErr
		case 2:
			return 0, fatalErr
		}
		return n, nil
	}
	isFatal := func(err error) bool { return errors.Is(err, fatalErr) }

	_, err := fanOut(context.Background(), 1, []int{0, 1, 2, 3}, work, isFatal)
	if !errors.Is(err, fatalErr) {
		t.Errorf("err = %v, want fatal", err)
	}

	results, err := fanOut(context.Background(), 1, []int{0, 1, 3}, work, isFatal)
	if err != nil {
		t.Fatalf("soft errors should not fail the fan-out: %v", err)
	}
	if !errors.Is(results[1].err, softErr) {
		t.Errorf("results[1].err = %v, want soft", results[1].err)
	}
}

func TestFanOut_CancelledParent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	work := func(ctx context.Context, n int) (int, error) { return n, ctx.Err() }
	if _, err := fanOut(ctx, 2, []int{1, 2}, work, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
