package testutil

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestEventually(t *testing.T) {
	var ready int32
	go func() {
		time.Sleep(30 * time.Millisecond)
		atomic.StoreInt32(&ready, 1)
	}()
	WaitForInt32(t, &ready, 1, time.Second)

	calls := 0
	Eventually(t, func() bool {
		calls++
		return true
	}, 50*time.Millisecond, 10*time.Millisecond)
	AssertEqual(t, calls, 1)
}

func TestCallbackTracker(t *testing.T) {
	tracker := NewCallbackTracker()
	tracker.AssertNotCalled(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Mark()
		}()
	}
	wg.Wait()
	tracker.Mark("last")

	tracker.AssertCallCount(t, 11)
	AssertEqual(t, tracker.Value(), any("last"))
}

func TestWithTimeout(t *testing.T) {
	ctx, cancel := WithTimeout(t)
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("context should have a deadline")
	}
	if time.Until(deadline) > TestTimeout {
		t.Errorf("deadline is too far in the future")
	}
}

func TestAssertions(t *testing.T) {
	AssertNoError(t, nil)
	AssertError(t, context.Canceled)
	AssertErrorIs(t, fmt.Errorf("stage 2: %w", context.Canceled), context.Canceled)
	AssertEqual(t, "clean", "clean")
	AssertNotEqual(t, 1, 2)
	AssertFloat(t, 0.1+0.2, 0.3)
	AssertFloat(t, math.NaN(), math.NaN())
}

func TestMockWriter(t *testing.T) {
	w := NewMockWriter()
	_, err := w.Write([]byte("id,name\n"))
	AssertNoError(t, err)
	AssertEqual(t, w.String(), "id,name\n")

	w.SetAlwaysError(errors.New("disk full"))
	_, err = w.Write([]byte("1,a\n"))
	AssertError(t, err)
	AssertEqual(t, w.WriteCount(), 2)
	AssertEqual(t, w.String(), "id,name\n")
}

func TestMockClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)
	clock.Advance(time.Hour)
	AssertEqual(t, clock.Now(), start.Add(time.Hour))
}
