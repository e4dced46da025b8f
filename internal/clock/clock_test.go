package clock_test

import (
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/mutker/robotwatch/internal/clock"
	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)

func TestFakeScheduleFiresOnce(t *testing.T) {
	f := clock.NewFake(epoch)
	calls := 0
	f.Schedule(time.Second, func() { calls++ })

	f.Advance(999 * time.Millisecond)
	assert.Equal(t, 0, calls)

	f.Advance(time.Millisecond)
	assert.Equal(t, 1, calls)

	f.Advance(time.Hour)
	assert.Equal(t, 1, calls)
	assert.Zero(t, f.Pending())
}

func TestFakeRepeatingAndCancel(t *testing.T) {
	f := clock.NewFake(epoch)
	calls := 0
	cancel := f.ScheduleRepeating(5*time.Second, func() { calls++ })

	f.Advance(16 * time.Second)
	assert.Equal(t, 3, calls)
	assert.Equal(t, epoch.Add(16*time.Second), f.Now())

	cancel()
	cancel()
	f.Advance(time.Minute)
	assert.Equal(t, 3, calls)
}

func TestFakeNowInsideCallback(t *testing.T) {
	f := clock.NewFake(epoch)
	var seen time.Time
	f.Schedule(2*time.Second, func() { seen = f.Now() })

	f.Advance(10 * time.Second)
	assert.Equal(t, epoch.Add(2*time.Second), seen)
}

func TestFakeCallbackCanReschedule(t *testing.T) {
	f := clock.NewFake(epoch)
	calls := 0
	var arm func()
	arm = func() {
		f.Schedule(time.Second, func() {
			calls++
			if calls < 3 {
				arm()
			}
		})
	}
	arm()

	f.Advance(10 * time.Second)
	assert.Equal(t, 3, calls)
}

func TestWallSchedule(t *testing.T) {
	var fired atomic.Int32
	done := make(chan struct{})
	clock.Wall().Schedule(10*time.Millisecond, func() {
		fired.Add(1)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled callback did not fire")
	}
	assert.Equal(t, int32(1), fired.Load())
}

func TestWallCancelBeforeFire(t *testing.T) {
	var fired atomic.Int32
	cancel := clock.Wall().Schedule(50*time.Millisecond, func() { fired.Add(1) })
	cancel()

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, fired.Load())
}

func TestWallRepeatingNoCallAfterCancel(t *testing.T) {
	var calls atomic.Int32
	var cancel clock.Cancel
	ready := make(chan struct{})
	cancel = clock.Wall().ScheduleRepeating(5*time.Millisecond, func() {
		<-ready
		if calls.Add(1) == 1 {
			// Let the ticker buffer another tick before cancelling.
			time.Sleep(20 * time.Millisecond)
			cancel()
		}
	})
	close(ready)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}
