package dialogue

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pgregory.net/rapid"
)

func TestWatchdogFiresOncePerArm(t *testing.T) {
	fired := make(chan uint64, 4)
	w := newWatchdog(func(generation uint64) { fired <- generation })

	generation := w.arm(10 * time.Millisecond)

	select {
	case got := <-fired:
		if got != generation {
			t.Fatalf("expected generation %d, got %d", generation, got)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for watchdog to fire")
	}

	select {
	case <-fired:
		t.Fatalf("expected a single firing per arm")
	case <-time.After(30 * time.Millisecond):
	}
	if w.isArmed() {
		t.Fatalf("expected watchdog to be unarmed after firing")
	}
}

func TestWatchdogRearmPostponesFiring(t *testing.T) {
	var fires atomic.Int32
	w := newWatchdog(func(uint64) { fires.Add(1) })

	for range 5 {
		w.arm(80 * time.Millisecond)
		time.Sleep(10 * time.Millisecond)
	}
	if fires.Load() != 0 {
		t.Fatalf("expected re-arming to postpone the timer, fired %d times", fires.Load())
	}

	time.Sleep(200 * time.Millisecond)
	if fires.Load() != 1 {
		t.Fatalf("expected exactly one firing, got %d", fires.Load())
	}
}

func TestWatchdogDisarmPreventsFiring(t *testing.T) {
	var fires atomic.Int32
	w := newWatchdog(func(uint64) { fires.Add(1) })

	generation := w.arm(10 * time.Millisecond)
	w.disarm()
	if w.isCurrent(generation) {
		t.Fatalf("expected disarm to invalidate generation %d", generation)
	}

	time.Sleep(40 * time.Millisecond)
	if fires.Load() != 0 {
		t.Fatalf("expected no firing after disarm, got %d", fires.Load())
	}
}

func TestWatchdogIgnoresStaleFire(t *testing.T) {
	var fires atomic.Int32
	w := newWatchdog(func(uint64) { fires.Add(1) })

	stale := w.arm(time.Hour)
	w.arm(time.Hour)
	w.fire(stale)

	if fires.Load() != 0 {
		t.Fatalf("expected stale generation to be ignored")
	}
	w.disarm()
}

func TestWatchdogFiringsAreStaleAfterDisarmProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var (
			mu    sync.Mutex
			fires []uint64
		)
		w := newWatchdog(func(generation uint64) {
			mu.Lock()
			fires = append(fires, generation)
			mu.Unlock()
		})

		arms := 0
		steps := rapid.IntRange(1, 12).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				w.arm(time.Duration(rapid.IntRange(1, 3).Draw(t, "interval")) * time.Millisecond)
				arms++
			case 1:
				w.disarm()
			case 2:
				time.Sleep(time.Duration(rapid.IntRange(0, 2).Draw(t, "pause")) * time.Millisecond)
			}
		}

		w.disarm()
		mu.Lock()
		firedBeforeDisarm := len(fires)
		mu.Unlock()

		time.Sleep(8 * time.Millisecond)

		mu.Lock()
		defer mu.Unlock()
		// A timer already running when disarm happened may still report, but
		// its generation must be recognizable as stale.
		for _, generation := range fires[firedBeforeDisarm:] {
			if w.isCurrent(generation) {
				t.Fatalf("generation %d fired after disarm and is still current", generation)
			}
		}
		if len(fires) > arms {
			t.Fatalf("watchdog fired %d times for %d arms", len(fires), arms)
		}
		seen := map[uint64]bool{}
		for _, generation := range fires {
			if seen[generation] {
				t.Fatalf("generation %d fired twice", generation)
			}
			seen[generation] = true
		}
	})
}
