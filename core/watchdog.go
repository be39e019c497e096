package dialogue

import (
	"sync"
	"time"
)

// watchdog fires onFire once after interval has passed without being re-armed
// or disarmed. Every arm gets a new generation; a timer that already fired
// but lost the race against arm or disarm is recognized by its stale
// generation and ignored.
type watchdog struct {
	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
	armed      bool

	onFire func(generation uint64)
}

func newWatchdog(onFire func(generation uint64)) *watchdog {
	return &watchdog{onFire: onFire}
}

func (w *watchdog) arm(interval time.Duration) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.generation++
	w.armed = true
	generation := w.generation
	w.timer = time.AfterFunc(interval, func() { w.fire(generation) })
	return generation
}

func (w *watchdog) disarm() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.generation++
	w.armed = false
}

// isArmed reports whether a timer is pending.
func (w *watchdog) isArmed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.armed
}

// isCurrent reports whether generation belongs to the latest arm and no
// arm or disarm happened since.
func (w *watchdog) isCurrent(generation uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.generation == generation
}

func (w *watchdog) fire(generation uint64) {
	w.mu.Lock()
	if generation != w.generation || !w.armed {
		w.mu.Unlock()
		return
	}
	w.armed = false
	w.timer = nil
	w.mu.Unlock()

	if w.onFire != nil {
		w.onFire(generation)
	}
}
