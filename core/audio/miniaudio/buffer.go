package miniaudio

import "sync"

// playbackBuffer queues audio between the producer and the device callback
// and lets callers wait until everything queued has been played.
type playbackBuffer struct {
	mu      sync.Mutex
	data    []byte
	waiters []chan struct{}
}

func (b *playbackBuffer) write(audio []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = append(b.data, audio...)
}

// read fills out with queued audio and silence for whatever is missing. It
// returns the number of audio bytes copied.
func (b *playbackBuffer) read(out []byte, silence byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := copy(out, b.data)
	for i := n; i < len(out); i++ {
		out[i] = silence
	}
	b.data = b.data[n:]
	if len(b.data) == 0 {
		b.data = nil
		b.releaseLocked()
	}
	return n
}

func (b *playbackBuffer) clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = nil
	b.releaseLocked()
}

func (b *playbackBuffer) buffered() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// drained returns a channel that is closed once the buffer is empty.
func (b *playbackBuffer) drained() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan struct{})
	if len(b.data) == 0 {
		close(ch)
		return ch
	}
	b.waiters = append(b.waiters, ch)
	return ch
}

func (b *playbackBuffer) releaseLocked() {
	for _, ch := range b.waiters {
		close(ch)
	}
	b.waiters = nil
}
