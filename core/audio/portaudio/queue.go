package portaudio

import "sync"

// frameQueue hands queued playback audio to the output loop one frame at a
// time.
type frameQueue struct {
	mu      sync.Mutex
	data    []byte
	playing int
	ready   chan struct{}
	waiters []chan struct{}
}

func newFrameQueue() *frameQueue {
	return &frameQueue{ready: make(chan struct{}, 1)}
}

func (q *frameQueue) push(audio []byte) {
	q.mu.Lock()
	q.data = append(q.data, audio...)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// pop fills frame with the next chunk of audio, padding with silence, and
// blocks until audio is available or closed is done.
func (q *frameQueue) pop(frame []byte, closed <-chan struct{}) (int, bool) {
	for {
		q.mu.Lock()
		if len(q.data) > 0 {
			n := copy(frame, q.data)
			clear(frame[n:])
			q.data = q.data[n:]
			q.playing += n
			q.mu.Unlock()
			return n, true
		}
		q.mu.Unlock()

		select {
		case <-q.ready:
		case <-closed:
			return 0, false
		}
	}
}

// played marks n bytes handed out by pop as written to the device.
func (q *frameQueue) played(n int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.playing -= n
	if q.playing < 0 {
		q.playing = 0
	}
	q.releaseIfEmptyLocked()
}

func (q *frameQueue) clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.data = nil
	q.playing = 0
	q.releaseIfEmptyLocked()
}

func (q *frameQueue) drained() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	ch := make(chan struct{})
	if len(q.data) == 0 && q.playing == 0 {
		close(ch)
		return ch
	}
	q.waiters = append(q.waiters, ch)
	return ch
}

func (q *frameQueue) releaseIfEmptyLocked() {
	if len(q.data) > 0 || q.playing > 0 {
		return
	}
	for _, ch := range q.waiters {
		close(ch)
	}
	q.waiters = nil
}
