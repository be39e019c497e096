package portaudio

import (
	"testing"
	"time"
)

func TestFrameQueuePadsLastFrame(t *testing.T) {
	q := newFrameQueue()
	q.push([]byte{1, 2, 3})

	frame := []byte{9, 9, 9, 9, 9, 9}
	n, ok := q.pop(frame, nil)
	if !ok || n != 3 {
		t.Fatalf("expected three bytes, got %d (ok=%v)", n, ok)
	}
	if frame[3] != 0 || frame[5] != 0 {
		t.Fatalf("expected silence padding, got %v", frame)
	}
}

func TestFrameQueueDrainsAfterPlayback(t *testing.T) {
	q := newFrameQueue()
	q.push(make([]byte, 4))
	drained := q.drained()

	n, _ := q.pop(make([]byte, 4), nil)
	select {
	case <-drained:
		t.Fatalf("expected audio being played to hold the drain")
	default:
	}

	q.played(n)
	select {
	case <-drained:
	default:
		t.Fatalf("expected drain once the frame was played")
	}
}

func TestFrameQueuePopStopsWhenClosed(t *testing.T) {
	q := newFrameQueue()
	closed := make(chan struct{})

	result := make(chan bool, 1)
	go func() {
		_, ok := q.pop(make([]byte, 4), closed)
		result <- ok
	}()

	close(closed)
	select {
	case ok := <-result:
		if ok {
			t.Fatalf("expected pop to report closed")
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for pop to return")
	}
}
