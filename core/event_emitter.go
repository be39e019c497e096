package dialogue

import (
	"sync"

	"github.com/koscakluka/ema-companion/core/events"
)

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

// eventNotifier hands events to an observer in order on its own goroutine.
// emit never blocks, so observers may call back into the controller.
type eventNotifier struct {
	emit eventEmitter

	mu      sync.Mutex
	pending []events.Event
	closed  bool
	wake    chan struct{}
	done    chan struct{}
}

func newEventNotifier(emit eventEmitter) *eventNotifier {
	if emit == nil {
		emit = noopEventEmitter
	}
	notifier := &eventNotifier{
		emit: emit,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go notifier.run()
	return notifier
}

func (n *eventNotifier) publish(event events.Event) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.pending = append(n.pending, event)
	n.mu.Unlock()

	select {
	case n.wake <- struct{}{}:
	default:
	}
}

// close stops accepting events and returns once everything published so far
// has been handed to the observer.
func (n *eventNotifier) close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		<-n.done
		return
	}
	n.closed = true
	n.mu.Unlock()

	select {
	case n.wake <- struct{}{}:
	default:
	}
	<-n.done
}

func (n *eventNotifier) run() {
	defer close(n.done)

	for range n.wake {
		for {
			n.mu.Lock()
			batch := n.pending
			n.pending = nil
			closed := n.closed
			n.mu.Unlock()

			for _, event := range batch {
				n.emit(event)
			}
			if len(batch) == 0 {
				if closed {
					return
				}
				break
			}
		}
	}
}
