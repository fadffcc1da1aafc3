package progress

import (
	"log/slog"
	"sync"

	"github.com/asaskevich/EventBus"
	"github.com/lucasjordaoreal/UltraDownloader/server/common"
)

const topic = "progress"

// Observer receives progress events. A Send error marks the observer dead
// and it is pruned from the broadcaster.
type Observer interface {
	Send(common.ProgressEvent) error
}

// Broadcaster fans progress events out to every connected observer.
// Workers call Broadcast from any goroutine; delivery to each observer is
// serialized on its own bus handler, so events arrive in emission order
// per observer while emitters never block on a slow one.
type Broadcaster struct {
	bus EventBus.Bus

	mu       sync.Mutex
	handlers map[Observer]func(common.ProgressEvent)
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		bus:      EventBus.New(),
		handlers: make(map[Observer]func(common.ProgressEvent)),
	}
}

// Connect registers an observer and returns its disconnect function.
// Disconnecting twice is a no-op.
func (b *Broadcaster) Connect(o Observer) func() {
	handler := func(ev common.ProgressEvent) {
		if err := o.Send(ev); err != nil {
			slog.Warn("dropping progress observer", slog.Any("err", err))
			b.disconnect(o)
		}
	}

	b.mu.Lock()
	b.handlers[o] = handler
	b.mu.Unlock()

	if err := b.bus.SubscribeAsync(topic, handler, true); err != nil {
		slog.Error("failed to subscribe observer", slog.Any("err", err))
	}

	return func() { b.disconnect(o) }
}

func (b *Broadcaster) disconnect(o Observer) {
	b.mu.Lock()
	handler, ok := b.handlers[o]
	if ok {
		delete(b.handlers, o)
	}
	b.mu.Unlock()

	if ok {
		// best effort: the bus may already have dropped it
		_ = b.bus.Unsubscribe(topic, handler)
	}
}

// Broadcast delivers the event to all connected observers, at most once
// each. Callable from any goroutine; never fails the caller.
func (b *Broadcaster) Broadcast(ev common.ProgressEvent) {
	b.bus.Publish(topic, ev)
}

// Wait blocks until every in-flight delivery has finished. Used on
// shutdown and in tests.
func (b *Broadcaster) Wait() {
	b.bus.WaitAsync()
}
