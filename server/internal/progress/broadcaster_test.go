package progress

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/lucasjordaoreal/UltraDownloader/server/common"
)

type recordingObserver struct {
	mu     sync.Mutex
	events []common.ProgressEvent
	fail   bool
}

func (r *recordingObserver) Send(ev common.ProgressEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("broken pipe")
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingObserver) received() []common.ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]common.ProgressEvent(nil), r.events...)
}

func TestBroadcastReachesAllObservers(t *testing.T) {
	b := NewBroadcaster()

	first := &recordingObserver{}
	second := &recordingObserver{}
	b.Connect(first)
	b.Connect(second)

	b.Broadcast(common.ProgressEvent{Status: common.StatusDownloading})
	b.Wait()

	if len(first.received()) != 1 || len(second.received()) != 1 {
		t.Fatalf("expected 1 event each, got %d and %d",
			len(first.received()), len(second.received()))
	}
}

func TestBroadcastPreservesOrderPerObserver(t *testing.T) {
	b := NewBroadcaster()

	obs := &recordingObserver{}
	b.Connect(obs)

	for i := 0; i < 50; i++ {
		b.Broadcast(common.ProgressEvent{
			Status:   common.StatusDownloading,
			Progress: common.Percent(float64(i)),
		})
	}
	b.Wait()

	got := obs.received()
	if len(got) != 50 {
		t.Fatalf("expected 50 events, got %d", len(got))
	}
	for i, ev := range got {
		if *ev.Progress != float64(i) {
			t.Fatalf("event %d out of order: got %v", i, *ev.Progress)
		}
	}
}

func TestFailingObserverIsPruned(t *testing.T) {
	b := NewBroadcaster()

	healthy := &recordingObserver{}
	broken := &recordingObserver{fail: true}
	b.Connect(healthy)
	b.Connect(broken)

	b.Broadcast(common.ProgressEvent{Status: common.StatusDownloading})
	b.Wait()

	broken.mu.Lock()
	broken.fail = false
	broken.mu.Unlock()

	b.Broadcast(common.ProgressEvent{Status: common.StatusFinishing})
	b.Wait()

	if got := broken.received(); len(got) != 0 {
		t.Fatalf("pruned observer still received %d events", len(got))
	}
	if got := healthy.received(); len(got) != 2 {
		t.Fatalf("healthy observer expected 2 events, got %d", len(got))
	}
}

func TestDisconnectStopsDelivery(t *testing.T) {
	b := NewBroadcaster()

	obs := &recordingObserver{}
	off := b.Connect(obs)

	b.Broadcast(common.ProgressEvent{Status: common.StatusDownloading})
	b.Wait()

	off()
	off() // second disconnect is a no-op

	b.Broadcast(common.ProgressEvent{Status: common.StatusFinishing})
	b.Wait()

	if got := obs.received(); len(got) != 1 {
		t.Fatalf("expected 1 event after disconnect, got %d", len(got))
	}
}

func TestConcurrentBroadcasters(t *testing.T) {
	b := NewBroadcaster()

	obs := &recordingObserver{}
	b.Connect(obs)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				b.Broadcast(common.ProgressEvent{
					Status: fmt.Sprintf("worker-%d", w),
				})
			}
		}(w)
	}
	wg.Wait()
	b.Wait()

	if got := obs.received(); len(got) != 100 {
		t.Fatalf("expected 100 events, got %d", len(got))
	}
}
