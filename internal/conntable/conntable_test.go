package conntable

import (
	"sync"
	"testing"
	"time"
)

func TestAllocMonotonicNeverReused(t *testing.T) {
	tbl := New()
	seen := map[uint64]bool{}
	var maxID uint64
	for i := 0; i < 100; i++ {
		id, _, _, _ := tbl.Alloc()
		if seen[id] {
			t.Fatalf("id %d reused", id)
		}
		seen[id] = true
		if id > maxID || i == 0 {
			maxID = id
		}
	}
	if tbl.nextID <= maxID {
		t.Fatalf("next_id %d not strictly greater than max allocated %d", tbl.nextID, maxID)
	}
}

func TestConnectedFiresAtMostOnce(t *testing.T) {
	tbl := New()
	id, connected, _, _ := tbl.Alloc()
	tbl.Connected(id)
	select {
	case <-connected:
	case <-time.After(time.Second):
		t.Fatal("notifier did not fire")
	}
	// second call must not panic or double-send
	tbl.Connected(id)
}

func TestConnectedNoEntryIsNoOp(t *testing.T) {
	tbl := New()
	tbl.Connected(999) // must not panic
}

func TestRemoveIdempotent(t *testing.T) {
	tbl := New()
	tbl.Add(5)
	tbl.Remove(5)
	tbl.Remove(5) // idempotent, must not panic
}

func TestRemoveAbsentIsNoOp(t *testing.T) {
	tbl := New()
	tbl.Remove(42) // never allocated; must not panic
}

func TestReceiveDropsForUnknownChannel(t *testing.T) {
	tbl := New()
	tbl.Receive(123, []byte("x")) // must not block or panic
}

func TestReceiveDeliversToDataQueue(t *testing.T) {
	tbl := New()
	data, _ := tbl.Add(7)
	tbl.Receive(7, []byte("hello"))
	select {
	case payload := <-data:
		if string(payload) != "hello" {
			t.Fatalf("got %q", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("no payload delivered")
	}
}

func TestReceiveUnblocksOnConcurrentRemove(t *testing.T) {
	tbl := New()
	data, closed := tbl.Add(9)
	_ = data
	// Fill the queue so Receive would otherwise block.
	for i := 0; i < DataQueueCapacity; i++ {
		tbl.Receive(9, []byte{byte(i)})
	}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		tbl.Receive(9, []byte("overflow"))
	}()
	time.Sleep(10 * time.Millisecond)
	tbl.Remove(9)
	select {
	case <-closed:
	default:
		t.Fatal("closed signal not fired")
	}
	wg.Wait() // Receive must have returned instead of blocking forever
}

func TestAddReplacesExistingEntry(t *testing.T) {
	tbl := New()
	_, closed1 := tbl.Add(1)
	_, _ = tbl.Add(1)
	select {
	case <-closed1:
	case <-time.After(time.Second):
		t.Fatal("prior entry's closed signal did not fire when replaced")
	}
}
