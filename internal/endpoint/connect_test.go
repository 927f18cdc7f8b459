package endpoint

import (
	"net"
	"testing"
	"time"

	"github.com/diggyk/fwd/internal/conntable"
	"github.com/diggyk/fwd/internal/logger"
	"github.com/diggyk/fwd/internal/wire"
)

// TestHandleLocalAcceptUnblocksOnCloseWithoutConnected exercises the dial-
// failure resolution SPEC_FULL.md makes to the original source's silent
// drop: a Close for a channel that never receives Connected must still
// release the waiting local accept instead of hanging it forever.
func TestHandleLocalAcceptUnblocksOnCloseWithoutConnected(t *testing.T) {
	table := conntable.New()
	sock, _ := net.Pipe()

	queue := make(chan wire.Message, 8)
	done := make(chan struct{})
	send := wire.Sender{Queue: queue, Done: done}

	finished := make(chan struct{})
	go func() {
		handleLocalAccept(logger.New("test", logger.LevelTrace), table, 80, send, sock)
		close(finished)
	}()

	msg := <-queue
	if msg.Tag != wire.TagConnect || msg.Port != 80 {
		t.Fatalf("expected Connect(port=80), got %+v", msg)
	}
	table.Remove(msg.Channel)

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("handleLocalAccept did not return after Close-without-Connected")
	}
}
