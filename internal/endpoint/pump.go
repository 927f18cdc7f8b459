// Package endpoint implements the two top-level endpoint drivers
// (client_main / server_main, spec §4.7), the writer pump and reader
// dispatcher that sit between them and the transport (spec §4.3, §4.4), the
// stdio synchronization marker (spec §4.8), and client-side port-announcement
// reconciliation (spec §4.6).
package endpoint

import (
	"github.com/diggyk/fwd/internal/logger"
	"github.com/diggyk/fwd/internal/wire"
)

// pumpQueueCapacity is the writer pump's inbound queue bound (spec §4.3).
const pumpQueueCapacity = 32

// writerPump is the single task with sole ownership of the transport's write
// half. Every other task enqueues frames through a wire.Sender instead of
// writing directly, which is what makes concurrent frame emission safe
// without an async lock (spec §4.3).
type writerPump struct {
	queue chan wire.Message
	done  chan struct{}
}

func newWriterPump() *writerPump {
	return &writerPump{
		queue: make(chan wire.Message, pumpQueueCapacity),
		done:  make(chan struct{}),
	}
}

// sender returns a handle other tasks use to enqueue frames.
func (p *writerPump) sender() wire.Sender {
	return wire.Sender{Queue: p.queue, Done: p.done}
}

// run drains the queue to w until the queue is closed (clean shutdown) or a
// write fails (endpoint-fatal). Its termination, in either case, closes done
// so that outstanding senders stop blocking (spec §4.3, §5).
func (p *writerPump) run(log logger.Logger, w *wire.Writer) error {
	defer close(p.done)
	for msg := range p.queue {
		if err := w.Write(msg); err != nil {
			log.DLogf("write failed: %s", err)
			return err
		}
	}
	return nil
}

// closeQueue signals the pump to finish once it has drained what's already
// enqueued. Only the driver that owns this pump's lifetime calls it, after
// the reader dispatcher has stopped producing new sends.
func (p *writerPump) closeQueue() {
	close(p.queue)
}
