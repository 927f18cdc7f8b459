// Package bridge implements the per-channel task that copies bytes between a
// local TCP socket and the channel's inbound data queue, framing outbound
// bytes as Data messages (spec §4.5).
package bridge

import (
	"io"
	"net"
	"sync"

	"github.com/jpillora/sizestr"

	"github.com/diggyk/fwd/internal/logger"
	"github.com/diggyk/fwd/internal/wire"
)

// halfCloser is implemented by *net.TCPConn and *net.UnixConn; sockets that
// don't implement it are not shut down on the write-side path and stay open
// until Run closes them once both directions have finished.
type halfCloser interface {
	CloseWrite() error
}

// Run copies bytes bidirectionally between sock and the channel identified by
// channel until both directions complete, then returns. It does not remove
// the channel's connection-table entry; per spec §4.5 step 5 that is the
// reader dispatcher's Close handler's job (Remove is idempotent, so this is
// safe regardless of ordering).
//
//   - socket -> wire: reads of up to wire.MaxDataPayload are framed as
//     Data(channel, bytes) and handed to send. On EOF or read error, a single
//     Close(channel) is sent and this direction stops.
//   - wire -> socket: payloads dequeued from data are written to sock in
//     order. When closed fires, any already-buffered payloads are drained
//     before the write side of sock is half-closed and this direction stops.
func Run(log logger.Logger, channel uint64, sock net.Conn, data <-chan []byte, closed <-chan struct{}, send wire.Sender) {
	num := Stats.New()
	Stats.Open()
	log = log.Fork("bridge#%d(channel=%d)", num, channel)
	log.DLogf("starting, %s channels bridged so far", Stats.String())

	var sent, received int64
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		sent = socketToWire(log, channel, sock, send)
	}()
	go func() {
		defer wg.Done()
		received = wireToSocket(log, sock, data, closed)
	}()

	wg.Wait()
	Stats.Close()
	log.DLogf("done (sent %s, received %s), %s channels bridged so far", sizestr.ToString(sent), sizestr.ToString(received), Stats.String())
	sock.Close()
}

func socketToWire(log logger.Logger, channel uint64, sock net.Conn, send wire.Sender) int64 {
	var total int64
	buf := make([]byte, wire.MaxDataPayload)
	for {
		n, err := sock.Read(buf)
		if n > 0 {
			payload := make([]byte, n)
			copy(payload, buf[:n])
			total += int64(n)
			send.Send(wire.Data(channel, payload))
		}
		if err != nil {
			if err != io.EOF {
				log.DLogf("socket read error: %s", err)
			}
			send.Send(wire.Close(channel))
			return total
		}
	}
}

func wireToSocket(log logger.Logger, sock net.Conn, data <-chan []byte, closed <-chan struct{}) int64 {
	var total int64
	write := func(payload []byte) bool {
		if len(payload) == 0 {
			return true
		}
		if _, err := sock.Write(payload); err != nil {
			log.DLogf("socket write error: %s", err)
			return false
		}
		total += int64(len(payload))
		return true
	}

loop:
	for {
		select {
		case payload := <-data:
			if !write(payload) {
				break loop
			}
		case <-closed:
			break loop
		}
	}

	// Drain anything already buffered before closed fired.
drain:
	for {
		select {
		case payload := <-data:
			if !write(payload) {
				break drain
			}
		default:
			break drain
		}
	}

	if hc, ok := sock.(halfCloser); ok {
		hc.CloseWrite()
	}
	return total
}
