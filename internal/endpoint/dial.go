package endpoint

import (
	"fmt"
	"net"
	"time"

	"github.com/jpillora/backoff"

	"github.com/diggyk/fwd/internal/bridge"
	"github.com/diggyk/fwd/internal/conntable"
	"github.com/diggyk/fwd/internal/logger"
	"github.com/diggyk/fwd/internal/wire"
)

// handleInboundConnect implements the server-initiated sequence of spec
// §4.5: dial loopback TCP to the requested port, insert the table entry,
// announce Connected, and run the bridge.
//
// SPEC_FULL.md §4 resolves spec §9's open question: a dial failure (even
// after the bounded retry below) emits an explicit Close(channel) instead of
// silently dropping the channel, so the client's handleLocalAccept does not
// wait on the connected notifier forever.
func handleInboundConnect(log logger.Logger, table *conntable.Table, send wire.Sender, channel uint64, port uint16) {
	sock, err := dialWithRetry(log, port)
	if err != nil {
		log.WLogf("channel %d: dial to port %d failed: %s", channel, port, err)
		send.Send(wire.Close(channel))
		return
	}

	data, closed := table.Add(channel)
	send.Send(wire.Connected(channel))
	bridge.Run(log, channel, sock, data, closed, send)
}

// dialWithRetry absorbs a transient dial failure (e.g. the target service is
// still finishing its own listen() setup) with a few bounded backoff-spaced
// attempts (SPEC_FULL.md §3.2) before giving up.
func dialWithRetry(log logger.Logger, port uint16) (net.Conn, error) {
	b := &backoff.Backoff{Min: 20 * time.Millisecond, Max: 500 * time.Millisecond, Factor: 2, Jitter: true}
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		log.DLogf("dial attempt %d to %s failed: %s", attempt+1, addr, err)
		if attempt < 2 {
			time.Sleep(b.Duration())
		}
	}
	return nil, lastErr
}
