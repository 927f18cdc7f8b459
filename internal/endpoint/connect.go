package endpoint

import (
	"net"

	"github.com/diggyk/fwd/internal/bridge"
	"github.com/diggyk/fwd/internal/conntable"
	"github.com/diggyk/fwd/internal/logger"
	"github.com/diggyk/fwd/internal/wire"
)

// handleLocalAccept implements the client-initiated per-local-accept sequence
// of spec §4.5: allocate a channel, request a Connect, wait for Connected (or
// for the channel to be torn down before that ever arrives — e.g. because
// the server's dial failed and it sent an explicit Close per SPEC_FULL.md
// §4), then run the bridge.
func handleLocalAccept(log logger.Logger, table *conntable.Table, port uint16, send wire.Sender, sock net.Conn) {
	defer sock.Close()

	channel, connected, data, closed := table.Alloc()
	send.Send(wire.Connect(channel, port))

	select {
	case <-connected:
	case <-closed:
		log.WLogf("channel %d: remote could not connect to port %d", channel, port)
		return
	}

	bridge.Run(log, channel, sock, data, closed, send)
}
