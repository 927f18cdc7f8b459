package endpoint

import (
	"bufio"
	"io"

	"github.com/diggyk/fwd/internal/conntable"
	"github.com/diggyk/fwd/internal/fwderr"
	"github.com/diggyk/fwd/internal/logger"
	"github.com/diggyk/fwd/internal/wire"
)

// MaxSupportedMinor is the highest minor version of protocol major 0 this
// build understands (spec §3: "reject a remote with major != 0 or minor > 1").
const MaxSupportedMinor = 1

// RunClient drives the client endpoint end to end against transportReader
// and transportWriter — the stdout/stdin pipes of the spawned transport
// child (spec §6). It performs the stdio synchronization scan, the
// handshake, and then the reader-dispatch/writer-pump session (spec §4.7).
func RunClient(log logger.Logger, transportReader io.Reader, transportWriter io.Writer, stderr io.Writer) error {
	log = log.Fork("client")
	br := bufio.NewReader(transportReader)
	if err := ScanSyncMarker(log, br, stderr); err != nil {
		return err
	}

	r := wire.NewReader(br)
	msg, err := r.Read()
	if err != nil {
		return err
	}
	if msg.Tag != wire.TagHello {
		return fwderr.NewProtocol("client", "expected Hello as first message")
	}
	if msg.Major != 0 || msg.Minor > MaxSupportedMinor {
		return fwderr.ProtocolVersion
	}
	log.ILogf("handshake complete (peer version %d.%d)", msg.Major, msg.Minor)

	table := conntable.New()
	listeners := newListenerSet()
	w := wire.NewWriter(transportWriter)

	return runDriver(log, w, func(send wire.Sender) error {
		send.Send(wire.Refresh())
		return clientDispatchLoop(log, r, table, listeners, send)
	})
}

func clientDispatchLoop(log logger.Logger, r *wire.Reader, table *conntable.Table, listeners *listenerSet, send wire.Sender) error {
	log.ILogf("processing packets")
	for {
		msg, err := r.Read()
		if err != nil {
			return err
		}

		switch msg.Tag {
		case wire.TagPing:
			// ignored
		case wire.TagHello:
			return fwderr.NewProtocol("client", "Hello received after handshake")
		case wire.TagRefresh:
			return fwderr.NewProtocol("client", "Refresh is client-to-server only")
		case wire.TagConnect:
			return fwderr.NewProtocol("client", "Connect is client-to-server only")
		case wire.TagConnected:
			go table.Connected(msg.Channel)
		case wire.TagClose:
			go table.Remove(msg.Channel)
		case wire.TagData:
			go table.Receive(msg.Channel, msg.Data)
		case wire.TagPorts:
			log.ILogf("the following ports are available:")
			for _, p := range msg.Ports {
				log.ILogf("  %d: %s", p.Port, p.Desc)
			}
			listeners.Reconcile(log, table, send, msg.Ports)
		default:
			return fwderr.NewProtocol("client", "unsupported message kind")
		}
	}
}
