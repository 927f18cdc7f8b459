package endpoint

import (
	"io"

	"github.com/diggyk/fwd/internal/conntable"
	"github.com/diggyk/fwd/internal/fwderr"
	"github.com/diggyk/fwd/internal/logger"
	"github.com/diggyk/fwd/internal/refresh"
	"github.com/diggyk/fwd/internal/wire"
)

// flusher is implemented by *bufio.Writer; RunServer flushes only after
// writing the sync marker. Hello and every later frame are written through
// wire.Writer, which writes straight to transportWriter and never flushes it.
type flusher interface {
	Flush() error
}

// RunServer drives the server endpoint end to end. It writes the stdio
// synchronization marker, then Hello, then runs the reader-dispatch/writer-
// pump session (spec §4.7, §4.8).
func RunServer(log logger.Logger, transportReader io.Reader, transportWriter io.Writer, source refresh.Source) error {
	log = log.Fork("server")

	if err := WriteSyncMarker(transportWriter); err != nil {
		return err
	}
	if f, ok := transportWriter.(flusher); ok {
		f.Flush()
	}

	w := wire.NewWriter(transportWriter)
	if err := w.Write(wire.Hello(0, MaxSupportedMinor, nil)); err != nil {
		return err
	}

	table := conntable.New()
	r := wire.NewReader(transportReader)

	return runDriver(log, w, func(send wire.Sender) error {
		return serverDispatchLoop(log, r, table, send, source)
	})
}

func serverDispatchLoop(log logger.Logger, r *wire.Reader, table *conntable.Table, send wire.Sender, source refresh.Source) error {
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
			return fwderr.NewProtocol("server", "Hello is never expected here")
		case wire.TagPorts:
			return fwderr.NewProtocol("server", "Ports is server-to-client only")
		case wire.TagConnected:
			return fwderr.NewProtocol("server", "Connected is server-to-client only")
		case wire.TagConnect:
			channel, port := msg.Channel, msg.Port
			go handleInboundConnect(log, table, send, channel, port)
		case wire.TagClose:
			go table.Remove(msg.Channel)
		case wire.TagData:
			go table.Receive(msg.Channel, msg.Data)
		case wire.TagRefresh:
			go handleRefresh(log, send, source)
		default:
			return fwderr.NewProtocol("server", "unsupported message kind")
		}
	}
}

func handleRefresh(log logger.Logger, send wire.Sender, source refresh.Source) {
	ports, err := source.Entries()
	if err != nil {
		log.WLogf("refresh source error, reporting empty list: %s", err)
		ports = nil
	}
	send.Send(wire.PortsMsg(ports))
}
