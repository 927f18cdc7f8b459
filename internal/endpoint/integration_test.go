package endpoint

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/diggyk/fwd/internal/logger"
	"github.com/diggyk/fwd/internal/refresh"
	"github.com/diggyk/fwd/internal/wire"
)

// newHarness wires a server's transportWriter to a client's transportReader
// and vice versa with plain io.Pipe, giving each RunServer/RunClient call the
// independent io.Reader/io.Writer halves they expect.
func newHarness() (serverR io.Reader, serverW io.Writer, clientR io.Reader, clientW io.Writer, closeAll func()) {
	srIn, swOut := io.Pipe()   // client -> server
	crIn, cwOut := io.Pipe()   // server -> client
	return srIn, cwOut, crIn, swOut, func() {
		srIn.Close()
		swOut.Close()
		crIn.Close()
		cwOut.Close()
	}
}

var noPorts refresh.SourceFunc = func() ([]wire.PortDescriptor, error) { return nil, nil }

func TestClientServerHandshakeThenShutdownOnTransportClose(t *testing.T) {
	serverR, serverW, clientR, clientW, closeAll := newHarness()

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- RunServer(logger.New("srv", logger.LevelTrace), serverR, serverW, noPorts)
	}()

	clientDone := make(chan error, 1)
	go func() {
		var stderr bytes.Buffer
		clientDone <- RunClient(logger.New("cli", logger.LevelTrace), clientR, clientW, &stderr)
	}()

	// Give the handshake a moment, then sever the transport from both ends;
	// both drivers must unwind instead of hanging (spec §4.7 shutdown rule).
	time.Sleep(50 * time.Millisecond)
	closeAll()

	select {
	case err := <-serverDone:
		if err == nil {
			t.Fatal("expected RunServer to return an error once its transport closed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunServer did not shut down after transport close")
	}

	select {
	case err := <-clientDone:
		if err == nil {
			t.Fatal("expected RunClient to return an error once its transport closed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunClient did not shut down after transport close")
	}
}

func TestClientRejectsUnsupportedMajorVersion(t *testing.T) {
	pr, pw := io.Pipe()
	var stderr bytes.Buffer

	go func() {
		pw.Write(make([]byte, 8)) // sync marker
		w := wire.NewWriter(pw)
		w.Write(wire.Hello(1, 0, nil))
		pw.Close()
	}()

	err := RunClient(logger.New("cli", logger.LevelTrace), pr, io.Discard, &stderr)
	if err == nil {
		t.Fatal("expected an error rejecting the unsupported major version")
	}
}
