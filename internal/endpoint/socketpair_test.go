package endpoint

import (
	"testing"
	"time"

	"github.com/prep/socketpair"
)

// TestSocketpairEchoesBothDirections is a narrow sanity check of the
// connected-socket-pair transport the teacher's repo chose for its own
// in-process endpoint tests; the other tests in this package use io.Pipe
// directly since RunClient/RunServer only need separate reader/writer
// halves. In production the spawned transport child's stdio is a pair of
// OS pipes from os/exec, not a socketpair.
func TestSocketpairEchoesBothDirections(t *testing.T) {
	a, b, err := socketpair.New("unix")
	if err != nil {
		t.Fatalf("socketpair.New: %s", err)
	}
	defer a.Close()
	defer b.Close()

	go func() {
		a.Write([]byte("ping"))
	}()

	buf := make([]byte, 4)
	b.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := b.Read(buf)
	if err != nil {
		t.Fatalf("Read: %s", err)
	}
	if string(buf[:n]) != "ping" {
		t.Fatalf("expected %q, got %q", "ping", buf[:n])
	}
}
