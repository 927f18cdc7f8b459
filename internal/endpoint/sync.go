package endpoint

import (
	"bufio"
	"io"

	"github.com/diggyk/fwd/internal/fwderr"
	"github.com/diggyk/fwd/internal/logger"
)

// SyncMarker is the eight-zero-byte sequence the server writes immediately
// on start, before its first Hello (spec §4.8).
var SyncMarker = [8]byte{}

// WriteSyncMarker emits the marker and flushes it. Called once by the server
// driver before any framed message is written.
func WriteSyncMarker(w io.Writer) error {
	if _, err := w.Write(SyncMarker[:]); err != nil {
		return fwderr.NewIO("write sync marker", err)
	}
	if f, ok := w.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return fwderr.NewIO("flush sync marker", err)
		}
	}
	return nil
}

// ScanSyncMarker consumes bytes from r until eight consecutive zero bytes
// have been observed, resetting the run-length count on any non-zero byte
// (the strict consecutive-reset variant spec §9 mandates for new
// implementations). Non-zero bytes encountered are written to echoTo, e.g.
// so that an arbitrary transport-provider child's banner output is still
// visible to the local user (spec §4.8).
func ScanSyncMarker(log logger.Logger, r *bufio.Reader, echoTo io.Writer) error {
	log.ILogf("waiting for synchronization marker")
	run := 0
	for run < len(SyncMarker) {
		b, err := r.ReadByte()
		if err != nil {
			return fwderr.NewIO("read sync marker", err)
		}
		if b == 0 {
			run++
			continue
		}
		run = 0
		if echoTo != nil {
			echoTo.Write([]byte{b})
		}
	}
	log.ILogf("synchronized")
	return nil
}
