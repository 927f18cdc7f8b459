package endpoint

import (
	"github.com/diggyk/fwd/internal/logger"
	"github.com/diggyk/fwd/internal/wire"
)

// runDriver starts the writer pump and a caller-supplied reader dispatch loop
// concurrently, and implements spec §4.7 step 5's shutdown rule: when either
// completes, the other is still awaited, but the first error encountered
// (from whichever side hits one first) is what gets returned; a later, or
// simultaneous, clean completion on the other side does not mask it.
func runDriver(log logger.Logger, w *wire.Writer, dispatch func(send wire.Sender) error) error {
	pump := newWriterPump()
	send := pump.sender()

	pumpErr := make(chan error, 1)
	go func() {
		pumpErr <- pump.run(log.Fork("writer-pump"), w)
	}()

	readErr := make(chan error, 1)
	go func() {
		err := dispatch(send)
		pump.closeQueue()
		readErr <- err
	}()

	var doneReading, doneWriting bool
	var firstErr error
	for !doneReading || !doneWriting {
		select {
		case err := <-pumpErr:
			pumpErr = nil
			doneWriting = true
			if err != nil && firstErr == nil {
				firstErr = err
			}
		case err := <-readErr:
			readErr = nil
			doneReading = true
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
