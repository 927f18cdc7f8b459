package wire

// Sender is a handle onto the writer pump's inbound message queue (spec
// §4.3). Every task other than the pump itself enqueues outbound frames
// through a Sender instead of writing to the transport directly, which is
// what makes concurrent frame emission safe without an explicit lock.
//
// Send never blocks past the pump's shutdown: once Done is closed (the pump
// has stopped, win or lose) further sends are silently discarded rather than
// deadlocking the caller, matching spec §5's "further enqueues fail silently"
// rule.
type Sender struct {
	Queue chan<- Message
	Done  <-chan struct{}
}

// Send enqueues msg, or discards it if the pump has already stopped or the
// driver has already closed the queue.
func (s Sender) Send(msg Message) {
	// A send on the closed queue panics; recovering here discards msg instead.
	defer func() { recover() }()
	select {
	case s.Queue <- msg:
	case <-s.Done:
	}
}
