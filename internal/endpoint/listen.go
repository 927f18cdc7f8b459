package endpoint

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/jpillora/backoff"

	"github.com/diggyk/fwd/internal/conntable"
	"github.com/diggyk/fwd/internal/logger"
	"github.com/diggyk/fwd/internal/wire"
)

// listenerEntry tracks one client-side port listener: stop is closed by
// reconciliation to request shutdown; done is closed by the listener task
// itself once it has actually exited, whether because stop fired or because
// bind/accept failed terminally.
type listenerEntry struct {
	stop chan struct{}
	done chan struct{}
}

func (e *listenerEntry) alive() bool {
	select {
	case <-e.done:
		return false
	default:
		return true
	}
}

// listenerSet is the client's port-announcement reconciliation state (spec
// §3 "Port announcement state (client)", §4.6).
type listenerSet struct {
	mu        sync.Mutex
	listeners map[uint16]*listenerEntry
}

func newListenerSet() *listenerSet {
	return &listenerSet{listeners: make(map[uint16]*listenerEntry)}
}

// Reconcile processes one Ports announcement: existing live listeners for
// announced ports are kept as-is; new listeners are spawned for ports with
// no live listener; listeners for ports no longer announced are stopped.
func (s *listenerSet) Reconcile(log logger.Logger, table *conntable.Table, send wire.Sender, ports []wire.PortDescriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[uint16]*listenerEntry, len(ports))
	for _, p := range ports {
		if existing, ok := s.listeners[p.Port]; ok && existing.alive() {
			next[p.Port] = existing
			continue
		}
		entry := &listenerEntry{stop: make(chan struct{}), done: make(chan struct{})}
		next[p.Port] = entry
		go runListener(log, table, send, p, entry)
	}

	for port, entry := range s.listeners {
		if _, keep := next[port]; !keep {
			close(entry.stop)
		}
	}
	s.listeners = next
}

// runListener binds to 127.0.0.1:<port> (spec §6 bind policy: loopback IPv4
// only) and accepts connections until the stop signal fires or accept fails,
// dispatching each accept to handleLocalAccept. A bind or accept error
// terminates this listener and is logged; it is never fatal to the endpoint
// (spec §4.6).
func runListener(log logger.Logger, table *conntable.Table, send wire.Sender, p wire.PortDescriptor, entry *listenerEntry) {
	defer close(entry.done)
	log = log.Fork("listener(port=%d, %s)", p.Port, p.Desc)

	ln, err := bindWithRetry(log, p.Port)
	if err != nil {
		log.WLogf("giving up on bind: %s", err)
		return
	}
	defer ln.Close()

	go func() {
		<-entry.stop
		ln.Close()
	}()

	log.ILogf("listening")
	for {
		sock, err := ln.Accept()
		if err != nil {
			select {
			case <-entry.stop:
				log.DLogf("stopped")
			default:
				log.WLogf("accept failed, listener exiting: %s", err)
			}
			return
		}
		go handleLocalAccept(log, table, p.Port, send, sock)
	}
}

// bindWithRetry absorbs a transient bind failure (e.g. a just-dropped
// listener's port briefly unavailable) with a few bounded backoff-spaced
// attempts before giving up; this is per-listener resilience, not the
// forbidden session-level reconnect (spec Non-goals; SPEC_FULL.md §3.2).
func bindWithRetry(log logger.Logger, port uint16) (net.Listener, error) {
	b := &backoff.Backoff{Min: 20 * time.Millisecond, Max: 500 * time.Millisecond, Factor: 2, Jitter: true}
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	var lastErr error
	for attempt := 0; attempt < 5; attempt++ {
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return ln, nil
		}
		lastErr = err
		log.DLogf("bind attempt %d failed: %s", attempt+1, err)
		time.Sleep(b.Duration())
	}
	return nil, lastErr
}
