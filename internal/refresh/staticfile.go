package refresh

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/diggyk/fwd/internal/logger"
	"github.com/diggyk/fwd/internal/wire"
)

// StaticFile is a refresh Source backed by a flat text file of
// "<port>:<description>" lines, one per service. It watches the file with
// fsnotify and re-parses it on write, caching the last-good parse so a
// transient read error (e.g. a half-written file mid-save) doesn't surface
// as a refresh failure.
type StaticFile struct {
	log logger.Logger
	path string

	mu     sync.Mutex
	cached []wire.PortDescriptor
}

// NewStaticFile creates a StaticFile source for path, performs an initial
// parse, and starts a background watcher that reloads on every write event.
// The watcher goroutine exits when the file is removed or the process exits;
// there is no explicit Close because the process owns it for its lifetime.
func NewStaticFile(log logger.Logger, path string) (*StaticFile, error) {
	log = log.Fork("staticfile-refresh(%s)", path)
	s := &StaticFile{log: log, path: path}
	if err := s.reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.WLogf("fsnotify unavailable, live-reload disabled: %s", err)
		return s, nil
	}
	if err := watcher.Add(path); err != nil {
		log.WLogf("could not watch %s, live-reload disabled: %s", path, err)
		watcher.Close()
		return s, nil
	}
	go s.watch(watcher)
	return s, nil
}

func (s *StaticFile) watch(watcher *fsnotify.Watcher) {
	defer watcher.Close()
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Remove != 0 {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := s.reload(); err != nil {
				s.log.WLogf("reload failed, keeping prior list: %s", err)
				continue
			}
			s.log.ILogf("refresh source reloaded")
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.WLogf("watcher error: %s", err)
		}
	}
}

func (s *StaticFile) reload() error {
	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	defer f.Close()

	var entries []wire.PortDescriptor
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		port, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 16)
		if err != nil {
			continue
		}
		desc := ""
		if len(parts) == 2 {
			desc = strings.TrimSpace(parts[1])
		}
		entries = append(entries, wire.PortDescriptor{Port: uint16(port), Desc: desc})
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.cached = entries
	s.mu.Unlock()
	return nil
}

func (s *StaticFile) Entries() ([]wire.PortDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]wire.PortDescriptor, len(s.cached))
	copy(out, s.cached)
	return out, nil
}
