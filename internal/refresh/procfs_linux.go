//go:build linux

package refresh

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/diggyk/fwd/internal/wire"
)

// ProcFS is the refresh Source that scans /proc/net/tcp{,6} for sockets in
// LISTEN state and resolves their owning process name via /proc/<pid>/fd
// inode matching, the concrete realization spec §1 calls "scanning an OS
// procfs" and leaves as an external collaborator's implementation detail.
type ProcFS struct{}

// NewProcFS returns the default Linux procfs-backed refresh source.
func NewProcFS() *ProcFS { return &ProcFS{} }

const tcpListenState = "0A"

func (p *ProcFS) Entries() ([]wire.PortDescriptor, error) {
	listeningInodes := map[string]uint16{}
	for _, path := range []string{"/proc/net/tcp", "/proc/net/tcp6"} {
		if err := scanListeners(path, listeningInodes); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("scanning %s: %w", path, err)
		}
	}
	if len(listeningInodes) == 0 {
		return nil, nil
	}

	inodeToName := resolveProcessNames(listeningInodes)

	var out []wire.PortDescriptor
	for inode, port := range listeningInodes {
		desc := inodeToName[inode]
		if desc == "" {
			desc = fmt.Sprintf("port %d", port)
		}
		out = append(out, wire.PortDescriptor{Port: port, Desc: desc})
	}
	return out, nil
}

// scanListeners parses a /proc/net/tcp{,6}-formatted file, adding
// inode -> port entries for every socket in LISTEN state.
func scanListeners(path string, out map[string]uint16) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Scan() // header line
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		// sl local_address rem_address st tx_queue:rx_queue tr:tm->when retrnsmt uid timeout inode
		if len(fields) < 10 {
			continue
		}
		if fields[3] != tcpListenState {
			continue
		}
		local := fields[1]
		parts := strings.Split(local, ":")
		if len(parts) != 2 {
			continue
		}
		portVal, err := strconv.ParseUint(parts[1], 16, 16)
		if err != nil {
			continue
		}
		inode := fields[9]
		if inode == "" || inode == "0" {
			continue
		}
		out[inode] = uint16(portVal)
	}
	return scanner.Err()
}

// resolveProcessNames maps each socket inode of interest to the comm name of
// the process holding that fd, by walking /proc/<pid>/fd/*.
func resolveProcessNames(wanted map[string]uint16) map[string]string {
	result := make(map[string]string, len(wanted))
	procEntries, err := os.ReadDir("/proc")
	if err != nil {
		return result
	}
	remaining := len(wanted)
	for _, pe := range procEntries {
		if remaining == 0 {
			break
		}
		pid := pe.Name()
		if _, err := strconv.Atoi(pid); err != nil {
			continue
		}
		fdDir := filepath.Join("/proc", pid, "fd")
		fds, err := os.ReadDir(fdDir)
		if err != nil {
			continue
		}
		for _, fd := range fds {
			link, err := os.Readlink(filepath.Join(fdDir, fd.Name()))
			if err != nil {
				continue
			}
			inode, ok := socketInode(link)
			if !ok {
				continue
			}
			if _, ok := wanted[inode]; !ok {
				continue
			}
			if _, already := result[inode]; already {
				continue
			}
			comm, err := os.ReadFile(filepath.Join("/proc", pid, "comm"))
			if err == nil {
				result[inode] = strings.TrimSpace(string(comm))
				remaining--
			}
		}
	}
	return result
}

func socketInode(link string) (string, bool) {
	const prefix = "socket:["
	if !strings.HasPrefix(link, prefix) || !strings.HasSuffix(link, "]") {
		return "", false
	}
	return link[len(prefix) : len(link)-1], true
}
