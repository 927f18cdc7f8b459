//go:build !linux

package refresh

import (
	"fmt"

	"github.com/diggyk/fwd/internal/wire"
)

// ProcFS is unavailable outside Linux; there is no portable procfs to scan.
type ProcFS struct{}

// NewProcFS returns a ProcFS source that always reports an error, so callers
// fall back to an empty list with a logged warning (spec §6).
func NewProcFS() *ProcFS { return &ProcFS{} }

func (p *ProcFS) Entries() ([]wire.PortDescriptor, error) {
	return nil, fmt.Errorf("procfs refresh source is not supported on this platform")
}
