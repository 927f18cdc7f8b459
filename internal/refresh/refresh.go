// Package refresh implements the server-side refresh source contract
// (spec §6): "a function returning a (possibly empty) list of (port,
// description) tuples. Errors yield an empty list and a warning."
package refresh

import "github.com/diggyk/fwd/internal/wire"

// Source produces the current list of locally reachable TCP services. A
// failing Source should be treated by the caller per spec §6/§7: log a
// warning and proceed with an empty list rather than propagating the error
// as a fatal one (a RefreshSource error never terminates the endpoint).
type Source interface {
	Entries() ([]wire.PortDescriptor, error)
}

// SourceFunc adapts a plain function to a Source.
type SourceFunc func() ([]wire.PortDescriptor, error)

func (f SourceFunc) Entries() ([]wire.PortDescriptor, error) { return f() }
