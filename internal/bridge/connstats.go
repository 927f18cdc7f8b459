package bridge

import (
	"fmt"
	"sync/atomic"
)

// ConnStats tracks total and currently-open channel counts, in the style of
// the teacher's share/connstats.go.
type ConnStats struct {
	total int32
	open  int32
}

// New adds one to the total channel count and returns the new total.
func (c *ConnStats) New() int32 { return atomic.AddInt32(&c.total, 1) }

// Open adds one to the currently-open count.
func (c *ConnStats) Open() { atomic.AddInt32(&c.open, 1) }

// Close subtracts one from the currently-open count.
func (c *ConnStats) Close() { atomic.AddInt32(&c.open, -1) }

func (c *ConnStats) String() string {
	return fmt.Sprintf("[%d/%d]", atomic.LoadInt32(&c.open), atomic.LoadInt32(&c.total))
}

// Stats is the process-wide count of channels bridged by Run, total and
// currently open, surfaced in each bridge's start/stop log lines.
var Stats ConnStats
