package client

import (
	"sync/atomic"

	"github.com/daqtools/sqlbus"
)

// Stats is a snapshot of the client's query counters. The original
// implementation wires resend_period_ms and print_stats_period_ms into a
// printer loop that was never implemented; this type is the hook a future
// printer would read from, per that open question.
type Stats struct {
	ReadsOK      uint64
	ReadsFailed  uint64
	WritesOK     uint64
	WritesFailed uint64
}

type counters struct {
	readsOK, readsFailed   atomic.Uint64
	writesOK, writesFailed atomic.Uint64
}

func (c *counters) recordSuccess(t sqlbus.QueryType) {
	if t == sqlbus.Write {
		c.writesOK.Add(1)
	} else {
		c.readsOK.Add(1)
	}
}

func (c *counters) recordFailure(t sqlbus.QueryType) {
	if t == sqlbus.Write {
		c.writesFailed.Add(1)
	} else {
		c.readsFailed.Add(1)
	}
}

func (c *counters) snapshot() Stats {
	return Stats{
		ReadsOK:      c.readsOK.Load(),
		ReadsFailed:  c.readsFailed.Load(),
		WritesOK:     c.writesOK.Load(),
		WritesFailed: c.writesFailed.Load(),
	}
}
