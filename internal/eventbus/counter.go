package eventbus

import "sync/atomic"

// atomicCounter is a tiny wrapper around atomic.Uint64 used for the
// per-subscription drop counter (spec §4.1: "queue overflow is reported as a
// per-subscription counter").
type atomicCounter struct {
	v atomic.Uint64
}

func (c *atomicCounter) add(n uint64) {
	c.v.Add(n)
}

func (c *atomicCounter) load() uint64 {
	return c.v.Load()
}
