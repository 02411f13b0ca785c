package wheel

import (
	"math"
	"math/bits"
)

// Cursor walks a wheel's candidate sequence: period*block + survivor for
// block = start/period, start/period+1, ... and survivors in ascending order,
// skipping values below start.
//
// A Cursor is owned by one consumer and is not safe for concurrent use.
type Cursor struct {
	period    uint64
	survivors []uint64 // read-only, shared with the wheel
	start     uint64

	block uint64
	index int
	done  bool
}

// Candidates returns a fresh cursor positioned before the first candidate >= start.
func (w *Wheel) Candidates(start uint64) *Cursor {
	return &Cursor{
		period:    w.period,
		survivors: w.survivors,
		start:     start,
		block:     start / w.period,
		done:      len(w.survivors) == 0,
	}
}

// Next returns the next candidate. It returns false once the sequence would
// leave the uint64 range, or immediately if the wheel has no survivors.
func (c *Cursor) Next() (uint64, bool) {
	for !c.done {
		if c.index == len(c.survivors) {
			if c.block == math.MaxUint64 {
				c.done = true
				break
			}
			c.block++
			c.index = 0
			continue
		}

		hi, base := bits.Mul64(c.block, c.period)
		n, carry := bits.Add64(base, c.survivors[c.index], 0)
		if hi != 0 || carry != 0 {
			// Later survivors and blocks are larger still.
			c.done = true
			break
		}
		c.index++

		if n < c.start {
			continue
		}
		return n, true
	}
	return 0, false
}

// Block returns the current block index.
func (c *Cursor) Block() uint64 {
	return c.block
}
