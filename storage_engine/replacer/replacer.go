package replacer

import (
	"fmt"
	"sync"
)

/*
This file is the replacer used by the buffer pool to pick an eviction victim.

It implements reference-bit clock ("second chance"): each frame tracked by
the replacer carries a reference bit. A clock hand sweeps the frame array in
a circle; a member frame found with its reference bit set gets the bit
cleared and a second pass before it can be chosen, a member frame found with
the bit already clear is evicted immediately.

The replacer only ever holds frames with pin_count == 0 — the BufferPool is
responsible for calling Pin/Unpin as pin counts cross zero in either
direction, never the replacer itself.
*/

// ClockReplacer tracks which of a fixed set of frames are eviction
// candidates and picks a victim via reference-bit clock sweep.
type ClockReplacer struct {
	poolSize  int
	inClock   []bool // frame is currently tracked
	ref       []bool // reference bit, set on Unpin / cleared on a passed-over sweep
	clockHand int
	size      int // number of frames currently tracked

	mu sync.Mutex
}

// NewClockReplacer creates a replacer over poolSize frames, none tracked.
func NewClockReplacer(poolSize int) *ClockReplacer {
	return &ClockReplacer{
		poolSize: poolSize,
		inClock:  make([]bool, poolSize),
		ref:      make([]bool, poolSize),
	}
}

// Victim returns and removes an eviction candidate. The second return value
// is false when the tracked set is empty.
func (r *ClockReplacer) Victim() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size == 0 {
		return 0, false
	}

	// At most two full passes are ever needed: the first clears every set
	// reference bit, the second must land on a member with ref == false
	// since the tracked set is non-empty.
	for i := 0; i < 2*r.poolSize; i++ {
		frameID := r.clockHand
		r.clockHand = (r.clockHand + 1) % r.poolSize

		if !r.inClock[frameID] {
			continue
		}
		if r.ref[frameID] {
			r.ref[frameID] = false
			continue
		}

		r.inClock[frameID] = false
		r.size--
		return frameID, true
	}

	// Unreachable given the invariant above, but fail safe rather than loop.
	return 0, false
}

// Pin removes frameID from the tracked set; a pinned frame can never be
// picked as a victim. No-op if the frame isn't tracked.
func (r *ClockReplacer) Pin(frameID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.validFrame(frameID) {
		fmt.Printf("[ClockReplacer] Pin: invalid frame id %d (poolSize=%d)\n", frameID, r.poolSize)
		return
	}

	if r.inClock[frameID] {
		r.inClock[frameID] = false
		r.size--
	}
}

// Unpin inserts frameID into the tracked set, setting its reference bit. If
// the frame is already tracked only the reference bit is (re)set.
func (r *ClockReplacer) Unpin(frameID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.validFrame(frameID) {
		fmt.Printf("[ClockReplacer] Unpin: invalid frame id %d (poolSize=%d)\n", frameID, r.poolSize)
		return
	}

	if !r.inClock[frameID] {
		r.inClock[frameID] = true
		r.size++
	}
	r.ref[frameID] = true
}

// Size returns the number of frames currently tracked as eviction candidates.
func (r *ClockReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

func (r *ClockReplacer) validFrame(frameID int) bool {
	return frameID >= 0 && frameID < r.poolSize
}
