package generator

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/primewheel/internal/wheel"
)

// shardBuffer is how many primes each shard may run ahead of the merge.
const shardBuffer = 64

// ParallelStream yields the same sequence as Stream, computed by one
// goroutine per wheel shard and merged back into ascending order.
//
// Each shard owns a disjoint subset of the wheel's residue classes, so every
// shard's output is strictly increasing and no value appears in two shards.
// The merge holds at most one pending value per shard in a min-heap. A shard
// with no pending value also publishes a frontier: the candidate it is
// currently testing, below which it can never yield again. The heap minimum
// is released as soon as every empty shard's frontier has passed it, so a
// shard whose residue classes hold no more primes never blocks the others.
//
// Callers must call Close when done; abandoning a ParallelStream without
// Close leaks its workers until the parent context is cancelled.
type ParallelStream struct {
	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	shards []shard
	heads  mergeHeap
	wake   chan struct{} // signalled whenever a shard sends, closes or advances
	closed bool
	err    error
}

type shard struct {
	values   chan uint64
	frontier atomic.Uint64
	pending  bool // a value from this shard is in the heap
	done     bool // values is closed and drained
}

// NewParallel starts shards workers over the wheel built from rules.
// shards < 1 is treated as 1.
func NewParallel(ctx context.Context, rules wheel.RuleSet, start uint64, shards int) (*ParallelStream, error) {
	w, err := wheel.Build(rules)
	if err != nil {
		return nil, err
	}
	if shards < 1 {
		shards = 1
	}

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)

	p := &ParallelStream{
		parent: ctx,
		ctx:    groupCtx,
		cancel: cancel,
		group:  group,
		shards: make([]shard, shards),
		wake:   make(chan struct{}, 1),
	}

	for i := range p.shards {
		sw, err := w.Shard(i, shards)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("shard %d: %w", i, err)
		}
		sh := &p.shards[i]
		sh.values = make(chan uint64, shardBuffer)
		src := NewFromWheel(sw, rules, start)

		advance := func(n uint64) {
			sh.frontier.Store(n)
			p.signal()
		}

		group.Go(func() error {
			defer p.signal()
			defer close(sh.values)
			for {
				n, ok, err := src.search(groupCtx, advance)
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
				select {
				case sh.values <- n:
					p.signal()
				case <-groupCtx.Done():
					return groupCtx.Err()
				}
			}
		})
	}

	return p, nil
}

// signal wakes the merge without blocking. One buffered token is enough:
// the merge re-examines every shard each time it wakes.
func (p *ParallelStream) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Next returns the next prime in ascending order. It returns false when all
// shards are exhausted, the stream is closed, or the context is cancelled;
// Err distinguishes the cases.
func (p *ParallelStream) Next() (uint64, bool) {
	if p.closed || p.err != nil {
		return 0, false
	}
	if err := p.ctx.Err(); err != nil {
		p.fail(err)
		return 0, false
	}
	for {
		if !p.collect() {
			return 0, false
		}
		if p.heads.Len() > 0 && p.releasable(p.heads[0].value) {
			head := heap.Pop(&p.heads).(shardHead)
			p.shards[head.shard].pending = false
			return head.value, true
		}
		if p.heads.Len() == 0 && p.allDone() {
			return 0, false
		}

		select {
		case <-p.wake:
		case <-p.ctx.Done():
			p.fail(p.ctx.Err())
			return 0, false
		}
	}
}

// collect moves one available value from every shard without a pending
// value onto the heap. It never blocks, and returns false on cancellation.
func (p *ParallelStream) collect() bool {
	for i := range p.shards {
		sh := &p.shards[i]
		if sh.pending || sh.done {
			continue
		}
		select {
		case n, ok := <-sh.values:
			if ok {
				heap.Push(&p.heads, shardHead{value: n, shard: i})
				sh.pending = true
				continue
			}
			// A closed channel is either an exhausted shard or a cancelled one.
			if err := p.ctx.Err(); err != nil {
				p.fail(err)
				return false
			}
			sh.done = true
		default:
		}
	}
	return true
}

// releasable reports whether no shard can still yield a value below v.
// Workers store a frontier only after the preceding send, so the frontier is
// loaded before the channel is inspected.
func (p *ParallelStream) releasable(v uint64) bool {
	for i := range p.shards {
		sh := &p.shards[i]
		if sh.pending || sh.done {
			continue
		}
		f := sh.frontier.Load()
		if len(sh.values) > 0 || f <= v {
			return false
		}
	}
	return true
}

func (p *ParallelStream) allDone() bool {
	for i := range p.shards {
		if !p.shards[i].done {
			return false
		}
	}
	return true
}

func (p *ParallelStream) fail(err error) {
	if perr := p.parent.Err(); perr != nil {
		p.err = perr
		return
	}
	p.err = err
}

// Err returns the reason the stream stopped early, or nil if it stopped
// because it was exhausted or closed.
func (p *ParallelStream) Err() error {
	return p.err
}

// Close stops all workers and waits for them to exit.
func (p *ParallelStream) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.cancel()
	if err := p.group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

type shardHead struct {
	value uint64
	shard int
}

// mergeHeap is a min-heap of shard heads ordered by value.
type mergeHeap []shardHead

func (h mergeHeap) Len() int           { return len(h) }
func (h mergeHeap) Less(i, j int) bool { return h[i].value < h[j].value }
func (h mergeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap) Push(x any) {
	*h = append(*h, x.(shardHead))
}

func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
