package generator

import (
	"context"
	"iter"

	"github.com/roach88/primewheel/internal/prime"
	"github.com/roach88/primewheel/internal/wheel"
)

// MinStart is the smallest value a stream ever yields.
const MinStart = 2

// Source yields ascending values until it returns false.
// Stream, BoundStream and ParallelStream implement it.
type Source interface {
	Next() (uint64, bool)
}

// Stopper is implemented by sources that can stop early; Err reports why.
type Stopper interface {
	Err() error
}

// SourceErr returns src's stop reason if it has one.
func SourceErr(src Source) error {
	if st, ok := src.(Stopper); ok {
		return st.Err()
	}
	return nil
}

// Stream yields the primes >= start that pass every rule, in ascending order.
// A Stream is not safe for concurrent use.
type Stream struct {
	wheel  *wheel.Wheel
	rules  wheel.RuleSet
	cursor *wheel.Cursor
	start  uint64
}

// Option configures Generate.
type Option func(*options)

type options struct {
	rules    wheel.RuleSet
	hasRules bool
	start    uint64
}

// WithRules sets the forbidden-residue rules. Passing an empty (non-nil)
// rule set disables filtering; passing nil keeps the defaults.
func WithRules(rules wheel.RuleSet) Option {
	return func(o *options) {
		if rules == nil {
			return
		}
		o.rules = rules
		o.hasRules = true
	}
}

// WithStart sets the inclusive lower bound. Values below 2 start at 2.
func WithStart(start uint64) Option {
	return func(o *options) {
		o.start = start
	}
}

// Generate is the entry point used by the output layer. Without options it
// yields every prime from 2, filtered by wheel.DefaultRules.
func Generate(opts ...Option) (*Stream, error) {
	o := options{start: MinStart}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.hasRules {
		o.rules = wheel.DefaultRules()
	}
	return New(o.rules, o.start)
}

// New builds the wheel for rules and returns a stream starting at start.
// Malformed rules are rejected with a *wheel.RuleError.
func New(rules wheel.RuleSet, start uint64) (*Stream, error) {
	w, err := wheel.Build(rules)
	if err != nil {
		return nil, err
	}
	return NewFromWheel(w, rules, start), nil
}

// NewFromWheel streams over an existing wheel, re-checking every candidate
// against rules. The wheel may have been built from a subset of rules (or be
// a shard); the output is still exactly the primes that pass all of rules.
func NewFromWheel(w *wheel.Wheel, rules wheel.RuleSet, start uint64) *Stream {
	if start < MinStart {
		start = MinStart
	}
	return &Stream{
		wheel:  w,
		rules:  rules.Clone(),
		cursor: w.Candidates(start),
		start:  start,
	}
}

// checkInterval is how many candidates a context-aware search examines
// between cancellation checks and progress reports.
const checkInterval = 256

// Next returns the next prime. It returns false only when the candidate
// sequence runs past the uint64 range or the wheel has no survivors.
//
// Next can search indefinitely when the remaining residue classes hold no
// primes (for example rules 6:1 and 6:5 after 3); use NextContext or Bind
// when the caller must be able to give up.
func (s *Stream) Next() (uint64, bool) {
	n, ok, _ := s.search(context.Background(), nil)
	return n, ok
}

// NextContext is Next that stops searching once ctx is done, returning
// ctx.Err(). ok is false with a nil error only when the stream is exhausted.
func (s *Stream) NextContext(ctx context.Context) (n uint64, ok bool, err error) {
	return s.search(ctx, nil)
}

// search runs the candidate loop, checking ctx for cancellation every
// checkInterval candidates. progress, if set, is called
// at the same points with the candidate about to be tested, a lower bound on
// every value the stream can still yield.
func (s *Stream) search(ctx context.Context, progress func(uint64)) (uint64, bool, error) {
	for i := 0; ; i++ {
		n, ok := s.cursor.Next()
		if !ok {
			return 0, false, nil
		}
		if i%checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, false, err
			}
			if progress != nil {
				progress(n)
			}
		}
		if !wheel.Passes(n, s.rules) {
			continue
		}
		if prime.IsPrime(n) {
			return n, true, nil
		}
	}
}

// Bind returns a Source that draws from s and stops when ctx is done.
// Err reports the cancellation.
func (s *Stream) Bind(ctx context.Context) *BoundStream {
	return &BoundStream{stream: s, ctx: ctx}
}

// BoundStream is a Stream tied to a context.
type BoundStream struct {
	stream *Stream
	ctx    context.Context
	err    error
}

// Next returns the next prime, or false when the stream is exhausted or the
// context is done.
func (b *BoundStream) Next() (uint64, bool) {
	if b.err != nil {
		return 0, false
	}
	n, ok, err := b.stream.NextContext(b.ctx)
	if err != nil {
		b.err = err
	}
	return n, ok
}

// Err returns the context error that stopped the stream, or nil.
func (b *BoundStream) Err() error {
	return b.err
}

// Seq adapts the stream to a range-over-func iterator. Iteration consumes
// the stream.
func (s *Stream) Seq() iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		for {
			n, ok := s.Next()
			if !ok || !yield(n) {
				return
			}
		}
	}
}

// Restart returns a fresh stream over the same wheel, rules and start.
func (s *Stream) Restart() *Stream {
	return NewFromWheel(s.wheel, s.rules, s.start)
}

// Wheel returns the wheel driving the stream.
func (s *Stream) Wheel() *wheel.Wheel {
	return s.wheel
}

// Start returns the effective inclusive lower bound.
func (s *Stream) Start() uint64 {
	return s.start
}

// Take pulls up to n values from src.
func Take(src Source, n int) []uint64 {
	out := make([]uint64, 0, max(n, 0))
	for len(out) < n {
		v, ok := src.Next()
		if !ok {
			break
		}
		out = append(out, v)
	}
	return out
}
