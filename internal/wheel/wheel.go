package wheel

import (
	"fmt"
	"math/bits"
	"slices"
)

// Wheel is the finite-period compression of a RuleSet.
//
// A Wheel is immutable after Build. Accessors that return slices return
// copies.
type Wheel struct {
	period    uint64
	survivors []uint64 // ascending, each in [0, period)
	rules     RuleSet  // full rule set, re-checked by consumers
}

// Build validates rules and constructs their wheel.
//
// The period is the product of the distinct moduli in first-seen order. Every
// residue in [0, period) is then classified against all rules, including
// repeats, so the survivors are exact even for non-coprime moduli.
//
// Build is O(period * len(rules)). Keeping the period small is the caller's
// responsibility; the only bound enforced is that it fits in a uint64.
// An empty rule set yields period 1 with the single survivor 0.
func Build(rules RuleSet) (*Wheel, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	period, err := distinctPeriod(rules)
	if err != nil {
		return nil, err
	}

	survivors := make([]uint64, 0)
	for r := uint64(0); r < period; r++ {
		if Passes(r, rules) {
			survivors = append(survivors, r)
		}
	}

	return &Wheel{
		period:    period,
		survivors: survivors,
		rules:     rules.Clone(),
	}, nil
}

// distinctPeriod multiplies each distinct modulus once.
func distinctPeriod(rules RuleSet) (uint64, error) {
	period := uint64(1)
	seen := make(map[uint64]struct{}, len(rules))
	for i, r := range rules {
		if _, ok := seen[r.Modulus]; ok {
			continue
		}
		seen[r.Modulus] = struct{}{}

		hi, lo := bits.Mul64(period, r.Modulus)
		if hi != 0 {
			return 0, &RuleError{
				Code:    ErrCodePeriodOverflow,
				Message: fmt.Sprintf("period %d * modulus %d overflows uint64", period, r.Modulus),
				Index:   i,
			}
		}
		period = lo
	}
	return period, nil
}

// Period returns the wheel's combined modulus.
func (w *Wheel) Period() uint64 {
	return w.period
}

// Survivors returns a copy of the ascending surviving residues.
func (w *Wheel) Survivors() []uint64 {
	return slices.Clone(w.survivors)
}

// Len returns the number of surviving residues per period.
func (w *Wheel) Len() int {
	return len(w.survivors)
}

// Rules returns a copy of the rule set the wheel was built from.
func (w *Wheel) Rules() RuleSet {
	return w.rules.Clone()
}

// Density returns the fraction of integers that survive the wheel.
func (w *Wheel) Density() float64 {
	return float64(len(w.survivors)) / float64(w.period)
}

// Contains reports whether n falls in a surviving residue class.
func (w *Wheel) Contains(n uint64) bool {
	_, found := slices.BinarySearch(w.survivors, n%w.period)
	return found
}

// Equal reports whether two wheels have the same period and survivors.
func (w *Wheel) Equal(other *Wheel) bool {
	if w == nil || other == nil {
		return w == other
	}
	return w.period == other.period && slices.Equal(w.survivors, other.survivors)
}

// Shard returns the sub-wheel holding every k-th survivor starting at index
// i. Shards 0..k-1 partition the survivors; each keeps the full period and
// rule set. A shard may be empty when k exceeds Len.
func (w *Wheel) Shard(i, k int) (*Wheel, error) {
	if k < 1 || i < 0 || i >= k {
		return nil, fmt.Errorf("invalid shard %d of %d", i, k)
	}
	survivors := make([]uint64, 0, len(w.survivors)/k+1)
	for j := i; j < len(w.survivors); j += k {
		survivors = append(survivors, w.survivors[j])
	}
	return &Wheel{
		period:    w.period,
		survivors: survivors,
		rules:     w.rules,
	}, nil
}
