package generator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/primewheel/internal/testutil"
	"github.com/roach88/primewheel/internal/wheel"
)

func TestGenerateDefaultsFromTwo(t *testing.T) {
	s, err := Generate()
	require.NoError(t, err)

	// The default rules exclude 0 mod 2..13, so those primes are filtered.
	got := Take(s, 5)
	assert.Equal(t, []uint64{17, 19, 23, 29, 31}, got)
}

func TestStreamWithoutRulesBeginsAtTwo(t *testing.T) {
	s, err := Generate(WithRules(wheel.RuleSet{}))
	require.NoError(t, err)

	assert.Equal(t, []uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29}, Take(s, 10))
}

func TestStreamStartAtHundred(t *testing.T) {
	s, err := New(wheel.RuleSet{}, 100)
	require.NoError(t, err)

	n, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, uint64(101), n)
}

func TestStreamStartBelowTwoClamps(t *testing.T) {
	for _, start := range []uint64{0, 1} {
		s, err := New(wheel.RuleSet{}, start)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), s.Start())
		assert.Equal(t, []uint64{2, 3, 5}, Take(s, 3))
	}
}

func TestStreamExcludeEvensStartsAtThree(t *testing.T) {
	s, err := Generate(WithRules(wheel.RuleSet{{Modulus: 2, Residue: 0}}), WithStart(2))
	require.NoError(t, err)

	assert.Equal(t, []uint64{3, 5, 7, 11, 13}, Take(s, 5))
}

func TestStreamMatchesReference(t *testing.T) {
	rules := wheel.RuleSet{{Modulus: 4, Residue: 3}, {Modulus: 6, Residue: 1}, {Modulus: 10, Residue: 3}}
	s, err := New(rules, 50)
	require.NoError(t, err)

	want := testutil.PrimesFrom(50, 500, func(n uint64) bool { return wheel.Passes(n, rules) })
	assert.Equal(t, want, Take(s, 500))
}

func TestStreamDefaultRulesMatchReference(t *testing.T) {
	s, err := Generate(WithStart(1000))
	require.NoError(t, err)

	want := testutil.PrimesFrom(1000, 2000, nil)
	assert.Equal(t, want, Take(s, 2000))
}

func TestStreamRestartable(t *testing.T) {
	s, err := Generate(WithStart(7919))
	require.NoError(t, err)

	first := Take(s, 1000)
	second := Take(s.Restart(), 1000)
	require.Len(t, first, 1000)
	assert.Equal(t, first, second)

	for i := 1; i < len(first); i++ {
		require.Less(t, first[i-1], first[i])
	}
}

func TestStreamPartialWheelStillHonorsAllRules(t *testing.T) {
	rules := wheel.RuleSet{{Modulus: 2, Residue: 0}, {Modulus: 3, Residue: 2}, {Modulus: 7, Residue: 3}}

	// A wheel built from only the first rule; the rest must come from the re-check.
	partial, err := wheel.Build(rules[:1])
	require.NoError(t, err)

	full, err := New(rules, 2)
	require.NoError(t, err)

	got := Take(NewFromWheel(partial, rules, 2), 300)
	assert.Equal(t, Take(full, 300), got)
	for _, p := range got {
		assert.True(t, wheel.Passes(p, rules), "p=%d", p)
	}
}

func TestStreamInvalidRules(t *testing.T) {
	_, err := Generate(WithRules(wheel.RuleSet{{Modulus: 1, Residue: 0}}))
	require.Error(t, err)
	assert.True(t, wheel.IsInvalidRule(err))

	_, err = New(wheel.RuleSet{{Modulus: 5, Residue: 7}}, 2)
	assert.True(t, wheel.IsInvalidRule(err))
}

func TestStreamEverythingExcluded(t *testing.T) {
	s, err := New(wheel.RuleSet{{Modulus: 2, Residue: 0}, {Modulus: 2, Residue: 1}}, 2)
	require.NoError(t, err)

	_, ok := s.Next()
	assert.False(t, ok)
}

func TestStreamSeq(t *testing.T) {
	s, err := New(wheel.RuleSet{}, 2)
	require.NoError(t, err)

	var got []uint64
	for p := range s.Seq() {
		if p > 30 {
			break
		}
		got = append(got, p)
	}
	assert.Equal(t, []uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29}, got)

	// The break consumed 31; iteration continues from there.
	n, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, uint64(37), n)
}

func TestStreamNearUint64Max(t *testing.T) {
	s, err := New(wheel.RuleSet{{Modulus: 2, Residue: 0}}, 18446744073709551500)
	require.NoError(t, err)

	assert.Equal(t, []uint64{18446744073709551521, 18446744073709551533, 18446744073709551557}, Take(s, 10))
}

func TestTakeZero(t *testing.T) {
	s, err := Generate()
	require.NoError(t, err)
	assert.Empty(t, Take(s, 0))
	assert.Empty(t, Take(s, -1))
}

func TestStreamNextContextGivesUp(t *testing.T) {
	s, err := New(barrenRules, 2)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var got []uint64
	within(t, 5*time.Second, func() {
		for {
			n, ok, err := s.NextContext(ctx)
			if err != nil {
				assert.ErrorIs(t, err, context.DeadlineExceeded)
				assert.False(t, ok)
				return
			}
			if !ok {
				t.Error("stream reported exhaustion instead of the deadline")
				return
			}
			got = append(got, n)
		}
	})
	assert.Equal(t, []uint64{2, 3}, got)
}

func TestBoundStreamStopsOnCancel(t *testing.T) {
	s, err := New(barrenRules, 2)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	b := s.Bind(ctx)
	assert.Equal(t, []uint64{2, 3}, Take(b, 2))
	assert.NoError(t, SourceErr(b))

	cancel()
	within(t, 5*time.Second, func() {
		_, ok := b.Next()
		assert.False(t, ok)
	})
	assert.ErrorIs(t, SourceErr(b), context.Canceled)

	// The error is sticky.
	_, ok := b.Next()
	assert.False(t, ok)
}

func TestSourceErrWithoutStopper(t *testing.T) {
	s, err := New(wheel.RuleSet{}, 2)
	require.NoError(t, err)
	assert.NoError(t, SourceErr(s))
}
