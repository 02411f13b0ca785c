package wheel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func take(c *Cursor, n int) []uint64 {
	out := make([]uint64, 0, n)
	for len(out) < n {
		v, ok := c.Next()
		if !ok {
			break
		}
		out = append(out, v)
	}
	return out
}

func TestCursorFromZero(t *testing.T) {
	w, err := Build(RuleSet{{2, 0}, {3, 0}})
	require.NoError(t, err)

	assert.Equal(t, []uint64{1, 5, 7, 11, 13, 17, 19, 23}, take(w.Candidates(0), 8))
}

func TestCursorSkipsBelowStart(t *testing.T) {
	w, err := Build(RuleSet{{2, 0}, {3, 0}})
	require.NoError(t, err)

	assert.Equal(t, []uint64{13, 17, 19}, take(w.Candidates(12), 3))
	assert.Equal(t, []uint64{13, 17}, take(w.Candidates(13), 2))
}

func TestCursorEmptyRulesVisitsEveryInteger(t *testing.T) {
	w, err := Build(nil)
	require.NoError(t, err)
	assert.Equal(t, []uint64{5, 6, 7, 8}, take(w.Candidates(5), 4))
}

func TestCursorStrictlyIncreasingAndRestartable(t *testing.T) {
	w, err := Build(RuleSet{{2, 0}, {3, 0}, {5, 0}, {4, 3}})
	require.NoError(t, err)

	first := take(w.Candidates(1000), 1000)
	second := take(w.Candidates(1000), 1000)
	require.Len(t, first, 1000)
	assert.Equal(t, first, second)

	for i := 1; i < len(first); i++ {
		require.Less(t, first[i-1], first[i])
	}
	for _, n := range first {
		require.GreaterOrEqual(t, n, uint64(1000))
		require.True(t, Passes(n, w.Rules()), "n=%d", n)
	}
}

func TestCursorCoversEveryPassingInteger(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rules := RuleSet(rapid.SliceOfN(ruleGen(10), 0, 3).Draw(t, "rules"))
		start := rapid.Uint64Range(0, 5000).Draw(t, "start")

		w, err := Build(rules)
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		c := w.Candidates(start)

		limit := start + 3*w.Period()
		for n := start; n < limit; n++ {
			if !Passes(n, rules) {
				continue
			}
			got, ok := c.Next()
			if !ok || got != n {
				t.Fatalf("expected %d, got %d (ok=%v)", n, got, ok)
			}
		}
	})
}

func TestCursorStopsAtUint64Limit(t *testing.T) {
	w, err := Build(RuleSet{{2, 0}})
	require.NoError(t, err)

	c := w.Candidates(math.MaxUint64 - 4)
	assert.Equal(t, []uint64{math.MaxUint64 - 4, math.MaxUint64 - 2, math.MaxUint64}, take(c, 10))

	_, ok := c.Next()
	assert.False(t, ok)
}

func TestCursorStopsAtUint64LimitPeriodOne(t *testing.T) {
	w, err := Build(nil)
	require.NoError(t, err)

	c := w.Candidates(math.MaxUint64 - 1)
	assert.Equal(t, []uint64{math.MaxUint64 - 1, math.MaxUint64}, take(c, 10))
}
