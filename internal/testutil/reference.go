package testutil

// TrialDivision reports whether n is prime by dividing by every odd d with
// d*d <= n. It is slow and obviously correct, which is the point.
func TrialDivision(n uint64) bool {
	if n < 2 {
		return false
	}
	if n%2 == 0 {
		return n == 2
	}
	for d := uint64(3); d <= n/d; d += 2 {
		if n%d == 0 {
			return false
		}
	}
	return true
}

// Sieve returns a table where table[i] reports whether i is prime, for
// i in [0, limit).
func Sieve(limit int) []bool {
	if limit <= 0 {
		return nil
	}
	table := make([]bool, limit)
	for i := 2; i < limit; i++ {
		table[i] = true
	}
	for i := 2; i*i < limit; i++ {
		if !table[i] {
			continue
		}
		for j := i * i; j < limit; j += i {
			table[j] = false
		}
	}
	return table
}

// FirstPrimes returns the first n primes in ascending order.
func FirstPrimes(n int) []uint64 {
	primes := make([]uint64, 0, n)
	for c := uint64(2); len(primes) < n; c++ {
		if TrialDivision(c) {
			primes = append(primes, c)
		}
	}
	return primes
}

// PrimesFrom returns the first n primes >= start that also satisfy keep.
// A nil keep accepts every prime.
func PrimesFrom(start uint64, n int, keep func(uint64) bool) []uint64 {
	primes := make([]uint64, 0, n)
	for c := start; len(primes) < n; c++ {
		if TrialDivision(c) && (keep == nil || keep(c)) {
			primes = append(primes, c)
		}
	}
	return primes
}
