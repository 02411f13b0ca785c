package prime

import "math/bits"

// smallPrimes are checked by trial division before any witness runs.
var smallPrimes = [...]uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37}

// witnesses is the deterministic Miller-Rabin base set for n < 2^64.
var witnesses = [...]uint64{2, 325, 9375, 28178, 450775, 9780504, 1795265022}

// IsPrime reports whether n is prime. It is exact for every uint64.
func IsPrime(n uint64) bool {
	if n < 2 {
		return false
	}
	for _, p := range smallPrimes {
		if n == p {
			return true
		}
		if n%p == 0 {
			return false
		}
	}

	// n is odd and > 37 here, so s >= 1.
	d := n - 1
	s := bits.TrailingZeros64(d)
	d >>= uint(s)

	for _, w := range witnesses {
		a := w % n
		if a == 0 {
			continue
		}
		if !strongProbablePrime(n, a, d, s) {
			return false
		}
	}
	return true
}

// IsPrimeInt64 is IsPrime for signed input. Negative numbers are not prime.
func IsPrimeInt64(n int64) bool {
	if n < 2 {
		return false
	}
	return IsPrime(uint64(n))
}

// strongProbablePrime runs one Miller-Rabin round for base a, where
// n-1 = d * 2^s with d odd.
func strongProbablePrime(n, a, d uint64, s int) bool {
	x := powMod(a, d, n)
	if x == 1 || x == n-1 {
		return true
	}
	for i := 1; i < s; i++ {
		x = mulMod(x, x, n)
		if x == n-1 {
			return true
		}
	}
	return false
}

// mulMod returns a*b mod m using a 128-bit product. Requires a, b < m.
func mulMod(a, b, m uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	// hi < m holds because a, b < m, so Div64 cannot panic.
	_, rem := bits.Div64(hi, lo, m)
	return rem
}

// powMod returns base^exp mod m by square-and-multiply. Requires base < m.
func powMod(base, exp, m uint64) uint64 {
	result := uint64(1) % m
	for exp > 0 {
		if exp&1 == 1 {
			result = mulMod(result, base, m)
		}
		base = mulMod(base, base, m)
		exp >>= 1
	}
	return result
}
