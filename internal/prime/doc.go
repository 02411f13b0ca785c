// Package prime implements a deterministic primality test for 64-bit integers.
//
// IsPrime runs trial division by the primes up to 37 and then a strong
// probable-prime (Miller-Rabin) test against a fixed set of seven witnesses.
// That witness set is proven to classify every n < 2^64 correctly, so the
// answer is exact, not probabilistic. The set and its order must not change.
//
// All modular products go through a 128-bit intermediate (math/bits), so
// there is no silent wraparound for n close to 2^64.
package prime
