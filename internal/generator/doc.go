// Package generator streams primes that survive a set of forbidden-residue
// rules.
//
// A Stream builds the rules' wheel once, walks it with a wheel.Cursor from the
// start value, re-checks each candidate against the full rule set and yields
// it when prime.IsPrime agrees. Streams are pull-based: nothing runs until
// Next is called, and abandoning a Stream releases nothing because it holds
// nothing but its cursor.
//
// ParallelStream is an optional variant that shards the wheel's residue
// classes across goroutines and merges their output back into ascending
// order.
package generator
