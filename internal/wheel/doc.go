// Package wheel builds residue-class wheels from forbidden-residue rules and
// walks them lazily.
//
// A Rule (m, r) forbids every n with n mod m == r. A RuleSet is evaluated
// directly by Passes, and compressed into a Wheel by Build: the wheel's
// period is the product of the distinct moduli (first-seen order) and its
// survivors are the residues in [0, period) that pass every rule.
//
// # Invariant
//
// For every n, Passes(n, rules) == w.Contains(n). Moduli may repeat or share
// factors. Because every modulus divides the period, n mod m is determined
// by n mod period, so classifying one period is exact for all n.
//
// # Cursors
//
// Candidates returns a Cursor, an explicit (block, survivor index) pair
// advanced by Next. Cursors never share mutable state; two cursors created
// with the same arguments produce identical sequences.
package wheel
