package wheel

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// DomainRuleSet prefixes rule set fingerprints. The version suffix allows the
// encoding to change without colliding with old fingerprints.
const DomainRuleSet = "primewheel/ruleset/v1"

// CanonicalJSON encodes the rule set as [[modulus,residue],...] with no
// whitespace, preserving rule order.
func (rs RuleSet) CanonicalJSON() []byte {
	buf := make([]byte, 0, 2+len(rs)*8)
	buf = append(buf, '[')
	for i, r := range rs {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, '[')
		buf = strconv.AppendUint(buf, r.Modulus, 10)
		buf = append(buf, ',')
		buf = strconv.AppendUint(buf, r.Residue, 10)
		buf = append(buf, ']')
	}
	return append(buf, ']')
}

// Fingerprint returns the hex SHA-256 of DomainRuleSet, a NUL separator and
// the canonical encoding. Order matters: the same rules in a different order
// produce a different fingerprint even though they build the same wheel.
func (rs RuleSet) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(DomainRuleSet))
	h.Write([]byte{0x00})
	h.Write(rs.CanonicalJSON())
	return hex.EncodeToString(h.Sum(nil))
}
