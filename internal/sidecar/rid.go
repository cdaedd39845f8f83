package sidecar

import (
	"math/big"

	"github.com/google/uuid"
)

// ridLength is the fixed length of a RID per the data model: 24 characters
// drawn from the unusual base-36 alphabet A-Z (0-25) then 0-9 (26-35).
const ridLength = 24

const ridAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var ridBase = big.NewInt(int64(len(ridAlphabet)))

// CheckAlphabet, when true, makes every NewRID call assert its own output
// against the documented alphabet before returning it. Wired from
// Config.RIDAlphabetCheck at Client construction time; off by default
// since the encoding below already guarantees the shape and the check
// only exists to catch a future change to the encoding loop that breaks
// that guarantee.
var CheckAlphabet = false

// NewRID returns a fresh 24-character random identifier. Two version-4
// UUIDs (32 bytes, 244 of their bits crypto-random from crypto/rand under
// the hood) are combined into a single big integer and repeatedly reduced mod
// 36 to produce ridLength digits over the documented alphabet. This gives
// sbdb's "cryptographically unique in the weak sense" guarantee without
// hand-rolling a CSPRNG-backed encoder.
func NewRID() string {
	a := uuid.New()
	b := uuid.New()

	buf := make([]byte, 0, 32)
	buf = append(buf, a[:]...)
	buf = append(buf, b[:]...)

	n := new(big.Int).SetBytes(buf)

	digits := make([]byte, ridLength)
	mod := new(big.Int)
	for i := ridLength - 1; i >= 0; i-- {
		n.DivMod(n, ridBase, mod)
		digits[i] = ridAlphabet[mod.Int64()]
	}
	rid := string(digits)
	if CheckAlphabet && !ValidRID(rid) {
		panic("sidecar: generated RID failed alphabet self-check: " + rid)
	}
	return rid
}

// ValidRID reports whether s has the shape of a RID this module generates:
// exactly ridLength characters, all drawn from the documented alphabet.
// Used by NewRID's CheckAlphabet self-check (wired from
// Config.RIDAlphabetCheck) and by tests.
func ValidRID(s string) bool {
	if len(s) != ridLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !((c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}
