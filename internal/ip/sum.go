package ip

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// SumPrefixLen is the number of hex characters used for cache slot names
// and DST tags.
const SumPrefixLen = 10

// Sum is a SHA-256 digest over an IP's canonical file listing.
type Sum [sha256.Size]byte

// ParseSum parses a 64-character lowercase hex digest.
func ParseSum(s string) (Sum, error) {
	var sum Sum
	if len(s) != hex.EncodedLen(sha256.Size) {
		return sum, fmt.Errorf("checksum %q must be %d hex characters", s, hex.EncodedLen(sha256.Size))
	}
	if _, err := hex.Decode(sum[:], []byte(s)); err != nil {
		return sum, fmt.Errorf("checksum %q: %w", s, err)
	}
	return sum, nil
}

func (s Sum) String() string {
	return hex.EncodeToString(s[:])
}

// Prefix returns the slot-naming prefix of the digest.
func (s Sum) Prefix() string {
	return s.String()[:SumPrefixLen]
}

// ReadSumFile reads a checksum file: exactly one hex digest line.
func ReadSumFile(path string) (Sum, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Sum{}, err
	}
	return ParseSum(strings.TrimSuffix(strings.TrimSuffix(string(data), "\n"), "\r"))
}

// WriteSumFile writes the digest plus a trailing LF.
func WriteSumFile(path string, sum Sum) error {
	return os.WriteFile(path, []byte(sum.String()+"\n"), 0o644)
}
